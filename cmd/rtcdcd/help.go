package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagListen        bool
	flagSignalListen  string
	flagSignalURL     string
	flagUDPPort       int
	flagAdvertiseHost string
	flagLabel         string
	flagHelp          bool
)

func init() {
	flag.BoolVarP(&flagListen, "listen", "l", false, "Run as the listening (server) peer")
	flag.StringVarP(&flagSignalListen, "signal-listen", "s", ":8000", "Address for the signaling websocket server (listen mode)")
	flag.StringVarP(&flagSignalURL, "signal-url", "u", "ws://127.0.0.1:8000/ws", "Signaling websocket URL to dial (dial mode)")
	flag.IntVarP(&flagUDPPort, "udp-port", "p", 5000, "Local UDP port for the data-channel transport")
	flag.StringVarP(&flagAdvertiseHost, "advertise-host", "a", "127.0.0.1", "Host to advertise as this peer's UDP address")
	flag.StringVarP(&flagLabel, "label", "c", "chat", "Data channel label")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

const helpString = `rtcdcd - minimal WebRTC data-channel peer

Usage:
  rtcdcd --listen [OPTION]...   Wait for one peer to connect
  rtcdcd [OPTION]...            Dial a listening peer

Signaling:
  -s, --signal-listen=ADDR  Signaling server bind address (listen mode, default ":8000")
  -u, --signal-url=URL      Signaling server URL to dial (dial mode, default "ws://127.0.0.1:8000/ws")

Transport:
  -p, --udp-port=NUM        Local UDP port for data-channel traffic (default 5000)
  -a, --advertise-host=HOST Host to advertise in signaling as this peer's address (default "127.0.0.1")

Data channel:
  -c, --label=NAME          Data channel label (default "chat")

Miscellaneous:
  -h, --help                 Print this help message and exit

Lines typed on stdin are sent as data channel messages; incoming messages
are printed to stdout.`

func help() {
	c := color.New(color.FgCyan)
	c.Println("rtcdcd")
	fmt.Println(helpString)
}
