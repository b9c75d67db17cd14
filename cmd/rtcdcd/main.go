package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	webrtc "github.com/lanikai/rtcdc"
	"github.com/lanikai/rtcdc/internal/logging"
	"github.com/lanikai/rtcdc/internal/signaling"
)

var log = logging.DefaultLogger.WithTag("rtcdcd")

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}

	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: flagUDPPort})
	if err != nil {
		fatal(err)
	}
	defer udpConn.Close()

	endpoint, err := webrtc.NewEndpoint(webrtc.Config{})
	if err != nil {
		fatal(err)
	}
	defer endpoint.Close()

	var conn *webrtc.Connection
	if flagListen {
		conn, err = acceptOnce(endpoint, udpConn)
	} else {
		conn, err = dialOnce(endpoint, udpConn)
	}
	if err != nil {
		fatal(err)
	}

	go receiveLoop(udpConn, conn)
	go retransmitLoop(conn)

	conn.Start()

	waitConnected(conn)
	fmt.Fprintln(os.Stderr, "connected")

	runChat(conn)
}

// acceptOnce runs the signaling server, accepts exactly one peer, and
// returns the server-role Connection for it.
func acceptOnce(endpoint *webrtc.Endpoint, udpConn *net.UDPConn) (*webrtc.Connection, error) {
	listener, err := endpoint.Listen()
	if err != nil {
		return nil, err
	}

	localAddr := fmt.Sprintf("%s:%d", flagAdvertiseHost, flagUDPPort)
	accepted := make(chan *webrtc.Connection, 1)

	server := signaling.NewServer(flagSignalListen, func(remote signaling.PeerInfo) (signaling.PeerInfo, error) {
		remoteUDPAddr, err := net.ResolveUDPAddr("udp", remote.Addr)
		if err != nil {
			return signaling.PeerInfo{}, err
		}

		conn, err := listener.AcceptConnection(remote.Addr, func(b []byte) error {
			_, err := udpConn.WriteToUDP(b, remoteUDPAddr)
			return err
		})
		if err != nil {
			return signaling.PeerInfo{}, err
		}
		conn.SetRemoteICECredentials(remote.Ufrag, remote.Password)

		local := conn.ICECredentials()
		accepted <- conn
		return signaling.PeerInfo{
			Fingerprint: endpoint.Certificate().Fingerprint,
			Ufrag:       local.Ufrag,
			Password:    local.Password,
			Addr:        localAddr,
		}, nil
	})

	fmt.Fprintf(os.Stderr, "signaling on %s, waiting for a peer...\n", flagSignalListen)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Warn("signaling server: %v", err)
		}
	}()

	return <-accepted, nil
}

// dialOnce exchanges PeerInfo with a listening peer over signaling, then
// returns the client-role Connection to it.
func dialOnce(endpoint *webrtc.Endpoint, udpConn *net.UDPConn) (*webrtc.Connection, error) {
	localAddr := fmt.Sprintf("%s:%d", flagAdvertiseHost, flagUDPPort)
	local := signaling.PeerInfo{
		Fingerprint: endpoint.Certificate().Fingerprint,
		Addr:        localAddr,
	}

	remote, err := signaling.Dial(flagSignalURL, local)
	if err != nil {
		return nil, err
	}

	remoteUDPAddr, err := net.ResolveUDPAddr("udp", remote.Addr)
	if err != nil {
		return nil, err
	}

	conn, err := endpoint.Connect(remote.Fingerprint, func(b []byte) error {
		_, err := udpConn.WriteToUDP(b, remoteUDPAddr)
		return err
	})
	if err != nil {
		return nil, err
	}
	conn.SetRemoteICECredentials(remote.Ufrag, remote.Password)
	return conn, nil
}

func receiveLoop(udpConn *net.UDPConn, conn *webrtc.Connection) {
	buf := make([]byte, 1<<16)
	for {
		n, addr, err := udpConn.ReadFromUDP(buf)
		if err != nil {
			log.Warn("udp read: %v", err)
			return
		}
		if err := conn.Receive(buf[:n], addr); err != nil {
			log.Warn("receive from %s: %v", addr, err)
		}
	}
}

func retransmitLoop(conn *webrtc.Connection) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for now := range ticker.C {
		if conn.State() == webrtc.StateClosed {
			return
		}
		if err := conn.PendingRetransmissions(now); err != nil {
			log.Warn("retransmission: %v", err)
			return
		}
	}
}

func waitConnected(conn *webrtc.Connection) {
	for conn.State() != webrtc.StateConnected {
		if conn.State() == webrtc.StateFailed {
			fatal(fmt.Errorf("connection failed: %s", conn.FailReason()))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// runChat opens one data channel, prints whatever the peer sends, and
// forwards stdin lines as messages on the local channel.
func runChat(conn *webrtc.Connection) {
	conn.SetDataHandler(func(streamID uint16, payload []byte) {
		fmt.Printf("peer> %s\n", payload)
	})

	ch, err := conn.OpenDataChannel(flagLabel, true)
	if err != nil {
		fatal(err)
	}
	for ch.State().String() == "connecting" {
		time.Sleep(10 * time.Millisecond)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if err := conn.Send(ch.ID(), []byte(line), false); err != nil {
			log.Warn("send: %v", err)
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
