package webrtc

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/rtcdc/internal/asyncseq"
	"github.com/lanikai/rtcdc/internal/dcep"
	"github.com/lanikai/rtcdc/internal/dtls"
	"github.com/lanikai/rtcdc/internal/ice"
	"github.com/lanikai/rtcdc/internal/logging"
	"github.com/lanikai/rtcdc/internal/sctp"
	"github.com/lanikai/rtcdc/internal/stun"
)

var log = logging.DefaultLogger.WithTag("webrtc")

// dtlsLowWatermark/dtlsHighWatermark bound RFC 5764 §5.1.2's demux range:
// a DTLS record's first byte always falls in [20, 63], and that range
// overlaps the bit pattern isSTUN also accepts, so the DTLS check must run
// first.
const (
	dtlsLowWatermark  = 20
	dtlsHighWatermark = 63
)

func isDTLSRecord(b []byte) bool {
	return len(b) > 0 && b[0] >= dtlsLowWatermark && b[0] <= dtlsHighWatermark
}

// DataHandler receives application messages delivered on non-DCEP PPIDs,
// i.e. ordinary data-channel traffic once a channel is open.
type DataHandler func(streamID uint16, payload []byte)

// Connection is one peer-to-peer data-channel connection: an ICE-Lite
// agent, a DTLS engine, an SCTP association, and a DCEP channel manager,
// all orchestrated from here. It owns all four exclusively; nothing else
// holds a reference into their state.
type Connection struct {
	mu sync.Mutex

	isClient            bool
	expectedFingerprint string // client role only; empty means unchecked

	send func(b []byte) error

	state         State
	failReason    string
	handshakeDone bool

	localFingerprint  string
	remoteFingerprint string
	haveRemote        bool

	dtlsEngine dtls.Engine
	iceAgent   *ice.Agent
	assoc      *sctp.Association
	channels   *dcep.Manager

	dataHandler DataHandler

	incomingChannels *asyncseq.Source[*dcep.DataChannel]

	closed bool
}

// sctpConn adapts a Connection's DTLS engine + send callback into the
// sctp.Conn interface the association writes whole packets through.
type sctpConn struct {
	c *Connection
}

func (sc sctpConn) WriteSCTPPacket(b []byte) error {
	ciphertext, err := sc.c.dtlsEngine.WriteApplicationData(b)
	if err != nil {
		return errors.Wrap(err, "webrtc: encrypting sctp packet")
	}
	return sc.c.send(ciphertext)
}

// newConnection builds a Connection in StateNew. localFingerprint is this
// side's own certificate fingerprint; expectedFingerprint, when non-empty,
// is checked against the peer's after the DTLS handshake completes (client
// role only).
func newConnection(isClient bool, localFingerprint, expectedFingerprint string, engine dtls.Engine, send func(b []byte) error) *Connection {
	c := &Connection{
		isClient:            isClient,
		expectedFingerprint: expectedFingerprint,
		send:                send,
		state:               StateNew,
		localFingerprint:    localFingerprint,
		dtlsEngine:          engine,
		iceAgent:            ice.NewAgent(),
		incomingChannels:    asyncseq.New[*dcep.DataChannel](0),
	}
	c.assoc = newAssociation(isClient, c)
	c.channels = dcep.NewManager(c.assoc, isClient, c.onChannelOpened)
	return c
}

func newAssociation(isClient bool, c *Connection) *sctp.Association {
	cfg := sctp.Config{
		OnMessage: c.onSCTPMessage,
		OnClosed:  c.onAssociationClosed,
	}
	conn := sctpConn{c: c}
	if isClient {
		return sctp.Client(conn, cfg)
	}
	return sctp.Server(conn, cfg)
}

func (c *Connection) onChannelOpened(ch *dcep.DataChannel) {
	c.incomingChannels.Produce(ch)
}

func (c *Connection) onSCTPMessage(streamID uint16, ppid uint32, data []byte) {
	if ppid == dcep.PPIDControl {
		if err := c.channels.HandleControlMessage(streamID, data); err != nil {
			log.Warn("stream %d: dcep: %v", streamID, err)
		}
		return
	}
	if ch, ok := c.channels.Channel(streamID); ok && ch.State() == dcep.StateClosed {
		return
	}
	c.mu.Lock()
	handler := c.dataHandler
	c.mu.Unlock()
	if handler != nil {
		handler(streamID, data)
	}
}

func (c *Connection) onAssociationClosed(err error) {
	if err != nil {
		c.fail(errors.Wrap(err, "webrtc: sctp association").Error())
		return
	}
	c.mu.Lock()
	if !c.state.isTerminal() {
		c.setState(StateDisconnected)
	}
	c.mu.Unlock()
}

// State returns the connection's current unified state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FailReason returns the reason recorded when the connection transitioned
// to StateFailed, or "" if it never did.
func (c *Connection) FailReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failReason
}

func (c *Connection) setState(s State) {
	if c.state != s {
		log.Debug("connection state %v -> %v", c.state, s)
		c.state = s
	}
}

func (c *Connection) fail(reason string) {
	c.mu.Lock()
	if c.state.isTerminal() {
		c.mu.Unlock()
		return
	}
	c.failReason = reason
	c.setState(StateFailed)
	c.mu.Unlock()
	log.Warn("connection failed: %s", reason)

	c.iceAgent.Fail()
	c.incomingChannels.Close()
}

// LocalFingerprint returns this connection's own certificate fingerprint.
func (c *Connection) LocalFingerprint() string {
	return c.localFingerprint
}

// RemoteFingerprint returns the peer's certificate fingerprint once the
// DTLS handshake has completed.
func (c *Connection) RemoteFingerprint() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteFingerprint, c.haveRemote
}

// ICECredentials returns this connection's local ICE ufrag/password, to be
// communicated to the peer out of band (signaling).
func (c *Connection) ICECredentials() ice.Credentials {
	return c.iceAgent.LocalCredentials()
}

// SetRemoteICECredentials records the peer's ICE ufrag/password, learned
// out of band via signaling.
func (c *Connection) SetRemoteICECredentials(ufrag, password string) {
	c.iceAgent.SetRemoteCredentials(ufrag, password)
}

// SetDataHandler installs the callback invoked for every application
// message delivered on a non-DCEP PPID (i.e. data-channel user traffic).
func (c *Connection) SetDataHandler(fn DataHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataHandler = fn
}

// IncomingChannels returns the sequence of data channels the remote peer
// has opened on this connection.
func (c *Connection) IncomingChannels() *asyncseq.Source[*dcep.DataChannel] {
	return c.incomingChannels
}

// Start begins the connection: the client role produces and sends the
// initial DTLS handshake flight; the server role waits for one.
func (c *Connection) Start() {
	c.mu.Lock()
	if c.state != StateNew {
		c.mu.Unlock()
		return
	}
	c.setState(StateConnecting)
	c.mu.Unlock()

	flight, err := c.dtlsEngine.StartHandshake(c.isClient)
	if err != nil {
		c.fail(errors.Wrap(err, "webrtc: starting dtls handshake").Error())
		return
	}

	c.mu.Lock()
	c.setState(StateDTLSHandshaking)
	c.mu.Unlock()

	for _, datagram := range flight {
		if err := c.send(datagram); err != nil {
			log.Warn("sending initial dtls flight: %v", err)
		}
	}
}

// Receive processes one inbound datagram: a STUN message (answered
// in-line and routed to the ICE agent) or a DTLS record (fed to the DTLS
// engine, then any decrypted application data to the SCTP association).
// remoteAddr is required for STUN processing (to build the XOR-MAPPED-
// ADDRESS reply) and ignored otherwise.
func (c *Connection) Receive(b []byte, remoteAddr *net.UDPAddr) error {
	if c.State().isTerminal() {
		return ErrClosed
	}

	switch {
	case isDTLSRecord(b):
		return c.receiveDTLS(b)
	case stun.IsMessage(b):
		return c.receiveSTUN(b, remoteAddr)
	default:
		if len(b) > 0 {
			log.Debug("dropping unrecognized datagram, first byte %#02x", b[0])
		}
		return nil
	}
}

func (c *Connection) receiveSTUN(b []byte, remoteAddr *net.UDPAddr) error {
	if remoteAddr == nil {
		return nil
	}
	resp, err := c.iceAgent.ProcessSTUN(b, remoteAddr.IP, remoteAddr.Port)
	if err != nil {
		log.Debug("ice: rejecting binding request from %s: %v", remoteAddr, err)
	}
	if resp != nil {
		if sendErr := c.send(resp); sendErr != nil {
			log.Warn("sending stun response: %v", sendErr)
		}
	}
	return nil
}

func (c *Connection) receiveDTLS(b []byte) error {
	result, err := c.dtlsEngine.ProcessReceivedDatagram(b)
	if err != nil {
		c.fail(errors.Wrap(err, "webrtc: dtls").Error())
		return err
	}

	for _, out := range result.DatagramsToSend {
		if sendErr := c.send(out); sendErr != nil {
			log.Warn("sending dtls datagram: %v", sendErr)
		}
	}

	if result.HandshakeComplete {
		c.onHandshakeComplete()
	}

	for _, appData := range result.ApplicationData {
		if err := c.assoc.HandlePacket(appData); err != nil {
			log.Warn("sctp: %v", err)
		}
	}
	c.syncStateFromAssociation()
	return nil
}

// onHandshakeComplete runs the fingerprint check and SCTP kickoff exactly
// once, the first time the DTLS engine reports completion.
func (c *Connection) onHandshakeComplete() {
	c.mu.Lock()
	if c.handshakeDone {
		c.mu.Unlock()
		return
	}
	c.handshakeDone = true
	c.mu.Unlock()

	fp, ok := c.dtlsEngine.RemoteFingerprint()
	if ok {
		c.mu.Lock()
		c.remoteFingerprint = fp
		c.haveRemote = true
		c.mu.Unlock()
	}

	if c.isClient && c.expectedFingerprint != "" && fp != c.expectedFingerprint {
		c.fail(fmt.Sprintf("remote fingerprint mismatch: got %q want %q", fp, c.expectedFingerprint))
		return
	}
	c.iceAgent.Complete()

	c.mu.Lock()
	if !c.state.isTerminal() {
		c.setState(StateSCTPConnecting)
	}
	c.mu.Unlock()

	if c.isClient {
		c.assoc.Start()
	}
}

func (c *Connection) syncStateFromAssociation() {
	if c.assoc.State() != sctp.StateEstablished {
		return
	}
	c.mu.Lock()
	if c.state == StateSCTPConnecting {
		c.setState(StateConnected)
	}
	c.mu.Unlock()
}

// OpenDataChannel opens a new data channel on this connection, allocating
// the next stream id available to this side's even/odd split.
func (c *Connection) OpenDataChannel(label string, ordered bool) (*dcep.DataChannel, error) {
	if c.State().isTerminal() {
		return nil, ErrClosed
	}
	return c.channels.Open(label, "", ordered)
}

// Send writes payload on an already-open data channel identified by
// streamID.
func (c *Connection) Send(streamID uint16, payload []byte, binary bool) error {
	if c.State().isTerminal() {
		return ErrClosed
	}
	ch, ok := c.channels.Channel(streamID)
	if !ok {
		return ErrChannelNotOpen
	}
	return ch.Send(payload, binary)
}

// PendingRetransmissions drives the SCTP association's RTO-based
// retransmission timer; callers invoke this periodically, since this
// stack keeps no internal timer thread of its own.
func (c *Connection) PendingRetransmissions(now time.Time) error {
	if c.assoc == nil {
		return nil
	}
	err := c.assoc.RetransmitExpired(now)
	if err != nil {
		c.fail(errors.Wrap(err, "webrtc: retransmission").Error())
	}
	return err
}

// Close cancels the connection: it moves to StateClosed, begins the SCTP
// graceful shutdown if established, releases the incoming-channels
// sequence, and clears the data handler. Subsequent Receive/Send calls
// return ErrClosed.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wasEstablished := c.assoc != nil && c.assoc.State() == sctp.StateEstablished
	c.setState(StateClosed)
	c.dataHandler = nil
	c.mu.Unlock()

	if wasEstablished {
		c.assoc.Shutdown()
	}
	c.iceAgent.Close()
	c.incomingChannels.Close()
}
