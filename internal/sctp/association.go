// Package sctp implements an SCTP association running over a single DTLS
// connection, as required for WebRTC data channels: INIT-based four-way
// handshake, DATA/SACK exchange with retransmission and congestion control,
// and a graceful SHUTDOWN sequence. It does not implement multihoming,
// unordered stream prioritization beyond the DCEP "ordered" bit, or partial
// reliability's actual expiry timers.
package sctp

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/rtcdc/internal/logging"
	"github.com/lanikai/rtcdc/internal/rng"
)

var log = logging.DefaultLogger.WithTag("sctp")

// State is the association's position in the handshake/shutdown state
// machine.
type State int

const (
	StateClosed State = iota
	StateCookieWait
	StateCookieEchoed
	StateEstablished
	StateShutdownPending
	StateShutdownSent
	StateShutdownReceived
	StateShutdownAckSent
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateCookieWait:
		return "cookie-wait"
	case StateCookieEchoed:
		return "cookie-echoed"
	case StateEstablished:
		return "established"
	case StateShutdownPending:
		return "shutdown-pending"
	case StateShutdownSent:
		return "shutdown-sent"
	case StateShutdownReceived:
		return "shutdown-received"
	case StateShutdownAckSent:
		return "shutdown-ack-sent"
	default:
		return "unknown"
	}
}

// defaultMTU bounds a single DATA chunk's payload; WebRTC's SCTP-over-DTLS
// path never does PMTU discovery, so a conservative default is used
// throughout, matching common browser implementations.
const defaultMTU = 1200

// numStreams is how many inbound/outbound streams this association offers;
// DCEP allocates channel ids from this space, one stream per data channel.
const numStreams = 65535

// Conn is the transport an Association reads/writes whole SCTP packets
// over — satisfied by the DTLS record layer via internal/dtls.Engine.
type Conn interface {
	WriteSCTPPacket(b []byte) error
}

// Association is one SCTP association atop a single DTLS connection.
type Association struct {
	mu sync.Mutex

	conn   Conn
	client bool // true if this side sent the original INIT

	state State

	myTag      uint32
	peerTag    uint32
	myInitialTSN uint32
	peerInitialTSN uint32

	nextTSN uint32
	cookieSecret []byte

	outgoing *retransmitQueue
	incoming *tsnTracker
	reassemblers map[uint16]*fragmentAssembler
	delivery     map[uint16]*orderedDelivery // per-stream in-order delivery buffer

	myStreamSeq map[uint16]uint16 // next outbound stream sequence per stream id

	// pendingOut collects packets produced while mu is held. Every exported
	// entry point flushes this to conn after releasing the lock, so a
	// synchronous or loopback Conn that calls back into HandlePacket on the
	// same goroutine never re-enters mu.
	pendingOut [][]byte

	// pendingMsgs/pendingClose mirror pendingOut: callbacks are recorded
	// while mu is held and fired only after it is released, so a callback
	// that calls back into this Association (e.g. a DCEP manager sending
	// an ACK in response to the very message being delivered) never
	// deadlocks on mu.
	pendingMsgs    []pendingMessage
	pendingClose   bool
	pendingCloseErr error
	closeFired     bool

	onMessage func(streamID uint16, ppid uint32, data []byte)
	onClosed  func(err error)
}

type pendingMessage struct {
	streamID uint16
	ppid     uint32
	data     []byte
}

// Config configures the behavior of a new Association.
type Config struct {
	// OnMessage is invoked, after the association's internal lock has been
	// released, whenever a complete message has been reassembled on any
	// stream. It may safely call back into the same Association (e.g. to
	// send a DCEP ACK or a reply on a data channel).
	OnMessage func(streamID uint16, ppid uint32, data []byte)
	// OnClosed is invoked, after the lock has been released, once the
	// association reaches StateClosed, whether via a clean shutdown or a
	// fatal error (nil err on the former).
	OnClosed func(err error)
}

// Client constructs an Association as the side that will send the initial
// INIT once Start is called.
func Client(conn Conn, cfg Config) *Association {
	return newAssociation(conn, true, cfg)
}

// Server constructs an Association as the side that waits for an INIT.
// Start is a no-op for the server role; it exists so callers can treat both
// roles uniformly.
func Server(conn Conn, cfg Config) *Association {
	return newAssociation(conn, false, cfg)
}

// Start sends the initial INIT for a client-role association. Callers must
// finish wiring the transport (Conn) before calling Start, since the
// handshake may complete synchronously with the call.
func (a *Association) Start() {
	a.mu.Lock()
	if a.client {
		a.sendInit()
	}
	out := a.flushLocked()
	a.mu.Unlock()
	a.write(out)
}

func newAssociation(conn Conn, client bool, cfg Config) *Association {
	return &Association{
		conn:         conn,
		client:       client,
		state:        StateCookieWait,
		myTag:        rng.Uint32(),
		myInitialTSN: rng.Uint32(),
		cookieSecret: rng.CookieSecret(),
		incoming:     newTSNTracker(0),
		reassemblers: make(map[uint16]*fragmentAssembler),
		delivery:     make(map[uint16]*orderedDelivery),
		myStreamSeq:  make(map[uint16]uint16),
		onMessage:    cfg.OnMessage,
		onClosed:     cfg.OnClosed,
	}
}

func (a *Association) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Association) setState(s State) {
	if a.state != s {
		log.Debug("state %v -> %v", a.state, s)
		a.state = s
	}
}

func (a *Association) sendInit() {
	init := &InitChunk{
		InitiateTag:     a.myTag,
		AdvertisedRwnd:  131072,
		OutboundStreams: numStreams,
		InboundStreams:  numStreams,
		InitialTSN:      a.myInitialTSN,
	}
	a.sendPacket(a.myTag, init)
}

// sendPacket marshals chunks into one packet and queues it for delivery
// once the caller releases mu; see pendingOut.
func (a *Association) sendPacket(verificationTag uint32, chunks ...Chunk) {
	p := &Packet{VerificationTag: verificationTag, Chunks: chunks}
	a.pendingOut = append(a.pendingOut, p.Marshal())
}

func (a *Association) flushLocked() [][]byte {
	out := a.pendingOut
	a.pendingOut = nil
	return out
}

// flushMessagesLocked drains the messages queued by deliver since the last
// flush. Call while holding mu; invoke the returned messages only after mu
// is released.
func (a *Association) flushMessagesLocked() []pendingMessage {
	msgs := a.pendingMsgs
	a.pendingMsgs = nil
	return msgs
}

// scheduleClose records that onClosed should fire, once, after mu is
// released. Call while holding mu.
func (a *Association) scheduleClose(err error) {
	if a.closeFired || a.pendingClose {
		return
	}
	a.pendingClose = true
	a.pendingCloseErr = err
}

// flushCloseLocked reports whether onClosed is due to fire and with what
// error. Call while holding mu; invoke onClosed only after mu is released.
func (a *Association) flushCloseLocked() (bool, error) {
	if !a.pendingClose {
		return false, nil
	}
	a.pendingClose = false
	a.closeFired = true
	return true, a.pendingCloseErr
}

func (a *Association) deliverMessages(msgs []pendingMessage) {
	if a.onMessage == nil {
		return
	}
	for _, m := range msgs {
		a.onMessage(m.streamID, m.ppid, m.data)
	}
}

func (a *Association) fireClose(fire bool, err error) {
	if fire && a.onClosed != nil {
		a.onClosed(err)
	}
}

func (a *Association) write(packets [][]byte) {
	for _, b := range packets {
		if err := a.conn.WriteSCTPPacket(b); err != nil {
			log.Warn("write failed: %v", err)
		}
	}
}

// HandlePacket processes one inbound SCTP packet. It is safe to call from
// any goroutine; the association serializes internally.
func (a *Association) HandlePacket(raw []byte) error {
	p, err := Unmarshal(raw)
	if p == nil {
		return errors.Wrap(err, "sctp: decoding packet")
	}
	if err != nil {
		log.Debug("dropping undecodable chunk: %v", err)
	}

	a.mu.Lock()
	var chunkErr error
	for _, c := range p.Chunks {
		if err := a.handleChunk(c); err != nil {
			chunkErr = err
			break
		}
	}
	out := a.flushLocked()
	msgs := a.flushMessagesLocked()
	closeNow, closeErr := a.flushCloseLocked()
	a.mu.Unlock()

	a.write(out)
	a.deliverMessages(msgs)
	a.fireClose(closeNow, closeErr)
	return chunkErr
}

func (a *Association) handleChunk(c Chunk) error {
	switch v := c.(type) {
	case *InitChunk:
		return a.handleInit(v)
	case *CookieEchoChunk:
		return a.handleCookieEcho(v)
	case *CookieAckChunk:
		return a.handleCookieAck(v)
	case *DataChunk:
		return a.handleData(v)
	case *SackChunk:
		return a.handleSack(v)
	case *HeartbeatChunk:
		return a.handleHeartbeat(v)
	case *AbortChunk:
		return a.handleAbort(v)
	case *ShutdownChunk:
		return a.handleShutdown(v)
	case *ShutdownAckChunk:
		return a.handleShutdownAck(v)
	case *ShutdownCompleteChunk:
		return a.handleShutdownComplete(v)
	case *ErrorChunk:
		log.Warn("peer reported error: %+v", v.Causes)
		return nil
	default:
		return nil
	}
}

func (a *Association) handleInit(init *InitChunk) error {
	if init.isAck {
		return a.handleInitAck(init)
	}
	if a.state != StateClosed && a.state != StateCookieWait {
		return nil // stale retransmitted INIT, ignore
	}

	a.peerTag = init.InitiateTag
	a.peerInitialTSN = init.InitialTSN
	a.incoming = newTSNTracker(init.InitialTSN)
	a.nextTSN = a.myInitialTSN

	cookie := sealCookie(stateCookie{
		CreatedAtMillis:    nowMillis(),
		PeerTag:            init.InitiateTag,
		LocalTag:           a.myTag,
		PeerInitialTSN:     init.InitialTSN,
		PeerAdvertisedRwnd: init.AdvertisedRwnd,
		OutboundStreams:    init.InboundStreams,
		InboundStreams:     init.OutboundStreams,
	}, a.cookieSecret)

	initAck := &InitChunk{
		isAck:           true,
		InitiateTag:     a.myTag,
		AdvertisedRwnd:  131072,
		OutboundStreams: init.InboundStreams,
		InboundStreams:  init.OutboundStreams,
		InitialTSN:      a.myInitialTSN,
		StateCookie:     cookie,
	}
	a.sendPacket(init.InitiateTag, initAck)
	return nil
}

func (a *Association) handleInitAck(initAck *InitChunk) error {
	if a.state != StateCookieWait {
		return nil
	}
	a.peerTag = initAck.InitiateTag
	a.peerInitialTSN = initAck.InitialTSN
	a.incoming = newTSNTracker(initAck.InitialTSN)
	a.nextTSN = a.myInitialTSN
	a.outgoing = newRetransmitQueue(defaultMTU)

	a.setState(StateCookieEchoed)
	a.sendPacket(a.peerTag, &CookieEchoChunk{Cookie: initAck.StateCookie})
	return nil
}

func (a *Association) handleCookieEcho(echo *CookieEchoChunk) error {
	cookie, err := openCookie(echo.Cookie, a.cookieSecret)
	if err != nil {
		a.sendPacket(a.peerTag, &AbortChunk{Causes: []ErrorCause{{Code: causeStaleCookie}}})
		return errors.Wrap(ErrCookieValidationFailed, "sctp: handling cookie echo")
	}
	if cookieExpired(cookie.CreatedAtMillis, nowMillis()) {
		a.sendPacket(a.peerTag, &AbortChunk{Causes: []ErrorCause{{Code: causeStaleCookie}}})
		return ErrCookieExpired
	}

	a.outgoing = newRetransmitQueue(defaultMTU)
	a.setState(StateEstablished)
	a.sendPacket(a.peerTag, &CookieAckChunk{})
	return nil
}

func (a *Association) handleCookieAck(*CookieAckChunk) error {
	if a.state != StateCookieEchoed {
		return nil
	}
	a.setState(StateEstablished)
	return nil
}

func (a *Association) handleData(d *DataChunk) error {
	switch a.state {
	case StateEstablished, StateShutdownPending, StateShutdownSent:
	default:
		return nil
	}
	if a.incoming.Receive(d.TSN) {
		return nil // duplicate, already counted for the next SACK
	}

	asm, ok := a.reassemblers[d.StreamID]
	if !ok {
		asm = newFragmentAssembler()
		a.reassemblers[d.StreamID] = asm
	}
	msg, err := asm.Add(d)
	if err != nil {
		log.Warn("stream %d: discarding malformed fragment: %v", d.StreamID, err)
		return nil
	}
	if msg != nil {
		if msg.Unordered {
			a.deliver(d.StreamID, msg)
		} else {
			del, ok := a.delivery[d.StreamID]
			if !ok {
				del = newOrderedDelivery()
				a.delivery[d.StreamID] = del
			}
			for _, ready := range del.Accept(msg) {
				a.deliver(d.StreamID, ready)
			}
		}
	}

	a.sendPacket(a.peerTag, a.incoming.SACK(131072))
	return nil
}

func (a *Association) deliver(streamID uint16, msg *ReassembledMessage) {
	a.pendingMsgs = append(a.pendingMsgs, pendingMessage{streamID: streamID, ppid: msg.PayloadProtocol, data: msg.Data})
}

func (a *Association) handleSack(s *SackChunk) error {
	if a.outgoing == nil {
		return nil
	}
	now := time.Now()
	a.outgoing.Ack(s.CumulativeTSNAck, now)
	for _, c := range a.outgoing.Ready(now) {
		a.sendPacket(a.peerTag, c)
	}
	return nil
}

func (a *Association) handleHeartbeat(h *HeartbeatChunk) error {
	if h.isAck {
		return nil
	}
	a.sendPacket(a.peerTag, &HeartbeatChunk{isAck: true, Info: h.Info})
	return nil
}

func (a *Association) handleAbort(ab *AbortChunk) error {
	log.Warn("peer aborted: %+v", ab.Causes)
	a.setState(StateClosed)
	a.scheduleClose(errors.Wrap(ErrAssociationFailed, "sctp: peer sent abort"))
	return nil
}

func (a *Association) handleShutdown(*ShutdownChunk) error {
	switch a.state {
	case StateEstablished:
		a.setState(StateShutdownReceived)
	case StateShutdownSent:
		// Simultaneous shutdown, RFC 4960 §9.2.
	default:
		return nil
	}
	a.sendPacket(a.peerTag, &ShutdownAckChunk{})
	a.setState(StateShutdownAckSent)
	return nil
}

func (a *Association) handleShutdownAck(*ShutdownAckChunk) error {
	if a.state != StateShutdownSent && a.state != StateShutdownAckSent {
		return nil
	}
	a.sendPacket(a.peerTag, &ShutdownCompleteChunk{})
	a.setState(StateClosed)
	a.scheduleClose(nil)
	return nil
}

func (a *Association) handleShutdownComplete(*ShutdownCompleteChunk) error {
	a.setState(StateClosed)
	a.scheduleClose(nil)
	return nil
}

// SendMessage queues data for delivery on streamID, fragmenting into
// defaultMTU-sized DATA chunks if necessary.
func (a *Association) SendMessage(streamID uint16, ppid uint32, ordered bool, data []byte) error {
	a.mu.Lock()

	if a.state != StateEstablished {
		a.mu.Unlock()
		return errors.New("sctp: association not established")
	}

	streamSeq := a.myStreamSeq[streamID]
	if ordered {
		a.myStreamSeq[streamID] = streamSeq + 1
	}

	const maxFragmentSize = defaultMTU - dataFixedSize
	if len(data) == 0 {
		data = []byte{}
	}
	for offset := 0; offset == 0 || offset < len(data); offset += maxFragmentSize {
		end := offset + maxFragmentSize
		if end > len(data) {
			end = len(data)
		}
		c := &DataChunk{
			Unordered:       !ordered,
			Begin:           offset == 0,
			End:             end == len(data),
			TSN:             a.nextTSN,
			StreamID:        streamID,
			StreamSeq:       streamSeq,
			PayloadProtocol: ppid,
			UserData:        data[offset:end],
		}
		a.nextTSN++
		if a.outgoing.Send(c, time.Now()) {
			a.sendPacket(a.peerTag, c)
		}
		if end == len(data) {
			break
		}
	}
	out := a.flushLocked()
	a.mu.Unlock()

	a.write(out)
	return nil
}

// Shutdown begins the graceful close handshake.
func (a *Association) Shutdown() {
	a.mu.Lock()
	if a.state != StateEstablished {
		a.mu.Unlock()
		return
	}
	a.setState(StateShutdownPending)
	a.sendPacket(a.peerTag, &ShutdownChunk{CumulativeTSNAck: a.incoming.CumulativeTSNAck()})
	a.setState(StateShutdownSent)
	out := a.flushLocked()
	a.mu.Unlock()

	a.write(out)
}

// RetransmitExpired resends any DATA chunks whose RTO has fired. Callers
// drive this from a periodic timer; the association never starts its own.
func (a *Association) RetransmitExpired(now time.Time) error {
	a.mu.Lock()
	if a.outgoing == nil {
		a.mu.Unlock()
		return nil
	}
	expired, err := a.outgoing.Expired(now)
	for _, c := range expired {
		a.sendPacket(a.peerTag, c)
	}
	if err != nil {
		a.setState(StateClosed)
		a.scheduleClose(err)
	}
	out := a.flushLocked()
	closeNow, closeErr := a.flushCloseLocked()
	a.mu.Unlock()

	a.write(out)
	a.fireClose(closeNow, closeErr)
	return err
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
