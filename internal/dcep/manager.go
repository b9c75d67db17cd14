package dcep

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/rtcdc/internal/logging"
)

var log = logging.DefaultLogger.WithTag("dcep")

// Manager allocates channel ids and drives the DATA_CHANNEL_OPEN /
// DATA_CHANNEL_ACK handshake for every channel on one association. Id
// parity follows the initiator/responder split: Open on the initiator (the
// client) allocates even ids starting at 0, Open on the responder (the
// server) allocates odd ids starting at 1.
type Manager struct {
	mu sync.Mutex

	sender    Sender
	initiator bool
	nextID    uint16

	channels map[uint16]*DataChannel

	// onOpen is invoked, without the manager's lock held, whenever the peer
	// opens a new channel via an inbound DATA_CHANNEL_OPEN; channels opened
	// locally via Open are not reported. It is the hook the connection orchestrator uses to
	// publish newly opened channels on its incoming-channels sequence.
	onOpen func(*DataChannel)
}

// NewManager constructs a Manager. initiator must match the association's
// client/server role: the client is the DCEP initiator.
func NewManager(sender Sender, initiator bool, onOpen func(*DataChannel)) *Manager {
	m := &Manager{
		sender:    sender,
		initiator: initiator,
		channels:  make(map[uint16]*DataChannel),
		onOpen:    onOpen,
	}
	if initiator {
		m.nextID = 0
	} else {
		m.nextID = 1
	}
	return m
}

// Open begins opening a new channel: allocates the next id for this side,
// sends DATA_CHANNEL_OPEN, and returns the channel in StateConnecting. The
// channel transitions to StateOpen once the peer's ACK is handled.
func (m *Manager) Open(label, protocol string, ordered bool) (*DataChannel, error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID += 2

	ct := ChannelReliable
	if !ordered {
		ct = ChannelReliableUnordered
	}

	c := &DataChannel{id: id, label: label, protocol: protocol, ordered: ordered, state: StateConnecting, sender: m.sender}
	m.channels[id] = c
	m.mu.Unlock()

	open := &OpenMessage{ChannelType: ct, Label: label, Protocol: protocol}
	if err := m.sender.SendMessage(id, PPIDControl, true, open.Marshal()); err != nil {
		return nil, errors.Wrap(err, "dcep: sending open message")
	}
	return c, nil
}

// HandleControlMessage processes one inbound DCEP control message received
// on streamID. A DATA_CHANNEL_OPEN creates the channel, answers it with
// DATA_CHANNEL_ACK, and reports it through onOpen; a DATA_CHANNEL_ACK moves
// the matching local channel to StateOpen.
func (m *Manager) HandleControlMessage(streamID uint16, raw []byte) error {
	msg, err := Decode(raw)
	if err != nil {
		return errors.Wrap(err, "dcep: decoding control message")
	}

	switch v := msg.(type) {
	case *OpenMessage:
		return m.handleOpen(streamID, v)
	case AckMessage:
		return m.handleAck(streamID)
	default:
		return nil
	}
}

func (m *Manager) handleOpen(streamID uint16, open *OpenMessage) error {
	m.mu.Lock()
	if _, exists := m.channels[streamID]; exists {
		m.mu.Unlock()
		return nil // retransmitted or duplicate OPEN, already handled
	}
	c := &DataChannel{
		id:       streamID,
		label:    open.Label,
		protocol: open.Protocol,
		ordered:  open.ChannelType.Ordered(),
		state:    StateOpen,
		sender:   m.sender,
	}
	m.channels[streamID] = c
	m.mu.Unlock()

	if err := m.sender.SendMessage(streamID, PPIDControl, true, AckMessage{}.Marshal()); err != nil {
		return errors.Wrap(err, "dcep: sending ack message")
	}
	if m.onOpen != nil {
		m.onOpen(c)
	}
	return nil
}

func (m *Manager) handleAck(streamID uint16) error {
	m.mu.Lock()
	c, ok := m.channels[streamID]
	m.mu.Unlock()
	if !ok {
		log.Warn("ack for unknown channel %d", streamID)
		return nil
	}

	c.mu.Lock()
	if c.state == StateConnecting {
		c.setState(StateOpen)
	}
	c.mu.Unlock()
	return nil
}

// Channel looks up a previously opened channel by stream id.
func (m *Manager) Channel(id uint16) (*DataChannel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	return c, ok
}
