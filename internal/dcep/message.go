// Package dcep implements the Data Channel Establishment Protocol (RFC
// 8832): the DATA_CHANNEL_OPEN / DATA_CHANNEL_ACK control messages carried
// as SCTP DATA chunks on PPID 50, and the per-channel lifecycle those
// messages drive.
package dcep

import (
	"github.com/pkg/errors"

	"github.com/lanikai/rtcdc/internal/packet"
)

// PPID values for DCEP control messages and the four user-data payload
// encodings, RFC 8831 §8.
const (
	PPIDControl      uint32 = 50
	PPIDString       uint32 = 51
	PPIDBinary       uint32 = 53
	PPIDStringEmpty  uint32 = 56
	PPIDBinaryEmpty  uint32 = 57
)

// messageType is the first byte of every DCEP message.
type messageType uint8

const (
	typeAck  messageType = 0x02
	typeOpen messageType = 0x03
)

// ChannelType is the DATA_CHANNEL_OPEN channelType field, RFC 8832 §5.1.
type ChannelType uint8

const (
	ChannelReliable                ChannelType = 0x00
	ChannelReliableUnordered       ChannelType = 0x80
	ChannelPartialReliableRexmit   ChannelType = 0x01
	ChannelPartialReliableRexmitUnordered ChannelType = 0x81
	ChannelPartialReliableTimed    ChannelType = 0x02
	ChannelPartialReliableTimedUnordered  ChannelType = 0x82
)

// Ordered reports whether this channel type carries messages in order; the
// high bit of every channelType value marks "unordered" per RFC 8832 §5.1.
func (t ChannelType) Ordered() bool {
	return t&0x80 == 0
}

const openFixedSize = 12

// OpenMessage is the DATA_CHANNEL_OPEN message, sent by the channel
// initiator on the stream it has chosen.
type OpenMessage struct {
	ChannelType          ChannelType
	Priority             uint16
	ReliabilityParameter uint32
	Label                string
	Protocol             string
}

// Marshal encodes m per RFC 8832 §5.1.
func (m *OpenMessage) Marshal() []byte {
	size := openFixedSize + len(m.Label) + len(m.Protocol)
	w := packet.NewWriterSize(size)
	w.WriteByte(byte(typeOpen))
	w.WriteByte(byte(m.ChannelType))
	w.WriteUint16(m.Priority)
	w.WriteUint32(m.ReliabilityParameter)
	w.WriteUint16(uint16(len(m.Label)))
	w.WriteUint16(uint16(len(m.Protocol)))
	w.WriteString(m.Label)
	w.WriteString(m.Protocol)
	return w.Bytes()
}

// UnmarshalOpenMessage decodes a whole DATA_CHANNEL_OPEN message, including
// its leading type byte, which it skips.
func UnmarshalOpenMessage(raw []byte) (*OpenMessage, error) {
	if len(raw) < openFixedSize {
		return nil, errors.Wrap(ErrInsufficientData, "dcep: decoding open message")
	}
	r := packet.NewReader(raw)
	r.Skip(1) // type byte
	channelType := ChannelType(r.ReadByte())
	priority := r.ReadUint16()
	reliability := r.ReadUint32()
	labelLen := int(r.ReadUint16())
	protoLen := int(r.ReadUint16())

	if err := r.CheckRemaining(labelLen + protoLen); err != nil {
		return nil, errors.Wrap(ErrInsufficientData, "dcep: decoding open message label/protocol")
	}
	label := string(r.ReadSlice(labelLen))
	protocol := string(r.ReadSlice(protoLen))

	return &OpenMessage{
		ChannelType:          channelType,
		Priority:             priority,
		ReliabilityParameter: reliability,
		Label:                label,
		Protocol:             protocol,
	}, nil
}

// AckMessage is the single-byte DATA_CHANNEL_ACK response to an Open.
type AckMessage struct{}

func (AckMessage) Marshal() []byte {
	return []byte{byte(typeAck)}
}

// Decode inspects the first byte of a PPIDControl DATA chunk payload and
// returns the concrete message it carries.
func Decode(raw []byte) (interface{}, error) {
	if len(raw) < 1 {
		return nil, errors.Wrap(ErrInsufficientData, "dcep: decoding control message")
	}
	switch messageType(raw[0]) {
	case typeOpen:
		return UnmarshalOpenMessage(raw)
	case typeAck:
		return AckMessage{}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidFormat, "dcep: unknown message type %#02x", raw[0])
	}
}
