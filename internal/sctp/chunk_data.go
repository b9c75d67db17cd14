package sctp

import "github.com/lanikai/rtcdc/internal/packet"

const dataFixedSize = 12

// DATA chunk flag bits, RFC 4960 §3.3.1.
const (
	flagUnordered uint8 = 1 << 2
	flagBegin     uint8 = 1 << 1
	flagEnd       uint8 = 1 << 0
)

// DataChunk carries one fragment (or an entire unfragmented message) of user
// data.
type DataChunk struct {
	Unordered bool
	Begin     bool
	End       bool

	TSN             uint32
	StreamID        uint16
	StreamSeq       uint16
	PayloadProtocol uint32
	UserData        []byte
}

func (c *DataChunk) Type() ChunkType { return ctData }

func (c *DataChunk) Flags() uint8 {
	var f uint8
	if c.Unordered {
		f |= flagUnordered
	}
	if c.Begin {
		f |= flagBegin
	}
	if c.End {
		f |= flagEnd
	}
	return f
}

func (c *DataChunk) marshalValue() []byte {
	w := packet.NewWriterSize(dataFixedSize + len(c.UserData))
	w.WriteUint32(c.TSN)
	w.WriteUint16(c.StreamID)
	w.WriteUint16(c.StreamSeq)
	w.WriteUint32(c.PayloadProtocol)
	w.WriteSlice(c.UserData)
	return w.Bytes()
}

func (c *DataChunk) unmarshalValue(flags uint8, value []byte) error {
	if len(value) < dataFixedSize {
		return ErrInsufficientData
	}
	c.Unordered = flags&flagUnordered != 0
	c.Begin = flags&flagBegin != 0
	c.End = flags&flagEnd != 0

	r := packet.NewReader(value)
	c.TSN = r.ReadUint32()
	c.StreamID = r.ReadUint16()
	c.StreamSeq = r.ReadUint16()
	c.PayloadProtocol = r.ReadUint32()
	c.UserData = r.ReadRemaining()
	return nil
}
