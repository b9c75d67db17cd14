package sctp

import "github.com/lanikai/rtcdc/internal/packet"

const shutdownFixedSize = 4

// ShutdownChunk initiates a graceful close, carrying the TSN cumulatively
// acknowledged so far so the peer can discard fully-delivered data.
type ShutdownChunk struct {
	CumulativeTSNAck uint32
}

func (c *ShutdownChunk) Type() ChunkType { return ctShutdown }
func (c *ShutdownChunk) Flags() uint8    { return 0 }

func (c *ShutdownChunk) marshalValue() []byte {
	w := packet.NewWriterSize(shutdownFixedSize)
	w.WriteUint32(c.CumulativeTSNAck)
	return w.Bytes()
}

func (c *ShutdownChunk) unmarshalValue(flags uint8, value []byte) error {
	if len(value) < shutdownFixedSize {
		return ErrInsufficientData
	}
	r := packet.NewReader(value)
	c.CumulativeTSNAck = r.ReadUint32()
	return nil
}

// ShutdownAckChunk confirms receipt of SHUTDOWN; has no value.
type ShutdownAckChunk struct{}

func (c *ShutdownAckChunk) Type() ChunkType                             { return ctShutdownAck }
func (c *ShutdownAckChunk) Flags() uint8                                { return 0 }
func (c *ShutdownAckChunk) marshalValue() []byte                        { return nil }
func (c *ShutdownAckChunk) unmarshalValue(flags uint8, value []byte) error { return nil }

// ShutdownCompleteChunk ends the closing handshake; has no value except the
// T bit, mirroring AbortChunk's NoTCB semantics.
type ShutdownCompleteChunk struct {
	NoTCB bool
}

func (c *ShutdownCompleteChunk) Type() ChunkType { return ctShutdownComplete }

func (c *ShutdownCompleteChunk) Flags() uint8 {
	if c.NoTCB {
		return 1
	}
	return 0
}

func (c *ShutdownCompleteChunk) marshalValue() []byte { return nil }

func (c *ShutdownCompleteChunk) unmarshalValue(flags uint8, value []byte) error {
	c.NoTCB = flags&1 != 0
	return nil
}
