package sctp

import (
	"github.com/lanikai/rtcdc/internal/packet"
)

const chunkHeaderSize = 4

// ChunkType identifies the SCTP chunk type byte, RFC 4960 §3.2.
type ChunkType uint8

const (
	ctData             ChunkType = 0
	ctInit             ChunkType = 1
	ctInitAck          ChunkType = 2
	ctSack             ChunkType = 3
	ctHeartbeat        ChunkType = 4
	ctHeartbeatAck     ChunkType = 5
	ctAbort            ChunkType = 6
	ctShutdown         ChunkType = 7
	ctShutdownAck      ChunkType = 8
	ctError            ChunkType = 9
	ctCookieEcho       ChunkType = 10
	ctCookieAck        ChunkType = 11
	ctShutdownComplete ChunkType = 14
)

// Chunk is implemented by every concrete chunk type.
type Chunk interface {
	Type() ChunkType
	Flags() uint8
	marshalValue() []byte
	unmarshalValue(flags uint8, value []byte) error
}

// marshalChunk writes a chunk's TLV header plus value, padded to a 4-byte
// boundary. Padding bytes are not included in the chunk's own length field,
// matching RFC 4960 §3.2.
func marshalChunk(c Chunk) []byte {
	value := c.marshalValue()
	length := chunkHeaderSize + len(value)
	padded := paddedLength(length)

	w := packet.NewWriterSize(padded)
	w.WriteByte(byte(c.Type()))
	w.WriteByte(c.Flags())
	w.WriteUint16(uint16(length))
	w.WriteSlice(value)
	w.ZeroPad(padded - length)
	return w.Bytes()
}

func paddedLength(n int) int {
	return (n + 3) &^ 3
}

// newChunk allocates a zero-valued chunk for the given type, or nil if the
// type is unknown.
func newChunk(t ChunkType) Chunk {
	switch t {
	case ctInit:
		return &InitChunk{isAck: false}
	case ctInitAck:
		return &InitChunk{isAck: true}
	case ctData:
		return &DataChunk{}
	case ctSack:
		return &SackChunk{}
	case ctHeartbeat:
		return &HeartbeatChunk{isAck: false}
	case ctHeartbeatAck:
		return &HeartbeatChunk{isAck: true}
	case ctAbort:
		return &AbortChunk{}
	case ctError:
		return &ErrorChunk{}
	case ctCookieEcho:
		return &CookieEchoChunk{}
	case ctCookieAck:
		return &CookieAckChunk{}
	case ctShutdown:
		return &ShutdownChunk{}
	case ctShutdownAck:
		return &ShutdownAckChunk{}
	case ctShutdownComplete:
		return &ShutdownCompleteChunk{}
	default:
		return nil
	}
}

// unmarshalChunk parses one chunk (header + value + padding) starting at
// the front of raw. Returns the chunk and the total number of bytes
// consumed, including padding.
func unmarshalChunk(raw []byte) (Chunk, int, error) {
	if len(raw) < chunkHeaderSize {
		return nil, 0, ErrInsufficientData
	}
	r := packet.NewReader(raw)
	typ := ChunkType(r.ReadByte())
	flags := r.ReadByte()
	length := int(r.ReadUint16())
	if length < chunkHeaderSize {
		return nil, 0, ErrInvalidFormat
	}
	if len(raw) < length {
		return nil, 0, ErrInsufficientData
	}

	c := newChunk(typ)
	if c == nil {
		return nil, 0, ErrInvalidFormat
	}
	if err := c.unmarshalValue(flags, raw[chunkHeaderSize:length]); err != nil {
		return nil, 0, err
	}
	return c, paddedLength(length), nil
}
