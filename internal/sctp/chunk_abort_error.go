package sctp

import "github.com/lanikai/rtcdc/internal/packet"

const causeHeaderSize = 4

// Error cause codes, RFC 4960 §3.3.10. Only a subset is named; of these the
// association itself originates only causeStaleCookie, in the ABORT it sends
// when a COOKIE ECHO fails validation or has expired.
const (
	causeInvalidStreamID        uint16 = 1
	causeStaleCookie            uint16 = 3
	causeOutOfResource          uint16 = 4
	causeUnresolvableAddress    uint16 = 5
	causeProtocolViolation      uint16 = 13
)

// ErrorCause is one TLV cause carried by ABORT or ERROR.
type ErrorCause struct {
	Code uint16
	Info []byte
}

func marshalCauses(causes []ErrorCause) []byte {
	n := 0
	for _, c := range causes {
		n += paddedLength(causeHeaderSize + len(c.Info))
	}
	w := packet.NewWriterSize(n)
	for _, c := range causes {
		length := causeHeaderSize + len(c.Info)
		padded := paddedLength(length)
		w.WriteUint16(c.Code)
		w.WriteUint16(uint16(length))
		w.WriteSlice(c.Info)
		w.ZeroPad(padded - length)
	}
	return w.Bytes()
}

func unmarshalCauses(raw []byte) ([]ErrorCause, error) {
	var causes []ErrorCause
	offset := 0
	for offset < len(raw) {
		if len(raw)-offset < causeHeaderSize {
			return nil, ErrInsufficientData
		}
		r := packet.NewReader(raw[offset:])
		code := r.ReadUint16()
		length := int(r.ReadUint16())
		if length < causeHeaderSize || offset+length > len(raw) {
			return nil, ErrInvalidFormat
		}
		causes = append(causes, ErrorCause{Code: code, Info: raw[offset+causeHeaderSize : offset+length]})
		offset += paddedLength(length)
	}
	return causes, nil
}

// AbortChunk (T bit in Flags signals "no association was actually created")
// tears down an association unilaterally, carrying the causes for why.
type AbortChunk struct {
	NoTCB  bool
	Causes []ErrorCause
}

func (c *AbortChunk) Type() ChunkType { return ctAbort }

func (c *AbortChunk) Flags() uint8 {
	if c.NoTCB {
		return 1
	}
	return 0
}

func (c *AbortChunk) marshalValue() []byte { return marshalCauses(c.Causes) }

func (c *AbortChunk) unmarshalValue(flags uint8, value []byte) error {
	c.NoTCB = flags&1 != 0
	causes, err := unmarshalCauses(value)
	if err != nil {
		return err
	}
	c.Causes = causes
	return nil
}

// ErrorChunk reports one or more error conditions without closing the
// association, RFC 4960 §3.3.10.
type ErrorChunk struct {
	Causes []ErrorCause
}

func (c *ErrorChunk) Type() ChunkType { return ctError }
func (c *ErrorChunk) Flags() uint8    { return 0 }

func (c *ErrorChunk) marshalValue() []byte { return marshalCauses(c.Causes) }

func (c *ErrorChunk) unmarshalValue(flags uint8, value []byte) error {
	causes, err := unmarshalCauses(value)
	if err != nil {
		return err
	}
	c.Causes = causes
	return nil
}
