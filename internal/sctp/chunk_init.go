package sctp

import "github.com/lanikai/rtcdc/internal/packet"

const initFixedSize = 16

// InitChunk carries both INIT and INIT-ACK, distinguished by isAck — the two
// chunk types share an identical fixed part and parameter encoding, per
// RFC 4960 §3.3.2/§3.3.3.
type InitChunk struct {
	isAck bool

	InitiateTag      uint32
	AdvertisedRwnd   uint32
	OutboundStreams  uint16
	InboundStreams   uint16
	InitialTSN       uint32

	// StateCookie is only set (and only marshaled) on INIT-ACK.
	StateCookie []byte

	unrecognizedParams []parameter
}

func (c *InitChunk) Type() ChunkType {
	if c.isAck {
		return ctInitAck
	}
	return ctInit
}

func (c *InitChunk) Flags() uint8 { return 0 }

func (c *InitChunk) marshalValue() []byte {
	var params []parameter
	if c.isAck {
		params = append(params, parameter{typ: uint16(paramStateCookie), value: c.StateCookie})
	}

	w := packet.NewWriterSize(initFixedSize + parametersLength(params))
	w.WriteUint32(c.InitiateTag)
	w.WriteUint32(c.AdvertisedRwnd)
	w.WriteUint16(c.OutboundStreams)
	w.WriteUint16(c.InboundStreams)
	w.WriteUint32(c.InitialTSN)
	marshalParameters(w, params)
	return w.Bytes()
}

func (c *InitChunk) unmarshalValue(flags uint8, value []byte) error {
	if len(value) < initFixedSize {
		return ErrInsufficientData
	}
	r := packet.NewReader(value)
	c.InitiateTag = r.ReadUint32()
	c.AdvertisedRwnd = r.ReadUint32()
	c.OutboundStreams = r.ReadUint16()
	c.InboundStreams = r.ReadUint16()
	c.InitialTSN = r.ReadUint32()

	params, err := unmarshalParameters(value[initFixedSize:])
	if err != nil {
		return err
	}
	if c.isAck {
		cookie, ok := findParameter(params, uint16(paramStateCookie))
		if !ok || len(cookie) == 0 {
			return ErrInvalidFormat
		}
		c.StateCookie = cookie
	}
	for _, p := range params {
		if p.typ != uint16(paramStateCookie) {
			c.unrecognizedParams = append(c.unrecognizedParams, p)
		}
	}
	return nil
}
