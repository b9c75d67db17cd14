package sctp

import "github.com/lanikai/rtcdc/internal/packet"

// paramHeartbeatInfo is the single mandatory parameter carried by HEARTBEAT
// and echoed verbatim in HEARTBEAT-ACK, RFC 4960 §3.3.5/§3.3.6.
const paramHeartbeatInfo uint16 = 1

// HeartbeatChunk carries both HEARTBEAT and HEARTBEAT-ACK; Info is opaque to
// this layer and must be echoed back unchanged by the peer.
type HeartbeatChunk struct {
	isAck bool
	Info  []byte
}

func (c *HeartbeatChunk) Type() ChunkType {
	if c.isAck {
		return ctHeartbeatAck
	}
	return ctHeartbeat
}

func (c *HeartbeatChunk) Flags() uint8 { return 0 }

func (c *HeartbeatChunk) marshalValue() []byte {
	params := []parameter{{typ: paramHeartbeatInfo, value: c.Info}}
	w := packet.NewWriterSize(parametersLength(params))
	marshalParameters(w, params)
	return w.Bytes()
}

func (c *HeartbeatChunk) unmarshalValue(flags uint8, value []byte) error {
	params, err := unmarshalParameters(value)
	if err != nil {
		return err
	}
	info, ok := findParameter(params, paramHeartbeatInfo)
	if !ok {
		return ErrInvalidFormat
	}
	c.Info = info
	return nil
}
