package sctp

import "github.com/lanikai/rtcdc/internal/packet"

const paramHeaderSize = 4

// Parameter type values used by INIT/INIT-ACK optional parameters, RFC 4960
// §3.3.2/§3.3.3. Only the ones this stack actually produces or consumes are
// named; unrecognized parameter types are skipped on decode.
const (
	paramStateCookie ChunkType = 7
)

type parameter struct {
	typ   uint16
	value []byte
}

func marshalParameters(w *packet.Writer, params []parameter) {
	for _, p := range params {
		length := paramHeaderSize + len(p.value)
		padded := paddedLength(length)
		w.WriteUint16(p.typ)
		w.WriteUint16(uint16(length))
		w.WriteSlice(p.value)
		w.ZeroPad(padded - length)
	}
}

func parametersLength(params []parameter) int {
	n := 0
	for _, p := range params {
		n += paddedLength(paramHeaderSize + len(p.value))
	}
	return n
}

// unmarshalParameters reads TLV parameters until raw is exhausted.
func unmarshalParameters(raw []byte) ([]parameter, error) {
	var params []parameter
	offset := 0
	for offset < len(raw) {
		if len(raw)-offset < paramHeaderSize {
			return nil, ErrInsufficientData
		}
		r := packet.NewReader(raw[offset:])
		typ := r.ReadUint16()
		length := int(r.ReadUint16())
		if length < paramHeaderSize || offset+length > len(raw) {
			return nil, ErrInvalidFormat
		}
		value := raw[offset+paramHeaderSize : offset+length]
		params = append(params, parameter{typ: typ, value: value})
		offset += paddedLength(length)
	}
	return params, nil
}

func findParameter(params []parameter, typ uint16) ([]byte, bool) {
	for _, p := range params {
		if p.typ == typ {
			return p.value, true
		}
	}
	return nil, false
}
