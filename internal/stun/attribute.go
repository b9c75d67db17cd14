package stun

import "github.com/lanikai/rtcdc/internal/packet"

const attributeHeaderSize = 4

// AttrType is the 16-bit STUN attribute type.
type AttrType uint16

// RFC 5389 §18.2 and RFC 8445 §16.1 (ICE attributes).
const (
	AttrMappedAddress    AttrType = 0x0001
	AttrUsername         AttrType = 0x0006
	AttrMessageIntegrity AttrType = 0x0008
	AttrErrorCode        AttrType = 0x0009
	AttrUnknownAttrs     AttrType = 0x000A
	AttrXorMappedAddress AttrType = 0x0020
	AttrPriority         AttrType = 0x0024
	AttrUseCandidate     AttrType = 0x0025
	AttrSoftware         AttrType = 0x8022
	AttrFingerprint      AttrType = 0x8028
	AttrIceControlled    AttrType = 0x8029
	AttrIceControlling   AttrType = 0x802A
)

// paddedLength rounds n up to the next multiple of 4.
func paddedLength(n int) int {
	return (n + 3) &^ 3
}

func writeAttribute(w *packet.Writer, a RawAttribute) {
	w.WriteUint16(uint16(a.Type))
	w.WriteUint16(uint16(len(a.Value)))
	w.WriteSlice(a.Value)
	w.ZeroPad(paddedLength(len(a.Value)) - len(a.Value))
}

// readAttribute reads one TLV attribute, returning the number of bytes
// consumed including the 4-byte header and trailing padding.
func readAttribute(r *packet.Reader) (RawAttribute, int, error) {
	if r.Remaining() < attributeHeaderSize {
		return RawAttribute{}, 0, &InsufficientDataError{Expected: attributeHeaderSize, Actual: r.Remaining()}
	}
	typ := AttrType(r.ReadUint16())
	length := int(r.ReadUint16())
	padded := paddedLength(length)
	if r.Remaining() < padded {
		return RawAttribute{}, 0, &InsufficientDataError{Expected: padded, Actual: r.Remaining()}
	}
	value := make([]byte, length)
	copy(value, r.ReadSlice(length))
	r.Skip(padded - length)
	return RawAttribute{Type: typ, Value: value}, attributeHeaderSize + padded, nil
}

// offsetOfAttribute returns the byte offset (from the start of the
// encoded message, including the 20-byte header) at which the attribute
// at the given index begins. Used by MESSAGE-INTEGRITY and FINGERPRINT to
// locate "everything before this attribute" in the wire encoding.
func (m *Message) offsetOfAttribute(index int) int {
	offset := headerSize
	for _, a := range m.Attributes[:index] {
		offset += attributeHeaderSize + paddedLength(len(a.Value))
	}
	return offset
}
