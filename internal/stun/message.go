// Package stun implements a RFC 5389 message codec: header and attribute
// TLV encode/decode, XOR-MAPPED-ADDRESS, MESSAGE-INTEGRITY (HMAC-SHA1),
// and FINGERPRINT (CRC-32). This is the wire layer only; ICE semantics
// (credential validation, role, connectivity state) live in package ice.
package stun

import (
	"encoding/hex"
	"fmt"

	"github.com/lanikai/rtcdc/internal/packet"
)

// RFC 5389 §6.
const (
	headerSize        = 20
	magicCookie       = 0x2112A442
	transactionIDSize = 12
)

// Class is the 2-bit STUN message class.
type Class uint16

const (
	ClassRequest         Class = 0x00
	ClassIndication      Class = 0x01
	ClassSuccessResponse Class = 0x02
	ClassErrorResponse   Class = 0x03
)

// Method is the 12-bit STUN method.
type Method uint16

const (
	MethodBinding Method = 0x001
)

// TransactionID is the 96-bit transaction identifier carried on every message.
type TransactionID [transactionIDSize]byte

func (t TransactionID) String() string {
	return hex.EncodeToString(t[:])
}

// Message is a decoded STUN message: header fields plus an ordered list of
// attributes.
type Message struct {
	Class         Class
	Method        Method
	TransactionID TransactionID
	Attributes    []RawAttribute
}

// RawAttribute is an undecoded type-length-value STUN attribute.
type RawAttribute struct {
	Type  AttrType
	Value []byte
}

// Get returns the first attribute of the given type, if present.
func (m *Message) Get(t AttrType) (RawAttribute, bool) {
	for _, a := range m.Attributes {
		if a.Type == t {
			return a, true
		}
	}
	return RawAttribute{}, false
}

// NewRequest builds a binding request carrying the caller-supplied
// transaction ID.
func NewRequest(txID TransactionID) *Message {
	return &Message{Class: ClassRequest, Method: MethodBinding, TransactionID: txID}
}

// NewIndication builds a binding indication (used for ICE keepalives).
func NewIndication(txID TransactionID) *Message {
	return &Message{Class: ClassIndication, Method: MethodBinding, TransactionID: txID}
}

// NewSuccessResponse builds a binding success response echoing the
// request's transaction ID.
func NewSuccessResponse(txID TransactionID) *Message {
	return &Message{Class: ClassSuccessResponse, Method: MethodBinding, TransactionID: txID}
}

// NewErrorResponse builds a binding error response with an ERROR-CODE
// attribute carrying the given code and reason phrase.
func NewErrorResponse(txID TransactionID, code int, reason string) *Message {
	m := &Message{Class: ClassErrorResponse, Method: MethodBinding, TransactionID: txID}
	m.addErrorCode(code, reason)
	return m
}

func (m *Message) addErrorCode(code int, reason string) {
	value := make([]byte, 4+len(reason))
	value[2] = byte(code / 100)
	value[3] = byte(code % 100)
	copy(value[4:], reason)
	m.Attributes = append(m.Attributes, RawAttribute{Type: AttrErrorCode, Value: value})
}

// Add appends a raw attribute, copying v so the caller can reuse its buffer.
func (m *Message) Add(t AttrType, v []byte) {
	vcopy := make([]byte, len(v))
	copy(vcopy, v)
	m.Attributes = append(m.Attributes, RawAttribute{Type: t, Value: vcopy})
}

// IsMessage reports whether b looks enough like a STUN message to try
// decoding it: at least a header's worth of bytes, with the top two type
// bits clear. Demultiplexing elsewhere (the DTLS-record-range check)
// refines this further.
func IsMessage(b []byte) bool {
	return len(b) >= headerSize && b[0]&0xC0 == 0
}

// encodedLength computes the wire length field: sum of each attribute's
// padded TLV size, not including the 20-byte header.
func (m *Message) encodedLength() int {
	n := 0
	for _, a := range m.Attributes {
		n += attributeHeaderSize + paddedLength(len(a.Value))
	}
	return n
}

// Encode serializes the message to wire bytes.
func (m *Message) Encode() []byte {
	length := m.encodedLength()
	w := packet.NewWriterSize(headerSize + length)
	w.WriteUint16(composeType(m.Class, m.Method))
	w.WriteUint16(uint16(length))
	w.WriteUint32(magicCookie)
	w.WriteSlice(m.TransactionID[:])
	for _, a := range m.Attributes {
		writeAttribute(w, a)
	}
	return w.Bytes()
}

// Decode parses a STUN message from raw bytes. Returns InsufficientDataError,
// InvalidFormatError, or InvalidMagicCookieError on malformed input.
func Decode(data []byte) (*Message, error) {
	if len(data) < headerSize {
		return nil, &InsufficientDataError{Expected: headerSize, Actual: len(data)}
	}

	r := packet.NewReader(data)
	rawType := r.ReadUint16()
	if rawType>>14 != 0 {
		return nil, &InvalidFormatError{Reason: "top two bits of message type must be zero"}
	}
	length := r.ReadUint16()
	if length%4 != 0 {
		return nil, &InvalidFormatError{Reason: "message length must be a multiple of 4"}
	}
	cookie := r.ReadUint32()
	if cookie != magicCookie {
		return nil, &InvalidMagicCookieError{Value: cookie}
	}
	if len(data) < headerSize+int(length) {
		return nil, &InsufficientDataError{Expected: headerSize + int(length), Actual: len(data)}
	}

	class, method := decomposeType(rawType)
	m := &Message{Class: class, Method: method}
	copy(m.TransactionID[:], r.ReadSlice(transactionIDSize))

	remaining := int(length)
	for remaining > 0 {
		if remaining < attributeHeaderSize {
			return nil, &InsufficientDataError{Expected: attributeHeaderSize, Actual: remaining}
		}
		attr, consumed, err := readAttribute(r)
		if err != nil {
			return nil, err
		}
		m.Attributes = append(m.Attributes, attr)
		remaining -= consumed
	}
	return m, nil
}

// RFC 5389 §6, Figure 3: the 14-bit type interleaves method and class bits.
//
//	0                 1
//	2  3  4 5 6 7 8 9 0 1 2 3 4 5
//	+--+--+-+-+-+-+-+-+-+-+-+-+-+-+
//	|M |M |M|M|M|C|M|M|M|C|M|M|M|M|
//	|11|10|9|8|7|1|6|5|4|0|3|2|1|0|
//	+--+--+-+-+-+-+-+-+-+-+-+-+-+-+
const (
	methodABits = 0x000f
	methodBBits = 0x0070
	methodDBits = 0x0f80

	c0Bit = 0x1
	c1Bit = 0x2
)

func composeType(class Class, method Method) uint16 {
	m := uint16(method)
	a := m & methodABits
	b := m & methodBBits
	d := m & methodDBits
	mt := a + (b << 1) + (d << 2)

	c := uint16(class)
	c0 := (c & c0Bit) << 4
	c1 := (c & c1Bit) << 7
	return mt + c0 + c1
}

func decomposeType(t uint16) (Class, Method) {
	c0 := (t >> 4) & c0Bit
	c1 := (t >> 7) & c1Bit
	class := Class(c0 + c1)

	a := t & methodABits
	b := (t >> 1) & methodBBits
	d := (t >> 2) & methodDBits
	method := Method(a + b + d)
	return class, method
}

func (m *Message) String() string {
	return fmt.Sprintf("class=%#x method=%#x tid=%s attrs=%d", m.Class, m.Method, m.TransactionID, len(m.Attributes))
}
