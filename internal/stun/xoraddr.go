package stun

import "net"

const (
	familyIPv4 = 0x01
	familyIPv6 = 0x02
)

// magicCookieBytes is magicCookie in network byte order, used to XOR the
// address family's first four bytes.
var magicCookieBytes = [4]byte{0x21, 0x12, 0xA4, 0x42}

// AddXorMappedAddress appends an XOR-MAPPED-ADDRESS attribute for addr,
// XORed per RFC 5389 §15.2: the port against the cookie's high 16 bits,
// an IPv4 address against the cookie, an IPv6 address against
// cookie||transactionID.
func (m *Message) AddXorMappedAddress(ip net.IP, port int) {
	var value []byte
	if v4 := ip.To4(); v4 != nil {
		value = make([]byte, 8)
		value[1] = familyIPv4
		copy(value[4:8], v4)
		xor(value[4:8], magicCookieBytes[:])
	} else {
		value = make([]byte, 20)
		value[1] = familyIPv6
		copy(value[4:20], ip.To16())
		xor(value[4:8], magicCookieBytes[:])
		xor(value[8:20], m.TransactionID[:])
	}
	value[2] = byte(port >> 8)
	value[3] = byte(port)
	xor(value[2:4], magicCookieBytes[0:2])

	m.Add(AttrXorMappedAddress, value)
}

// XorMappedAddress returns the decoded (IP, port) pair from an
// XOR-MAPPED-ADDRESS attribute, if present.
func (m *Message) XorMappedAddress() (net.IP, int, bool) {
	attr, ok := m.Get(AttrXorMappedAddress)
	if !ok || len(attr.Value) < 4 {
		return nil, 0, false
	}

	port := int(attr.Value[2])<<8 | int(attr.Value[3])
	port ^= int(magicCookieBytes[0])<<8 | int(magicCookieBytes[1])

	family := attr.Value[1]
	switch family {
	case familyIPv4:
		if len(attr.Value) < 8 {
			return nil, 0, false
		}
		ip := make(net.IP, 4)
		copy(ip, attr.Value[4:8])
		xor(ip, magicCookieBytes[:])
		return ip, port, true
	case familyIPv6:
		if len(attr.Value) < 20 {
			return nil, 0, false
		}
		ip := make(net.IP, 16)
		copy(ip, attr.Value[4:20])
		xor(ip[0:4], magicCookieBytes[:])
		xor(ip[4:16], m.TransactionID[:])
		return ip, port, true
	default:
		return nil, 0, false
	}
}

func xor(dst, key []byte) {
	for i := range dst {
		dst[i] ^= key[i]
	}
}
