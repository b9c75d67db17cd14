package sctp

// CookieEchoChunk carries the opaque State-Cookie echoed back from an
// INIT-ACK, completing the third leg of the four-way handshake.
type CookieEchoChunk struct {
	Cookie []byte
}

func (c *CookieEchoChunk) Type() ChunkType { return ctCookieEcho }
func (c *CookieEchoChunk) Flags() uint8    { return 0 }
func (c *CookieEchoChunk) marshalValue() []byte { return c.Cookie }

func (c *CookieEchoChunk) unmarshalValue(flags uint8, value []byte) error {
	c.Cookie = value
	return nil
}

// CookieAckChunk has no value; receiving one moves the originator straight
// to the established state.
type CookieAckChunk struct{}

func (c *CookieAckChunk) Type() ChunkType       { return ctCookieAck }
func (c *CookieAckChunk) Flags() uint8          { return 0 }
func (c *CookieAckChunk) marshalValue() []byte  { return nil }
func (c *CookieAckChunk) unmarshalValue(flags uint8, value []byte) error { return nil }
