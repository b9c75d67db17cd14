package sctp

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/lanikai/rtcdc/internal/packet"
)

const (
	cookieBodySize = 28
	cookieMACSize  = 32
	cookieSize     = cookieBodySize + cookieMACSize

	// cookieLifetimeMillis bounds how long a State-Cookie may sit in flight
	// before COOKIE ECHO must be rejected with a stale-cookie cause,
	// RFC 4960 §5.1.3/§5.1.5.
	cookieLifetimeMillis = 60000
)

// stateCookie is the opaque, HMAC-protected value an INIT-ACK hands back to
// the INIT sender; sending it back unmodified in COOKIE ECHO lets this side
// stay state-less between INIT-ACK and COOKIE ECHO.
type stateCookie struct {
	CreatedAtMillis   int64
	PeerTag           uint32
	LocalTag          uint32
	PeerInitialTSN    uint32
	PeerAdvertisedRwnd uint32
	OutboundStreams   uint16
	InboundStreams    uint16
}

// sealCookie encodes the cookie body and appends an HMAC-SHA256 tag keyed
// by secret, so this side can later verify the cookie hasn't been tampered
// with or forged without keeping any per-association server-side state.
func sealCookie(c stateCookie, secret []byte) []byte {
	body := marshalCookieBody(c)
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return append(body, mac.Sum(nil)...)
}

// openCookie verifies raw's HMAC tag and, if valid, decodes the body.
func openCookie(raw []byte, secret []byte) (stateCookie, error) {
	if len(raw) != cookieSize {
		return stateCookie{}, ErrCookieValidationFailed
	}
	body, tag := raw[:cookieBodySize], raw[cookieBodySize:]

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), tag) {
		return stateCookie{}, ErrCookieValidationFailed
	}
	return unmarshalCookieBody(body), nil
}

func marshalCookieBody(c stateCookie) []byte {
	w := packet.NewWriterSize(cookieBodySize)
	w.WriteUint64(uint64(c.CreatedAtMillis))
	w.WriteUint32(c.PeerTag)
	w.WriteUint32(c.LocalTag)
	w.WriteUint32(c.PeerInitialTSN)
	w.WriteUint32(c.PeerAdvertisedRwnd)
	w.WriteUint16(c.OutboundStreams)
	w.WriteUint16(c.InboundStreams)
	return w.Bytes()
}

func unmarshalCookieBody(body []byte) stateCookie {
	r := packet.NewReader(body)
	return stateCookie{
		CreatedAtMillis:    int64(r.ReadUint64()),
		PeerTag:            r.ReadUint32(),
		LocalTag:           r.ReadUint32(),
		PeerInitialTSN:     r.ReadUint32(),
		PeerAdvertisedRwnd: r.ReadUint32(),
		OutboundStreams:    r.ReadUint16(),
		InboundStreams:     r.ReadUint16(),
	}
}

// cookieExpired reports whether a cookie sealed at createdAtMillis has
// outlived cookieLifetimeMillis as of nowMillis, or claims to have been
// created in the future, which is just as invalid a cookie age.
func cookieExpired(createdAtMillis, nowMillis int64) bool {
	age := nowMillis - createdAtMillis
	return age < 0 || age > cookieLifetimeMillis
}
