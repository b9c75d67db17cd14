package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieSealOpenRoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	c := stateCookie{
		CreatedAtMillis:    1000,
		PeerTag:            11,
		LocalTag:           22,
		PeerInitialTSN:     33,
		PeerAdvertisedRwnd: 65536,
		OutboundStreams:    4,
		InboundStreams:     4,
	}
	sealed := sealCookie(c, secret)
	assert.Len(t, sealed, cookieSize)

	opened, err := openCookie(sealed, secret)
	require.NoError(t, err)
	assert.Equal(t, c, opened)
}

func TestCookieRejectsWrongSecret(t *testing.T) {
	sealed := sealCookie(stateCookie{PeerTag: 1}, []byte("secret-a"))
	_, err := openCookie(sealed, []byte("secret-b"))
	assert.ErrorIs(t, err, ErrCookieValidationFailed)
}

func TestCookieRejectsTamperedBody(t *testing.T) {
	secret := []byte("secret")
	sealed := sealCookie(stateCookie{PeerTag: 1}, secret)
	sealed[0] ^= 0xFF
	_, err := openCookie(sealed, secret)
	assert.ErrorIs(t, err, ErrCookieValidationFailed)
}

func TestCookieExpiry(t *testing.T) {
	assert.False(t, cookieExpired(1000, 1000+cookieLifetimeMillis))
	assert.True(t, cookieExpired(1000, 1000+cookieLifetimeMillis+1))
}

func TestCookieExpiryRejectsFutureCreationTimestamp(t *testing.T) {
	// A cookie whose CreatedAtMillis is after nowMillis has a negative age
	// and is just as invalid as a stale one.
	assert.True(t, cookieExpired(1000, 999))
}
