// Package rng centralizes every random draw the stack makes: STUN
// transaction IDs, SCTP verification tags and initial TSNs, ICE
// credentials, and per-association cookie secrets. Everything is backed
// by crypto/rand.
package rng

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// alphabet is the 62-symbol alphanumeric set used for ICE ufrag/password
// generation: digits, uppercase, lowercase.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// rejectThreshold is the largest byte value that can be reduced modulo 62
// without bias: 256 - (256 % 62) = 248.
const rejectThreshold = 248

// String draws n characters from the 62-symbol alphabet using rejection
// sampling: any byte >= rejectThreshold is discarded rather than reduced
// modulo len(alphabet), which would otherwise bias the low-valued symbols.
func String(n int) string {
	out := make([]byte, n)
	buf := make([]byte, 1)
	for i := 0; i < n; {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			panic(err)
		}
		if buf[0] >= rejectThreshold {
			continue
		}
		out[i] = alphabet[int(buf[0])%len(alphabet)]
		i++
	}
	return string(out)
}

// Bytes draws n cryptographically random bytes.
func Bytes(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return b
}

// Uint32 draws a uniformly random 32-bit value, used for SCTP verification
// tags and initial TSNs.
func Uint32() uint32 {
	b := Bytes(4)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// TransactionID draws a 12-byte STUN transaction ID.
func TransactionID() [12]byte {
	var id [12]byte
	copy(id[:], Bytes(12))
	return id
}

// CookieSecret derives a 32-byte HMAC-SHA256 key for one association's
// State-Cookie from fresh entropy, via HKDF rather than using the raw
// random bytes directly.
func CookieSecret() []byte {
	seed := Bytes(32)
	salt := Bytes(16)
	r := hkdf.New(sha256.New, seed, salt, []byte("sctp-state-cookie"))
	secret := make([]byte, 32)
	if _, err := io.ReadFull(r, secret); err != nil {
		panic(err)
	}
	return secret
}
