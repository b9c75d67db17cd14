package stun

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	txID := TransactionID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	m := NewRequest(txID)
	m.AddUsername("remote:local")
	m.AddIceControlling(12345)

	raw := m.Encode()
	decoded, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, m.Class, decoded.Class)
	assert.Equal(t, m.Method, decoded.Method)
	assert.Equal(t, m.TransactionID, decoded.TransactionID)
	require.Len(t, decoded.Attributes, 2)
	username, ok := decoded.Username()
	require.True(t, ok)
	assert.Equal(t, "remote:local", username)
}

func TestMessageIntegrityTriState(t *testing.T) {
	txID := TransactionID{}
	password := "password123456789012"

	m := NewRequest(txID)
	m.AddUsername("remote:local")
	m.AddIceControlling(12345)
	m.AddMessageIntegrity(password)
	m.AddFingerprint()

	raw := m.Encode()
	decoded, err := Decode(raw)
	require.NoError(t, err)

	require.Equal(t, IntegrityValid, decoded.VerifyMessageIntegrity(raw, password))
	require.True(t, decoded.VerifyFingerprint(raw))

	// Flipping a byte in the signed region must invalidate the signature.
	tampered := append([]byte(nil), raw...)
	tampered[21] ^= 0xFF
	decodedTampered, err := Decode(tampered)
	require.NoError(t, err)
	assert.Equal(t, IntegrityInvalid, decodedTampered.VerifyMessageIntegrity(tampered, password))

	// Removing the attribute yields "missing".
	noIntegrity := NewRequest(txID)
	noIntegrity.AddUsername("remote:local")
	rawNoIntegrity := noIntegrity.Encode()
	decodedNoIntegrity, err := Decode(rawNoIntegrity)
	require.NoError(t, err)
	assert.Equal(t, IntegrityMissing, decodedNoIntegrity.VerifyMessageIntegrity(rawNoIntegrity, password))
}

func TestXorMappedAddressIPv4(t *testing.T) {
	txID := TransactionID{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	m := NewSuccessResponse(txID)
	ip := net.ParseIP("192.168.1.1").To4()
	m.AddXorMappedAddress(ip, 5000)

	raw := m.Encode()
	decoded, err := Decode(raw)
	require.NoError(t, err)

	gotIP, gotPort, ok := decoded.XorMappedAddress()
	require.True(t, ok)
	assert.True(t, ip.Equal(gotIP))
	assert.Equal(t, 5000, gotPort)
}

func TestXorMappedAddressIPv6(t *testing.T) {
	txID := TransactionID{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	m := NewSuccessResponse(txID)
	ip := net.ParseIP("2001:db8::1")
	m.AddXorMappedAddress(ip, 12345)

	raw := m.Encode()
	decoded, err := Decode(raw)
	require.NoError(t, err)

	gotIP, gotPort, ok := decoded.XorMappedAddress()
	require.True(t, ok)
	assert.True(t, ip.Equal(gotIP))
	assert.Equal(t, 12345, gotPort)
}

func TestFingerprintTamperDetection(t *testing.T) {
	m := NewIndication(TransactionID{})
	m.AddFingerprint()
	raw := m.Encode()

	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.True(t, decoded.VerifyFingerprint(raw))

	tampered := append([]byte(nil), raw...)
	tampered[0] ^= 0x01
	decodedTampered, err := Decode(tampered)
	require.NoError(t, err)
	assert.False(t, decodedTampered.VerifyFingerprint(tampered))
}
