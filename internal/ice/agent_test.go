package ice

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/rtcdc/internal/rng"
	"github.com/lanikai/rtcdc/internal/stun"
)

func buildBindingRequest(t *testing.T, username, password string, controlled bool) []byte {
	t.Helper()
	txID := rng.TransactionID()
	req := stun.NewRequest(txID)
	req.AddUsername(username)
	if controlled {
		req.Add(stun.AttrIceControlled, []byte{0, 0, 0, 0, 0, 0, 0, 1})
	}
	req.AddMessageIntegrity(password)
	req.AddFingerprint()
	return req.Encode()
}

func TestAgentAcceptsValidBindingRequest(t *testing.T) {
	a := NewAgent()
	local := a.LocalCredentials()
	a.SetRemoteCredentials("R", "remote-password-aaaaaaaaaaaaaaa")

	raw := buildBindingRequest(t, "R:"+local.Ufrag, local.Password, false)
	resp, err := a.ProcessSTUN(raw, net.ParseIP("192.168.1.1"), 5000)
	require.NoError(t, err)
	require.NotNil(t, resp)

	decoded, err := stun.Decode(resp)
	require.NoError(t, err)
	assert.Equal(t, stun.ClassSuccessResponse, decoded.Class)
	ip, port, ok := decoded.XorMappedAddress()
	require.True(t, ok)
	assert.Equal(t, "192.168.1.1", ip.String())
	assert.Equal(t, 5000, port)

	assert.Equal(t, StateConnected, a.State())
	assert.True(t, a.IsValidatedPeer(net.ParseIP("192.168.1.1"), 5000))
}

func TestAgentRejectsUfragMismatch(t *testing.T) {
	a := NewAgent()
	a.SetRemoteCredentials("R", "remote-password-aaaaaaaaaaaaaaa")

	raw := buildBindingRequest(t, "R:wrong-ufrag", a.LocalCredentials().Password, false)
	resp, err := a.ProcessSTUN(raw, net.ParseIP("10.0.0.1"), 1234)
	assert.ErrorIs(t, err, ErrLocalUfragMismatch)
	require.NotNil(t, resp)

	decoded, derr := stun.Decode(resp)
	require.NoError(t, derr)
	code, _, ok := decoded.ErrorCode()
	require.True(t, ok)
	assert.Equal(t, 401, code)
}

func TestAgentRejectsBadIntegrity(t *testing.T) {
	a := NewAgent()
	local := a.LocalCredentials()

	raw := buildBindingRequest(t, "R:"+local.Ufrag, "totally-wrong-password-00000000", false)
	resp, err := a.ProcessSTUN(raw, net.ParseIP("10.0.0.1"), 1234)
	assert.ErrorIs(t, err, ErrInvalidMessageIntegrity)
	assert.NotNil(t, resp)
}

func TestAgentRejectsRoleConflict(t *testing.T) {
	a := NewAgent()
	local := a.LocalCredentials()

	raw := buildBindingRequest(t, "R:"+local.Ufrag, local.Password, true)
	resp, err := a.ProcessSTUN(raw, net.ParseIP("10.0.0.1"), 1234)
	assert.ErrorIs(t, err, ErrRoleConflict)

	decoded, derr := stun.Decode(resp)
	require.NoError(t, derr)
	code, _, ok := decoded.ErrorCode()
	require.True(t, ok)
	assert.Equal(t, 487, code)
}

func TestAgentIgnoresNonSTUN(t *testing.T) {
	a := NewAgent()
	resp, err := a.ProcessSTUN([]byte("not stun at all, just random bytes"), net.ParseIP("10.0.0.1"), 1234)
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestAgentStateMachine(t *testing.T) {
	a := NewAgent()
	assert.Equal(t, StateNew, a.State())
	a.SetRemoteCredentials("r", "p")
	assert.Equal(t, StateChecking, a.State())
	a.Complete()
	assert.Equal(t, StateCompleted, a.State())
	a.Fail()
	assert.Equal(t, StateFailed, a.State()) // failed is reachable from any non-terminal state
}
