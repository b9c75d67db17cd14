package ice

import (
	"net"
	"strings"
	"sync"

	"github.com/lanikai/rtcdc/internal/logging"
	"github.com/lanikai/rtcdc/internal/stun"
)

var log = logging.DefaultLogger.WithTag("ice")

// Agent is an ICE-Lite agent: always the controlled party, never issuing
// its own connectivity checks, only validating and answering incoming STUN
// binding requests from the controlling peer.
type Agent struct {
	mu sync.Mutex

	local  Credentials
	remote Credentials
	haveRemote bool

	state State
	peers peerSet
}

// NewAgent constructs an Agent with freshly generated local credentials,
// in StateNew.
func NewAgent() *Agent {
	return &Agent{
		local: GenerateCredentials(),
		state: StateNew,
		peers: make(peerSet),
	}
}

// LocalCredentials returns this agent's local ufrag/password.
func (a *Agent) LocalCredentials() Credentials {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.local
}

// SetRemoteCredentials records the peer's ufrag/password, learned out of
// band via signaling. Any agent still in StateNew moves to StateChecking,
// since it can now recognize and validate requests from that peer.
func (a *Agent) SetRemoteCredentials(ufrag, password string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.remote = Credentials{Ufrag: ufrag, Password: password}
	a.haveRemote = true
	if a.state == StateNew {
		a.setState(StateChecking)
	}
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	if a.state != s {
		log.Debug("state %v -> %v", a.state, s)
		a.state = s
	}
}

// Complete is the orchestrator's explicit post-DTLS signal that ICE has
// nothing further to do.
func (a *Agent) Complete() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.isTerminal() {
		return
	}
	a.setState(StateCompleted)
}

// Fail transitions the agent to StateFailed from any non-terminal state.
func (a *Agent) Fail() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.isTerminal() {
		return
	}
	a.setState(StateFailed)
}

func (a *Agent) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setState(StateClosed)
}

// IsValidatedPeer reports whether addr:port has passed a validated binding
// request.
func (a *Agent) IsValidatedPeer(addr net.IP, port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peers.contains(addr, port)
}

// ProcessSTUN validates an incoming datagram as a STUN binding request and
// returns the wire bytes of a response to send back to (addr, port), or
// nil if the
// input should be silently ignored (not STUN, undecodable, or not a
// binding request). Validation failures still produce a response (the
// relevant STUN error), paired with the specific error describing why, so
// callers can log the rejection reason.
func (a *Agent) ProcessSTUN(raw []byte, addr net.IP, port int) ([]byte, error) {
	if !stun.IsMessage(raw) {
		return nil, nil
	}
	msg, err := stun.Decode(raw)
	if err != nil {
		return nil, nil
	}
	if msg.Class != stun.ClassRequest || msg.Method != stun.MethodBinding {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	username, ok := msg.Username()
	if !ok {
		return a.errorResponse(msg, 400, "Bad Request"), ErrMissingUsername
	}
	parts := strings.SplitN(username, ":", 2)
	if len(parts) != 2 {
		return a.errorResponse(msg, 400, "Bad Request"), ErrInvalidUsernameFormat
	}
	if parts[1] != a.local.Ufrag {
		return a.errorResponse(msg, 401, "Unauthorized"), ErrLocalUfragMismatch
	}

	if _, present := msg.Get(stun.AttrFingerprint); present {
		if !msg.VerifyFingerprint(raw) {
			return a.errorResponse(msg, 400, "Bad Request"), ErrFingerprintFailed
		}
	}

	switch msg.VerifyMessageIntegrity(raw, a.local.Password) {
	case stun.IntegrityMissing:
		return a.errorResponse(msg, 401, "Unauthorized"), ErrMissingMessageIntegrity
	case stun.IntegrityInvalid:
		return a.errorResponse(msg, 401, "Unauthorized"), ErrInvalidMessageIntegrity
	}

	if msg.HasIceControlled() {
		return a.errorResponse(msg, 487, "Role Conflict"), ErrRoleConflict
	}

	a.peers.add(addr, port)
	if a.state == StateNew || a.state == StateChecking {
		a.setState(StateConnected)
	}

	resp := stun.NewSuccessResponse(msg.TransactionID)
	resp.AddXorMappedAddress(addr, port)
	resp.AddMessageIntegrity(a.local.Password)
	resp.AddFingerprint()
	return resp.Encode(), nil
}

func (a *Agent) errorResponse(req *stun.Message, code int, reason string) []byte {
	resp := stun.NewErrorResponse(req.TransactionID, code, reason)
	resp.AddMessageIntegrity(a.local.Password)
	resp.AddFingerprint()
	return resp.Encode()
}
