package sctp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConn wires two Associations' packet output directly into each
// other's HandlePacket, synchronously, for deterministic tests.
type pipeConn struct {
	peer *Association
}

func (c *pipeConn) WriteSCTPPacket(b []byte) error {
	return c.peer.HandlePacket(b)
}

func newAssociationPair(t *testing.T) (client, server *Association) {
	clientConn := &pipeConn{}
	serverConn := &pipeConn{}

	var receivedByServer, receivedByClient [][]byte
	client = Client(clientConn, Config{
		OnMessage: func(streamID uint16, ppid uint32, data []byte) {
			receivedByClient = append(receivedByClient, data)
		},
	})
	server = Server(serverConn, Config{
		OnMessage: func(streamID uint16, ppid uint32, data []byte) {
			receivedByServer = append(receivedByServer, data)
		},
	})
	clientConn.peer = server
	serverConn.peer = client
	client.Start()

	require.Eventually(t, func() bool {
		return client.State() == StateEstablished && server.State() == StateEstablished
	}, time.Second, time.Millisecond)

	_ = receivedByServer
	_ = receivedByClient
	return client, server
}

func TestAssociationHandshakeReachesEstablished(t *testing.T) {
	client, server := newAssociationPair(t)
	assert.Equal(t, StateEstablished, client.State())
	assert.Equal(t, StateEstablished, server.State())
}

func TestAssociationDataDeliveredInOrder(t *testing.T) {
	clientConn := &pipeConn{}
	serverConn := &pipeConn{}

	var got [][]byte
	client := Client(clientConn, Config{})
	server := Server(serverConn, Config{
		OnMessage: func(streamID uint16, ppid uint32, data []byte) {
			got = append(got, append([]byte(nil), data...))
		},
	})
	clientConn.peer = server
	serverConn.peer = client
	client.Start()

	require.Eventually(t, func() bool {
		return client.State() == StateEstablished
	}, time.Second, time.Millisecond)

	require.NoError(t, client.SendMessage(0, 53, true, []byte("hello")))
	require.NoError(t, client.SendMessage(0, 53, true, []byte("world")))

	require.Eventually(t, func() bool { return len(got) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []byte("hello"), got[0])
	assert.Equal(t, []byte("world"), got[1])
}

func TestAssociationShutdownReachesClosed(t *testing.T) {
	client, server := newAssociationPair(t)

	var clientClosed, serverClosed bool
	// Re-wire OnClosed via a fresh pair since Config is set at construction.
	clientConn := &pipeConn{}
	serverConn := &pipeConn{}
	client = Client(clientConn, Config{OnClosed: func(err error) { clientClosed = err == nil }})
	server = Server(serverConn, Config{OnClosed: func(err error) { serverClosed = err == nil }})
	clientConn.peer = server
	serverConn.peer = client
	client.Start()

	require.Eventually(t, func() bool {
		return client.State() == StateEstablished && server.State() == StateEstablished
	}, time.Second, time.Millisecond)

	client.Shutdown()

	require.Eventually(t, func() bool {
		return client.State() == StateClosed && server.State() == StateClosed
	}, time.Second, time.Millisecond)
	assert.True(t, clientClosed)
	assert.True(t, serverClosed)
}

// discardConn satisfies Conn without needing a live peer, for tests that
// only care about one side's internal state transitions.
type discardConn struct{}

func (discardConn) WriteSCTPPacket(b []byte) error { return nil }

func TestAssociationRejectsStaleCookie(t *testing.T) {
	secret := rngCookieSecretForTest()
	sealed := sealCookie(stateCookie{CreatedAtMillis: 0}, secret)

	server := Server(discardConn{}, Config{})
	server.cookieSecret = secret

	err := server.handleCookieEcho(&CookieEchoChunk{Cookie: sealed})
	assert.Error(t, err)
}

func rngCookieSecretForTest() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

// TestAssociationDataDeliveredOutOfTSNOrder mirrors spec scenario S5: three
// single-chunk messages on the same stream arrive out of TSN (and therefore
// out of stream-sequence) order; delivery to the application must still
// happen in strictly increasing stream-sequence order.
func TestAssociationDataDeliveredOutOfTSNOrder(t *testing.T) {
	conn := &discardConn{}
	var got [][]byte
	server := Server(conn, Config{
		OnMessage: func(streamID uint16, ppid uint32, data []byte) {
			got = append(got, append([]byte(nil), data...))
		},
	})
	server.state = StateEstablished
	server.incoming = newTSNTracker(1000)
	server.peerTag = 42

	// handleData only queues deliveries (see deliver/pendingMsgs); flush
	// after each call to observe them, mirroring what HandlePacket does
	// once mu is released.
	flush := func() {
		server.deliverMessages(server.flushMessagesLocked())
	}

	require.NoError(t, server.handleData(&DataChunk{Begin: true, End: true, TSN: 1000, StreamID: 0, StreamSeq: 0, UserData: []byte("first")}))
	flush()
	require.Len(t, got, 1) // only seq 0 delivered so far
	require.NoError(t, server.handleData(&DataChunk{Begin: true, End: true, TSN: 1002, StreamID: 0, StreamSeq: 2, UserData: []byte("third")}))
	flush()
	assert.Len(t, got, 1) // seq 2 buffered, not yet deliverable
	require.NoError(t, server.handleData(&DataChunk{Begin: true, End: true, TSN: 1001, StreamID: 0, StreamSeq: 1, UserData: []byte("second")}))
	flush()

	require.Len(t, got, 3)
	assert.Equal(t, []byte("first"), got[0])
	assert.Equal(t, []byte("second"), got[1])
	assert.Equal(t, []byte("third"), got[2])
	assert.Equal(t, uint32(1002), server.incoming.CumulativeTSNAck())
}
