package webrtc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopSend(b []byte) error { return nil }

func TestListenerAcceptConnectionIsIdempotentPerPeer(t *testing.T) {
	cert, err := GenerateCertificate()
	require.NoError(t, err)
	endpoint, err := NewEndpoint(Config{Certificate: cert})
	require.NoError(t, err)

	listener, err := endpoint.Listen()
	require.NoError(t, err)

	first, err := listener.AcceptConnection("peer-1", noopSend)
	require.NoError(t, err)
	second, err := listener.AcceptConnection("peer-1", noopSend)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := listener.AcceptConnection("peer-2", noopSend)
	require.NoError(t, err)
	assert.NotSame(t, first, other)

	found, ok := listener.Connection("peer-1")
	assert.True(t, ok)
	assert.Same(t, first, found)

	_, ok = listener.Connection("unknown")
	assert.False(t, ok)
}

func TestListenerPublishesEachNewConnectionOnce(t *testing.T) {
	cert, err := GenerateCertificate()
	require.NoError(t, err)
	endpoint, err := NewEndpoint(Config{Certificate: cert})
	require.NoError(t, err)

	listener, err := endpoint.Listen()
	require.NoError(t, err)

	conn, err := listener.AcceptConnection("peer-1", noopSend)
	require.NoError(t, err)

	published, ok := listener.Connections().Next(context.Background())
	require.True(t, ok)
	assert.Same(t, conn, published)

	// A repeat accept for the same peer must not publish again.
	_, err = listener.AcceptConnection("peer-1", noopSend)
	require.NoError(t, err)

	listener.Close()
	_, ok = listener.Connections().Next(context.Background())
	assert.False(t, ok)
}

func TestListenerRemoveConnectionClosesAndUnregisters(t *testing.T) {
	cert, err := GenerateCertificate()
	require.NoError(t, err)
	endpoint, err := NewEndpoint(Config{Certificate: cert})
	require.NoError(t, err)

	listener, err := endpoint.Listen()
	require.NoError(t, err)

	conn, err := listener.AcceptConnection("peer-1", noopSend)
	require.NoError(t, err)

	listener.RemoveConnection("peer-1")
	assert.Equal(t, StateClosed, conn.State())

	_, ok := listener.Connection("peer-1")
	assert.False(t, ok)
}

func TestListenerCloseClosesAllConnections(t *testing.T) {
	cert, err := GenerateCertificate()
	require.NoError(t, err)
	endpoint, err := NewEndpoint(Config{Certificate: cert})
	require.NoError(t, err)

	listener, err := endpoint.Listen()
	require.NoError(t, err)

	a, err := listener.AcceptConnection("peer-1", noopSend)
	require.NoError(t, err)
	b, err := listener.AcceptConnection("peer-2", noopSend)
	require.NoError(t, err)

	listener.Close()
	assert.Equal(t, StateClosed, a.State())
	assert.Equal(t, StateClosed, b.State())

	_, err = listener.AcceptConnection("peer-3", noopSend)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEndpointCloseClosesItsListeners(t *testing.T) {
	cert, err := GenerateCertificate()
	require.NoError(t, err)
	endpoint, err := NewEndpoint(Config{Certificate: cert})
	require.NoError(t, err)

	listener, err := endpoint.Listen()
	require.NoError(t, err)
	conn, err := listener.AcceptConnection("peer-1", noopSend)
	require.NoError(t, err)

	endpoint.Close()
	assert.Equal(t, StateClosed, conn.State())

	_, err = endpoint.Listen()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = endpoint.Connect("sha-256 00:00", noopSend)
	assert.ErrorIs(t, err, ErrClosed)
}
