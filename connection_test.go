package webrtc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoopbackPair wires a client and server Connection together directly,
// bypassing any real transport: each side's send callback feeds the other's
// Receive synchronously. This exercises the full DTLS-handshake → SCTP
// handshake → DCEP open path end to end using the Loopback DTLS engine.
func newLoopbackPair(t *testing.T) (client, server *Connection) {
	t.Helper()

	clientCert, err := GenerateCertificate()
	require.NoError(t, err)
	serverCert, err := GenerateCertificate()
	require.NoError(t, err)

	clientEndpoint, err := NewEndpoint(Config{Certificate: clientCert})
	require.NoError(t, err)
	serverEndpoint, err := NewEndpoint(Config{Certificate: serverCert})
	require.NoError(t, err)

	client, err = clientEndpoint.Connect(serverCert.Fingerprint, func(b []byte) error {
		return server.Receive(b, nil)
	})
	require.NoError(t, err)

	listener, err := serverEndpoint.Listen()
	require.NoError(t, err)
	server, err = listener.AcceptConnection("peer-1", func(b []byte) error {
		return client.Receive(b, nil)
	})
	require.NoError(t, err)

	client.Start()
	server.Start()

	require.Eventually(t, func() bool {
		return client.State() == StateConnected && server.State() == StateConnected
	}, time.Second, time.Millisecond)

	return client, server
}

func TestConnectionReachesConnected(t *testing.T) {
	client, server := newLoopbackPair(t)
	assert.Equal(t, StateConnected, client.State())
	assert.Equal(t, StateConnected, server.State())

	fp, ok := client.RemoteFingerprint()
	assert.True(t, ok)
	assert.NotEmpty(t, fp)
}

func TestConnectionOpenDataChannelDeliversMessage(t *testing.T) {
	client, server := newLoopbackPair(t)

	var got [][]byte
	var incoming string
	done := make(chan struct{})
	go func() {
		if ch, ok := server.IncomingChannels().Next(context.Background()); ok {
			incoming = ch.Label()
		}
		close(done)
	}()

	clientCh, err := client.OpenDataChannel("chat", true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return clientCh.State().String() == "open"
	}, time.Second, time.Millisecond)

	server.SetDataHandler(func(streamID uint16, payload []byte) {
		got = append(got, append([]byte(nil), payload...))
	})

	require.NoError(t, client.Send(clientCh.ID(), []byte("hello"), true))

	require.Eventually(t, func() bool { return len(got) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []byte("hello"), got[0])

	<-done
	assert.Equal(t, "chat", incoming)
}

func TestConnectionCloseIsIdempotentAndTerminal(t *testing.T) {
	client, _ := newLoopbackPair(t)

	client.Close()
	client.Close() // must not panic or block

	assert.Equal(t, StateClosed, client.State())
	_, err := client.OpenDataChannel("late", true)
	assert.ErrorIs(t, err, ErrClosed)

	err = client.Receive([]byte{20}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnectionClientFingerprintMismatchFails(t *testing.T) {
	clientCert, err := GenerateCertificate()
	require.NoError(t, err)
	serverCert, err := GenerateCertificate()
	require.NoError(t, err)

	clientEndpoint, err := NewEndpoint(Config{Certificate: clientCert})
	require.NoError(t, err)
	serverEndpoint, err := NewEndpoint(Config{Certificate: serverCert})
	require.NoError(t, err)

	var client, server *Connection
	client, err = clientEndpoint.Connect("sha-256 00:00", func(b []byte) error {
		return server.Receive(b, nil)
	})
	require.NoError(t, err)

	listener, err := serverEndpoint.Listen()
	require.NoError(t, err)
	server, err = listener.AcceptConnection("peer-1", func(b []byte) error {
		return client.Receive(b, nil)
	})
	require.NoError(t, err)

	client.Start()
	server.Start()

	require.Eventually(t, func() bool {
		return client.State() == StateFailed
	}, time.Second, time.Millisecond)
	assert.Contains(t, client.FailReason(), "fingerprint mismatch")
}
