package relay_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vakarthi/ultimate-ttt/internal/peer"
	"github.com/vakarthi/ultimate-ttt/transport/relay"
)

const eventTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// events collects channel callbacks so tests can wait on them without
// racing the read loop.
type events struct {
	connected    chan struct{}
	messages     chan []byte
	disconnected chan struct{}
	errors       chan string
}

func newEvents() *events {
	return &events{
		connected:    make(chan struct{}, 4),
		messages:     make(chan []byte, 16),
		disconnected: make(chan struct{}, 4),
		errors:       make(chan string, 4),
	}
}

func (that *events) callbacks() peer.Callbacks {
	return peer.Callbacks{
		OnPeerConnected:    func() { that.connected <- struct{}{} },
		OnMessage:          func(data []byte) { that.messages <- data },
		OnPeerDisconnected: func() { that.disconnected <- struct{}{} },
		OnError:            func(message string) { that.errors <- message },
	}
}

func await[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(eventTimeout):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func startRelay(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(relay.New(testLogger()).Handler())
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestRelay_HostAndJoin(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	hostEvents := newEvents()
	host := peer.NewWSChannel(testLogger(), url, hostEvents.callbacks())
	t.Cleanup(func() { _ = host.Close() })

	// When: a session is hosted
	sessionID, err := host.Host(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	// Then: a second client can join it and both sides learn of the pairing
	guestEvents := newEvents()
	guest := peer.NewWSChannel(testLogger(), url, guestEvents.callbacks())
	t.Cleanup(func() { _ = guest.Close() })

	require.NoError(t, guest.Join(ctx, sessionID))

	await(t, hostEvents.connected, "host pairing")
	await(t, guestEvents.connected, "guest pairing")
}

func TestRelay_ForwardsFramesInOrder(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	hostEvents := newEvents()
	host := peer.NewWSChannel(testLogger(), url, hostEvents.callbacks())
	t.Cleanup(func() { _ = host.Close() })

	sessionID, err := host.Host(ctx)
	require.NoError(t, err)

	guestEvents := newEvents()
	guest := peer.NewWSChannel(testLogger(), url, guestEvents.callbacks())
	t.Cleanup(func() { _ = guest.Close() })

	require.NoError(t, guest.Join(ctx, sessionID))
	await(t, hostEvents.connected, "host pairing")

	// When: the host streams a sequence of moves
	for cell := 0; cell < 5; cell++ {
		msg, marshalErr := json.Marshal(peer.GameMessage{Type: peer.TypeMove, Board: 4, Cell: cell})
		require.NoError(t, marshalErr)
		require.NoError(t, host.Send(msg))
	}

	// Then: the guest receives them unchanged and in order
	for cell := 0; cell < 5; cell++ {
		data := await(t, guestEvents.messages, "forwarded frame")

		var msg peer.GameMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, peer.TypeMove, msg.Type)
		assert.Equal(t, 4, msg.Board)
		assert.Equal(t, cell, msg.Cell)
	}

	// And: frames flow the other way too
	reply, err := json.Marshal(peer.GameMessage{Type: peer.TypeRestart})
	require.NoError(t, err)
	require.NoError(t, guest.Send(reply))

	data := await(t, hostEvents.messages, "reply frame")
	var msg peer.GameMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, peer.TypeRestart, msg.Type)
}

func TestRelay_PeerLeft(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	hostEvents := newEvents()
	host := peer.NewWSChannel(testLogger(), url, hostEvents.callbacks())
	t.Cleanup(func() { _ = host.Close() })

	sessionID, err := host.Host(ctx)
	require.NoError(t, err)

	guestEvents := newEvents()
	guest := peer.NewWSChannel(testLogger(), url, guestEvents.callbacks())

	require.NoError(t, guest.Join(ctx, sessionID))
	await(t, hostEvents.connected, "host pairing")

	// When: the guest drops its connection
	require.NoError(t, guest.Close())

	// Then: the survivor is told its peer is gone
	await(t, hostEvents.disconnected, "peer-left notification")
}

func TestRelay_RejectsUnknownSession(t *testing.T) {
	url := startRelay(t)

	guest := peer.NewWSChannel(testLogger(), url, newEvents().callbacks())

	err := guest.Join(context.Background(), "no-such-session")

	require.ErrorIs(t, err, peer.ErrSessionRefused)
}

func TestRelay_RejectsThirdClient(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	hostEvents := newEvents()
	host := peer.NewWSChannel(testLogger(), url, hostEvents.callbacks())
	t.Cleanup(func() { _ = host.Close() })

	sessionID, err := host.Host(ctx)
	require.NoError(t, err)

	guest := peer.NewWSChannel(testLogger(), url, newEvents().callbacks())
	t.Cleanup(func() { _ = guest.Close() })
	require.NoError(t, guest.Join(ctx, sessionID))

	// When: a third client tries to squeeze into the same session
	late := peer.NewWSChannel(testLogger(), url, newEvents().callbacks())

	err = late.Join(ctx, sessionID)

	// Then: the relay turns it away and the pair is unaffected
	require.ErrorIs(t, err, peer.ErrSessionRefused)
}
