package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vakarthi/ultimate-ttt/internal/apperror"
)

const handshakeTimeout = 10 * time.Second

var (
	ErrAlreadyOpen    = errors.New("channel is already open")
	ErrSessionRefused = errors.New("relay refused the session")
)

// WSChannel implements Channel over a websocket connection to the relay.
// One channel serves one match; the coordinator constructs a fresh one per
// online session and closes it on teardown.
type WSChannel struct {
	logger    *slog.Logger
	relayURL  string
	callbacks Callbacks

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewWSChannel(logger *slog.Logger, relayURL string, callbacks Callbacks) *WSChannel {
	return &WSChannel{
		logger:    logger.With("component", "peer-channel"),
		relayURL:  relayURL,
		callbacks: callbacks,
	}
}

// Host opens a session on the relay and returns its ID for the other
// player to join. Peer arrival is reported later through OnPeerConnected.
func (that *WSChannel) Host(ctx context.Context) (string, error) {
	conn, err := that.dial(ctx)
	if err != nil {
		return "", err
	}

	if err = that.writeEnvelope(Envelope{Type: EnvHost}); err != nil {
		that.Close()
		return "", err
	}

	env, err := readEnvelope(conn)
	if err != nil {
		that.Close()
		return "", fmt.Errorf("failed to read session response: %w", err)
	}

	if env.Type != EnvSession || env.Session == "" {
		that.Close()
		return "", fmt.Errorf("%w: %s", ErrSessionRefused, env.Error)
	}

	go that.readLoop(conn)

	if that.callbacks.OnOpen != nil {
		that.callbacks.OnOpen(env.Session)
	}

	return env.Session, nil
}

// Join dials the relay and attaches to an existing session. It returns
// once the relay confirms the pairing.
func (that *WSChannel) Join(ctx context.Context, sessionID string) error {
	conn, err := that.dial(ctx)
	if err != nil {
		return err
	}

	if err = that.writeEnvelope(Envelope{Type: EnvJoin, Session: sessionID}); err != nil {
		that.Close()
		return err
	}

	env, err := readEnvelope(conn)
	if err != nil {
		that.Close()
		return fmt.Errorf("failed to read join response: %w", err)
	}

	if env.Type != EnvPeerJoined {
		that.Close()
		return fmt.Errorf("%w: %s", ErrSessionRefused, env.Error)
	}

	go that.readLoop(conn)

	if that.callbacks.OnOpen != nil {
		that.callbacks.OnOpen(sessionID)
	}
	if that.callbacks.OnPeerConnected != nil {
		that.callbacks.OnPeerConnected()
	}

	return nil
}

// Send forwards an opaque game message to the peer via the relay.
func (that *WSChannel) Send(data []byte) error {
	return that.writeEnvelope(Envelope{Type: EnvData, Data: data})
}

func (that *WSChannel) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
	if that.conn == nil {
		return nil
	}

	conn := that.conn
	that.conn = nil

	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}

func (that *WSChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.conn != nil {
		return nil, ErrAlreadyOpen
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, that.relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}

	that.conn = conn
	that.closed = false

	return conn, nil
}

func (that *WSChannel) writeEnvelope(env Envelope) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.conn == nil {
		return apperror.ErrNotConnected
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err = that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}

	return nil
}

func readEnvelope(conn *websocket.Conn) (*Envelope, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read envelope: %w", err)
	}

	var env Envelope
	if err = json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	return &env, nil
}

// readLoop drains the connection until it closes, dispatching envelopes in
// arrival order. Losing the relay mid-match is indistinguishable from
// losing the peer, so both surface as OnPeerDisconnected.
func (that *WSChannel) readLoop(conn *websocket.Conn) {
	log := that.logger.With("method", "readLoop")

	for {
		env, err := readEnvelope(conn)
		if err != nil {
			if !that.isClosed() {
				log.Info("connection lost", "error", err)
				if that.callbacks.OnPeerDisconnected != nil {
					that.callbacks.OnPeerDisconnected()
				}
			}
			return
		}

		switch env.Type {
		case EnvPeerJoined:
			if that.callbacks.OnPeerConnected != nil {
				that.callbacks.OnPeerConnected()
			}
		case EnvData:
			if that.callbacks.OnMessage != nil {
				that.callbacks.OnMessage(env.Data)
			}
		case EnvPeerLeft:
			if that.callbacks.OnPeerDisconnected != nil {
				that.callbacks.OnPeerDisconnected()
			}
		case EnvError:
			log.Error("relay reported error", "error", env.Error)
			if that.callbacks.OnError != nil {
				that.callbacks.OnError(env.Error)
			}
		default:
			log.Error("unknown envelope type", "type", env.Type)
		}
	}
}

func (that *WSChannel) isClosed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.closed
}
