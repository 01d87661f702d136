package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vakarthi/ultimate-ttt/internal/peer"
)

// Server pairs two websocket clients under a session ID and forwards their
// data frames in arrival order. It never inspects the game payloads, so
// the engines on both ends see an opaque reliable ordered channel.
type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id    string
	host  *client
	guest *client
}

// client serializes writes to one connection; frames arrive from both the
// relay itself and the other peer's read loop.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func New(logger *slog.Logger) *Server {
	return &Server{
		logger:   logger.With("component", "relay"),
		upgrader: websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }},
		sessions: make(map[string]*session),
	}
}

// Handler exposes the relay endpoint; Start and the tests share it.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.handleConnection)

	return mux
}

// Start - starts the relay server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &client{conn: conn}

	env, err := readEnvelope(conn)
	if err != nil {
		log.Error("failed to read opening envelope", "error", err)
		conn.Close()
		return
	}

	switch env.Type {
	case peer.EnvHost:
		that.handleHost(c)
	case peer.EnvJoin:
		that.handleJoin(c, env.Session)
	default:
		_ = c.write(peer.Envelope{Type: peer.EnvError, Error: "expected host or join"})
		conn.Close()
	}
}

func (that *Server) handleHost(c *client) {
	log := that.logger.With("method", "handleHost")

	sess := &session{
		id:   GenerateSessionID(),
		host: c,
	}

	that.mu.Lock()
	that.sessions[sess.id] = sess
	that.mu.Unlock()

	if err := c.write(peer.Envelope{Type: peer.EnvSession, Session: sess.id}); err != nil {
		log.Error("failed to send session id", "error", err)
		that.dropSession(sess, c)
		return
	}

	log.Info("session hosted", "sessionID", sess.id)

	that.forward(sess, c)
}

func (that *Server) handleJoin(c *client, sessionID string) {
	log := that.logger.With("method", "handleJoin", "sessionID", sessionID)

	that.mu.Lock()
	sess, ok := that.sessions[sessionID]
	if ok && sess.guest == nil {
		sess.guest = c
	} else if ok {
		sess = nil
	}
	that.mu.Unlock()

	if !ok {
		_ = c.write(peer.Envelope{Type: peer.EnvError, Error: "unknown session"})
		c.conn.Close()
		return
	}

	if sess == nil {
		_ = c.write(peer.Envelope{Type: peer.EnvError, Error: "session is full"})
		c.conn.Close()
		return
	}

	// The joiner's confirmation doubles as its pairing signal.
	if err := c.write(peer.Envelope{Type: peer.EnvPeerJoined}); err != nil {
		log.Error("failed to confirm join", "error", err)
		that.dropSession(sess, c)
		return
	}

	if err := sess.host.write(peer.Envelope{Type: peer.EnvPeerJoined}); err != nil {
		log.Error("failed to notify host", "error", err)
	}

	log.Info("peer joined")

	that.forward(sess, c)
}

// forward pumps one side's frames to the other until the connection drops.
// A single reader per connection preserves arrival order.
func (that *Server) forward(sess *session, c *client) {
	log := that.logger.With("method", "forward", "sessionID", sess.id)

	for {
		env, err := readEnvelope(c.conn)
		if err != nil {
			that.dropSession(sess, c)
			return
		}

		if env.Type != peer.EnvData {
			log.Error("unexpected envelope from peer", "type", env.Type)
			continue
		}

		other := that.otherOf(sess, c)
		if other == nil {
			_ = c.write(peer.Envelope{Type: peer.EnvError, Error: "peer not connected"})
			continue
		}

		if err = other.write(peer.Envelope{Type: peer.EnvData, Data: env.Data}); err != nil {
			log.Error("failed to forward frame", "error", err)
		}
	}
}

// dropSession removes the session and tells the surviving peer its
// opponent is gone. The survivor's connection stays open; its engine
// freezes the match and closes on its own schedule.
func (that *Server) dropSession(sess *session, gone *client) {
	log := that.logger.With("method", "dropSession", "sessionID", sess.id)

	that.mu.Lock()
	_, active := that.sessions[sess.id]
	delete(that.sessions, sess.id)
	that.mu.Unlock()

	gone.conn.Close()

	if !active {
		return
	}

	if other := that.otherOf(sess, gone); other != nil {
		if err := other.write(peer.Envelope{Type: peer.EnvPeerLeft}); err != nil {
			log.Error("failed to notify surviving peer", "error", err)
		}
	}

	log.Info("session dropped")
}

// otherOf resolves the opposite side of a session under the server lock;
// the guest slot is written after the host's forward loop is running.
func (that *Server) otherOf(sess *session, c *client) *client {
	that.mu.Lock()
	defer that.mu.Unlock()

	if c == sess.host {
		return sess.guest
	}
	return sess.host
}

func (that *client) write(env peer.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if err = that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}

	return nil
}

func readEnvelope(conn *websocket.Conn) (*peer.Envelope, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read envelope: %w", err)
	}

	var env peer.Envelope
	if err = json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	return &env, nil
}
