package peer

import (
	"context"
	"encoding/json"
)

const (
	TypeMove    = "move"
	TypeRestart = "restart"
)

// GameMessage is the flat wire format the two engines exchange. There is
// no versioning; both peers must run compatible rules.
type GameMessage struct {
	Type  string `json:"type"`
	Board int    `json:"board"`
	Cell  int    `json:"cell"`
}

// Envelope frames traffic between a client and the relay. Game messages
// travel opaquely in Data; the relay never inspects them.
type Envelope struct {
	Type    string          `json:"type"`
	Session string          `json:"session,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

const (
	EnvHost       = "host"
	EnvJoin       = "join"
	EnvSession    = "session"
	EnvPeerJoined = "peer_joined"
	EnvData       = "data"
	EnvPeerLeft   = "peer_left"
	EnvError      = "error"
)

// Callbacks deliver channel events. All of them are invoked from the
// channel's read goroutine, in arrival order. Nil members are skipped.
type Callbacks struct {
	OnOpen             func(sessionID string)
	OnPeerConnected    func()
	OnMessage          func(data []byte)
	OnPeerDisconnected func()
	OnError            func(message string)
}

// Channel is an opaque ordered reliable message transport between exactly
// two peers. How sessions are discovered or secured is not its concern.
type Channel interface {
	Host(ctx context.Context) (string, error)
	Join(ctx context.Context, sessionID string) error
	Send(data []byte) error
	Close() error
}
