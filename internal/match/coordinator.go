package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vakarthi/ultimate-ttt/internal/ai"
	"github.com/vakarthi/ultimate-ttt/internal/apperror"
	"github.com/vakarthi/ultimate-ttt/internal/entity"
	"github.com/vakarthi/ultimate-ttt/internal/peer"
	"github.com/vakarthi/ultimate-ttt/internal/ultimate"
)

const (
	TypePvP     = "pvp"
	TypeWithBot = "bot"
)

// Notice kinds surfaced to the embedding UI.
const (
	NoticeRestart          = "restart"
	NoticePeerDisconnected = "peer_disconnected"
	NoticeConnectionError  = "connection_error"
)

// ChannelFactory builds a fresh peer channel per online session. The
// coordinator owns the channel it gets back and tears it down explicitly;
// there is no ambient shared networking state.
type ChannelFactory func(callbacks peer.Callbacks) peer.Channel

type saveRepo interface {
	Save(ctx context.Context, key string, save *entity.SavedGame) error
	Load(ctx context.Context, key string) (*entity.SavedGame, error)
}

// Coordinator owns the canonical game state of one match at a time. Local
// input, scheduled bot moves and inbound peer messages all mutate it under
// one lock through ultimate.ApplyMove, so the three event sources can
// never interleave a read-modify-write.
type Coordinator struct {
	logger   *slog.Logger
	selector *ai.Selector
	saves    saveRepo
	channels ChannelFactory

	mu         sync.Mutex
	game       entity.Game
	history    []entity.MoveRecord
	mode       string
	gameType   string
	difficulty string
	localMark  string
	lastMove   *entity.Move
	channel    peer.Channel
	onNotice   func(kind string)
}

func NewCoordinator(logger *slog.Logger, selector *ai.Selector, saves saveRepo, channels ChannelFactory) *Coordinator {
	return &Coordinator{
		logger:   logger.With("component", "coordinator"),
		selector: selector,
		saves:    saves,
		channels: channels,
		game:     entity.NewGame(),
		mode:     entity.ModeLocal,
		gameType: TypePvP,
	}
}

// OnNotice registers the sink for user-facing notifications (restart
// received, peer lost, connection failure).
func (that *Coordinator) OnNotice(fn func(kind string)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.onNotice = fn
}

// Game returns a snapshot of the current state.
func (that *Coordinator) Game() entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.game
}

func (that *Coordinator) Mode() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.mode
}

func (that *Coordinator) LocalMark() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.localMark
}

// LegalMoves enumerates the moves currently available, in index order.
func (that *Coordinator) LegalMoves() []entity.Move {
	return ultimate.LegalMoves(that.Game())
}

// StartMatch begins a fresh non-online match, tearing down any active
// online session first. gameType is TypePvP or TypeWithBot; difficulty
// only matters for bot games.
func (that *Coordinator) StartMatch(gameType, difficulty string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.teardownLocked()
	that.resetLocked()
	that.mode = entity.ModeLocal
	that.gameType = gameType
	that.difficulty = difficulty
	that.localMark = entity.EmptyCell
}

// MakeTurn applies a locally originated move. In an online match the move
// is only accepted on the local player's turn and is forwarded to the
// peer after it passes the rules.
func (that *Coordinator) MakeTurn(board, cell int) (entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch that.mode {
	case entity.ModeHosting, entity.ModeJoining:
		return that.game, apperror.ErrNotConnected
	case entity.ModeDisconnected:
		return that.game, apperror.ErrPeerGone
	}

	if that.mode == entity.ModeConnected && that.game.Turn != that.localMark {
		return that.game, apperror.ErrNotYourTurn
	}

	next, err := that.applyLocked(board, cell)
	if err != nil {
		return that.game, err
	}

	if that.mode == entity.ModeConnected {
		if err = that.sendLocked(peer.GameMessage{Type: peer.TypeMove, Board: board, Cell: cell}); err != nil {
			that.logger.Error("failed to forward move", "error", err)
		}
	}

	if that.mode == entity.ModeLocal && that.gameType == TypeWithBot && !next.IsFinished() {
		that.botTurnLocked()
	}

	return that.game, nil
}

// Undo restores the state snapshot taken before the last move. It is
// rejected in any online mode and when no history remains. History only
// accumulates in local matches and is dropped on save.
func (that *Coordinator) Undo() (entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.mode != entity.ModeLocal || len(that.history) == 0 {
		return that.game, apperror.ErrUndoUnavailable
	}

	record := that.history[len(that.history)-1]
	that.history = that.history[:len(that.history)-1]
	that.game = record.Game

	if n := len(that.history); n > 0 {
		last := that.history[n-1].LastMove
		that.lastMove = &last
	} else {
		that.lastMove = nil
	}

	return that.game, nil
}

// Restart resets the match to a fresh state. Online, roles are preserved
// and the peer is told to do the same; the relay's ordering makes the two
// resets agree on which moves they discard.
func (that *Coordinator) Restart() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch that.mode {
	case entity.ModeLocal:
		that.resetLocked()
		return nil
	case entity.ModeConnected:
		that.resetLocked()
		return that.sendLocked(peer.GameMessage{Type: peer.TypeRestart})
	default:
		return apperror.ErrNotConnected
	}
}

// HostOnline opens an online session and returns its ID. The hosting side
// plays X for the whole match.
func (that *Coordinator) HostOnline(ctx context.Context) (string, error) {
	channel := that.openSession(entity.ModeHosting, entity.PlayerX)

	sessionID, err := channel.Host(ctx)
	if err != nil {
		that.abortOnline()
		return "", fmt.Errorf("failed to host session: %w", err)
	}

	return sessionID, nil
}

// JoinOnline attaches to a hosted session. The joining side plays O.
func (that *Coordinator) JoinOnline(ctx context.Context, sessionID string) error {
	channel := that.openSession(entity.ModeJoining, entity.PlayerO)

	if err := channel.Join(ctx, sessionID); err != nil {
		that.abortOnline()
		return fmt.Errorf("failed to join session: %w", err)
	}

	return nil
}

// Save persists the current state under key. History is cleared and never
// written out.
func (that *Coordinator) Save(ctx context.Context, key string) error {
	that.mu.Lock()
	save := &entity.SavedGame{
		Game:     that.game,
		LastMove: that.lastMove,
		Mode:     that.mode,
	}
	that.history = nil
	that.mu.Unlock()

	if err := that.saves.Save(ctx, key, save); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}

	return nil
}

// Load replaces the current match with a persisted one. A save taken from
// an online session comes back as a local match for inspection; no
// reconnection is attempted.
func (that *Coordinator) Load(ctx context.Context, key string) (entity.Game, error) {
	save, err := that.saves.Load(ctx, key)
	if err != nil {
		return entity.Game{}, fmt.Errorf("failed to load game: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.teardownLocked()
	that.game = save.Game
	that.history = nil
	that.lastMove = save.LastMove
	that.mode = entity.ModeLocal
	that.gameType = TypePvP
	that.localMark = entity.EmptyCell

	if save.WasOnline() {
		that.logger.Info("loaded online save for local inspection")
	}

	return that.game, nil
}

// applyLocked routes a move through the rules engine and advances the
// canonical state. Remote and local moves both end up here.
func (that *Coordinator) applyLocked(board, cell int) (entity.Game, error) {
	record := entity.MoveRecord{
		Game:     that.game,
		LastMove: entity.Move{Board: board, Cell: cell},
	}

	next, err := ultimate.ApplyMove(that.game, board, cell)
	if err != nil {
		return that.game, err
	}

	if that.mode == entity.ModeLocal {
		that.history = append(that.history, record)
	}

	that.game = next
	move := record.LastMove
	that.lastMove = &move

	return next, nil
}

func (that *Coordinator) botTurnLocked() {
	move, ok := that.selector.SelectMove(that.game, that.difficulty)
	if !ok {
		return
	}

	if _, err := that.applyLocked(move.Board, move.Cell); err != nil {
		// SelectMove only returns moves from LegalMoves.
		that.logger.Error("bot produced an illegal move", "board", move.Board, "cell", move.Cell, "error", err)
	}
}

func (that *Coordinator) sendLocked(msg peer.GameMessage) error {
	if that.channel == nil {
		return apperror.ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err = that.channel.Send(data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (that *Coordinator) openSession(mode, mark string) peer.Channel {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.teardownLocked()
	that.resetLocked()

	channel := that.channels(peer.Callbacks{
		OnOpen:             that.handleOpen,
		OnPeerConnected:    that.handlePeerConnected,
		OnMessage:          that.handlePeerMessage,
		OnPeerDisconnected: that.handlePeerDisconnected,
		OnError:            that.handleChannelError,
	})

	that.channel = channel
	that.mode = mode
	that.gameType = TypePvP
	that.localMark = mark

	return channel
}

func (that *Coordinator) abortOnline() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.teardownLocked()
	that.mode = entity.ModeLocal
	that.localMark = entity.EmptyCell
}

func (that *Coordinator) handleOpen(sessionID string) {
	that.logger.Info("session open", "sessionID", sessionID)
}

func (that *Coordinator) handlePeerConnected() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.mode != entity.ModeHosting && that.mode != entity.ModeJoining {
		return
	}

	that.resetLocked()
	that.mode = entity.ModeConnected

	that.logger.Info("peer connected", "localMark", that.localMark)
}

// handlePeerMessage applies a message from the peer. Moves are not
// re-validated against turn ownership: the sender enforced that on its
// side, and both instances evolve through the same deterministic
// transition, so only structural legality is checked.
func (that *Coordinator) handlePeerMessage(data []byte) {
	log := that.logger.With("method", "handlePeerMessage")

	var msg peer.GameMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error("failed to unmarshal message", "error", err)
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.mode != entity.ModeConnected {
		log.Error("message outside an active match", "type", msg.Type)
		return
	}

	switch msg.Type {
	case peer.TypeMove:
		if _, err := that.applyLocked(msg.Board, msg.Cell); err != nil {
			log.Error("peer move rejected by rules", "board", msg.Board, "cell", msg.Cell, "error", err)
		}
	case peer.TypeRestart:
		that.resetLocked()
		that.noticeLocked(NoticeRestart)
	default:
		log.Error("unknown message type", "type", msg.Type)
	}
}

func (that *Coordinator) handlePeerDisconnected() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.mode != entity.ModeConnected {
		return
	}

	// Last known state stays frozen and inspectable; no reconnection.
	that.mode = entity.ModeDisconnected
	that.noticeLocked(NoticePeerDisconnected)

	that.logger.Info("peer disconnected, match frozen", "moveCount", that.game.MoveCount)
}

func (that *Coordinator) handleChannelError(message string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.logger.Error("channel error", "error", message)

	switch that.mode {
	case entity.ModeHosting, entity.ModeJoining:
		that.teardownLocked()
		that.mode = entity.ModeLocal
		that.localMark = entity.EmptyCell
	case entity.ModeConnected:
		that.mode = entity.ModeDisconnected
	}

	that.noticeLocked(NoticeConnectionError)
}

func (that *Coordinator) resetLocked() {
	that.game = entity.NewGame()
	that.history = nil
	that.lastMove = nil
}

func (that *Coordinator) teardownLocked() {
	if that.channel == nil {
		return
	}

	if err := that.channel.Close(); err != nil {
		that.logger.Error("failed to close channel", "error", err)
	}

	that.channel = nil
}

func (that *Coordinator) noticeLocked(kind string) {
	if that.onNotice != nil {
		that.onNotice(kind)
	}
}
