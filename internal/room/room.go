package room

import (
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/hub/types"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/internal/repository"
	"ctchen222/Chess-Room/internal/rules"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
)

const (
	defaultHeartbeatInterval = 10 * time.Second
	sideEffectQueueSize      = 256

	// Time allowed to write a message to a peer.
	writeWait = 10 * time.Second
)

var tracer = otel.Tracer("room")

// ErrNotInRoom is returned for operations by a connection the room does not hold.
var ErrNotInRoom = errors.New("player is not in this room")

// Options carries a room's collaborators. The repositories are optional; a
// nil repository turns its side effect off.
type Options struct {
	Engine       rules.Engine
	Events       repository.EventRepository
	Presence     repository.PlayerRepository
	Archive      repository.ArchiveRepository
	PingInterval time.Duration
}

// Room is the authority for one game session. All reads and writes of the
// game state and the connection list happen under mu, and every broadcast is
// written inside the same critical section that committed the change.
type Room struct {
	ID       string
	engine   rules.Engine
	events   repository.EventRepository
	presence repository.PlayerRepository
	archive  repository.ArchiveRepository

	mu       sync.Mutex
	state    game.GameState
	archived bool
	seats    map[game.Role]*player.Player
	Players  []*player.Player
	closed   bool

	incomingMoves chan *types.PlayerMove
	pingInterval  time.Duration
	pongWait      time.Duration
	effects       chan sideEffect
	effectsDone   sync.WaitGroup
	Done          chan struct{}
}

// NewRoom creates a room holding a fresh game at the initial position.
func NewRoom(id string, opts Options) *Room {
	if opts.Engine == nil {
		opts.Engine = rules.New()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultHeartbeatInterval
	}
	r := &Room{
		ID:            id,
		engine:        opts.Engine,
		events:        opts.Events,
		presence:      opts.Presence,
		archive:       opts.Archive,
		state:         game.NewGameState(0),
		seats:         make(map[game.Role]*player.Player, 2),
		Players:       make([]*player.Player, 0, 2),
		incomingMoves: make(chan *types.PlayerMove, 16),
		pingInterval:  opts.PingInterval,
		pongWait:      2 * opts.PingInterval,
		effects:       make(chan sideEffect, sideEffectQueueSize),
		Done:          make(chan struct{}),
	}
	r.effectsDone.Add(1)
	go r.runSideEffects()
	return r
}

// Run is the room's loop. It dispatches inbound frames one at a time in
// arrival order and pings connections until the room is closed.
func (r *Room) Run() {
	pingTicker := time.NewTicker(r.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Done:
			slog.Info("Room run goroutine stopping.", "room.id", r.ID)
			return

		case move := <-r.incomingMoves:
			r.HandleMessage(move.Player, move.Message)

		case <-pingTicker.C:
			r.ping()
		}
	}
}

// Close stops the loop and waits for queued side effects to finish.
func (r *Room) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.Done)
		close(r.effects)
	}
	r.mu.Unlock()
	r.effectsDone.Wait()
}

// Len returns the number of open connections.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Players)
}

// IncomingMoves returns the channel for incoming player frames.
func (r *Room) IncomingMoves() chan<- *types.PlayerMove {
	return r.incomingMoves
}

// member reports whether p is one of the room's open connections. Callers hold mu.
func (r *Room) member(p *player.Player) bool {
	for _, existing := range r.Players {
		if existing == p {
			return true
		}
	}
	return false
}
