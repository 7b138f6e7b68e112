package participant

import (
	"context"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/msgcat"
	"ctchen222/Chess-Room/internal/rules"
	"ctchen222/Chess-Room/pkg/proto"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Sender delivers client messages to the authority.
type Sender interface {
	Send(ctx context.Context, msg proto.ClientToServerMessage) error
}

// Frame is everything a view needs to draw the client.
type Frame struct {
	Role      game.Role
	Board     game.Board
	HasBoard  bool
	Seq       uint64
	Flip      bool
	Highlight []game.Square
	// Status is the last event message, Turn the idle line.
	Status   string
	Turn     string
	Desynced bool
}

// RenderFunc is called with a fresh frame after every visible change. It runs
// under the participant's lock and must not call back into it.
type RenderFunc func(Frame)

// Options configure a Participant.
type Options struct {
	Engine  rules.Engine
	Sender  Sender
	Catalog *msgcat.Catalog
	Render  RenderFunc
}

// Participant mirrors the authority's game on the client. Its cached
// position only changes from messages the authority sends.
type Participant struct {
	mu sync.Mutex

	engine  rules.Engine
	sender  Sender
	catalog *msgcat.Catalog
	render  RenderFunc

	role     game.Role
	position string
	seq      uint64
	hasState bool
	desynced bool
	flip     bool
	lastMove []game.Square
	status   string
}

// New returns a participant with no role and no cached position.
func New(opts Options) *Participant {
	if opts.Engine == nil {
		opts.Engine = rules.New()
	}
	if opts.Catalog == nil {
		opts.Catalog = msgcat.Default()
	}
	if opts.Render == nil {
		opts.Render = func(Frame) {}
	}
	return &Participant{
		engine:  opts.Engine,
		sender:  opts.Sender,
		catalog: opts.Catalog,
		render:  opts.Render,
	}
}

// OnConnected shows the connected status.
func (p *Participant) OnConnected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = p.catalog.Text(msgcat.Connected)
	p.redraw()
}

// OnDisconnected shows the connection-lost status. The cache is kept so the
// last known board stays visible.
func (p *Participant) OnDisconnected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = p.catalog.Text(msgcat.ConnectionLost)
	p.redraw()
}

// OnRoleAssigned stores the seat. Black sees the board flipped.
func (p *Participant) OnRoleAssigned(role game.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.role = role
	p.flip = role == game.RoleBlack
	if c, ok := role.Color(); ok {
		p.status = p.catalog.Text(msgcat.PlayingAs, "color", c.Title())
	} else {
		p.status = p.catalog.Text(msgcat.Spectating)
	}
	p.redraw()
}

// OnStateReceived replaces the cache wholesale and clears any desync.
func (p *Participant) OnStateReceived(position string, seq uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.replaceState(position, seq, "")
}

// OnNewGame is a full state replacement announced as a new game.
func (p *Participant) OnNewGame(position string, seq uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.replaceState(position, seq, p.catalog.Text(msgcat.NewGame))
}

func (p *Participant) replaceState(position string, seq uint64, status string) error {
	normalized, err := p.engine.Normalize(position)
	if err != nil {
		return fmt.Errorf("state from authority: %w", err)
	}
	p.position = normalized
	p.seq = seq
	p.hasState = true
	p.desynced = false
	p.lastMove = nil
	if status != "" {
		p.status = status
	}
	p.redraw()
	return nil
}

// ProposeLocalMove checks the move against a copy of the cached position and
// sends it only when legal. The cache is left untouched either way; the
// authority's broadcast is what moves the piece.
func (p *Participant) ProposeLocalMove(ctx context.Context, from, to game.Square) error {
	return p.propose(ctx, game.Move{From: from, To: to})
}

// ProposeLocalPromotion is ProposeLocalMove with the promotion piece chosen
// by the user. The choice is dropped when the move does not promote.
func (p *Participant) ProposeLocalPromotion(ctx context.Context, from, to game.Square, kind game.PieceKind) error {
	if !kind.IsPromotion() {
		return fmt.Errorf("%w: bad promotion %q", game.ErrInvalidMove, kind)
	}
	return p.propose(ctx, game.Move{From: from, To: to, Promotion: kind})
}

func (p *Participant) propose(ctx context.Context, requested game.Move) error {
	p.mu.Lock()
	move, err := p.checkLocal(requested)
	if err != nil {
		p.redraw()
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	if err := p.send(ctx, proto.ClientToServerMessage{Type: proto.TypeMove, Move: &move}); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = p.catalog.Text(msgcat.MoveSent)
	p.redraw()
	return nil
}

func (p *Participant) checkLocal(move game.Move) (game.Move, error) {
	if !p.hasState || p.desynced {
		p.status = p.catalog.Text(msgcat.Resyncing)
		return game.Move{}, game.ErrDesync
	}
	color, seated := p.role.Color()
	turn, err := p.engine.SideToMove(p.position)
	if err != nil {
		return game.Move{}, err
	}
	if !seated || color != turn {
		p.status = p.catalog.Text(msgcat.NotYourTurn)
		return game.Move{}, game.ErrOutOfTurn
	}

	switch {
	case !p.reachesLastRank(move):
		move.Promotion = ""
	case move.Promotion == "":
		move.Promotion = game.Queen
	}
	if _, err := p.engine.ApplyMove(p.position, move); err != nil {
		p.status = p.catalog.Text(msgcat.InvalidMove)
		return game.Move{}, err
	}
	return move, nil
}

func (p *Participant) reachesLastRank(move game.Move) bool {
	board, err := p.engine.Board(p.position)
	if err != nil {
		return false
	}
	piece := board.At(move.From)
	if piece.Kind != game.Pawn {
		return false
	}
	return (piece.Color == game.White && move.To.Rank() == 7) ||
		(piece.Color == game.Black && move.To.Rank() == 0)
}

// OnMoveBroadcast replays a committed move on the cache. A sequence gap or a
// move the cache cannot replay drops the cache and asks for a full state.
// Broadcasts arriving while out of sync are ignored.
func (p *Participant) OnMoveBroadcast(ctx context.Context, move game.Move, seq uint64) error {
	p.mu.Lock()
	if !p.hasState || p.desynced {
		p.mu.Unlock()
		return nil
	}
	if seq != p.seq+1 {
		cause := fmt.Errorf("%w: expected seq %d, got %d", game.ErrDesync, p.seq+1, seq)
		p.markDesynced()
		p.mu.Unlock()
		return p.requestSync(ctx, cause)
	}
	res, err := p.engine.ApplyMove(p.position, move)
	if err != nil {
		cause := fmt.Errorf("%w: replay %s: %v", game.ErrDesync, move.UCI(), err)
		p.markDesynced()
		p.mu.Unlock()
		return p.requestSync(ctx, cause)
	}

	p.position = res.Position
	p.seq = seq
	p.lastMove = []game.Square{move.From, move.To}
	p.status = p.catalog.Text(msgcat.Moved, "color", res.Applied.Color.Title(), "san", res.Applied.SAN)
	p.redraw()
	p.mu.Unlock()
	return nil
}

func (p *Participant) markDesynced() {
	p.position = ""
	p.hasState = false
	p.desynced = true
	p.lastMove = nil
	p.status = p.catalog.Text(msgcat.Resyncing)
	p.redraw()
}

func (p *Participant) requestSync(ctx context.Context, cause error) error {
	slog.WarnContext(ctx, "Participant out of sync, requesting state", "error", cause)
	if err := p.send(ctx, proto.ClientToServerMessage{Type: proto.TypeSync}); err != nil {
		return fmt.Errorf("%w (sync request failed: %v)", cause, err)
	}
	return cause
}

// OnInvalidMove shows the authority's rejection.
func (p *Participant) OnInvalidMove(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	slog.Debug("Move rejected by authority", "reason", reason)
	p.status = p.catalog.Text(msgcat.InvalidMove)
	p.redraw()
}

// RequestNewGame asks the authority to reset. The cache changes only when the
// newGame broadcast arrives.
func (p *Participant) RequestNewGame(ctx context.Context) error {
	return p.send(ctx, proto.ClientToServerMessage{Type: proto.TypeNewGame})
}

// Flip toggles the board orientation.
func (p *Participant) Flip() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flip = !p.flip
	p.redraw()
}

// Draggable reports whether the local player may pick up the piece on sq.
func (p *Participant) Draggable(sq game.Square) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	color, seated := p.role.Color()
	if !seated || !p.hasState {
		return false
	}
	board, err := p.engine.Board(p.position)
	if err != nil {
		return false
	}
	piece := board.At(sq)
	return !piece.Empty() && piece.Color == color
}

// Role returns the assigned seat, empty before the first role message.
func (p *Participant) Role() game.Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.role
}

// Position returns the cached position and its sequence number. ok is false
// while no trusted state is held.
func (p *Participant) Position() (position string, seq uint64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, p.seq, p.hasState
}

// Desynced reports whether the participant is waiting for a full state.
func (p *Participant) Desynced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.desynced
}

// Frame returns the current view state.
func (p *Participant) Frame() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame()
}

// Dispatch decodes one server frame and routes it to the matching handler.
func (p *Participant) Dispatch(ctx context.Context, raw []byte) error {
	var msg proto.ServerToClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode server message: %w", err)
	}

	switch msg.Type {
	case proto.TypeRole:
		p.OnRoleAssigned(msg.Role)
		return nil
	case proto.TypeState:
		return p.OnStateReceived(msg.Position, msg.Seq)
	case proto.TypeMove:
		if msg.Move == nil {
			return fmt.Errorf("move message without move")
		}
		return p.OnMoveBroadcast(ctx, *msg.Move, msg.Seq)
	case proto.TypeNewGame:
		return p.OnNewGame(msg.Position, msg.Seq)
	case proto.TypeInvalidMove:
		p.OnInvalidMove(msg.Reason)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown server message type", "type", msg.Type)
		return nil
	}
}

func (p *Participant) send(ctx context.Context, msg proto.ClientToServerMessage) error {
	if p.sender == nil {
		return fmt.Errorf("participant has no connection")
	}
	if err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

func (p *Participant) redraw() {
	p.render(p.frame())
}

func (p *Participant) frame() Frame {
	f := Frame{
		Role:      p.role,
		Seq:       p.seq,
		Flip:      p.flip,
		Highlight: append([]game.Square(nil), p.lastMove...),
		Status:    p.status,
		Desynced:  p.desynced,
	}
	if !p.hasState {
		return f
	}
	if board, err := p.engine.Board(p.position); err == nil {
		f.Board = board
		f.HasBoard = true
	}
	if p.engine.IsGameOver(p.position) {
		f.Turn = p.catalog.Text(msgcat.GameOver)
	} else if turn, err := p.engine.SideToMove(p.position); err == nil {
		f.Turn = p.catalog.Text(msgcat.ToMove, "color", turn.Title())
	}
	return f
}
