package room

import (
	"context"
	"ctchen222/Chess-Room/internal/events"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/pkg/proto"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Connect seats p in the first free seat, or as a spectator, and sends it its
// role followed by the current position. Nobody else is told.
func (r *Room) Connect(ctx context.Context, p *player.Player) game.Role {
	ctx, span := tracer.Start(ctx, "room.Connect", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	role := r.assignSeat(p)
	p.Role = role
	p.Status = player.StatusConnected
	p.LastSeen = time.Now()
	r.Players = append(r.Players, p)

	r.sendTo(ctx, p, proto.RoleMessage(role))
	r.sendTo(ctx, p, proto.StateMessage(r.state.Position, r.state.Seq))

	span.SetAttributes(attribute.String("player.role", string(role)))
	slog.InfoContext(ctx, "Player joined room", "room.id", r.ID, "player.id", p.ID, "player.role", role)
	metrics.connectionChanged(ctx, r.ID, 1)
	r.recordPresence(ctx, *p, true)
	return role
}

// ProposeMove validates move for p against the current position and commits
// it. A rejected proposal is reported to p alone and changes nothing; an
// accepted one is broadcast to every connection after the commit.
func (r *Room) ProposeMove(ctx context.Context, p *player.Player, move game.Move) (game.MoveResult, error) {
	ctx, span := tracer.Start(ctx, "room.ProposeMove", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
		attribute.String("move.uci", move.UCI()),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.member(p) {
		span.SetStatus(codes.Error, "Player not part of room")
		return game.MoveResult{}, ErrNotInRoom
	}

	res, err := r.validate(p, move)
	if err != nil {
		slog.WarnContext(ctx, "rejected move from player", "player.id", p.ID, "room.id", r.ID, "move", move.UCI(), "error", err)
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid move")
		metrics.moveRejected(ctx, r.ID, rejectionKind(err))
		r.sendTo(ctx, p, proto.InvalidMoveMessage(move, err.Error()))
		return game.MoveResult{}, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))

	r.state = r.state.With(res)
	r.broadcast(ctx, proto.MoveMessage(res.Applied, r.state.Seq))
	metrics.moveApplied(ctx, r.ID)

	r.publish(ctx, events.TypeMoveApplied, events.MoveAppliedPayload{
		GameID:   r.state.ID,
		Move:     res.Applied.Move.UCI(),
		SAN:      res.Applied.SAN,
		Color:    string(res.Applied.Color),
		Position: r.state.Position,
		Seq:      r.state.Seq,
	})
	if r.engine.IsGameOver(r.state.Position) {
		r.finishGame(ctx)
	}
	return res, nil
}

// validate checks turn order then legality. Callers hold mu.
func (r *Room) validate(p *player.Player, move game.Move) (game.MoveResult, error) {
	color, seated := p.Role.Color()
	if !seated {
		return game.MoveResult{}, fmt.Errorf("%w: spectators cannot move", game.ErrOutOfTurn)
	}
	toMove, err := r.engine.SideToMove(r.state.Position)
	if err != nil {
		return game.MoveResult{}, err
	}
	if color != toMove {
		return game.MoveResult{}, fmt.Errorf("%w: %s to move", game.ErrOutOfTurn, toMove.Title())
	}
	return r.engine.ApplyMove(r.state.Position, move)
}

func rejectionKind(err error) string {
	if errors.Is(err, game.ErrOutOfTurn) {
		return "out_of_turn"
	}
	return "illegal"
}

// NewGame resets the room to the initial position and tells every connection,
// spectators included. Any connection may ask.
func (r *Room) NewGame(ctx context.Context, p *player.Player) error {
	ctx, span := tracer.Start(ctx, "room.NewGame", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.member(p) {
		span.SetStatus(codes.Error, "Player not part of room")
		return ErrNotInRoom
	}

	previous := r.state
	if len(previous.History) > 0 && !r.archived {
		r.archiveGame(ctx, previous, game.ResultUnfinished, "abandoned")
	}
	r.state = game.NewGameState(previous.Seq + 1)
	r.archived = false

	r.broadcast(ctx, proto.NewGameMessage(r.state.Position, r.state.Seq))
	metrics.gameReset(ctx, r.ID)
	slog.InfoContext(ctx, "New game started", "room.id", r.ID, "player.id", p.ID, "game.id", r.state.ID)

	r.publish(ctx, events.TypeGameReset, events.GameResetPayload{
		PreviousGameID: previous.ID,
		GameID:         r.state.ID,
		RequestedBy:    p.ID,
		Seq:            r.state.Seq,
	})
	return nil
}

// Disconnect removes p and frees its seat. The seat stays empty until the
// next Connect. It reports whether p was in the room.
func (r *Room) Disconnect(ctx context.Context, p *player.Player) bool {
	ctx, span := tracer.Start(ctx, "room.Disconnect", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, existing := range r.Players {
		if existing == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	freed := r.releaseSeat(p)
	p.Status = player.StatusDisconnected
	p.LastSeen = time.Now()

	span.SetAttributes(attribute.Bool("seat.freed", freed))
	slog.InfoContext(ctx, "Player left room", "room.id", r.ID, "player.id", p.ID, "player.role", p.Role, "seat.freed", freed)
	metrics.connectionChanged(ctx, r.ID, -1)
	r.recordPresence(ctx, *p, false)
	return true
}

// Resync resends p its role and the full position.
func (r *Room) Resync(ctx context.Context, p *player.Player) error {
	ctx, span := tracer.Start(ctx, "room.Resync", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.member(p) {
		return ErrNotInRoom
	}
	r.sendTo(ctx, p, proto.RoleMessage(p.Role))
	r.sendTo(ctx, p, proto.StateMessage(r.state.Position, r.state.Seq))
	return nil
}

// finishGame archives the current game once it can no longer continue. Callers hold mu.
func (r *Room) finishGame(ctx context.Context) {
	if r.archived {
		return
	}
	result, termination := r.engine.Outcome(r.state.Position)
	if termination == "" {
		termination = "no legal moves"
	}
	r.archiveGame(ctx, r.state, result, termination)
	r.archived = true
	slog.InfoContext(ctx, "Game over", "room.id", r.ID, "game.id", r.state.ID, "game.result", result, "game.termination", termination)

	r.publish(ctx, events.TypeGameFinished, events.GameFinishedPayload{
		GameID:      r.state.ID,
		Result:      result,
		Termination: termination,
	})
}
