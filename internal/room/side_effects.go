package room

import (
	"context"
	"ctchen222/Chess-Room/internal/events"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/internal/repository"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sideEffect is infrastructure work that follows a commit. It runs on the
// room's side effect goroutine, in commit order, and never reaches players.
type sideEffect struct {
	name string
	ctx  context.Context
	run  func(ctx context.Context) error
}

func (r *Room) runSideEffects() {
	defer r.effectsDone.Done()
	for effect := range r.effects {
		ctx, span := tracer.Start(effect.ctx, effect.name, trace.WithAttributes(
			attribute.String("room.id", r.ID),
		))
		if err := effect.run(ctx); err != nil {
			slog.ErrorContext(ctx, "room side effect failed", "room.id", r.ID, "effect", effect.name, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Side effect failed")
		}
		span.End()
	}
}

// enqueue schedules a side effect. Callers hold mu. A full queue drops the
// effect rather than stall the room.
func (r *Room) enqueue(ctx context.Context, name string, run func(ctx context.Context) error) {
	if r.closed {
		return
	}
	effect := sideEffect{name: name, ctx: context.WithoutCancel(ctx), run: run}
	select {
	case r.effects <- effect:
	default:
		slog.WarnContext(ctx, "side effect queue full, dropping", "room.id", r.ID, "effect", name)
	}
}

func (r *Room) publish(ctx context.Context, eventType string, payload any) {
	if r.events == nil {
		return
	}
	ev, err := events.New(eventType, r.ID, payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build event", "room.id", r.ID, "error", err)
		return
	}
	r.enqueue(ctx, "room.publish."+eventType, func(ctx context.Context) error {
		return r.events.Publish(ctx, ev)
	})
}

// recordPresence stores p's seat in Redis and publishes the seat change. p is
// a copy so the queued work never reads a live player.
func (r *Room) recordPresence(ctx context.Context, p player.Player, joined bool) {
	if r.presence != nil {
		r.enqueue(ctx, "room.presence", func(ctx context.Context) error {
			if joined {
				return r.presence.SetPresence(ctx, &p, r.ID)
			}
			return r.presence.SetOffline(ctx, &p, r.ID)
		})
	}
	r.publish(ctx, events.TypeSeatChanged, events.SeatChangedPayload{
		PlayerID: p.ID,
		Name:     p.Name,
		Role:     p.Role,
		Joined:   joined,
	})
}

// archiveGame stores a game with its PGN. Callers hold mu.
func (r *Room) archiveGame(ctx context.Context, state game.GameState, result game.Result, termination string) {
	if r.archive == nil {
		return
	}
	ended := time.Now()
	white, black := r.seatName(game.RoleWhite), r.seatName(game.RoleBlack)
	record := repository.ArchivedGame{
		ID:          state.ID,
		RoomID:      r.ID,
		White:       white,
		Black:       black,
		Result:      string(result),
		Termination: termination,
		FinalFEN:    state.Position,
		Moves:       len(state.History),
		StartedAt:   state.StartedAt,
		EndedAt:     ended,
		PGN: game.BuildPGN(game.PGNHeader{
			Event:       "Casual game",
			Site:        "room " + r.ID,
			Date:        state.StartedAt,
			White:       white,
			Black:       black,
			Result:      result,
			Termination: termination,
		}, state.History),
	}
	r.enqueue(ctx, "room.archive", func(ctx context.Context) error {
		return r.archive.Save(ctx, record)
	})
}
