package room

import (
	"context"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/internal/validator"
	"ctchen222/Chess-Room/pkg/proto"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMessage handles a message from a player. It acts as a dispatcher
// over the client message kinds; malformed frames are logged and dropped.
func (r *Room) HandleMessage(p *player.Player, rawMessage []byte) {
	ctx := context.Background()
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling message", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		return
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		return
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	var err error
	switch message.Type {
	case proto.TypeMove:
		_, err = r.ProposeMove(ctx, p, *message.Move)
	case proto.TypeNewGame:
		err = r.NewGame(ctx, p)
	case proto.TypeSync:
		err = r.Resync(ctx, p)
	}
	if errors.Is(err, ErrNotInRoom) {
		slog.WarnContext(ctx, "ignoring message from player outside room", "player.id", p.ID, "room.id", r.ID)
	}
}
