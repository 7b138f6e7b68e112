package room

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("room")

type roomMetrics struct {
	movesApplied  metric.Int64Counter
	movesRejected metric.Int64Counter
	gamesReset    metric.Int64Counter
	connections   metric.Int64UpDownCounter
}

var metrics = newRoomMetrics()

func newRoomMetrics() roomMetrics {
	var m roomMetrics
	var err error
	if m.movesApplied, err = meter.Int64Counter("chess.moves.applied",
		metric.WithDescription("Moves committed by rooms")); err != nil {
		slog.Error("failed to create chess.moves.applied counter", "error", err)
	}
	if m.movesRejected, err = meter.Int64Counter("chess.moves.rejected",
		metric.WithDescription("Proposals rejected as illegal or out of turn")); err != nil {
		slog.Error("failed to create chess.moves.rejected counter", "error", err)
	}
	if m.gamesReset, err = meter.Int64Counter("chess.games.reset",
		metric.WithDescription("New games started by request")); err != nil {
		slog.Error("failed to create chess.games.reset counter", "error", err)
	}
	if m.connections, err = meter.Int64UpDownCounter("chess.connections",
		metric.WithDescription("Open room connections")); err != nil {
		slog.Error("failed to create chess.connections counter", "error", err)
	}
	return m
}

func (m roomMetrics) moveApplied(ctx context.Context, roomID string) {
	if m.movesApplied != nil {
		m.movesApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("room.id", roomID)))
	}
}

func (m roomMetrics) moveRejected(ctx context.Context, roomID, reason string) {
	if m.movesRejected != nil {
		m.movesRejected.Add(ctx, 1, metric.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("reason", reason),
		))
	}
}

func (m roomMetrics) gameReset(ctx context.Context, roomID string) {
	if m.gamesReset != nil {
		m.gamesReset.Add(ctx, 1, metric.WithAttributes(attribute.String("room.id", roomID)))
	}
}

func (m roomMetrics) connectionChanged(ctx context.Context, roomID string, delta int64) {
	if m.connections != nil {
		m.connections.Add(ctx, delta, metric.WithAttributes(attribute.String("room.id", roomID)))
	}
}
