package repository

import (
	"context"
	"ctchen222/Chess-Room/internal/events"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// recentEventsLimit caps the per-room event log kept in Redis.
const recentEventsLimit = 100

// EventRepository publishes room events and keeps a short per-room log.
type EventRepository interface {
	Publish(ctx context.Context, event events.Event) error
	Recent(ctx context.Context, roomID string, limit int) ([]events.Event, error)
}

type redisEventRepository struct {
	rdb *redis.Client
}

// NewEventRepository creates a new Redis-based EventRepository.
func NewEventRepository(rdb *redis.Client) EventRepository {
	return &redisEventRepository{rdb: rdb}
}

func roomEventsKey(roomID string) string {
	return fmt.Sprintf("room:%s:events", roomID)
}

// Publish sends the event on the global channel and prepends it to the room log.
func (r *redisEventRepository) Publish(ctx context.Context, event events.Event) error {
	ctx, span := tracer.Start(ctx, "EventRepository.Publish", trace.WithAttributes(
		attribute.String("room.id", event.RoomID),
		attribute.String("event.type", event.Type),
	))
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := roomEventsKey(event.RoomID)
	pipe := r.rdb.TxPipeline()
	pipe.Publish(ctx, events.EventsChannel, data)
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, recentEventsLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Recent returns up to limit events for the room, newest first.
func (r *redisEventRepository) Recent(ctx context.Context, roomID string, limit int) ([]events.Event, error) {
	ctx, span := tracer.Start(ctx, "EventRepository.Recent", trace.WithAttributes(
		attribute.String("room.id", roomID),
	))
	defer span.End()

	if limit <= 0 || limit > recentEventsLimit {
		limit = recentEventsLimit
	}
	raw, err := r.rdb.LRange(ctx, roomEventsKey(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events for room %s: %w", roomID, err)
	}

	out := make([]events.Event, 0, len(raw))
	for _, item := range raw {
		var ev events.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}
