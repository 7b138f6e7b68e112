package repository

import (
	"context"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/player"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("repository")

// presenceTTL bounds how long a stale presence record survives a crashed server.
const presenceTTL = 24 * time.Hour

// Presence is the last known whereabouts of a player.
type Presence struct {
	RoomID string
	Name   string
	Role   game.Role
	Status player.Status
}

// PlayerRepository records which room and seat each player occupies.
type PlayerRepository interface {
	SetPresence(ctx context.Context, p *player.Player, roomID string) error
	SetOffline(ctx context.Context, p *player.Player, roomID string) error
	Find(ctx context.Context, id string) (Presence, error)
	Seats(ctx context.Context, roomID string) (map[game.Role]string, error)
}

type redisPlayerRepository struct {
	rdb *redis.Client
}

// NewPlayerRepository creates a new Redis-based PlayerRepository.
func NewPlayerRepository(rdb *redis.Client) PlayerRepository {
	return &redisPlayerRepository{
		rdb: rdb,
	}
}

func playerKey(id string) string       { return fmt.Sprintf("player:%s", id) }
func roomSeatsKey(roomID string) string { return fmt.Sprintf("room:%s:seats", roomID) }

// SetPresence stores the player's room, role and connection status. Seated
// players are also written to the room's seat hash.
func (r *redisPlayerRepository) SetPresence(ctx context.Context, p *player.Player, roomID string) error {
	ctx, span := tracer.Start(ctx, "PlayerRepository.SetPresence")
	defer span.End()

	key := playerKey(p.ID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"room_id", roomID,
		"name", p.Name,
		"role", string(p.Role),
		"connection_status", string(player.StatusConnected),
	)
	pipe.Expire(ctx, key, presenceTTL)
	if p.Role.IsSeat() {
		pipe.HSet(ctx, roomSeatsKey(roomID), string(p.Role), p.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set presence for %s: %w", p.ID, err)
	}
	return nil
}

// SetOffline marks a player as disconnected and frees their seat entry.
func (r *redisPlayerRepository) SetOffline(ctx context.Context, p *player.Player, roomID string) error {
	ctx, span := tracer.Start(ctx, "PlayerRepository.SetOffline")
	defer span.End()

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, playerKey(p.ID), "connection_status", string(player.StatusDisconnected))
	if p.Role.IsSeat() {
		pipe.HDel(ctx, roomSeatsKey(roomID), string(p.Role))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set %s offline: %w", p.ID, err)
	}
	return nil
}

// Find returns the stored presence for a player.
func (r *redisPlayerRepository) Find(ctx context.Context, id string) (Presence, error) {
	ctx, span := tracer.Start(ctx, "PlayerRepository.Find")
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, playerKey(id)).Result()
	if err != nil {
		return Presence{}, err
	}
	if len(data) == 0 {
		return Presence{}, ErrNotFound
	}
	return Presence{
		RoomID: data["room_id"],
		Name:   data["name"],
		Role:   game.Role(data["role"]),
		Status: player.Status(data["connection_status"]),
	}, nil
}

// Seats returns the names of the seated players in a room, keyed by role.
func (r *redisPlayerRepository) Seats(ctx context.Context, roomID string) (map[game.Role]string, error) {
	ctx, span := tracer.Start(ctx, "PlayerRepository.Seats")
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, roomSeatsKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	seats := make(map[game.Role]string, len(data))
	for role, name := range data {
		seats[game.Role(role)] = name
	}
	return seats, nil
}
