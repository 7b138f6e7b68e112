package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ArchivedGame is a finished or abandoned game as stored in SQL.
type ArchivedGame struct {
	ID          string    `db:"id" json:"id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	White       string    `db:"white" json:"white"`
	Black       string    `db:"black" json:"black"`
	Result      string    `db:"result" json:"result"`
	Termination string    `db:"termination" json:"termination"`
	FinalFEN    string    `db:"final_fen" json:"final_fen"`
	PGN         string    `db:"pgn" json:"pgn"`
	Moves       int       `db:"moves" json:"moves"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	EndedAt     time.Time `db:"ended_at" json:"ended_at"`
}

// ArchiveRepository stores completed games.
type ArchiveRepository interface {
	Save(ctx context.Context, g ArchivedGame) error
	FindByID(ctx context.Context, id string) (*ArchivedGame, error)
	List(ctx context.Context, roomID string, limit int) ([]ArchivedGame, error)
}

type sqlArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository creates a new SQL-based ArchiveRepository.
func NewArchiveRepository(db *sqlx.DB) ArchiveRepository {
	return &sqlArchiveRepository{db: db}
}

const archiveColumns = `id, room_id, white, black, result, termination, final_fen, pgn, moves, started_at, ended_at`

// Save inserts a game. Saving the same ID twice is a no-op.
func (r *sqlArchiveRepository) Save(ctx context.Context, g ArchivedGame) error {
	ctx, span := tracer.Start(ctx, "ArchiveRepository.Save", trace.WithAttributes(
		attribute.String("game.id", g.ID),
		attribute.String("room.id", g.RoomID),
	))
	defer span.End()

	query := r.db.Rebind(`INSERT INTO games (` + archiveColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.RoomID, g.White, g.Black, g.Result, g.Termination,
		g.FinalFEN, g.PGN, g.Moves, g.StartedAt.UTC(), g.EndedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to archive game %s: %w", g.ID, err)
	}
	return nil
}

// FindByID returns one archived game or ErrNotFound.
func (r *sqlArchiveRepository) FindByID(ctx context.Context, id string) (*ArchivedGame, error) {
	ctx, span := tracer.Start(ctx, "ArchiveRepository.FindByID", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	var g ArchivedGame
	query := r.db.Rebind(`SELECT ` + archiveColumns + ` FROM games WHERE id = ?`)
	if err := r.db.GetContext(ctx, &g, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load game %s: %w", id, err)
	}
	return &g, nil
}

// List returns the most recently ended games, optionally filtered by room.
func (r *sqlArchiveRepository) List(ctx context.Context, roomID string, limit int) ([]ArchivedGame, error) {
	ctx, span := tracer.Start(ctx, "ArchiveRepository.List", trace.WithAttributes(
		attribute.String("room.id", roomID),
	))
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	games := []ArchivedGame{}
	var err error
	if roomID == "" {
		query := r.db.Rebind(`SELECT ` + archiveColumns + ` FROM games ORDER BY ended_at DESC LIMIT ?`)
		err = r.db.SelectContext(ctx, &games, query, limit)
	} else {
		query := r.db.Rebind(`SELECT ` + archiveColumns + ` FROM games WHERE room_id = ? ORDER BY ended_at DESC LIMIT ?`)
		err = r.db.SelectContext(ctx, &games, query, roomID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}
