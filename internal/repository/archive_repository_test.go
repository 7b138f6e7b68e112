package repository

import (
	"context"
	"ctchen222/Chess-Room/internal/db"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) ArchiveRepository {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(ctx, conn))
	return NewArchiveRepository(conn)
}

func TestArchiveRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestArchive(t)

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := ArchivedGame{
		ID:          "g1",
		RoomID:      "lobby",
		White:       "alice",
		Black:       "bob",
		Result:      "0-1",
		Termination: "checkmate",
		FinalFEN:    "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		PGN:         "1. f3 e5 2. g4 Qh4# 0-1",
		Moves:       4,
		StartedAt:   started,
		EndedAt:     started.Add(time.Minute),
	}
	require.NoError(t, repo.Save(ctx, g))
	require.NoError(t, repo.Save(ctx, g), "duplicate saves are ignored")

	got, err := repo.FindByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, g.PGN, got.PGN)
	assert.Equal(t, g.Moves, got.Moves)
	assert.True(t, g.EndedAt.Equal(got.EndedAt))

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newTestArchive(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, room := range []string{"a", "b", "a"} {
		require.NoError(t, repo.Save(ctx, ArchivedGame{
			ID:        string(rune('x' + i)),
			RoomID:    room,
			Result:    "*",
			StartedAt: base,
			EndedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "z", all[0].ID, "most recent first")

	inA, err := repo.List(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, inA, 2)
	assert.Equal(t, []string{"z", "x"}, []string{inA[0].ID, inA[1].ID})

	none, err := repo.List(ctx, "c", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
