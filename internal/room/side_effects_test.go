package room

import (
	"context"
	"ctchen222/Chess-Room/internal/db"
	"ctchen222/Chess-Room/internal/events"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/internal/repository"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type infra struct {
	events   repository.EventRepository
	presence repository.PlayerRepository
	archive  repository.ArchiveRepository
}

func newInfra(t *testing.T) infra {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(ctx, conn))

	return infra{
		events:   repository.NewEventRepository(rdb),
		presence: repository.NewPlayerRepository(rdb),
		archive:  repository.NewArchiveRepository(conn),
	}
}

func TestCheckmateIsArchivedAndPublished(t *testing.T) {
	deps := newInfra(t)
	r := NewRoom("lobby", Options{Events: deps.events, Presence: deps.presence, Archive: deps.archive})
	ctx := context.Background()

	white := player.NewPlayer("w", "alice", &recordingConn{})
	black := player.NewPlayer("b", "bob", &recordingConn{})
	r.Connect(ctx, white)
	r.Connect(ctx, black)
	gameID := r.Snapshot().GameID

	for i, uci := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		mover := white
		if i%2 == 1 {
			mover = black
		}
		_, err := r.ProposeMove(ctx, mover, mustMove(t, uci))
		require.NoError(t, err)
	}

	snap := r.Snapshot()
	assert.True(t, snap.GameOver)
	assert.Equal(t, game.ResultBlackWins, snap.Result)
	assert.Equal(t, "checkmate", snap.Termination)

	_, err := r.ProposeMove(ctx, white, mustMove(t, "a2a3"))
	assert.ErrorIs(t, err, game.ErrInvalidMove, "no moves after mate")

	require.NoError(t, r.NewGame(ctx, white), "reset after a finished game does not archive twice")
	r.Close()

	archived, err := deps.archive.List(ctx, "lobby", 10)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, gameID, archived[0].ID)
	assert.Equal(t, "alice", archived[0].White)
	assert.Equal(t, "bob", archived[0].Black)
	assert.Equal(t, "0-1", archived[0].Result)
	assert.Equal(t, 4, archived[0].Moves)
	assert.Contains(t, archived[0].PGN, "1. f3 e5 2. g4 Qh4# 0-1")

	recent, err := deps.events.Recent(ctx, "lobby", 20)
	require.NoError(t, err)
	var kinds []string
	for i := len(recent) - 1; i >= 0; i-- {
		kinds = append(kinds, recent[i].Type)
	}
	assert.Equal(t, []string{
		events.TypeSeatChanged, events.TypeSeatChanged,
		events.TypeMoveApplied, events.TypeMoveApplied, events.TypeMoveApplied, events.TypeMoveApplied,
		events.TypeGameFinished,
		events.TypeGameReset,
	}, kinds)

	seats, err := deps.presence.Seats(ctx, "lobby")
	require.NoError(t, err)
	assert.Equal(t, map[game.Role]string{game.RoleWhite: "alice", game.RoleBlack: "bob"}, seats)
}

func TestResetWithMovesArchivesAbandonedGame(t *testing.T) {
	deps := newInfra(t)
	r := NewRoom("r2", Options{Archive: deps.archive, Presence: deps.presence})
	ctx := context.Background()

	white := player.NewPlayer("w", "alice", &recordingConn{})
	r.Connect(ctx, white)
	require.NoError(t, r.NewGame(ctx, white), "reset without moves archives nothing")

	_, err := r.ProposeMove(ctx, white, mustMove(t, "e2e4"))
	require.NoError(t, err)
	require.NoError(t, r.NewGame(ctx, white))
	r.Disconnect(ctx, white)
	r.Close()

	archived, err := deps.archive.List(ctx, "r2", 10)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "*", archived[0].Result)
	assert.Equal(t, "abandoned", archived[0].Termination)
	assert.Equal(t, "?", archived[0].Black)

	presence, err := deps.presence.Find(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, player.StatusDisconnected, presence.Status)
	seats, err := deps.presence.Seats(ctx, "r2")
	require.NoError(t, err)
	assert.Empty(t, seats)
}
