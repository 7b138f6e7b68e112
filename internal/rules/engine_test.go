package rules

import (
	"ctchen222/Chess-Room/internal/game"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func play(t *testing.T, e Engine, position string, moves ...string) string {
	t.Helper()
	for _, uci := range moves {
		mv, err := game.ParseUCI(uci)
		require.NoError(t, err)
		res, err := e.ApplyMove(position, mv)
		require.NoError(t, err, "move %s", uci)
		position = res.Position
	}
	return position
}

func TestInitialPosition(t *testing.T) {
	e := New()
	assert.Equal(t, game.InitialPosition, e.InitialPosition())

	moves, err := e.LegalMoves(e.InitialPosition())
	require.NoError(t, err)
	assert.Len(t, moves, 20)

	side, err := e.SideToMove(e.InitialPosition())
	require.NoError(t, err)
	assert.Equal(t, game.White, side)
	assert.False(t, e.IsGameOver(e.InitialPosition()))
}

func TestApplyMove_FirstMove(t *testing.T) {
	e := New()
	res, err := e.ApplyMove(game.InitialPosition, game.Move{From: "e2", To: "e4"})
	require.NoError(t, err)

	assert.Equal(t, "e4", res.Applied.SAN)
	assert.Equal(t, game.White, res.Applied.Color)
	assert.Equal(t, game.Move{From: "e2", To: "e4"}, res.Applied.Move)

	side, err := e.SideToMove(res.Position)
	require.NoError(t, err)
	assert.Equal(t, game.Black, side)

	board, err := e.Board(res.Position)
	require.NoError(t, err)
	assert.Equal(t, game.Piece{Color: game.White, Kind: game.Pawn}, board.At("e4"))
	assert.True(t, board.At("e2").Empty())
}

func TestApplyMove_Rejections(t *testing.T) {
	e := New()
	tests := []struct {
		name string
		move game.Move
	}{
		{name: "Pawn three squares", move: game.Move{From: "e2", To: "e5"}},
		{name: "Empty source square", move: game.Move{From: "e4", To: "e5"}},
		{name: "Black piece on White's turn", move: game.Move{From: "e7", To: "e5"}},
		{name: "Knight moving straight", move: game.Move{From: "g1", To: "g3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ApplyMove(game.InitialPosition, tt.move)
			assert.ErrorIs(t, err, game.ErrInvalidMove)
		})
	}
}

func TestApplyMove_IgnoresPromotionOnOrdinaryMove(t *testing.T) {
	e := New()
	res, err := e.ApplyMove(game.InitialPosition, game.Move{From: "e2", To: "e4", Promotion: game.Queen})
	require.NoError(t, err)
	assert.Equal(t, game.PieceKind(""), res.Applied.Move.Promotion)
}

func TestApplyMove_Promotion(t *testing.T) {
	e := New()
	const position = "8/P7/8/8/8/8/8/k6K w - - 0 1"

	res, err := e.ApplyMove(position, game.Move{From: "a7", To: "a8"})
	require.NoError(t, err)
	assert.Equal(t, game.Queen, res.Applied.Move.Promotion, "defaults to queen")

	res, err = e.ApplyMove(position, game.Move{From: "a7", To: "a8", Promotion: game.Knight})
	require.NoError(t, err)
	board, err := e.Board(res.Position)
	require.NoError(t, err)
	assert.Equal(t, game.Piece{Color: game.White, Kind: game.Knight}, board.At("a8"))
}

func TestCheckmateEndsGame(t *testing.T) {
	e := New()
	position := play(t, e, game.InitialPosition, "f2f3", "e7e5", "g2g4", "d8h4")

	assert.True(t, e.IsGameOver(position))
	result, method := e.Outcome(position)
	assert.Equal(t, game.ResultBlackWins, result)
	assert.Equal(t, "checkmate", method)

	_, err := e.ApplyMove(position, game.Move{From: "a2", To: "a3"})
	assert.ErrorIs(t, err, game.ErrInvalidMove)
}

func TestPositionRoundTrip(t *testing.T) {
	e := New()
	positions := []string{
		e.InitialPosition(),
		play(t, e, game.InitialPosition, "e2e4"),
		play(t, e, game.InitialPosition, "e2e4", "c7c5", "g1f3", "d7d6"),
		play(t, e, game.InitialPosition, "e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1"),
	}
	for _, encoded := range positions {
		decoded, err := e.Normalize(encoded)
		require.NoError(t, err)
		again, err := e.Normalize(decoded)
		require.NoError(t, err)
		assert.Equal(t, encoded, decoded)
		assert.Equal(t, decoded, again)
	}
}

func TestInvalidPosition(t *testing.T) {
	e := New()
	_, err := e.Normalize("not a fen")
	assert.ErrorIs(t, err, game.ErrInvalidPosition)

	_, err = e.ApplyMove("not a fen", game.Move{From: "e2", To: "e4"})
	assert.ErrorIs(t, err, game.ErrInvalidPosition)
	assert.True(t, e.IsGameOver("not a fen"))
}
