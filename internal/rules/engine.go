package rules

import (
	"ctchen222/Chess-Room/internal/game"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Engine is the pure rule surface the rest of the code relies on. Positions
// go in and out as FEN strings; no call mutates shared state.
type Engine interface {
	InitialPosition() string
	Normalize(position string) (string, error)
	LegalMoves(position string) ([]game.Move, error)
	ApplyMove(position string, move game.Move) (game.MoveResult, error)
	SideToMove(position string) (game.Color, error)
	IsGameOver(position string) bool
	Outcome(position string) (game.Result, string)
	Board(position string) (game.Board, error)
}

type chessEngine struct{}

// New returns the Engine backed by corentings/chess.
func New() Engine {
	return chessEngine{}
}

func (chessEngine) InitialPosition() string {
	return nchess.NewGame().FEN()
}

// Normalize decodes and re-encodes a position.
func (e chessEngine) Normalize(position string) (string, error) {
	g, err := load(position)
	if err != nil {
		return "", err
	}
	return g.FEN(), nil
}

func (chessEngine) LegalMoves(position string) ([]game.Move, error) {
	g, err := load(position)
	if err != nil {
		return nil, err
	}
	valid := g.ValidMoves()
	moves := make([]game.Move, 0, len(valid))
	for _, mv := range valid {
		moves = append(moves, game.Move{
			From:      game.Square(mv.S1().String()),
			To:        game.Square(mv.S2().String()),
			Promotion: kindOf(mv.Promo()),
		})
	}
	return moves, nil
}

// ApplyMove validates move against position and returns the resulting
// position. A promotion letter on a non-promoting move is ignored; a
// promoting move without one becomes a queen.
func (e chessEngine) ApplyMove(position string, move game.Move) (game.MoveResult, error) {
	g, err := load(position)
	if err != nil {
		return game.MoveResult{}, err
	}
	if g.Outcome() != nchess.NoOutcome {
		return game.MoveResult{}, fmt.Errorf("%w: game is over", game.ErrInvalidMove)
	}

	uci, ok := resolve(g, move)
	if !ok {
		return game.MoveResult{}, fmt.Errorf("%w: %s is not legal", game.ErrInvalidMove, move.UCI())
	}

	pos := g.Position()
	mover := colorOf(pos.Turn())
	decoded, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return game.MoveResult{}, fmt.Errorf("%w: decode %s: %v", game.ErrInvalidMove, uci, err)
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, decoded)
	if err := g.Move(decoded, nil); err != nil {
		return game.MoveResult{}, fmt.Errorf("%w: apply %s: %v", game.ErrInvalidMove, uci, err)
	}

	applied, _ := game.ParseUCI(uci)
	return game.MoveResult{
		Position: g.FEN(),
		Applied: game.AppliedMove{
			Move:  applied,
			SAN:   san,
			Color: mover,
		},
	}, nil
}

func (chessEngine) SideToMove(position string) (game.Color, error) {
	g, err := load(position)
	if err != nil {
		return "", err
	}
	return colorOf(g.Position().Turn()), nil
}

// IsGameOver reports whether no further move can be played. Unparseable
// positions count as over.
func (chessEngine) IsGameOver(position string) bool {
	g, err := load(position)
	if err != nil {
		return true
	}
	return g.Outcome() != nchess.NoOutcome || len(g.ValidMoves()) == 0
}

// Outcome returns the PGN result and a lowercase termination method.
func (chessEngine) Outcome(position string) (game.Result, string) {
	g, err := load(position)
	if err != nil {
		return game.ResultUnfinished, ""
	}
	method := strings.ToLower(g.Method().String())
	switch g.Outcome() {
	case nchess.WhiteWon:
		return game.ResultWhiteWins, method
	case nchess.BlackWon:
		return game.ResultBlackWins, method
	case nchess.Draw:
		return game.ResultDraw, method
	}
	return game.ResultUnfinished, ""
}

func (chessEngine) Board(position string) (game.Board, error) {
	var board game.Board
	g, err := load(position)
	if err != nil {
		return board, err
	}
	for sq, piece := range g.Position().Board().SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		board[int(sq.Rank())][int(sq.File())] = game.Piece{
			Color: colorOf(piece.Color()),
			Kind:  kindOf(piece.Type()),
		}
	}
	return board, nil
}

func load(position string) (*nchess.Game, error) {
	opt, err := nchess.FEN(strings.TrimSpace(position))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrInvalidPosition, err)
	}
	return nchess.NewGame(opt), nil
}

// resolve finds the legal move matching from/to and returns its UCI text.
func resolve(g *nchess.Game, move game.Move) (string, bool) {
	from, to := string(move.From), string(move.To)
	var plain string
	promotions := map[game.PieceKind]string{}
	for _, mv := range g.ValidMoves() {
		if mv.S1().String() != from || mv.S2().String() != to {
			continue
		}
		kind := kindOf(mv.Promo())
		if kind == "" {
			plain = from + to
			continue
		}
		promotions[kind] = from + to + string(kind)
	}

	if len(promotions) == 0 {
		return plain, plain != ""
	}
	want := move.Promotion
	if want == "" {
		want = game.Queen
	}
	uci, ok := promotions[want]
	return uci, ok
}

func colorOf(c nchess.Color) game.Color {
	if c == nchess.White {
		return game.White
	}
	return game.Black
}

func kindOf(pt nchess.PieceType) game.PieceKind {
	switch pt {
	case nchess.King:
		return game.King
	case nchess.Queen:
		return game.Queen
	case nchess.Rook:
		return game.Rook
	case nchess.Bishop:
		return game.Bishop
	case nchess.Knight:
		return game.Knight
	case nchess.Pawn:
		return game.Pawn
	}
	return ""
}
