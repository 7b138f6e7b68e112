package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the seat a connection holds in a room.
type Role string

// Color is a chess side.
type Color string

// PieceKind is a lowercase piece letter as used in UCI promotions.
type PieceKind string

const (
	// Roles
	RoleWhite     Role = "white"
	RoleBlack     Role = "black"
	RoleSpectator Role = "spectator"

	// Colors
	White Color = "white"
	Black Color = "black"

	// Piece kinds
	King   PieceKind = "k"
	Queen  PieceKind = "q"
	Rook   PieceKind = "r"
	Bishop PieceKind = "b"
	Knight PieceKind = "n"
	Pawn   PieceKind = "p"

	// InitialPosition is the standard starting position in FEN.
	InitialPosition = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

var (
	ErrInvalidMove     = errors.New("invalid move")
	ErrOutOfTurn       = errors.New("not player's turn")
	ErrDesync          = errors.New("local state out of sync with authority")
	ErrInvalidPosition = errors.New("invalid position encoding")
)

// IsSeat reports whether the role is one of the two player seats.
func (r Role) IsSeat() bool {
	return r == RoleWhite || r == RoleBlack
}

// Color returns the color a seated role plays. Spectators have no color.
func (r Role) Color() (Color, bool) {
	switch r {
	case RoleWhite:
		return White, true
	case RoleBlack:
		return Black, true
	}
	return "", false
}

// Title returns "White" or "Black".
func (c Color) Title() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// Opposite returns the other side.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// Square is a board coordinate such as "e4".
type Square string

// ParseSquare validates and normalizes a square name.
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return "", fmt.Errorf("%w: bad square %q", ErrInvalidMove, s)
	}
	return Square(s), nil
}

// SquareAt returns the square for zero-based file and rank indexes.
func SquareAt(file, rank int) Square {
	return Square([]byte{byte('a' + file), byte('1' + rank)})
}

// File returns the zero-based file index.
func (s Square) File() int { return int(s[0] - 'a') }

// Rank returns the zero-based rank index.
func (s Square) Rank() int { return int(s[1] - '1') }

// Move is a proposed transition. It is only ever a message payload.
type Move struct {
	From      Square    `json:"from" validate:"required,square"`
	To        Square    `json:"to" validate:"required,square"`
	Promotion PieceKind `json:"promotion,omitempty" validate:"omitempty,promotion"`
}

// UCI renders the move in long algebraic form, e.g. "e7e8q".
func (m Move) UCI() string {
	return string(m.From) + string(m.To) + string(m.Promotion)
}

func (m Move) String() string { return m.UCI() }

// ParseUCI parses "e2e4" or "e7e8q".
func ParseUCI(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	mv := Move{From: from, To: to}
	if len(s) == 5 {
		promo := PieceKind(s[4:])
		if !promo.IsPromotion() {
			return Move{}, fmt.Errorf("%w: bad promotion %q", ErrInvalidMove, s[4:])
		}
		mv.Promotion = promo
	}
	return mv, nil
}

// IsPromotion reports whether a pawn may promote to this kind.
func (k PieceKind) IsPromotion() bool {
	switch k {
	case Queen, Rook, Bishop, Knight:
		return true
	}
	return false
}

// AppliedMove is a move that passed validation, with its description.
type AppliedMove struct {
	Move  Move   `json:"move"`
	SAN   string `json:"san"`
	Color Color  `json:"color"`
}

// Description is the human-readable line shown to participants.
func (a AppliedMove) Description() string {
	return fmt.Sprintf("%s moved %s", a.Color.Title(), a.SAN)
}

// MoveResult is the outcome of applying a legal move to a position.
type MoveResult struct {
	Position string
	Applied  AppliedMove
}

// GameState is the canonical state owned by a room. It is replaced, never
// patched: every transition produces a new value.
type GameState struct {
	ID        string
	Position  string
	History   []AppliedMove
	Seq       uint64
	StartedAt time.Time
}

// NewGameState returns a fresh game at the initial position. seq carries the
// sequence counter across resets so participants never see it go backwards.
func NewGameState(seq uint64) GameState {
	return GameState{
		ID:        uuid.New().String(),
		Position:  InitialPosition,
		History:   nil,
		Seq:       seq,
		StartedAt: time.Now(),
	}
}

// With returns the state after committing a move result.
func (g GameState) With(res MoveResult) GameState {
	history := make([]AppliedMove, len(g.History), len(g.History)+1)
	copy(history, g.History)
	return GameState{
		ID:        g.ID,
		Position:  res.Position,
		History:   append(history, res.Applied),
		Seq:       g.Seq + 1,
		StartedAt: g.StartedAt,
	}
}

// Piece is an occupant of a board square. The zero value is an empty square.
type Piece struct {
	Color Color     `json:"color,omitempty"`
	Kind  PieceKind `json:"kind,omitempty"`
}

// Empty reports whether the square holds no piece.
func (p Piece) Empty() bool { return p.Kind == "" }

// Board is an 8x8 grid indexed [rank][file], rank 0 being White's back rank.
type Board [8][8]Piece

// At returns the occupant of a square.
func (b Board) At(sq Square) Piece { return b[sq.Rank()][sq.File()] }
