package render

import (
	"ctchen222/Chess-Room/internal/game"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Grid is the 8x8 board a renderer consumes.
type Grid = game.Board

// Options control orientation and decoration shared by both renderers.
type Options struct {
	// Flip draws the board from Black's side.
	Flip bool
	// Highlight marks squares, typically the last move.
	Highlight []game.Square
	// ASCII uses piece letters instead of chess glyphs.
	ASCII bool
}

var glyphs = map[game.Color]map[game.PieceKind]string{
	game.White: {game.King: "♔", game.Queen: "♕", game.Rook: "♖", game.Bishop: "♗", game.Knight: "♘", game.Pawn: "♙"},
	game.Black: {game.King: "♚", game.Queen: "♛", game.Rook: "♜", game.Bishop: "♝", game.Knight: "♞", game.Pawn: "♟"},
}

const cellWidth = 3

// Text writes the board as lines of text, rank 8 at the top unless flipped.
func Text(w io.Writer, grid Grid, opts Options) error {
	var b strings.Builder
	files := fileLabels(opts.Flip)

	b.WriteString("  ")
	for _, f := range files {
		b.WriteString(runewidth.FillRight(" "+f, cellWidth))
	}
	b.WriteString("\n")

	for _, rank := range rankOrder(opts.Flip) {
		b.WriteByte(byte('1' + rank))
		b.WriteByte(' ')
		for _, file := range fileOrder(opts.Flip) {
			sq := game.SquareAt(file, rank)
			b.WriteString(cell(grid.At(sq), highlighted(opts.Highlight, sq), opts.ASCII))
		}
		b.WriteByte(' ')
		b.WriteByte(byte('1' + rank))
		b.WriteString("\n")
	}

	b.WriteString("  ")
	for _, f := range files {
		b.WriteString(runewidth.FillRight(" "+f, cellWidth))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func cell(p game.Piece, marked, ascii bool) string {
	left, right := " ", " "
	if marked {
		left, right = "[", "]"
	}
	var symbol string
	switch {
	case p.Empty():
		symbol = "·"
	case ascii:
		symbol = string(p.Kind)
		if p.Color == game.White {
			symbol = strings.ToUpper(symbol)
		}
	default:
		symbol = glyphs[p.Color][p.Kind]
	}
	return left + runewidth.FillRight(symbol, 1) + right
}

func highlighted(squares []game.Square, sq game.Square) bool {
	for _, s := range squares {
		if s == sq {
			return true
		}
	}
	return false
}

func rankOrder(flip bool) []int {
	if flip {
		return []int{0, 1, 2, 3, 4, 5, 6, 7}
	}
	return []int{7, 6, 5, 4, 3, 2, 1, 0}
}

func fileOrder(flip bool) []int {
	if flip {
		return []int{7, 6, 5, 4, 3, 2, 1, 0}
	}
	return []int{0, 1, 2, 3, 4, 5, 6, 7}
}

func fileLabels(flip bool) []string {
	var out []string
	for _, f := range fileOrder(flip) {
		out = append(out, string(rune('a'+f)))
	}
	return out
}
