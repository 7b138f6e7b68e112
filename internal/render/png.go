package render

import (
	"ctchen222/Chess-Room/internal/game"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	squareSize  = 64
	boardMargin = 24
	boardPixels = squareSize * 8
	imageSize   = boardPixels + boardMargin*2
)

var (
	backgroundColor  = color.RGBA{R: 0x31, G: 0x2e, B: 0x2b, A: 0xff}
	lightSquare      = color.RGBA{R: 0xf0, G: 0xd9, B: 0xb5, A: 0xff}
	darkSquare       = color.RGBA{R: 0xb5, G: 0x88, B: 0x63, A: 0xff}
	lightHighlighted = color.RGBA{R: 0xcd, G: 0xd2, B: 0x6a, A: 0xff}
	darkHighlighted  = color.RGBA{R: 0xaa, G: 0xa2, B: 0x3a, A: 0xff}
	coordinateColor  = color.RGBA{R: 0xe8, G: 0xe6, B: 0xe3, A: 0xff}
)

// ImageSize is the width and height of a PNG produced by PNG.
const ImageSize = imageSize

// PNG rasterizes the board and writes it as PNG.
func PNG(w io.Writer, grid Grid, opts Options) error {
	img := image.NewRGBA(image.Rect(0, 0, imageSize, imageSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	origin := image.Point{X: boardMargin, Y: boardMargin}
	for row, rank := range rankOrder(opts.Flip) {
		for col, file := range fileOrder(opts.Flip) {
			sq := game.SquareAt(file, rank)
			cellRect := image.Rect(0, 0, squareSize, squareSize).Add(origin).Add(image.Pt(col*squareSize, row*squareSize))
			draw.Draw(img, cellRect, image.NewUniform(squareColor(sq, highlighted(opts.Highlight, sq))), image.Point{}, draw.Src)

			p := grid.At(sq)
			if p.Empty() {
				continue
			}
			pieceImg, err := renderPieceImage(p, squareSize)
			if err != nil {
				return fmt.Errorf("render %s%s on %s: %w", p.Color, p.Kind, sq, err)
			}
			draw.Draw(img, cellRect, pieceImg, image.Point{}, draw.Over)
		}
	}
	drawCoordinates(img, origin, opts.Flip)

	return png.Encode(w, img)
}

// squareColor follows the usual pattern: a1 is dark.
func squareColor(sq game.Square, marked bool) color.Color {
	light := (sq.File()+sq.Rank())%2 == 1
	switch {
	case light && marked:
		return lightHighlighted
	case light:
		return lightSquare
	case marked:
		return darkHighlighted
	default:
		return darkSquare
	}
}

func drawCoordinates(dst draw.Image, origin image.Point, flip bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(coordinateColor),
		Face: face,
	}
	ascent := face.Metrics().Ascent.Ceil()

	for row, rank := range rankOrder(flip) {
		label := string(rune('1' + rank))
		y := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCentered(drawer, label, origin.X/2, y)
		drawCentered(drawer, label, origin.X+boardPixels+boardMargin/2, y)
	}
	for col, file := range fileOrder(flip) {
		label := string(rune('a' + file))
		x := origin.X + col*squareSize + squareSize/2
		drawCentered(drawer, label, x, origin.Y-boardMargin/2+ascent/2)
		drawCentered(drawer, label, x, origin.Y+boardPixels+boardMargin/2+ascent/2)
	}
}

func drawCentered(d *font.Drawer, text string, centerX, baseline int) {
	width := d.MeasureString(text).Ceil()
	d.Dot = fixed.P(centerX-width/2, baseline)
	d.DrawString(text)
}
