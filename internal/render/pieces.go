package render

import (
	"ctchen222/Chess-Room/internal/game"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece silhouettes on a 45x45 canvas.
var pieceShapes = map[game.PieceKind]string{
	game.Pawn: `<circle cx="22.5" cy="14" r="5"/>
		<polygon points="16,34 29,34 25.5,20 19.5,20"/>`,
	game.Rook: `<polygon points="11,9 15,9 15,12 20,12 20,9 25,9 25,12 30,12 30,9 34,9 34,16 11,16"/>
		<polygon points="13,34 32,34 30,16 15,16"/>`,
	game.Knight: `<polygon points="13,34 32,34 31,21 27,10 23,8 19,11 12,19 14,23 20,21 17,34"/>`,
	game.Bishop: `<circle cx="22.5" cy="8" r="2.5"/>
		<polygon points="15,34 30,34 27,19 22.5,10.5 18,19"/>`,
	game.Queen: `<polygon points="10,34 35,34 37,12 30,24 27,9 22.5,23 18,9 15,24 8,12"/>`,
	game.King: `<rect x="21" y="4" width="3" height="12"/>
		<rect x="17" y="7" width="11" height="3"/>
		<polygon points="12,34 33,34 31,17 14,17"/>`,
}

const pieceBase = `<rect x="9" y="35" width="27" height="5"/>`

func pieceSVG(p game.Piece) (string, error) {
	shape, ok := pieceShapes[p.Kind]
	if !ok {
		return "", fmt.Errorf("unknown piece kind %q", p.Kind)
	}
	fill, stroke := "#f8f8f8", "#1e1e1e"
	if p.Color == game.Black {
		fill, stroke = "#1e1e1e", "#e0e0e0"
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`+
		`<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">%s%s</g></svg>`,
		fill, stroke, shape, pieceBase), nil
}

type pieceCacheKey struct {
	piece game.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(p game.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: p, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	svg, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
