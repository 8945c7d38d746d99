package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

type pieceCacheKey struct {
	piece chess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// Glyph bodies on a 45x45 view box. Fill and stroke are substituted per color.
var glyphBodies = map[chess.Kind]string{
	chess.Pawn: `<circle cx="22.5" cy="15" r="6.5"/>` +
		`<polygon points="18,21 27,21 31,36 14,36"/>` +
		`<rect x="11" y="36" width="23" height="5"/>`,
	chess.Rook: `<polygon points="12,9 17,9 17,12 20,12 20,9 25,9 25,12 28,12 28,9 33,9 33,16 30,18 30,34 15,34 15,18 12,16"/>` +
		`<rect x="10" y="34" width="25" height="7"/>`,
	chess.Knight: `<polygon points="14,38 33,38 32,26 34,16 29,9 22,8 17,11 11,20 12,25 16,25 21,21 22,24 16,31"/>` +
		`<circle cx="24" cy="14" r="1.5"/>`,
	chess.Bishop: `<circle cx="22.5" cy="8" r="3"/>` +
		`<ellipse cx="22.5" cy="21" rx="7.5" ry="10"/>` +
		`<rect x="15" y="30" width="15" height="4"/>` +
		`<rect x="10" y="35" width="25" height="6"/>`,
	chess.Queen: `<polygon points="9,14 15,27 16,12 20,26 22.5,10 25,26 29,12 30,27 36,14 32,36 13,36"/>` +
		`<circle cx="9" cy="12" r="2.5"/><circle cx="16" cy="10" r="2.5"/><circle cx="22.5" cy="8" r="2.5"/>` +
		`<circle cx="29" cy="10" r="2.5"/><circle cx="36" cy="12" r="2.5"/>` +
		`<rect x="11" y="36" width="23" height="5"/>`,
	chess.King: `<rect x="21" y="4" width="3" height="11"/><rect x="17.5" y="7" width="10" height="3"/>` +
		`<polygon points="12,20 22.5,15 33,20 31,36 14,36"/>` +
		`<rect x="11" y="36" width="23" height="5"/>`,
}

// glyphSVG renders the icon for p as a standalone SVG document.
func glyphSVG(p chess.Piece) (string, error) {
	body, ok := glyphBodies[p.Kind]
	if !ok {
		return "", fmt.Errorf("no glyph for %s", p.Kind)
	}
	fill, stroke := "#f8f6f0", "#1c1c1c"
	if p.Color == chess.Black {
		fill, stroke = "#262626", "#f0f0f0"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&b, `<g fill="%s" stroke="%s" stroke-width="1.5">`, fill, stroke)
	b.WriteString(body)
	b.WriteString(`</g></svg>`)
	return b.String(), nil
}

func renderPieceImage(piece chess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	doc, err := glyphSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(doc))
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
