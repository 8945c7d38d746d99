package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/cheese-chess/internal/chess"
)

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func sameRGB(a color.Color, b color.RGBA) bool {
	r, g, bl, _ := a.RGBA()
	return uint8(r>>8) == b.R && uint8(g>>8) == b.G && uint8(bl>>8) == b.B
}

func TestRenderPNGSizeAndSquares(t *testing.T) {
	raw, err := RenderPNG(context.Background(), chess.NewStandardBoard(), Options{SquareSize: 40, Header: "Local", Turn: "White to move"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, raw)
	total, board := Layout(40)
	if img.Bounds() != total {
		t.Fatalf("bounds = %v, want %v", img.Bounds(), total)
	}
	// e4 (x=4,y=4) is empty and light; d4 is dark
	e4 := board.Min.Add(image.Pt(4*40+2, 4*40+2))
	if !sameRGB(img.At(e4.X, e4.Y), lightSquare) {
		t.Fatalf("e4 corner = %v", img.At(e4.X, e4.Y))
	}
	d4 := board.Min.Add(image.Pt(3*40+2, 4*40+2))
	if !sameRGB(img.At(d4.X, d4.Y), darkSquare) {
		t.Fatalf("d4 corner = %v", img.At(d4.X, d4.Y))
	}
}

func TestRenderPNGHighlightsAndSelection(t *testing.T) {
	b := chess.NewStandardBoard()
	from, to := chess.Pos(4, 6), chess.Pos(4, 4)
	if _, err := b.Relocate(from, to); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	sel := chess.Pos(6, 7)
	raw, err := RenderPNG(context.Background(), b, Options{
		SquareSize: 40,
		LastMove:   &chess.Move{From: from, To: to},
		Selected:   &sel,
		Targets:    []chess.Position{chess.Pos(5, 5)},
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, raw)
	_, board := Layout(40)
	corner := func(p chess.Position) (int, int) {
		return board.Min.X + p.X*40 + 2, board.Min.Y + p.Y*40 + 2
	}
	if x, y := corner(from); sameRGB(img.At(x, y), lightSquare) || sameRGB(img.At(x, y), darkSquare) {
		t.Fatalf("last move origin not highlighted")
	}
	if x, y := corner(sel); sameRGB(img.At(x, y), lightSquare) || sameRGB(img.At(x, y), darkSquare) {
		t.Fatalf("selection not highlighted")
	}
	cx, cy := board.Min.X+5*40+20, board.Min.Y+5*40+20
	if sameRGB(img.At(cx, cy), lightSquare) || sameRGB(img.At(cx, cy), darkSquare) {
		t.Fatalf("target dot missing")
	}
}

func TestRenderPNGErrors(t *testing.T) {
	if _, err := RenderPNG(context.Background(), nil, Options{}); !errors.Is(err, ErrNilBoard) {
		t.Fatalf("nil board err = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RenderPNG(ctx, chess.NewStandardBoard(), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled err = %v", err)
	}
	if _, err := RenderPNG(context.Background(), chess.NewStandardBoard(), Options{SquareSize: 1000}); err == nil {
		t.Fatalf("oversized square accepted")
	}
}

func TestPieceGlyphsRasterise(t *testing.T) {
	for _, kind := range []chess.Kind{chess.Pawn, chess.Knight, chess.Bishop, chess.Rook, chess.Queen, chess.King} {
		for _, c := range []chess.Color{chess.White, chess.Black} {
			p := chess.NewPiece(kind, c)
			img, err := renderPieceImage(p, 48)
			if err != nil {
				t.Fatalf("renderPieceImage(%s): %v", p, err)
			}
			opaque := 0
			b := img.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
						opaque++
					}
				}
			}
			if opaque < 100 {
				t.Fatalf("%s glyph nearly empty (%d pixels)", p, opaque)
			}
			again, _ := renderPieceImage(p, 48)
			if again != img {
				t.Fatalf("%s glyph not cached", p)
			}
		}
	}
	if _, err := glyphSVG(chess.Piece{}); err == nil {
		t.Fatalf("empty piece produced a glyph")
	}
}
