// Package render draws a board as PNG: squares, coordinates, piece glyphs,
// the last move and the current selection with its legal targets.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/park285/cheese-chess/internal/chess"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const DefaultSquareSize = 64

type Options struct {
	SquareSize int
	LastMove   *chess.Move
	Selected   *chess.Position
	Targets    []chess.Position
	Header     string
	Turn       string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *chess.Board, opts Options) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewRenderer() BoardRenderer { return &svgBoardRenderer{} }

// RenderPNG is the package-level shortcut for NewRenderer().RenderPNG.
func RenderPNG(ctx context.Context, board *chess.Board, opts Options) ([]byte, error) {
	return NewRenderer().RenderPNG(ctx, board, opts)
}

var ErrNilBoard = errors.New("board is nil")

// Layout returns the board rectangle inside an image rendered with squareSize.
func Layout(squareSize int) (total image.Rectangle, board image.Rectangle) {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	boardSize := squareSize * chess.BoardSize
	total = image.Rect(0, 0, boardSize+sideMargin*2, boardSize+topMargin+bottomMargin)
	board = image.Rect(sideMargin, topMargin, sideMargin+boardSize, topMargin+boardSize)
	return total, board
}

const (
	sideMargin       = 28
	topMargin        = 84
	bottomMargin     = 28
	titleHeight      = 26
	turnPanelHeight  = 22
	gapBetweenPanels = 6
	gapToBoard       = 10
	panelRadius      = 8
	panelPaddingX    = 14
	shadowOffsetY    = 3
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *chess.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, ErrNilBoard
	}
	squareSize := opts.SquareSize
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	if squareSize > 256 {
		return nil, fmt.Errorf("square size %d too large", squareSize)
	}
	total, boardRect := Layout(squareSize)
	origin := boardRect.Min

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(total)
	imagedraw.Draw(img, total, image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, boardRect)
	drawSquares(img, squareSize, origin)
	drawHighlight(img, board, opts.LastMove, squareSize, origin)
	if opts.Selected != nil && opts.Selected.InBounds() {
		drawSquareOverlay(img, *opts.Selected, squareSize, origin, selectionColor)
	}
	if err := drawPieces(img, board, squareSize, origin); err != nil {
		return nil, err
	}
	drawTargets(img, board, opts.Targets, squareSize, origin)
	drawCoordinates(img, squareSize, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor         = color.RGBA{R: 22, G: 24, B: 36, A: 255}
	lightSquare             = color.RGBA{233, 207, 163, 255}
	darkSquare              = color.RGBA{187, 136, 96, 255}
	selectionColor          = color.NRGBA{R: 96, G: 170, B: 96, A: 150}
	targetColor             = color.NRGBA{R: 40, G: 40, B: 40, A: 110}
	captureTargetColor      = color.NRGBA{R: 200, G: 40, B: 40, A: 140}
	whiteMoveHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	hudPanelColor           = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor       = color.NRGBA{R: 40, G: 44, B: 64, A: 245}
	hudShadowColor          = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary          = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor        = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateTextColor     = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func squareColor(pos chess.Position) color.Color {
	if (pos.X+pos.Y)%2 == 0 {
		return lightSquare
	}
	return darkSquare
}

func squareRect(pos chess.Position, squareSize int, origin image.Point) image.Rectangle {
	x := origin.X + pos.X*squareSize
	y := origin.Y + pos.Y*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareCenter(pos chess.Position, squareSize int, origin image.Point) image.Point {
	r := squareRect(pos, squareSize, origin)
	return image.Pt(r.Min.X+squareSize/2, r.Min.Y+squareSize/2)
}

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for y := 0; y < chess.BoardSize; y++ {
		for x := 0; x < chess.BoardSize; x++ {
			pos := chess.Pos(x, y)
			imagedraw.Draw(dst, squareRect(pos, squareSize, origin), image.NewUniform(squareColor(pos)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *chess.Board, squareSize int, origin image.Point) error {
	var err error
	board.Pieces(func(pos chess.Position, p chess.Piece) bool {
		var glyph image.Image
		glyph, err = renderPieceImage(p, squareSize)
		if err != nil {
			return false
		}
		imagedraw.Draw(dst, squareRect(pos, squareSize, origin), glyph, image.Point{}, imagedraw.Over)
		return true
	})
	return err
}

func drawHighlight(img *image.RGBA, board *chess.Board, mv *chess.Move, squareSize int, origin image.Point) {
	if mv == nil || !mv.From.InBounds() || !mv.To.InBounds() {
		return
	}
	mover := board.At(mv.To).Color
	if mover == chess.NoColor {
		mover = board.At(mv.From).Color
	}
	if mover == chess.Black {
		drawArrow(img, mv.From, mv.To, squareSize, origin, blackMoveHighlightArrow)
		return
	}
	drawSquareOverlay(img, mv.From, squareSize, origin, whiteMoveHighlightFill)
	drawSquareOverlay(img, mv.To, squareSize, origin, whiteMoveHighlightFill)
}

// drawTargets marks legal destinations: a dot on empty squares, a ring around captures.
func drawTargets(img *image.RGBA, board *chess.Board, targets []chess.Position, squareSize int, origin image.Point) {
	for _, t := range targets {
		if !t.InBounds() {
			continue
		}
		c := squareCenter(t, squareSize, origin)
		if board.At(t).IsZero() {
			drawDisc(img, c, squareSize/7, targetColor)
			continue
		}
		drawRing(img, c, squareSize/2-2, squareSize/12+1, captureTargetColor)
	}
}

func drawSquareOverlay(img *image.RGBA, pos chess.Position, squareSize int, origin image.Point, clr color.Color) {
	imagedraw.Draw(img, squareRect(pos, squareSize, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawHUD(img *image.RGBA, opts Options, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.Header)
	if title == "" {
		title = "Chess"
	}
	turn := strings.TrimSpace(opts.Turn)

	turnBottom := boardRect.Min.Y - gapToBoard
	turnTop := turnBottom - turnPanelHeight
	titleBottom := turnTop - gapBetweenPanels
	titleTop := titleBottom - titleHeight

	maxWidth := boardRect.Dx()
	titleWidth := clampInt(drawer.MeasureString(title).Round()+panelPaddingX*2, 160, maxWidth)
	titleRect := image.Rect(boardRect.Min.X, titleTop, boardRect.Min.X+titleWidth, titleBottom)
	drawRoundedPanel(img, titleRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	drawRoundedPanel(img, titleRect, panelRadius, hudPanelColor)
	drawCenteredString(drawer, titleRect, truncateWithEllipsis(face, title, titleRect.Dx()-panelPaddingX*2), hudTextPrimary)

	if turn == "" {
		return
	}
	turnWidth := clampInt(drawer.MeasureString(turn).Round()+panelPaddingX*2, 120, maxWidth)
	left := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
	turnRect := image.Rect(left, turnTop, left+turnWidth, turnBottom)
	drawRoundedPanel(img, turnRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	drawRoundedPanel(img, turnRect, panelRadius, hudTurnPanelColor)
	drawCenteredString(drawer, turnRect, truncateWithEllipsis(face, turn, turnRect.Dx()-panelPaddingX*2), hudTurnTextColor)
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + chess.BoardSize*squareSize

	for i := 0; i < chess.BoardSize; i++ {
		rank := fmt.Sprintf("%d", chess.BoardSize-i)
		drawCenteredText(drawer, rank, origin.X-sideMargin/2, origin.Y+i*squareSize+squareSize/2+ascent/2)
		file := string(rune('a' + i))
		drawCenteredText(drawer, file, origin.X+i*squareSize+squareSize/2, boardEndY+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func drawArrow(img *image.RGBA, from, to chess.Position, squareSize int, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	start := squareCenter(from, squareSize, origin)
	end := squareCenter(to, squareSize, origin)
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.12
	headWidth := float64(squareSize) * 0.32
	baseX := float64(start.X) + dirX*baseLength
	baseY := float64(start.Y) + dirY*baseLength

	fillQuad(img,
		pointF{float64(start.X) - perpX*halfWidth, float64(start.Y) - perpY*halfWidth},
		pointF{float64(start.X) + perpX*halfWidth, float64(start.Y) + perpY*halfWidth},
		pointF{baseX + perpX*halfWidth, baseY + perpY*halfWidth},
		pointF{baseX - perpX*halfWidth, baseY - perpY*halfWidth},
		clr)
	fillTriangleF(img,
		pointF{float64(end.X), float64(end.Y)},
		pointF{baseX - perpX*headWidth/2, baseY - perpY*headWidth/2},
		pointF{baseX + perpX*headWidth/2, baseY + perpY*headWidth/2},
		clr)
}
