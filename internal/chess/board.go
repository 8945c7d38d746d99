package chess

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Board is the 8x8 grid plus the pieces captured so far, in capture order.
// All bounds checking happens here; callers never index the grid directly.
type Board struct {
	squares  [BoardSize][BoardSize]Piece // [y][x]
	captured []Piece
}

// NewBoard returns an empty board.
func NewBoard() *Board { return &Board{} }

var backRank = [BoardSize]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewStandardBoard returns the initial position. Black occupies rows 0-1, White rows 6-7.
func NewStandardBoard() *Board {
	b := &Board{}
	for x := 0; x < BoardSize; x++ {
		b.squares[0][x] = Piece{Kind: backRank[x], Color: Black}
		b.squares[1][x] = Piece{Kind: Pawn, Color: Black}
		b.squares[6][x] = Piece{Kind: Pawn, Color: White}
		b.squares[7][x] = Piece{Kind: backRank[x], Color: White}
	}
	return b
}

// At returns the piece at pos. Out-of-range positions read as empty.
func (b *Board) At(pos Position) Piece {
	if b == nil || !pos.InBounds() {
		return Piece{}
	}
	return b.squares[pos.Y][pos.X]
}

// Get is At with an occupancy flag.
func (b *Board) Get(pos Position) (Piece, bool) {
	p := b.At(pos)
	return p, !p.IsZero()
}

// Put places (or, with the zero Piece, clears) a square. Used for setup.
func (b *Board) Put(pos Position, p Piece) error {
	if !pos.InBounds() {
		return fmt.Errorf("put %v: %w", pos, ErrOutOfBounds)
	}
	b.squares[pos.Y][pos.X] = p
	return nil
}

// Relocate moves the piece on from to to without any legality check. An occupant of to
// is appended to the captured list and returned.
func (b *Board) Relocate(from, to Position) (Piece, error) {
	if !from.InBounds() || !to.InBounds() {
		return Piece{}, fmt.Errorf("relocate %v-%v: %w", from, to, ErrOutOfBounds)
	}
	mover := b.squares[from.Y][from.X]
	if mover.IsZero() {
		return Piece{}, ErrNoPieceAtSource
	}
	captured := b.squares[to.Y][to.X]
	if !captured.IsZero() {
		b.captured = append(b.captured, captured)
	}
	b.squares[to.Y][to.X] = mover
	b.squares[from.Y][from.X] = Piece{}
	return captured, nil
}

// Captured returns a copy of the captured pieces in capture order.
func (b *Board) Captured() []Piece {
	if b == nil || len(b.captured) == 0 {
		return nil
	}
	return append([]Piece(nil), b.captured...)
}

// KingPosition finds the king of c, scanning row-major.
func (b *Board) KingPosition(c Color) (Position, bool) {
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			p := b.squares[y][x]
			if p.Kind == King && p.Color == c {
				return Position{X: x, Y: y}, true
			}
		}
	}
	return Position{}, false
}

// IsInCheck reports whether c's king is attacked. A board without that king is never in check.
func (b *Board) IsInCheck(c Color) bool { return InCheck(b, c) }

// Pieces calls fn for every occupied square in row-major order until fn returns false.
func (b *Board) Pieces(fn func(Position, Piece) bool) {
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			p := b.squares[y][x]
			if p.IsZero() {
				continue
			}
			if !fn(Position{X: x, Y: y}, p) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	out := &Board{squares: b.squares}
	if len(b.captured) > 0 {
		out.captured = append([]Piece(nil), b.captured...)
	}
	return out
}

// Equal compares placement and captured lists.
func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.squares != o.squares || len(b.captured) != len(o.captured) {
		return false
	}
	for i := range b.captured {
		if b.captured[i] != o.captured[i] {
			return false
		}
	}
	return true
}

// String draws the board with rank 8 at the top, upper case for White.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < BoardSize; y++ {
		fmt.Fprintf(&sb, "%d ", BoardSize-y)
		for x := 0; x < BoardSize; x++ {
			sb.WriteString(b.squares[y][x].Symbol())
			if x < BoardSize-1 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}

type boardJSON struct {
	Squares  [BoardSize][BoardSize]*Piece `json:"squares"`
	Captured []Piece                      `json:"captured_pieces"`
}

func (b *Board) MarshalJSON() ([]byte, error) {
	var out boardJSON
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if p := b.squares[y][x]; !p.IsZero() {
				out.Squares[y][x] = &p
			}
		}
	}
	out.Captured = b.captured
	if out.Captured == nil {
		out.Captured = []Piece{}
	}
	return json.Marshal(out)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var in boardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = Board{}
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if p := in.Squares[y][x]; p != nil {
				if !p.valid() {
					return fmt.Errorf("%w: square %d,%d", ErrInvalidPiece, x, y)
				}
				b.squares[y][x] = *p
			}
		}
	}
	for i, p := range in.Captured {
		if !p.valid() {
			return fmt.Errorf("%w: captured #%d", ErrInvalidPiece, i)
		}
	}
	if len(in.Captured) > 0 {
		b.captured = append([]Piece(nil), in.Captured...)
	}
	return nil
}

func (p Piece) valid() bool { return p.Kind != NoKind && p.Color != NoColor }
