package chess

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func mustPut(t *testing.T, b *Board, pos Position, p Piece) {
	t.Helper()
	if err := b.Put(pos, p); err != nil {
		t.Fatalf("put %v: %v", pos, err)
	}
}

func TestStandardBoardLayout(t *testing.T) {
	b := NewStandardBoard()
	cases := []struct {
		pos  Position
		want Piece
	}{
		{Pos(4, 7), NewPiece(King, White)},
		{Pos(3, 7), NewPiece(Queen, White)},
		{Pos(4, 0), NewPiece(King, Black)},
		{Pos(3, 0), NewPiece(Queen, Black)},
		{Pos(0, 6), NewPiece(Pawn, White)},
		{Pos(7, 1), NewPiece(Pawn, Black)},
		{Pos(6, 7), NewPiece(Knight, White)},
		{Pos(4, 4), Piece{}},
	}
	for _, tc := range cases {
		if got := b.At(tc.pos); got != tc.want {
			t.Fatalf("At(%v) = %v, want %v", tc.pos, got, tc.want)
		}
	}
	count := 0
	b.Pieces(func(Position, Piece) bool { count++; return true })
	if count != 32 {
		t.Fatalf("expected 32 pieces, got %d", count)
	}
}

func TestBoardAtOutOfRangeIsEmpty(t *testing.T) {
	b := NewStandardBoard()
	for _, p := range []Position{Pos(-1, 0), Pos(0, -1), Pos(8, 0), Pos(0, 8)} {
		if _, ok := b.Get(p); ok {
			t.Fatalf("Get(%v) reported a piece", p)
		}
	}
	if err := b.Put(Pos(9, 9), NewPiece(Pawn, White)); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Put out of range: got %v", err)
	}
}

func TestRelocateRecordsCapture(t *testing.T) {
	b := NewBoard()
	mustPut(t, b, Pos(0, 7), NewPiece(Rook, White))
	mustPut(t, b, Pos(0, 0), NewPiece(Rook, Black))

	captured, err := b.Relocate(Pos(0, 7), Pos(0, 0))
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if captured != NewPiece(Rook, Black) {
		t.Fatalf("captured = %v", captured)
	}
	if got := b.Captured(); len(got) != 1 || got[0] != NewPiece(Rook, Black) {
		t.Fatalf("captured list = %v", got)
	}
	if !b.At(Pos(0, 7)).IsZero() || b.At(Pos(0, 0)) != NewPiece(Rook, White) {
		t.Fatalf("unexpected board after relocate:\n%s", b)
	}

	if _, err := b.Relocate(Pos(4, 4), Pos(4, 3)); !errors.Is(err, ErrNoPieceAtSource) {
		t.Fatalf("relocate from empty: got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewStandardBoard()
	c := b.Clone()
	if !b.Equal(c) {
		t.Fatalf("clone differs")
	}
	if _, err := c.Relocate(Pos(4, 6), Pos(4, 4)); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if b.Equal(c) {
		t.Fatalf("mutating clone changed original")
	}
	if b.At(Pos(4, 6)).IsZero() {
		t.Fatalf("original lost its pawn")
	}
}

func TestBoardString(t *testing.T) {
	s := NewStandardBoard().String()
	lines := strings.Split(s, "\n")
	if len(lines) != 9 {
		t.Fatalf("expected 9 lines, got %d", len(lines))
	}
	if lines[0] != "8 r n b q k b n r" {
		t.Fatalf("top rank = %q", lines[0])
	}
	if lines[7] != "1 R N B Q K B N R" {
		t.Fatalf("bottom rank = %q", lines[7])
	}
}

func TestMissingKingIsNotInCheck(t *testing.T) {
	b := NewBoard()
	mustPut(t, b, Pos(0, 0), NewPiece(Queen, Black))
	if b.IsInCheck(White) {
		t.Fatalf("board without a white king reported check")
	}
}

func TestBoardJSONRejectsIncompletePieces(t *testing.T) {
	valid := NewStandardBoard()
	data, err := valid.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var back Board
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !back.Equal(valid) {
		t.Fatalf("round trip changed the board")
	}

	empty := `[null,null,null,null,null,null,null,null]`
	rows := func(first string) string {
		return `{"squares":[` + first + `,` + strings.Repeat(empty+",", 6) + empty + `],"captured_pieces":[]}`
	}
	cases := map[string]string{
		"no color":    rows(`[{"kind":"Pawn","color":""},null,null,null,null,null,null,null]`),
		"no kind":     rows(`[{"kind":"","color":"White"},null,null,null,null,null,null,null]`),
		"empty piece": rows(`[{},null,null,null,null,null,null,null]`),
		"captured":    `{"squares":[` + strings.Repeat(empty+",", 7) + empty + `],"captured_pieces":[{"kind":"Rook"}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var b Board
			if err := json.Unmarshal([]byte(payload), &b); !errors.Is(err, ErrInvalidPiece) {
				t.Fatalf("Unmarshal = %v, want ErrInvalidPiece", err)
			}
		})
	}
}
