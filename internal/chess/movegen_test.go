package chess

import "testing"

func TestKnightMoves(t *testing.T) {
	cases := []struct {
		name string
		pos  Position
		want int
	}{
		{"center", Pos(3, 3), 8},
		{"corner", Pos(0, 0), 2},
		{"edge", Pos(0, 4), 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBoard()
			mustPut(t, b, tc.pos, NewPiece(Knight, White))
			if got := PseudoLegalMoves(b, tc.pos); len(got) != tc.want {
				t.Fatalf("knight at %v: %d moves (%v), want %d", tc.pos, len(got), got, tc.want)
			}
		})
	}
}

func TestPawnMoves(t *testing.T) {
	b := NewStandardBoard()
	got := PseudoLegalMoves(b, Pos(4, 6))
	if len(got) != 2 || got[0] != Pos(4, 5) || got[1] != Pos(4, 4) {
		t.Fatalf("white e2 pawn moves = %v", got)
	}
	got = PseudoLegalMoves(b, Pos(4, 1))
	if len(got) != 2 || got[0] != Pos(4, 2) || got[1] != Pos(4, 3) {
		t.Fatalf("black e7 pawn moves = %v", got)
	}

	mustPut(t, b, Pos(4, 5), NewPiece(Knight, Black))
	got = PseudoLegalMoves(b, Pos(4, 6))
	for _, p := range got {
		if p.X == 4 {
			t.Fatalf("blocked pawn still moves forward: %v", got)
		}
	}

	// two-step needs both squares empty
	b = NewStandardBoard()
	mustPut(t, b, Pos(3, 4), NewPiece(Bishop, Black))
	got = PseudoLegalMoves(b, Pos(3, 6))
	if len(got) != 1 || got[0] != Pos(3, 5) {
		t.Fatalf("d2 pawn with d4 blocked = %v", got)
	}
}

func TestPawnCapturesOnlyDiagonally(t *testing.T) {
	b := NewBoard()
	mustPut(t, b, Pos(4, 4), NewPiece(Pawn, White))
	mustPut(t, b, Pos(3, 3), NewPiece(Pawn, Black))
	mustPut(t, b, Pos(5, 3), NewPiece(Pawn, White))
	got := PseudoLegalMoves(b, Pos(4, 4))
	if len(got) != 2 || got[0] != Pos(4, 3) || got[1] != Pos(3, 3) {
		t.Fatalf("pawn moves = %v", got)
	}
}

func TestRookRayStopsAtFirstPiece(t *testing.T) {
	b := NewBoard()
	mustPut(t, b, Pos(0, 7), NewPiece(Rook, White))
	mustPut(t, b, Pos(0, 4), NewPiece(Pawn, White))
	mustPut(t, b, Pos(3, 7), NewPiece(Pawn, Black))

	got := PseudoLegalMoves(b, Pos(0, 7))
	want := []Position{Pos(0, 6), Pos(0, 5), Pos(1, 7), Pos(2, 7), Pos(3, 7)}
	if len(got) != len(want) {
		t.Fatalf("rook moves = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rook moves = %v, want %v", got, want)
		}
	}
}

func TestQueenIsBishopPlusRook(t *testing.T) {
	b := NewBoard()
	mustPut(t, b, Pos(3, 3), NewPiece(Queen, Black))
	q := PseudoLegalMoves(b, Pos(3, 3))

	b2 := NewBoard()
	mustPut(t, b2, Pos(3, 3), NewPiece(Bishop, Black))
	bishop := PseudoLegalMoves(b2, Pos(3, 3))
	mustPut(t, b2, Pos(3, 3), NewPiece(Rook, Black))
	rook := PseudoLegalMoves(b2, Pos(3, 3))

	if len(q) != len(bishop)+len(rook) || len(q) != 27 {
		t.Fatalf("queen %d, bishop %d, rook %d", len(q), len(bishop), len(rook))
	}
}

func TestKingMovesSkipOwnPieces(t *testing.T) {
	b := NewStandardBoard()
	if got := PseudoLegalMoves(b, Pos(4, 7)); len(got) != 0 {
		t.Fatalf("boxed-in king moves = %v", got)
	}
	b = NewBoard()
	mustPut(t, b, Pos(7, 7), NewPiece(King, White))
	if got := PseudoLegalMoves(b, Pos(7, 7)); len(got) != 3 {
		t.Fatalf("corner king moves = %v", got)
	}
}

func TestGeneratedMovesStayOnBoard(t *testing.T) {
	kinds := []Kind{Pawn, Rook, Knight, Bishop, Queen, King}
	for _, k := range kinds {
		for y := 0; y < BoardSize; y++ {
			for x := 0; x < BoardSize; x++ {
				b := NewBoard()
				mustPut(t, b, Pos(x, y), NewPiece(k, Black))
				for _, to := range PseudoLegalMoves(b, Pos(x, y)) {
					if !to.InBounds() {
						t.Fatalf("%v at %d,%d produced %v", k, x, y, to)
					}
				}
			}
		}
	}
}

func TestEmptySquareHasNoMoves(t *testing.T) {
	if got := PseudoLegalMoves(NewStandardBoard(), Pos(4, 4)); got != nil {
		t.Fatalf("empty square moves = %v", got)
	}
}
