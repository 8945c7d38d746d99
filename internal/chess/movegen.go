package chess

type delta struct{ dx, dy int }

var (
	knightOffsets = []delta{{1, -2}, {2, -1}, {2, 1}, {1, 2}, {-1, 2}, {-2, 1}, {-2, -1}, {-1, -2}}
	kingOffsets   = []delta{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}
	bishopRays    = []delta{{1, -1}, {1, 1}, {-1, 1}, {-1, -1}}
	rookRays      = []delta{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
)

// pawnDirection is the row delta of a forward pawn step.
func pawnDirection(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

func pawnStartRow(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

// PseudoLegalMoves lists destinations for the piece on from, ignoring whether the
// mover's king is left in check. Empty squares yield nil.
func PseudoLegalMoves(b *Board, from Position) []Position {
	p := b.At(from)
	if p.IsZero() {
		return nil
	}
	switch p.Kind {
	case Pawn:
		return pawnMoves(b, from, p.Color)
	case Knight:
		return stepMoves(b, from, p.Color, knightOffsets)
	case Bishop:
		return rayMoves(b, from, p.Color, bishopRays, nil)
	case Rook:
		return rayMoves(b, from, p.Color, rookRays, nil)
	case Queen:
		out := rayMoves(b, from, p.Color, bishopRays, nil)
		return rayMoves(b, from, p.Color, rookRays, out)
	case King:
		return stepMoves(b, from, p.Color, kingOffsets)
	}
	return nil
}

func pawnMoves(b *Board, from Position, c Color) []Position {
	var out []Position
	dir := pawnDirection(c)
	one := from.offset(0, dir)
	if one.InBounds() && b.At(one).IsZero() {
		out = append(out, one)
		two := from.offset(0, 2*dir)
		if from.Y == pawnStartRow(c) && two.InBounds() && b.At(two).IsZero() {
			out = append(out, two)
		}
	}
	for _, dx := range [2]int{-1, 1} {
		diag := from.offset(dx, dir)
		if !diag.InBounds() {
			continue
		}
		if target := b.At(diag); !target.IsZero() && target.Color != c {
			out = append(out, diag)
		}
	}
	return out
}

func stepMoves(b *Board, from Position, c Color, offsets []delta) []Position {
	var out []Position
	for _, d := range offsets {
		to := from.offset(d.dx, d.dy)
		if !to.InBounds() {
			continue
		}
		if target := b.At(to); target.IsZero() || target.Color != c {
			out = append(out, to)
		}
	}
	return out
}

func rayMoves(b *Board, from Position, c Color, rays []delta, out []Position) []Position {
	for _, d := range rays {
		to := from.offset(d.dx, d.dy)
		for to.InBounds() {
			target := b.At(to)
			if target.IsZero() {
				out = append(out, to)
				to = to.offset(d.dx, d.dy)
				continue
			}
			if target.Color != c {
				out = append(out, to)
			}
			break
		}
	}
	return out
}
