package chess

// InCheck reports whether any piece of c's opponent can reach c's king square.
// A missing king is reported as not in check.
func InCheck(b *Board, c Color) bool {
	if b == nil {
		return false
	}
	king, ok := b.KingPosition(c)
	if !ok {
		return false
	}
	return Attacked(b, king, c.Opponent())
}

// Attacked reports whether any piece of color by has target among its pseudo-legal destinations.
func Attacked(b *Board, target Position, by Color) bool {
	hit := false
	b.Pieces(func(from Position, p Piece) bool {
		if p.Color != by {
			return true
		}
		for _, to := range PseudoLegalMoves(b, from) {
			if to == target {
				hit = true
				return false
			}
		}
		return true
	})
	return hit
}
