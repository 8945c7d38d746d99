package chess

// LegalMoves returns the destinations from pos that the player to move may play:
// the piece's pseudo-legal moves minus those leaving the mover's own king in check.
// Order follows PseudoLegalMoves.
func LegalMoves(s *GameState, pos Position) []Position {
	if s == nil || s.Board == nil {
		return nil
	}
	return LegalMovesFor(s.Board, pos, s.CurrentPlayer)
}

// LegalMovesFor is LegalMoves for an explicit side to move.
func LegalMovesFor(b *Board, pos Position, side Color) []Position {
	p := b.At(pos)
	if p.IsZero() || p.Color != side {
		return nil
	}
	candidates := PseudoLegalMoves(b, pos)
	if len(candidates) == 0 {
		return nil
	}
	out := make([]Position, 0, len(candidates))
	for _, to := range candidates {
		scratch := b.Clone()
		if _, err := scratch.Relocate(pos, to); err != nil {
			continue
		}
		if InCheck(scratch, side) {
			continue
		}
		out = append(out, to)
	}
	return out
}

// AllLegalMoves enumerates every legal move of the player to move, sources in row-major order.
func AllLegalMoves(s *GameState) []Move {
	if s == nil || s.Board == nil || s.GameOver {
		return nil
	}
	var out []Move
	s.Board.Pieces(func(from Position, p Piece) bool {
		if p.Color != s.CurrentPlayer {
			return true
		}
		for _, to := range LegalMovesFor(s.Board, from, s.CurrentPlayer) {
			out = append(out, Move{From: from, To: to})
		}
		return true
	})
	return out
}

func containsPosition(list []Position, p Position) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}
