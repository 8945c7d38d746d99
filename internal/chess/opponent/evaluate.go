package opponent

import "github.com/park285/cheese-chess/internal/chess"

var pieceValues = map[chess.Kind]int{
	chess.Pawn:   100,
	chess.Knight: 300,
	chess.Bishop: 300,
	chess.Rook:   500,
	chess.Queen:  900,
	chess.King:   10000,
}

// Bonus tables are laid out from White's point of view, row 0 = rank 8.
var pawnBonus = [8][8]int{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{50, 50, 50, 50, 50, 50, 50, 50},
	{10, 10, 20, 30, 30, 20, 10, 10},
	{5, 5, 10, 25, 25, 10, 5, 5},
	{0, 0, 0, 20, 20, 0, 0, 0},
	{5, -5, -10, 0, 0, -10, -5, 5},
	{5, 10, 10, -20, -20, 10, 10, 5},
	{0, 0, 0, 0, 0, 0, 0, 0},
}

var knightBonus = [8][8]int{
	{-50, -40, -30, -30, -30, -30, -40, -50},
	{-40, -20, 0, 0, 0, 0, -20, -40},
	{-30, 0, 10, 15, 15, 10, 0, -30},
	{-30, 5, 15, 20, 20, 15, 5, -30},
	{-30, 0, 15, 20, 20, 15, 0, -30},
	{-30, 5, 10, 15, 15, 10, 5, -30},
	{-40, -20, 0, 5, 5, 0, -20, -40},
	{-50, -40, -30, -30, -30, -30, -40, -50},
}

var bishopBonus = [8][8]int{
	{-20, -10, -10, -10, -10, -10, -10, -20},
	{-10, 0, 0, 0, 0, 0, 0, -10},
	{-10, 0, 10, 10, 10, 10, 0, -10},
	{-10, 5, 5, 10, 10, 5, 5, -10},
	{-10, 0, 5, 10, 10, 5, 0, -10},
	{-10, 10, 10, 10, 10, 10, 10, -10},
	{-10, 5, 0, 0, 0, 0, 5, -10},
	{-20, -10, -10, -10, -10, -10, -10, -20},
}

const checkPenalty = 50

// Evaluate scores the position for side: own material and placement minus the
// opponent's, with a penalty when side is to move and in check.
func Evaluate(s *chess.GameState, side chess.Color) int {
	score := 0
	s.Board.Pieces(func(pos chess.Position, p chess.Piece) bool {
		v := pieceValues[p.Kind] + placementBonus(p, pos)
		if p.Color == side {
			score += v
		} else {
			score -= v
		}
		return true
	})
	if s.IsCheck && s.CurrentPlayer == side {
		score -= checkPenalty
	}
	return score
}

func placementBonus(p chess.Piece, pos chess.Position) int {
	row := pos.Y
	if p.Color == chess.Black {
		row = chess.BoardSize - 1 - pos.Y
	}
	switch p.Kind {
	case chess.Pawn:
		return pawnBonus[row][pos.X]
	case chess.Knight:
		return knightBonus[row][pos.X]
	case chess.Bishop:
		return bishopBonus[row][pos.X]
	}
	return 0
}
