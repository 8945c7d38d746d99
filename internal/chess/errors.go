package chess

import "errors"

var (
	ErrNoPieceAtSource = errors.New("no piece at source square")
	ErrInvalidMove     = errors.New("invalid move")
	ErrGameOver        = errors.New("game is over")
	ErrOutOfBounds     = errors.New("position out of bounds")
	ErrInvalidSquare   = errors.New("invalid square name")
	ErrInvalidPiece    = errors.New("piece needs a kind and a color")
)
