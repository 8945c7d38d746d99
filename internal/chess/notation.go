package chess

import (
	"fmt"
	"strconv"
	"strings"
)

const files = "abcdefgh"

// SquareName converts a position to "a8".."h1".
func SquareName(p Position) (string, error) {
	if !p.InBounds() {
		return "", fmt.Errorf("square %d,%d: %w", p.X, p.Y, ErrOutOfBounds)
	}
	return string(files[p.X]) + strconv.Itoa(BoardSize-p.Y), nil
}

// ParseSquare accepts algebraic squares ("e2") or raw coordinates ("4,6").
func ParseSquare(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if x, y, ok := strings.Cut(s, ","); ok {
		xi, err1 := strconv.Atoi(strings.TrimSpace(x))
		yi, err2 := strconv.Atoi(strings.TrimSpace(y))
		if err1 != nil || err2 != nil {
			return Position{}, fmt.Errorf("%q: %w", s, ErrInvalidSquare)
		}
		p := Pos(xi, yi)
		if !p.InBounds() {
			return Position{}, fmt.Errorf("%q: %w", s, ErrOutOfBounds)
		}
		return p, nil
	}
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%q: %w", s, ErrInvalidSquare)
	}
	x := strings.IndexByte(files, s[0])
	rank := int(s[1] - '0')
	if x < 0 || rank < 1 || rank > BoardSize {
		return Position{}, fmt.Errorf("%q: %w", s, ErrInvalidSquare)
	}
	return Pos(x, BoardSize-rank), nil
}

// Notate renders a history entry: piece letter (none for pawns), source square,
// "x" for a capture or "-" otherwise, destination square. e.g. "e2-e4", "Ng1-f3", "Qd1xd7".
func Notate(p Piece, from, to Position, capture bool) string {
	sep := "-"
	if capture {
		sep = "x"
	}
	return p.Kind.Letter() + from.String() + sep + to.String()
}

// ParseNotation splits a history entry back into its squares and capture flag.
func ParseNotation(s string) (Move, bool, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "-x")
	if sep < 2 || len(s) != sep+3 {
		return Move{}, false, fmt.Errorf("notation %q: %w", s, ErrInvalidSquare)
	}
	from, err := ParseSquare(s[sep-2 : sep])
	if err != nil {
		return Move{}, false, err
	}
	to, err := ParseSquare(s[sep+1:])
	if err != nil {
		return Move{}, false, err
	}
	return Move{From: from, To: to}, s[sep] == 'x', nil
}
