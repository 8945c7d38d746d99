package chess

import (
	"fmt"
	"strings"
)

// BoardSize is the number of files and ranks.
const BoardSize = 8

// Color identifies a side. The zero value means "no color" and never owns a piece.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

// Opponent returns the other side; NoColor maps to itself.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return ""
	}
}

func (c Color) MarshalText() ([]byte, error) {
	if c > Black {
		return nil, fmt.Errorf("invalid color %d", c)
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	if strings.TrimSpace(string(b)) == "" {
		*c = NoColor
		return nil
	}
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseColor accepts "white"/"black" in any case, plus the single letters w/b.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return NoColor, fmt.Errorf("unknown color %q", s)
	}
}

// Kind is a piece type.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindNames = [...]string{
	NoKind: "",
	Pawn:   "Pawn",
	Rook:   "Rook",
	Knight: "Knight",
	Bishop: "Bishop",
	Queen:  "Queen",
	King:   "King",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// Letter is the notation letter for the kind. Pawns have none; Knight is "N".
func (k Kind) Letter() string {
	switch k {
	case Rook:
		return "R"
	case Knight:
		return "N"
	case Bishop:
		return "B"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return ""
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid piece kind %d", k)
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	name := strings.TrimSpace(string(b))
	if name == "" {
		*k = NoKind
		return nil
	}
	for i, n := range kindNames {
		if i != int(NoKind) && strings.EqualFold(n, name) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece kind %q", name)
}

// Piece is an immutable value. The zero Piece is an empty square.
type Piece struct {
	Kind  Kind  `json:"kind"`
	Color Color `json:"color"`
}

func NewPiece(kind Kind, color Color) Piece { return Piece{Kind: kind, Color: color} }

func (p Piece) IsZero() bool { return p.Kind == NoKind }

// Symbol renders the piece as a single ASCII letter, upper case for White.
func (p Piece) Symbol() string {
	if p.IsZero() {
		return "."
	}
	s := p.Kind.Letter()
	if p.Kind == Pawn {
		s = "P"
	}
	if p.Color == Black {
		return strings.ToLower(s)
	}
	return s
}

func (p Piece) String() string {
	if p.IsZero() {
		return "empty"
	}
	return p.Color.String() + " " + p.Kind.String()
}

// Position is a (file, row) pair. Row 0 is rank 8; row 7 is rank 1.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func Pos(x, y int) Position { return Position{X: x, Y: y} }

func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < BoardSize && p.Y >= 0 && p.Y < BoardSize
}

func (p Position) offset(dx, dy int) Position { return Position{X: p.X + dx, Y: p.Y + dy} }

func (p Position) String() string {
	if name, err := SquareName(p); err == nil {
		return name
	}
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Move is a from/to pair.
type Move struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}

func (m Move) String() string { return m.From.String() + m.To.String() }
