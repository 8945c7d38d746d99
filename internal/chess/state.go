package chess

import (
	"fmt"
	"strings"
)

// Mode is how a match is played.
type Mode string

const (
	ModeLocal       Mode = "Local"
	ModeAI          Mode = "AI"
	ModeMultiplayer Mode = "Multiplayer"
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return ModeLocal, nil
	case "ai":
		return ModeAI, nil
	case "multiplayer", "multi":
		return ModeMultiplayer, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Difficulty selects the computer opponent strategy.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

func (d *Difficulty) UnmarshalText(b []byte) error {
	if strings.TrimSpace(string(b)) == "" {
		*d = ""
		return nil
	}
	v, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Config describes a match. Difficulty and PlayerColor only matter in AI mode.
type Config struct {
	Mode        Mode       `json:"mode"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	PlayerColor Color      `json:"player_color,omitempty"`
	GameID      string     `json:"game_id,omitempty"`
}

// WithDefaults fills the mode, and for AI matches the difficulty (Medium) and
// human color (White).
func (c Config) WithDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeLocal
	}
	if c.Mode == ModeAI {
		if c.Difficulty == "" {
			c.Difficulty = Medium
		}
		if c.PlayerColor == NoColor {
			c.PlayerColor = White
		}
	}
	return c
}

// ComputerColor is the side played by the opponent in AI mode, NoColor otherwise.
func (c Config) ComputerColor() Color {
	if c.Mode != ModeAI {
		return NoColor
	}
	human := c.PlayerColor
	if human == NoColor {
		human = White
	}
	return human.Opponent()
}

// GameState is one match. It is not safe for concurrent use.
type GameState struct {
	Board          *Board     `json:"board"`
	CurrentPlayer  Color      `json:"current_player"`
	SelectedSquare *Position  `json:"selected_square"`
	LegalMoves     []Position `json:"legal_moves"`
	MoveHistory    []string   `json:"move_history"`
	IsCheck        bool       `json:"is_check"`
	GameOver       bool       `json:"game_over"`
	Winner         *Color     `json:"winner"`
	Config         Config     `json:"config"`
}

// MoveRecord describes an executed move.
type MoveRecord struct {
	From     Position `json:"from"`
	To       Position `json:"to"`
	Piece    Piece    `json:"piece"`
	Captured Piece    `json:"captured"`
	Notation string   `json:"notation"`
	Check    bool     `json:"check"`
	GameOver bool     `json:"game_over"`
}

func (r MoveRecord) IsCapture() bool { return !r.Captured.IsZero() }

// NewGameState returns the standard starting position with White to move.
func NewGameState(cfg Config) *GameState {
	return &GameState{
		Board:         NewStandardBoard(),
		CurrentPlayer: White,
		MoveHistory:   []string{},
		Config:        cfg.WithDefaults(),
	}
}

// Reset restarts the match keeping its config.
func (s *GameState) Reset() { *s = *NewGameState(s.Config) }

// NewGame restarts the match with cfg.
func (s *GameState) NewGame(cfg Config) { *s = *NewGameState(cfg) }

// Select makes pos the selection when it holds a piece of the player to move that
// has at least one legal move. Selecting the current selection again, or anything
// else, clears the selection. Returns the selection's legal moves.
func (s *GameState) Select(pos Position) ([]Position, error) {
	if s.GameOver {
		return nil, ErrGameOver
	}
	if s.SelectedSquare != nil && *s.SelectedSquare == pos {
		s.clearSelection()
		return nil, nil
	}
	moves := LegalMoves(s, pos)
	if len(moves) == 0 {
		s.clearSelection()
		return nil, nil
	}
	sel := pos
	s.SelectedSquare = &sel
	s.LegalMoves = moves
	return append([]Position(nil), moves...), nil
}

// Move plays the selected piece to to.
func (s *GameState) Move(to Position) (MoveRecord, error) {
	if s.GameOver {
		return MoveRecord{}, ErrGameOver
	}
	if s.SelectedSquare == nil {
		return MoveRecord{}, fmt.Errorf("no square selected: %w", ErrInvalidMove)
	}
	if !containsPosition(s.LegalMoves, to) {
		return MoveRecord{}, fmt.Errorf("%v-%v: %w", *s.SelectedSquare, to, ErrInvalidMove)
	}
	return s.apply(*s.SelectedSquare, to)
}

// MoveFromTo plays from-to regardless of the current selection.
func (s *GameState) MoveFromTo(from, to Position) (MoveRecord, error) {
	if s.GameOver {
		return MoveRecord{}, ErrGameOver
	}
	if s.Board.At(from).IsZero() {
		return MoveRecord{}, ErrNoPieceAtSource
	}
	if !containsPosition(LegalMoves(s, from), to) {
		return MoveRecord{}, fmt.Errorf("%v-%v: %w", from, to, ErrInvalidMove)
	}
	return s.apply(from, to)
}

func (s *GameState) apply(from, to Position) (MoveRecord, error) {
	mover := s.Board.At(from)
	captured, err := s.Board.Relocate(from, to)
	if err != nil {
		return MoveRecord{}, err
	}
	rec := MoveRecord{
		From:     from,
		To:       to,
		Piece:    mover,
		Captured: captured,
		Notation: Notate(mover, from, to, !captured.IsZero()),
	}
	if captured.Kind == King {
		winner := mover.Color
		s.GameOver = true
		s.Winner = &winner
		s.IsCheck = false
	} else {
		s.IsCheck = InCheck(s.Board, mover.Color.Opponent())
	}
	rec.Check = s.IsCheck
	rec.GameOver = s.GameOver
	s.MoveHistory = append(s.MoveHistory, rec.Notation)
	s.CurrentPlayer = s.CurrentPlayer.Opponent()
	s.clearSelection()
	return rec, nil
}

func (s *GameState) clearSelection() {
	s.SelectedSquare = nil
	s.LegalMoves = nil
}

// Clone returns a deep copy suitable for snapshots.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Board = s.Board.Clone()
	if s.SelectedSquare != nil {
		sel := *s.SelectedSquare
		out.SelectedSquare = &sel
	}
	if s.LegalMoves != nil {
		out.LegalMoves = append([]Position(nil), s.LegalMoves...)
	}
	out.MoveHistory = append([]string{}, s.MoveHistory...)
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	return &out
}

// LastMove returns the most recent history entry, if any.
func (s *GameState) LastMove() (string, bool) {
	if n := len(s.MoveHistory); n > 0 {
		return s.MoveHistory[n-1], true
	}
	return "", false
}
