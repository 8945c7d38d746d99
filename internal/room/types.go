package room

import (
	"time"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/session"
)

// State is the lifecycle of a room channel.
type State string

const (
	StateLobby    State = "LOBBY"
	StateActive   State = "ACTIVE"
	StateFinished State = "FINISHED"
)

// Meta is stored as JSON in Redis under ch:<code>.
type Meta struct {
	Code      string    `json:"code"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CreatorID   string `json:"creator_id"`
	CreatorName string `json:"creator_name"`
	CreatorRoom string `json:"creator_room"`

	WhiteID   string `json:"white_id,omitempty"`
	WhiteName string `json:"white_name,omitempty"`
	BlackID   string `json:"black_id,omitempty"`
	BlackName string `json:"black_name,omitempty"`

	SessionID string `json:"session_id,omitempty"`
	Winner    string `json:"winner,omitempty"`
}

// ColorOf returns the side userID plays, or NoColor.
func (m *Meta) ColorOf(userID string) chess.Color {
	switch {
	case m == nil || userID == "":
		return chess.NoColor
	case userID == m.WhiteID:
		return chess.White
	case userID == m.BlackID:
		return chess.Black
	default:
		return chess.NoColor
	}
}

type MakeResult struct {
	Code string
	Meta *Meta
}

type JoinResult struct {
	Started bool
	Meta    *Meta
	View    *session.View
}

// Relay is published on ch:<code>:moves after every move. Ply is the length of
// the move history after the move; Board is the sender's resulting board.
type Relay struct {
	Code     string         `json:"code"`
	Ply      int            `json:"ply"`
	Mover    chess.Color    `json:"mover"`
	PlayerID string         `json:"player_id"`
	From     chess.Position `json:"from"`
	To       chess.Position `json:"to"`
	Notation string         `json:"notation"`
	Board    *chess.Board   `json:"board"`
	GameOver bool           `json:"game_over"`
	Winner   string         `json:"winner,omitempty"`
}

var (
	ErrInvalidArgs     = errf("invalid arguments")
	ErrChannelGone     = errf("channel not found or expired")
	ErrChannelActive   = errf("channel already active")
	ErrNotStarted      = errf("channel has not started")
	ErrFinished        = errf("channel game is finished")
	ErrFull            = errf("channel already has two participants")
	ErrNotParticipant  = errf("user is not a participant")
	ErrCreatorHasLobby = errf("user already has a lobby")
	ErrUnavailable     = errf("room manager not initialized")

	ErrNotYourTurn = session.ErrNotYourTurn
	ErrDiverged    = session.ErrDiverged
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
