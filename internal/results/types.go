package results

import (
	"context"
	"time"
)


// Result is a finished match.
type Result struct {
	GameID     string    `json:"game_id"`
	SessionID  string    `json:"session_id"`
	Mode       string    `json:"mode"`
	Difficulty string    `json:"difficulty,omitempty"`
	WhiteID    string    `json:"white_id,omitempty"`
	WhiteName  string    `json:"white_name,omitempty"`
	BlackID    string    `json:"black_id,omitempty"`
	BlackName  string    `json:"black_name,omitempty"`
	Winner     string    `json:"winner,omitempty"` // "White", "Black" or empty
	Method     string    `json:"method"`
	Moves      []string  `json:"moves"`
	ECOCode    string    `json:"eco_code,omitempty"`
	Opening    string    `json:"opening,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// Recorder persists finished matches.
type Recorder interface {
	SaveResult(ctx context.Context, r *Result) error
	Recent(ctx context.Context, limit int) ([]*Result, error)
}
