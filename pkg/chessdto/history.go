package chessdto

import "time"

// GameResult is a finished match as stored by the results recorder.
type GameResult struct {
	GameID     string    `json:"game_id"`
	SessionID  string    `json:"session_id"`
	Mode       string    `json:"mode"`
	Difficulty string    `json:"difficulty,omitempty"`
	WhiteName  string    `json:"white_name,omitempty"`
	BlackName  string    `json:"black_name,omitempty"`
	Winner     string    `json:"winner,omitempty"`
	Method     string    `json:"method"`
	Moves      []string  `json:"moves"`
	ECOCode    string    `json:"eco_code,omitempty"`
	Opening    string    `json:"opening,omitempty"`
	PGN        string    `json:"pgn,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

type ResultsResponse struct {
	Results []*GameResult `json:"results"`
}
