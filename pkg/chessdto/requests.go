package chessdto

// CreateSessionRequest starts a session; also used for POST .../new.
type CreateSessionRequest struct {
	Mode        string `json:"mode,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	PlayerColor string `json:"player_color,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string        `json:"session_id"`
	State     *SessionState `json:"state"`
}

// SelectRequest names a square either as "e2" or by coordinates.
type SelectRequest struct {
	Square string    `json:"square,omitempty"`
	Pos    *Position `json:"pos,omitempty"`
}

type SelectResponse struct {
	LegalMoves []Position     `json:"legal_moves"`
	State      *SessionState `json:"state"`
}

// MoveRequest accepts either From/To squares or a notation string such as "Nb1-c3".
// When From is empty the move goes to the selected square.
type MoveRequest struct {
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	FromPos  *Position `json:"from_pos,omitempty"`
	ToPos    *Position `json:"to_pos,omitempty"`
	Notation string    `json:"notation,omitempty"`
}

type StateResponse struct {
	State *SessionState `json:"state"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Redis    string `json:"redis,omitempty"`
	Database string `json:"database,omitempty"`
}
