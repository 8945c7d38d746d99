package chessdto

// MoveRecord describes one applied move.
type MoveRecord struct {
	From     Position `json:"from"`
	To       Position `json:"to"`
	Notation string   `json:"notation"`
	Piece    Piece    `json:"piece"`
	Captured *Piece   `json:"captured,omitempty"`
	Check    bool     `json:"check"`
	GameOver bool     `json:"game_over"`
}

// MoveResponse carries the move just applied and the resulting state.
type MoveResponse struct {
	Move  *MoveRecord   `json:"move,omitempty"`
	State *SessionState `json:"state"`
}
