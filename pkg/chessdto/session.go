package chessdto

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Piece struct {
	Kind   string `json:"kind"`
	Color  string `json:"color"`
	Symbol string `json:"symbol"`
}

// SessionState is the externally visible snapshot of a game.
// Board is indexed [row][column]; row 0 is rank 8.
type SessionState struct {
	SessionID      string      `json:"session_id"`
	Seq            uint64      `json:"seq"`
	Board          [][]*Piece  `json:"board"`
	CurrentPlayer  string      `json:"current_player"`
	SelectedSquare *Position   `json:"selected_square"`
	LegalMoves     []Position  `json:"legal_moves"`
	MoveHistory    []string    `json:"move_history"`
	CapturedPieces []Piece     `json:"captured_pieces"`
	IsCheck        bool        `json:"is_check"`
	GameOver       bool        `json:"game_over"`
	Winner         string      `json:"winner,omitempty"`
	Mode           string      `json:"mode"`
	Difficulty     string      `json:"difficulty,omitempty"`
	PlayerColor    string      `json:"player_color,omitempty"`
	GameID         string      `json:"game_id,omitempty"`
	UndoDepth      int         `json:"undo_depth"`
	Thinking       bool        `json:"thinking"`
	LastMove       *MoveRecord `json:"last_move,omitempty"`
}

// Event is pushed to session and room subscribers.
type Event struct {
	Kind      string        `json:"kind"`
	SessionID string        `json:"session_id"`
	Seq       uint64        `json:"seq"`
	State     *SessionState `json:"state,omitempty"`
	Move      *MoveRecord   `json:"move,omitempty"`
}
