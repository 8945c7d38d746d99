package chessdto

import "time"

type Room struct {
	Code        string    `json:"code"`
	CreatorID   string    `json:"creator_id"`
	CreatorName string    `json:"creator_name,omitempty"`
	Status      string    `json:"status"`
	SessionID   string    `json:"session_id,omitempty"`
	WhiteID     string    `json:"white_id,omitempty"`
	WhiteName   string    `json:"white_name,omitempty"`
	BlackID     string    `json:"black_id,omitempty"`
	BlackName   string    `json:"black_name,omitempty"`
	Rooms       []string  `json:"rooms,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MakeRoomRequest opens a lobby. Room is the caller's own chat or client room.
type MakeRoomRequest struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name,omitempty"`
	Room       string `json:"room,omitempty"`
}

type JoinRoomRequest struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name,omitempty"`
	Room       string `json:"room,omitempty"`
}

type JoinRoomResponse struct {
	Room  *Room         `json:"room"`
	State *SessionState `json:"state"`
}

type RoomMoveRequest struct {
	PlayerID string `json:"player_id"`
	MoveRequest
}

type RoomListResponse struct {
	Rooms []*Room `json:"rooms"`
}

// RoomRelay is streamed on /api/rooms/{code}/events after every move.
type RoomRelay struct {
	Code     string     `json:"code"`
	Ply      int        `json:"ply"`
	Mover    string     `json:"mover"`
	PlayerID string     `json:"player_id"`
	From     Position   `json:"from"`
	To       Position   `json:"to"`
	Notation string     `json:"notation"`
	Board    [][]*Piece `json:"board"`
	GameOver bool       `json:"game_over"`
	Winner   string     `json:"winner,omitempty"`
}
