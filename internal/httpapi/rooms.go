package httpapi

import (
	"net/http"
	"strings"

	"github.com/park285/cheese-chess/internal/room"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

func roomDTO(m *room.Meta) *chessdto.Room {
	if m == nil {
		return nil
	}
	return &chessdto.Room{
		Code:        m.Code,
		CreatorID:   m.CreatorID,
		CreatorName: m.CreatorName,
		Status:      string(m.State),
		SessionID:   m.SessionID,
		WhiteID:     m.WhiteID,
		WhiteName:   m.WhiteName,
		BlackID:     m.BlackID,
		BlackName:   m.BlackName,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func relayDTO(r *room.Relay) chessdto.RoomRelay {
	return chessdto.RoomRelay{
		Code:     r.Code,
		Ply:      r.Ply,
		Mover:    r.Mover.String(),
		PlayerID: r.PlayerID,
		From:     chessdto.Position{X: r.From.X, Y: r.From.Y},
		To:       chessdto.Position{X: r.To.X, Y: r.To.Y},
		Notation: r.Notation,
		Board:    session.BoardDTO(r.Board),
		GameOver: r.GameOver,
		Winner:   r.Winner,
	}
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	metas, err := s.rooms.ListLobby(r.Context())
	if err != nil {
		s.writeError(w, err, msgArgs{})
		return
	}
	out := chessdto.RoomListResponse{Rooms: make([]*chessdto.Room, 0, len(metas))}
	for _, m := range metas {
		out.Rooms = append(out.Rooms, roomDTO(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMakeRoom(w http.ResponseWriter, r *http.Request) {
	var req chessdto.MakeRoomRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err, msgArgs{})
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		s.writeError(w, badRequest("player_id is required"), msgArgs{})
		return
	}
	res, err := s.rooms.Make(r.Context(), originRoom(req.Room, req.PlayerID), req.PlayerID, req.PlayerName)
	if err != nil {
		s.writeError(w, err, msgArgs{})
		return
	}
	writeJSON(w, http.StatusCreated, roomDTO(res.Meta))
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	meta, err := s.rooms.Get(r.Context(), code)
	if err != nil {
		s.writeError(w, err, msgArgs{Code: code})
		return
	}
	out := roomDTO(meta)
	if out.Rooms, err = s.rooms.Rooms(r.Context(), code); err != nil {
		s.writeError(w, err, msgArgs{Code: code})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var req chessdto.JoinRoomRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err, msgArgs{Code: code})
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		s.writeError(w, badRequest("player_id is required"), msgArgs{Code: code})
		return
	}
	res, err := s.rooms.Join(r.Context(), originRoom(req.Room, req.PlayerID), code, req.PlayerID, req.PlayerName)
	if err != nil {
		s.writeError(w, err, msgArgs{Code: code})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.JoinRoomResponse{Room: roomDTO(res.Meta), State: session.ToDTO(res.View)})
}

func (s *Server) handleRoomMove(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var req chessdto.RoomMoveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err, msgArgs{Code: code})
		return
	}
	mv, raw, err := resolveMove(req.MoveRequest)
	if err != nil {
		s.writeError(w, err, msgArgs{Code: code, Square: raw})
		return
	}
	if !mv.hasFrom {
		s.writeError(w, badRequest("room moves need a source square"), msgArgs{Code: code})
		return
	}
	view, rec, err := s.rooms.Play(r.Context(), code, req.PlayerID, mv.from, mv.to)
	if err != nil {
		s.writeError(w, err, msgArgs{Code: code})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.MoveResponse{Move: session.MoveDTO(rec), State: session.ToDTO(view)})
}

// originRoom defaults the caller's room to a per-player name for API clients
// that have no chat room of their own.
func originRoom(room, playerID string) string {
	if v := strings.TrimSpace(room); v != "" {
		return v
	}
	return "api:" + strings.TrimSpace(playerID)
}
