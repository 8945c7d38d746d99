package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/room"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"go.uber.org/zap"
)

// requestError is a client mistake detected before reaching the session table.
type requestError struct {
	code   string
	detail string
}

func (e *requestError) Error() string { return e.detail }

var errBodyTooLarge = &requestError{code: "bad_request", detail: "request too large"}

func badRequest(detail string) error { return &requestError{code: "bad_request", detail: detail} }

func badConfig(err error) error { return &requestError{code: "invalid_config", detail: err.Error()} }

type errorInfo struct {
	status    int
	code      string
	retryable bool
}

var errorTable = []struct {
	target error
	info   errorInfo
}{
	{chess.ErrInvalidSquare, errorInfo{http.StatusBadRequest, "invalid_square", false}},
	{chess.ErrOutOfBounds, errorInfo{http.StatusBadRequest, "invalid_square", false}},
	{chess.ErrNoPieceAtSource, errorInfo{http.StatusUnprocessableEntity, "no_piece", false}},
	{chess.ErrInvalidMove, errorInfo{http.StatusUnprocessableEntity, "invalid_move", false}},
	{chess.ErrGameOver, errorInfo{http.StatusConflict, "game_over", false}},
	{session.ErrSessionNotFound, errorInfo{http.StatusNotFound, "session_not_found", false}},
	{session.ErrLockUnavailable, errorInfo{http.StatusConflict, "session_busy", true}},
	{session.ErrSessionClosed, errorInfo{http.StatusGone, "session_closed", false}},
	{session.ErrTableFull, errorInfo{http.StatusServiceUnavailable, "table_full", true}},
	{session.ErrNoHistory, errorInfo{http.StatusConflict, "no_history", false}},
	{session.ErrOpponentTurn, errorInfo{http.StatusConflict, "opponent_turn", true}},
	{session.ErrNotYourTurn, errorInfo{http.StatusConflict, "not_your_turn", false}},
	{session.ErrDiverged, errorInfo{http.StatusConflict, "diverged", false}},
	{session.ErrRoomManaged, errorInfo{http.StatusConflict, "room_managed", false}},
	{room.ErrChannelGone, errorInfo{http.StatusNotFound, "room_not_found", false}},
	{room.ErrChannelActive, errorInfo{http.StatusConflict, "room_active", false}},
	{room.ErrFull, errorInfo{http.StatusConflict, "room_full", false}},
	{room.ErrNotStarted, errorInfo{http.StatusConflict, "room_not_started", true}},
	{room.ErrFinished, errorInfo{http.StatusConflict, "room_finished", false}},
	{room.ErrNotParticipant, errorInfo{http.StatusForbidden, "not_participant", false}},
	{room.ErrCreatorHasLobby, errorInfo{http.StatusConflict, "creator_has_lobby", false}},
	{room.ErrInvalidArgs, errorInfo{http.StatusBadRequest, "bad_request", false}},
	{room.ErrUnavailable, errorInfo{http.StatusServiceUnavailable, "unavailable", false}},
	{context.DeadlineExceeded, errorInfo{http.StatusServiceUnavailable, "session_busy", true}},
}

func classify(err error) errorInfo {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return errorInfo{status: http.StatusBadRequest, code: reqErr.code}
	}
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.info
		}
	}
	return errorInfo{status: http.StatusInternalServerError, code: "internal"}
}

// msgArgs carries every field a catalog template may reference.
type msgArgs struct {
	ID     string
	Code   string
	Square string
	Detail string
}

func (s *Server) writeError(w http.ResponseWriter, err error, args msgArgs) {
	info := classify(err)
	if args.Detail == "" {
		args.Detail = err.Error()
	}
	if info.status >= http.StatusInternalServerError {
		s.logger.Warn("http_error", zap.String("code", info.code), zap.Error(err))
	}
	msg := s.catalog.Text("errors."+info.code, args, err.Error())
	writeJSON(w, info.status, chessdto.ErrorResponse{Code: info.code, Message: msg, Retryable: info.retryable})
}
