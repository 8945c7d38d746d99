package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/park285/cheese-chess/internal/session"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const wsWriteTimeout = 5 * time.Second

func (s *Server) accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
}

// handleSessionEvents streams session events, starting with the current state.
// The subscription is opened before the upgrade so unknown sessions get a JSON error.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, cancel, err := s.table.Subscribe(r.Context(), id)
	if err != nil {
		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	defer cancel()

	conn, err := s.accept(w, r)
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()
	ctx := conn.CloseRead(context.Background())
	s.logger.Debug("ws_session_open", zap.String("session_id", id))

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := pingConn(ctx, conn); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			if err := writeEvent(ctx, conn, session.EventDTO(ev)); err != nil {
				s.logger.Debug("ws_session_write_failed", zap.String("session_id", id), zap.Error(err))
				return
			}
			if ev.Kind == session.EventClosed {
				_ = conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
		}
	}
}

// handleRoomEvents streams every relay published for the channel.
func (s *Server) handleRoomEvents(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if _, err := s.rooms.Get(r.Context(), code); err != nil {
		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		s.writeError(w, err, msgArgs{Code: code})
		return
	}
	conn, err := s.accept(w, r)
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.String("code", code), zap.Error(err))
		return
	}
	defer conn.CloseNow()
	ctx := conn.CloseRead(context.Background())

	relays, cancel, err := s.rooms.Subscribe(ctx, code)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cancel()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := pingConn(ctx, conn); err != nil {
				return
			}
		case rel, ok := <-relays:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, relayDTO(rel)); err != nil {
				return
			}
			if rel.GameOver {
				_ = conn.Close(websocket.StatusNormalClosure, "game over")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}

func pingConn(ctx context.Context, conn *websocket.Conn) error {
	pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := conn.Ping(pctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
