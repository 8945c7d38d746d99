package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/render"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

func configFromRequest(req chessdto.CreateSessionRequest) (chess.Config, error) {
	mode, err := chess.ParseMode(req.Mode)
	if err != nil {
		return chess.Config{}, badConfig(err)
	}
	cfg := chess.Config{Mode: mode}
	if strings.TrimSpace(req.Difficulty) != "" {
		d, err := chess.ParseDifficulty(req.Difficulty)
		if err != nil {
			return chess.Config{}, badConfig(err)
		}
		cfg.Difficulty = d
	}
	if strings.TrimSpace(req.PlayerColor) != "" {
		c, err := chess.ParseColor(req.PlayerColor)
		if err != nil {
			return chess.Config{}, badConfig(err)
		}
		cfg.PlayerColor = c
	}
	return cfg, nil
}

// squareFrom resolves a square given by name ("e2", "4,6") or by position.
func squareFrom(name string, pos *chessdto.Position) (chess.Position, error) {
	if pos != nil {
		p := chess.Pos(pos.X, pos.Y)
		if !p.InBounds() {
			return chess.Position{}, fmt.Errorf("%d,%d: %w", pos.X, pos.Y, chess.ErrOutOfBounds)
		}
		return p, nil
	}
	if strings.TrimSpace(name) == "" {
		return chess.Position{}, badRequest("square is required")
	}
	return chess.ParseSquare(name)
}

type resolvedMove struct {
	from    chess.Position
	to      chess.Position
	hasFrom bool
}

func resolveMove(req chessdto.MoveRequest) (resolvedMove, string, error) {
	if n := strings.TrimSpace(req.Notation); n != "" {
		mv, _, err := chess.ParseNotation(stripPieceLetter(n))
		if err != nil {
			return resolvedMove{}, n, err
		}
		return resolvedMove{from: mv.From, to: mv.To, hasFrom: true}, n, nil
	}
	to, err := squareFrom(req.To, req.ToPos)
	if err != nil {
		return resolvedMove{}, req.To, err
	}
	out := resolvedMove{to: to}
	if strings.TrimSpace(req.From) != "" || req.FromPos != nil {
		from, err := squareFrom(req.From, req.FromPos)
		if err != nil {
			return resolvedMove{}, req.From, err
		}
		out.from, out.hasFrom = from, true
	}
	return out, "", nil
}

// stripPieceLetter turns "Ng1-f3" into "g1-f3".
func stripPieceLetter(n string) string {
	if len(n) > 0 && strings.ContainsRune("KQRBN", rune(n[0])) {
		return n[1:]
	}
	return n
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req chessdto.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err, msgArgs{})
		return
	}
	cfg, err := configFromRequest(req)
	if err != nil {
		s.writeError(w, err, msgArgs{})
		return
	}
	view, err := s.table.Create(r.Context(), cfg)
	if err != nil {
		s.writeError(w, err, msgArgs{})
		return
	}
	writeJSON(w, http.StatusCreated, chessdto.CreateSessionResponse{SessionID: view.ID, State: session.ToDTO(view)})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := s.table.State(r.Context(), id)
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.StateResponse{State: session.ToDTO(view)})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req chessdto.SelectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	pos, err := squareFrom(req.Square, req.Pos)
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id, Square: req.Square})
		return
	}
	view, err := s.table.Select(r.Context(), id, pos)
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id, Square: req.Square})
		return
	}
	state := session.ToDTO(view)
	writeJSON(w, http.StatusOK, chessdto.SelectResponse{LegalMoves: state.LegalMoves, State: state})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req chessdto.MoveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	mv, raw, err := resolveMove(req)
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id, Square: raw})
		return
	}
	var (
		view *session.View
		rec  *chess.MoveRecord
	)
	if mv.hasFrom {
		view, rec, err = s.table.MoveFrom(r.Context(), id, mv.from, mv.to)
	} else {
		view, rec, err = s.table.Move(r.Context(), id, mv.to)
	}
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.MoveResponse{Move: session.MoveDTO(rec), State: session.ToDTO(view)})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := s.table.Undo(r.Context(), id)
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.StateResponse{State: session.ToDTO(view)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := s.table.Reset(r.Context(), id)
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.StateResponse{State: session.ToDTO(view)})
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req chessdto.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	cfg, err := configFromRequest(req)
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	view, err := s.table.NewGame(r.Context(), id, cfg)
	if err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.StateResponse{State: session.ToDTO(view)})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.table.Close(r.Context(), id); err != nil {
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := s.table.State(r.Context(), id)
	if err != nil {
		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	opts := renderOptionsFor(view, s.catalog)
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 16 && n <= 128 {
			opts.SquareSize = n
		}
	}
	png, err := s.renderer.RenderPNG(r.Context(), view.State.Board, opts)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		s.writeError(w, err, msgArgs{ID: id})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("ETag", fmt.Sprintf(`"%s-%d"`, view.ID, view.Seq))
	_, _ = w.Write(png)
}

func renderOptionsFor(view *session.View, catalog *msgcat.Catalog) render.Options {
	st := view.State
	opts := render.Options{
		Selected: st.SelectedSquare,
		Targets:  st.LegalMoves,
		Header:   string(st.Config.Mode),
	}
	if st.Config.Difficulty != "" {
		opts.Header += " (" + string(st.Config.Difficulty) + ")"
	}
	if view.LastMove != nil {
		opts.LastMove = &chess.Move{From: view.LastMove.From, To: view.LastMove.To}
	}
	switch {
	case st.GameOver && st.Winner != nil:
		opts.Turn = catalog.Text("board.game_over", map[string]any{"Winner": st.Winner.String()}, st.Winner.String()+" wins")
	default:
		opts.Turn = catalog.Text("board.turn", map[string]any{"Player": st.CurrentPlayer.String(), "Check": st.IsCheck}, st.CurrentPlayer.String()+" to move")
	}
	return opts
}
