package httpapi

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

func resultDTO(r *results.Result) *chessdto.GameResult {
	return &chessdto.GameResult{
		GameID:     r.GameID,
		SessionID:  r.SessionID,
		Mode:       r.Mode,
		Difficulty: r.Difficulty,
		WhiteName:  r.WhiteName,
		BlackName:  r.BlackName,
		Winner:     r.Winner,
		Method:     r.Method,
		Moves:      append([]string{}, r.Moves...),
		ECOCode:    r.ECOCode,
		Opening:    r.Opening,
		PGN:        results.BuildPGN(r),
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	out := chessdto.ResultsResponse{Results: []*chessdto.GameResult{}}
	if s.recorder == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, badRequest("limit must be a positive integer"), msgArgs{})
			return
		}
		limit = min(n, 100)
	}
	items, err := s.recorder.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err, msgArgs{})
		return
	}
	for _, it := range items {
		out.Results = append(out.Results, resultDTO(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := chessdto.HealthResponse{Status: "ok", Sessions: s.table.Len()}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "ok"
		if err := s.checks[name](ctx); err != nil {
			state = "down: " + err.Error()
			resp.Status = "degraded"
		}
		switch name {
		case "redis":
			resp.Redis = state
		case "database":
			resp.Database = state
		}
	}
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
