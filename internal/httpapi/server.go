// Package httpapi exposes sessions, rooms and results over JSON and WebSocket.
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/render"
	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/internal/room"
	"github.com/park285/cheese-chess/internal/session"
	"go.uber.org/zap"
)

const (
	maxJSONBodyBytes int64 = 1 << 20
	apiCSP                 = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	wsPingInterval         = 30 * time.Second
)

// HealthCheck probes one dependency for /healthz.
type HealthCheck func(ctx context.Context) error

type Server struct {
	table    *session.Table
	rooms    *room.Manager
	recorder results.Recorder
	catalog  *msgcat.Catalog
	renderer render.BoardRenderer
	logger   *zap.Logger
	origins  []string
	checks   map[string]HealthCheck

	srvMu sync.Mutex
	srv   *http.Server
}

type Option func(*Server)

func WithRooms(m *room.Manager) Option { return func(s *Server) { s.rooms = m } }
func WithRecorder(r results.Recorder) Option { return func(s *Server) { s.recorder = r } }
func WithCatalog(c *msgcat.Catalog) Option { return func(s *Server) { s.catalog = c } }
func WithRenderer(r render.BoardRenderer) Option { return func(s *Server) { s.renderer = r } }

// WithAllowedOrigins sets the WebSocket origin patterns (host globs such as "localhost:*").
func WithAllowedOrigins(patterns []string) Option {
	return func(s *Server) { s.origins = append([]string(nil), patterns...) }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHealthCheck registers a named probe reported by /healthz ("redis", "database").
func WithHealthCheck(name string, fn HealthCheck) Option {
	return func(s *Server) {
		if fn != nil {
			s.checks[name] = fn
		}
	}
}

func New(table *session.Table, opts ...Option) *Server {
	s := &Server{
		table:    table,
		renderer: render.NewRenderer(),
		logger:   zap.NewNop(),
		checks:   make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = msgcat.MustDefault()
	}
	return s
}

// Listen serves until Close is called.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// WebSocket streams outlive any write deadline; handlers bound their own writes.
		WriteTimeout:   0,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	s.logger.Info("http_listen", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close attempts a graceful shutdown.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.withJSON(s.handleCreateSession))
	mux.HandleFunc("GET /api/sessions/{id}", s.withJSON(s.handleState))
	mux.HandleFunc("POST /api/sessions/{id}/select", s.withJSON(s.handleSelect))
	mux.HandleFunc("POST /api/sessions/{id}/move", s.withJSON(s.handleMove))
	mux.HandleFunc("POST /api/sessions/{id}/undo", s.withJSON(s.handleUndo))
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.withJSON(s.handleReset))
	mux.HandleFunc("POST /api/sessions/{id}/new", s.withJSON(s.handleNewGame))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.withJSON(s.handleClose))
	mux.HandleFunc("GET /api/sessions/{id}/board.png", s.handleBoardPNG)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleSessionEvents)

	mux.HandleFunc("GET /api/rooms", s.withJSON(s.handleListRooms))
	mux.HandleFunc("POST /api/rooms", s.withJSON(s.handleMakeRoom))
	mux.HandleFunc("GET /api/rooms/{code}", s.withJSON(s.handleGetRoom))
	mux.HandleFunc("POST /api/rooms/{code}/join", s.withJSON(s.handleJoinRoom))
	mux.HandleFunc("POST /api/rooms/{code}/move", s.withJSON(s.handleRoomMove))
	mux.HandleFunc("GET /api/rooms/{code}/events", s.handleRoomEvents)

	mux.HandleFunc("GET /api/results", s.withJSON(s.handleResults))
	mux.HandleFunc("GET /healthz", s.withJSON(s.handleHealth))

	return s.withAccessLog(mux)
}

func (s *Server) withJSON(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func applyAPISecurityHeaders(h http.Header) {
	h.Set("Content-Security-Policy", apiCSP)
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("X-Content-Type-Options", "nosniff")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// decodeBody reads an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return badRequest(err.Error())
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
