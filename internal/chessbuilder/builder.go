package chessbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/chess/opponent"
	"github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/httpapi"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/internal/room"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// Deps is everything the server process owns.
type Deps struct {
	Table    *session.Table
	Rooms    *room.Manager
	Recorder results.Recorder
	Server   *httpapi.Server
	Redis    *redis.Client
	Repo     *results.Repository

	closers []func() error
}

// New wires storage, the opponent, the session table and the HTTP server.
// Redis and Postgres are optional; without them sessions and results stay in
// memory and multiplayer rooms answer "unavailable".
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	if cfg.HardDepth > 0 {
		if err := opponent.SetPresetDepth(chess.Hard, cfg.HardDepth); err != nil {
			return nil, fmt.Errorf("hard depth: %w", err)
		}
	}

	var store session.Store = session.NewMemoryStore()
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		d.Redis = rdb
		d.closers = append(d.closers, rdb.Close)
		store = session.NewRedisStore(rdb, cfg.SessionTTL)
		logger.Info("redis_connected", zap.String("addr", rdb.Options().Addr), zap.Int("db", rdb.Options().DB))
	} else {
		logger.Warn("redis_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	d.Recorder = results.NewMemoryRepository()
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := results.NewRepository(cfg.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		d.closers = append(d.closers, repo.Close)
		sctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = repo.EnsureSchema(sctx)
		cancel()
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		d.Repo = repo
		d.Recorder = repo
	} else {
		logger.Warn("results_in_memory", zap.String("reason", "DATABASE_URL not set"))
	}

	table, err := session.NewTable(session.Config{
		UndoCapacity:      cfg.UndoCapacity,
		AIDelay:           cfg.AIDelay,
		TTL:               cfg.SessionTTL,
		MaxSessions:       cfg.MaxSessions,
		DefaultDifficulty: chess.Difficulty(cfg.DefaultDifficulty),
	}, opponent.New(opponent.WithLogger(logger.Named("opponent"))),
		session.WithStore(store),
		session.WithRecorder(d.Recorder),
		session.WithLogger(logger.Named("session")),
	)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Table = table
	d.Rooms = room.NewManager(d.Redis, table)

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}

	opts := []httpapi.Option{
		httpapi.WithRooms(d.Rooms),
		httpapi.WithRecorder(d.Recorder),
		httpapi.WithCatalog(catalog),
		httpapi.WithAllowedOrigins(cfg.AllowedOrigins),
		httpapi.WithLogger(logger.Named("http")),
	}
	if d.Redis != nil {
		rdb := d.Redis
		opts = append(opts, httpapi.WithHealthCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	if d.Repo != nil {
		opts = append(opts, httpapi.WithHealthCheck("database", d.Repo.Ping))
	}
	d.Server = httpapi.New(table, opts...)
	return d, nil
}

// Close releases storage handles in reverse order of acquisition.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
	d.closers = nil
}

func newRedisClient(ctx context.Context, raw string) (*redis.Client, error) {
	opts, err := parseRedisURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		// bare host:port
		return &redis.Options{Addr: raw}, nil
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, err
	}
	return opts, nil
}
