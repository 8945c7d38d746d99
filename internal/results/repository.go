package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS chess_results (
    game_id     TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL,
    mode        TEXT NOT NULL,
    difficulty  TEXT NOT NULL DEFAULT '',
    white_id    TEXT NOT NULL DEFAULT '',
    white_name  TEXT NOT NULL DEFAULT '',
    black_id    TEXT NOT NULL DEFAULT '',
    black_name  TEXT NOT NULL DEFAULT '',
    result      TEXT NOT NULL,
    method      TEXT NOT NULL,
    moves       JSONB NOT NULL,
    pgn         TEXT NOT NULL,
    eco_code    TEXT NOT NULL DEFAULT '',
    opening     TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
)`

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an already opened handle.
func NewRepositoryWithDB(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("results database not configured")
	}
	return r.db.PingContext(ctx)
}

// EnsureSchema creates the results table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveResult upserts a finished match.
func (r *Repository) SaveResult(ctx context.Context, res *Result) error {
	if r == nil || r.db == nil || res == nil {
		return nil
	}
	movesRaw, err := json.Marshal(res.Moves)
	if err != nil {
		return err
	}
	duration := res.EndedAt.Sub(res.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO chess_results (
        game_id, session_id, mode, difficulty,
        white_id, white_name, black_id, black_name,
        result, method, moves, pgn, eco_code, opening,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
      ) ON CONFLICT (game_id) DO UPDATE SET
        session_id=EXCLUDED.session_id,
        mode=EXCLUDED.mode,
        difficulty=EXCLUDED.difficulty,
        white_id=EXCLUDED.white_id,
        white_name=EXCLUDED.white_name,
        black_id=EXCLUDED.black_id,
        black_name=EXCLUDED.black_name,
        result=EXCLUDED.result,
        method=EXCLUDED.method,
        moves=EXCLUDED.moves,
        pgn=EXCLUDED.pgn,
        eco_code=EXCLUDED.eco_code,
        opening=EXCLUDED.opening,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		res.GameID, res.SessionID, res.Mode, res.Difficulty,
		res.WhiteID, res.WhiteName, res.BlackID, res.BlackName,
		MapResultToPGN(res.Winner), strings.TrimSpace(res.Method), string(movesRaw), BuildPGN(res),
		res.ECOCode, res.Opening,
		res.StartedAt, res.EndedAt, duration,
	)
	return err
}

// Recent returns the latest finished matches, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*Result, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT game_id, session_id, mode, difficulty,
        white_id, white_name, black_id, black_name, result, method, moves,
        eco_code, opening, started_at, ended_at
      FROM chess_results ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Result
	for rows.Next() {
		var (
			res       Result
			pgnResult string
			movesRaw  []byte
		)
		if err := rows.Scan(&res.GameID, &res.SessionID, &res.Mode, &res.Difficulty,
			&res.WhiteID, &res.WhiteName, &res.BlackID, &res.BlackName, &pgnResult, &res.Method, &movesRaw,
			&res.ECOCode, &res.Opening, &res.StartedAt, &res.EndedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(movesRaw, &res.Moves); err != nil {
			return nil, fmt.Errorf("decode moves for %s: %w", res.GameID, err)
		}
		res.Winner = winnerFromPGN(pgnResult)
		out = append(out, &res)
	}
	return out, rows.Err()
}

func MapResultToPGN(winner string) string {
	switch strings.ToLower(strings.TrimSpace(winner)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func winnerFromPGN(s string) string {
	switch s {
	case "1-0":
		return "White"
	case "0-1":
		return "Black"
	default:
		return ""
	}
}
