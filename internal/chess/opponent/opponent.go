package opponent

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/cheese-chess/internal/chess"
	"go.uber.org/zap"
)

var ErrNoLegalMoves = errors.New("no legal moves for computer opponent")

const (
	scoreInf = 1 << 30
)

// Opponent picks moves for the computer side. It never mutates the state it is given.
type Opponent struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *zap.Logger
}

type Option func(*Opponent)

// WithRand injects the random source, e.g. a seeded one in tests.
func WithRand(r *rand.Rand) Option {
	return func(o *Opponent) { o.rng = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Opponent) { o.logger = l }
}

func New(opts ...Option) *Opponent {
	o := &Opponent{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Choose returns the move the player to move in s should play at difficulty d.
func (o *Opponent) Choose(ctx context.Context, s *chess.GameState, d chess.Difficulty) (chess.Move, error) {
	if err := ctx.Err(); err != nil {
		return chess.Move{}, err
	}
	preset, err := PresetFor(d)
	if err != nil {
		return chess.Move{}, err
	}
	moves := chess.AllLegalMoves(s)
	if len(moves) == 0 {
		return chess.Move{}, ErrNoLegalMoves
	}

	start := time.Now()
	var choice chess.Move
	switch {
	case preset.Depth > 0:
		choice, err = o.search(ctx, s, moves, preset.Depth)
	case preset.PreferChecks || preset.PreferCaptures:
		choice = o.preferred(s, moves, preset)
	default:
		choice = o.pick(moves)
	}
	if err != nil {
		return chess.Move{}, err
	}
	o.logger.Debug("opponent_choose",
		zap.String("difficulty", string(preset.Name)),
		zap.String("move", choice.String()),
		zap.Int("candidates", len(moves)),
		zap.Duration("took", time.Since(start)),
	)
	return choice, nil
}

func (o *Opponent) pick(moves []chess.Move) chess.Move {
	o.mu.Lock()
	defer o.mu.Unlock()
	return moves[o.rng.Intn(len(moves))]
}

// preferred picks randomly among checking moves, else captures, else any move.
func (o *Opponent) preferred(s *chess.GameState, moves []chess.Move, p Preset) chess.Move {
	var checks, captures []chess.Move
	for _, m := range moves {
		if p.PreferCaptures && !s.Board.At(m.To).IsZero() {
			captures = append(captures, m)
		}
		if p.PreferChecks {
			child := s.Clone()
			if rec, err := child.MoveFromTo(m.From, m.To); err == nil && rec.Check {
				checks = append(checks, m)
			}
		}
	}
	switch {
	case len(checks) > 0:
		return o.pick(checks)
	case len(captures) > 0:
		return o.pick(captures)
	default:
		return o.pick(moves)
	}
}

// search runs fixed-depth minimax with alpha-beta pruning, scoring leaves for the side to move at the root.
func (o *Opponent) search(ctx context.Context, s *chess.GameState, moves []chess.Move, depth int) (chess.Move, error) {
	root := s.CurrentPlayer
	best := moves[0]
	bestScore := -scoreInf
	alpha := -scoreInf
	for _, m := range moves {
		if err := ctx.Err(); err != nil {
			return chess.Move{}, err
		}
		child := s.Clone()
		if _, err := child.MoveFromTo(m.From, m.To); err != nil {
			continue
		}
		score := minimax(child, depth-1, false, alpha, scoreInf, root)
		if score > bestScore {
			bestScore = score
			best = m
		}
		if bestScore > alpha {
			alpha = bestScore
		}
	}
	return best, nil
}

func minimax(s *chess.GameState, depth int, maximizing bool, alpha, beta int, root chess.Color) int {
	if depth <= 0 || s.GameOver {
		return Evaluate(s, root)
	}
	moves := chess.AllLegalMoves(s)
	if len(moves) == 0 {
		return Evaluate(s, root)
	}
	if maximizing {
		best := -scoreInf
		for _, m := range moves {
			child := s.Clone()
			if _, err := child.MoveFromTo(m.From, m.To); err != nil {
				continue
			}
			best = max(best, minimax(child, depth-1, false, alpha, beta, root))
			alpha = max(alpha, best)
			if beta <= alpha {
				break
			}
		}
		return best
	}
	best := scoreInf
	for _, m := range moves {
		child := s.Clone()
		if _, err := child.MoveFromTo(m.From, m.To); err != nil {
			continue
		}
		best = min(best, minimax(child, depth-1, true, alpha, beta, root))
		beta = min(beta, best)
		if beta <= alpha {
			break
		}
	}
	return best
}
