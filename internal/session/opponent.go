package session

import (
	"context"
	"errors"
	"time"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/chess/opponent"
	"go.uber.org/zap"
)

// Task is a scheduled computer reply, bound to the session sequence number
// at which it was scheduled. Any later change to the session cancels it.
type Task struct {
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *Task) Seq() uint64 { return t.seq }

// Done is closed once the task has applied its move or given up.
func (t *Task) Done() <-chan struct{} { return t.done }

func (e *entry) cancelTask() {
	if e.task != nil {
		e.task.cancel()
		e.task = nil
	}
}

// Pending returns the computer reply in flight for the session, if any.
func (t *Table) Pending(ctx context.Context, id string) (*Task, error) {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.unlock()
	return e.task, nil
}

// maybeScheduleOpponent must be called with the session lock held.
func (t *Table) maybeScheduleOpponent(e *entry) {
	cc := e.state.Config.ComputerColor()
	if cc == chess.NoColor || e.closed || e.state.GameOver || e.state.CurrentPlayer != cc {
		return
	}
	e.cancelTask()
	ctx, cancel := context.WithCancel(t.baseCtx)
	task := &Task{seq: e.seq, cancel: cancel, done: make(chan struct{})}
	e.task = task
	t.wg.Add(1)
	go t.runOpponent(ctx, e, task, e.state.Clone())
}

func (t *Table) runOpponent(ctx context.Context, e *entry, task *Task, snap *chess.GameState) {
	defer t.wg.Done()
	defer close(task.done)
	defer task.cancel()

	timer := time.NewTimer(t.cfg.AIDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	start := time.Now()
	mv, err := t.strategy.Choose(ctx, snap, snap.Config.Difficulty)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, opponent.ErrNoLegalMoves) {
			t.logger.Info("opponent_no_moves", zap.String("session_id", e.id), zap.Uint64("seq", task.seq))
		} else {
			t.logger.Warn("opponent_choose_failed", zap.String("session_id", e.id), zap.Error(err))
		}
		t.abandonTask(ctx, e, task)
		return
	}

	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer e.unlock()
	if e.task != task || e.seq != task.seq || e.closed {
		t.logger.Debug("opponent_move_stale", zap.String("session_id", e.id), zap.Uint64("task_seq", task.seq), zap.Uint64("seq", e.seq))
		return
	}
	e.task = nil
	rec, err := e.state.MoveFromTo(mv.From, mv.To)
	if err != nil {
		t.logger.Warn("opponent_move_rejected", zap.String("session_id", e.id), zap.Stringer("move", mv), zap.Error(err))
		t.publish(e, EventState, nil)
		return
	}
	t.logger.Info("opponent_move",
		zap.String("session_id", e.id),
		zap.String("notation", rec.Notation),
		zap.String("difficulty", string(snap.Config.Difficulty)),
		zap.Duration("think", time.Since(start)),
	)
	t.afterMove(ctx, e, rec, EventOpponentMove)
}

func (t *Table) abandonTask(ctx context.Context, e *entry, task *Task) {
	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer e.unlock()
	if e.task == task {
		e.task = nil
		t.publish(e, EventState, nil)
	}
}
