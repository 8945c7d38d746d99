package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/results"
	"go.uber.org/zap"
)

const (
	defaultAIDelay     = 500 * time.Millisecond
	defaultLockTimeout = 2 * time.Second
	defaultTTL         = time.Hour
	sweepInterval      = time.Minute
	openingLogMaxPly   = 16
)

type Config struct {
	UndoCapacity      int
	AIDelay           time.Duration
	LockTimeout       time.Duration
	TTL               time.Duration
	MaxSessions       int
	DefaultDifficulty chess.Difficulty
}

func (c Config) withDefaults() Config {
	if c.UndoCapacity <= 0 {
		c.UndoCapacity = DefaultUndoCapacity
	}
	if c.AIDelay <= 0 {
		c.AIDelay = defaultAIDelay
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = defaultLockTimeout
	}
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.DefaultDifficulty == "" {
		c.DefaultDifficulty = chess.Medium
	}
	return c
}

// Strategy picks the computer's reply. It must not mutate s.
type Strategy interface {
	Choose(ctx context.Context, s *chess.GameState, d chess.Difficulty) (chess.Move, error)
}

type Player struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// View is a copy of a session taken under its lock.
type View struct {
	ID        string
	Seq       uint64
	State     *chess.GameState
	UndoDepth int
	Thinking  bool
	LastMove  *chess.MoveRecord
	White     Player
	Black     Player
}

type Option func(*Table)

func WithStore(s Store) Option { return func(t *Table) { t.store = s } }

func WithRecorder(r results.Recorder) Option { return func(t *Table) { t.recorder = r } }

func WithLogger(l *zap.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		if now != nil {
			t.now = now
		}
	}
}

// Table owns every live session. Sessions sit in an arena of slots addressed
// through an id index; freed slots are reused.
type Table struct {
	cfg      Config
	strategy Strategy
	store    Store
	recorder results.Recorder
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.RWMutex
	slots []*entry
	free  []int
	index map[string]int

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func NewTable(cfg Config, strategy Strategy, opts ...Option) (*Table, error) {
	if strategy == nil {
		return nil, fmt.Errorf("opponent strategy is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Table{
		cfg:      cfg.withDefaults(),
		strategy: strategy,
		logger:   zap.NewNop(),
		now:      time.Now,
		index:    make(map[string]int),
		baseCtx:  ctx,
		stop:     cancel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type entry struct {
	id   string
	lock chan struct{}

	state     *chess.GameState
	history   *History
	seq       uint64
	task      *Task
	lastMove  *chess.MoveRecord
	white     Player
	black     Player
	gameNo    int
	room      string
	startedAt time.Time
	createdAt time.Time
	updatedAt time.Time
	closed    bool

	subs subscribers
}

func (e *entry) unlock() { <-e.lock }

func (e *entry) view() *View {
	v := &View{
		ID:        e.id,
		Seq:       e.seq,
		State:     e.state.Clone(),
		UndoDepth: e.history.Len(),
		Thinking:  e.task != nil,
		White:     e.white,
		Black:     e.black,
	}
	if e.lastMove != nil {
		mv := *e.lastMove
		v.LastMove = &mv
	}
	return v
}

func (e *entry) snapshot() *Snapshot {
	return &Snapshot{
		ID:        e.id,
		Seq:       e.seq,
		State:     e.state.Clone(),
		History:   e.history.Snapshots(),
		White:     e.white,
		Black:     e.black,
		GameNo:    e.gameNo,
		Room:      e.room,
		StartedAt: e.startedAt,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
	}
}

type CreateOption func(*entry)

// WithPlayers names the two sides for result records.
func WithPlayers(white, black Player) CreateOption {
	return func(e *entry) {
		e.white = white
		e.black = black
	}
}

// WithRoom hands the session to a multiplayer room. Only MoveFor and
// ApplyRemote may change it afterwards; the plain session operations fail with
// ErrRoomManaged.
func WithRoom(code string) CreateOption {
	return func(e *entry) { e.room = strings.TrimSpace(code) }
}

func (e *entry) direct() error {
	if e.room != "" {
		return fmt.Errorf("%w: %s", ErrRoomManaged, e.room)
	}
	return nil
}

func (t *Table) normalizeConfig(cfg chess.Config) (chess.Config, error) {
	mode, err := chess.ParseMode(string(cfg.Mode))
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode
	if cfg.Mode == chess.ModeAI && cfg.Difficulty == "" {
		cfg.Difficulty = t.cfg.DefaultDifficulty
	}
	if cfg.Difficulty != "" {
		d, err := chess.ParseDifficulty(string(cfg.Difficulty))
		if err != nil {
			return cfg, err
		}
		cfg.Difficulty = d
	}
	return cfg.WithDefaults(), nil
}

// Create starts a new session. In AI mode with the human playing Black the
// computer's first move is scheduled immediately.
func (t *Table) Create(ctx context.Context, cfg chess.Config, opts ...CreateOption) (*View, error) {
	cfg, err := t.normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	now := t.now()
	e := &entry{
		id:        uuid.NewString(),
		lock:      make(chan struct{}, 1),
		state:     chess.NewGameState(cfg),
		history:   NewHistory(t.cfg.UndoCapacity),
		gameNo:    1,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.lock <- struct{}{}
	defer e.unlock()

	t.mu.Lock()
	if t.cfg.MaxSessions > 0 && len(t.index) >= t.cfg.MaxSessions {
		t.mu.Unlock()
		return nil, ErrTableFull
	}
	t.insertLocked(e)
	t.mu.Unlock()

	t.persist(ctx, e)
	t.maybeScheduleOpponent(e)
	t.logger.Info("session_create",
		zap.String("session_id", e.id),
		zap.String("mode", string(cfg.Mode)),
		zap.String("difficulty", string(cfg.Difficulty)),
		zap.Stringer("player_color", cfg.PlayerColor),
	)
	return e.view(), nil
}

func (t *Table) insertLocked(e *entry) {
	if n := len(t.free); n > 0 {
		i := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[i] = e
		t.index[e.id] = i
		return
	}
	t.slots = append(t.slots, e)
	t.index[e.id] = len(t.slots) - 1
}

func (t *Table) removeLocked(id string) {
	i, ok := t.index[id]
	if !ok {
		return
	}
	t.slots[i] = nil
	t.free = append(t.free, i)
	delete(t.index, id)
}

// Len reports the number of sessions held in memory.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.index)
}

func (t *Table) lookup(ctx context.Context, id string) (*entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrSessionNotFound
	}
	t.mu.RLock()
	if i, ok := t.index[id]; ok {
		e := t.slots[i]
		t.mu.RUnlock()
		return e, nil
	}
	t.mu.RUnlock()

	if t.store == nil {
		return nil, ErrSessionNotFound
	}
	snap, err := t.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if snap == nil || snap.State == nil || snap.State.Board == nil {
		return nil, ErrSessionNotFound
	}
	e := t.entryFromSnapshot(snap)

	t.mu.Lock()
	if i, ok := t.index[id]; ok {
		existing := t.slots[i]
		t.mu.Unlock()
		return existing, nil
	}
	if t.cfg.MaxSessions > 0 && len(t.index) >= t.cfg.MaxSessions {
		t.mu.Unlock()
		return nil, ErrTableFull
	}
	e.lock <- struct{}{}
	t.insertLocked(e)
	t.mu.Unlock()

	t.maybeScheduleOpponent(e)
	e.unlock()
	t.logger.Info("session_rehydrate",
		zap.String("session_id", e.id),
		zap.Uint64("seq", e.seq),
		zap.Int("undo_depth", e.history.Len()),
	)
	return e, nil
}

func (t *Table) entryFromSnapshot(snap *Snapshot) *entry {
	state := snap.State
	if state.MoveHistory == nil {
		state.MoveHistory = []string{}
	}
	gameNo := snap.GameNo
	if gameNo <= 0 {
		gameNo = 1
	}
	return &entry{
		id:        snap.ID,
		lock:      make(chan struct{}, 1),
		state:     state,
		history:   restoreHistory(t.cfg.UndoCapacity, snap.History),
		seq:       snap.Seq,
		white:     snap.White,
		black:     snap.Black,
		gameNo:    gameNo,
		room:      snap.Room,
		startedAt: snap.StartedAt,
		createdAt: snap.CreatedAt,
		updatedAt: snap.UpdatedAt,
	}
}

// acquire takes the session lock, waiting at most LockTimeout.
func (t *Table) acquire(ctx context.Context, id string) (*entry, error) {
	e, err := t.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, t.cfg.LockTimeout)
	defer cancel()
	select {
	case e.lock <- struct{}{}:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: %s", ErrLockUnavailable, e.id)
	}
	if e.closed {
		e.unlock()
		return nil, ErrSessionClosed
	}
	return e, nil
}

func (t *Table) State(ctx context.Context, id string) (*View, error) {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.unlock()
	return e.view(), nil
}

// Select changes the selection. Once the game is over it is a no-op.
func (t *Table) Select(ctx context.Context, id string, pos chess.Position) (*View, error) {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.unlock()
	if err := e.direct(); err != nil {
		return nil, err
	}
	if _, err := e.state.Select(pos); err != nil {
		if errors.Is(err, chess.ErrGameOver) {
			return e.view(), nil
		}
		return nil, err
	}
	e.updatedAt = t.now()
	t.persist(ctx, e)
	t.publish(e, EventState, nil)
	return e.view(), nil
}

// Move plays the selected piece to to.
func (t *Table) Move(ctx context.Context, id string, to chess.Position) (*View, *chess.MoveRecord, error) {
	return t.play(ctx, id, true, func(s *chess.GameState) (chess.MoveRecord, error) {
		return s.Move(to)
	})
}

// MoveFrom plays from-to without a prior selection.
func (t *Table) MoveFrom(ctx context.Context, id string, from, to chess.Position) (*View, *chess.MoveRecord, error) {
	return t.play(ctx, id, true, func(s *chess.GameState) (chess.MoveRecord, error) {
		return s.MoveFromTo(from, to)
	})
}

// MoveFor plays from-to on behalf of side, failing with ErrNotYourTurn when
// side is not to move.
func (t *Table) MoveFor(ctx context.Context, id string, side chess.Color, from, to chess.Position) (*View, *chess.MoveRecord, error) {
	return t.play(ctx, id, false, func(s *chess.GameState) (chess.MoveRecord, error) {
		if s.CurrentPlayer != side {
			return chess.MoveRecord{}, ErrNotYourTurn
		}
		return s.MoveFromTo(from, to)
	})
}

// play pushes an undo snapshot only when the move is accepted. A move after
// the game is over returns the unchanged state. direct calls are refused on
// room sessions.
func (t *Table) play(ctx context.Context, id string, direct bool, apply func(*chess.GameState) (chess.MoveRecord, error)) (*View, *chess.MoveRecord, error) {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer e.unlock()
	if direct {
		if err := e.direct(); err != nil {
			return nil, nil, err
		}
	}
	if e.state.GameOver {
		return e.view(), nil, nil
	}
	if cc := e.state.Config.ComputerColor(); cc != chess.NoColor && e.state.CurrentPlayer == cc {
		return nil, nil, ErrOpponentTurn
	}
	before := e.state.Clone()
	rec, err := apply(e.state)
	if err != nil {
		return nil, nil, err
	}
	e.history.Push(before)
	t.afterMove(ctx, e, rec, EventMove)
	t.maybeScheduleOpponent(e)
	return e.view(), &rec, nil
}

// ApplyRemote replays a move received from another process and checks the
// result against the sender's board. On mismatch the move is rolled back.
func (t *Table) ApplyRemote(ctx context.Context, id string, from, to chess.Position, expected *chess.Board) (*View, *chess.MoveRecord, error) {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer e.unlock()
	before := e.state.Clone()
	rec, err := e.state.MoveFromTo(from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s-%s: %v", ErrDiverged, from, to, err)
	}
	if expected != nil && !e.state.Board.Equal(expected) {
		e.state = before
		t.logger.Warn("session_remote_diverged",
			zap.String("session_id", e.id),
			zap.String("move", rec.Notation),
		)
		return nil, nil, fmt.Errorf("%w: after %s", ErrDiverged, rec.Notation)
	}
	e.history.Push(before)
	t.afterMove(ctx, e, rec, EventMove)
	return e.view(), &rec, nil
}

// Undo restores the snapshot taken before the last accepted human move. A
// pending computer reply is cancelled.
func (t *Table) Undo(ctx context.Context, id string) (*View, error) {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.unlock()
	if err := e.direct(); err != nil {
		return nil, err
	}
	prev, err := e.history.Pop()
	if err != nil {
		return nil, err
	}
	e.cancelTask()
	e.state = prev
	e.seq++
	e.lastMove = nil
	e.updatedAt = t.now()
	t.persist(ctx, e)
	t.publish(e, EventUndo, nil)
	t.maybeScheduleOpponent(e)
	t.logger.Info("session_undo",
		zap.String("session_id", e.id),
		zap.Uint64("seq", e.seq),
		zap.Int("undo_depth", e.history.Len()),
	)
	return e.view(), nil
}

// Reset restarts the game keeping its configuration and clears undo history.
func (t *Table) Reset(ctx context.Context, id string) (*View, error) {
	return t.restart(ctx, id, nil)
}

// NewGame restarts the game with cfg and clears undo history.
func (t *Table) NewGame(ctx context.Context, id string, cfg chess.Config) (*View, error) {
	cfg, err := t.normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	return t.restart(ctx, id, &cfg)
}

func (t *Table) restart(ctx context.Context, id string, cfg *chess.Config) (*View, error) {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.unlock()
	if err := e.direct(); err != nil {
		return nil, err
	}
	e.cancelTask()
	if cfg != nil {
		e.state.NewGame(*cfg)
	} else {
		e.state.Reset()
	}
	e.history.Clear()
	e.seq++
	e.lastMove = nil
	e.gameNo++
	now := t.now()
	e.startedAt = now
	e.updatedAt = now
	t.persist(ctx, e)
	t.publish(e, EventReset, nil)
	t.maybeScheduleOpponent(e)
	t.logger.Info("session_restart",
		zap.String("session_id", e.id),
		zap.String("mode", string(e.state.Config.Mode)),
		zap.Int("game_no", e.gameNo),
	)
	return e.view(), nil
}

// Close removes the session from the store and then from memory. While the
// entry stays indexed a concurrent lookup cannot reload the deleted snapshot.
// Room sessions cannot be closed this way.
func (t *Table) Close(ctx context.Context, id string) error {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer e.unlock()
	if err := e.direct(); err != nil {
		return err
	}
	if t.store != nil {
		if err := t.store.Delete(ctx, e.id); err != nil {
			return fmt.Errorf("delete session %s: %w", e.id, err)
		}
	}
	t.closeLocked(e)
	t.logger.Info("session_close", zap.String("session_id", e.id))
	return nil
}

func (t *Table) closeLocked(e *entry) {
	e.cancelTask()
	e.closed = true
	t.mu.Lock()
	t.removeLocked(e.id)
	t.mu.Unlock()
	e.subs.publish(Event{Kind: EventClosed, View: e.view()})
	e.subs.closeAll()
}

// Subscribe streams events for the session, starting with its current state.
// The returned cancel func must be called to release the subscription.
func (t *Table) Subscribe(ctx context.Context, id string) (<-chan Event, func(), error) {
	e, err := t.acquire(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer e.unlock()
	subID, ch := e.subs.add()
	ch <- Event{Kind: EventState, View: e.view()}
	var once sync.Once
	cancel := func() { once.Do(func() { e.subs.remove(subID) }) }
	return ch, cancel, nil
}

// Sweep evicts sessions idle for longer than TTL. Their snapshots stay in the
// store until it expires them, so they can still be rehydrated.
func (t *Table) Sweep() int {
	t.mu.RLock()
	candidates := make([]*entry, 0, len(t.index))
	for _, i := range t.index {
		candidates = append(candidates, t.slots[i])
	}
	t.mu.RUnlock()

	cutoff := t.now().Add(-t.cfg.TTL)
	evicted := 0
	for _, e := range candidates {
		select {
		case e.lock <- struct{}{}:
		default:
			continue
		}
		if !e.closed && e.updatedAt.Before(cutoff) && e.task == nil && e.subs.count() == 0 {
			t.closeLocked(e)
			evicted++
		}
		e.unlock()
	}
	if evicted > 0 {
		t.logger.Info("session_sweep", zap.Int("evicted", evicted), zap.Int("remaining", t.Len()))
	}
	return evicted
}

// Run sweeps idle sessions until ctx is done.
func (t *Table) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Shutdown cancels pending computer moves and waits for them to exit.
func (t *Table) Shutdown(ctx context.Context) error {
	t.stop()
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Table) afterMove(ctx context.Context, e *entry, rec chess.MoveRecord, kind EventKind) {
	e.seq++
	e.lastMove = &rec
	e.updatedAt = t.now()
	t.persist(ctx, e)
	t.publish(e, kind, &rec)
	if ply := len(e.state.MoveHistory); ply <= openingLogMaxPly {
		code, title := OpeningLabel(e.state.MoveHistory)
		t.logger.Debug("session_opening_label",
			zap.String("session_id", e.id),
			zap.String("eco_code", code),
			zap.String("eco_title", title),
			zap.Int("ply", ply),
		)
	}
	if rec.GameOver {
		t.recordResult(ctx, e)
	}
}

func (t *Table) persist(ctx context.Context, e *entry) {
	if t.store == nil {
		return
	}
	if err := t.store.Save(ctx, e.snapshot()); err != nil {
		t.logger.Warn("session_persist_failed", zap.String("session_id", e.id), zap.Error(err))
	}
}

func (t *Table) publish(e *entry, kind EventKind, rec *chess.MoveRecord) {
	if e.subs.count() == 0 {
		return
	}
	ev := Event{Kind: kind, View: e.view()}
	if rec != nil {
		mv := *rec
		ev.Move = &mv
	}
	if dropped := e.subs.publish(ev); dropped > 0 {
		t.logger.Debug("session_event_dropped",
			zap.String("session_id", e.id),
			zap.String("kind", string(kind)),
			zap.Int("dropped", dropped),
		)
	}
}

func (t *Table) recordResult(ctx context.Context, e *entry) {
	s := e.state
	winner := ""
	if s.Winner != nil {
		winner = s.Winner.String()
	}
	code, title := OpeningLabel(s.MoveHistory)
	t.logger.Info("session_game_over",
		zap.String("session_id", e.id),
		zap.String("winner", winner),
		zap.Int("plies", len(s.MoveHistory)),
		zap.String("eco_code", code),
	)
	if t.recorder == nil {
		return
	}
	white, black := e.white, e.black
	if s.Config.Mode == chess.ModeAI {
		computer := Player{ID: "computer", Name: "Computer (" + string(s.Config.Difficulty) + ")"}
		human := Player{ID: "player", Name: "Player"}
		if s.Config.ComputerColor() == chess.White {
			white, black = computer, human
		} else {
			white, black = human, computer
		}
	}
	gameID := s.Config.GameID
	if gameID == "" {
		gameID = fmt.Sprintf("%s-%d", e.id, e.gameNo)
	}
	res := &results.Result{
		GameID:     gameID,
		SessionID:  e.id,
		Mode:       string(s.Config.Mode),
		Difficulty: string(s.Config.Difficulty),
		WhiteID:    white.ID,
		WhiteName:  white.Name,
		BlackID:    black.ID,
		BlackName:  black.Name,
		Winner:     winner,
		Method:     "king_capture",
		Moves:      append([]string(nil), s.MoveHistory...),
		ECOCode:    code,
		Opening:    title,
		StartedAt:  e.startedAt,
		EndedAt:    t.now(),
	}
	if err := t.recorder.SaveResult(ctx, res); err != nil {
		t.logger.Warn("session_result_save_failed", zap.String("session_id", e.id), zap.Error(err))
	}
}
