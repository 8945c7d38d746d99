package room

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayBuffer = 16

type Manager struct {
	rdb   *redis.Client
	store *Store
	table *session.Table
}

func NewManager(rdb *redis.Client, table *session.Table) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb), table: table}
}

func (m *Manager) ready() error {
	if m == nil || m.rdb == nil || m.table == nil {
		return ErrUnavailable
	}
	return nil
}

// Make opens a lobby channel for userID. A user may hold one open lobby at a time.
func (m *Manager) Make(ctx context.Context, room, userID, userName string) (*MakeResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	room, userID = strings.TrimSpace(room), strings.TrimSpace(userID)
	if room == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	if open, err := m.openLobbyOf(ctx, userID); err != nil {
		return nil, err
	} else if open != "" {
		return nil, ErrCreatorHasLobby
	}
	for i := 0; i < 5; i++ {
		c, err := codeGen()
		if err != nil {
			return nil, err
		}
		// claim the code before writing real meta
		ok, err := m.rdb.SetNX(ctx, m.store.keyMeta(c), []byte("{}"), ttlChannel).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		now := time.Now()
		meta := &Meta{
			Code:        c,
			State:       StateLobby,
			CreatedAt:   now,
			UpdatedAt:   now,
			CreatorID:   userID,
			CreatorName: strings.TrimSpace(userName),
			CreatorRoom: room,
		}
		if err := m.store.SaveMeta(ctx, c, meta); err != nil {
			return nil, err
		}
		if err := m.store.AddRoom(ctx, c, room); err != nil {
			return nil, err
		}
		// creator counts as the first participant so the next join starts the game
		if err := m.store.AddParticipant(ctx, c, userID); err != nil {
			return nil, err
		}
		if err := m.store.AddLobby(ctx, c); err != nil {
			return nil, err
		}
		obslog.L().Info("lobby_make", zap.String("code", c), zap.String("room", room), zap.String("creator_id", userID))
		return &MakeResult{Code: c, Meta: meta}, nil
	}
	return nil, fmt.Errorf("failed to allocate channel code")
}

func (m *Manager) openLobbyOf(ctx context.Context, userID string) (string, error) {
	codes, err := m.store.CodesByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, c := range codes {
		meta, _ := m.store.LoadMeta(ctx, c)
		if meta != nil && meta.State == StateLobby && meta.CreatorID == userID {
			return c, nil
		}
	}
	return "", nil
}

// Join adds userID to the channel. The second participant starts the game:
// colors are drawn at random and a Multiplayer session is created with the
// channel code as its game id.
func (m *Manager) Join(ctx context.Context, room, code, userID, userName string) (*JoinResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	room, code, userID = strings.TrimSpace(room), strings.TrimSpace(code), strings.TrimSpace(userID)
	userName = strings.TrimSpace(userName)
	if room == "" || code == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrChannelGone
	}
	if meta.ColorOf(userID) != chess.NoColor {
		return m.joined(ctx, meta)
	}
	if meta.State != StateLobby {
		return nil, ErrChannelActive
	}

	partKey := m.store.keyParticipants(code)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		member, err := tx.SIsMember(ctx, partKey, userID).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if member {
			return nil
		}
		cnt, err := tx.SCard(ctx, partKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cnt >= 2 {
			return ErrFull
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, partKey, userID)
			pipe.Expire(ctx, partKey, ttlChannel)
			pipe.SAdd(ctx, m.store.keyRooms(code), room)
			pipe.Expire(ctx, m.store.keyRooms(code), ttlChannel)
			pipe.SAdd(ctx, m.store.keyUserIdx(userID), code)
			pipe.Expire(ctx, m.store.keyUserIdx(userID), ttlChannel)
			return nil
		})
		return err
	}, partKey)
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	members, err := m.store.Participants(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(members) < 2 || userID == meta.CreatorID {
		obslog.L().Info("lobby_join", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.String("reason", "queued"))
		return &JoinResult{Started: false, Meta: meta}, nil
	}
	return m.start(ctx, meta, userID, userName)
}

func (m *Manager) start(ctx context.Context, meta *Meta, joinerID, joinerName string) (*JoinResult, error) {
	// only one caller may start the game
	ok, err := m.rdb.SetNX(ctx, m.store.keyMeta(meta.Code)+":start", joinerID, ttlChannel).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := m.Get(ctx, meta.Code)
		if err != nil {
			return nil, err
		}
		return m.joined(ctx, current)
	}
	creator := session.Player{ID: meta.CreatorID, Name: meta.CreatorName}
	joiner := session.Player{ID: joinerID, Name: joinerName}
	white, black := creator, joiner
	if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
		white, black = joiner, creator
	}

	view, err := m.table.Create(ctx,
		chess.Config{Mode: chess.ModeMultiplayer, GameID: meta.Code},
		session.WithPlayers(white, black),
		session.WithRoom(meta.Code),
	)
	if err != nil {
		return nil, err
	}
	meta.WhiteID, meta.WhiteName = white.ID, white.Name
	meta.BlackID, meta.BlackName = black.ID, black.Name
	meta.SessionID = view.ID
	meta.State = StateActive
	meta.UpdatedAt = time.Now()
	if err := m.store.SaveMeta(ctx, meta.Code, meta); err != nil {
		return nil, err
	}
	_ = m.store.RemoveLobby(ctx, meta.Code)
	obslog.L().Info("lobby_start_game",
		zap.String("code", meta.Code),
		zap.String("session_id", view.ID),
		zap.String("white_id", meta.WhiteID),
		zap.String("black_id", meta.BlackID),
	)
	return &JoinResult{Started: true, Meta: meta, View: view}, nil
}

func (m *Manager) joined(ctx context.Context, meta *Meta) (*JoinResult, error) {
	res := &JoinResult{Started: meta.SessionID != "", Meta: meta}
	if meta.SessionID != "" {
		view, err := m.table.State(ctx, meta.SessionID)
		if err != nil {
			return nil, err
		}
		res.View = view
	}
	return res, nil
}

// Get returns the channel meta.
func (m *Manager) Get(ctx context.Context, code string) (*Meta, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrChannelGone
	}
	return meta, nil
}

// Play moves for userID and relays the move to the channel.
func (m *Manager) Play(ctx context.Context, code, userID string, from, to chess.Position) (*session.View, *chess.MoveRecord, error) {
	meta, err := m.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	switch meta.State {
	case StateLobby:
		return nil, nil, ErrNotStarted
	case StateFinished:
		return nil, nil, ErrFinished
	}
	side := meta.ColorOf(strings.TrimSpace(userID))
	if side == chess.NoColor {
		return nil, nil, ErrNotParticipant
	}
	view, rec, err := m.table.MoveFor(ctx, meta.SessionID, side, from, to)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrFinished
	}

	relay := &Relay{
		Code:     meta.Code,
		Ply:      len(view.State.MoveHistory),
		Mover:    side,
		PlayerID: userID,
		From:     rec.From,
		To:       rec.To,
		Notation: rec.Notation,
		Board:    view.State.Board,
		GameOver: rec.GameOver,
	}
	if view.State.Winner != nil {
		relay.Winner = view.State.Winner.String()
	}
	if err := m.store.AppendMove(ctx, meta.Code, relay); err != nil {
		obslog.L().Warn("room_relay_failed", zap.String("code", meta.Code), zap.Error(err))
	}
	if rec.GameOver {
		meta.State = StateFinished
		meta.Winner = relay.Winner
		meta.UpdatedAt = time.Now()
		if err := m.store.SaveMeta(ctx, meta.Code, meta); err != nil {
			return nil, nil, err
		}
	}
	obslog.L().Info("room_move",
		zap.String("code", meta.Code),
		zap.String("user_id", userID),
		zap.String("notation", rec.Notation),
		zap.Int("ply", relay.Ply),
		zap.Bool("game_over", rec.GameOver),
	)
	return view, rec, nil
}

// Subscribe streams relays published for the channel until ctx is done or
// cancel is called.
func (m *Manager) Subscribe(ctx context.Context, code string) (<-chan *Relay, func(), error) {
	if err := m.ready(); err != nil {
		return nil, nil, err
	}
	ps := m.rdb.Subscribe(ctx, m.store.keyMoves(code))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	out := make(chan *Relay, relayBuffer)
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-subCtx.Done()
		_ = ps.Close()
	}()
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var r Relay
			if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
				obslog.L().Warn("room_relay_decode_failed", zap.String("code", code), zap.Error(err))
				continue
			}
			select {
			case out <- &r:
			case <-subCtx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

// Mirror builds a replica of the channel's game in table and keeps it in step
// by replaying every relay through ApplyRemote. It returns the replica's session id.
// The replica stops following the channel when ctx is done or a relay diverges.
func (m *Manager) Mirror(ctx context.Context, code string, table *session.Table) (string, error) {
	meta, err := m.Get(ctx, code)
	if err != nil {
		return "", err
	}
	if meta.SessionID == "" {
		return "", ErrNotStarted
	}
	relays, cancel, err := m.Subscribe(ctx, code)
	if err != nil {
		return "", err
	}
	view, err := table.Create(ctx,
		chess.Config{Mode: chess.ModeMultiplayer, GameID: meta.Code},
		session.WithPlayers(
			session.Player{ID: meta.WhiteID, Name: meta.WhiteName},
			session.Player{ID: meta.BlackID, Name: meta.BlackName},
		),
		session.WithRoom(meta.Code),
	)
	if err != nil {
		cancel()
		return "", err
	}
	backlog, err := m.store.MoveLog(ctx, code)
	if err != nil {
		cancel()
		return "", err
	}

	ply := 0
	apply := func(r *Relay) error {
		if r.Ply <= ply {
			return nil
		}
		if r.Ply != ply+1 {
			return fmt.Errorf("%w: expected ply %d, got %d", ErrDiverged, ply+1, r.Ply)
		}
		if r.Board == nil {
			return fmt.Errorf("%w: ply %d carries no board", ErrDiverged, r.Ply)
		}
		if _, _, err := table.ApplyRemote(ctx, view.ID, r.From, r.To, r.Board); err != nil {
			return err
		}
		ply = r.Ply
		return nil
	}
	sort.Slice(backlog, func(i, j int) bool { return backlog[i].Ply < backlog[j].Ply })
	for _, r := range backlog {
		if err := apply(r); err != nil {
			cancel()
			return "", err
		}
	}
	obslog.L().Info("room_mirror_start", zap.String("code", code), zap.String("session_id", view.ID), zap.Int("ply", ply))

	go func() {
		defer cancel()
		for r := range relays {
			if err := apply(r); err != nil {
				obslog.L().Warn("room_mirror_diverged", zap.String("code", code), zap.String("session_id", view.ID), zap.Error(err))
				return
			}
		}
	}()
	return view.ID, nil
}

func (m *Manager) Rooms(ctx context.Context, code string) ([]string, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.store.Rooms(ctx, code)
}

// ListLobby returns waiting channels, oldest first.
func (m *Manager) ListLobby(ctx context.Context) ([]*Meta, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	list, err := m.store.ListLobby(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}
