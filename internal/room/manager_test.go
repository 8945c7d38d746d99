package room

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/redis/go-redis/v9"
)

type noOpponent struct{}

func (noOpponent) Choose(ctx context.Context, s *chess.GameState, d chess.Difficulty) (chess.Move, error) {
	return chess.Move{}, errors.New("no computer in rooms")
}

func newTestTable(t *testing.T) *session.Table {
	t.Helper()
	tbl, err := session.NewTable(session.Config{}, noOpponent{})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewManager(rdb, newTestTable(t)), mr
}

func startGame(t *testing.T, m *Manager) *JoinResult {
	t.Helper()
	ctx := context.Background()
	mk, err := m.Make(ctx, "roomA", "u1", "Alice")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	jr, err := m.Join(ctx, "roomB", mk.Code, "u2", "Bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !jr.Started {
		t.Fatalf("second join should start the game")
	}
	return jr
}

func whiteAndBlack(meta *Meta) (string, string) { return meta.WhiteID, meta.BlackID }

func TestMakeJoinStartsGame(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mk, err := m.Make(ctx, "roomA", "u1", "Alice")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if len(mk.Code) != 9 || mk.Code[:3] != "CH-" {
		t.Fatalf("code = %q", mk.Code)
	}
	lobby, err := m.ListLobby(ctx)
	if err != nil || len(lobby) != 1 || lobby[0].Code != mk.Code {
		t.Fatalf("ListLobby = %v, %v", lobby, err)
	}

	jr, err := m.Join(ctx, "roomB", mk.Code, "u2", "Bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !jr.Started || jr.Meta.SessionID == "" || jr.View == nil {
		t.Fatalf("join result = %+v", jr)
	}
	if jr.View.State.Config.Mode != chess.ModeMultiplayer || jr.View.State.Config.GameID != mk.Code {
		t.Fatalf("session config = %+v", jr.View.State.Config)
	}
	w, b := whiteAndBlack(jr.Meta)
	if !(w == "u1" && b == "u2") && !(w == "u2" && b == "u1") {
		t.Fatalf("colors = %q/%q", w, b)
	}

	rooms, err := m.Rooms(ctx, mk.Code)
	if err != nil || len(rooms) != 2 {
		t.Fatalf("Rooms = %v, %v", rooms, err)
	}
	if lobby, _ := m.ListLobby(ctx); len(lobby) != 0 {
		t.Fatalf("started channel still listed: %v", lobby)
	}

	again, err := m.Join(ctx, "roomB", mk.Code, "u2", "Bob")
	if err != nil || !again.Started || again.Meta.SessionID != jr.Meta.SessionID {
		t.Fatalf("rejoin = %+v, %v", again, err)
	}
}

func TestThirdJoinRejected(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	jr := startGame(t, m)
	if _, err := m.Join(ctx, "roomC", jr.Meta.Code, "u3", "Carol"); !errors.Is(err, ErrChannelActive) {
		t.Fatalf("third join = %v", err)
	}
	if _, err := m.Join(ctx, "roomC", "CH-NOPE00", "u3", "Carol"); !errors.Is(err, ErrChannelGone) {
		t.Fatalf("join unknown = %v", err)
	}
	if _, err := m.Join(ctx, "", jr.Meta.Code, "u3", "Carol"); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("join without room = %v", err)
	}
}

func TestCreatorHasOneLobby(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := m.Make(ctx, "roomA", "u1", "Alice"); err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Make(ctx, "roomA", "u1", "Alice"); !errors.Is(err, ErrCreatorHasLobby) {
		t.Fatalf("second Make = %v", err)
	}
}

func TestPlayChecksParticipantAndTurn(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	jr := startGame(t, m)
	code := jr.Meta.Code
	white, black := whiteAndBlack(jr.Meta)

	if _, _, err := m.Play(ctx, code, "stranger", chess.Pos(4, 6), chess.Pos(4, 4)); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger move = %v", err)
	}
	if _, _, err := m.Play(ctx, code, black, chess.Pos(4, 1), chess.Pos(4, 3)); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("black first = %v", err)
	}
	view, rec, err := m.Play(ctx, code, white, chess.Pos(4, 6), chess.Pos(4, 4))
	if err != nil {
		t.Fatalf("white move: %v", err)
	}
	if rec.Notation != "e2-e4" || view.State.CurrentPlayer != chess.Black {
		t.Fatalf("after e4: %+v", rec)
	}
	if _, _, err := m.Play(ctx, code, white, chess.Pos(3, 6), chess.Pos(3, 4)); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("white twice = %v", err)
	}
	if _, _, err := m.Play(ctx, code, black, chess.Pos(4, 1), chess.Pos(4, 4)); !errors.Is(err, chess.ErrInvalidMove) {
		t.Fatalf("illegal black move = %v", err)
	}

	log, err := m.store.MoveLog(ctx, code)
	if err != nil || len(log) != 1 || log[0].Ply != 1 || log[0].Mover != chess.White {
		t.Fatalf("move log = %+v, %v", log, err)
	}
}

func TestPlayInLobbyRejected(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	mk, _ := m.Make(ctx, "roomA", "u1", "Alice")
	if _, _, err := m.Play(ctx, mk.Code, "u1", chess.Pos(4, 6), chess.Pos(4, 4)); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("move in lobby = %v", err)
	}
}

func TestSubscribeReceivesRelay(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jr := startGame(t, m)
	white, _ := whiteAndBlack(jr.Meta)

	relays, stop, err := m.Subscribe(ctx, jr.Meta.Code)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()
	if _, _, err := m.Play(ctx, jr.Meta.Code, white, chess.Pos(6, 7), chess.Pos(5, 5)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	select {
	case r := <-relays:
		if r.Notation != "Ng1-f3" || r.PlayerID != white || r.Board == nil {
			t.Fatalf("relay = %+v", r)
		}
		if r.Board.At(chess.Pos(5, 5)).Kind != chess.Knight {
			t.Fatalf("relay board:\n%s", r.Board)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no relay received")
	}
}

func TestMirrorFollowsChannel(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jr := startGame(t, m)
	code := jr.Meta.Code
	white, black := whiteAndBlack(jr.Meta)

	if _, _, err := m.Play(ctx, code, white, chess.Pos(4, 6), chess.Pos(4, 4)); err != nil {
		t.Fatalf("Play: %v", err)
	}

	replica := newTestTable(t)
	id, err := m.Mirror(ctx, code, replica)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	v, _ := replica.State(ctx, id)
	if len(v.State.MoveHistory) != 1 {
		t.Fatalf("backlog not replayed: %v", v.State.MoveHistory)
	}

	if _, _, err := m.Play(ctx, code, black, chess.Pos(4, 1), chess.Pos(4, 3)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, _ = replica.State(ctx, id)
		if len(v.State.MoveHistory) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("replica did not follow: %v", v.State.MoveHistory)
		}
		time.Sleep(10 * time.Millisecond)
	}
	authoritative, _ := m.table.State(ctx, jr.Meta.SessionID)
	if !v.State.Board.Equal(authoritative.State.Board) {
		t.Fatalf("replica board differs:\n%s\nvs\n%s", v.State.Board, authoritative.State.Board)
	}
}

func TestColorOf(t *testing.T) {
	meta := &Meta{WhiteID: "w", BlackID: "b"}
	if meta.ColorOf("w") != chess.White || meta.ColorOf("b") != chess.Black || meta.ColorOf("x") != chess.NoColor {
		t.Fatalf("ColorOf mismatch")
	}
	if (*Meta)(nil).ColorOf("w") != chess.NoColor {
		t.Fatalf("nil meta should have no colors")
	}
}

func TestRoomSessionRefusesDirectCalls(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	jr := startGame(t, m)
	id := jr.Meta.SessionID
	white, _ := whiteAndBlack(jr.Meta)

	if _, _, err := m.table.MoveFrom(ctx, id, chess.Pos(4, 6), chess.Pos(4, 4)); !errors.Is(err, session.ErrRoomManaged) {
		t.Fatalf("MoveFrom = %v", err)
	}
	if _, _, err := m.table.Move(ctx, id, chess.Pos(4, 4)); !errors.Is(err, session.ErrRoomManaged) {
		t.Fatalf("Move = %v", err)
	}
	if _, err := m.table.Select(ctx, id, chess.Pos(4, 6)); !errors.Is(err, session.ErrRoomManaged) {
		t.Fatalf("Select = %v", err)
	}

	if _, _, err := m.Play(ctx, jr.Meta.Code, white, chess.Pos(4, 6), chess.Pos(4, 4)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if _, err := m.table.Undo(ctx, id); !errors.Is(err, session.ErrRoomManaged) {
		t.Fatalf("Undo = %v", err)
	}
	if _, err := m.table.Reset(ctx, id); !errors.Is(err, session.ErrRoomManaged) {
		t.Fatalf("Reset = %v", err)
	}
	if _, err := m.table.NewGame(ctx, id, chess.Config{}); !errors.Is(err, session.ErrRoomManaged) {
		t.Fatalf("NewGame = %v", err)
	}
	if err := m.table.Close(ctx, id); !errors.Is(err, session.ErrRoomManaged) {
		t.Fatalf("Close = %v", err)
	}

	v, err := m.table.State(ctx, id)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	log, err := m.store.MoveLog(ctx, jr.Meta.Code)
	if err != nil {
		t.Fatalf("MoveLog: %v", err)
	}
	if len(v.State.MoveHistory) != 1 || len(log) != 1 {
		t.Fatalf("history=%v relay log=%d", v.State.MoveHistory, len(log))
	}
}

func TestMirrorRejectsRelayWithoutBoard(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	jr := startGame(t, m)
	code := jr.Meta.Code
	white, _ := whiteAndBlack(jr.Meta)

	if _, _, err := m.Play(ctx, code, white, chess.Pos(4, 6), chess.Pos(4, 4)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	bare := &Relay{Code: code, Ply: 2, Mover: chess.Black, From: chess.Pos(4, 1), To: chess.Pos(4, 3), Notation: "e7-e5"}
	if err := m.store.AppendMove(ctx, code, bare); err != nil {
		t.Fatalf("AppendMove: %v", err)
	}

	if _, err := m.Mirror(ctx, code, newTestTable(t)); !errors.Is(err, ErrDiverged) {
		t.Fatalf("Mirror = %v, want ErrDiverged", err)
	}
}
