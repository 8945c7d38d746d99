package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/results"
	"github.com/park285/cheese-chess/internal/room"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type firstMove struct{}

func (firstMove) Choose(ctx context.Context, s *chess.GameState, d chess.Difficulty) (chess.Move, error) {
	moves := chess.AllLegalMoves(s)
	if len(moves) == 0 {
		return chess.Move{}, errors.New("no moves")
	}
	return moves[0], nil
}

type fixture struct {
	srv      *httptest.Server
	table    *session.Table
	recorder results.Recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	rec := results.NewMemoryRepository()
	tbl, err := session.NewTable(session.Config{AIDelay: time.Millisecond}, firstMove{}, session.WithRecorder(rec))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	opts = append([]Option{WithRooms(room.NewManager(rdb, tbl)), WithRecorder(rec)}, opts...)
	srv := httptest.NewServer(New(tbl, opts...).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tbl.Shutdown(ctx)
	})
	return &fixture{srv: srv, table: tbl, recorder: rec}
}

func (f *fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s (status %d): %v", method, path, resp.StatusCode, err)
		}
	}
	return resp.StatusCode
}

func (f *fixture) create(t *testing.T, req chessdto.CreateSessionRequest) *chessdto.CreateSessionResponse {
	t.Helper()
	var out chessdto.CreateSessionResponse
	if code := f.do(t, http.MethodPost, "/api/sessions", req, &out); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	return &out
}

func TestSessionSelectMoveUndo(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, chessdto.CreateSessionRequest{})
	id := created.SessionID
	if created.State.CurrentPlayer != "White" || created.State.Mode != "Local" {
		t.Fatalf("initial state = %+v", created.State)
	}

	var sel chessdto.SelectResponse
	if code := f.do(t, http.MethodPost, "/api/sessions/"+id+"/select", chessdto.SelectRequest{Square: "e2"}, &sel); code != http.StatusOK {
		t.Fatalf("select status = %d", code)
	}
	if len(sel.LegalMoves) != 2 {
		t.Fatalf("e2 legal moves = %v", sel.LegalMoves)
	}

	var mv chessdto.MoveResponse
	if code := f.do(t, http.MethodPost, "/api/sessions/"+id+"/move", chessdto.MoveRequest{To: "e4"}, &mv); code != http.StatusOK {
		t.Fatalf("move status = %d", code)
	}
	if mv.Move == nil || mv.Move.Notation != "e2-e4" || mv.State.CurrentPlayer != "Black" || mv.State.UndoDepth != 1 {
		t.Fatalf("move = %+v state = %+v", mv.Move, mv.State)
	}

	if code := f.do(t, http.MethodPost, "/api/sessions/"+id+"/move", chessdto.MoveRequest{Notation: "Nb8-c6"}, &mv); code != http.StatusOK {
		t.Fatalf("notation move status = %d", code)
	}
	if got := mv.State.MoveHistory; len(got) != 2 || got[1] != "Nb8-c6" {
		t.Fatalf("history = %v", got)
	}

	var st chessdto.StateResponse
	if code := f.do(t, http.MethodPost, "/api/sessions/"+id+"/undo", nil, &st); code != http.StatusOK {
		t.Fatalf("undo status = %d", code)
	}
	if len(st.State.MoveHistory) != 1 || st.State.CurrentPlayer != "Black" {
		t.Fatalf("after undo = %+v", st.State)
	}
}

func TestSessionErrors(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, chessdto.CreateSessionRequest{}).SessionID

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"illegal move", http.MethodPost, "/api/sessions/" + id + "/move", chessdto.MoveRequest{From: "e2", To: "e5"}, http.StatusUnprocessableEntity, "invalid_move"},
		{"empty source", http.MethodPost, "/api/sessions/" + id + "/move", chessdto.MoveRequest{From: "e4", To: "e5"}, http.StatusUnprocessableEntity, "no_piece"},
		{"bad square", http.MethodPost, "/api/sessions/" + id + "/select", chessdto.SelectRequest{Square: "z9"}, http.StatusBadRequest, "invalid_square"},
		{"off board", http.MethodPost, "/api/sessions/" + id + "/select", chessdto.SelectRequest{Pos: &chessdto.Position{X: 8, Y: 0}}, http.StatusBadRequest, "invalid_square"},
		{"nothing to undo", http.MethodPost, "/api/sessions/" + id + "/undo", nil, http.StatusConflict, "no_history"},
		{"unknown session", http.MethodGet, "/api/sessions/nope", nil, http.StatusNotFound, "session_not_found"},
		{"bad mode", http.MethodPost, "/api/sessions", map[string]string{"mode": "blitz"}, http.StatusBadRequest, "invalid_config"},
		{"unknown field", http.MethodPost, "/api/sessions", map[string]string{"colour": "white"}, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out chessdto.ErrorResponse
			if code := f.do(t, tc.method, tc.path, tc.body, &out); code != tc.status {
				t.Fatalf("status = %d, want %d (%+v)", code, tc.status, out)
			}
			if out.Code != tc.code || out.Message == "" {
				t.Fatalf("error = %+v, want code %s", out, tc.code)
			}
		})
	}

	var out chessdto.ErrorResponse
	f.do(t, http.MethodGet, "/api/sessions/nope", nil, &out)
	if !strings.Contains(out.Message, "nope") {
		t.Fatalf("catalog message = %q", out.Message)
	}
}

func TestBodyTooLarge(t *testing.T) {
	s := New(nil)
	body := `{"mode":"` + strings.Repeat("x", int(maxJSONBodyBytes)) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.withJSON(func(w http.ResponseWriter, r *http.Request) {
		var in chessdto.CreateSessionRequest
		err := decodeBody(r, &in)
		if err != errBodyTooLarge {
			t.Errorf("decodeBody err = %v", err)
		}
		s.writeError(w, err, msgArgs{})
	})(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var out chessdto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.Code != "bad_request" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAISessionAndNewGame(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, chessdto.CreateSessionRequest{Mode: "AI", Difficulty: "easy"}).SessionID

	var mv chessdto.MoveResponse
	if code := f.do(t, http.MethodPost, "/api/sessions/"+id+"/move", chessdto.MoveRequest{From: "d2", To: "d4"}, &mv); code != http.StatusOK {
		t.Fatalf("move status = %d", code)
	}
	task, err := f.table.Pending(context.Background(), id)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if task != nil {
		select {
		case <-task.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("computer did not reply")
		}
	}
	var st chessdto.StateResponse
	f.do(t, http.MethodGet, "/api/sessions/"+id, nil, &st)
	if len(st.State.MoveHistory) != 2 || st.State.CurrentPlayer != "White" {
		t.Fatalf("after reply = %+v", st.State)
	}

	if code := f.do(t, http.MethodPost, "/api/sessions/"+id+"/new", chessdto.CreateSessionRequest{Mode: "Local"}, &st); code != http.StatusOK {
		t.Fatalf("new status = %d", code)
	}
	if st.State.Mode != "Local" || len(st.State.MoveHistory) != 0 || st.State.UndoDepth != 0 {
		t.Fatalf("new game = %+v", st.State)
	}
	if code := f.do(t, http.MethodPost, "/api/sessions/"+id+"/reset", nil, &st); code != http.StatusOK {
		t.Fatalf("reset status = %d", code)
	}
}

func TestBoardPNGAndClose(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, chessdto.CreateSessionRequest{}).SessionID

	resp, err := f.srv.Client().Get(f.srv.URL + "/api/sessions/" + id + "/board.png?size=24")
	if err != nil {
		t.Fatalf("GET board.png: %v", err)
	}
	raw := new(bytes.Buffer)
	_, _ = raw.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("board.png status=%d type=%s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(raw.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("body is not a PNG")
	}

	if code := f.do(t, http.MethodDelete, "/api/sessions/"+id, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete status = %d", code)
	}
	if code := f.do(t, http.MethodGet, "/api/sessions/"+id+"/board.png", nil, nil); code != http.StatusNotFound {
		t.Fatalf("board after close status = %d", code)
	}
}

func TestSessionEventsStream(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, chessdto.CreateSessionRequest{}).SessionID

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/sessions/" + id + "/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	var ev chessdto.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if ev.Kind != "state" || ev.SessionID != id {
		t.Fatalf("initial event = %+v", ev)
	}

	f.do(t, http.MethodPost, "/api/sessions/"+id+"/move", chessdto.MoveRequest{From: "e2", To: "e4"}, &chessdto.MoveResponse{})
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read move: %v", err)
	}
	if ev.Kind != "move" || ev.Move == nil || ev.Move.Notation != "e2-e4" || ev.Seq == 0 {
		t.Fatalf("move event = %+v", ev)
	}

	if code := f.do(t, http.MethodGet, "/api/sessions/missing/events", nil, nil); code != http.StatusNotFound {
		t.Fatalf("events for missing session = %d", code)
	}
}

func TestRoomFlow(t *testing.T) {
	f := newFixture(t)
	var made chessdto.Room
	if code := f.do(t, http.MethodPost, "/api/rooms", chessdto.MakeRoomRequest{PlayerID: "u1", PlayerName: "Alice"}, &made); code != http.StatusCreated {
		t.Fatalf("make status = %d", code)
	}
	if !strings.HasPrefix(made.Code, "CH-") || made.Status != "LOBBY" {
		t.Fatalf("made = %+v", made)
	}

	var list chessdto.RoomListResponse
	f.do(t, http.MethodGet, "/api/rooms", nil, &list)
	if len(list.Rooms) != 1 || list.Rooms[0].Code != made.Code {
		t.Fatalf("lobby = %+v", list.Rooms)
	}

	var errOut chessdto.ErrorResponse
	if code := f.do(t, http.MethodPost, "/api/rooms/"+made.Code+"/move", chessdto.RoomMoveRequest{PlayerID: "u1", MoveRequest: chessdto.MoveRequest{From: "e2", To: "e4"}}, &errOut); code != http.StatusConflict || errOut.Code != "room_not_started" {
		t.Fatalf("move in lobby = %d %+v", code, errOut)
	}

	var joined chessdto.JoinRoomResponse
	if code := f.do(t, http.MethodPost, "/api/rooms/"+made.Code+"/join", chessdto.JoinRoomRequest{PlayerID: "u2", PlayerName: "Bob"}, &joined); code != http.StatusOK {
		t.Fatalf("join status = %d", code)
	}
	if joined.Room.Status != "ACTIVE" || joined.State == nil {
		t.Fatalf("joined = %+v", joined)
	}

	white, black := joined.Room.WhiteID, joined.Room.BlackID
	if code := f.do(t, http.MethodPost, "/api/rooms/"+made.Code+"/move", chessdto.RoomMoveRequest{PlayerID: black, MoveRequest: chessdto.MoveRequest{From: "e7", To: "e5"}}, &errOut); code != http.StatusConflict || errOut.Code != "not_your_turn" {
		t.Fatalf("black first = %d %+v", code, errOut)
	}
	var mv chessdto.MoveResponse
	if code := f.do(t, http.MethodPost, "/api/rooms/"+made.Code+"/move", chessdto.RoomMoveRequest{PlayerID: white, MoveRequest: chessdto.MoveRequest{From: "e2", To: "e4"}}, &mv); code != http.StatusOK {
		t.Fatalf("white move status = %d", code)
	}
	if mv.State.CurrentPlayer != "Black" {
		t.Fatalf("after white move = %+v", mv.State)
	}
	if code := f.do(t, http.MethodPost, "/api/rooms/"+made.Code+"/move", chessdto.RoomMoveRequest{PlayerID: "stranger", MoveRequest: chessdto.MoveRequest{From: "e7", To: "e5"}}, &errOut); code != http.StatusForbidden {
		t.Fatalf("stranger move = %d", code)
	}

	var got chessdto.Room
	f.do(t, http.MethodGet, "/api/rooms/"+made.Code, nil, &got)
	if len(got.Rooms) != 2 {
		t.Fatalf("room origins = %v", got.Rooms)
	}

	sessionPath := "/api/sessions/" + got.SessionID
	direct := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, sessionPath + "/move", chessdto.MoveRequest{From: "e7", To: "e5"}},
		{http.MethodPost, sessionPath + "/select", chessdto.SelectRequest{Square: "e7"}},
		{http.MethodPost, sessionPath + "/undo", nil},
		{http.MethodPost, sessionPath + "/reset", nil},
		{http.MethodPost, sessionPath + "/new", chessdto.CreateSessionRequest{}},
		{http.MethodDelete, sessionPath, nil},
	}
	for _, c := range direct {
		var out chessdto.ErrorResponse
		if code := f.do(t, c.method, c.path, c.body, &out); code != http.StatusConflict || out.Code != "room_managed" {
			t.Fatalf("%s %s on room session = %d %+v", c.method, c.path, code, out)
		}
	}
	var st chessdto.StateResponse
	if code := f.do(t, http.MethodGet, sessionPath, nil, &st); code != http.StatusOK || len(st.State.MoveHistory) != 1 {
		t.Fatalf("room session after direct calls = %d %+v", code, st.State)
	}
	if code := f.do(t, http.MethodGet, "/api/rooms/CH-NOPE00", nil, &errOut); code != http.StatusNotFound {
		t.Fatalf("missing room = %d", code)
	}
}

func TestRoomsUnavailableWithoutRedis(t *testing.T) {
	tbl, err := session.NewTable(session.Config{}, firstMove{})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	srv := httptest.NewServer(New(tbl).Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL + "/api/rooms")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestResultsAndHealth(t *testing.T) {
	f := newFixture(t, WithHealthCheck("redis", func(context.Context) error { return nil }))
	ctx := context.Background()
	_ = f.recorder.SaveResult(ctx, &results.Result{GameID: "g1", Mode: "Local", Winner: "White", Method: "king_capture", Moves: []string{"e2-e4"}, EndedAt: time.Now()})

	var res chessdto.ResultsResponse
	if code := f.do(t, http.MethodGet, "/api/results?limit=5", nil, &res); code != http.StatusOK {
		t.Fatalf("results status = %d", code)
	}
	if len(res.Results) != 1 || !strings.Contains(res.Results[0].PGN, "[Result \"1-0\"]") {
		t.Fatalf("results = %+v", res.Results)
	}
	if code := f.do(t, http.MethodGet, "/api/results?limit=x", nil, &chessdto.ErrorResponse{}); code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", code)
	}

	var h chessdto.HealthResponse
	if code := f.do(t, http.MethodGet, "/healthz", nil, &h); code != http.StatusOK || h.Redis != "ok" {
		t.Fatalf("health = %d %+v", code, h)
	}

	down := newFixture(t, WithHealthCheck("database", func(context.Context) error { return errors.New("refused") }))
	if code := down.do(t, http.MethodGet, "/healthz", nil, &h); code != http.StatusServiceUnavailable || h.Status != "degraded" {
		t.Fatalf("degraded health = %d %+v", code, h)
	}
}
