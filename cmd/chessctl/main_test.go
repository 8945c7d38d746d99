package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-chess/internal/chess/opponent"
	"github.com/park285/cheese-chess/internal/httpapi"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

func newServer(t *testing.T) string {
	t.Helper()
	table, err := session.NewTable(session.Config{AIDelay: time.Millisecond}, opponent.New())
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	srv := httptest.NewServer(httpapi.New(table).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = table.Shutdown(context.Background())
	})
	return srv.URL
}

func runCLI(t *testing.T, url, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(append([]string{"-server", url}, args...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func sessionIDFrom(t *testing.T, out string) string {
	t.Helper()
	first := strings.SplitN(out, "\n", 2)[0]
	id := strings.TrimPrefix(first, "session ")
	if id == first || id == "" {
		t.Fatalf("no session id in output:\n%s", out)
	}
	return id
}

func TestMoveRequest(t *testing.T) {
	cases := []struct {
		args []string
		want chessdto.MoveRequest
	}{
		{[]string{"e2", "e4"}, chessdto.MoveRequest{From: "e2", To: "e4"}},
		{[]string{"Ng1-f3"}, chessdto.MoveRequest{Notation: "Ng1-f3"}},
		{[]string{"e4"}, chessdto.MoveRequest{To: "e4"}},
	}
	for _, tc := range cases {
		got, err := moveRequest(tc.args)
		if err != nil || got != tc.want {
			t.Fatalf("moveRequest(%v) = %+v, %v", tc.args, got, err)
		}
	}
	if _, err := moveRequest([]string{"a", "b", "c"}); err == nil {
		t.Fatalf("expected error for three args")
	}
}

func TestUsageErrors(t *testing.T) {
	url := newServer(t)
	if code, _, _ := runCLI(t, url, ""); code != 2 {
		t.Fatalf("no command exit = %d", code)
	}
	if code, _, errOut := runCLI(t, url, "", "bogus"); code != 2 || !strings.Contains(errOut, "unknown command") {
		t.Fatalf("bogus exit = %d stderr=%q", code, errOut)
	}
	if code, _, _ := runCLI(t, url, "", "move"); code != 2 {
		t.Fatalf("move without id exit = %d", code)
	}
}

func TestSessionCommands(t *testing.T) {
	url := newServer(t)
	code, out, errOut := runCLI(t, url, "", "new")
	if code != 0 {
		t.Fatalf("new exit = %d stderr=%s", code, errOut)
	}
	id := sessionIDFrom(t, out)

	code, out, errOut = runCLI(t, url, "", "move", id, "e2", "e4")
	if code != 0 || !strings.Contains(out, "Black to move") || !strings.Contains(out, "Last move: e2-e4") {
		t.Fatalf("move exit=%d out=%s stderr=%s", code, out, errOut)
	}

	code, _, errOut = runCLI(t, url, "", "move", id, "e2", "e4")
	if code != 1 || !strings.Contains(errOut, "There is no piece") {
		t.Fatalf("illegal move exit=%d stderr=%q", code, errOut)
	}

	code, out, _ = runCLI(t, url, "", "undo", id)
	if code != 0 || !strings.Contains(out, "White to move") {
		t.Fatalf("undo exit=%d out=%s", code, out)
	}

	path := filepath.Join(t.TempDir(), "b.png")
	code, out, errOut = runCLI(t, url, "", "board", id, "-size", "32", "-o", path)
	if code != 0 || !strings.Contains(out, "board image: "+path) {
		t.Fatalf("board exit=%d out=%s stderr=%s", code, out, errOut)
	}
	if data, err := os.ReadFile(path); err != nil || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("png not written: %v", err)
	}

	if code, _, errOut = runCLI(t, url, "", "close", id); code != 0 {
		t.Fatalf("close exit=%d stderr=%s", code, errOut)
	}
	if code, _, _ = runCLI(t, url, "", "state", id); code != 1 {
		t.Fatalf("state after close exit = %d", code)
	}
}

func TestPlayHotSeat(t *testing.T) {
	url := newServer(t)
	script := "e2 e4\ne7-e5\nselect g1\nf3\nundo\nquit\n"
	code, out, errOut := runCLI(t, url, script, "play")
	if code != 0 {
		t.Fatalf("play exit=%d stderr=%s", code, errOut)
	}
	for _, want := range []string{"Last move: e2-e4", "Last move: e7-e5", "Selected g1", "Last move: Ng1-f3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("play output missing %q:\n%s", want, out)
		}
	}
}

func TestHealthAndLobbyWithoutRedis(t *testing.T) {
	url := newServer(t)
	code, out, _ := runCLI(t, url, "", "health")
	if code != 0 || !strings.Contains(out, "status=ok") {
		t.Fatalf("health exit=%d out=%s", code, out)
	}
	code, _, errOut := runCLI(t, url, "", "rooms")
	if code != 1 || !strings.Contains(errOut, "unavailable") {
		t.Fatalf("rooms exit=%d stderr=%q", code, errOut)
	}
}
