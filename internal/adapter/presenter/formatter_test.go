package presenter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/session"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

func startState(t *testing.T) *chessdto.SessionState {
	t.Helper()
	st := chess.NewGameState(chess.Config{})
	if _, err := st.Select(chess.Pos(4, 6)); err != nil {
		t.Fatalf("Select: %v", err)
	}
	return session.ToDTO(&session.View{ID: "s1", Seq: 3, State: st})
}

func TestBoardMarksSelection(t *testing.T) {
	f := NewFormatter(nil, false)
	board := f.Board(startState(t))
	lines := strings.Split(board, "\n")
	if len(lines) != 9 {
		t.Fatalf("board has %d lines:\n%s", len(lines), board)
	}
	if !strings.HasPrefix(lines[0], "8  r  n  b  q  k  b  n  r") {
		t.Fatalf("rank 8 = %q", lines[0])
	}
	if !strings.Contains(lines[6], "[P]") {
		t.Fatalf("selected pawn not bracketed: %q", lines[6])
	}
	if !strings.Contains(lines[4], "*") || !strings.Contains(lines[5], "*") {
		t.Fatalf("targets not marked:\n%s", board)
	}
}

func TestStatusUsesCatalog(t *testing.T) {
	f := NewFormatter(nil, true)
	out := f.Status(startState(t))
	for _, want := range []string{"Local #3", "White to move", "Selected e2: 2 legal move(s)", "♜"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status missing %q:\n%s", want, out)
		}
	}
}

func TestTurnVariants(t *testing.T) {
	f := NewFormatter(nil, false)
	if got := f.Turn(&chessdto.SessionState{GameOver: true, Winner: "Black"}); got != "Game over. Black wins." {
		t.Fatalf("game over = %q", got)
	}
	if got := f.Turn(&chessdto.SessionState{CurrentPlayer: "White", IsCheck: true}); got != "White to move, check!" {
		t.Fatalf("check = %q", got)
	}
}

func TestFormatRecentMoves(t *testing.T) {
	moves := []string{"e2-e4", "e7-e5", "Ng1-f3"}
	if got := formatRecentMoves(moves); got != "1. e2-e4 e7-e5 2. Ng1-f3" {
		t.Fatalf("recent = %q", got)
	}
	long := make([]string, 13)
	for i := range long {
		long[i] = "m"
	}
	if got := formatRecentMoves(long); !strings.HasPrefix(got, "... 2. m") {
		t.Fatalf("trimmed = %q", got)
	}
}

func TestLobbyAndPresenter(t *testing.T) {
	f := NewFormatter(nil, false)
	if got := f.Lobby(nil); got != "No open rooms." {
		t.Fatalf("empty lobby = %q", got)
	}
	got := f.Lobby([]*chessdto.Room{{Code: "CH-ABC123", CreatorID: "u1"}})
	if got != "• CH-ABC123 by u1" {
		t.Fatalf("lobby = %q", got)
	}

	var buf bytes.Buffer
	saved := 0
	p := NewPresenter(&buf, func(png []byte) (string, error) { saved += len(png); return "board.png", nil })
	if err := p.Board("hello", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Board: %v", err)
	}
	if buf.String() != "hello\nboard image: board.png\n" || saved != 3 {
		t.Fatalf("presenter output = %q saved=%d", buf.String(), saved)
	}
}
