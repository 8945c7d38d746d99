package results

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBuildPGN(t *testing.T) {
	r := &Result{
		GameID:    "g1",
		Mode:      "Local",
		WhiteName: "Alice \"A\"",
		Winner:    "White",
		Method:    "King_Capture",
		Moves:     []string{"e2-e4", "e7-e5", "Qd1-h5"},
		ECOCode:   "C20",
		EndedAt:   time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC),
	}
	pgn := BuildPGN(r)
	for _, want := range []string{
		"[Date \"2025.03.09\"]",
		"[White \"Alice 'A'\"]",
		"[Black \"Black\"]",
		"[ECO \"C20\"]",
		"[Termination \"king_capture\"]",
		"[Result \"1-0\"]",
		"1. e2-e4 e7-e5 2. Qd1-h5 1-0",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("PGN missing %q:\n%s", want, pgn)
		}
	}
}

func TestMapResultToPGN(t *testing.T) {
	cases := map[string]string{"White": "1-0", "black": "0-1", "draw": "1/2-1/2", "": "*"}
	for in, want := range cases {
		if got := MapResultToPGN(in); got != want {
			t.Fatalf("MapResultToPGN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMemoryRepositoryRecent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.SaveResult(ctx, &Result{GameID: id, EndedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}
	// upsert keeps one row per game
	if err := repo.SaveResult(ctx, &Result{GameID: "a", EndedAt: base.Add(time.Hour), Winner: "Black"}); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	got, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].GameID != "a" || got[1].GameID != "c" {
		t.Fatalf("Recent = %v", got)
	}
	if got[0].Winner != "Black" {
		t.Fatalf("upsert did not replace result")
	}
}
