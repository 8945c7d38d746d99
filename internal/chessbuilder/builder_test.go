package chessbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/config"
)

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@cache:6380/2")
	if err != nil {
		t.Fatalf("parseRedisURL: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("opts = %+v", opts)
	}
	opts, err = parseRedisURL("localhost:6379")
	if err != nil || opts.Addr != "localhost:6379" {
		t.Fatalf("bare addr: %+v %v", opts, err)
	}
	if _, err := parseRedisURL("http://cache"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestNewInMemory(t *testing.T) {
	cfg := &config.AppConfig{UndoCapacity: 50, AIDelay: time.Millisecond, SessionTTL: time.Hour, MaxSessions: 10, DefaultDifficulty: "Medium"}
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if d.Redis != nil || d.Repo != nil {
		t.Fatalf("expected in-memory deps")
	}
	v, err := d.Table.Create(context.Background(), chess.Config{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.State.Config.Mode != chess.ModeLocal {
		t.Fatalf("mode = %v", v.State.Config.Mode)
	}
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.AppConfig{RedisURL: "redis://" + mr.Addr(), SessionTTL: time.Hour, DefaultDifficulty: "Medium"}
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if d.Redis == nil {
		t.Fatalf("redis not wired")
	}
	if _, err := d.Rooms.ListLobby(context.Background()); err != nil {
		t.Fatalf("ListLobby: %v", err)
	}
}

func TestNewRejectsBadDepth(t *testing.T) {
	cfg := &config.AppConfig{HardDepth: 99}
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected depth error")
	}
}
