package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/park285/cheese-chess/internal/adapter/presenter"
	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"go.uber.org/zap"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"new":        cmdNew,
	"state":      cmdState,
	"select":     cmdSelect,
	"move":       cmdMove,
	"undo":       cmdUndo,
	"reset":      cmdReset,
	"board":      cmdBoard,
	"watch":      cmdWatch,
	"close":      cmdClose,
	"play":       cmdPlay,
	"rooms":      cmdRooms,
	"make":       cmdMake,
	"join":       cmdJoin,
	"room-move":  cmdRoomMove,
	"watch-room": cmdWatchRoom,
	"results":    cmdResults,
	"health":     cmdHealth,
}

func sessionFlags(name string, args []string) (chessdto.CreateSessionRequest, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	mode := fs.String("mode", "", "Local or AI")
	difficulty := fs.String("difficulty", "", "Easy, Medium or Hard")
	color := fs.String("color", "", "human color in AI mode")
	if err := fs.Parse(args); err != nil {
		return chessdto.CreateSessionRequest{}, nil, usageError(name + " [-mode M] [-difficulty D] [-color C]")
	}
	return chessdto.CreateSessionRequest{Mode: *mode, Difficulty: *difficulty, PlayerColor: *color}, fs.Args(), nil
}

func cmdNew(ctx context.Context, a *app, args []string) error {
	req, _, err := sessionFlags("new", args)
	if err != nil {
		return err
	}
	resp, err := a.client.CreateSession(ctx, req)
	if err != nil {
		return err
	}
	_ = a.presenter.Text("session " + resp.SessionID)
	return a.presenter.Text(a.formatter.Status(resp.State))
}

func requireID(name string, args []string, n int, rest string) error {
	if len(args) < n || strings.TrimSpace(args[0]) == "" {
		return usageError(strings.TrimSpace(name + " " + rest))
	}
	return nil
}

func cmdState(ctx context.Context, a *app, args []string) error {
	if err := requireID("state", args, 1, "<id>"); err != nil {
		return err
	}
	st, err := a.client.State(ctx, args[0])
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Status(st))
}

func cmdSelect(ctx context.Context, a *app, args []string) error {
	if err := requireID("select", args, 2, "<id> <square>"); err != nil {
		return err
	}
	resp, err := a.client.Select(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Status(resp.State))
}

// moveRequest accepts "<from> <to>", a single notation like "Ng1-f3", or a lone target square.
func moveRequest(args []string) (chessdto.MoveRequest, error) {
	switch len(args) {
	case 1:
		arg := strings.TrimSpace(args[0])
		if strings.Contains(arg, "-") {
			return chessdto.MoveRequest{Notation: arg}, nil
		}
		return chessdto.MoveRequest{To: arg}, nil
	case 2:
		return chessdto.MoveRequest{From: strings.TrimSpace(args[0]), To: strings.TrimSpace(args[1])}, nil
	default:
		return chessdto.MoveRequest{}, fmt.Errorf("expected <from> <to>, <notation> or <to>")
	}
}

func cmdMove(ctx context.Context, a *app, args []string) error {
	if err := requireID("move", args, 2, "<id> <from> <to>"); err != nil {
		return err
	}
	req, err := moveRequest(args[1:])
	if err != nil {
		return usageError("move <id> <from> <to>")
	}
	resp, err := a.client.Move(ctx, args[0], req)
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Status(resp.State))
}

func cmdUndo(ctx context.Context, a *app, args []string) error {
	if err := requireID("undo", args, 1, "<id>"); err != nil {
		return err
	}
	st, err := a.client.Undo(ctx, args[0])
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Status(st))
}

func cmdReset(ctx context.Context, a *app, args []string) error {
	if err := requireID("reset", args, 1, "<id>"); err != nil {
		return err
	}
	st, err := a.client.Reset(ctx, args[0])
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Status(st))
}

func cmdClose(ctx context.Context, a *app, args []string) error {
	if err := requireID("close", args, 1, "<id>"); err != nil {
		return err
	}
	if err := a.client.CloseSession(ctx, args[0]); err != nil {
		return err
	}
	return a.presenter.Text("closed " + args[0])
}

func cmdBoard(ctx context.Context, a *app, args []string) error {
	if err := requireID("board", args, 1, "<id> [-size N] [-o file.png]"); err != nil {
		return err
	}
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	size := fs.Int("size", 0, "square size in pixels")
	outPath := fs.String("o", "", "output file")
	if err := fs.Parse(args[1:]); err != nil {
		return usageError("board <id> [-size N] [-o file.png]")
	}
	id := args[0]
	path := *outPath
	if path == "" {
		path = id + ".png"
	}
	png, err := a.client.BoardPNG(ctx, id, *size)
	if err != nil {
		return err
	}
	sink := presenter.NewPresenter(a.out, func(png []byte) (string, error) {
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return "", err
		}
		return path, nil
	})
	obslog.L().Debug("board_fetched", zap.String("id", id), zap.Int("bytes", len(png)))
	return sink.Board("", png)
}

func cmdRooms(ctx context.Context, a *app, _ []string) error {
	rooms, err := a.client.Lobby(ctx)
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Lobby(rooms))
}

func playerFlags(name string, args []string) (id, display string, rest []string, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	player := fs.String("player", envOr("CHESS_PLAYER", ""), "player id")
	nick := fs.String("name", "", "display name")
	if perr := fs.Parse(args); perr != nil || strings.TrimSpace(*player) == "" {
		return "", "", nil, usageError(name + " -player ID [-name NAME]")
	}
	return *player, *nick, fs.Args(), nil
}

func cmdMake(ctx context.Context, a *app, args []string) error {
	player, name, _, err := playerFlags("make", args)
	if err != nil {
		return err
	}
	room, err := a.client.MakeRoom(ctx, chessdto.MakeRoomRequest{PlayerID: player, PlayerName: name})
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Created(room))
}

func cmdJoin(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return usageError("join <code> -player ID [-name NAME]")
	}
	player, name, _, err := playerFlags("join", args[1:])
	if err != nil {
		return err
	}
	resp, err := a.client.JoinRoom(ctx, args[0], chessdto.JoinRoomRequest{PlayerID: player, PlayerName: name})
	if err != nil {
		return err
	}
	_ = a.presenter.Text(a.formatter.Room(resp.Room))
	return a.presenter.Text(a.formatter.Status(resp.State))
}

func cmdRoomMove(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return usageError("room-move <code> -player ID <from> <to>")
	}
	player, _, rest, err := playerFlags("room-move", args[1:])
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return usageError("room-move <code> -player ID <from> <to>")
	}
	resp, err := a.client.RoomMove(ctx, args[0], chessdto.RoomMoveRequest{
		PlayerID:    player,
		MoveRequest: chessdto.MoveRequest{From: rest[0], To: rest[1]},
	})
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Status(resp.State))
}

func cmdResults(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", 10, "number of games")
	if err := fs.Parse(args); err != nil {
		return usageError("results [-limit N]")
	}
	list, err := a.client.Results(ctx, *limit)
	if err != nil {
		return err
	}
	return a.presenter.Text(a.formatter.Results(list))
}

func cmdHealth(ctx context.Context, a *app, _ []string) error {
	h, err := a.client.Health(ctx)
	if h != nil {
		line := fmt.Sprintf("status=%s sessions=%d", h.Status, h.Sessions)
		if h.Redis != "" {
			line += " redis=" + h.Redis
		}
		if h.Database != "" {
			line += " database=" + h.Database
		}
		_ = a.presenter.Text(line)
	}
	return err
}
