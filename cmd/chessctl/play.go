package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-chess/internal/apiclient"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

const playHelp = `moves: "e2 e4", "e2-e4", "Ng1-f3", or a target square after select
other: select <sq>, undo, reset, show, help, quit`

// cmdPlay runs an interactive game against the server. In AI mode the
// computer's replies arrive over the session event stream.
func cmdPlay(ctx context.Context, a *app, args []string) error {
	req, _, err := sessionFlags("play", args)
	if err != nil {
		return err
	}
	resp, err := a.client.CreateSession(ctx, req)
	if err != nil {
		return err
	}
	id := resp.SessionID
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.client.CloseSession(cctx, id)
	}()

	if resp.State.Mode == "AI" {
		l := a.client.SessionEvents(id, watchReconnects)
		l.OnSessionEvent(func(ev *chessdto.Event) {
			if ev.Kind == "opponent_move" {
				_ = a.presenter.Text(a.formatter.Status(ev.State))
			}
		})
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := l.Connect(cctx)
		cancel()
		if err != nil {
			return err
		}
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = l.Close(cctx)
		}()
	}

	_ = a.presenter.Text(a.formatter.Status(resp.State))
	_ = a.presenter.Text(playHelp)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := a.playLine(ctx, id, line)
			if err != nil {
				_ = a.presenter.Text(a.describe(err))
			}
			if quit {
				return nil
			}
		}
	}
}

func (a *app) playLine(ctx context.Context, id, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	var st *chessdto.SessionState
	switch strings.ToLower(fields[0]) {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		return false, a.presenter.Text(playHelp)
	case "show":
		st, err = a.client.State(ctx, id)
	case "undo":
		st, err = a.client.Undo(ctx, id)
	case "reset":
		st, err = a.client.Reset(ctx, id)
	case "select":
		if len(fields) != 2 {
			return false, fmt.Errorf("select needs one square")
		}
		var r *chessdto.SelectResponse
		if r, err = a.client.Select(ctx, id, fields[1]); err == nil {
			st = r.State
		}
	default:
		req, perr := moveRequest(fields)
		if perr != nil {
			return false, perr
		}
		var r *chessdto.MoveResponse
		if r, err = a.client.Move(ctx, id, req); err == nil {
			st = r.State
		}
	}
	if err != nil {
		if apiclient.IsCode(err, "game_over") {
			_ = a.presenter.Text("type reset to play again")
		}
		return false, err
	}
	return false, a.presenter.Text(a.formatter.Status(st))
}
