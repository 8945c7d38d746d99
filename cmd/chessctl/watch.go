package main

import (
	"context"
	"time"

	"github.com/park285/cheese-chess/internal/apiclient"
	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"go.uber.org/zap"
)

const watchReconnects = 5

func cmdWatch(ctx context.Context, a *app, args []string) error {
	if err := requireID("watch", args, 1, "<id>"); err != nil {
		return err
	}
	l := a.client.SessionEvents(args[0], watchReconnects)
	l.OnSessionEvent(func(ev *chessdto.Event) {
		if ev.Kind == "closed" {
			_ = a.presenter.Text("session closed")
			return
		}
		_ = a.presenter.Text("[" + ev.Kind + "]")
		_ = a.presenter.Text(a.formatter.Status(ev.State))
	})
	return follow(ctx, l)
}

func cmdWatchRoom(ctx context.Context, a *app, args []string) error {
	if err := requireID("watch-room", args, 1, "<code>"); err != nil {
		return err
	}
	l := a.client.RoomEvents(args[0], watchReconnects)
	l.OnRelay(func(r *chessdto.RoomRelay) {
		_ = a.presenter.Text(a.formatter.Relay(r))
		_ = a.presenter.Text(a.formatter.Board(&chessdto.SessionState{Board: r.Board}))
		if r.GameOver {
			_ = a.presenter.Text(a.formatter.Turn(&chessdto.SessionState{GameOver: true, Winner: r.Winner}))
		}
	})
	return follow(ctx, l)
}

// follow blocks until ctx ends or the listener stops for good.
func follow(ctx context.Context, l *apiclient.Listener) error {
	done := make(chan struct{})
	l.OnStateChange(func(s apiclient.ListenerState) {
		obslog.L().Debug("watch_state", zap.String("state", s.String()))
		if s == apiclient.StateClosed || s == apiclient.StateFailed {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := l.Connect(cctx)
	cancel()
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-done:
	}
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer closeCancel()
	return l.Close(closeCtx)
}
