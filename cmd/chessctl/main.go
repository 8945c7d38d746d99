package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/cheese-chess/internal/adapter/presenter"
	"github.com/park285/cheese-chess/internal/apiclient"
	"github.com/park285/cheese-chess/internal/obslog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultServer = "http://localhost:8080"

type app struct {
	client    *apiclient.Client
	formatter *presenter.Formatter
	presenter *presenter.Presenter
	in        io.Reader
	out       io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("chessctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	server := global.String("server", envOr("CHESS_SERVER", defaultServer), "API base URL")
	timeout := global.Duration("timeout", 8*time.Second, "per-request timeout")
	unicode := global.Bool("unicode", false, "draw pieces with chess glyphs")
	verbose := global.Bool("v", false, "debug logging on stderr")
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	level := zapcore.WarnLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	if logger, err := obslog.New(obslog.Options{Level: level, Format: "console", Console: true}); err == nil {
		obslog.Set(logger)
	}
	defer obslog.Sync()

	a := &app{
		client:    apiclient.NewClient(*server, apiclient.WithTimeout(*timeout), apiclient.WithRetry(2)),
		formatter: presenter.NewFormatter(nil, *unicode),
		in:        stdin,
		out:       stdout,
	}
	a.presenter = presenter.NewPresenter(stdout, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, cmdArgs := strings.ToLower(rest[0]), rest[1:]
	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if err := handler(ctx, a, cmdArgs); err != nil {
		fmt.Fprintln(stderr, a.describe(err))
		obslog.L().Debug("command_failed", zap.String("cmd", cmd), zap.Error(err))
		var uerr usageError
		if errors.As(err, &uerr) {
			return 2
		}
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return "usage: chessctl " + string(e) }

// describe prefers the server's catalog message over the transport error text.
func (a *app) describe(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return a.formatter.Error(apiErr.Body)
	}
	return err.Error()
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

const usage = `usage: chessctl [-server URL] [-timeout D] [-unicode] [-v] <command> [args]

sessions:
  new [-mode Local|AI] [-difficulty Easy|Medium|Hard] [-color White|Black]
  state <id>
  select <id> <square>
  move <id> <from> <to> | move <id> <notation> | move <id> <to>
  undo <id>
  reset <id>
  board <id> [-size N] [-o file.png]
  watch <id>
  close <id>
  play [-mode Local|AI] [-difficulty D] [-color C]

rooms:
  rooms
  make -player ID [-name NAME]
  join <code> -player ID [-name NAME]
  room-move <code> -player ID <from> <to>
  watch-room <code>

server:
  results [-limit N]
  health

Squares are names like e2 or coordinates like 4,6 (row 0 is rank 8).
CHESS_SERVER sets the default -server.
`
