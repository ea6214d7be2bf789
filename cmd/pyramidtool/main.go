package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/eak1mov/go-tilepyramid/internal/config"
	"github.com/google/subcommands"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&buildCmd{}, "")
	subcommands.Register(&infoCmd{}, "")
	subcommands.Register(&getCmd{}, "")
	subcommands.Register(&exportCmd{}, "")
	subcommands.Register(&exportIndexCmd{}, "")

	var logConfig config.Log
	flag.StringVar(&logConfig.File, "log_file", "", "Write logs to a rotating file instead of stderr")
	flag.StringVar(&logConfig.Level, "log_level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, closer, err := logConfig.NewLogger(os.Stderr)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := subcommands.Execute(ctx, logger)
	stop()
	closer.Close()
	os.Exit(int(status))
}

// loggerArg returns the logger passed to subcommands.Execute.
func loggerArg(args []any) *slog.Logger {
	if len(args) > 0 {
		if logger, ok := args[0].(*slog.Logger); ok {
			return logger
		}
	}
	return slog.New(slog.DiscardHandler)
}
