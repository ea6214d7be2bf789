package config

import (
	"io"
	"log/slog"

	"github.com/natefinch/lumberjack"
)

// Log configures diagnostics. Without a file, logs go to the fallback writer.
type Log struct {
	File    string `toml:"file"`
	MaxSize int    `toml:"max_log_size"` // megabytes
	MaxAge  int    `toml:"max_log_age"`  // days
	Level   string `toml:"level"`
}

// NewLogger returns a text logger writing to a rotating log file, or to
// fallback when no file is configured. The closer releases the file.
func (c Log) NewLogger(fallback io.Writer) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, nil, err
		}
	}

	var out io.Writer = fallback
	var closer io.Closer = io.NopCloser(nil)
	if c.File != "" {
		l := &lumberjack.Logger{
			Filename: c.File,
			MaxSize:  c.MaxSize,
			MaxAge:   c.MaxAge,
		}
		out, closer = l, l
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closer, nil
}
