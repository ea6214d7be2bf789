package xyz

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-tilepyramid/tile"
)

// Writer stores every tile in its own file. A tile file appears under its
// final name only once it is complete, so an interrupted export never leaves
// truncated tiles behind.
type Writer struct {
	filePattern string
	logger      *slog.Logger
	dirs        map[string]bool // directories already created
	count       int
	finalized   bool
}

type WriterOption func(*Writer)

func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = logger }
}

// NewWriter creates a Writer for a pattern containing "{z}", "{x}" and "{y}",
// e.g. "/data/tiles/{z}/{x}/{y}.png".
func NewWriter(filePattern string, opts ...WriterOption) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	w := &Writer{
		filePattern: filePattern,
		logger:      slog.New(slog.DiscardHandler),
		dirs:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if w.finalized {
		panic("xyz: write after finalize")
	}
	if !tileID.Valid() {
		return fmt.Errorf("xyz: invalid tile %v", tileID)
	}
	filePath := formatPattern(w.filePattern, tileID)

	dir := filepath.Dir(filePath)
	if !w.dirs[dir] {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	if err := writeFile(dir, filePath, tileData); err != nil {
		return fmt.Errorf("xyz: tile %v: %w", tileID, err)
	}
	w.count++
	return nil
}

// writeFile writes data to a temporary file in dir and renames it to filePath.
func writeFile(dir, filePath string, data []byte) error {
	file, err := os.CreateTemp(dir, ".tile-*")
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	err = errors.Join(err, file.Close())
	if err == nil {
		err = os.Chmod(file.Name(), 0644)
	}
	if err == nil {
		err = os.Rename(file.Name(), filePath)
	}
	if err != nil {
		return errors.Join(err, os.Remove(file.Name()))
	}
	return nil
}

func (w *Writer) Finalize() error {
	if w.finalized {
		panic("xyz: finalize called twice")
	}
	w.finalized = true
	w.logger.Debug("xyz: tiles written", "tiles", w.count, "directories", len(w.dirs))
	return nil
}
