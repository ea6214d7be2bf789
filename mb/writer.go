// Package mb writes tilesets in the MBTiles format, an sqlite database with
// TMS row numbering. The caller registers the "sqlite3" driver.
package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/eak1mov/go-tilepyramid/tile"
)

// Writer implements tile.Writer for MBTiles files. Tiles are inserted in one
// transaction committed by Finalize.
type Writer struct {
	db     *sql.DB
	tx     *sql.Tx
	stmt   *sql.Stmt
	logger *slog.Logger

	metadata map[string]string
	minZoom  uint32
	maxZoom  uint32
	count    int
}

type writerConfig struct {
	metadata map[string]string
	logger   *slog.Logger
}

type WriterOption func(*writerConfig)

// WithMetadata adds rows to the metadata table. Missing "format", "minzoom"
// and "maxzoom" rows are filled in by Finalize.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = logger }
}

// NewWriter creates the database schema in a new file.
func NewWriter(filePath string, opts ...WriterOption) (_ *Writer, err error) {
	config := writerConfig{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("mb: create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	stmt, err := tx.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	metadata := map[string]string{"format": "png"}
	for k, v := range config.metadata {
		metadata[k] = v
	}
	return &Writer{
		db:       db,
		tx:       tx,
		stmt:     stmt,
		logger:   config.logger,
		metadata: metadata,
		minZoom:  ^uint32(0),
	}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if w.tx == nil {
		panic("mb: write after finalize")
	}
	if !tileID.Valid() {
		return fmt.Errorf("mb: invalid tile %v", tileID)
	}
	x, y, z := tileID.X, tileID.Y, tileID.Z
	y = (1 << z) - 1 - y // XYZ -> TMS

	if _, err := w.stmt.Exec(z, x, y, tileData); err != nil {
		return fmt.Errorf("mb: insert tile %v: %w", tileID, err)
	}
	w.minZoom, w.maxZoom = min(w.minZoom, z), max(w.maxZoom, z)
	w.count++
	return nil
}

// Finalize commits the tiles, writes the metadata and indexes the tiles.
func (w *Writer) Finalize() error {
	if w.tx == nil {
		panic("mb: finalize called twice")
	}
	if w.count > 0 {
		if _, ok := w.metadata["minzoom"]; !ok {
			w.metadata["minzoom"] = strconv.FormatUint(uint64(w.minZoom), 10)
		}
		if _, ok := w.metadata["maxzoom"]; !ok {
			w.metadata["maxzoom"] = strconv.FormatUint(uint64(w.maxZoom), 10)
		}
	}
	for k, v := range w.metadata {
		if _, err := w.tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("mb: insert metadata %q: %w", k, err)
		}
	}

	err := errors.Join(w.stmt.Close(), w.tx.Commit())
	w.tx, w.stmt = nil, nil
	if err != nil {
		return err
	}

	w.logger.Debug("mb: creating index", "tiles", w.count)
	_, err = w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)")
	return err
}

// Close rolls back tiles that were not finalized and closes the database.
func (w *Writer) Close() error {
	var err error
	if w.tx != nil {
		err = errors.Join(w.stmt.Close(), w.tx.Rollback())
		w.tx, w.stmt = nil, nil
	}
	return errors.Join(err, w.db.Close())
}
