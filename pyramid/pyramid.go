// Package pyramid implements a disk-backed, multi-resolution tiling of 2D data.
//
// Level 0 holds the data itself, every following level halves the resolution
// by averaging 2x2 blocks of the level below, up to the first level covered by
// a single tile. All tiles have the same dimensions and duplicate a band of
// their neighbours' content (the overlap), so filters near a tile border need
// no access to other tiles. Data outside the original rectangle is mirrored.
//
// Tiles are stored as fixed-size records in one contiguous byte range of a
// store.Store, ordered by level, row and column. The range carries no header:
// levels and tile counts are recomputed from Dimensions and Params, so a range
// can be reopened with Open as long as both are known.
package pyramid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-tilepyramid/source"
	"github.com/eak1mov/go-tilepyramid/store"
	"github.com/eak1mov/go-tilepyramid/tile"
)

// ErrIO marks failures of the store or the source. A pyramid whose build
// failed must be discarded.
var ErrIO = errors.New("pyramid: i/o error")

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

// Pyramid is immutable once constructed. Concurrent LockTile, Get and
// WithTile calls are safe.
type Pyramid struct {
	*layout

	store  store.Store
	offset int64
	owned  bool // store was created by the pyramid and is closed with it
	logger *slog.Logger
}

type config struct {
	logger   *slog.Logger
	progress func(percent int)
	store    store.Store
	offset   int64
	path     string
	tempDir  string
	workers  int
}

type Option func(*config)

// WithLogger sets the logger used for build diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithProgress sets a callback receiving build progress in percent: 0 before
// the first tile, then non-decreasing values, 100 once after the last tile.
// It is not called when reopening.
func WithProgress(progress func(percent int)) Option {
	return func(c *config) { c.progress = progress }
}

// WithStore makes New reopen tiles previously built at offset of st instead
// of building them. The pyramid does not close st.
func WithStore(st store.Store, offset int64) Option {
	return func(c *config) { c.store, c.offset = st, offset }
}

// WithPath makes New build into the named file, which is kept after Close.
func WithPath(filePath string) Option {
	return func(c *config) { c.path = filePath }
}

// WithTempDir sets the directory of the temporary store used when neither
// WithStore nor WithPath is given.
func WithTempDir(dir string) Option {
	return func(c *config) { c.tempDir = dir }
}

// WithWorkers fills up to n tiles of a level concurrently. The source must
// then be safe for concurrent Get calls. Tiles are still written in order.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = max(1, n) }
}

func newConfig(opts []Option) config {
	c := config{
		logger:  slog.New(slog.DiscardHandler),
		workers: 1,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// New builds a pyramid of src, or reopens one if WithStore is given.
// Invalid parameters are programming errors and panic.
func New(ctx context.Context, src source.Source, params Params, opts ...Option) (*Pyramid, error) {
	cfg := newConfig(opts)
	dims := Dimensions{Width: src.Width(), Height: src.Height(), ElementSize: src.ElementSize()}
	l := newLayout(dims, params)

	if cfg.store != nil {
		return attach(l, cfg), nil
	}

	var st *store.File
	var err error
	if cfg.path != "" {
		st, err = store.Create(cfg.path)
	} else {
		st, err = store.CreateTemp(cfg.tempDir)
	}
	if err != nil {
		return nil, ioError("create store", err)
	}

	p := &Pyramid{layout: l, store: st, owned: true, logger: cfg.logger}
	if err := p.build(ctx, src, cfg); err != nil {
		return nil, errors.Join(err, st.Close())
	}
	return p, nil
}

// Open reopens a pyramid built at offset of st with the same dimensions and
// parameters. The pyramid does not close st.
func Open(dims Dimensions, params Params, st store.Store, offset int64, opts ...Option) *Pyramid {
	cfg := newConfig(opts)
	cfg.store, cfg.offset = st, offset
	return attach(newLayout(dims, params), cfg)
}

func attach(l *layout, cfg config) *Pyramid {
	if cfg.offset < 0 || cfg.offset%cfg.store.Alignment() != 0 {
		panic(fmt.Sprintf("pyramid: offset %d not aligned to %d", cfg.offset, cfg.store.Alignment()))
	}
	cfg.logger.Debug("pyramid: attached", "offset", cfg.offset, "levels", l.Levels(), "tiles", l.Tiles())
	return &Pyramid{layout: l, store: cfg.store, offset: cfg.offset, logger: cfg.logger}
}

// Store returns the backing store.
func (p *Pyramid) Store() store.Store { return p.store }

// Offset returns the position of the first tile record in the store.
func (p *Pyramid) Offset() int64 { return p.offset }

// Close closes the store if the pyramid created it.
func (p *Pyramid) Close() error {
	if !p.owned || p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}

// Tile is a locked tile record. Its View must not be used after Unlock.
type Tile struct {
	tile.View
	Index int

	p *Pyramid
}

// LockTile maps the record of the tile with the given index.
// Every successful LockTile must be followed by exactly one Unlock.
func (p *Pyramid) LockTile(index int) (*Tile, error) {
	p.checkIndex(index)
	data, err := p.store.Map(p.offset+int64(index)*int64(p.tileSize), p.tileSize)
	if err != nil {
		return nil, ioError(fmt.Sprintf("lock tile %d", index), err)
	}
	view := tile.NewView(data, p.params.TileWidth, p.params.TileHeight, p.dims.ElementSize)
	return &Tile{View: view, Index: index, p: p}, nil
}

// Unlock releases the mapping of the tile.
func (t *Tile) Unlock() error {
	if t.p == nil {
		panic(fmt.Sprintf("pyramid: tile %d unlocked twice", t.Index))
	}
	err := t.p.store.Unmap(t.Data)
	t.p, t.Data = nil, nil
	if err != nil {
		return ioError(fmt.Sprintf("unlock tile %d", t.Index), err)
	}
	return nil
}

// UnlockTile is the counterpart of LockTile.
func (p *Pyramid) UnlockTile(t *Tile) error {
	return t.Unlock()
}

// WithTile locks a tile for the duration of fn, unlocking it on every path.
func (p *Pyramid) WithTile(index int, fn func(t *Tile) error) (err error) {
	t, err := p.LockTile(index)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, t.Unlock())
	}()
	return fn(t)
}

// Get copies the element at data coordinates (x, y) as seen at level into dst.
// It locks a tile per call; read many elements through LockTile instead.
func (p *Pyramid) Get(x, y, level int, dst []byte) error {
	if x < 0 || x >= p.dims.Width || y < 0 || y >= p.dims.Height {
		panic(fmt.Sprintf("pyramid: element (%d, %d) outside %dx%d", x, y, p.dims.Width, p.dims.Height))
	}
	if level < 0 || level >= p.Levels() {
		panic(fmt.Sprintf("pyramid: level %d out of range [0, %d)", level, p.Levels()))
	}
	factor := 1 << level
	spanX, spanY := factor*p.netWidth, factor*p.netHeight
	tx, ty := x/spanX, y/spanY
	inX := (x-tx*spanX)/factor + p.params.OverlapH
	inY := (y-ty*spanY)/factor + p.params.OverlapV

	return p.WithTile(p.TileIndex(tx, ty, level), func(t *Tile) error {
		copy(dst[:p.dims.ElementSize], t.At(inX, inY))
		return nil
	})
}
