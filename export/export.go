// Package export converts pyramid levels into web map tilesets.
//
// Level l of a pyramid with L levels becomes zoom L-1-l: the single top tile
// is zoom 0 and level 0 the deepest zoom. Tile coordinates are kept, which is
// always valid since level l spans at most 2^(L-1-l) tiles per axis.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"time"

	"github.com/eak1mov/go-tilepyramid/index"
	"github.com/eak1mov/go-tilepyramid/pyramid"
	"github.com/eak1mov/go-tilepyramid/source"
	"github.com/eak1mov/go-tilepyramid/tile"
)

// Zoom returns the zoom level of a pyramid level.
func Zoom(p *pyramid.Pyramid, level int) uint32 {
	return uint32(p.Levels() - 1 - level)
}

// TileID returns the tileset coordinates of the tile with the given index.
func TileID(p *pyramid.Pyramid, i int) tile.ID {
	tx, ty, level := p.TileCoordinates(i)
	return tile.ID{X: uint32(tx), Y: uint32(ty), Z: Zoom(p, level)}
}

type config struct {
	logger    *slog.Logger
	progress  func(done, total int)
	netRegion bool
	encoder   png.Encoder
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithProgress sets a callback invoked after every written tile.
func WithProgress(progress func(done, total int)) Option {
	return func(c *config) { c.progress = progress }
}

// WithNetRegion crops the overlap, so exported tiles abut instead of
// overlapping.
func WithNetRegion() Option {
	return func(c *config) { c.netRegion = true }
}

// WithCompression sets the PNG compression level.
func WithCompression(level png.CompressionLevel) Option {
	return func(c *config) { c.encoder.CompressionLevel = level }
}

// Tiles renders every tile of p as PNG, interpreting elements as format, and
// writes them to w from zoom 0 down. Finalize is called on success.
func Tiles(ctx context.Context, p *pyramid.Pyramid, format source.Format, w tile.Writer, opts ...Option) error {
	if format.Size() != p.Dimensions().ElementSize {
		panic(fmt.Sprintf("export: %v elements in a pyramid of %d byte elements", format, p.Dimensions().ElementSize))
	}
	cfg := config{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := time.Now()
	done := 0
	var buf bytes.Buffer
	for level := p.Levels() - 1; level >= 0; level-- {
		size := p.LevelSize(level)
		for ty := range size.Height {
			for tx := range size.Width {
				if err := ctx.Err(); err != nil {
					return err
				}
				tileIndex := p.TileIndex(tx, ty, level)
				buf.Reset()
				err := p.WithTile(tileIndex, func(t *pyramid.Tile) error {
					view := t.View
					if cfg.netRegion {
						view = netRegion(p, view)
					}
					return cfg.encoder.Encode(&buf, format.Image(view))
				})
				if err != nil {
					return fmt.Errorf("export: tile %d: %w", tileIndex, err)
				}
				id := tile.ID{X: uint32(tx), Y: uint32(ty), Z: Zoom(p, level)}
				if err := w.WriteTile(id, buf.Bytes()); err != nil {
					return fmt.Errorf("export: write tile %v: %w", id, err)
				}
				done++
				if cfg.progress != nil {
					cfg.progress(done, p.Tiles())
				}
			}
		}
		cfg.logger.Debug("export: zoom written", "zoom", Zoom(p, level), "level", level)
	}
	if err := w.Finalize(); err != nil {
		return fmt.Errorf("export: finalize: %w", err)
	}
	cfg.logger.Debug("export: done", "tiles", done, "elapsed", time.Since(start))
	return nil
}

// netRegion copies the part of v without overlap.
func netRegion(p *pyramid.Pyramid, v tile.View) tile.View {
	params := p.Params()
	width, height := p.NetSize()
	net := tile.NewView(make([]byte, width*height*v.ElementSize), width, height, v.ElementSize)
	for y := range height {
		copy(net.Row(y), v.Span(params.OverlapH, params.OverlapV+y, width))
	}
	return net
}

// Items describes where every tile record of p lies in its store.
func Items(p *pyramid.Pyramid) []index.Item {
	items := make([]index.Item, p.Tiles())
	size := uint64(p.TileSize())
	for i := range items {
		loc := tile.Location{Offset: uint64(p.Offset()) + uint64(i)*size, Length: size}
		items[i] = index.NewItem(TileID(p, i), loc)
	}
	return items
}

// Index writes Items(p) to w.
func Index(p *pyramid.Pyramid, w io.Writer) error {
	return index.WriteAll(w, Items(p))
}
