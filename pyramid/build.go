package pyramid

import (
	"context"
	"fmt"
	"time"

	"github.com/eak1mov/go-tilepyramid/source"
	"github.com/eak1mov/go-tilepyramid/tile"
	"golang.org/x/sync/errgroup"
)

type builder struct {
	p        *Pyramid
	src      source.Source
	progress func(percent int)
}

func (p *Pyramid) build(ctx context.Context, src source.Source, cfg config) error {
	b := builder{p: p, src: src, progress: cfg.progress}
	b.report(0)

	start := time.Now()
	buffers := make([][]byte, cfg.workers)
	for i := range buffers {
		buffers[i] = make([]byte, p.tileSize)
	}
	for level := range p.Levels() {
		if err := b.buildLevel(ctx, level, buffers); err != nil {
			return err
		}
		size := p.LevelSize(level)
		p.logger.Debug("pyramid: level built", "level", level, "width", size.Width, "height", size.Height)
	}
	p.logger.Debug("pyramid: built", "levels", p.Levels(), "tiles", p.Tiles(), "bytes", p.ByteSize(), "elapsed", time.Since(start))
	return nil
}

// buildLevel fills and writes the tiles of one level in index order, filling
// up to len(buffers) of them concurrently.
func (b *builder) buildLevel(ctx context.Context, level int, buffers [][]byte) error {
	size := b.p.LevelSize(level)
	n := size.Width * size.Height
	first := b.p.levelStart[level]

	for start := 0; start < n; start += len(buffers) {
		batch := buffers[:min(len(buffers), n-start)]
		if len(batch) == 1 {
			if err := b.fillTile(level, start%size.Width, start/size.Width, batch[0]); err != nil {
				return err
			}
		} else {
			var g errgroup.Group
			for i, buf := range batch {
				g.Go(func() error {
					return b.fillTile(level, (start+i)%size.Width, (start+i)/size.Width, buf)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		}
		for i, buf := range batch {
			if err := b.writeTile(ctx, first+start+i, buf); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) writeTile(ctx context.Context, index int, data []byte) error {
	if _, err := b.p.store.WriteAt(data, b.p.offset+int64(index)*int64(b.p.tileSize)); err != nil {
		return ioError(fmt.Sprintf("write tile %d", index), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.p.tiles == 1 {
		b.report(100)
	} else {
		b.report(index * 100 / (b.p.tiles - 1))
	}
	return nil
}

func (b *builder) report(percent int) {
	if b.progress != nil {
		b.progress(percent)
	}
}

func (b *builder) fillTile(level, tx, ty int, data []byte) error {
	params := b.p.params
	dst := tile.NewView(data, params.TileWidth, params.TileHeight, b.p.dims.ElementSize)
	if level == 0 {
		return b.fillBase(tx, ty, dst)
	}
	return b.fillUpper(level, tx, ty, dst)
}

// fillBase copies a level 0 tile from the source, mirroring whatever lies
// outside the data rectangle.
func (b *builder) fillBase(tx, ty int, dst tile.View) error {
	params := b.p.params
	dx := tx*b.p.netWidth - params.OverlapH
	dy := ty*b.p.netHeight - params.OverlapV

	var err error
	if dx >= 0 && dy >= 0 && dx+dst.Width <= b.src.Width() && dy+dst.Height <= b.src.Height() {
		err = b.src.Get(dx, dy, dst.Width, dst.Height, dst.Data)
	} else {
		err = fillReflected(b.src, dx, dy, dst)
	}
	if err != nil {
		return ioError(fmt.Sprintf("read source tile (%d, %d)", tx, ty), err)
	}
	return nil
}

// fillReflected fills dst with the window at (dx, dy) row by row. Rows and
// columns outside the source are mirrored; the mirrored column strips left
// and right of the source are read in one piece each and stored reversed.
func fillReflected(src source.Source, dx, dy int, dst tile.View) error {
	width, height := src.Width(), src.Height()
	es := dst.ElementSize
	scratch := make([]byte, dst.Width*es)

	// dx < width and dx+dst.Width > 0 for every tile, so the center is never empty.
	x0 := max(0, -dx)
	x1 := min(dst.Width, width-dx)

	for y := range dst.Height {
		sy := reflect(dy+y, height)
		row := dst.Row(y)

		if err := src.Get(dx+x0, sy, x1-x0, 1, row[x0*es:x1*es]); err != nil {
			return err
		}

		if x0 > 0 {
			// columns dx..-1 mirror to -dx..1
			lo, hi := reflect(dx+x0-1, width), reflect(dx, width)
			if err := src.Get(lo, sy, hi-lo+1, 1, scratch); err != nil {
				return err
			}
			for x := range x0 {
				c := reflect(dx+x, width) - lo
				copy(row[x*es:(x+1)*es], scratch[c*es:(c+1)*es])
			}
		}

		if x1 < dst.Width {
			// columns width.. mirror to width-2 downwards
			lo, hi := reflect(dx+dst.Width-1, width), reflect(dx+x1, width)
			if err := src.Get(lo, sy, hi-lo+1, 1, scratch); err != nil {
				return err
			}
			for x := x1; x < dst.Width; x++ {
				c := reflect(dx+x, width) - lo
				copy(row[x*es:(x+1)*es], scratch[c*es:(c+1)*es])
			}
		}
	}
	return nil
}

type axisMapping struct {
	lowerTC int
	lowerC  int
}

func mapAxis(lowerDim, tileDim, overlap, tc int) []axisMapping {
	m := make([]axisMapping, tileDim)
	for c := range m {
		m[c].lowerTC, m[c].lowerC = lowerLevelCoord(lowerDim, tileDim, overlap, tc, c)
	}
	return m
}

// lowerTiles keeps the lower level tiles locked while one tile is filled. It is
// local to a single fill and never shared between goroutines.
type lowerTiles struct {
	p      *Pyramid
	locked map[int]*Tile
	last   *Tile
}

func (c *lowerTiles) get(index int) (*Tile, error) {
	if c.last != nil && c.last.Index == index {
		return c.last, nil
	}
	t, ok := c.locked[index]
	if !ok {
		var err error
		if t, err = c.p.LockTile(index); err != nil {
			return nil, err
		}
		c.locked[index] = t
	}
	c.last = t
	return t, nil
}

func (c *lowerTiles) release() error {
	var first error
	for index, t := range c.locked {
		if err := t.Unlock(); err != nil && first == nil {
			first = err
		}
		delete(c.locked, index)
	}
	c.last = nil
	return first
}

// fillUpper fills a tile of level > 0 by averaging 2x2 blocks of level-1.
func (b *builder) fillUpper(level, tx, ty int, dst tile.View) (err error) {
	params := b.p.params
	lower := b.p.LevelSize(level - 1)
	xs := mapAxis(lower.Width, params.TileWidth, params.OverlapH, tx)
	ys := mapAxis(lower.Height, params.TileHeight, params.OverlapV, ty)

	cache := lowerTiles{p: b.p, locked: make(map[int]*Tile)}
	defer func() {
		if releaseErr := cache.release(); err == nil {
			err = releaseErr
		}
	}()

	for y, my := range ys {
		for x, mx := range xs {
			t, err := cache.get(b.p.TileIndex(mx.lowerTC, my.lowerTC, level-1))
			if err != nil {
				return err
			}
			b.src.Mean(
				t.At(mx.lowerC, my.lowerC),
				t.At(mx.lowerC+1, my.lowerC),
				t.At(mx.lowerC, my.lowerC+1),
				t.At(mx.lowerC+1, my.lowerC+1),
				dst.At(x, y),
			)
		}
	}
	return nil
}
