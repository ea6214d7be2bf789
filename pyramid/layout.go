package pyramid

import (
	"errors"
	"fmt"
	"math"
)

// maxLevels bounds the level computation. Dimensions are ints, so a valid
// layout never comes close to it.
const maxLevels = 64

// Params describes the tile geometry, identical on every level.
type Params struct {
	TileWidth  int
	TileHeight int
	OverlapH   int // elements duplicated on the left and right of a tile
	OverlapV   int // elements duplicated above and below a tile
}

// Dimensions describes level 0, the original data.
type Dimensions struct {
	Width       int
	Height      int
	ElementSize int
}

// LevelSize is the number of tiles spanning one level.
type LevelSize struct {
	Width  int
	Height int
}

type layout struct {
	dims   Dimensions
	params Params

	netWidth  int
	netHeight int
	tileSize  int

	levels     []LevelSize
	levelStart []int // index of the first tile of each level
	tiles      int
}

// ErrInvalidParams reports a tile geometry that cannot tile the data.
var ErrInvalidParams = errors.New("pyramid: invalid parameters")

// Check reports whether params can tile data of the given dimensions. New and
// Open panic on exactly the conditions Check reports, so callers passing
// parameters from user input should call Check first.
func (params Params) Check(dims Dimensions) error {
	_, err := computeLayout(dims, params)
	return err
}

// newLayout validates the geometry and computes the levels. The result depends
// on nothing but its arguments, which is what lets a store be reopened without
// a header.
func newLayout(dims Dimensions, params Params) *layout {
	l, err := computeLayout(dims, params)
	if err != nil {
		panic(err.Error())
	}
	return l
}

func computeLayout(dims Dimensions, params Params) (*layout, error) {
	if dims.Width <= 0 || dims.Height <= 0 || dims.ElementSize <= 0 {
		return nil, fmt.Errorf("%w: data dimensions %dx%d, element size %d", ErrInvalidParams, dims.Width, dims.Height, dims.ElementSize)
	}
	if err := checkAxis("horizontal", params.TileWidth, params.OverlapH, dims.Width); err != nil {
		return nil, err
	}
	if err := checkAxis("vertical", params.TileHeight, params.OverlapV, dims.Height); err != nil {
		return nil, err
	}

	area, ok := mul(params.TileWidth, params.TileHeight)
	tileSize, ok2 := mul(area, dims.ElementSize)
	if !ok || !ok2 {
		return nil, fmt.Errorf("%w: tile %dx%d of %d byte elements overflows", ErrInvalidParams, params.TileWidth, params.TileHeight, dims.ElementSize)
	}
	l := &layout{
		dims:      dims,
		params:    params,
		netWidth:  params.TileWidth - 2*params.OverlapH,
		netHeight: params.TileHeight - 2*params.OverlapV,
		tileSize:  tileSize,
	}

	for level := 0; ; level++ {
		if level >= maxLevels {
			return nil, fmt.Errorf("%w: more than %d levels for %dx%d", ErrInvalidParams, maxLevels, dims.Width, dims.Height)
		}
		size := LevelSize{
			Width:  ceilShift(dims.Width, level, l.netWidth),
			Height: ceilShift(dims.Height, level, l.netHeight),
		}
		l.levels = append(l.levels, size)
		l.levelStart = append(l.levelStart, l.tiles)
		count, ok := mul(size.Width, size.Height)
		if ok {
			l.tiles, ok = add(l.tiles, count)
		}
		if !ok {
			return nil, fmt.Errorf("%w: tile count overflows at level %d", ErrInvalidParams, level)
		}
		if size.Width == 1 && size.Height == 1 {
			break
		}
	}
	// the whole store must be addressable
	if _, ok := mul(l.tiles, l.tileSize); !ok {
		return nil, fmt.Errorf("%w: %d tiles of %d bytes overflow", ErrInvalidParams, l.tiles, l.tileSize)
	}
	return l, nil
}

func checkAxis(axis string, tileDim, overlap, dataDim int) error {
	if tileDim <= 0 || tileDim%2 != 0 {
		return fmt.Errorf("%w: %s tile dimension %d must be positive and even", ErrInvalidParams, axis, tileDim)
	}
	if overlap < 0 || overlap%2 != 0 || overlap >= tileDim/2 || overlap >= dataDim {
		return fmt.Errorf("%w: %s overlap %d must be even, below %d and below data dimension %d", ErrInvalidParams, axis, overlap, tileDim/2, dataDim)
	}
	return nil
}

// ceilShift returns max(1, ceil(n / (2^shift * net))) without computing 2^shift * net.
func ceilShift(n, shift, net int) int {
	return ((n-1)>>shift)/net + 1
}

func mul(a, b int) (int, bool) {
	if a != 0 && b > math.MaxInt/a {
		return 0, false
	}
	return a * b, true
}

func add(a, b int) (int, bool) {
	if a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

// TileIndex returns the position of tile (tx, ty) of level in the store.
// Tiles are ordered by level, then row, then column.
func (l *layout) TileIndex(tx, ty, level int) int {
	if level < 0 || level >= len(l.levels) {
		panic(fmt.Sprintf("pyramid: level %d out of range [0, %d)", level, len(l.levels)))
	}
	size := l.levels[level]
	if tx < 0 || tx >= size.Width || ty < 0 || ty >= size.Height {
		panic(fmt.Sprintf("pyramid: tile (%d, %d) outside level %d of %dx%d tiles", tx, ty, level, size.Width, size.Height))
	}
	return l.levelStart[level] + ty*size.Width + tx
}

// TileCoordinates is the inverse of TileIndex.
func (l *layout) TileCoordinates(index int) (tx, ty, level int) {
	l.checkIndex(index)
	level = len(l.levels) - 1
	for l.levelStart[level] > index {
		level--
	}
	remainder := index - l.levelStart[level]
	width := l.levels[level].Width
	return remainder % width, remainder / width, level
}

func (l *layout) checkIndex(index int) {
	if index < 0 || index >= l.tiles {
		panic(fmt.Sprintf("pyramid: tile index %d out of range [0, %d)", index, l.tiles))
	}
}

// Levels returns the number of levels.
func (l *layout) Levels() int { return len(l.levels) }

// LevelSize returns the number of tiles spanning level.
func (l *layout) LevelSize(level int) LevelSize { return l.levels[level] }

// Tiles returns the total number of tiles.
func (l *layout) Tiles() int { return l.tiles }

// TileSize returns the size of one tile record in bytes.
func (l *layout) TileSize() int { return l.tileSize }

// NetSize returns the tile dimensions without overlap, the tiling stride.
func (l *layout) NetSize() (width, height int) { return l.netWidth, l.netHeight }

// ByteSize returns the size of all tile records.
func (l *layout) ByteSize() int64 { return int64(l.tiles) * int64(l.tileSize) }

func (l *layout) Dimensions() Dimensions { return l.dims }
func (l *layout) Params() Params         { return l.params }

// reflect maps a coordinate outside [0, n) back inside by mirroring at the
// border without repeating the border element: -1 maps to 1, n maps to n-2.
func reflect(c, n int) int {
	if c < 0 {
		return min(n-1, -c)
	}
	if c >= n {
		return max(0, 2*n-2-c)
	}
	return c
}

// lowerLevelCoord locates, along one axis, the lower level tile and in-tile
// coordinate that in-tile coordinate c of tile tc is averaged from. The
// returned coordinate and its successor both lie inside the lower tile.
func lowerLevelCoord(lowerDim, tileDim, overlap, tc, c int) (lowerTC, lowerC int) {
	switch {
	case c < overlap:
		if tc == 0 {
			return 0, 0
		}
		lowerTC, lowerC = 2*tc-1, tileDim-overlap-2*(overlap-c)
	case c < tileDim/2:
		lowerTC, lowerC = 2*tc, (c-overlap)*2+overlap
	case c < tileDim-overlap:
		lowerTC, lowerC = 2*tc+1, (c-tileDim/2)*2+overlap
	default:
		lowerTC, lowerC = 2*tc+2, (c-(tileDim-overlap))*2+overlap
	}
	if lowerTC >= lowerDim {
		return 2 * tc, tileDim - 2
	}

	// Overlap above a third of the tile reaches past the neighbour's stored
	// elements; step one net stride at a time to the tile holding them.
	net := tileDim - 2*overlap
	for lowerC < 0 {
		if lowerTC == 0 {
			return 0, 0
		}
		lowerTC, lowerC = lowerTC-1, lowerC+net
	}
	for lowerC > tileDim-2 {
		if lowerTC+1 >= lowerDim {
			return lowerTC, tileDim - 2
		}
		lowerTC, lowerC = lowerTC+1, lowerC-net
	}
	return lowerTC, lowerC
}
