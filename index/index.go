// Package index reads and writes tile location indexes: flat arrays of
// fixed-size little endian records, one per tile, pointing into a file that
// holds the tile contents.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/eak1mov/go-tilepyramid/tile"
)

// RecordSize is the encoded size of an Item.
const RecordSize = 24

var ErrTruncated = errors.New("index: truncated record")

// Item maps tile coordinates to the location of the tile record.
// The layout is plain enough to be read from any language.
type Item struct {
	X      uint32
	Y      uint32
	Z      uint32
	Length uint32
	Offset uint64
}

// NewItem panics if the location length does not fit the record.
func NewItem(id tile.ID, loc tile.Location) Item {
	if loc.Length > math.MaxUint32 {
		panic(fmt.Sprintf("index: tile %v length %d does not fit a record", id, loc.Length))
	}
	return Item{X: id.X, Y: id.Y, Z: id.Z, Length: uint32(loc.Length), Offset: loc.Offset}
}

func (i Item) TileID() tile.ID {
	return tile.ID{X: i.X, Y: i.Y, Z: i.Z}
}

func (i Item) TileLocation() tile.Location {
	return tile.Location{Offset: i.Offset, Length: uint64(i.Length)}
}

func (i Item) appendBinary(b []byte) []byte {
	le := binary.LittleEndian
	b = le.AppendUint32(b, i.X)
	b = le.AppendUint32(b, i.Y)
	b = le.AppendUint32(b, i.Z)
	b = le.AppendUint32(b, i.Length)
	return le.AppendUint64(b, i.Offset)
}

// WriteAll writes items in order.
func WriteAll(w io.Writer, items []Item) error {
	buf := make([]byte, 0, len(items)*RecordSize)
	for _, item := range items {
		buf = item.appendBinary(buf)
	}
	_, err := w.Write(buf)
	return err
}

// ReadAll decodes a whole index.
func ReadAll(data []byte) ([]Item, error) {
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrTruncated, len(data)%RecordSize)
	}
	le := binary.LittleEndian
	items := make([]Item, 0, len(data)/RecordSize)
	for b := data; len(b) > 0; b = b[RecordSize:] {
		items = append(items, Item{
			X:      le.Uint32(b[0:]),
			Y:      le.Uint32(b[4:]),
			Z:      le.Uint32(b[8:]),
			Length: le.Uint32(b[12:]),
			Offset: le.Uint64(b[16:]),
		})
	}
	return items, nil
}

// Locations maps tiles to their locations. Later items win.
func Locations(items []Item) map[tile.ID]tile.Location {
	m := make(map[tile.ID]tile.Location, len(items))
	for _, item := range items {
		m[item.TileID()] = item.TileLocation()
	}
	return m
}
