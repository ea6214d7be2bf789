package pm

import (
	"math/bits"

	"github.com/eak1mov/go-tilepyramid/tile"
	"github.com/google/hilbert"
)

// tileCode numbers tiles zoom by zoom, along a Hilbert curve within a zoom.
func tileCode(id tile.ID) uint64 {
	h, err := hilbert.NewHilbert(1 << id.Z)
	if err != nil {
		panic(err)
	}
	d, err := h.MapInverse(int(id.X), int(id.Y))
	if err != nil {
		panic(err)
	}
	return zoomStart(id.Z) + uint64(d)
}

func tileFromCode(code uint64) tile.ID {
	z := uint32(bits.Len64(3*code+1)-1) / 2
	h, err := hilbert.NewHilbert(1 << z)
	if err != nil {
		panic(err)
	}
	x, y, err := h.Map(int(code - zoomStart(z)))
	if err != nil {
		panic(err)
	}
	return tile.ID{X: uint32(x), Y: uint32(y), Z: z}
}

// zoomStart returns the number of tiles on all zooms below z.
func zoomStart(z uint32) uint64 {
	return (1<<(2*z) - 1) / 3
}
