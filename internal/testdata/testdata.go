// Package testdata provides synthetic sources shared by tests.
package testdata

import (
	"encoding/binary"
	"errors"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/eak1mov/go-tilepyramid/source"
)

// Gradient returns a Gray8 source with v(x, y) = y*width + x (mod 256).
func Gradient(width, height int) *source.Raw {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = byte(i)
	}
	return source.NewRaw(width, height, source.Gray8, data)
}

// Random returns a source of the given format filled with seeded random bytes.
// Float formats get values in [0, 1).
func Random(width, height int, format source.Format, seed uint64) *source.Raw {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]byte, width*height*format.Size())
	switch format {
	case source.Float32, source.RGBFloat32:
		for i := 0; i < len(data); i += 4 {
			binary.LittleEndian.PutUint32(data[i:], math.Float32bits(rng.Float32()))
		}
	default:
		for i := range data {
			data[i] = byte(rng.Uint32())
		}
	}
	return source.NewRaw(width, height, format, data)
}

var ErrInjected = errors.New("testdata: injected failure")

// Failing wraps a source and fails every Get after the first FailAfter calls.
type Failing struct {
	source.Source
	FailAfter int64

	calls atomic.Int64
}

func (f *Failing) Get(x, y, w, h int, dst []byte) error {
	if f.calls.Add(1) > f.FailAfter {
		return ErrInjected
	}
	return f.Source.Get(x, y, w, h, dst)
}

// Calls returns the number of Get calls so far.
func (f *Failing) Calls() int64 {
	return f.calls.Load()
}
