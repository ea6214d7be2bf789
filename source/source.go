// Package source provides data sources a pyramid can be built from.
//
// A Source is a 2D grid of fixed-size elements. The pyramid reads rectangular
// blocks from it (always inside the grid, boundary reflection is done by the
// caller) and asks it to average four elements when building coarser levels.
package source

// Source is the data consumed by pyramid construction.
type Source interface {
	Width() int
	Height() int
	ElementSize() int

	// Get copies the w x h row-major block of elements starting at (x, y) into dst.
	// The block always lies inside [0, Width) x [0, Height).
	Get(x, y, w, h int, dst []byte) error

	// Mean writes the average of four elements into dst.
	Mean(a, b, c, d, dst []byte)
}
