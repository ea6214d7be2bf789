// Package store provides byte-addressable backing stores for pyramid tile records.
//
// A store is written positionally while a pyramid is being built and read
// afterwards through short-lived mappings of byte ranges.
package store

import (
	"errors"
	"io"
)

var ErrNotMapped = errors.New("store: slice was not returned by Map")

// Store is the backing medium of a pyramid.
type Store interface {
	io.WriterAt
	io.Closer

	// Map returns length bytes starting at offset. The slice must be released
	// with Unmap and must not be modified.
	Map(offset int64, length int) ([]byte, error)

	// Unmap releases a slice obtained from Map.
	Unmap(data []byte) error

	// Alignment is the granularity a pyramid base offset must be aligned to.
	Alignment() int64
}
