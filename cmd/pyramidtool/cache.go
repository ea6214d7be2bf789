package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilepyramid/internal/config"
	"github.com/eak1mov/go-tilepyramid/pyramid"
	"github.com/eak1mov/go-tilepyramid/source"
	"github.com/eak1mov/go-tilepyramid/store"
)

type cache struct {
	*pyramid.Pyramid
	manifest config.Manifest
	format   source.Format
	store    *store.File
}

// openCache reopens a cache file built by the build subcommand.
func openCache(cachePath string, opts ...pyramid.Option) (*cache, error) {
	m, err := config.LoadManifest(config.ManifestPath(cachePath))
	if err != nil {
		return nil, err
	}
	dims, format := m.Dimensions()
	params := m.Tile.Params()
	if err := params.Check(dims); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ManifestPath(cachePath), err)
	}

	st, err := store.Open(cachePath)
	if err != nil {
		return nil, err
	}
	if m.Offset < 0 || m.Offset%st.Alignment() != 0 {
		st.Close()
		return nil, fmt.Errorf("%s: offset %d not aligned to %d", config.ManifestPath(cachePath), m.Offset, st.Alignment())
	}
	p := pyramid.Open(dims, params, st, m.Offset, opts...)

	size, err := st.Size()
	if err != nil {
		st.Close()
		return nil, err
	}
	if want := p.Offset() + p.ByteSize(); size < want {
		st.Close()
		return nil, fmt.Errorf("%s: %d bytes, manifest needs %d", cachePath, size, want)
	}
	return &cache{Pyramid: p, manifest: m, format: format, store: st}, nil
}

func (c *cache) Close() error {
	return c.store.Close()
}

// formatElement prints the channels of one element.
func formatElement(format source.Format, e []byte) string {
	values := format.Values(e)
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
