// Package config loads the TOML build configuration of pyramidtool and reads
// and writes the manifest stored next to every cache file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/eak1mov/go-tilepyramid/pyramid"
	"github.com/eak1mov/go-tilepyramid/source"
)

// Tile is the tile geometry.
type Tile struct {
	Width    int `toml:"width"`
	Height   int `toml:"height"`
	OverlapH int `toml:"overlap_h"`
	OverlapV int `toml:"overlap_v"`
}

func (t Tile) Params() pyramid.Params {
	return pyramid.Params{TileWidth: t.Width, TileHeight: t.Height, OverlapH: t.OverlapH, OverlapV: t.OverlapV}
}

// Raw describes headerless input files.
type Raw struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Format string `toml:"format"`
	Offset int64  `toml:"offset"`
}

// Build is the configuration of the build subcommand.
type Build struct {
	Tile    Tile `toml:"tile"`
	Raw     Raw  `toml:"raw"`
	Workers int  `toml:"workers"`
	Logging Log  `toml:"logging"` // overrides the global log flags
}

func DefaultBuild() Build {
	return Build{
		Tile:    Tile{Width: 256, Height: 256, OverlapH: 8, OverlapV: 8},
		Raw:     Raw{Format: source.Gray8.String()},
		Workers: 1,
	}
}

// LoadBuild reads a build configuration. Keys missing from the file keep
// their default values; unknown keys are an error.
func LoadBuild(filePath string) (Build, error) {
	c := DefaultBuild()
	if err := decodeFile(filePath, &c); err != nil {
		return Build{}, err
	}
	return c, nil
}

func decodeFile(filePath string, v any) error {
	md, err := toml.DecodeFile(filePath, v)
	if err != nil {
		return fmt.Errorf("config: could not decode %s: %w", filePath, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("config: unknown keys in %s: %s", filePath, strings.Join(keys, ", "))
	}
	return nil
}

// Manifest records what is needed to reopen a cache file: the pyramid
// itself stores no header.
type Manifest struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Format string `toml:"format"`
	Tile   Tile   `toml:"tile"`
	Offset int64  `toml:"offset"`

	// Informational, recomputed on load.
	Levels int `toml:"levels"`
	Tiles  int `toml:"tiles"`
}

// NewManifest describes p, built from elements of the given format.
func NewManifest(p *pyramid.Pyramid, format source.Format) Manifest {
	dims, params := p.Dimensions(), p.Params()
	return Manifest{
		Width:  dims.Width,
		Height: dims.Height,
		Format: format.String(),
		Tile:   Tile{Width: params.TileWidth, Height: params.TileHeight, OverlapH: params.OverlapH, OverlapV: params.OverlapV},
		Offset: p.Offset(),
		Levels: p.Levels(),
		Tiles:  p.Tiles(),
	}
}

// ManifestPath returns the manifest location of a cache file.
func ManifestPath(cachePath string) string {
	return cachePath + ".toml"
}

func WriteManifest(filePath string, m Manifest) (err error) {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	return toml.NewEncoder(file).Encode(m)
}

func LoadManifest(filePath string) (Manifest, error) {
	var m Manifest
	if err := decodeFile(filePath, &m); err != nil {
		return Manifest{}, err
	}
	if _, err := source.ParseFormat(m.Format); err != nil {
		return Manifest{}, fmt.Errorf("config: %s: %w", filePath, err)
	}
	return m, nil
}

// Dimensions returns the level 0 dimensions and element format.
func (m Manifest) Dimensions() (pyramid.Dimensions, source.Format) {
	format, err := source.ParseFormat(m.Format)
	if err != nil {
		panic(err)
	}
	return pyramid.Dimensions{Width: m.Width, Height: m.Height, ElementSize: format.Size()}, format
}
