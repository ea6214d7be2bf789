package main

import (
	"fmt"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-tilepyramid/mb"
	"github.com/eak1mov/go-tilepyramid/pm"
	"github.com/eak1mov/go-tilepyramid/tile"
	"github.com/eak1mov/go-tilepyramid/xyz"
)

func deduceFormat(format, filePath string) string {
	if format != "" {
		return format
	}
	switch {
	case strings.HasSuffix(filePath, ".mbtiles"):
		return "mbtiles"
	case strings.HasSuffix(filePath, ".pmtiles"):
		return "pmtiles"
	case strings.Contains(filePath, "{z}"):
		return "xyz"
	}
	return format
}

type tileWriter interface {
	tile.Writer
	Close() error
}

type nopCloser struct{ tile.Writer }

func (nopCloser) Close() error { return nil }

// newTileWriter creates the sink of the export subcommand. A directory given
// for xyz output gets the default "{z}/{x}/{y}.png" layout.
func newTileWriter(format, outputPath string, metadata map[string]string, compression pm.Compression, logger *slog.Logger) (tileWriter, error) {
	switch format {
	case "mbtiles":
		return mb.NewWriter(outputPath, mb.WithMetadata(metadata), mb.WithLogger(logger))
	case "pmtiles":
		pmMetadata := make(map[string]any, len(metadata))
		for k, v := range metadata {
			pmMetadata[k] = v
		}
		return pm.NewWriter(outputPath, pm.WithMetadata(pmMetadata), pm.WithCompression(compression), pm.WithLogger(logger))
	case "xyz":
		if !strings.Contains(outputPath, "{z}") {
			outputPath = filepath.Join(outputPath, "{z}", "{x}", "{y}.png")
		}
		w, err := xyz.NewWriter(outputPath, xyz.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return nopCloser{w}, nil
	}
	return nil, fmt.Errorf("invalid output format: %q", format)
}

func parseCompressionLevel(name string) (png.CompressionLevel, error) {
	switch name {
	case "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "size":
		return png.BestCompression, nil
	}
	return 0, fmt.Errorf("invalid png compression: %q", name)
}
