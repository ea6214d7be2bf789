package main

import (
	"bytes"
	"context"
	"flag"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilepyramid/index"
	"github.com/eak1mov/go-tilepyramid/pm"
	"github.com/eak1mov/go-tilepyramid/source"
	"github.com/eak1mov/go-tilepyramid/tile"
	"github.com/google/subcommands"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f, slog.New(slog.DiscardHandler))
}

func writePNG(t *testing.T, filePath string, width, height int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetGray(x, y, color.Gray{Y: uint8(x + 2*y)})
		}
	}
	file, err := os.Create(filePath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, img))
	require.NoError(t, file.Close())
}

func TestDeduceFormat(t *testing.T) {
	for _, tc := range []struct{ format, path, want string }{
		{"", "out.mbtiles", "mbtiles"},
		{"", "out.pmtiles", "pmtiles"},
		{"", "tiles/{z}/{x}/{y}.png", "xyz"},
		{"xyz", "tiles", "xyz"},
		{"", "tiles", ""},
	} {
		require.Equal(t, tc.want, deduceFormat(tc.format, tc.path), "deduceFormat(%q, %q)", tc.format, tc.path)
	}
}

func TestBuildSettings(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "build.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("workers = 3\n[tile]\nwidth = 64\nheight = 64\n"), 0644))

	c := &buildCmd{}
	f := flag.NewFlagSet("build", flag.ContinueOnError)
	c.SetFlags(f)
	require.NoError(t, f.Parse([]string{"-config", configPath, "-th", "32", "-oh", "4"}))

	s, err := c.settings(f)
	require.NoError(t, err)
	require.Equal(t, 3, s.Workers)
	require.Equal(t, 64, s.Tile.Width)
	require.Equal(t, 32, s.Tile.Height)
	require.Equal(t, 4, s.Tile.OverlapH)
	require.Equal(t, 8, s.Tile.OverlapV)
}

func TestBuildInvalidSettings(t *testing.T) {
	dir := t.TempDir()
	smallPath := filepath.Join(dir, "small.png")
	largePath := filepath.Join(dir, "large.png")
	writePNG(t, smallPath, 5, 5)
	writePNG(t, largePath, 64, 64)

	for name, args := range map[string][]string{
		"default overlap on a small image": {"-i", smallPath},
		"odd tile width":                   {"-i", largePath, "-tw", "7"},
		"overlap half tile":                {"-i", largePath, "-tw", "16", "-oh", "8"},
	} {
		cachePath := filepath.Join(dir, "out.cache")
		status := run(t, &buildCmd{}, append(args, "-o", cachePath)...)
		require.Equal(t, subcommands.ExitFailure, status, name)
		require.NoFileExists(t, cachePath, name)
	}
}

func TestOpenCacheInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "input.cache")
	require.NoError(t, os.WriteFile(cachePath, make([]byte, 1<<16), 0644))

	for name, manifest := range map[string]string{
		"odd tile width": "width = 50\nheight = 30\nformat = \"gray8\"\n[tile]\nwidth = 7\nheight = 16\n",
		"overlap":        "width = 5\nheight = 30\nformat = \"gray8\"\n[tile]\nwidth = 16\nheight = 16\noverlap_h = 6\n",
		"misaligned":     "width = 50\nheight = 30\nformat = \"gray8\"\noffset = 3\n[tile]\nwidth = 16\nheight = 16\n",
	} {
		require.NoError(t, os.WriteFile(cachePath+".toml", []byte(manifest), 0644))
		_, err := openCache(cachePath)
		require.Error(t, err, name)
		require.Equal(t, subcommands.ExitFailure, run(t, &getCmd{}, "-i", cachePath), name)
	}
}

func TestBuildExport(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.png")
	cachePath := filepath.Join(dir, "input.cache")
	writePNG(t, inputPath, 50, 30)

	require.Equal(t, subcommands.ExitSuccess, run(t, &buildCmd{},
		"-i", inputPath, "-o", cachePath, "-tw", "16", "-th", "16", "-oh", "2", "-ov", "2", "-workers", "2"))

	p, err := openCache(cachePath)
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, source.Gray8, p.format)
	require.Equal(t, 4, p.Levels())

	e := make([]byte, 1)
	require.NoError(t, p.Get(7, 5, 0, e))
	require.Equal(t, "17", formatElement(p.format, e))

	require.Equal(t, subcommands.ExitSuccess, run(t, &infoCmd{}, "-i", cachePath))
	require.Equal(t, subcommands.ExitSuccess, run(t, &getCmd{}, "-i", cachePath, "-x", "49", "-y", "29", "-level", "2"))
	require.Equal(t, subcommands.ExitUsageError, run(t, &getCmd{}, "-i", cachePath, "-x", "50"))

	indexPath := filepath.Join(dir, "input.index")
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportIndexCmd{}, "-i", cachePath, "-o", indexPath))
	data, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	items, err := index.ReadAll(data)
	require.NoError(t, err)
	require.Len(t, items, p.Tiles())

	pmPath := filepath.Join(dir, "input.pmtiles")
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportCmd{}, "-i", cachePath, "-o", pmPath, "-net", "-pm_compression", "zstd"))
	r, err := pm.Open(pmPath)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, uint64(p.Tiles()), r.Header().AddressedTilesCount)
	top, err := r.ReadTile(tile.ID{})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(top))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 12, 12), img.Bounds())

	xyzDir := filepath.Join(dir, "xyz")
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportCmd{}, "-i", cachePath, "-o", xyzDir, "-of", "xyz"))
	require.FileExists(t, filepath.Join(xyzDir, "3", "4", "2.png"))

	mbPath := filepath.Join(dir, "input.mbtiles")
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportCmd{}, "-i", cachePath, "-o", mbPath))
	require.FileExists(t, mbPath)
}
