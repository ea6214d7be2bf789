package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/eak1mov/go-tilepyramid/export"
	"github.com/eak1mov/go-tilepyramid/pm"
	"github.com/eak1mov/go-tilepyramid/pyramid"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type exportCmd struct {
	inputPath      string
	outputPath     string
	outputFormat   string
	netRegion      bool
	pngCompression string
	pmCompression  string
}

func (c *exportCmd) Name() string     { return "export" }
func (c *exportCmd) Synopsis() string { return "export pyramid tiles as a PNG tileset" }
func (c *exportCmd) Usage() string {
	return "pyramidtool export -i <path> -o <path> [-of <format>] [-net]\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Cache file path")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, pmtiles, xyz)")
	f.BoolVar(&c.netRegion, "net", false, "Crop the tile overlap")
	f.StringVar(&c.pngCompression, "png", "default", "PNG compression (default, none, speed, size)")
	f.StringVar(&c.pmCompression, "pm_compression", "gzip", "PMTiles directory compression (gzip, zstd, none)")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	logger := loggerArg(args)

	pngLevel, err := parseCompressionLevel(c.pngCompression)
	if err != nil {
		log.Println(err)
		return subcommands.ExitUsageError
	}
	pmCompression, err := pm.ParseCompression(c.pmCompression)
	if err != nil {
		log.Println(err)
		return subcommands.ExitUsageError
	}

	p, err := openCache(c.inputPath, pyramid.WithLogger(logger))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer p.Close()

	metadata := map[string]string{
		"name":   filepath.Base(c.inputPath),
		"format": "png",
		"type":   "overlay",
		"levels": strconv.Itoa(p.Levels()),
	}
	w, err := newTileWriter(deduceFormat(c.outputFormat, c.outputPath), c.outputPath, metadata, pmCompression, logger)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer w.Close()

	bar := progressbar.NewOptions(p.Tiles(),
		progressbar.OptionSetDescription("exporting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts())

	opts := []export.Option{
		export.WithLogger(logger),
		export.WithCompression(pngLevel),
		export.WithProgress(func(done, _ int) { bar.Set(done) }),
	}
	if c.netRegion {
		opts = append(opts, export.WithNetRegion())
	}
	err = export.Tiles(ctx, p.Pyramid, p.format, w, opts...)
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if err := w.Close(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type exportIndexCmd struct {
	inputPath  string
	outputPath string
}

func (c *exportIndexCmd) Name() string { return "export_index" }
func (c *exportIndexCmd) Synopsis() string {
	return "export the location of every tile record of a cache"
}
func (c *exportIndexCmd) Usage() string {
	return "pyramidtool export_index -i <path> -o <path>\n"
}
func (c *exportIndexCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Cache file path")
	f.StringVar(&c.outputPath, "o", "", "Output index file path")
}

func (c *exportIndexCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	p, err := openCache(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer p.Close()

	if err := writeIndex(p.Pyramid, c.outputPath); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func writeIndex(p *pyramid.Pyramid, outputPath string) (err error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	w := bufio.NewWriter(file)
	if err := export.Index(p, w); err != nil {
		return err
	}
	return w.Flush()
}
