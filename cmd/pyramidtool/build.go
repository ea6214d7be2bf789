package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/eak1mov/go-tilepyramid/internal/config"
	"github.com/eak1mov/go-tilepyramid/pyramid"
	"github.com/eak1mov/go-tilepyramid/source"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type buildCmd struct {
	inputPath  string
	outputPath string
	configPath string

	flags config.Build
}

func (c *buildCmd) Name() string     { return "build" }
func (c *buildCmd) Synopsis() string { return "build a tile pyramid cache from an image or raw file" }
func (c *buildCmd) Usage() string {
	return "pyramidtool build -i <path> -o <path> [-config <path>] [-tw <n> -th <n> -oh <n> -ov <n>] [-raw_width <n> -raw_height <n> -raw_format <format>]\n"
}
func (c *buildCmd) SetFlags(f *flag.FlagSet) {
	defaults := config.DefaultBuild()
	f.StringVar(&c.inputPath, "i", "", "Input image or raw file path")
	f.StringVar(&c.outputPath, "o", "", "Output cache file path")
	f.StringVar(&c.configPath, "config", "", "TOML build configuration")
	f.IntVar(&c.flags.Tile.Width, "tw", defaults.Tile.Width, "Tile width")
	f.IntVar(&c.flags.Tile.Height, "th", defaults.Tile.Height, "Tile height")
	f.IntVar(&c.flags.Tile.OverlapH, "oh", defaults.Tile.OverlapH, "Horizontal overlap")
	f.IntVar(&c.flags.Tile.OverlapV, "ov", defaults.Tile.OverlapV, "Vertical overlap")
	f.IntVar(&c.flags.Workers, "workers", defaults.Workers, "Tiles filled concurrently")
	f.IntVar(&c.flags.Raw.Width, "raw_width", 0, "Raw input width; the input is decoded as an image if zero")
	f.IntVar(&c.flags.Raw.Height, "raw_height", 0, "Raw input height")
	f.StringVar(&c.flags.Raw.Format, "raw_format", defaults.Raw.Format, "Raw element format (gray8, gray16, rgba8, float32, rgbfloat32)")
	f.Int64Var(&c.flags.Raw.Offset, "raw_offset", 0, "Raw data offset in bytes")
}

// settings merges the configuration file with the flags given explicitly.
func (c *buildCmd) settings(f *flag.FlagSet) (config.Build, error) {
	s := config.DefaultBuild()
	if c.configPath != "" {
		var err error
		if s, err = config.LoadBuild(c.configPath); err != nil {
			return config.Build{}, err
		}
	}
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "tw":
			s.Tile.Width = c.flags.Tile.Width
		case "th":
			s.Tile.Height = c.flags.Tile.Height
		case "oh":
			s.Tile.OverlapH = c.flags.Tile.OverlapH
		case "ov":
			s.Tile.OverlapV = c.flags.Tile.OverlapV
		case "workers":
			s.Workers = c.flags.Workers
		case "raw_width":
			s.Raw.Width = c.flags.Raw.Width
		case "raw_height":
			s.Raw.Height = c.flags.Raw.Height
		case "raw_format":
			s.Raw.Format = c.flags.Raw.Format
		case "raw_offset":
			s.Raw.Offset = c.flags.Raw.Offset
		}
	})
	return s, nil
}

// openSource opens the input and returns its element format.
func openSource(inputPath string, raw config.Raw) (source.Source, source.Format, func() error, error) {
	if raw.Width == 0 {
		src, err := source.Load(inputPath)
		if err != nil {
			return nil, source.FormatUnknown, nil, err
		}
		return src, src.Format(), func() error { return nil }, nil
	}
	format, err := source.ParseFormat(raw.Format)
	if err != nil {
		return nil, source.FormatUnknown, nil, err
	}
	src, err := source.OpenRawFile(inputPath, raw.Width, raw.Height, format, raw.Offset)
	if err != nil {
		return nil, source.FormatUnknown, nil, err
	}
	return src, format, src.Close, nil
}

func (c *buildCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	logger := loggerArg(args)

	s, err := c.settings(f)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if s.Logging.File != "" {
		fileLogger, closer, err := s.Logging.NewLogger(os.Stderr)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		defer closer.Close()
		logger = fileLogger
	}

	src, format, closeSource, err := openSource(c.inputPath, s.Raw)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer closeSource()

	params := s.Tile.Params()
	dims := pyramid.Dimensions{Width: src.Width(), Height: src.Height(), ElementSize: src.ElementSize()}
	if err := params.Check(dims); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("building"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowElapsedTimeOnFinish())

	start := time.Now()
	p, err := pyramid.New(ctx, src, params,
		pyramid.WithPath(c.outputPath),
		pyramid.WithWorkers(s.Workers),
		pyramid.WithLogger(logger),
		pyramid.WithProgress(func(percent int) { bar.Set(percent) }))
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer p.Close()

	if err := config.WriteManifest(config.ManifestPath(c.outputPath), config.NewManifest(p, format)); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	logger.Info("cache built",
		"path", c.outputPath,
		"levels", p.Levels(),
		"tiles", p.Tiles(),
		"size", humanize.IBytes(uint64(p.ByteSize())),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return subcommands.ExitSuccess
}
