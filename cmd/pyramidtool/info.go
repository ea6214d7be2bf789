package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
)

type infoCmd struct {
	inputPath string
}

func (c *infoCmd) Name() string     { return "info" }
func (c *infoCmd) Synopsis() string { return "print the layout of a pyramid cache" }
func (c *infoCmd) Usage() string {
	return "pyramidtool info -i <path>\n"
}
func (c *infoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Cache file path")
}

func (c *infoCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	p, err := openCache(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer p.Close()

	dims, params := p.Dimensions(), p.Params()
	netW, netH := p.NetSize()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "data:\t%dx%d %v\n", dims.Width, dims.Height, p.format)
	fmt.Fprintf(w, "tiles:\t%dx%d, overlap %dx%d, net %dx%d\n", params.TileWidth, params.TileHeight, params.OverlapH, params.OverlapV, netW, netH)
	fmt.Fprintf(w, "records:\t%d of %s at offset %d\n", p.Tiles(), humanize.IBytes(uint64(p.TileSize())), p.Offset())
	fmt.Fprintf(w, "size:\t%s\n", humanize.IBytes(uint64(p.ByteSize())))
	for level := range p.Levels() {
		size := p.LevelSize(level)
		fmt.Fprintf(w, "level %d:\t%dx%d tiles, first index %d\n", level, size.Width, size.Height, p.TileIndex(0, 0, level))
	}
	if err := w.Flush(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
