package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/subcommands"
)

type getCmd struct {
	inputPath string
	x, y      int
	level     int
}

func (c *getCmd) Name() string     { return "get" }
func (c *getCmd) Synopsis() string { return "print one element as seen at a level" }
func (c *getCmd) Usage() string {
	return "pyramidtool get -i <path> -x <n> -y <n> [-level <n>]\n"
}
func (c *getCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Cache file path")
	f.IntVar(&c.x, "x", 0, "Column in level 0 coordinates")
	f.IntVar(&c.y, "y", 0, "Row in level 0 coordinates")
	f.IntVar(&c.level, "level", 0, "Pyramid level")
}

func (c *getCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
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

	dims := p.Dimensions()
	if c.x < 0 || c.x >= dims.Width || c.y < 0 || c.y >= dims.Height || c.level < 0 || c.level >= p.Levels() {
		log.Printf("(%d, %d) at level %d outside %dx%d with %d levels", c.x, c.y, c.level, dims.Width, dims.Height, p.Levels())
		return subcommands.ExitUsageError
	}

	e := make([]byte, dims.ElementSize)
	if err := p.Get(c.x, c.y, c.level, e); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	fmt.Println(formatElement(p.format, e))
	return subcommands.ExitSuccess
}
