// Package xyz writes tiles as individual files in a directory tree, with
// paths built from a pattern such as "tiles/{z}/{x}/{y}.png".
package xyz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilepyramid/tile"
)

var ErrInvalidPattern = errors.New("xyz: invalid file pattern")

var placeholders = []string{"{x}", "{y}", "{z}"}

func validatePattern(pattern string) error {
	for _, p := range placeholders {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found in %q", ErrInvalidPattern, p, pattern)
		}
	}
	return nil
}

func formatPattern(pattern string, id tile.ID) string {
	return strings.NewReplacer(
		"{x}", strconv.FormatUint(uint64(id.X), 10),
		"{y}", strconv.FormatUint(uint64(id.Y), 10),
		"{z}", strconv.FormatUint(uint64(id.Z), 10),
	).Replace(pattern)
}
