package pm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
	"sort"
)

// entry addresses RunLength consecutive tile codes sharing one content, or a
// leaf directory when RunLength is zero.
type entry struct {
	TileCode  uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// appendDirectory encodes entries column by column as varints: tile code
// deltas, run lengths, lengths, then offsets (0 meaning "right after the
// previous entry", otherwise offset+1).
func appendDirectory(b []byte, entries []entry) []byte {
	b = binary.AppendUvarint(b, uint64(len(entries)))
	last := uint64(0)
	for _, e := range entries {
		b = binary.AppendUvarint(b, e.TileCode-last)
		last = e.TileCode
	}
	for _, e := range entries {
		b = binary.AppendUvarint(b, uint64(e.RunLength))
	}
	for _, e := range entries {
		b = binary.AppendUvarint(b, uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			b = binary.AppendUvarint(b, 0)
		} else {
			b = binary.AppendUvarint(b, e.Offset+1)
		}
	}
	return b
}

func parseDirectory(data []byte) ([]entry, error) {
	r := bytes.NewReader(data)
	var err error
	next := func() uint64 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = binary.ReadUvarint(r)
		return v
	}

	n := next()
	if err == nil && n > uint64(len(data)) {
		return nil, fmt.Errorf("pm: directory of %d entries in %d bytes", n, len(data))
	}
	entries := make([]entry, n)
	last := uint64(0)
	for i := range entries {
		last += next()
		entries[i].TileCode = last
	}
	for i := range entries {
		entries[i].RunLength = uint32(next())
	}
	for i := range entries {
		entries[i].Length = uint32(next())
	}
	for i := range entries {
		v := next()
		if v == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}
	if err != nil {
		return nil, fmt.Errorf("pm: directory: %w", err)
	}
	return entries, nil
}

// compactEntries merges runs of consecutive tile codes with the same content.
// The entries must be sorted by tile code.
func compactEntries(entries []entry) []entry {
	if len(entries) == 0 {
		return entries
	}
	w := 0
	for _, e := range entries[1:] {
		prev := &entries[w]
		if e.Offset == prev.Offset && e.Length == prev.Length && e.TileCode == prev.TileCode+uint64(prev.RunLength) {
			prev.RunLength++
			continue
		}
		w++
		entries[w] = e
	}
	return entries[:w+1]
}

// findEntry returns the entry covering code, or the leaf directory entry that
// may contain it.
func findEntry(entries []entry, code uint64) (entry, bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].TileCode > code })
	if i == 0 {
		return entry{}, false
	}
	e := entries[i-1]
	if e.RunLength == 0 || code < e.TileCode+uint64(e.RunLength) {
		return e, true
	}
	return entry{}, false
}

// buildDirectories encodes the root directory, moving entries into leaf
// directories of growing size until the root fits its reserved space.
func buildDirectories(entries []entry, c Compression) (root, leaves []byte, err error) {
	root, err = compress(appendDirectory(nil, entries), c)
	if err != nil || len(root) <= maxRootLength {
		return root, nil, err
	}
	for leafSize := 4096; ; leafSize *= 2 {
		var rootEntries []entry
		leaves = leaves[:0]
		for chunk := range slices.Chunk(entries, leafSize) {
			leaf, err := compress(appendDirectory(nil, chunk), c)
			if err != nil {
				return nil, nil, err
			}
			rootEntries = append(rootEntries, entry{
				TileCode: chunk[0].TileCode,
				Offset:   uint64(len(leaves)),
				Length:   uint32(len(leaf)),
			})
			leaves = append(leaves, leaf...)
		}
		root, err = compress(appendDirectory(nil, rootEntries), c)
		if err != nil || len(root) <= maxRootLength {
			return root, leaves, err
		}
	}
}
