package pm

import (
	"testing"

	"github.com/eak1mov/go-tilepyramid/tile"
	"github.com/google/go-cmp/cmp"
)

func TestTileCode(t *testing.T) {
	for _, tc := range []struct {
		id   tile.ID
		code uint64
	}{
		{tile.ID{X: 0, Y: 0, Z: 0}, 0},
		{tile.ID{X: 0, Y: 0, Z: 1}, 1},
		{tile.ID{X: 0, Y: 1, Z: 1}, 2},
		{tile.ID{X: 1, Y: 1, Z: 1}, 3},
		{tile.ID{X: 1, Y: 0, Z: 1}, 4},
		{tile.ID{X: 0, Y: 0, Z: 2}, 5},
		{tile.ID{X: 0, Y: 0, Z: 12}, 5592405},
	} {
		if got := tileCode(tc.id); got != tc.code {
			t.Errorf("tileCode(%v) = %v, want = %v", tc.id, got, tc.code)
		}
	}

	for z := range uint32(8) {
		for x := range uint32(1) << z {
			for y := range uint32(1) << z {
				id := tile.ID{X: x, Y: y, Z: z}
				if diff := cmp.Diff(id, tileFromCode(tileCode(id))); diff != "" {
					t.Fatalf("tileFromCode(tileCode(%v)) mismatch (-want+got):\n%v", id, diff)
				}
			}
		}
	}
	for z := range uint32(31) {
		id := tile.ID{X: 1<<z - 1, Y: 1<<z - 1, Z: z}
		if diff := cmp.Diff(id, tileFromCode(tileCode(id))); diff != "" {
			t.Errorf("tileFromCode(tileCode(%v)) mismatch (-want+got):\n%v", id, diff)
		}
	}
}

func TestHeader(t *testing.T) {
	want := Header{
		RootOffset:          127,
		RootLength:          300,
		MetadataOffset:      16384,
		MetadataLength:      20,
		LeafDirectoryOffset: 1 << 40,
		LeafDirectoryLength: 5,
		TileDataOffset:      16404,
		TileDataLength:      1<<40 - 16404,
		AddressedTilesCount: 100,
		TileEntriesCount:    90,
		TileContentsCount:   80,
		Clustered:           true,
		InternalCompression: CompressionZstd,
		TileCompression:     CompressionNone,
		TileType:            TileTypePng,
		MinZoom:             0,
		MaxZoom:             14,
		MinLonE7:            -1800000000,
		MinLatE7:            -850511287,
		MaxLonE7:            1800000000,
		MaxLatE7:            850511287,
		CenterZoom:          3,
		CenterLonE7:         -1,
		CenterLatE7:         1,
	}
	data := want.appendBinary(nil)
	if got := len(data); got != headerLength {
		t.Fatalf("header length = %v, want = %v", got, headerLength)
	}
	got, err := parseHeader(data)
	if err != nil {
		t.Fatalf("parseHeader failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("header mismatch (-want+got):\n%v", diff)
	}

	data[7] = 2
	if _, err := parseHeader(data); err == nil {
		t.Errorf("parseHeader accepted version 2")
	}
	data[0] = 'X'
	if _, err := parseHeader(data); err == nil {
		t.Errorf("parseHeader accepted bad magic")
	}
}

func TestDirectory(t *testing.T) {
	entries := []entry{
		{TileCode: 0, Offset: 0, Length: 10, RunLength: 1},
		{TileCode: 1, Offset: 10, Length: 5, RunLength: 3},
		{TileCode: 7, Offset: 0, Length: 10, RunLength: 1},
		{TileCode: 1000, Offset: 15, Length: 1, RunLength: 0},
	}
	got, err := parseDirectory(appendDirectory(nil, entries))
	if err != nil {
		t.Fatalf("parseDirectory failed: %v", err)
	}
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("directory mismatch (-want+got):\n%v", diff)
	}

	if _, err := parseDirectory([]byte{3, 1}); err == nil {
		t.Errorf("parseDirectory accepted truncated data")
	}

	for _, tc := range []struct {
		code  uint64
		want  entry
		found bool
	}{
		{0, entries[0], true},
		{3, entries[1], true},
		{4, entry{}, false},
		{7, entries[2], true},
		{5000, entries[3], true},
	} {
		got, found := findEntry(entries, tc.code)
		if found != tc.found || got != tc.want {
			t.Errorf("findEntry(%d) = %v, %v, want = %v, %v", tc.code, got, found, tc.want, tc.found)
		}
	}
}

func TestCompactEntries(t *testing.T) {
	got := compactEntries([]entry{
		{TileCode: 1, Offset: 0, Length: 4, RunLength: 1},
		{TileCode: 2, Offset: 0, Length: 4, RunLength: 1},
		{TileCode: 3, Offset: 0, Length: 4, RunLength: 1},
		{TileCode: 4, Offset: 4, Length: 4, RunLength: 1},
		{TileCode: 6, Offset: 4, Length: 4, RunLength: 1},
	})
	want := []entry{
		{TileCode: 1, Offset: 0, Length: 4, RunLength: 3},
		{TileCode: 4, Offset: 4, Length: 4, RunLength: 1},
		{TileCode: 6, Offset: 4, Length: 4, RunLength: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compactEntries mismatch (-want+got):\n%v", diff)
	}
}

func TestCompression(t *testing.T) {
	data := []byte("pyramid pyramid pyramid pyramid")
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		compressed, err := compress(data, c)
		if err != nil {
			t.Fatalf("compress(%v) failed: %v", c, err)
		}
		got, err := decompress(compressed, c)
		if err != nil {
			t.Fatalf("decompress(%v) failed: %v", c, err)
		}
		if diff := cmp.Diff(data, got); diff != "" {
			t.Errorf("%v round trip mismatch (-want+got):\n%v", c, diff)
		}
	}
	if _, err := compress(data, CompressionBrotli); err == nil {
		t.Errorf("compress(brotli) succeeded")
	}
}

func TestBuildDirectories(t *testing.T) {
	entries := make([]entry, 20000)
	for i := range entries {
		entries[i] = entry{TileCode: uint64(3 * i), Offset: uint64(100 * i), Length: 100, RunLength: 1}
	}

	root, leaves, err := buildDirectories(entries, CompressionNone)
	if err != nil {
		t.Fatalf("buildDirectories failed: %v", err)
	}
	if len(root) > maxRootLength {
		t.Errorf("root directory of %d bytes exceeds %d", len(root), maxRootLength)
	}
	if len(leaves) == 0 {
		t.Fatalf("no leaf directories for %d entries", len(entries))
	}

	rootEntries, err := parseDirectory(root)
	if err != nil {
		t.Fatalf("parseDirectory(root) failed: %v", err)
	}
	var got []entry
	for _, e := range rootEntries {
		if e.RunLength != 0 {
			t.Fatalf("root entry %v is not a leaf", e)
		}
		leaf, err := parseDirectory(leaves[e.Offset : e.Offset+uint64(e.Length)])
		if err != nil {
			t.Fatalf("parseDirectory(leaf) failed: %v", err)
		}
		got = append(got, leaf...)
	}
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("leaf entries mismatch (-want+got):\n%v", diff)
	}
}
