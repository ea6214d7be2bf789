// Package pm writes and reads tilesets in the PMTiles v3 single-file format.
package pm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
	CompressionBrotli
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionBrotli:
		return "brotli"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ParseCompression accepts the names returned by String.
func ParseCompression(name string) (Compression, error) {
	for c := CompressionNone; c <= CompressionZstd; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return CompressionUnknown, fmt.Errorf("pm: unknown compression %q", name)
}

type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypeMvt
	TileTypePng
	TileTypeJpeg
	TileTypeWebp
	TileTypeAvif
)

const (
	magic        = "PMTiles"
	version      = 3
	headerLength = 127

	// The header and the root directory fit in the first 16 KiB.
	rootOffset    = headerLength
	maxRootLength = 16<<10 - headerLength
)

var (
	ErrInvalidHeader  = errors.New("pm: invalid header")
	ErrInvalidVersion = errors.New("pm: unsupported version")
)

// Header is the fixed-size header at the start of every file.
// Offsets are absolute, coordinates are degrees times 1e7.
type Header struct {
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

func (h *Header) appendBinary(b []byte) []byte {
	le := binary.LittleEndian
	b = append(b, magic...)
	b = append(b, version)
	for _, v := range []uint64{
		h.RootOffset, h.RootLength,
		h.MetadataOffset, h.MetadataLength,
		h.LeafDirectoryOffset, h.LeafDirectoryLength,
		h.TileDataOffset, h.TileDataLength,
		h.AddressedTilesCount, h.TileEntriesCount, h.TileContentsCount,
	} {
		b = le.AppendUint64(b, v)
	}
	clustered := byte(0)
	if h.Clustered {
		clustered = 1
	}
	b = append(b, clustered, byte(h.InternalCompression), byte(h.TileCompression), byte(h.TileType), h.MinZoom, h.MaxZoom)
	for _, v := range []int32{h.MinLonE7, h.MinLatE7, h.MaxLonE7, h.MaxLatE7} {
		b = le.AppendUint32(b, uint32(v))
	}
	b = append(b, h.CenterZoom)
	b = le.AppendUint32(b, uint32(h.CenterLonE7))
	b = le.AppendUint32(b, uint32(h.CenterLatE7))
	return b
}

func parseHeader(b []byte) (Header, error) {
	if len(b) < headerLength {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(b))
	}
	if string(b[:len(magic)]) != magic {
		return Header{}, ErrInvalidHeader
	}
	if b[len(magic)] != version {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, b[len(magic)])
	}

	le := binary.LittleEndian
	var h Header
	pos := len(magic) + 1
	for _, v := range []*uint64{
		&h.RootOffset, &h.RootLength,
		&h.MetadataOffset, &h.MetadataLength,
		&h.LeafDirectoryOffset, &h.LeafDirectoryLength,
		&h.TileDataOffset, &h.TileDataLength,
		&h.AddressedTilesCount, &h.TileEntriesCount, &h.TileContentsCount,
	} {
		*v = le.Uint64(b[pos:])
		pos += 8
	}
	h.Clustered = b[pos] == 1
	h.InternalCompression = Compression(b[pos+1])
	h.TileCompression = Compression(b[pos+2])
	h.TileType = TileType(b[pos+3])
	h.MinZoom, h.MaxZoom = b[pos+4], b[pos+5]
	pos += 6
	for _, v := range []*int32{&h.MinLonE7, &h.MinLatE7, &h.MaxLonE7, &h.MaxLatE7} {
		*v = int32(le.Uint32(b[pos:]))
		pos += 4
	}
	h.CenterZoom = b[pos]
	h.CenterLonE7 = int32(le.Uint32(b[pos+1:]))
	h.CenterLatE7 = int32(le.Uint32(b[pos+5:]))
	return h, nil
}
