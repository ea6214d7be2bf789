package pm

import (
	"bufio"
	"cmp"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/eak1mov/go-tilepyramid/tile"
)

// Writer implements tile.Writer for PMTiles files. Identical tile contents
// are stored once.
type Writer struct {
	logger *slog.Logger
	file   *os.File
	tiles  *bufio.Writer
	header Header

	tileOffset uint64
	lastCode   uint64
	entries    []entry
	contents   map[[md5.Size]byte]int // content digest -> index of its first entry
}

type writerConfig struct {
	logger      *slog.Logger
	metadata    map[string]any
	compression Compression
	tileType    TileType
}

type WriterOption func(*writerConfig)

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = logger }
}

// WithMetadata sets the JSON metadata object stored in the file.
func WithMetadata(metadata map[string]any) WriterOption {
	return func(c *writerConfig) { c.metadata = metadata }
}

// WithCompression sets the compression of directories and metadata,
// gzip by default. Tile contents are stored as given.
func WithCompression(compression Compression) WriterOption {
	return func(c *writerConfig) { c.compression = compression }
}

// WithTileType sets the content type recorded in the header, png by default.
func WithTileType(tileType TileType) WriterOption {
	return func(c *writerConfig) { c.tileType = tileType }
}

// NewWriter creates the file and writes the metadata. Tiles follow the
// reserved header and root directory space.
func NewWriter(filePath string, opts ...WriterOption) (_ *Writer, err error) {
	config := writerConfig{
		logger:      slog.New(slog.DiscardHandler),
		metadata:    map[string]any{},
		compression: CompressionGzip,
		tileType:    TileTypePng,
	}
	for _, opt := range opts {
		opt(&config)
	}

	metadata, err := json.Marshal(config.metadata)
	if err != nil {
		return nil, fmt.Errorf("pm: metadata: %w", err)
	}
	if metadata, err = compress(metadata, config.compression); err != nil {
		return nil, err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	offset := uint64(rootOffset + maxRootLength)
	if _, err = file.WriteAt(metadata, int64(offset)); err != nil {
		return nil, err
	}
	header := Header{
		MetadataOffset:      offset,
		MetadataLength:      uint64(len(metadata)),
		TileDataOffset:      offset + uint64(len(metadata)),
		Clustered:           true,
		InternalCompression: config.compression,
		TileCompression:     CompressionNone,
		TileType:            config.tileType,
		MinZoom:             255,
	}
	if _, err = file.Seek(int64(header.TileDataOffset), io.SeekStart); err != nil {
		return nil, err
	}

	return &Writer{
		logger:   config.logger,
		file:     file,
		tiles:    bufio.NewWriter(file),
		header:   header,
		contents: make(map[[md5.Size]byte]int),
	}, nil
}

// WriteTile stores a tile. Empty tiles are skipped.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if w.tiles == nil {
		panic("pm: write after finalize")
	}
	if !tileID.Valid() {
		return fmt.Errorf("pm: invalid tile %v", tileID)
	}
	if len(tileData) == 0 {
		return nil
	}

	code := tileCode(tileID)
	if len(w.entries) > 0 && code <= w.lastCode {
		w.header.Clustered = false
	}
	w.lastCode = code
	w.header.AddressedTilesCount++
	w.header.MinZoom = min(w.header.MinZoom, uint8(tileID.Z))
	w.header.MaxZoom = max(w.header.MaxZoom, uint8(tileID.Z))

	digest := md5.Sum(tileData)
	if i, ok := w.contents[digest]; ok {
		first := w.entries[i]
		w.entries = append(w.entries, entry{TileCode: code, Offset: first.Offset, Length: first.Length, RunLength: 1})
		return nil
	}

	if _, err := w.tiles.Write(tileData); err != nil {
		return err
	}
	w.contents[digest] = len(w.entries)
	w.entries = append(w.entries, entry{TileCode: code, Offset: w.tileOffset, Length: uint32(len(tileData)), RunLength: 1})
	w.tileOffset += uint64(len(tileData))
	return nil
}

// Finalize writes the directories and the header and closes the file.
func (w *Writer) Finalize() error {
	if w.tiles == nil {
		panic("pm: finalize called twice")
	}
	if err := w.tiles.Flush(); err != nil {
		return err
	}
	w.tiles = nil

	h := &w.header
	h.TileDataLength = w.tileOffset
	h.TileContentsCount = uint64(len(w.contents))
	if h.MinZoom > h.MaxZoom {
		h.MinZoom = 0
	}
	h.CenterZoom = h.MinZoom
	h.MinLonE7, h.MinLatE7 = -180_0000000, -85_0511287
	h.MaxLonE7, h.MaxLatE7 = 180_0000000, 85_0511287

	slices.SortFunc(w.entries, func(a, b entry) int { return cmp.Compare(a.TileCode, b.TileCode) })
	w.entries = compactEntries(w.entries)
	h.TileEntriesCount = uint64(len(w.entries))

	root, leaves, err := buildDirectories(w.entries, h.InternalCompression)
	if err != nil {
		return err
	}
	h.RootOffset, h.RootLength = rootOffset, uint64(len(root))
	h.LeafDirectoryOffset = h.TileDataOffset + h.TileDataLength
	h.LeafDirectoryLength = uint64(len(leaves))
	w.logger.Debug("pm: directories built", "entries", len(w.entries), "contents", len(w.contents), "root", len(root), "leaves", len(leaves))

	if _, err := w.file.WriteAt(leaves, int64(h.LeafDirectoryOffset)); err != nil {
		return err
	}
	if _, err := w.file.WriteAt(h.appendBinary(nil), 0); err != nil {
		return err
	}
	if _, err := w.file.WriteAt(root, rootOffset); err != nil {
		return err
	}

	err = w.file.Close()
	w.file = nil
	return err
}

// Close releases the file of a writer that was not finalized.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
