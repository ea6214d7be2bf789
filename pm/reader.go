package pm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/eak1mov/go-tilepyramid/tile"
)

// Reader reads tiles from a PMTiles file.
type Reader struct {
	file   io.ReaderAt
	closer io.Closer
	header Header
}

func Open(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReader reads the header from r. The returned Reader does not close r.
func NewReader(r io.ReaderAt) (*Reader, error) {
	buf := make([]byte, headerLength)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	header, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	return &Reader{file: r, header: header}, nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reader) Header() Header {
	return r.header
}

func (r *Reader) read(offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := r.file.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) Metadata() (map[string]any, error) {
	data, err := r.read(r.header.MetadataOffset, r.header.MetadataLength)
	if err != nil {
		return nil, err
	}
	if data, err = decompress(data, r.header.InternalCompression); err != nil {
		return nil, err
	}
	var metadata map[string]any
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("pm: metadata: %w", err)
	}
	return metadata, nil
}

func (r *Reader) readDirectory(offset, length uint64) ([]entry, error) {
	data, err := r.read(offset, length)
	if err != nil {
		return nil, err
	}
	if data, err = decompress(data, r.header.InternalCompression); err != nil {
		return nil, err
	}
	return parseDirectory(data)
}

// ReadTile returns nil for tiles not in the file.
func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	if !tileID.Valid() {
		return nil, fmt.Errorf("pm: invalid tile %v", tileID)
	}
	code := tileCode(tileID)
	offset, length := r.header.RootOffset, r.header.RootLength
	for {
		entries, err := r.readDirectory(offset, length)
		if err != nil {
			return nil, err
		}
		e, ok := findEntry(entries, code)
		if !ok {
			return nil, nil
		}
		if e.RunLength > 0 {
			return r.read(r.header.TileDataOffset+e.Offset, uint64(e.Length))
		}
		offset, length = r.header.LeafDirectoryOffset+e.Offset, uint64(e.Length)
	}
}

// VisitTiles calls fn for every addressed tile in tile code order.
func (r *Reader) VisitTiles(fn func(tile.ID, []byte) error) error {
	var visit func(offset, length uint64) error
	visit = func(offset, length uint64) error {
		entries, err := r.readDirectory(offset, length)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.RunLength == 0 {
				if err := visit(r.header.LeafDirectoryOffset+e.Offset, uint64(e.Length)); err != nil {
					return err
				}
				continue
			}
			data, err := r.read(r.header.TileDataOffset+e.Offset, uint64(e.Length))
			if err != nil {
				return err
			}
			for i := range uint64(e.RunLength) {
				if err := fn(tileFromCode(e.TileCode+i), data); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return visit(r.header.RootOffset, r.header.RootLength)
}
