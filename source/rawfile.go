package source

import (
	"fmt"
	"os"
)

// RawFile is a Source reading row-major elements from a file on demand,
// so the data never has to fit in memory.
type RawFile struct {
	file   *os.File
	width  int
	height int
	format Format
	offset int64
}

// OpenRawFile opens a file holding width x height elements of the given format,
// starting at byte offset.
func OpenRawFile(filePath string, width, height int, format Format, offset int64) (*RawFile, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("source: invalid dimensions %dx%d", width, height)
	}
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if need := offset + int64(width)*int64(height)*int64(format.Size()); info.Size() < need {
		file.Close()
		return nil, fmt.Errorf("source: %s has %d bytes, want at least %d", filePath, info.Size(), need)
	}
	return &RawFile{file: file, width: width, height: height, format: format, offset: offset}, nil
}

func (r *RawFile) Close() error {
	return r.file.Close()
}

func (r *RawFile) Width() int       { return r.width }
func (r *RawFile) Height() int      { return r.height }
func (r *RawFile) ElementSize() int { return r.format.Size() }
func (r *RawFile) Format() Format   { return r.format }

func (r *RawFile) Get(x, y, w, h int, dst []byte) error {
	if err := checkBlock(r, x, y, w, h, dst); err != nil {
		return err
	}
	es := int64(r.format.Size())
	rowBytes := int64(w) * es
	if w == r.width {
		// whole rows are contiguous
		off := r.offset + int64(y)*int64(r.width)*es
		_, err := r.file.ReadAt(dst[:int64(h)*rowBytes], off)
		return err
	}
	for row := range int64(h) {
		off := r.offset + ((int64(y)+row)*int64(r.width)+int64(x))*es
		if _, err := r.file.ReadAt(dst[row*rowBytes:(row+1)*rowBytes], off); err != nil {
			return err
		}
	}
	return nil
}

func (r *RawFile) Mean(a, b, c, d, dst []byte) {
	r.format.Mean(a, b, c, d, dst)
}
