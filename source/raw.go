package source

import "fmt"

// Raw is an in-memory row-major Source.
type Raw struct {
	width  int
	height int
	format Format
	data   []byte
}

// NewRaw wraps data holding width x height elements of the given format.
func NewRaw(width, height int, format Format, data []byte) *Raw {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("source: invalid dimensions %dx%d", width, height))
	}
	if want := width * height * format.Size(); len(data) != want {
		panic(fmt.Sprintf("source: raw data has %d bytes, want %d", len(data), want))
	}
	return &Raw{width: width, height: height, format: format, data: data}
}

func (r *Raw) Width() int       { return r.width }
func (r *Raw) Height() int      { return r.height }
func (r *Raw) ElementSize() int { return r.format.Size() }
func (r *Raw) Format() Format   { return r.format }

func (r *Raw) Get(x, y, w, h int, dst []byte) error {
	if err := checkBlock(r, x, y, w, h, dst); err != nil {
		return err
	}
	es := r.format.Size()
	rowBytes := w * es
	for row := range h {
		off := ((y+row)*r.width + x) * es
		copy(dst[row*rowBytes:(row+1)*rowBytes], r.data[off:off+rowBytes])
	}
	return nil
}

func (r *Raw) Mean(a, b, c, d, dst []byte) {
	r.format.Mean(a, b, c, d, dst)
}

func checkBlock(s Source, x, y, w, h int, dst []byte) error {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > s.Width() || y+h > s.Height() {
		return fmt.Errorf("source: block (%d, %d, %d, %d) outside %dx%d", x, y, w, h, s.Width(), s.Height())
	}
	if len(dst) < w*h*s.ElementSize() {
		return fmt.Errorf("source: destination too short (%d < %d)", len(dst), w*h*s.ElementSize())
	}
	return nil
}
