package tile

import "fmt"

// View is a typed, read-only window over a row-major grid of fixed-size elements.
// All element arithmetic goes through View so that offsets are computed in one place.
type View struct {
	Data        []byte
	Width       int
	Height      int
	ElementSize int
}

// NewView wraps data as a width x height grid. It panics if data is too short.
func NewView(data []byte, width, height, elementSize int) View {
	if width <= 0 || height <= 0 || elementSize <= 0 {
		panic(fmt.Sprintf("tile: invalid view shape %dx%dx%d", width, height, elementSize))
	}
	if len(data) < width*height*elementSize {
		panic(fmt.Sprintf("tile: view data too short (%d < %d)", len(data), width*height*elementSize))
	}
	return View{Data: data, Width: width, Height: height, ElementSize: elementSize}
}

// Stride returns the number of bytes in one row.
func (v View) Stride() int {
	return v.Width * v.ElementSize
}

// Offset returns the byte offset of element (x, y).
func (v View) Offset(x, y int) int {
	if x < 0 || x >= v.Width || y < 0 || y >= v.Height {
		panic(fmt.Sprintf("tile: element (%d, %d) out of %dx%d view", x, y, v.Width, v.Height))
	}
	return y*v.Stride() + x*v.ElementSize
}

// At returns the bytes of element (x, y). The slice aliases the view.
func (v View) At(x, y int) []byte {
	off := v.Offset(x, y)
	return v.Data[off : off+v.ElementSize : off+v.ElementSize]
}

// Row returns the bytes of row y.
func (v View) Row(y int) []byte {
	off := v.Offset(0, y)
	return v.Data[off : off+v.Stride() : off+v.Stride()]
}

// Span returns n consecutive elements of row y starting at column x.
func (v View) Span(x, y, n int) []byte {
	if n < 0 || x+n > v.Width {
		panic(fmt.Sprintf("tile: span [%d, %d) out of view width %d", x, x+n, v.Width))
	}
	off := v.Offset(x, y)
	return v.Data[off : off+n*v.ElementSize : off+n*v.ElementSize]
}
