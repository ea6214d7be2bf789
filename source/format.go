package source

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/eak1mov/go-tilepyramid/tile"
)

// Format describes how an element is encoded.
type Format uint8

const (
	FormatUnknown Format = iota
	Gray8
	Gray16     // little endian
	RGBA8      // non-premultiplied
	Float32    // little endian
	RGBFloat32 // little endian, three channels
)

var formatNames = map[Format]string{
	Gray8:      "gray8",
	Gray16:     "gray16",
	RGBA8:      "rgba8",
	Float32:    "float32",
	RGBFloat32: "rgbfloat32",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("source: unknown format %q", name)
}

// Size returns the element size in bytes.
func (f Format) Size() int {
	switch f {
	case Gray8:
		return 1
	case Gray16:
		return 2
	case RGBA8, Float32:
		return 4
	case RGBFloat32:
		return 12
	}
	panic(fmt.Sprintf("source: size of %v", f))
}

// Mean writes the per-channel average of four elements into dst.
// Integer formats are rounded to nearest.
func (f Format) Mean(a, b, c, d, dst []byte) {
	switch f {
	case Gray8, RGBA8:
		for i := range f.Size() {
			dst[i] = byte((uint(a[i]) + uint(b[i]) + uint(c[i]) + uint(d[i]) + 2) / 4)
		}
	case Gray16:
		le := binary.LittleEndian
		sum := uint(le.Uint16(a)) + uint(le.Uint16(b)) + uint(le.Uint16(c)) + uint(le.Uint16(d))
		le.PutUint16(dst, uint16((sum+2)/4))
	case Float32, RGBFloat32:
		for i := 0; i < f.Size(); i += 4 {
			sum := float32At(a[i:]) + float32At(b[i:]) + float32At(c[i:]) + float32At(d[i:])
			putFloat32(dst[i:], sum/4)
		}
	default:
		panic(fmt.Sprintf("source: mean of %v", f))
	}
}

// Values decodes the channels of an element.
func (f Format) Values(e []byte) []float64 {
	switch f {
	case Gray8, RGBA8:
		values := make([]float64, f.Size())
		for i := range values {
			values[i] = float64(e[i])
		}
		return values
	case Gray16:
		return []float64{float64(binary.LittleEndian.Uint16(e))}
	case Float32, RGBFloat32:
		values := make([]float64, f.Size()/4)
		for i := range values {
			values[i] = float64(float32At(e[4*i:]))
		}
		return values
	}
	panic(fmt.Sprintf("source: values of %v", f))
}

// Image renders v as an image. Float channels are clamped to [0, 1].
func (f Format) Image(v tile.View) image.Image {
	if v.ElementSize != f.Size() {
		panic(fmt.Sprintf("source: %v view has element size %d", f, v.ElementSize))
	}
	rect := image.Rect(0, 0, v.Width, v.Height)
	switch f {
	case Gray8:
		img := image.NewGray(rect)
		for y := range v.Height {
			copy(img.Pix[y*img.Stride:], v.Row(y))
		}
		return img
	case Gray16:
		img := image.NewGray16(rect)
		for y := range v.Height {
			for x := range v.Width {
				img.SetGray16(x, y, color.Gray16{Y: binary.LittleEndian.Uint16(v.At(x, y))})
			}
		}
		return img
	case RGBA8:
		img := image.NewNRGBA(rect)
		for y := range v.Height {
			copy(img.Pix[y*img.Stride:], v.Row(y))
		}
		return img
	case Float32:
		img := image.NewGray(rect)
		for y := range v.Height {
			for x := range v.Width {
				img.SetGray(x, y, color.Gray{Y: unitToByte(float32At(v.At(x, y)))})
			}
		}
		return img
	case RGBFloat32:
		img := image.NewNRGBA(rect)
		for y := range v.Height {
			for x := range v.Width {
				e := v.At(x, y)
				img.SetNRGBA(x, y, color.NRGBA{
					R: unitToByte(float32At(e[0:])),
					G: unitToByte(float32At(e[4:])),
					B: unitToByte(float32At(e[8:])),
					A: 0xff,
				})
			}
		}
		return img
	}
	panic(fmt.Sprintf("source: image of %v", f))
}

func float32At(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func unitToByte(v float32) uint8 {
	if !(v > 0) { // also NaN
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*0xff + 0.5)
}
