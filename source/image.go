package source

import (
	"encoding/binary"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FromImage copies img into a Raw source. Gray and Gray16 images keep their
// depth, everything else is converted to RGBA8.
func FromImage(img image.Image) *Raw {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch m := img.(type) {
	case *image.Gray:
		data := make([]byte, w*h)
		for y := range h {
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			copy(data[y*w:(y+1)*w], m.Pix[off:off+w])
		}
		return NewRaw(w, h, Gray8, data)
	case *image.Gray16:
		data := make([]byte, w*h*2)
		for y := range h {
			for x := range w {
				v := m.Gray16At(b.Min.X+x, b.Min.Y+y).Y
				binary.LittleEndian.PutUint16(data[(y*w+x)*2:], v)
			}
		}
		return NewRaw(w, h, Gray16, data)
	}
	data := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			copy(data[(y*w+x)*4:], []byte{c.R, c.G, c.B, c.A})
		}
	}
	return NewRaw(w, h, RGBA8, data)
}

// Load decodes an image file (png, jpeg, gif, tiff, bmp or webp).
func Load(filePath string) (*Raw, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}
