package source_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilepyramid/source"
	"github.com/eak1mov/go-tilepyramid/tile"
	"github.com/google/go-cmp/cmp"
)

func TestRawGet(t *testing.T) {
	data := make([]byte, 4*3)
	for i := range data {
		data[i] = byte(i)
	}
	src := source.NewRaw(4, 3, source.Gray8, data)

	dst := make([]byte, 4)
	if err := src.Get(1, 1, 2, 2, dst); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if diff := cmp.Diff([]byte{5, 6, 9, 10}, dst); diff != "" {
		t.Errorf("Get(1, 1, 2, 2) mismatch (-want+got):\n%v", diff)
	}

	if err := src.Get(3, 0, 2, 1, dst); err == nil {
		t.Errorf("Get outside bounds succeeded")
	}
}

func TestRawFileGet(t *testing.T) {
	const width, height = 5, 4
	data := make([]byte, 3+width*height*2)
	for i := range width * height {
		binary.LittleEndian.PutUint16(data[3+i*2:], uint16(i*100))
	}
	filePath := filepath.Join(t.TempDir(), "data.raw")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		t.Fatal(err)
	}

	src, err := source.OpenRawFile(filePath, width, height, source.Gray16, 3)
	if err != nil {
		t.Fatalf("OpenRawFile failed: %v", err)
	}
	defer src.Close()

	mem := source.NewRaw(width, height, source.Gray16, data[3:])
	for _, block := range [][4]int{{0, 0, 5, 4}, {1, 2, 3, 2}, {4, 3, 1, 1}, {0, 1, 5, 2}} {
		x, y, w, h := block[0], block[1], block[2], block[3]
		got := make([]byte, w*h*2)
		want := make([]byte, w*h*2)
		if err := src.Get(x, y, w, h, got); err != nil {
			t.Fatalf("RawFile.Get(%v) failed: %v", block, err)
		}
		if err := mem.Get(x, y, w, h, want); err != nil {
			t.Fatalf("Raw.Get(%v) failed: %v", block, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Get(%v) mismatch (-want+got):\n%v", block, diff)
		}
	}

	if _, err := source.OpenRawFile(filePath, width+1, height, source.Gray16, 3); err == nil {
		t.Errorf("OpenRawFile with short file succeeded")
	}
}

func float32Bytes(values ...float32) []byte {
	b := make([]byte, 0, 4*len(values))
	for _, v := range values {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func TestMean(t *testing.T) {
	u16 := func(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
	for _, tc := range []struct {
		format     source.Format
		a, b, c, d []byte
		want       []byte
	}{
		{source.Gray8, []byte{0}, []byte{1}, []byte{1}, []byte{1}, []byte{1}},
		{source.Gray8, []byte{0}, []byte{0}, []byte{1}, []byte{0}, []byte{0}},
		{source.Gray8, []byte{255}, []byte{255}, []byte{255}, []byte{255}, []byte{255}},
		{source.RGBA8, []byte{0, 10, 20, 255}, []byte{4, 10, 20, 255}, []byte{8, 10, 20, 255}, []byte{12, 10, 24, 255}, []byte{6, 10, 21, 255}},
		{source.Gray16, u16(65535), u16(65535), u16(65535), u16(65534), u16(65535)},
		{source.Float32, float32Bytes(1), float32Bytes(2), float32Bytes(3), float32Bytes(4), float32Bytes(2.5)},
		{source.RGBFloat32, float32Bytes(0, 1, 2), float32Bytes(0, 1, 2), float32Bytes(4, 1, 2), float32Bytes(4, 1, 6), float32Bytes(2, 1, 3)},
	} {
		t.Run(tc.format.String(), func(t *testing.T) {
			dst := make([]byte, tc.format.Size())
			tc.format.Mean(tc.a, tc.b, tc.c, tc.d, dst)
			if diff := cmp.Diff(tc.want, dst); diff != "" {
				t.Errorf("Mean mismatch (-want+got):\n%v", diff)
			}
		})
	}
}

func TestValues(t *testing.T) {
	for _, tc := range []struct {
		format source.Format
		e      []byte
		want   []float64
	}{
		{source.Gray8, []byte{7}, []float64{7}},
		{source.RGBA8, []byte{1, 2, 3, 255}, []float64{1, 2, 3, 255}},
		{source.Gray16, []byte{0x34, 0x12}, []float64{0x1234}},
		{source.Float32, float32Bytes(0.25), []float64{0.25}},
		{source.RGBFloat32, float32Bytes(1, -2, 0.5), []float64{1, -2, 0.5}},
	} {
		if diff := cmp.Diff(tc.want, tc.format.Values(tc.e)); diff != "" {
			t.Errorf("%v Values mismatch (-want+got):\n%v", tc.format, diff)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []source.Format{source.Gray8, source.Gray16, source.RGBA8, source.Float32, source.RGBFloat32} {
		got, err := source.ParseFormat(f.String())
		if err != nil {
			t.Fatalf("ParseFormat(%q) failed: %v", f.String(), err)
		}
		if got != f {
			t.Errorf("ParseFormat(%q) = %v, want = %v", f.String(), got, f)
		}
	}
	if _, err := source.ParseFormat("cmyk"); err == nil {
		t.Errorf("ParseFormat(cmyk) succeeded")
	}
}

func TestFormatImage(t *testing.T) {
	v := tile.NewView(float32Bytes(-1, 0.5, 2, float32(math.NaN())), 2, 2, 4)
	img := source.Float32.Image(v).(*image.Gray)
	if diff := cmp.Diff([]byte{0, 128, 255, 0}, img.Pix); diff != "" {
		t.Errorf("Float32 image mismatch (-want+got):\n%v", diff)
	}

	rgba := tile.NewView([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 2, 1, 4)
	nrgba := source.RGBA8.Image(rgba).(*image.NRGBA)
	if got, want := nrgba.NRGBAAt(1, 0), (color.NRGBA{5, 6, 7, 8}); got != want {
		t.Errorf("RGBA8 image At(1, 0) = %v, want = %v", got, want)
	}
}

func TestLoad(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 10)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	filePath := filepath.Join(t.TempDir(), "gray.png")
	if err := os.WriteFile(filePath, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := source.Load(filePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got, want := src.Format(), source.Gray8; got != want {
		t.Errorf("Format() = %v, want = %v", got, want)
	}
	dst := make([]byte, 6)
	if err := src.Get(0, 0, 3, 2, dst); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if diff := cmp.Diff(img.Pix, dst); diff != "" {
		t.Errorf("loaded pixels mismatch (-want+got):\n%v", diff)
	}
}

func TestFromImageRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 3, 4, 4))
	img.SetNRGBA(2, 3, color.NRGBA{1, 2, 3, 255})
	img.SetNRGBA(3, 3, color.NRGBA{4, 5, 6, 255})

	src := source.FromImage(img)
	if got, want := [2]int{src.Width(), src.Height()}, [2]int{2, 1}; got != want {
		t.Errorf("dimensions = %v, want = %v", got, want)
	}
	dst := make([]byte, 8)
	if err := src.Get(0, 0, 2, 1, dst); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 255, 4, 5, 6, 255}, dst); diff != "" {
		t.Errorf("pixels mismatch (-want+got):\n%v", diff)
	}
}
