package qrdecode_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/local/qrsplit/internal/pdftest"
	"github.com/local/qrsplit/internal/qrdecode"
)

func TestDecodeTopRightQuadrant(t *testing.T) {
	d := qrdecode.New()
	tests := []struct {
		name string
		page image.Image
		want qrdecode.Payload
	}{
		{"separator", pdftest.QRPage("Separador", 800, 1000, pdftest.TopRight), qrdecode.Found("Separador")},
		{"unavailable", pdftest.QRPage("No Disponible", 800, 1000, pdftest.TopRight), qrdecode.Found("No Disponible")},
		{"surrounding whitespace trimmed", pdftest.QRPage("  Separador \n", 800, 800, pdftest.TopRight), qrdecode.Found("Separador")},
		{"utf-8 bytes without ECI", pdftest.QRPage("A\u00c3\u00b1o", 800, 800, pdftest.TopRight), qrdecode.Found("A\u00f1o")},
		{"blank page", pdftest.QRPage("", 800, 800, pdftest.TopRight), qrdecode.Payload{}},
		{"symbol outside the quadrant", pdftest.QRPage("Separador", 800, 800, pdftest.TopLeft), qrdecode.Payload{}},
		{"symbol in bottom right", pdftest.QRPage("Separador", 800, 800, pdftest.BottomRight), qrdecode.Payload{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Decode(tt.page); got != tt.want {
				t.Fatalf("Decode = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeDegenerateImages(t *testing.T) {
	d := qrdecode.New()
	for _, img := range []image.Image{
		image.NewRGBA(image.Rect(0, 0, 0, 0)),
		image.NewRGBA(image.Rect(0, 0, 1, 1)),
		image.NewGray(image.Rect(0, 0, 3, 2)),
		&image.Uniform{C: color.Black},
	} {
		if got := d.Decode(limit(img)); got.Detected {
			t.Fatalf("Decode(%T) = %+v, want undetected", img, got)
		}
	}
}

// limit gives unbounded images (image.Uniform) finite bounds.
func limit(img image.Image) image.Image {
	if u, ok := img.(*image.Uniform); ok {
		rgba := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				rgba.Set(x, y, u.C)
			}
		}
		return rgba
	}
	return img
}

func TestCropIsTopRightQuadrant(t *testing.T) {
	tests := []struct {
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{image.Rect(0, 0, 100, 200), image.Rect(50, 0, 100, 100)},
		{image.Rect(0, 0, 101, 51), image.Rect(50, 0, 101, 25)},
		{image.Rect(10, 20, 110, 220), image.Rect(60, 20, 110, 120)},
	}
	for _, tt := range tests {
		got := qrdecode.Crop(image.NewRGBA(tt.bounds)).Bounds()
		if got != tt.want {
			t.Errorf("Crop(%v) = %v, want %v", tt.bounds, got, tt.want)
		}
	}
}

// noSub hides SubImage so Crop takes its copying path.
type noSub struct{ image.Image }

func TestCropWithoutSubImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.Set(7, 2, color.RGBA{R: 255, A: 255})
	got := qrdecode.Crop(noSub{src})
	if got.Bounds() != image.Rect(5, 0, 10, 5) {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	if r, _, _, _ := got.At(7, 2).RGBA(); r != 0xffff {
		t.Fatalf("pixel not copied, r=%x", r)
	}
}
