package imagerender

import (
	"image"
	"image/draw"
)

// Source is an already parsed PDF held in memory.
type Source interface {
	Bytes() []byte
	PageCount() int
}

// Rasterizer opens a parsed PDF for page rendering.
type Rasterizer interface {
	Open(src Source) (Document, error)
}

// Document renders pages of one opened PDF. Pages are 0-based. A Document is not
// required to be safe for concurrent use; open one per goroutine.
type Document interface {
	NumPage() int
	Render(page int, dpi float64) (image.Image, error)
	Close() error
}

// New returns the embedded MuPDF rasterizer, or a pdftoppm-backed one when
// toolPath points at a poppler installation.
func New(toolPath string) Rasterizer {
	if toolPath != "" {
		return NewPoppler(toolPath)
	}
	return NewFitz()
}

// ToGray converts img to single-channel grayscale. The result is rebased so that its
// bounds start at the origin.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	if g, ok := img.(*image.Gray); ok && bounds.Min == (image.Point{}) {
		return g
	}
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}
