package imagerender

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// FitzRasterizer renders with go-fitz (MuPDF), no external tools needed.
type FitzRasterizer struct{}

func NewFitz() *FitzRasterizer { return &FitzRasterizer{} }

func (FitzRasterizer) Open(src Source) (Document, error) {
	doc, err := fitz.NewFromMemory(src.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzDoc{doc: doc}, nil
}

type fitzDoc struct{ doc *fitz.Document }

func (d *fitzDoc) NumPage() int { return d.doc.NumPage() }

func (d *fitzDoc) Render(page int, dpi float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	log.Debug().
		Int("page", page).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Float64("dpi", dpi).
		Msg("rendered page")
	return img, nil
}

func (d *fitzDoc) Close() error { return d.doc.Close() }
