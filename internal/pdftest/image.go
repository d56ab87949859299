package pdftest

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Corner selects where QRPage places the symbol.
type Corner int

const (
	TopRight Corner = iota
	TopLeft
	BottomRight
)

// QRPage returns a white w x h page with a QR symbol for text centered in the given
// quadrant. An empty text produces a blank page.
func QRPage(text string, w, h int, corner Corner) image.Image {
	page := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(page, page.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if text == "" {
		return page
	}

	size := w / 4
	if h/4 < size {
		size = h / 4
	}
	sym, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		panic(err)
	}

	var origin image.Point
	switch corner {
	case TopLeft:
		origin = image.Pt(w/4-size/2, h/4-size/2)
	case BottomRight:
		origin = image.Pt(3*w/4-size/2, 3*h/4-size/2)
	default:
		origin = image.Pt(3*w/4-size/2, h/4-size/2)
	}
	r := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(size, size))}
	draw.Draw(page, r, sym, image.Point{}, draw.Src)
	return page
}
