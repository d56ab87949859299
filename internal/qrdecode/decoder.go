// Package qrdecode reads the QR marker printed in the top-right quadrant of a scanned page.
package qrdecode

import (
	"errors"
	"image"
	"image/draw"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog/log"

	"github.com/local/qrsplit/internal/imagerender"
)

// Payload is the optional result of scanning one page. Detected is false when no
// symbol was found; an empty Text with Detected set is a real (empty) payload.
type Payload struct {
	Text     string
	Detected bool
}

// Found builds a detected payload.
func Found(text string) Payload { return Payload{Text: text, Detected: true} }

// Decoder scans page images. The zero value is ready to use and safe for concurrent use.
type Decoder struct{}

func New() *Decoder { return &Decoder{} }

// Crop returns the top-right quadrant of img: from the horizontal midpoint to the
// right edge, and from the top to the vertical midpoint.
func Crop(img image.Image) image.Image {
	b := img.Bounds()
	rect := image.Rect(b.Min.X+b.Dx()/2, b.Min.Y, b.Max.X, b.Min.Y+b.Dy()/2)
	if s, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return s.SubImage(rect)
	}
	dst := image.NewRGBA(rect)
	draw.Draw(dst, rect, img, rect.Min, draw.Src)
	return dst
}

// Decode returns the first QR payload in the top-right quadrant of a page. Absence,
// and any reader failure, yield an undetected Payload; it never returns an error.
func (d *Decoder) Decode(img image.Image) (p Payload) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("QR reader panicked; treating page as no QR")
			p = Payload{}
		}
	}()

	region := imagerender.ToGray(Crop(img))
	if region.Bounds().Empty() {
		return Payload{}
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(region)
	if err != nil {
		log.Debug().Err(err).Msg("could not binarize QR region")
		return Payload{}
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER:    true,
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		var nf gozxing.NotFoundException
		if errors.As(err, &nf) {
			log.Debug().Msg("no QR detected in region")
		} else {
			log.Debug().Err(err).Msg("QR present but unreadable")
		}
		return Payload{}
	}

	// byte segments without an ECI header are read as UTF-8
	text := strings.TrimSpace(result.GetText())
	log.Debug().Str("qr", text).Msg("QR detected")
	return Found(text)
}
