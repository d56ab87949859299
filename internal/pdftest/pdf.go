// Package pdftest builds in-memory PDFs, QR page images and fake rasterizers for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// PageSize is the width and height, in points, of every fixture page.
const PageSize = 200

// Build returns a minimal, valid PDF with n pages. Each page paints a square at a
// page-specific position so the pages are distinguishable in output files.
func Build(n int) []byte {
	contents := make([]string, n)
	for i := range contents {
		contents[i] = fmt.Sprintf("0 0 0 rg %d %d 10 10 re f", 10+(i*7)%180, 10+(i*13)%180)
	}
	return build(contents)
}

// BuildQR returns a PDF with one page per text. A non-empty text is drawn as a vector QR
// symbol, one filled rectangle per dark module, centered in the top-right quadrant.
func BuildQR(texts []string) []byte {
	contents := make([]string, len(texts))
	for i, text := range texts {
		if text == "" {
			contents[i] = "0 0 0 rg 10 10 10 10 re f"
			continue
		}
		contents[i] = qrContent(text)
	}
	return build(contents)
}

func qrContent(text string) string {
	sym, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 1, 1, nil)
	if err != nil {
		panic(err)
	}
	modules := sym.GetWidth()
	side := float64(PageSize) / 2 * 0.8
	scale := side / float64(modules)
	// quadrant spans x in [100, 200] and, with PDF's bottom-left origin, y in [100, 200]
	left := float64(PageSize)*3/4 - side/2
	top := float64(PageSize)*3/4 + side/2

	var b strings.Builder
	b.WriteString("0 0 0 rg\n")
	for y := 0; y < modules; y++ {
		for x := 0; x < modules; x++ {
			if !sym.Get(x, y) {
				continue
			}
			fmt.Fprintf(&b, "%.3f %.3f %.3f %.3f re\n", left+float64(x)*scale, top-float64(y+1)*scale, scale, scale)
		}
	}
	b.WriteString("f")
	return b.String()
}

func build(contents []string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	n := len(contents)
	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for i, content := range contents {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>", PageSize, PageSize, 4+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
