package pdftest

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/local/qrsplit/internal/imagerender"
)

// ErrOpen is returned by FakeRasterizer.Open when OpenErr is set.
var ErrOpen = errors.New("pdftest: open failed")

// FakeRasterizer renders each page as a synthetic QR page carrying Texts[i]
// ("" = blank page). It stands in for MuPDF so pipeline tests need no real renderer.
type FakeRasterizer struct {
	Texts []string
	// Pages overrides the reported page count when non-zero.
	Pages int
	// FailPages makes Render fail for the listed page indices.
	FailPages map[int]bool
	// OpenErr makes every Open fail; OpenFailAfter fails every Open after the first n.
	OpenErr       bool
	OpenFailAfter int
	// Jitter sleeps up to this long per page to shuffle completion order.
	Jitter time.Duration
	// Size of rendered pages; defaults to 400x400.
	Width, Height int

	opens atomic.Int32
	mu    sync.Mutex
	order []int
}

func (f *FakeRasterizer) Open(src imagerender.Source) (imagerender.Document, error) {
	n := int(f.opens.Add(1))
	if f.OpenErr || (f.OpenFailAfter > 0 && n > f.OpenFailAfter) {
		return nil, ErrOpen
	}
	pages := len(f.Texts)
	if f.Pages != 0 {
		pages = f.Pages
	}
	return &fakeDoc{f: f, pages: pages}, nil
}

// Opens reports how many documents were opened.
func (f *FakeRasterizer) Opens() int { return int(f.opens.Load()) }

// RenderOrder reports the order in which pages finished rendering.
func (f *FakeRasterizer) RenderOrder() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.order...)
}

type fakeDoc struct {
	f     *FakeRasterizer
	pages int
}

func (d *fakeDoc) NumPage() int { return d.pages }

func (d *fakeDoc) Render(page int, dpi float64) (image.Image, error) {
	if d.f.Jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(d.f.Jitter))))
	}
	if d.f.FailPages[page] {
		return nil, fmt.Errorf("pdftest: render page %d failed", page)
	}
	w, h := d.f.Width, d.f.Height
	if w == 0 || h == 0 {
		w, h = 400, 400
	}
	text := ""
	if page < len(d.f.Texts) {
		text = d.f.Texts[page]
	}
	img := QRPage(text, w, h, TopRight)

	d.f.mu.Lock()
	d.f.order = append(d.f.order, page)
	d.f.mu.Unlock()
	return img, nil
}

func (d *fakeDoc) Close() error { return nil }
