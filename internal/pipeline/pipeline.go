// Package pipeline rasterizes every page of a PDF, scans each page for its QR marker in
// parallel and classifies the ordered results into output segments.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/local/qrsplit/internal/classify"
	"github.com/local/qrsplit/internal/errs"
	"github.com/local/qrsplit/internal/imagerender"
	"github.com/local/qrsplit/internal/metrics"
	"github.com/local/qrsplit/internal/pdfdoc"
	"github.com/local/qrsplit/internal/qrdecode"
)

// PageDecoder extracts the QR payload of one rendered page.
type PageDecoder interface {
	Decode(img image.Image) qrdecode.Payload
}

// Pipeline is safe to reuse across runs; it holds no per-run state.
type Pipeline struct {
	Rasterizer imagerender.Rasterizer
	Decoder    PageDecoder
	Workers    int
	DPI        float64
}

// Result of one run. Payloads[i] belongs to page i.
type Result struct {
	Payloads  []qrdecode.Payload
	Segments  []classify.Segment
	PageCount int
}

func New(r imagerender.Rasterizer, d PageDecoder, workers, dpi int) *Pipeline {
	return &Pipeline{Rasterizer: r, Decoder: d, Workers: workers, DPI: float64(dpi)}
}

func (p *Pipeline) workers(pages int) int {
	n := p.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > pages {
		n = pages
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run scans all pages of c and classifies them. Only a rasterizer that cannot open the
// document is fatal; a page that fails to render or decode counts as "no QR".
func (p *Pipeline) Run(ctx context.Context, c *pdfdoc.Container) (Result, error) {
	total := c.PageCount()

	first, err := p.Rasterizer.Open(c)
	if err != nil {
		return Result{}, errs.FatalInput("rasterize", "", err)
	}
	if got := first.NumPage(); got != total {
		first.Close()
		return Result{}, errs.FatalInput("rasterize", "", fmt.Errorf("rasterizer sees %d pages, container has %d", got, total))
	}
	if total == 0 {
		first.Close()
		return Result{}, nil
	}

	workers := p.workers(total)
	log.Debug().Int("pages", total).Int("workers", workers).Float64("dpi", p.DPI).Msg("scanning pages")

	// Each worker stores into its own slot, so completion order never affects output order.
	payloads := make([]qrdecode.Payload, total)
	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < total; i++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			// go-fitz serializes calls on one document, so every worker renders from its own
			doc := first
			if w > 0 {
				d, err := p.Rasterizer.Open(c)
				if err != nil {
					return errs.FatalInput("rasterize", "", fmt.Errorf("worker %d: %w", w, err))
				}
				doc = d
			}
			defer doc.Close()
			for i := range jobs {
				payloads[i] = p.scan(doc, i, total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	segments := classify.Classify(payloads)
	log.Debug().Int("segments", len(segments)).Int("separators", len(classify.Separators(payloads))).Msg("classification complete")
	return Result{Payloads: payloads, Segments: segments, PageCount: total}, nil
}

func (p *Pipeline) scan(doc imagerender.Document, page, total int) qrdecode.Payload {
	start := time.Now()
	log.Debug().Msgf("processing page %d of %d", page+1, total)

	img, err := doc.Render(page, p.DPI)
	if err != nil {
		log.Warn().Err(err).Int("page", page).Msg("page render failed; treating as no QR")
		metrics.ObservePage(metrics.PageRenderError, time.Since(start))
		return qrdecode.Payload{}
	}
	payload := p.Decoder.Decode(img)
	metrics.ObservePage(outcome(payload), time.Since(start))
	return payload
}

func outcome(p qrdecode.Payload) string {
	switch {
	case !p.Detected:
		return metrics.PageMiss
	case p.Text == classify.SeparatorSentinel:
		return metrics.PageSeparator
	case p.Text == classify.UnavailableSentinel:
		return metrics.PageUnavailable
	default:
		return metrics.PageContent
	}
}
