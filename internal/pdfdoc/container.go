// Package pdfdoc holds the source PDF in memory and writes page subsets of it.
package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

func init() {
	// keep pdfcpu from creating a per-user config directory on first use
	api.DisableConfigDir()
}

// Container is a parsed, read-only PDF. It is safe for concurrent readers.
type Container struct {
	data  []byte
	pages int
}

func newConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// plain xref table and trailer keep output byte-stable apart from /ID and dates
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Load sniffs, validates and counts the pages of an in-memory PDF.
func Load(data []byte) (*Container, error) {
	mt := mimetype.Detect(data)
	if !mt.Is("application/pdf") {
		return nil, fmt.Errorf("not a PDF (detected %s)", mt.String())
	}
	if err := api.Validate(bytes.NewReader(data), newConf()); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}
	n, err := api.PageCount(bytes.NewReader(data), newConf())
	if err != nil {
		return nil, fmt.Errorf("pdf page count failed: %w", err)
	}
	log.Debug().Int("pages", n).Int("bytes", len(data)).Msg("loaded PDF")
	return &Container{data: data, pages: n}, nil
}

// PageCount returns the number of pages.
func (c *Container) PageCount() int { return c.pages }

// Bytes returns the source bytes. Callers must not modify them.
func (c *Container) Bytes() []byte { return c.data }

// WritePages writes a new PDF holding exactly the given 0-based pages, in the given order.
func (c *Container) WritePages(w io.Writer, pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages selected")
	}
	sel := make([]string, len(pages))
	for i, p := range pages {
		if p < 0 || p >= c.pages {
			return fmt.Errorf("page %d out of range (document has %d pages)", p, c.pages)
		}
		sel[i] = strconv.Itoa(p + 1) // pdfcpu page numbers are 1-based
	}
	if err := api.Collect(bytes.NewReader(c.data), w, sel, newConf()); err != nil {
		return fmt.Errorf("collect pages %v: %w", pages, err)
	}
	return nil
}
