// Package extractor turns a scanned batch PDF into one output PDF per classified segment.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/qrsplit/internal/classify"
	"github.com/local/qrsplit/internal/config"
	"github.com/local/qrsplit/internal/errs"
	"github.com/local/qrsplit/internal/metrics"
	"github.com/local/qrsplit/internal/pdfdoc"
	"github.com/local/qrsplit/internal/pipeline"
	"github.com/local/qrsplit/internal/store"
)

// Publisher mirrors a written file somewhere else, e.g. S3.
type Publisher interface {
	Publish(ctx context.Context, name string, data []byte) error
}

// StatusRecorder stores the progress of a run, e.g. in Redis.
type StatusRecorder interface {
	Set(ctx context.Context, runID string, st store.Status) error
}

// Extractor runs one split. Publisher and Status are optional.
type Extractor struct {
	Config    config.SplitConfig
	Pipeline  *pipeline.Pipeline
	Publisher Publisher
	Status    StatusRecorder
	RunID     string
}

// Written describes one output file.
type Written struct {
	Path   string
	Kind   classify.Kind
	Pages  []int
	Serial int
}

// OutputDir is the directory that receives the files split from pdfPath.
func OutputDir(pdfPath string) string {
	return filepath.Join(filepath.Dir(pdfPath), config.OutputDirName)
}

// FileName builds base + serial zero-padded to width + ".pdf". Serials wider than width
// are not truncated.
func FileName(base string, serial, width int) string {
	return fmt.Sprintf("%s%0*d.pdf", base, width, serial)
}

func (e *Extractor) outputDir(pdfPath string) string {
	if e.Config.OutputDirName == "" {
		return OutputDir(pdfPath)
	}
	return filepath.Join(filepath.Dir(pdfPath), e.Config.OutputDirName)
}

// Extract splits pdfPath and writes every segment, in order, with consecutive serials
// starting at Config.StartSerial. Existing files with the same name are overwritten.
// On an output error the files written so far stay on disk.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (written []Written, err error) {
	start := time.Now()
	e.setStatus(ctx, store.Status{Status: store.StateRunning, Input: pdfPath, Start: &start})
	defer func() {
		end := time.Now()
		st := store.Status{Input: pdfPath, Start: &start, End: &end, Progress: 100,
			Metadata: map[string]interface{}{"documents": len(written)}}
		result := "success"
		if err != nil {
			result = "failure"
			st.Status = store.StateFailed
			st.Message = err.Error()
		} else {
			st.Status = store.StateCompleted
			st.Message = fmt.Sprintf("%d documents written", len(written))
		}
		metrics.ObserveRun(result, end.Sub(start))
		e.setStatus(context.WithoutCancel(ctx), st)
	}()

	log.Debug().Str("pdf", pdfPath).Msg("starting extraction")

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, errs.FatalInput("read", pdfPath, err)
	}
	c, err := pdfdoc.Load(data)
	if err != nil {
		return nil, errs.FatalInput("load", pdfPath, err)
	}

	res, err := e.Pipeline.Run(ctx, c)
	if err != nil {
		var ferr *errs.Error
		if errors.As(err, &ferr) && ferr.Path == "" {
			ferr.Path = pdfPath
		}
		return nil, err
	}
	log.Debug().Int("documents", len(res.Segments)).Msg("classification finished")
	e.setStatus(ctx, store.Status{
		Status:   store.StateClassified,
		Progress: 50,
		Input:    pdfPath,
		Start:    &start,
		Metadata: map[string]interface{}{"pages": res.PageCount, "segments": len(res.Segments)},
	})

	dir := e.outputDir(pdfPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.OutputWrite("mkdir", dir, err)
	}

	serial := e.Config.StartSerial
	for _, seg := range res.Segments {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		w, err := e.writeSegment(ctx, c, dir, seg, serial)
		if err != nil {
			return written, err
		}
		written = append(written, w)
		serial++
	}
	return written, nil
}

func (e *Extractor) writeSegment(ctx context.Context, c *pdfdoc.Container, dir string, seg classify.Segment, serial int) (Written, error) {
	name := FileName(e.Config.BaseName, serial, e.Config.SerialWidth)
	path := filepath.Join(dir, name)
	log.Debug().Str("kind", seg.Kind.String()).Msgf("extracting document with pages %s", formatPages(seg.Pages))

	var buf bytes.Buffer
	if err := c.WritePages(&buf, seg.Pages); err != nil {
		return Written{}, errs.OutputWrite("assemble", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Written{}, errs.OutputWrite("write", path, err)
	}
	log.Info().Msgf("Documento extraído: %s (páginas: %s)", path, formatPages(seg.Pages))
	metrics.IncDocument(seg.Kind.String())

	if e.Publisher != nil {
		if err := e.Publisher.Publish(ctx, name, buf.Bytes()); err != nil {
			return Written{}, errs.OutputWrite("publish", path, err)
		}
	}
	return Written{Path: path, Kind: seg.Kind, Pages: seg.Pages, Serial: serial}, nil
}

func (e *Extractor) setStatus(ctx context.Context, st store.Status) {
	if e.Status == nil {
		return
	}
	if err := e.Status.Set(ctx, e.RunID, st); err != nil {
		log.Warn().Err(err).Str("status", st.Status).Msg("failed to record run status")
	}
}

// formatPages renders 0-based page indices as [1, 2, 3].
func formatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
