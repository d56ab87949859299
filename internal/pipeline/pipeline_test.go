package pipeline

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/local/qrsplit/internal/classify"
	"github.com/local/qrsplit/internal/errs"
	"github.com/local/qrsplit/internal/pdfdoc"
	"github.com/local/qrsplit/internal/pdftest"
	"github.com/local/qrsplit/internal/qrdecode"
)

func load(t *testing.T, pages int) *pdfdoc.Container {
	t.Helper()
	c, err := pdfdoc.Load(pdftest.Build(pages))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return c
}

func TestRunReferenceSequence(t *testing.T) {
	texts := []string{"Separador", "x", "x", "No Disponible", "y", "Separador"}
	p := New(&pdftest.FakeRasterizer{Texts: texts}, qrdecode.New(), 3, 200)

	res, err := p.Run(context.Background(), load(t, len(texts)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []classify.Segment{
		{Kind: classify.Document, Pages: []int{1, 2}},
		{Kind: classify.Unavailable, Pages: []int{3}},
		{Kind: classify.Document, Pages: []int{4}},
	}
	if !reflect.DeepEqual(res.Segments, want) {
		t.Fatalf("segments = %+v, want %+v", res.Segments, want)
	}
	if res.PageCount != 6 {
		t.Fatalf("PageCount = %d", res.PageCount)
	}
	for i, text := range texts {
		if got := res.Payloads[i]; got != qrdecode.Found(text) {
			t.Errorf("payload %d = %+v, want %q", i, got, text)
		}
	}
}

func TestRunOrderIndependentOfPoolSize(t *testing.T) {
	texts := []string{
		"", "", "Separador", "", "No Disponible", "No Disponible", "", "Separador",
		"Separador", "", "", "", "No Disponible", "", "Separador", "",
	}
	c := load(t, len(texts))
	n := runtime.NumCPU()

	var baseline []classify.Segment
	for _, workers := range []int{1, n, 2 * n, len(texts) + 5} {
		fr := &pdftest.FakeRasterizer{Texts: texts, Jitter: 3 * time.Millisecond}
		res, err := New(fr, qrdecode.New(), workers, 200).Run(context.Background(), c)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if baseline == nil {
			baseline = res.Segments
			continue
		}
		if !reflect.DeepEqual(res.Segments, baseline) {
			t.Fatalf("workers=%d: segments %+v differ from %+v", workers, res.Segments, baseline)
		}
	}
	// blank pages decode as undetected rather than as "", which classifies the same
	if want := classify.ClassifyTexts(texts); !reflect.DeepEqual(baseline, want) {
		t.Fatalf("baseline %+v does not match direct classification %+v", baseline, want)
	}
}

func TestRunRenderFailureDegradesToNoQR(t *testing.T) {
	texts := []string{"a", "Separador", "b", "c"}
	fr := &pdftest.FakeRasterizer{Texts: texts, FailPages: map[int]bool{1: true}}
	res, err := New(fr, qrdecode.New(), 2, 200).Run(context.Background(), load(t, len(texts)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Payloads[1].Detected {
		t.Fatal("failed page should be undetected")
	}
	want := []classify.Segment{{Kind: classify.Document, Pages: []int{0, 1, 2, 3}}}
	if !reflect.DeepEqual(res.Segments, want) {
		t.Fatalf("segments = %+v, want %+v", res.Segments, want)
	}
}

func TestRunFatalErrors(t *testing.T) {
	tests := []struct {
		name  string
		pages int
		fr    *pdftest.FakeRasterizer
	}{
		{"rasterizer cannot open", 2, &pdftest.FakeRasterizer{Texts: []string{"", ""}, OpenErr: true}},
		{"worker cannot open", 4, &pdftest.FakeRasterizer{Texts: []string{"", "", "", ""}, OpenFailAfter: 1}},
		{"page count mismatch", 2, &pdftest.FakeRasterizer{Texts: []string{"", ""}, Pages: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fr, qrdecode.New(), 4, 200).Run(context.Background(), load(t, tt.pages))
			if !errs.IsFatalInput(err) {
				t.Fatalf("expected fatal input error, got %v", err)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	texts := make([]string, 12)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&pdftest.FakeRasterizer{Texts: texts}, qrdecode.New(), 1, 200).Run(ctx, load(t, len(texts)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWorkersClamp(t *testing.T) {
	cpus := runtime.NumCPU()
	tests := []struct {
		workers, pages, want int
	}{
		{0, cpus + 10, cpus},
		{-3, cpus + 10, cpus},
		{8, 3, 3},
		{2, 10, 2},
		{4, 0, 1},
	}
	for _, tt := range tests {
		p := &Pipeline{Workers: tt.workers}
		if got := p.workers(tt.pages); got != tt.want {
			t.Errorf("workers(%d) with Workers=%d = %d, want %d", tt.pages, tt.workers, got, tt.want)
		}
	}
}

func TestOutcome(t *testing.T) {
	tests := map[string]qrdecode.Payload{
		"miss":        {},
		"separator":   qrdecode.Found("Separador"),
		"unavailable": qrdecode.Found("No Disponible"),
		"content":     qrdecode.Found("INV-0042"),
	}
	for want, p := range tests {
		if got := outcome(p); got != want {
			t.Errorf("outcome(%+v) = %q, want %q", p, got, want)
		}
	}
}
