package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Page outcomes used as the "result" label of pages_processed_total.
const (
	PageSeparator   = "separator"
	PageUnavailable = "unavailable"
	PageContent     = "content"
	PageMiss        = "miss"
	PageRenderError = "render_error"
)

var (
	registry = prometheus.NewRegistry()
	once     sync.Once

	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrsplit",
			Name:      "pages_processed_total",
			Help:      "Pages rasterized and scanned, by outcome",
		},
		[]string{"result"},
	)

	pageDecodeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "qrsplit",
			Name:      "page_decode_duration_seconds",
			Help:      "Time spent rasterizing and decoding one page",
			Buckets:   prometheus.DefBuckets,
		},
	)

	documentsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrsplit",
			Name:      "documents_extracted_total",
			Help:      "Output files written, by segment kind",
		},
		[]string{"kind"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qrsplit",
			Name:      "run_duration_seconds",
			Help:      "Duration of a whole split run by result",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"result"},
	)
)

// Init registers collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		registry.MustRegister(pagesProcessed, pageDecodeLatency, documentsExtracted, runDuration)
	})
}

func ObservePage(result string, dur time.Duration) {
	pagesProcessed.WithLabelValues(result).Inc()
	pageDecodeLatency.Observe(dur.Seconds())
}

func IncDocument(kind string) { documentsExtracted.WithLabelValues(kind).Inc() }

func ObserveRun(result string, dur time.Duration) {
	runDuration.WithLabelValues(result).Observe(dur.Seconds())
}

// Push sends the current values to a Prometheus Pushgateway. A batch CLI has no
// scrape endpoint, so this is the only export path.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(registry).PushContext(ctx)
}
