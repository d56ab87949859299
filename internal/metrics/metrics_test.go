package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndPush(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(pagesProcessed.WithLabelValues(PageSeparator))
	ObservePage(PageSeparator, 5*time.Millisecond)
	IncDocument("document")
	ObserveRun("success", time.Second)
	if got := testutil.ToFloat64(pagesProcessed.WithLabelValues(PageSeparator)); got != before+1 {
		t.Fatalf("separator counter = %v, want %v", got, before+1)
	}

	var body string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Push(context.Background(), srv.URL, "qrsplit_test"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if !strings.Contains(path, "/job/qrsplit_test") {
		t.Fatalf("unexpected push path %q", path)
	}
	if body == "" {
		t.Fatal("push sent an empty body")
	}
}

func TestPushWithoutURLIsNoop(t *testing.T) {
	if err := Push(context.Background(), "", "x"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
