package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/local/qrsplit/internal/config"
)

func TestDigest(t *testing.T) {
	a := Digest([]byte("page"))
	if len(a) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(a))
	}
	if a != Digest([]byte("page")) {
		t.Fatal("digest not deterministic")
	}
	if a == Digest([]byte("Page")) {
		t.Fatal("different inputs share a digest")
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "XXX-NOV-2024-00131.pdf", "XXX-NOV-2024-00131.pdf"},
		{"documentos_extraidos", "XXX-NOV-2024-00131.pdf", "documentos_extraidos/XXX-NOV-2024-00131.pdf"},
		{"a/b", "f.pdf", "a/b/f.pdf"},
	}
	for _, tt := range tests {
		p := &S3Publisher{prefix: tt.prefix}
		if got := p.Key(tt.name); got != tt.want {
			t.Errorf("Key(%q) with prefix %q = %q, want %q", tt.name, tt.prefix, got, tt.want)
		}
	}
}

func TestNewS3PublisherRequiresBucket(t *testing.T) {
	if _, err := NewS3Publisher(context.Background(), config.StorageConfig{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}

type captured struct {
	method, path, digest, contentType string
	body                              []byte
}

func TestPublishUploadsToEndpoint(t *testing.T) {
	var (
		mu  sync.Mutex
		got []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, captured{
			method:      r.Method,
			path:        r.URL.Path,
			digest:      r.Header.Get("X-Amz-Meta-Blake2b"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := NewS3Publisher(context.Background(), config.StorageConfig{
		Bucket:    "scans",
		Prefix:    "out",
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		Endpoint:  srv.URL,
	})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	data := []byte("%PDF-1.4 fake")
	if err := p.Publish(context.Background(), "XXX-00131.pdf", data); err != nil {
		t.Fatalf("publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	req := got[0]
	if req.method != http.MethodPut {
		t.Errorf("method = %s", req.method)
	}
	if req.path != "/scans/out/XXX-00131.pdf" {
		t.Errorf("path = %s", req.path)
	}
	if req.digest != Digest(data) {
		t.Errorf("digest header = %q", req.digest)
	}
	if req.contentType != "application/pdf" {
		t.Errorf("content type = %q", req.contentType)
	}
	if string(req.body) != string(data) {
		t.Errorf("body = %q", req.body)
	}
}

func TestPublishFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p, err := NewS3Publisher(context.Background(), config.StorageConfig{
		Bucket: "scans", Region: "us-east-1", AccessKey: "k", SecretKey: "s", Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := p.Publish(context.Background(), "f.pdf", []byte("x")); err == nil {
		t.Fatal("expected upload error")
	}
}
