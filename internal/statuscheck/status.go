package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// Pinger models the minimal capability we need from an optional backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker runs the preflight checks behind `qrsplit -check`.
type Checker struct {
	redis       Pinger
	s3          Pinger
	popplerBin  string
	pushgateway string
	httpClient  *http.Client
}

// Options configures the Checker. Nil pingers and empty strings mean "not configured".
type Options struct {
	Redis          Pinger
	S3             Pinger
	PopplerBin     string
	PushgatewayURL string
	HTTPClient     *http.Client
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Rasterizer  Status `json:"rasterizer"`
	Redis       Status `json:"redis"`
	S3          Status `json:"s3"`
	Pushgateway Status `json:"pushgateway"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Checker{
		redis:       opts.Redis,
		s3:          opts.S3,
		popplerBin:  strings.TrimSpace(opts.PopplerBin),
		pushgateway: strings.TrimRight(opts.PushgatewayURL, "/"),
		httpClient:  client,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Rasterizer:  c.checkRasterizer(),
		Redis:       c.checkPinger(ctx, c.redis, 2*time.Second),
		S3:          c.checkPinger(ctx, c.s3, 5*time.Second),
		Pushgateway: c.checkPushgateway(ctx),
	}
}

// OK reports whether every subsystem is usable.
func (s Summary) OK() bool {
	return s.Rasterizer.OK && s.Redis.OK && s.S3.OK && s.Pushgateway.OK
}

// Print writes one line per subsystem.
func (s Summary) Print(w io.Writer) {
	for _, row := range []struct {
		name string
		st   Status
	}{
		{"rasterizer", s.Rasterizer},
		{"redis", s.Redis},
		{"s3", s.S3},
		{"pushgateway", s.Pushgateway},
	} {
		mark := "ok"
		if !row.st.OK {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "%-12s %-4s %s\n", row.name, mark, row.st.Message)
	}
}

func (c *Checker) checkRasterizer() Status {
	if c.popplerBin == "" {
		return Status{OK: true, Message: "embedded MuPDF"}
	}
	path, err := exec.LookPath(c.popplerBin)
	if err != nil {
		return Status{OK: false, Message: "Binary not found: " + c.popplerBin}
	}
	return Status{OK: true, Message: path}
}

func (c *Checker) checkPinger(ctx context.Context, p Pinger, timeout time.Duration) Status {
	if p == nil {
		return Status{OK: true, Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkPushgateway(ctx context.Context) Status {
	if c.pushgateway == "" {
		return Status{OK: true, Message: "not configured"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pushgateway+"/-/ready", nil)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Status{OK: false, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return Status{OK: true, Message: "Available"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
