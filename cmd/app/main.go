package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/qrsplit/internal/config"
	"github.com/local/qrsplit/internal/errs"
	"github.com/local/qrsplit/internal/extractor"
	"github.com/local/qrsplit/internal/imagerender"
	logpkg "github.com/local/qrsplit/internal/logger"
	"github.com/local/qrsplit/internal/metrics"
	"github.com/local/qrsplit/internal/pipeline"
	"github.com/local/qrsplit/internal/qrdecode"
	"github.com/local/qrsplit/internal/statuscheck"
	"github.com/local/qrsplit/internal/storage"
	"github.com/local/qrsplit/internal/store"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Uso: qrsplit ruta_del_pdf")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Divide un PDF escaneado en documentos usando las hojas con QR \"Separador\" y \"No Disponible\".")
	fmt.Fprintf(w, "Los archivos se guardan en %s/, junto al PDF de entrada.\n", cfgpkg.OutputDirName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Opciones:")
	fs.PrintDefaults()
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("qrsplit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	check := fs.Bool("check", false, "check rasterizer, Redis, S3 and Pushgateway, then exit")
	statusID := fs.String("status", "", "print the Redis status record of a run `id` and exit")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *showVersion {
		fmt.Fprintf(stdout, "qrsplit %s\n", version)
		return 0
	}
	if !*check && *statusID == "" && fs.NArg() != 1 {
		usage(stderr, fs)
		return 1
	}

	cfg := cfgpkg.FromEnv()
	if err := cfg.Split.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}
	if *statusID != "" {
		return showStatus(context.Background(), cfg.Status, *statusID, stdout, stderr)
	}

	runID := uuid.NewString()
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		RunID:        runID,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
		Out:          stdout,
	})
	defer logpkg.Close()

	// Ctrl-C stops the worker pool; the run is then abandoned as a whole
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *check {
		return preflight(ctx, cfg, stdout)
	}
	pdfPath := fs.Arg(0)

	metrics.Init()
	defer pushMetrics(cfg.Metrics)

	ext := &extractor.Extractor{
		Config: cfg.Split,
		Pipeline: pipeline.New(
			imagerender.New(cfg.Split.RasterizerPath),
			qrdecode.New(),
			cfg.Split.Workers,
			cfg.Split.DPI,
		),
		RunID: runID,
	}

	if cfg.Storage.Bucket != "" {
		pub, err := storage.NewS3Publisher(ctx, cfg.Storage)
		if err != nil {
			log.Error().Err(err).Msg("failed to init S3 publisher")
			return 1
		}
		ext.Publisher = pub
	}

	if cfg.Status.RedisURL != "" {
		rs, err := store.NewRedisStatus(ctx, cfg.Status.RedisURL, cfg.Status.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("redis status store unavailable; continuing without it")
		} else {
			defer rs.Close()
			ext.Status = rs
		}
	}

	start := time.Now()
	log.Info().Str("pdf", pdfPath).Str("version", version).Msg("starting split")
	written, err := ext.Extract(ctx, pdfPath)
	if err != nil {
		log.Error().Err(err).Str("pdf", pdfPath).Msg("split failed")
		return errs.ExitCode(err)
	}
	log.Info().
		Int("documents", len(written)).
		Str("output_dir", extractor.OutputDir(pdfPath)).
		Dur("elapsed", time.Since(start)).
		Msg("split complete")
	return 0
}

func preflight(ctx context.Context, cfg cfgpkg.Config, stdout io.Writer) int {
	opts := statuscheck.Options{PushgatewayURL: cfg.Metrics.PushgatewayURL}
	if cfg.Split.RasterizerPath != "" {
		opts.PopplerBin = imagerender.NewPoppler(cfg.Split.RasterizerPath).Bin()
	}
	if cfg.Storage.Bucket != "" {
		pub, err := storage.NewS3Publisher(ctx, cfg.Storage)
		if err != nil {
			fmt.Fprintf(stdout, "%-12s FAIL %v\n", "s3", err)
			return 1
		}
		opts.S3 = pub
	}
	if cfg.Status.RedisURL != "" {
		rs, err := store.NewRedisStatus(ctx, cfg.Status.RedisURL, cfg.Status.TTL)
		if err != nil {
			fmt.Fprintf(stdout, "%-12s FAIL %v\n", "redis", err)
			return 1
		}
		defer rs.Close()
		opts.Redis = rs
	}

	sum := statuscheck.New(opts).Summary(ctx)
	sum.Print(stdout)
	if !sum.OK() {
		return 1
	}
	return 0
}

func showStatus(ctx context.Context, cfg cfgpkg.StatusConfig, runID string, stdout, stderr io.Writer) int {
	if cfg.RedisURL == "" {
		fmt.Fprintln(stderr, "REDIS_URL is not set; no run status to read")
		return 1
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	rs, err := store.NewRedisStatus(ctx, cfg.RedisURL, cfg.TTL)
	if err != nil {
		fmt.Fprintf(stderr, "redis: %v\n", err)
		return 1
	}
	defer rs.Close()

	st, ok, err := rs.Get(ctx, runID)
	if err != nil {
		fmt.Fprintf(stderr, "read status of %s: %v\n", runID, err)
		return 1
	}
	if !ok {
		fmt.Fprintf(stderr, "no status recorded for run %s\n", runID)
		return 1
	}
	if err := printStatus(stdout, st); err != nil {
		fmt.Fprintf(stderr, "print status: %v\n", err)
		return 1
	}
	return 0
}

func printStatus(w io.Writer, st store.Status) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func pushMetrics(cfg cfgpkg.MetricsConfig) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(ctx, cfg.PushgatewayURL, cfg.Job); err != nil {
		log.Warn().Err(err).Str("url", cfg.PushgatewayURL).Msg("metrics push failed")
	}
}
