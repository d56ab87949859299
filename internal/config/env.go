package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OutputDirName is the subdirectory, created next to the input PDF, that receives the split files.
const OutputDirName = "documentos_extraidos"

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// SplitConfig carries every knob of a split run. It is passed explicitly into the
// pipeline and extractor so that runs stay isolated from each other.
type SplitConfig struct {
	BaseName       string
	StartSerial    int
	SerialWidth    int
	DPI            int
	RasterizerPath string // empty: embedded MuPDF; otherwise directory or binary of pdftoppm
	Debug          bool
	Workers        int
	OutputDirName  string
}

// StorageConfig configures the optional S3 mirror of extracted files.
type StorageConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // S3-compatible endpoint (MinIO); path-style addressing when set
}

// StatusConfig configures the optional Redis run-status record.
type StatusConfig struct {
	RedisURL string
	TTL      time.Duration
}

// MetricsConfig configures the optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Split   SplitConfig
	Storage StorageConfig
	Status  StatusConfig
	Metrics MetricsConfig
}

// DefaultSplit returns the split settings used by the scanning workflow.
func DefaultSplit() SplitConfig {
	return SplitConfig{
		BaseName:      "XXX-NOV-2024-",
		StartSerial:   131,
		SerialWidth:   5,
		DPI:           200,
		Debug:         true,
		Workers:       runtime.NumCPU(),
		OutputDirName: OutputDirName,
	}
}

// Validate rejects settings that would produce unusable file names or images.
func (s SplitConfig) Validate() error {
	if s.SerialWidth < 1 {
		return fmt.Errorf("serial width must be >= 1, got %d", s.SerialWidth)
	}
	if s.DPI <= 0 {
		return fmt.Errorf("dpi must be > 0, got %d", s.DPI)
	}
	if s.StartSerial < 0 {
		return fmt.Errorf("start serial must be >= 0, got %d", s.StartSerial)
	}
	if s.OutputDirName == "" {
		return fmt.Errorf("output dir name is empty")
	}
	return nil
}

// FromEnv loads configuration from environment (and an optional .env file) with sensible defaults.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{}
	def := DefaultSplit()

	cfg.Split = SplitConfig{
		BaseName:       getEnv("SPLIT_BASE_NAME", def.BaseName),
		StartSerial:    parseInt(getEnv("SPLIT_START_SERIAL", ""), def.StartSerial),
		SerialWidth:    parseInt(getEnv("SPLIT_SERIAL_WIDTH", ""), def.SerialWidth),
		DPI:            parseInt(getEnv("SPLIT_DPI", ""), def.DPI),
		RasterizerPath: getEnv("RASTERIZER_PATH", ""),
		Debug:          parseBool(getEnv("SPLIT_DEBUG", "true")),
		Workers:        parseInt(getEnv("SPLIT_WORKERS", ""), def.Workers),
		OutputDirName:  def.OutputDirName,
	}

	// Logging defaults; the debug toggle wins over LOG_LEVEL
	level := getEnv("LOG_LEVEL", "info")
	if cfg.Split.Debug {
		level = "debug"
	}
	cfg.Logging = LoggingConfig{
		Level:      level,
		Pretty:     parseBool(getEnv("LOG_PRETTY", "true")),
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_qrsplit",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Storage = StorageConfig{
		Bucket:    getEnv("OUTPUT_S3_BUCKET", ""),
		Prefix:    strings.Trim(getEnv("OUTPUT_S3_PREFIX", "documentos_extraidos"), "/"),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:  getEnv("OUTPUT_S3_ENDPOINT", ""),
	}

	cfg.Status = StatusConfig{
		RedisURL: getEnv("REDIS_URL", ""),
		TTL:      parseDuration(getEnv("STATUS_TTL", "168h"), 7*24*time.Hour),
	}

	cfg.Metrics = MetricsConfig{
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		Job:            getEnv("METRICS_JOB", "qrsplit"),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}
