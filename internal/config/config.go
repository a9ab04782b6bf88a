package config

import (
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pseudokit"

	// DefaultKeyBackend keeps secret keys and mappings as files in the
	// job's output directory.
	DefaultKeyBackend = BackendDir

	// DefaultRedisAddr is the address of a local Redis server.
	DefaultRedisAddr = "127.0.0.1:6379"

	// DefaultReportFormat prints a human-readable run summary.
	DefaultReportFormat = ReportText

	// DefaultBatchSize runs jobs one after another.
	DefaultBatchSize = 1
)

// Key and mapping storage backends.
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Run summary formats.
const (
	ReportText     = "text"
	ReportJSON     = "json"
	ReportMarkdown = "markdown"
)

// Config holds settings shared by every job of one CLI invocation. Job
// specific settings live in Job.
type Config struct {
	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches the log handler to JSON.
	LogJSON bool

	// KeyBackend selects where secret keys and mapping tables are stored:
	// BackendDir, BackendSQLite or BackendRedis.
	KeyBackend string

	// RedisAddr is used with BackendRedis.
	RedisAddr string

	// DBDir is the directory of the run history database. Empty disables
	// history. It is also where BackendSQLite keeps its artifacts.
	DBDir string

	// Report is the run summary format.
	Report string

	// ReportFile receives the run summary instead of stdout.
	ReportFile string

	// MetricsFile receives a Prometheus textfile after the run.
	MetricsFile string

	// BatchSize is the number of jobs run concurrently.
	BatchSize int

	// ConfigFilePath is an explicit job file. When empty, FindConfigFile
	// searches the usual locations.
	ConfigFilePath string
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		KeyBackend: DefaultKeyBackend,
		RedisAddr:  DefaultRedisAddr,
		DBDir:      XDGDataDir(),
		Report:     DefaultReportFormat,
		BatchSize:  DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for pseudokit
// (~/.local/share/pseudokit on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pseudokit
// (~/.config/pseudokit on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found in c.
func (c *Config) Validate() error {
	if !slices.Contains([]string{BackendDir, BackendSQLite, BackendRedis}, c.KeyBackend) {
		return ErrInvalidBackend
	}
	if c.KeyBackend == BackendRedis && c.RedisAddr == "" {
		return ErrNoRedisAddr
	}
	if c.KeyBackend == BackendSQLite && c.DBDir == "" {
		return ErrNoDBDir
	}
	if !slices.Contains([]string{ReportText, ReportJSON, ReportMarkdown}, c.Report) {
		return ErrInvalidReportFormat
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	return nil
}
