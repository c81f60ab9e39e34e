// Package config loads xlflow settings from a TOML file, an optional .env
// file and XLFLOW_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "XLFLOW_"

// Config is the file layout of xlflow.toml.
type Config struct {
	Gate    GateConfig    `toml:"gate"`
	Extract ExtractConfig `toml:"extract"`
	Detect  DetectConfig  `toml:"detect"`
	Filter  FilterConfig  `toml:"filter"`
	Job     JobConfig     `toml:"job"`
	Cache   CacheConfig   `toml:"cache"`
	Mapping MappingConfig `toml:"mapping"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// GateConfig bounds calls to the inference-backed collaborators.
type GateConfig struct {
	MaxConcurrentCalls int `toml:"max_concurrent_calls"`
	// CallTimeout is a Go duration string; empty disables the timeout.
	CallTimeout string `toml:"call_timeout"`
}

type ExtractConfig struct {
	// Workers sizes the extraction pool; 0 means one per CPU.
	Workers         int  `toml:"workers"`
	MaxRowsPerSheet int  `toml:"max_rows_per_sheet"`
	CalculateStats  bool `toml:"calculate_stats"`
}

type DetectConfig struct {
	MaxHeaderRows int `toml:"max_header_rows"`
	SampleSize    int `toml:"sample_size"`
}

type FilterConfig struct {
	SkipEmpty        bool     `toml:"skip_empty"`
	SkipIndexSheets  bool     `toml:"skip_index_sheets"`
	IndexMarkers     []string `toml:"index_markers"`
	ReferenceMarkers []string `toml:"reference_markers"`
}

type JobConfig struct {
	TenantID string `toml:"tenant_id"`
}

type CacheConfig struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"`
}

// MappingConfig holds per-tenant header overrides for the alias mapper,
// keyed by tenant then header text.
type MappingConfig struct {
	Overrides map[string]map[string]string `toml:"overrides"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig selects where the CLI publishes metrics after a run.
type MetricsConfig struct {
	Pushgateway string `toml:"pushgateway"`
	JobName     string `toml:"job_name"`
	Textfile    string `toml:"textfile"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Gate:    GateConfig{MaxConcurrentCalls: 2},
		Extract: ExtractConfig{MaxRowsPerSheet: 10_000, CalculateStats: true},
		Detect:  DetectConfig{MaxHeaderRows: 10, SampleSize: 5},
		Filter:  FilterConfig{SkipEmpty: true, SkipIndexSheets: true},
		Cache:   CacheConfig{Enabled: true, MaxEntries: 1024},
		Log:     LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{JobName: "xlflow"},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides. Variables from envFile are used only when the
// process environment does not set them; an empty envFile reads ./.env if
// present.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	fileEnv, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil, nil
		}
		path = ".env"
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return vars, nil
}

// ApplyEnv overrides fields from XLFLOW_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = splitList(v)
		}
	}

	num("MAX_CONCURRENT_CALLS", &c.Gate.MaxConcurrentCalls)
	str("CALL_TIMEOUT", &c.Gate.CallTimeout)
	num("EXTRACT_WORKERS", &c.Extract.Workers)
	num("MAX_ROWS_PER_SHEET", &c.Extract.MaxRowsPerSheet)
	flag("CALCULATE_STATS", &c.Extract.CalculateStats)
	num("MAX_HEADER_ROWS", &c.Detect.MaxHeaderRows)
	flag("SKIP_EMPTY", &c.Filter.SkipEmpty)
	flag("SKIP_INDEX_SHEETS", &c.Filter.SkipIndexSheets)
	list("INDEX_MARKERS", &c.Filter.IndexMarkers)
	list("REFERENCE_MARKERS", &c.Filter.ReferenceMarkers)
	str("TENANT_ID", &c.Job.TenantID)
	flag("CACHE_ENABLED", &c.Cache.Enabled)
	num("CACHE_MAX_ENTRIES", &c.Cache.MaxEntries)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("PUSHGATEWAY", &c.Metrics.Pushgateway)
	str("METRICS_TEXTFILE", &c.Metrics.Textfile)
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Gate.MaxConcurrentCalls < 1 {
		errs = append(errs, fmt.Errorf("gate.max_concurrent_calls must be at least 1, got %d", c.Gate.MaxConcurrentCalls))
	}
	if _, err := c.CallTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Extract.Workers < 0 {
		errs = append(errs, fmt.Errorf("extract.workers must not be negative, got %d", c.Extract.Workers))
	}
	if c.Extract.MaxRowsPerSheet < 0 {
		errs = append(errs, fmt.Errorf("extract.max_rows_per_sheet must not be negative, got %d", c.Extract.MaxRowsPerSheet))
	}
	if c.Detect.MaxHeaderRows < 1 {
		errs = append(errs, fmt.Errorf("detect.max_header_rows must be at least 1, got %d", c.Detect.MaxHeaderRows))
	}
	if c.Detect.SampleSize < 0 {
		errs = append(errs, fmt.Errorf("detect.sample_size must not be negative, got %d", c.Detect.SampleSize))
	}
	if c.Cache.Enabled && c.Cache.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("cache.max_entries must be at least 1, got %d", c.Cache.MaxEntries))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// CallTimeout parses Gate.CallTimeout.
func (c *Config) CallTimeout() (time.Duration, error) {
	if c.Gate.CallTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Gate.CallTimeout)
	if err != nil {
		return 0, fmt.Errorf("gate.call_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("gate.call_timeout must not be negative, got %s", d)
	}
	return d, nil
}
