// Package config loads MonoMind settings from defaults, an optional YAML
// file, a .env file and MONOMIND_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/dvloznov/monomind/internal/llm"
	"github.com/dvloznov/monomind/internal/risk"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MONOMIND_LLM_PROVIDER.
const EnvPrefix = "MONOMIND"

// Ledger backends.
const (
	LedgerPostgres = "postgres"
	LedgerBigQuery = "bigquery"
)

// Memory backends.
const (
	MemoryNone     = "none"
	MemoryInMemory = "inmemory"
	MemorySQLite   = "sqlite"
	MemoryGCS      = "gcs"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Ledger   LedgerConfig   `mapstructure:"ledger" yaml:"ledger"`
	BigQuery BigQueryConfig `mapstructure:"bigquery" yaml:"bigquery"`
	Memory   MemoryConfig   `mapstructure:"memory" yaml:"memory"`
	Market   MarketConfig   `mapstructure:"market" yaml:"market"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Risk     RiskConfig     `mapstructure:"risk" yaml:"risk"`
	Jobs     JobsConfig     `mapstructure:"jobs" yaml:"jobs"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin" yaml:"cors_origin"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
}

type LedgerConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url,omitempty"`
}

type BigQueryConfig struct {
	ProjectID string `mapstructure:"project_id" yaml:"project_id,omitempty"`
	Dataset   string `mapstructure:"dataset" yaml:"dataset"`
	// Audit writes every run to the pipeline_runs table.
	Audit bool `mapstructure:"audit" yaml:"audit"`
}

type MemoryConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path,omitempty"`
	GCSBucket   string `mapstructure:"gcs_bucket" yaml:"gcs_bucket,omitempty"`
	GCSPrefix   string `mapstructure:"gcs_prefix" yaml:"gcs_prefix,omitempty"`
	MaxMessages int    `mapstructure:"max_messages" yaml:"max_messages"`
}

type MarketConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	CacheEntries int64         `mapstructure:"cache_entries" yaml:"cache_entries"`
}

type PipelineConfig struct {
	CollaboratorTimeout time.Duration `mapstructure:"collaborator_timeout" yaml:"collaborator_timeout"`
	RunTimeout          time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	LedgerAttempts      int           `mapstructure:"ledger_attempts" yaml:"ledger_attempts"`
	MarketAttempts      int           `mapstructure:"market_attempts" yaml:"market_attempts"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
}

type RiskConfig struct {
	// DTICritical is kept as text so the threshold stays exact.
	DTICritical string `mapstructure:"dti_critical" yaml:"dti_critical"`
}

type JobsConfig struct {
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	BufferSize   int           `mapstructure:"buffer_size" yaml:"buffer_size"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    3 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigin:      "*",
		},
		Log: LogConfig{Level: "info", Format: "console"},
		LLM: LLMConfig{
			Provider:    llm.ProviderGemini,
			Model:       llm.DefaultGeminiModel,
			Temperature: 0.7,
		},
		Ledger:   LedgerConfig{Backend: LedgerPostgres},
		BigQuery: BigQueryConfig{Dataset: "monomind"},
		Memory:   MemoryConfig{Backend: MemoryInMemory, SQLitePath: "monomind.db", GCSPrefix: "sessions", MaxMessages: 20},
		Market:   MarketConfig{CacheTTL: 6 * time.Hour, CacheEntries: 1000},
		Pipeline: PipelineConfig{
			CollaboratorTimeout: 30 * time.Second,
			RunTimeout:          2 * time.Minute,
			LedgerAttempts:      3,
			MarketAttempts:      2,
			RetryBackoff:        200 * time.Millisecond,
		},
		Risk: RiskConfig{DTICritical: "0.8"},
		Jobs: JobsConfig{Workers: 2, BufferSize: 256, MaxRetries: 3, RetryBackoff: time.Second},
	}
}

// setDefaults registers every key so environment overrides apply to it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origin", d.Server.CORSOrigin)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.temperature", d.LLM.Temperature)

	v.SetDefault("ledger.backend", d.Ledger.Backend)
	v.SetDefault("ledger.database_url", d.Ledger.DatabaseURL)

	v.SetDefault("bigquery.project_id", d.BigQuery.ProjectID)
	v.SetDefault("bigquery.dataset", d.BigQuery.Dataset)
	v.SetDefault("bigquery.audit", d.BigQuery.Audit)

	v.SetDefault("memory.backend", d.Memory.Backend)
	v.SetDefault("memory.sqlite_path", d.Memory.SQLitePath)
	v.SetDefault("memory.gcs_bucket", d.Memory.GCSBucket)
	v.SetDefault("memory.gcs_prefix", d.Memory.GCSPrefix)
	v.SetDefault("memory.max_messages", d.Memory.MaxMessages)

	v.SetDefault("market.cache_ttl", d.Market.CacheTTL)
	v.SetDefault("market.cache_entries", d.Market.CacheEntries)

	v.SetDefault("pipeline.collaborator_timeout", d.Pipeline.CollaboratorTimeout)
	v.SetDefault("pipeline.run_timeout", d.Pipeline.RunTimeout)
	v.SetDefault("pipeline.ledger_attempts", d.Pipeline.LedgerAttempts)
	v.SetDefault("pipeline.market_attempts", d.Pipeline.MarketAttempts)
	v.SetDefault("pipeline.retry_backoff", d.Pipeline.RetryBackoff)

	v.SetDefault("risk.dti_critical", d.Risk.DTICritical)

	v.SetDefault("jobs.workers", d.Jobs.Workers)
	v.SetDefault("jobs.buffer_size", d.Jobs.BufferSize)
	v.SetDefault("jobs.max_retries", d.Jobs.MaxRetries)
	v.SetDefault("jobs.retry_backoff", d.Jobs.RetryBackoff)
}

// Load builds and validates the configuration. path may be empty; a missing
// .env file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration like Load without validating it, for tools
// that only need part of it.
func Read(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyWellKnownEnv()
	return &cfg, nil
}

// applyWellKnownEnv falls back to the variables the provider SDKs and
// hosting platforms set.
func (c *Config) applyWellKnownEnv() {
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case llm.ProviderGemini:
			c.LLM.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		case llm.ProviderOpenAI:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Ledger.DatabaseURL == "" {
		c.Ledger.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.BigQuery.ProjectID == "" {
		c.BigQuery.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if p := os.Getenv("PORT"); p != "" && os.Getenv(EnvPrefix+"_SERVER_PORT") == "" {
		c.Server.Port = p
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Server.Port == "" {
		fail("server.port is required")
	}

	switch c.LLM.Provider {
	case llm.ProviderGemini:
		if c.LLM.APIKey == "" {
			fail("llm.api_key is required for gemini (or set GEMINI_API_KEY)")
		}
	case llm.ProviderOpenAI:
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			fail("llm.api_key or llm.base_url is required for openai")
		}
	default:
		fail("llm.provider must be %q or %q", llm.ProviderGemini, llm.ProviderOpenAI)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		fail("llm.temperature must be between 0 and 2")
	}

	if err := c.ValidateLedger(); err != nil {
		errs = append(errs, err)
	}
	if c.BigQuery.Audit && c.BigQuery.ProjectID == "" {
		fail("bigquery.project_id is required when bigquery.audit is on")
	}

	switch c.Memory.Backend {
	case MemoryNone, MemoryInMemory:
	case MemorySQLite:
		if c.Memory.SQLitePath == "" {
			fail("memory.sqlite_path is required for sqlite memory")
		}
	case MemoryGCS:
		if c.Memory.GCSBucket == "" {
			fail("memory.gcs_bucket is required for gcs memory")
		}
	default:
		fail("memory.backend must be one of none, inmemory, sqlite, gcs")
	}
	if c.Memory.MaxMessages < 1 {
		fail("memory.max_messages must be at least 1")
	}

	if c.Pipeline.CollaboratorTimeout <= 0 || c.Pipeline.RunTimeout <= 0 {
		fail("pipeline timeouts must be positive")
	}
	if c.Pipeline.LedgerAttempts < 1 || c.Pipeline.MarketAttempts < 1 {
		fail("pipeline attempts must be at least 1")
	}
	if c.Pipeline.RetryBackoff < 0 {
		fail("pipeline.retry_backoff must not be negative")
	}

	if _, err := c.RiskPolicy(); err != nil {
		fail("risk.dti_critical: %v", err)
	}

	if c.Jobs.Workers < 1 || c.Jobs.BufferSize < 1 {
		fail("jobs.workers and jobs.buffer_size must be at least 1")
	}

	return errors.Join(errs...)
}

// ValidateLedger checks only the ledger settings.
func (c *Config) ValidateLedger() error {
	switch c.Ledger.Backend {
	case LedgerPostgres:
		if c.Ledger.DatabaseURL == "" {
			return fmt.Errorf("%w: ledger.database_url is required for postgres (or set DATABASE_URL)", ErrInvalidConfig)
		}
	case LedgerBigQuery:
		if c.BigQuery.ProjectID == "" {
			return fmt.Errorf("%w: bigquery.project_id is required for the bigquery ledger", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: ledger.backend must be %q or %q", ErrInvalidConfig, LedgerPostgres, LedgerBigQuery)
	}
	return nil
}

// RiskPolicy parses the risk thresholds.
func (c *Config) RiskPolicy() (risk.Policy, error) {
	dti, err := decimal.NewFromString(strings.TrimSpace(c.Risk.DTICritical))
	if err != nil {
		return risk.Policy{}, fmt.Errorf("parse %q: %w", c.Risk.DTICritical, err)
	}
	p := risk.Policy{DTICritical: dti}
	if err := p.Validate(); err != nil {
		return risk.Policy{}, err
	}
	return p, nil
}

// SaveToFile writes the configuration as YAML. Secrets are not written.
func (c *Config) SaveToFile(path string) error {
	cp := *c
	cp.LLM.APIKey = ""
	cp.Ledger.DatabaseURL = ""

	data, err := yaml.Marshal(readable(reflect.ValueOf(cp)))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// readable mirrors a config struct as nested maps keyed by yaml tag, with
// durations rendered as "30s" instead of nanoseconds.
func readable(v reflect.Value) any {
	if v.Type() == durationType {
		return time.Duration(v.Int()).String()
	}
	if v.Kind() != reflect.Struct {
		return v.Interface()
	}

	out := yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		if opts == "omitempty" && v.Field(i).IsZero() {
			continue
		}

		var val yaml.Node
		if err := val.Encode(readable(v.Field(i))); err != nil {
			continue
		}
		out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, &val)
	}
	return &out
}
