package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validEnv sets the minimum a default config needs to validate.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MONOMIND_LLM_API_KEY", "test-key")
	t.Setenv("MONOMIND_LEDGER_DATABASE_URL", "postgres://localhost/monomind")
}

func TestLoadDefaultsWithEnv(t *testing.T) {
	validEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.CollaboratorTimeout)
	assert.Equal(t, 3, cfg.Pipeline.LedgerAttempts)

	p, err := cfg.RiskPolicy()
	require.NoError(t, err)
	assert.Equal(t, "0.8", p.DTICritical.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("MONOMIND_PIPELINE_RUN_TIMEOUT", "45s")
	t.Setenv("MONOMIND_RISK_DTI_CRITICAL", "0.65")
	t.Setenv("MONOMIND_MEMORY_BACKEND", "none")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.RunTimeout)
	assert.Equal(t, "0.65", cfg.Risk.DTICritical)
	assert.Equal(t, MemoryNone, cfg.Memory.Backend)
}

func TestReadSkipsValidation(t *testing.T) {
	t.Setenv("MONOMIND_LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("MONOMIND_BIGQUERY_PROJECT_ID", "")
	t.Setenv("MONOMIND_LEDGER_DATABASE_URL", "postgres://localhost/monomind")

	cfg, err := Read("")
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateLedger())
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Ledger.Backend = LedgerBigQuery
	assert.ErrorIs(t, cfg.ValidateLedger(), ErrInvalidConfig)
}

func TestLoadWellKnownEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-gemini-env")
	t.Setenv("DATABASE_URL", "postgres://db/ledger")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-gemini-env", cfg.LLM.APIKey)
	assert.Equal(t, "postgres://db/ledger", cfg.Ledger.DatabaseURL)
}

func TestLoadYAMLFile(t *testing.T) {
	validEnv(t)
	path := filepath.Join(t.TempDir(), "monomind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
  model: llama3
  base_url: http://localhost:11434/v1
memory:
  backend: sqlite
  sqlite_path: /tmp/monomind.db
pipeline:
  retry_backoff: 1s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, MemorySQLite, cfg.Memory.Backend)
	assert.Equal(t, time.Second, cfg.Pipeline.RetryBackoff)
	// Untouched sections keep defaults.
	assert.Equal(t, 2, cfg.Jobs.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	validEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := Default()
		c.LLM.APIKey = "k"
		c.Ledger.DatabaseURL = "postgres://x"
		return c
	}
	require.NoError(t, base().Validate())

	tests := map[string]func(*Config){
		"no api key":           func(c *Config) { c.LLM.APIKey = "" },
		"bad provider":         func(c *Config) { c.LLM.Provider = "other" },
		"no database url":      func(c *Config) { c.Ledger.DatabaseURL = "" },
		"bigquery no project":  func(c *Config) { c.Ledger.Backend = LedgerBigQuery },
		"audit no project":     func(c *Config) { c.BigQuery.Audit = true },
		"gcs memory no bucket": func(c *Config) { c.Memory.Backend = MemoryGCS },
		"bad memory backend":   func(c *Config) { c.Memory.Backend = "redis" },
		"zero attempts":        func(c *Config) { c.Pipeline.LedgerAttempts = 0 },
		"zero run timeout":     func(c *Config) { c.Pipeline.RunTimeout = 0 },
		"bad dti":              func(c *Config) { c.Risk.DTICritical = "eighty" },
		"negative dti":         func(c *Config) { c.Risk.DTICritical = "-0.1" },
		"hot temperature":      func(c *Config) { c.LLM.Temperature = 3 },
		"no workers":           func(c *Config) { c.Jobs.Workers = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}

	ollama := base()
	ollama.LLM.Provider = "openai"
	ollama.LLM.APIKey = ""
	ollama.LLM.BaseURL = "http://localhost:11434/v1"
	assert.NoError(t, ollama.Validate())
}

func TestSaveToFileRoundTrip(t *testing.T) {
	validEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "monomind.yaml")

	c := Default()
	c.LLM.APIKey = "secret"
	c.Pipeline.RunTimeout = 90 * time.Second
	c.Risk.DTICritical = "0.75"
	require.NoError(t, c.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "run_timeout: 1m30s")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, loaded.Pipeline.RunTimeout)
	assert.Equal(t, "0.75", loaded.Risk.DTICritical)
	assert.InDelta(t, 0.7, loaded.LLM.Temperature, 1e-6)
}
