package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MONOMIND_CONFIG", "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAssessFromFlags(t *testing.T) {
	out, err := run(t, "assess", "--name", "laptop", "--price", "700",
		"--balance", "650", "--income", "1000", "--expenses", "350")
	require.NoError(t, err)
	assert.Contains(t, out, "Verdict: RISKY (critical_funds)")
	assert.Contains(t, out, "Insufficient funds. Balance: 650.00, Price: 700.00.")
}

func TestAssessCreditJSON(t *testing.T) {
	out, err := run(t, "--json", "assess", "--price", "1200", "--credit", "--months", "12",
		"--balance", "650", "--income", "1000", "--expenses", "350")
	require.NoError(t, err)

	var v domain.RiskVerdict
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, domain.ReasonManageableCredit, v.Reason)
	assert.False(t, v.IsRisky)
	require.NotNil(t, v.MonthlyPayment)
	assert.Equal(t, "100", v.MonthlyPayment.String())
}

func TestAssessRejectsBadInput(t *testing.T) {
	tests := map[string][]string{
		"missing price":   {"assess", "--balance", "10"},
		"negative price":  {"assess", "--price", "-1", "--balance", "10"},
		"missing balance": {"assess", "--price", "5"},
		"bad income":      {"assess", "--price", "5", "--balance", "10", "--income", "lots"},
		"zero months":     {"assess", "--price", "5", "--balance", "10", "--credit", "--months", "0"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestMetricsRequiresUser(t *testing.T) {
	_, err := run(t, "metrics")
	assert.EqualError(t, err, "missing --user")
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("MONOMIND_LLM_API_KEY", "test-key")
	t.Setenv("MONOMIND_LEDGER_DATABASE_URL", "postgres://localhost/monomind")
	path := filepath.Join(t.TempDir(), "monomind.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = run(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "config", "init", "--force", path)
	assert.NoError(t, err)

	out, err = run(t, "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid.")
	assert.Contains(t, out, "ledger: postgres")
}
