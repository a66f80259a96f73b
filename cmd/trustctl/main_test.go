package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliFixtures = `
suppliers:
  - id: m1
    role: manufacturer
    organization_name: Imexpharm
  - id: p1
    role: pharmacy
    organization_name: Long Chau
drug_batches:
  - id: b1
    batch_number: LOT-1
    name: Cefuroxime 250mg
    manufacturer_id: m1
    expiry_date: 2030-01-01T00:00:00Z
`

// writeCLIConfig points trustctl at a throwaway sqlite database so state
// survives between command invocations.
func writeCLIConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	fixtures := filepath.Join(dir, "fixtures.yaml")
	require.NoError(t, os.WriteFile(fixtures, []byte(cliFixtures), 0o644))

	cfg := fmt.Sprintf(`
storage:
  backend: sqlite
evidence:
  backend: memory
  fixtures_path: %s
database:
  path: %s
scoring:
  periodic_interval: 0
logger:
  level: error
`, fixtures, filepath.Join(dir, "trust.db"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_ScoreAdjustHistory(t *testing.T) {
	cfg := writeCLIConfig(t)

	out, err := runCLI(t, "score", "m1", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var score map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	assert.Equal(t, "m1", score["supplier_id"])
	base := score["trust_score"].(float64)

	out, err = runCLI(t, "adjust", "m1", "--config", cfg, "--format", "json",
		"--type", "penalty", "--amount", "40", "--reason", "late delivery", "--by", "qa")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	assert.Equal(t, base-40, score["trust_score"].(float64))

	out, err = runCLI(t, "history", "m1", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var history map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.EqualValues(t, 1, history["total"])
}

func TestCLI_RankingConsole(t *testing.T) {
	cfg := writeCLIConfig(t)

	_, err := runCLI(t, "recalculate", "--all", "--config", cfg, "--no-color")
	require.NoError(t, err)

	out, err := runCLI(t, "ranking", "--config", cfg, "--no-color", "--role", "Pharmacy")
	require.NoError(t, err)
	assert.Contains(t, out, "Long Chau")
	assert.NotContains(t, out, "Imexpharm")
}

func TestCLI_ArgumentErrors(t *testing.T) {
	cfg := writeCLIConfig(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"recalculate needs a target", []string{"recalculate", "--config", cfg}, "either a supplier id or --all"},
		{"recalculate rejects both", []string{"recalculate", "m1", "--all", "--config", cfg}, "either a supplier id or --all"},
		{"invalid supplier id", []string{"score", "../etc", "--config", cfg}, "supplier"},
		{"unknown role", []string{"ranking", "--role", "admin", "--config", cfg}, "unknown role"},
		{"unknown format", []string{"score", "m1", "--format", "xml", "--config", cfg}, "unknown format"},
		{"missing adjust flags", []string{"adjust", "m1", "--config", cfg}, "required flag"},
		{"badges invalid id", []string{"badges", "bad!id", "--config", cfg}, "supplier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCLI_UnknownSupplier(t *testing.T) {
	cfg := writeCLIConfig(t)

	_, err := runCLI(t, "score", "nobody", "--config", cfg)
	require.Error(t, err)
}

func TestCLI_Badges(t *testing.T) {
	cfg := writeCLIConfig(t)

	_, err := runCLI(t, "badges", "m1", "--config", cfg)
	require.Error(t, err, "badges need a stored score")

	_, err = runCLI(t, "adjust", "m1", "--config", cfg,
		"--type", "reward", "--amount", "1000", "--reason", "national quality award", "--by", "qa")
	require.NoError(t, err)

	out, err := runCLI(t, "score", "m1", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var score struct {
		Badges []struct {
			ID string `json:"id"`
		} `json:"badges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	require.NotEmpty(t, score.Badges, "the score change awards badges as a follow-on")

	out, err = runCLI(t, "badges", "m1", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var awarded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &awarded))
	assert.Empty(t, awarded, "badges already held are not awarded twice")

	out, err = runCLI(t, "badges", "m1", "--config", cfg, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "No new badges for m1")
}
