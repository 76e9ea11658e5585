package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	require.Equal(t, 60, cfg.Retrieval.RRFConstant)
	require.Equal(t, 2, cfg.Solver.MathRetries)
	require.Equal(t, PolicyManual, cfg.Driver.RateLimitPolicy)
	require.Equal(t, "C", cfg.Driver.FallbackLetter)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Retrieval, cfg.Retrieval)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
driver:
  rate_limit_policy: auto
  stop_file: HALT
retrieval:
  final_top_k: 3
llm:
  small:
    api_key: file-key
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	t.Setenv("MCQ_SMALL_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, PolicyAuto, cfg.Driver.RateLimitPolicy)
	require.Equal(t, "HALT", cfg.Driver.StopFile)
	require.Equal(t, 3, cfg.Retrieval.FinalTopK)
	// Environment beats the file.
	require.Equal(t, "env-key", cfg.LLM.Small.APIKey)
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver.RateLimitPolicy = "sometimes"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver.SandboxTimeout = "soon"
	require.Error(t, cfg.Validate())
}
