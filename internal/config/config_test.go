package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("APP_GOOGLE__API_KEY", "test-key")
	t.Setenv("APP_SOLVER__TIME_BUDGET_SECONDS", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "test-key", cfg.Google.APIKey)
	require.Equal(t, 3, cfg.Solver.TimeBudgetSeconds)
	require.Equal(t, 100, cfg.Matrix.BatchSize)
	require.Equal(t, 30, cfg.Solver.SlackMinutes)
	require.Equal(t, 1440, cfg.Solver.HorizonMinutes)
	require.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", "legacy-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("matrix:\n  batch_size: 25\nsolver:\n  horizon_minutes: 600\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "legacy-key", cfg.Google.APIKey)
	require.Equal(t, 25, cfg.Matrix.BatchSize)
	require.Equal(t, 600, cfg.Solver.HorizonMinutes)
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "google.api_key")
}
