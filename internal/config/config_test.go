package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into a fresh directory so Load's config file
// search is isolated from the repository tree.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 3.0, cfg.Cleansing.ZScoreThreshold)
	assert.Equal(t, 1.5, cfg.Cleansing.IQRMultiplier)
	assert.Equal(t, 7, cfg.Forecast.HorizonDays)
	assert.NotEmpty(t, cfg.Data.TimestampFormats)
	assert.NoError(t, cfg.validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero zscore threshold",
			mutate:  func(c *Config) { c.Cleansing.ZScoreThreshold = 0 },
			wantErr: "zscore threshold",
		},
		{
			name:    "negative iqr multiplier",
			mutate:  func(c *Config) { c.Cleansing.IQRMultiplier = -2 },
			wantErr: "iqr multiplier",
		},
		{
			name:    "zero horizon",
			mutate:  func(c *Config) { c.Forecast.HorizonDays = 0 },
			wantErr: "forecast horizon",
		},
		{
			name:    "confidence out of range",
			mutate:  func(c *Config) { c.Forecast.Confidence = 1.5 },
			wantErr: "forecast confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadAppliesFileValues(t *testing.T) {
	dir := chdirTemp(t)
	yaml := `server:
  port: 9090
data:
  input_dir: /mnt/meters
cleansing:
  zscore_threshold: 2.0
  max_gap: 6
forecast:
  horizon_days: 14
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/mnt/meters", cfg.Data.InputDir)
	assert.Equal(t, 2.0, cfg.Cleansing.ZScoreThreshold)
	assert.Equal(t, 6, cfg.Cleansing.MaxGap)
	assert.Equal(t, 14, cfg.Forecast.HorizonDays)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Fields the file does not mention keep their defaults.
	assert.Equal(t, 1.5, cfg.Cleansing.IQRMultiplier)
	assert.Equal(t, 7, cfg.Forecast.SeasonalPeriod)
	assert.Equal(t, "reports", cfg.Paths.ReportsDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	yaml := "server:\n  port: 9090\ncleansing:\n  max_gap: 6\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("ENERGYLENS_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Cleansing.MaxGap)
}

func TestLoadWithoutFileUsesEnvAndDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENERGYLENS_FORECAST_HORIZON_DAYS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Forecast.HorizonDays)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestMergeConfigsEnvWinsOnlyWhenSet(t *testing.T) {
	env := envconfigDefaults()
	env.Server.Port = 7070

	var file Config
	file.Server.Port = 9090
	file.Logging.Level = "debug"
	file.Data.TimestampFormats = []string{"2006-01-02"}

	out := mergeConfigs(file, env)

	assert.Equal(t, 7070, out.Server.Port)
	assert.Equal(t, "debug", out.Logging.Level)
	assert.Equal(t, []string{"2006-01-02"}, out.Data.TimestampFormats)
	assert.Equal(t, env.Cleansing.ZScoreThreshold, out.Cleansing.ZScoreThreshold)
}

func TestValidateForcesJSONFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestNewPaths(t *testing.T) {
	cfg := Default()
	paths := NewPaths("/srv/energylens", cfg.Paths, cfg.Data)

	assert.Equal(t, filepath.Join("/srv/energylens", "data"), paths.DataDir)
	assert.Equal(t, filepath.Join("/srv/energylens", "data", "raw"), paths.RawDir)
	assert.Equal(t, filepath.Join("/srv/energylens", "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join("/srv/energylens", "reports", "forecast.csv"), paths.ReportPath("forecast.csv"))
}

func TestNewPathsAbsoluteOverride(t *testing.T) {
	cfg := Default()
	cfg.Data.InputDir = "/mnt/meters"
	paths := NewPaths("/srv/energylens", cfg.Paths, cfg.Data)

	assert.Equal(t, "/mnt/meters", paths.RawDir)
}

func TestEnsureDirectories(t *testing.T) {
	cfg := Default()
	paths := NewPaths(t.TempDir(), cfg.Paths, cfg.Data)

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.RawDir)
	assert.DirExists(t, paths.ReportsDir)
}
