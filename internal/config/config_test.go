package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithDefaults(t *testing.T) {
	config, err := Load()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 10*time.Second, config.Server.ToolTimeout)
	assert.Equal(t, SourceFile, config.Data.Source)
	assert.Equal(t, "data", config.Data.Path)
	assert.Equal(t, DefaultDatasets(), config.Data.Datasets)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, 5432, config.Database.Port)
	assert.False(t, config.Redis.Enabled)
	assert.Equal(t, time.Hour, config.Redis.SnapshotTTL)
	assert.False(t, config.Telemetry.Enabled)
	assert.Equal(t, "stdout", config.Telemetry.Exporter)
	assert.Equal(t, 1.0, config.Telemetry.SampleRatio)
	assert.Equal(t, DefaultPolicy(), config.Policy)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATA_PATH", "/srv/datasets")
	t.Setenv("DATA_SOURCE", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://user:pass@db/procurement")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_SNAPSHOT_TTL", "15m")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("POLICY_BUY_WAIT_THRESHOLD_PCT", "3")
	t.Setenv("POLICY_URGENCY_BONUS", "2")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "error", config.LogLevel)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "/srv/datasets", config.Data.Path)
	assert.Equal(t, SourcePostgres, config.Data.Source)
	assert.Equal(t, "postgres://user:pass@db/procurement", config.Database.DatabaseURL)
	assert.True(t, config.Redis.Enabled)
	assert.Equal(t, "cache.internal", config.Redis.Host)
	assert.Equal(t, 15*time.Minute, config.Redis.SnapshotTTL)
	assert.Equal(t, "s3cret", config.Security.JWTSecret)
	assert.Equal(t, 3.0, config.Policy.BuyWaitThresholdPct)
	assert.Equal(t, 2, config.Policy.UrgencyBonus)
}

func TestLoad_FromConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
data:
  path: ./fixtures
  datasets:
    copper: "#42-Dataset_Copper"
policy:
  claim_tolerance_pct: 3.5
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./fixtures", config.Data.Path)
	assert.Equal(t, map[string]string{"copper": "#42-Dataset_Copper"}, config.Data.Datasets)
	assert.Equal(t, 3.5, config.Policy.ClaimTolerancePct)
	assert.Equal(t, 2.0, config.Policy.TrendThresholdPct)
}

func TestLoad_RejectsUnknownSource(t *testing.T) {
	t.Setenv("DATA_SOURCE", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown data source")
}

func TestLoad_RejectsHedgeAboveThreshold(t *testing.T) {
	t.Setenv("POLICY_HEDGE_LOWER_PCT", "2.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hedge_lower_pct")
}

func TestPolicyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *PolicyConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(p *PolicyConfig) {}},
		{name: "zero threshold", mutate: func(p *PolicyConfig) { p.BuyWaitThresholdPct = 0 }, wantErr: "buy_wait_threshold_pct"},
		{name: "negative trend", mutate: func(p *PolicyConfig) { p.TrendThresholdPct = -1 }, wantErr: "trend_threshold_pct"},
		{name: "negative bonus", mutate: func(p *PolicyConfig) { p.UrgencyBonus = -1 }, wantErr: "urgency_bonus"},
		{name: "empty pool", mutate: func(p *PolicyConfig) { p.ArgumentPool = 0 }, wantErr: "argument_pool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateTelemetry(t *testing.T) {
	config := Config{
		Data:      DataConfig{Source: SourceFile, Path: "data"},
		Telemetry: TelemetryConfig{Exporter: "zipkin", SampleRatio: 1},
		Policy:    DefaultPolicy(),
	}
	assert.Error(t, config.Validate())

	config.Telemetry.Exporter = "otlp"
	config.Telemetry.SampleRatio = 1.5
	assert.Error(t, config.Validate())

	config.Telemetry.SampleRatio = 0.25
	assert.NoError(t, config.Validate())
}
