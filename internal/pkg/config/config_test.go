package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("SIM_CONFIDENCE_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 0.0, cfg.Simulation.FeeRate)
	assert.Equal(t, 0.0, cfg.Simulation.RiskFreeRate)
	assert.Equal(t, 0.95, cfg.Simulation.ConfidenceLevel)
	assert.Equal(t, 12, cfg.Simulation.RollingWindow)
	assert.Equal(t, "ACWI", cfg.MarketData.BenchmarkTicker)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SIM_FEE_RATE", "0.0075")
	t.Setenv("CACHE_TTL", "90m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_FILE_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.0075, cfg.Simulation.FeeRate)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Logging.FileEnabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"postgres without url", func(c *Config) { c.Cache.Backend = "postgres"; c.Database.URL = "" }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"unknown source", func(c *Config) { c.MarketData.Source = "bloomberg" }},
		{"negative fee", func(c *Config) { c.Simulation.FeeRate = -0.01 }},
		{"confidence of one", func(c *Config) { c.Simulation.ConfidenceLevel = 1 }},
		{"tiny rolling window", func(c *Config) { c.Simulation.RollingWindow = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
