package config

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/railsim/internal/kinematics"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT", "NETWORK_FILE", "SERVICES_FILE",
		"ROUTE_STORE", "SQLITE_DATABASE", "DATABASE_URL", "TICK_INTERVAL_MS", "RATE_MULTIPLIER",
		"MAX_SPEED", "BASE_ACCELERATION", "BASE_DECELERATION", "EMERGENCY_DECELERATION",
		"DWELL_SECONDS", "PLATFORM_HALF_LENGTH", "ARRIVAL_TOLERANCE",
	} {
		t.Setenv(key, "")
	}
}

// chdir changes the working directory for the test and restores it on
// cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no .env files
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "sqlite", cfg.RouteStore)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, kinematics.DefaultConstant, cfg.Kinematics())
	assert.Equal(t, 30.0, cfg.TrainConfig().Dwell)
	assert.Equal(t, 50.0, cfg.RouteOptions().PlatformHalfLength)
	assert.True(t, cfg.IsDevelopment())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("TICK_INTERVAL_MS", "250")
	t.Setenv("MAX_SPEED", "33.3")
	t.Setenv("DWELL_SECONDS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 33.3, cfg.Vehicle().Kinem.VMax())
	assert.Equal(t, 30.0, cfg.DwellSeconds, "unparsable values fall back to the default")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RouteStore:            "sqlite",
			TickInterval:          time.Second,
			RateMultiplier:        1,
			MaxSpeed:              20,
			BaseAcceleration:      1,
			BaseDeceleration:      1,
			EmergencyDeceleration: 2,
			ArrivalTolerance:      5,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero speed", func(c *Config) { c.MaxSpeed = 0 }, "MAX_SPEED"},
		{"negative acceleration", func(c *Config) { c.BaseAcceleration = -1 }, "BASE_ACCELERATION"},
		{"soft emergency braking", func(c *Config) { c.EmergencyDeceleration = 0.5 }, "EMERGENCY_DECELERATION"},
		{"negative dwell", func(c *Config) { c.DwellSeconds = -1 }, "DWELL_SECONDS"},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }, "TICK_INTERVAL_MS"},
		{"postgres without url", func(c *Config) { c.RouteStore = "postgres" }, "DATABASE_URL"},
		{"unknown store", func(c *Config) { c.RouteStore = "redis" }, "ROUTE_STORE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	assert.True(t, cfg.Logger().Enabled(context.Background(), slog.LevelDebug))

	cfg = &Config{LogLevel: "bogus"}
	logger := cfg.Logger()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
