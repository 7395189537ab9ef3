// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cxd309/railsim/internal/kinematics"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/train"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Static input
	NetworkFile  string
	ServicesFile string

	// Route store
	RouteStore   string // "sqlite" or "postgres"
	DatabasePath string
	DatabaseURL  string

	// Simulation clock
	TickInterval   time.Duration
	RateMultiplier float64

	// Kinematics and stops (SI units)
	MaxSpeed              float64
	BaseAcceleration      float64
	BaseDeceleration      float64
	EmergencyDeceleration float64
	DwellSeconds          float64
	PlatformHalfLength    float64
	ArrivalTolerance      float64
}

// Load reads .env (if present) and then the environment, falling back to
// sensible defaults.
func Load() *Config {
	// Base .env first, then .env.local overriding it for local development.
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	return &Config{
		Port:      getEnv("PORT", "8081"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		NetworkFile:  getEnv("NETWORK_FILE", "data/network.json"),
		ServicesFile: getEnv("SERVICES_FILE", "data/services.json"),

		RouteStore:   getEnv("ROUTE_STORE", "sqlite"),
		DatabasePath: getEnv("SQLITE_DATABASE", "data/routes.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		TickInterval:   time.Duration(getEnvInt("TICK_INTERVAL_MS", 100)) * time.Millisecond,
		RateMultiplier: getEnvFloat("RATE_MULTIPLIER", 1),

		MaxSpeed:              getEnvFloat("MAX_SPEED", kinematics.DefaultConstant.VMaxVal),
		BaseAcceleration:      getEnvFloat("BASE_ACCELERATION", kinematics.DefaultConstant.AAcc),
		BaseDeceleration:      getEnvFloat("BASE_DECELERATION", kinematics.DefaultConstant.ADcc),
		EmergencyDeceleration: getEnvFloat("EMERGENCY_DECELERATION", kinematics.DefaultConstant.AEmergency),
		DwellSeconds:          getEnvFloat("DWELL_SECONDS", 30),
		PlatformHalfLength:    getEnvFloat("PLATFORM_HALF_LENGTH", route.DefaultPlatformHalfLength),
		ArrivalTolerance:      getEnvFloat("ARRIVAL_TOLERANCE", train.DefaultArrivalTolerance),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks that the configuration can drive a simulation.
func (c *Config) Validate() error {
	var errs []error
	for _, v := range []struct {
		key   string
		value float64
	}{
		{"MAX_SPEED", c.MaxSpeed},
		{"BASE_ACCELERATION", c.BaseAcceleration},
		{"BASE_DECELERATION", c.BaseDeceleration},
		{"EMERGENCY_DECELERATION", c.EmergencyDeceleration},
		{"ARRIVAL_TOLERANCE", c.ArrivalTolerance},
	} {
		if v.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", v.key))
		}
	}
	if c.EmergencyDeceleration < c.BaseDeceleration {
		errs = append(errs, errors.New("EMERGENCY_DECELERATION must not be below BASE_DECELERATION"))
	}
	if c.DwellSeconds < 0 || c.PlatformHalfLength < 0 || c.RateMultiplier < 0 {
		errs = append(errs, errors.New("DWELL_SECONDS, PLATFORM_HALF_LENGTH and RATE_MULTIPLIER must not be negative"))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("TICK_INTERVAL_MS must be positive"))
	}
	switch c.RouteStore {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres route store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ROUTE_STORE %q", c.RouteStore))
	}
	return errors.Join(errs...)
}

// Kinematics returns the default motion model.
func (c *Config) Kinematics() kinematics.ConstantAcceleration {
	return kinematics.ConstantAcceleration{
		AAcc:       c.BaseAcceleration,
		ADcc:       c.BaseDeceleration,
		AEmergency: c.EmergencyDeceleration,
		VMaxVal:    c.MaxSpeed,
	}
}

// Vehicle returns the default vehicle.
func (c *Config) Vehicle() train.Vehicle {
	return train.Vehicle{Name: "default", Kinem: c.Kinematics()}
}

// TrainConfig returns the default stop behaviour.
func (c *Config) TrainConfig() train.Config {
	return train.Config{Dwell: c.DwellSeconds, ArrivalTolerance: c.ArrivalTolerance}
}

// RouteOptions returns the options routes are built with.
func (c *Config) RouteOptions() route.Options {
	return route.Options{PlatformHalfLength: c.PlatformHalfLength}
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
