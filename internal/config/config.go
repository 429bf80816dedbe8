package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/slab-nesting/internal/importer"
	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultLogLevel       = "info"
	defaultEnvFile        = ".env"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > .env file > Defaults
type Config struct {
	Port                 string
	Slab                 nesting.SlabSpec
	Pieces               []nesting.PieceSpec
	DisplayExtent        float64
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// yamlConfig represents the YAML configuration file structure. Pointer fields
// distinguish "absent" from an explicit zero.
type yamlConfig struct {
	Port                 string              `yaml:"port"`
	Slab                 *nesting.SlabSpec   `yaml:"slab"`
	Pieces               []nesting.PieceSpec `yaml:"pieces"`
	DisplayExtent        *float64            `yaml:"display_extent"`
	LogLevel             string              `yaml:"log_level"`
	ShutdownGracePeriod  string              `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string              `yaml:"read_header_timeout"`
	WriteTimeout         string              `yaml:"write_timeout"`
	IdleTimeout          string              `yaml:"idle_timeout"`
	EnableRequestLogging *bool               `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit       `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	Slab           *string
	Pieces         []string
	DisplayExtent  *float64
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > .env file > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// .env values never replace variables already set in the environment
	if err := loadEnvFile(overrides); err != nil {
		return Config{}, err
	}
	applyEnvConfig(&cfg)

	// YAML overrides environment variables
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		Slab:                 storage.DefaultSlab(),
		DisplayExtent:        nesting.DefaultDisplayExtent,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadEnvFile loads an explicitly requested env file, or ./.env when present.
func loadEnvFile(overrides *CLIOverrides) error {
	path := defaultEnvFile
	explicit := overrides != nil && overrides.EnvFile != ""
	if explicit {
		path = overrides.EnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if yamlCfg.Slab != nil {
		cfg.Slab = *yamlCfg.Slab
	}

	if len(yamlCfg.Pieces) > 0 {
		cfg.Pieces = yamlCfg.Pieces
	}

	if yamlCfg.DisplayExtent != nil {
		cfg.DisplayExtent = *yamlCfg.DisplayExtent
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		raw    string
		target *time.Duration
		key    string
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod, "shutdown_grace_period"},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout, "read_header_timeout"},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout, "write_timeout"},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout, "idle_timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.target = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration. Malformed values
// are ignored.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if rawSlab := strings.TrimSpace(os.Getenv("SLAB")); rawSlab != "" {
		if slab, err := importer.ParseSlab(rawSlab); err == nil {
			cfg.Slab = slab
		}
	}

	if extent := strings.TrimSpace(os.Getenv("DISPLAY_EXTENT")); extent != "" {
		if value, err := strconv.ParseFloat(extent, 64); err == nil && value > 0 {
			cfg.DisplayExtent = value
		}
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.Slab != nil && *overrides.Slab != "" {
		slab, err := importer.ParseSlab(*overrides.Slab)
		if err != nil {
			return fmt.Errorf("parse slab: %w", err)
		}
		cfg.Slab = slab
	}

	if len(overrides.Pieces) > 0 {
		pieces := make([]nesting.PieceSpec, 0, len(overrides.Pieces))
		for _, raw := range overrides.Pieces {
			piece, err := importer.ParsePiece(raw)
			if err != nil {
				return fmt.Errorf("parse piece: %w", err)
			}
			pieces = append(pieces, piece)
		}
		cfg.Pieces = pieces
	}

	if overrides.DisplayExtent != nil && *overrides.DisplayExtent > 0 {
		cfg.DisplayExtent = *overrides.DisplayExtent
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if !(cfg.Slab.Width > 0 && cfg.Slab.Height > 0) {
		return fmt.Errorf("slab dimensions must be positive, got %vx%v", cfg.Slab.Width, cfg.Slab.Height)
	}
	if !(cfg.DisplayExtent > 0) || cfg.DisplayExtent > nesting.MaxDisplayExtent {
		return fmt.Errorf("display extent must be in (0, %v], got %v", nesting.MaxDisplayExtent, cfg.DisplayExtent)
	}
	for i, p := range cfg.Pieces {
		if !(p.Width > 0 && p.Height > 0) {
			return fmt.Errorf("piece %d (%q): dimensions must be positive", i+1, p.Name)
		}
	}
	return nil
}
