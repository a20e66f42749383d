// Package config provides Viper-based configuration loading for the simulation daemon.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SimulationConfig holds round-stepping and content settings.
type SimulationConfig struct {
	// RoundInterval is the wall-clock duration of one simulation round.
	RoundInterval time.Duration `mapstructure:"round_interval"`
	// EffectsDir is the directory of effect-kind YAML definitions.
	EffectsDir string `mapstructure:"effects_dir"`
	// ScriptsDir is the directory of Lua effect scripts; empty disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// InstructionLimit caps Lua opcodes per hook call; 0 uses the scripting default.
	InstructionLimit int `mapstructure:"instruction_limit"`
	// SaveInterval is how often all entity snapshots are persisted; 0 saves only on shutdown.
	SaveInterval time.Duration `mapstructure:"save_interval"`
	// Seed seeds the simulation random source; 0 selects crypto/rand.
	Seed int64 `mapstructure:"seed"`
}

// StorageConfig selects the snapshot persistence backend.
type StorageConfig struct {
	// Backend is one of "postgres", "sqlite", or "none".
	Backend string `mapstructure:"backend"`
	// SQLitePath is the save file used by the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path"`
	// SaveConcurrency bounds concurrent entity writes during a save.
	SaveConcurrency int `mapstructure:"save_concurrency"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// HealthConfig holds the gRPC health endpoint settings.
type HealthConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
func (h HealthConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// NotifyConfig holds the websocket notification stream settings.
type NotifyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	// Buffer is the per-client outbound event queue length.
	Buffer int `mapstructure:"buffer"`
	// OriginPatterns lists extra websocket Origin hosts to accept. Same-host
	// origins are always accepted.
	OriginPatterns []string `mapstructure:"origin_patterns"`
}

// Addr returns the "host:port" listen address.
func (n NotifyConfig) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Health     HealthConfig     `mapstructure:"health"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePort("health.port", c.Health.Port); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Notify.Enabled {
		if err := validatePort("notify.port", c.Notify.Port); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.RoundInterval <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.round_interval must be > 0, got %s", s.RoundInterval))
	}
	if s.EffectsDir == "" {
		errs = append(errs, "simulation.effects_dir must not be empty")
	}
	if s.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("simulation.instruction_limit must be >= 0, got %d", s.InstructionLimit))
	}
	if s.SaveInterval < 0 {
		errs = append(errs, "simulation.save_interval must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	validBackends := map[string]bool{"postgres": true, "sqlite": true, "none": true}
	if !validBackends[s.Backend] {
		return fmt.Errorf("storage.backend must be one of [postgres, sqlite, none], got %q", s.Backend)
	}
	if s.Backend == "sqlite" && s.SQLitePath == "" {
		return errors.New("storage.sqlite_path must not be empty when storage.backend is sqlite")
	}
	if s.SaveConcurrency < 1 {
		return fmt.Errorf("storage.save_concurrency must be >= 1, got %d", s.SaveConcurrency)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validatePort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be 1-65535, got %d", key, port)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with VITALS_ prefix
	v.SetEnvPrefix("VITALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance carrying only the built-in defaults.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.round_interval", "1s")
	v.SetDefault("simulation.effects_dir", "content/effects")
	v.SetDefault("simulation.scripts_dir", "content/scripts/effects")
	v.SetDefault("simulation.instruction_limit", 0)
	v.SetDefault("simulation.save_interval", "1m")
	v.SetDefault("simulation.seed", 0)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.sqlite_path", "vitals.db")
	v.SetDefault("storage.save_concurrency", 4)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "vitals")
	v.SetDefault("database.password", "vitals")
	v.SetDefault("database.name", "vitals")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("health.host", "127.0.0.1")
	v.SetDefault("health.port", 50061)

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.host", "127.0.0.1")
	v.SetDefault("notify.port", 8089)
	v.SetDefault("notify.buffer", 64)
	v.SetDefault("notify.origin_patterns", []string{})
}
