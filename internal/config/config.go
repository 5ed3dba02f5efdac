package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Workout   WorkoutConfig   `yaml:"workout"`
	Import    ImportConfig    `yaml:"import"`
	Health    HealthConfig    `yaml:"health"`
	Local     LocalConfig     `yaml:"local"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// WorkoutConfig holds session defaults used until the user saves settings.
type WorkoutConfig struct {
	RestTimerSeconds int `yaml:"rest_timer_seconds"`
}

type ImportConfig struct {
	WeightUnit string `yaml:"weight_unit"`
	BatchSize  int    `yaml:"batch_size"`
}

type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LocalConfig points the command-line tools at an on-device SQLite store.
type LocalConfig struct {
	Path string `yaml:"path"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads the server config from a YAML file, then a .env file next to
// it (if any), then applies environment variable overrides. Env vars use the
// prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_DB_HOST, LIFTLOG_DB_PORT, LIFTLOG_DB_NAME,
//	LIFTLOG_DB_USER, LIFTLOG_DB_PASSWORD, LIFTLOG_DB_SSLMODE,
//	LIFTLOG_AUTH_API_KEY, LIFTLOG_TAILSCALE_ENABLED, LIFTLOG_TAILSCALE_HOSTNAME,
//	LIFTLOG_REST_TIMER_SECONDS, LIFTLOG_IMPORT_WEIGHT_UNIT, LIFTLOG_IMPORT_BATCH_SIZE,
//	LIFTLOG_HEALTH_ENABLED, LIFTLOG_LOCAL_PATH
func Load(path string) (*Config, error) {
	cfg, err := read(path, false)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadLocal is Load for the command-line tools. A missing file is allowed
// and only the local and import sections are checked.
func LoadLocal(path string) (*Config, error) {
	cfg, err := read(path, true)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateImport(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func read(path string, optional bool) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Variables already set in the environment win over the .env file.
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("LIFTLOG_SERVER_HOST", &cfg.Server.Host)
	setInt("LIFTLOG_SERVER_PORT", &cfg.Server.Port)
	setString("LIFTLOG_DB_HOST", &cfg.Database.Host)
	setInt("LIFTLOG_DB_PORT", &cfg.Database.Port)
	setString("LIFTLOG_DB_NAME", &cfg.Database.Name)
	setString("LIFTLOG_DB_USER", &cfg.Database.User)
	setString("LIFTLOG_DB_PASSWORD", &cfg.Database.Password)
	setString("LIFTLOG_DB_SSLMODE", &cfg.Database.SSLMode)
	setString("LIFTLOG_AUTH_API_KEY", &cfg.Auth.APIKey)
	setBool("LIFTLOG_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	setString("LIFTLOG_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	setInt("LIFTLOG_REST_TIMER_SECONDS", &cfg.Workout.RestTimerSeconds)
	setString("LIFTLOG_IMPORT_WEIGHT_UNIT", &cfg.Import.WeightUnit)
	setInt("LIFTLOG_IMPORT_BATCH_SIZE", &cfg.Import.BatchSize)
	setBool("LIFTLOG_HEALTH_ENABLED", &cfg.Health.Enabled)
	setString("LIFTLOG_LOCAL_PATH", &cfg.Local.Path)
}

func (c *Config) applyDefaults() {
	if c.Workout.RestTimerSeconds == 0 {
		c.Workout.RestTimerSeconds = 90
	}
	if c.Import.WeightUnit == "" {
		c.Import.WeightUnit = "kg"
	}
	if c.Import.BatchSize == 0 {
		c.Import.BatchSize = 500
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "liftlog"
	}
	if c.Local.Path == "" {
		c.Local.Path = "liftlog.db"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	return c.validateImport()
}

func (c *Config) validateImport() error {
	if c.Workout.RestTimerSeconds < 0 {
		return fmt.Errorf("workout.rest_timer_seconds must not be negative")
	}
	if c.Import.WeightUnit != "kg" && c.Import.WeightUnit != "lb" {
		return fmt.Errorf("import.weight_unit must be kg or lb, got %q", c.Import.WeightUnit)
	}
	if c.Import.BatchSize < 0 {
		return fmt.Errorf("import.batch_size must not be negative")
	}
	return nil
}
