package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up by Load.
const FileName = "capacity_config.yaml"

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `yaml:"allowedOrigins" validate:"dive,required"`
}

// StoreConfig selects where the history ledger is persisted
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
	DSN    string `yaml:"dsn" validate:"required_unless=Driver memory"`
}

// ThresholdConfig holds the RAG utilization thresholds
type ThresholdConfig struct {
	Green float64 `yaml:"green" validate:"gt=0,ltfield=Amber"`
	Amber float64 `yaml:"amber" validate:"gt=0"`
}

// PeriodConfig holds the recurrence rule reporting periods start on
type PeriodConfig struct {
	RRule         string        `yaml:"rrule" validate:"required"`
	AutoSnapshot  bool          `yaml:"autoSnapshot"`
	CheckInterval time.Duration `yaml:"checkInterval" validate:"gte=0"`
}

// Config represents the application configuration
type Config struct {
	Server            ServerConfig    `yaml:"server"`
	Store             StoreConfig     `yaml:"store"`
	Thresholds        ThresholdConfig `yaml:"thresholds"`
	FallbackBufferFTE float64         `yaml:"fallbackBufferFTE" validate:"gte=0"`
	StateName         string          `yaml:"stateName" validate:"required"`
	Periods           PeriodConfig    `yaml:"periods"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Store:             StoreConfig{Driver: "memory"},
		Thresholds:        ThresholdConfig{Green: 0.75, Amber: 0.85},
		FallbackBufferFTE: 0.30,
		StateName:         capacity.DefaultStateName,
		Periods:           PeriodConfig{RRule: generic.DefaultPeriodRule, CheckInterval: time.Hour},
	}
}

// Load loads and validates the configuration for env.
// capacity_config.<env>.yaml is preferred over capacity_config.yaml; each is
// looked up in the current directory first, then in the user's home directory.
// With no file anywhere the defaults are returned.
func Load(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}
	if configPath == "" {
		cfg := Default()
		return cfg, Validate(cfg)
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// Keys missing from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := generic.NewPeriodCalendar(cfg.Periods.RRule); err != nil {
		return fmt.Errorf("invalid rrule in periods: %w", err)
	}

	return nil
}

// Settings converts the engine section of the configuration.
func (c *Config) Settings() capacity.Settings {
	return capacity.Settings{
		Thresholds: capacity.Thresholds{
			Green: generic.NewValue(c.Thresholds.Green),
			Amber: generic.NewValue(c.Thresholds.Amber),
		},
		FallbackBufferFTE: generic.NewValue(c.FallbackBufferFTE),
		StateName:         c.StateName,
	}
}

// Calendar builds the period calendar from the configured rule.
func (c *Config) Calendar() (*generic.PeriodCalendar, error) {
	return generic.NewPeriodCalendar(c.Periods.RRule)
}

// findConfigFile returns "" when no candidate exists.
func findConfigFile(env string) (string, error) {
	var names []string
	if env != "" {
		names = append(names, fmt.Sprintf("capacity_config.%s.yaml", env))
	}
	names = append(names, FileName)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		homeConfigPath := filepath.Join(homeDir, name)
		if _, err := os.Stat(homeConfigPath); err == nil {
			return homeConfigPath, nil
		}
	}

	return "", nil
}
