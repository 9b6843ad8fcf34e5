package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the dashboard.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	// Folder layout: <base>/<date>/<device-cell>/<serial>/<thermal_subdir>/<file_name>
	BasePathTemplate string   `yaml:"base_path_template"`
	ThermalSubdir    string   `yaml:"thermal_subdir"`
	FileName         string   `yaml:"file_name"`
	DefaultHosts     []string `yaml:"default_hosts"`

	SessionTTL time.Duration `yaml:"session_ttl"`

	Chart ChartConfig `yaml:"chart"`
}

// ChartConfig sizes the rendered figure.
type ChartConfig struct {
	WidthIn  float64 `yaml:"width_in"`
	HeightIn float64 `yaml:"height_in"`
	DPI      int     `yaml:"dpi"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:       ":8501",
		ReadTimeout:      10 * time.Second,
		WriteTimeout:     60 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		LogLevel:         "info",
		BasePathTemplate: "//{host}/c/data/ammonite",
		ThermalSubdir:    "thermal_data",
		FileName:         "AmPsI2I.csv",
		DefaultHosts:     []string{"10.x.x.x"},
		SessionTTL:       12 * time.Hour,
		Chart: ChartConfig{
			WidthIn:  16,
			HeightIn: 10,
			DPI:      96,
		},
	}
}

// Load reads defaults, then the YAML file at path (if path is non-empty),
// then THERMALDASH_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("THERMALDASH_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.ListenAddr = getEnv("THERMALDASH_LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = strings.ToLower(getEnv("THERMALDASH_LOG_LEVEL", c.LogLevel))
	c.BasePathTemplate = getEnv("THERMALDASH_BASE_PATH_TEMPLATE", c.BasePathTemplate)
	c.ThermalSubdir = getEnv("THERMALDASH_THERMAL_SUBDIR", c.ThermalSubdir)
	c.FileName = getEnv("THERMALDASH_FILE_NAME", c.FileName)
	c.DefaultHosts = getEnvList("THERMALDASH_DEFAULT_HOSTS", c.DefaultHosts)

	var err error
	if c.ReadTimeout, err = getEnvDuration("THERMALDASH_READ_TIMEOUT", c.ReadTimeout); err != nil {
		return err
	}
	if c.WriteTimeout, err = getEnvDuration("THERMALDASH_WRITE_TIMEOUT", c.WriteTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = getEnvDuration("THERMALDASH_SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.SessionTTL, err = getEnvDuration("THERMALDASH_SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	if c.Chart.DPI, err = getEnvInt("THERMALDASH_CHART_DPI", c.Chart.DPI); err != nil {
		return err
	}
	return nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if !strings.Contains(c.BasePathTemplate, "{host}") {
		errs = append(errs, fmt.Errorf("base_path_template %q must contain {host}", c.BasePathTemplate))
	}
	if strings.TrimSpace(c.FileName) == "" {
		errs = append(errs, errors.New("file_name is required"))
	}
	if c.Chart.WidthIn <= 0 || c.Chart.HeightIn <= 0 {
		errs = append(errs, fmt.Errorf("chart size must be positive, got %gx%g", c.Chart.WidthIn, c.Chart.HeightIn))
	}
	if c.Chart.DPI <= 0 || c.Chart.DPI > 600 {
		errs = append(errs, fmt.Errorf("chart dpi must be in 1..600, got %d", c.Chart.DPI))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
