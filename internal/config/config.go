package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath     = "configs/config.yaml"
	DefaultBaseURL  = "http://localhost:8080/api"
	DefaultTimezone = "Asia/Ho_Chi_Minh"

	EnvConfigPath = "PORTAL_CONFIG_PATH"
	EnvAPIURL     = "PORTAL_API_URL"
)

type Config struct {
	API struct {
		BaseURL         string  `yaml:"base_url" validate:"required,url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds" validate:"min=1"`
		RateLimit       float64 `yaml:"rate_limit" validate:"min=0"`
		RateBurst       int     `yaml:"rate_burst" validate:"min=1"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds" validate:"min=0"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"min=0"`
	} `yaml:"redis"`

	Session struct {
		Backend string `yaml:"backend" validate:"oneof=memory file sqlite redis"`
		Path    string `yaml:"path" validate:"required_if=Backend file,required_if=Backend sqlite"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"session"`

	Refresh struct {
		DashboardInterval time.Duration `yaml:"dashboard_interval" validate:"min=1s"`
		Tick              time.Duration `yaml:"tick" validate:"min=1s"`
	} `yaml:"refresh"`

	Timezone string `yaml:"timezone" validate:"required,timezone"`

	Logging struct {
		Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port" validate:"min=0,max=65535"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled      bool    `yaml:"enabled"`
		ServiceName  string  `yaml:"service_name"`
		OTLPEndpoint string  `yaml:"otlp_endpoint" validate:"required_if=Enabled true"`
		SampleRatio  float64 `yaml:"sample_ratio" validate:"min=0,max=1"`
	} `yaml:"tracing"`

	Audit struct {
		Path string `yaml:"path"`
	} `yaml:"audit"`
}

// Default returns a configuration that works against a local server with
// an in-memory session.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads .env (if present), then the YAML file at path with ${VAR}
// placeholders expanded. An empty path falls back to PORTAL_CONFIG_PATH and
// then DefaultPath; a missing default file yields Default().
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path, explicit = DefaultPath, false
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyDefaults()
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.API.BaseURL = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, p := range []string{cfg.sessionFile(), cfg.Audit.Path} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 15
	}
	if c.API.RateBurst <= 0 {
		c.API.RateBurst = 5
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Refresh.DashboardInterval <= 0 {
		c.Refresh.DashboardInterval = 5 * time.Minute
	}
	if c.Refresh.Tick <= 0 {
		c.Refresh.Tick = 30 * time.Second
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "counselportal"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Session.Backend == "redis" && c.Redis.Address == "" {
		return errors.New("invalid config: session backend redis needs redis.address")
	}
	return nil
}

func (c *Config) sessionFile() string {
	if c.Session.Backend == "file" || c.Session.Backend == "sqlite" {
		return c.Session.Path
	}
	return ""
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}
