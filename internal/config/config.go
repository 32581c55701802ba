package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rpggio/trackboard/internal/domain/project"
	"gopkg.in/yaml.v3"
)

// Config defines server and client configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Faults  FaultsConfig  `yaml:"faults"`
	Latency LatencyConfig `yaml:"latency"`
	Log     LogConfig     `yaml:"log"`
	MCP     MCPConfig     `yaml:"mcp"`
	Users   UsersConfig   `yaml:"users"`
	Client  ClientConfig  `yaml:"client"`
}

type ServerConfig struct {
	Host            string          `yaml:"host"`
	Port            int             `yaml:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" validate:"gte=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig limits requests per client address. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64       `yaml:"rps" validate:"gte=0"`
	Burst int           `yaml:"burst" validate:"gte=0"`
	Idle  time.Duration `yaml:"idle" validate:"gte=0"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory sqlite"`
	DSN     string `yaml:"dsn" validate:"required_if=Backend sqlite"`
	Seed    bool   `yaml:"seed"`
}

type FaultsConfig struct {
	Enabled bool    `yaml:"enabled"`
	List    float64 `yaml:"list" validate:"gte=0,lte=1"`
	Create  float64 `yaml:"create" validate:"gte=0,lte=1"`
	Update  float64 `yaml:"update" validate:"gte=0,lte=1"`
	Delete  float64 `yaml:"delete" validate:"gte=0,lte=1"`
}

// Rates returns per-operation failure probabilities, or nil when faults are disabled.
func (f FaultsConfig) Rates() map[project.Operation]float64 {
	if !f.Enabled {
		return nil
	}
	return map[project.Operation]float64{
		project.OpList:   f.List,
		project.OpCreate: f.Create,
		project.OpUpdate: f.Update,
		project.OpDelete: f.Delete,
	}
}

type LatencyConfig struct {
	List   time.Duration `yaml:"list" validate:"gte=0"`
	Create time.Duration `yaml:"create" validate:"gte=0"`
	Update time.Duration `yaml:"update" validate:"gte=0"`
	Delete time.Duration `yaml:"delete" validate:"gte=0"`
}

func (l LatencyConfig) Durations() map[project.Operation]time.Duration {
	return map[project.Operation]time.Duration{
		project.OpList:   l.List,
		project.OpCreate: l.Create,
		project.OpUpdate: l.Update,
		project.OpDelete: l.Delete,
	}
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel converts Level to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MCPConfig selects how the MCP server is exposed.
type MCPConfig struct {
	Mode string `yaml:"mode" validate:"oneof=http stdio off"`
}

type UsersConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

type ClientConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	rates := project.DefaultFaultRates()
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				RPS:   20,
				Burst: 40,
				Idle:  5 * time.Minute,
			},
		},
		Store: StoreConfig{
			Backend: "memory",
			DSN:     ":memory:",
			Seed:    true,
		},
		Faults: FaultsConfig{
			Enabled: true,
			List:    rates[project.OpList],
			Create:  rates[project.OpCreate],
			Update:  rates[project.OpUpdate],
			Delete:  rates[project.OpDelete],
		},
		Latency: LatencyConfig{
			List:   200 * time.Millisecond,
			Create: 300 * time.Millisecond,
			Update: 200 * time.Millisecond,
			Delete: 150 * time.Millisecond,
		},
		Log: LogConfig{Level: "info"},
		MCP: MCPConfig{Mode: "http"},
		Users: UsersConfig{
			BaseURL: "https://jsonplaceholder.typicode.com",
			Timeout: 15 * time.Second,
			TTL:     10 * time.Minute,
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, an optional
// .env file and TRACKBOARD_* environment variables, in that order of precedence.
func Load() (Config, error) {
	cfg := Default()

	envFile := os.Getenv("TRACKBOARD_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	if path := os.Getenv("TRACKBOARD_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg for out-of-range or unknown values.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("TRACKBOARD_SERVER_HOST", &cfg.Server.Host)
	num("TRACKBOARD_SERVER_PORT", &cfg.Server.Port)
	duration("TRACKBOARD_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	float("TRACKBOARD_RATE_LIMIT_RPS", &cfg.Server.RateLimit.RPS)
	num("TRACKBOARD_RATE_LIMIT_BURST", &cfg.Server.RateLimit.Burst)

	str("TRACKBOARD_STORE_BACKEND", &cfg.Store.Backend)
	str("TRACKBOARD_STORE_DSN", &cfg.Store.DSN)
	boolean("TRACKBOARD_STORE_SEED", &cfg.Store.Seed)

	boolean("TRACKBOARD_FAULTS_ENABLED", &cfg.Faults.Enabled)
	float("TRACKBOARD_FAULT_RATE_LIST", &cfg.Faults.List)
	float("TRACKBOARD_FAULT_RATE_CREATE", &cfg.Faults.Create)
	float("TRACKBOARD_FAULT_RATE_UPDATE", &cfg.Faults.Update)
	float("TRACKBOARD_FAULT_RATE_DELETE", &cfg.Faults.Delete)

	duration("TRACKBOARD_LATENCY_LIST", &cfg.Latency.List)
	duration("TRACKBOARD_LATENCY_CREATE", &cfg.Latency.Create)
	duration("TRACKBOARD_LATENCY_UPDATE", &cfg.Latency.Update)
	duration("TRACKBOARD_LATENCY_DELETE", &cfg.Latency.Delete)

	str("TRACKBOARD_LOG_LEVEL", &cfg.Log.Level)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	str("TRACKBOARD_MCP_MODE", &cfg.MCP.Mode)

	str("TRACKBOARD_USERS_BASE_URL", &cfg.Users.BaseURL)
	duration("TRACKBOARD_USERS_TIMEOUT", &cfg.Users.Timeout)
	duration("TRACKBOARD_USERS_TTL", &cfg.Users.TTL)

	str("TRACKBOARD_API_URL", &cfg.Client.BaseURL)
	duration("TRACKBOARD_CLIENT_TIMEOUT", &cfg.Client.Timeout)

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
