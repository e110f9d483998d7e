package config

import (
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// EnvPrefix is prepended to every environment override, e.g. LB_PORT.
const EnvPrefix = "LB"

var healthPathPattern = regexp.MustCompile(`^/`)

type ServerConfig struct {
	IP   string `mapstructure:"ip"`
	Port int    `mapstructure:"port"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config mirrors config.json. Durations are whole seconds.
type Config struct {
	IP                        string         `mapstructure:"ip"`
	Port                      int            `mapstructure:"port"`
	ActiveHealthCheckInterval int            `mapstructure:"active_health_check_interval"`
	ActiveHealthCheckPath     string         `mapstructure:"active_health_check_path"`
	ActiveHealthCheckTimeout  int            `mapstructure:"active_health_check_timeout"`
	RateLimitWindowSize       int            `mapstructure:"rate_limit_window_size"`
	MaxRequestsPerWindow      int            `mapstructure:"max_requests_per_window"`
	TrustForwardedFor         bool           `mapstructure:"trust_forwarded_for"`
	Servers                   []ServerConfig `mapstructure:"servers"`
	Environment               string         `mapstructure:"environment"`
	Logging                   LoggingConfig  `mapstructure:"logging"`
}

// Load reads the configuration from path, or from config.json in "." or
// "./config" when path is empty. LB_* environment variables override file
// values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("ip", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("active_health_check_interval", 10)
	v.SetDefault("active_health_check_path", "/healthcheck")
	v.SetDefault("active_health_check_timeout", 2)
	v.SetDefault("rate_limit_window_size", 60)
	v.SetDefault("max_requests_per_window", 100)
	v.SetDefault("trust_forwarded_for", false)
	v.SetDefault("environment", EnvDev)
	v.SetDefault("logging.level", LogLevelInfo)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IP, validation.Required, is.Host),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ActiveHealthCheckInterval, validation.Required, validation.Min(1)),
		validation.Field(&c.ActiveHealthCheckPath,
			validation.Required,
			validation.Match(healthPathPattern).Error("must start with /"),
		),
		validation.Field(&c.ActiveHealthCheckTimeout,
			validation.Required,
			validation.Min(1),
			validation.Max(c.ActiveHealthCheckInterval).Error("must not exceed active_health_check_interval"),
		),
		validation.Field(&c.RateLimitWindowSize, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxRequestsPerWindow, validation.Required, validation.Min(1)),
		validation.Field(&c.Servers, validation.Required, validation.Length(1, 0)),
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&c.Logging),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.IP, validation.Required, is.Host),
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

// ListenAddress is the host:port the proxy binds to.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

func (c *Config) HealthCheckInterval() time.Duration {
	return time.Duration(c.ActiveHealthCheckInterval) * time.Second
}

func (c *Config) HealthCheckTimeout() time.Duration {
	return time.Duration(c.ActiveHealthCheckTimeout) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSize) * time.Second
}
