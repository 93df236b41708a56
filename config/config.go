package config

import (
	"log/slog"
	"net"
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

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

// MeshConfig holds the resilience-layer constants. They are fixed at
// construction; there is no per-call override.
type MeshConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	OpenTimeout      string `mapstructure:"open_timeout"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	BaseDelay        string `mapstructure:"base_delay"`
}

// BalancingConfig tunes the simulated load-balancing shim: the random
// per-request delay range and the number of replica labels to pick from.
type BalancingConfig struct {
	MinDelay string `mapstructure:"min_delay"`
	MaxDelay string `mapstructure:"max_delay"`
	Replicas int    `mapstructure:"replicas"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Path        string `mapstructure:"path"`
	Replicas    int    `mapstructure:"replicas"`
	Description string `mapstructure:"description"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Mesh        MeshConfig        `mapstructure:"mesh"`
	Balancing   BalancingConfig   `mapstructure:"balancing"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Services    []ServiceConfig   `mapstructure:"services"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("mesh.failure_threshold", 3)
	viper.SetDefault("mesh.open_timeout", "30s")
	viper.SetDefault("mesh.max_attempts", 3)
	viper.SetDefault("mesh.base_delay", "1s")
	viper.SetDefault("balancing.min_delay", "10ms")
	viper.SetDefault("balancing.max_delay", "100ms")
	viper.SetDefault("balancing.replicas", 3)
	viper.SetDefault("health_check.interval", "10s")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("services", []map[string]any{
		{"name": "catalog", "path": "/catalog", "replicas": 3, "description": "Product catalog service"},
		{"name": "cart", "path": "/cart", "replicas": 2, "description": "Shopping cart service"},
		{"name": "order", "path": "/order", "replicas": 2, "description": "Order processing service"},
	})

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
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
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Mesh,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MeshConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MeshConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&mc.OpenTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&mc.MaxAttempts,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&mc.BaseDelay,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Balancing,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BalancingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BalancingConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.MinDelay,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&bc.MaxDelay,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&bc.Replicas,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Services,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateServiceConfig)),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServiceConfig(value interface{}) error {
	service, ok := value.(ServiceConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServiceConfig")
	}

	if service.Name == "" {
		return validation.NewError("validation_empty_name", "service name cannot be empty")
	}

	if !strings.HasPrefix(service.Path, "/") {
		return validation.NewError("validation_invalid_path", "service path must start with /")
	}

	if service.Replicas < 1 {
		return validation.NewError("validation_invalid_replicas", "replicas must be at least 1")
	}

	return nil
}
