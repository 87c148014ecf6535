package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ride-coordinator/internal/coordinator"
)

// Backend kinds selectable with `backend:` or RIDE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Backend  string `yaml:"backend"`
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
		SSLMode  string `yaml:"sslmode"`
		MaxConns int32  `yaml:"max_conns"`
		Seed     bool   `yaml:"seed"`
	} `yaml:"database"`
	SQLite struct {
		Path string `yaml:"path"`
		Seed bool   `yaml:"seed"`
	} `yaml:"sqlite"`
	RabbitMQ struct {
		Enabled  *bool  `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`
	Redis struct {
		Addr        string        `yaml:"addr"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		EarningsTTL time.Duration `yaml:"earnings_ttl"`
	} `yaml:"redis"`
	Services struct {
		CoordinatorServicePort int `yaml:"coordinator_service"`
	} `yaml:"services"`
	JWT struct {
		SecretKey string        `yaml:"secret_key"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"jwt"`
	Coordinator struct {
		ConsistencyPolicy string        `yaml:"consistency_policy"`
		RetryAttempts     int           `yaml:"retry_attempts"`
		RetryBackoff      time.Duration `yaml:"retry_backoff"`
		CompletionGrace   time.Duration `yaml:"completion_grace"`
		DemoFallback      *bool         `yaml:"demo_fallback"`
	} `yaml:"coordinator"`
}

// LoadFromFile loads config from a YAML file to a Config struct, applies
// defaults and environment overrides, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// EventsEnabled reports whether status events go to RabbitMQ.
func (c *Config) EventsEnabled() bool {
	return c.RabbitMQ.Enabled == nil || *c.RabbitMQ.Enabled
}

// CacheEnabled reports whether earnings snapshots are cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}

// DemoFallback reports whether demo accounts and mock data are served when
// the backend cannot be reached.
func (c *Config) DemoFallback() bool {
	return c.Coordinator.DemoFallback == nil || *c.Coordinator.DemoFallback
}

// applyEnvOverrides lets secrets and the backend choice come from the environment.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RIDE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("RIDE_JWT_SECRET"); v != "" {
		cfg.JWT.SecretKey = v
	}
	if v := os.Getenv("RIDE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("RIDE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = BackendPostgres
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}

	// SQLite
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "ride-coordinator.db"
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.EarningsTTL == 0 {
		cfg.Redis.EarningsTTL = time.Minute
	}

	// Services
	if cfg.Services.CoordinatorServicePort == 0 {
		cfg.Services.CoordinatorServicePort = 3000
	}

	// JWT
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 24 * time.Hour
	}
	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}

	// Coordinator
	if cfg.Coordinator.ConsistencyPolicy == "" {
		cfg.Coordinator.ConsistencyPolicy = coordinator.PolicyRevert.String()
	}
	if cfg.Coordinator.RetryAttempts == 0 {
		cfg.Coordinator.RetryAttempts = 3
	}
	if cfg.Coordinator.RetryBackoff == 0 {
		cfg.Coordinator.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.Coordinator.CompletionGrace == 0 {
		cfg.Coordinator.CompletionGrace = 3 * time.Second
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	switch c.Backend {
	case BackendPostgres:
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			problems = append(problems, "database.port must be in 1..65535")
		}
		if c.Database.User == "" {
			problems = append(problems, "database.user is required")
		}
		if c.Database.Password == "" {
			problems = append(problems, "database.password is required")
		}
		if c.Database.Name == "" {
			problems = append(problems, "database.database is required")
		}
		if c.Database.MaxConns < 1 {
			problems = append(problems, "database.max_conns must be positive")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			problems = append(problems, "sqlite.path is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("backend must be %q or %q", BackendPostgres, BackendSQLite))
	}

	// RabbitMQ
	if c.EventsEnabled() {
		if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
			problems = append(problems, "rabbitmq.port must be in 1..65535")
		}
		if c.RabbitMQ.User == "" {
			problems = append(problems, "rabbitmq.user is required")
		}
		if c.RabbitMQ.Password == "" {
			problems = append(problems, "rabbitmq.password is required")
		}
	}

	// Redis
	if c.Redis.DB < 0 {
		problems = append(problems, "redis.db cannot be negative")
	}
	if c.Redis.EarningsTTL < 0 {
		problems = append(problems, "redis.earnings_ttl cannot be negative")
	}

	// Services
	if c.Services.CoordinatorServicePort <= 0 || c.Services.CoordinatorServicePort > 65535 {
		problems = append(problems, "services.coordinator_service must be in 1..65535")
	}

	// JWT
	if c.JWT.TTL < 0 {
		problems = append(problems, "jwt.ttl cannot be negative")
	}

	// Coordinator
	if _, err := coordinator.ParsePolicy(c.Coordinator.ConsistencyPolicy); err != nil {
		problems = append(problems, "coordinator.consistency_policy must be fire_and_set, revert or retry")
	}
	if c.Coordinator.RetryAttempts < 1 || c.Coordinator.RetryAttempts > 10 {
		problems = append(problems, "coordinator.retry_attempts must be in 1..10")
	}
	if c.Coordinator.RetryBackoff < 0 {
		problems = append(problems, "coordinator.retry_backoff cannot be negative")
	}
	if c.Coordinator.CompletionGrace < 0 {
		problems = append(problems, "coordinator.completion_grace cannot be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
