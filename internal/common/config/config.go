package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the root apiserver configuration.
	Config struct {
		Server   ServerConfig   `yaml:"server"`
		Logger   LoggerConfig   `yaml:"logger"`
		Database DatabaseConfig `yaml:"database"`
		JWT      JWTConfig      `yaml:"jwt"`
		Cache    CacheConfig    `yaml:"cache"`
		Chat     ChatConfig     `yaml:"chat"`
		Metrics  MetricsConfig  `yaml:"metrics"`
	}

	// ServerConfig holds the HTTP listener settings.
	ServerConfig struct {
		Port int `yaml:"port"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps
	}

	// DatabaseConfig holds the durable message store settings.
	DatabaseConfig struct {
		Type     string `yaml:"type"` // mysql, postgres, sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		SSLMode  string `yaml:"sslmode"` // disable (for postgres)
	}

	// JWTConfig configures the token validator.
	JWTConfig struct {
		SecretKey string   `yaml:"secret_key"`
		Duration  Duration `yaml:"duration"`
	}

	// CacheConfig selects the recency cache backend.
	CacheConfig struct {
		Type     string           `yaml:"type"`     // "memory" or "redis"
		Capacity int              `yaml:"capacity"` // max entries kept per context
		Redis    CacheRedisConfig `yaml:"redis"`
	}

	// CacheRedisConfig represents the Redis configuration for the
	// recency cache backend.
	CacheRedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	}

	// ChatConfig tunes the realtime chat subsystem.
	ChatConfig struct {
		FrameWorkers  int `yaml:"frame_workers"`   // size of the frame dispatch pool
		HistoryLimit  int `yaml:"history_limit"`   // default page size for history queries
		SendQueueSize int `yaml:"send_queue_size"` // per-connection outbound buffer
	}

	// MetricsConfig configures the prometheus registry.
	MetricsConfig struct {
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

// Duration is a time.Duration that unmarshals from "24h" style YAML
// strings as well as integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		if parsed, err := time.ParseDuration(s); err == nil {
			*d = Duration(parsed)
			return nil
		}
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration: %q", value.Value)
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	case "sqlite":
		if c.DBName != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.DBName), 0755); err != nil {
				panic(fmt.Errorf("failed to create directory for sqlite database: %w", err))
			}
		}
		return c.DBName // for SQLite, DBName is the file path
	default:
		return ""
	}
}

// LoadConfig loads configuration from a YAML file with environment
// variable support.
func LoadConfig(filename string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveEnv replaces ${VAR:default} placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
