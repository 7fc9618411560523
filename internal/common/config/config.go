package config

import (
	"os"
	"regexp"
	"time"

	"github.com/botlisten/botcast/pkg/helper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the full botcast server configuration.
	Config struct {
		Server  ServerConfig  `yaml:"server"`
		Logger  LoggerConfig  `yaml:"logger"`
		Stream  StreamConfig  `yaml:"stream"`
		Viewer  ViewerConfig  `yaml:"viewer"`
		OpenAI  OpenAIConfig  `yaml:"openai"`
		Metrics MetricsConfig `yaml:"metrics"`
	}

	// ServerConfig represents the HTTP listener configuration.
	ServerConfig struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}

	// LoggerConfig represents the logger configuration.
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

	// StreamConfig controls the stream context store.
	StreamConfig struct {
		DefaultID  string            `yaml:"default_id"`  // well-known stream id, auto-created
		MaxHistory int               `yaml:"max_history"` // message history capacity per stream
		Store      StreamStoreConfig `yaml:"store"`
	}

	// StreamStoreConfig selects the context store backend.
	StreamStoreConfig struct {
		Type  string            `yaml:"type"`  // "memory" or "redis"
		Redis StreamRedisConfig `yaml:"redis"` // Redis configuration
	}

	// StreamRedisConfig represents the Redis configuration for the
	// stream context store.
	StreamRedisConfig struct {
		Addr     string        `yaml:"addr"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"` // TTL for context data in Redis
	}

	// ViewerConfig controls viewer connection handling.
	ViewerConfig struct {
		MaxViewers        int           `yaml:"max_viewers"`        // 0 means unlimited
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // client heartbeat period
	}

	// OpenAIConfig represents the reaction generator configuration.
	OpenAIConfig struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"` // per-request generation deadline
	}

	// MetricsConfig represents the Prometheus metrics configuration.
	MetricsConfig struct {
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

// LoadConfig loads configuration from a YAML file with environment
// variable support.
func LoadConfig(filename string) (*Config, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}
	setDefaults(&cfg)

	return &cfg, cfgPath, nil
}

// setDefaults fills in defaults for values the file leaves unset.
func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Stream.DefaultID == "" {
		cfg.Stream.DefaultID = "default"
	}
	if cfg.Stream.MaxHistory <= 0 {
		cfg.Stream.MaxHistory = 10
	}
	if cfg.Stream.Store.Type == "" {
		cfg.Stream.Store.Type = "memory"
	}
	if cfg.Viewer.HeartbeatInterval <= 0 {
		cfg.Viewer.HeartbeatInterval = 30 * time.Second
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-3.5-turbo"
	}
	if cfg.OpenAI.Timeout <= 0 {
		cfg.OpenAI.Timeout = 10 * time.Second
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "botcast"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
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
