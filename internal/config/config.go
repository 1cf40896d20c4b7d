// Package config provides configuration for the bot builder server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Lock backends.
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port" default:"8080" validate:"gte=1,lte=65535"`

	// Database
	DatabaseDriver string `yaml:"database_driver" default:"sqlite3" validate:"oneof=sqlite3 postgres"`
	DatabaseURL    string `yaml:"database_url" default:"file:botbuilder.db?cache=shared&mode=rwc&_foreign_keys=on" validate:"required"`

	// Text generation backend
	LLMBaseURL    string        `yaml:"llm_base_url" default:"https://api.openai.com"`
	LLMAPIKey     string        `yaml:"llm_api_key"`
	LLMTimeout    time.Duration `yaml:"llm_timeout" default:"30s" validate:"gt=0"`
	LLMMaxRetries int           `yaml:"llm_max_retries" default:"0" validate:"gte=0,lte=5"`

	// Turn locking
	LockBackend   string        `yaml:"lock_backend" default:"memory" validate:"oneof=memory redis"`
	RedisAddr     string        `yaml:"redis_addr" default:"localhost:6379" validate:"required_if=LockBackend redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" default:"0" validate:"gte=0"`
	LockTTL       time.Duration `yaml:"lock_ttl" default:"60s" validate:"gt=0"`
	LockWait      time.Duration `yaml:"lock_wait" default:"10s" validate:"gt=0"`

	// Live chat websocket
	WSReadTimeout    time.Duration `yaml:"ws_read_timeout" default:"60s" validate:"gt=0"`
	WSWriteTimeout   time.Duration `yaml:"ws_write_timeout" default:"10s" validate:"gt=0"`
	WSPingInterval   time.Duration `yaml:"ws_ping_interval" default:"30s" validate:"gt=0,ltfield=WSReadTimeout"`
	WSMaxMessageSize int64         `yaml:"ws_max_message_size" default:"8192" validate:"gt=0"`

	// Policy
	BotPolicyFile string `yaml:"bot_policy_file"`

	// Logging
	LogLevel string `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`
}

// Load loads configuration from defaults, the optional CONFIG_FILE and
// environment variables, in that order of precedence (last wins).
func Load() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply default values: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, fieldErr := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf("field '%s' failed validation (rule: %s)",
					fieldErr.Field(), fieldErr.Tag()))
			}
			return fmt.Errorf("config validation failed: %s", strings.Join(errMessages, "; "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.DatabaseDriver = getEnv("DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.LLMAPIKey = getEnv("LLM_API_KEY", c.LLMAPIKey)
	c.LLMTimeout = getEnvMillis("LLM_TIMEOUT_MS", c.LLMTimeout)
	c.LLMMaxRetries = getEnvInt("LLM_MAX_RETRIES", c.LLMMaxRetries)
	c.LockBackend = getEnv("LOCK_BACKEND", c.LockBackend)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.LockTTL = getEnvMillis("LOCK_TTL_MS", c.LockTTL)
	c.LockWait = getEnvMillis("LOCK_WAIT_MS", c.LockWait)
	c.WSReadTimeout = getEnvMillis("WS_READ_TIMEOUT_MS", c.WSReadTimeout)
	c.WSWriteTimeout = getEnvMillis("WS_WRITE_TIMEOUT_MS", c.WSWriteTimeout)
	c.WSPingInterval = getEnvMillis("WS_PING_INTERVAL_MS", c.WSPingInterval)
	c.BotPolicyFile = getEnv("BOT_POLICY_FILE", c.BotPolicyFile)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return time.Duration(intVal) * time.Millisecond
		}
	}
	return defaultVal
}
