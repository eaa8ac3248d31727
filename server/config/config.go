package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Inference InferenceConfig `json:"inference"`
	Security  SecurityConfig  `json:"security"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
}

type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

// InferenceConfig holds every timing knob of the inference client.
// The values are read-only during a call; per-attempt timeouts are
// computed from them, never written back.
type InferenceConfig struct {
	BaseURL string `json:"base_url"`

	// Health probe / connectivity check.
	HealthTimeout time.Duration `json:"health_timeout"`

	// Synthetic model poke during warm-up.
	TestTimeout time.Duration `json:"test_timeout"`

	// Warm-up polling for a cold backend.
	WarmupBudget       time.Duration `json:"warmup_budget"`
	WarmupPollInterval time.Duration `json:"warmup_poll_interval"`

	// Upload retry loop.
	MaxAttempts          int           `json:"max_attempts"`
	UploadTimeout        time.Duration `json:"upload_timeout"`
	UploadTimeoutStep    time.Duration `json:"upload_timeout_step"`
	UploadTimeoutCeiling time.Duration `json:"upload_timeout_ceiling"`
	RetryDelay           time.Duration `json:"retry_delay"`
	RetryDelayCeiling    time.Duration `json:"retry_delay_ceiling"`
}

type SecurityConfig struct {
	AllowedOrigins []string      `json:"allowed_origins"`
	RateLimitRPS   int           `json:"rate_limit_rps"`
	RateLimitBurst int           `json:"rate_limit_burst"`
	MaxRequestSize int64         `json:"max_request_size"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Inference: InferenceConfig{
			BaseURL:              getEnv("INFERENCE_BASE_URL", "http://localhost:8000"),
			HealthTimeout:        getEnvAsDuration("INFERENCE_HEALTH_TIMEOUT", 5*time.Second),
			TestTimeout:          getEnvAsDuration("INFERENCE_TEST_TIMEOUT", 10*time.Second),
			WarmupBudget:         getEnvAsDuration("INFERENCE_WARMUP_BUDGET", 90*time.Second),
			WarmupPollInterval:   getEnvAsDuration("INFERENCE_WARMUP_POLL_INTERVAL", 2*time.Second),
			MaxAttempts:          getEnvAsInt("INFERENCE_MAX_ATTEMPTS", 5),
			UploadTimeout:        getEnvAsDuration("INFERENCE_UPLOAD_TIMEOUT", 30*time.Second),
			UploadTimeoutStep:    getEnvAsDuration("INFERENCE_UPLOAD_TIMEOUT_STEP", 15*time.Second),
			UploadTimeoutCeiling: getEnvAsDuration("INFERENCE_UPLOAD_TIMEOUT_CEILING", 120*time.Second),
			RetryDelay:           getEnvAsDuration("INFERENCE_RETRY_DELAY", 2*time.Second),
			RetryDelayCeiling:    getEnvAsDuration("INFERENCE_RETRY_DELAY_CEILING", 10*time.Second),
		},
		Security: SecurityConfig{
			AllowedOrigins: getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   getEnvAsInt("RATE_LIMIT_RPS", 30),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 60),
			MaxRequestSize: getEnvAsInt64("MAX_REQUEST_SIZE", 15*1024*1024), // 15MB photos
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 3*time.Minute),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "pineapple_cv"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "server port must be between 1 and 65535")
	}

	if c.Inference.BaseURL == "" {
		errors = append(errors, "inference base URL is required")
	}

	if c.Inference.MaxAttempts < 1 {
		errors = append(errors, "inference max attempts must be at least 1")
	}

	if c.Inference.UploadTimeout <= 0 || c.Inference.UploadTimeoutCeiling < c.Inference.UploadTimeout {
		errors = append(errors, "upload timeout ceiling must be at least the base upload timeout")
	}

	if c.Security.MaxRequestSize <= 0 {
		errors = append(errors, "max request size must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, ", "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
