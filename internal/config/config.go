// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for the application.
type Config struct {
	// Prediction service
	PredictorURL         string        `yaml:"predictor_url"`
	PredictorTimeout     time.Duration `yaml:"predictor_timeout"`
	PredictorMinInterval time.Duration `yaml:"predictor_min_interval"`
	ResultDelay          time.Duration `yaml:"result_delay"`

	// HTTP server
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SessionTTL     time.Duration `yaml:"session_ttl"`

	// Database
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`

	// AWS
	AWSRegion      string `yaml:"aws_region"`
	S3Bucket       string `yaml:"s3_bucket"`
	SESSenderEmail string `yaml:"ses_sender_email"`

	// Application
	Stage    string `yaml:"stage"`
	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		PredictorURL:     "http://127.0.0.1:5000",
		PredictorTimeout: 30 * time.Second,
		ResultDelay:      time.Second,

		Port:           8080,
		AllowedOrigins: []string{"*"},
		SessionTTL:     30 * time.Minute,

		DBPort: 5432,
		DBName: "bike_predict",
		DBUser: "postgres",

		AWSRegion: "ap-south-1",

		Stage:    "dev",
		LogLevel: "info",
	}
}

// Load loads configuration from an optional YAML file (CONFIG_FILE), then
// from environment variables, which win.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// Prediction service
	cfg.PredictorURL = strings.TrimRight(getEnv("PREDICTOR_URL", cfg.PredictorURL), "/")
	cfg.PredictorTimeout = getEnvDuration("PREDICTOR_TIMEOUT", cfg.PredictorTimeout)
	cfg.PredictorMinInterval = getEnvDuration("PREDICTOR_MIN_INTERVAL", cfg.PredictorMinInterval)
	cfg.ResultDelay = getEnvDuration("RESULT_DELAY", cfg.ResultDelay)

	// HTTP server
	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)

	// Database
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnvInt("DB_PORT", cfg.DBPort)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)

	// AWS
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.SESSenderEmail = getEnv("SES_SENDER_EMAIL", cfg.SESSenderEmail)

	// Application
	cfg.Stage = getEnv("STAGE", cfg.Stage)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// DatabaseEnabled reports whether valuation history should be stored.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	sslMode := "require" // Use SSL for RDS
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable" // Disable SSL for local development
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1s", "250ms") or plain milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
