package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Batch     BatchConfig
	Dashboard DashboardConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Session   SessionConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// BackendConfig describes the model-serving API. It is built once at startup
// and handed to the backend client.
type BackendConfig struct {
	BaseURL        string
	PublicBaseURL  string
	Username       string
	Password       string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
}

type BatchConfig struct {
	PollInterval time.Duration
}

type DashboardConfig struct {
	UnitPrice           float64
	RateScale           string
	HighRiskThreshold   float64
	DetailRiskThreshold float64
	MetricsCacheTTL     time.Duration
	ClientsSampleSize   int
	MetricsFallbackFile string
	ClientsFallbackFile string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	baseURL := strings.TrimRight(getEnv("API_URL", "http://localhost:8080/api"), "/")

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Backend: BackendConfig{
			BaseURL:        baseURL,
			PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_API_URL", baseURL), "/"),
			Username:       getEnv("API_USERNAME", ""),
			Password:       getEnv("API_PASSWORD", ""),
			RequestTimeout: getEnvAsDuration("BACKEND_REQUEST_TIMEOUT", "30s"),
			UploadTimeout:  getEnvAsDuration("BACKEND_UPLOAD_TIMEOUT", "5m"),
		},
		Batch: BatchConfig{
			PollInterval: getEnvAsDuration("BATCH_POLL_INTERVAL", "2s"),
		},
		Dashboard: DashboardConfig{
			UnitPrice:           getEnvAsFloat("DASHBOARD_UNIT_PRICE", 12.90),
			RateScale:           strings.ToLower(getEnv("DASHBOARD_RATE_SCALE", "auto")),
			HighRiskThreshold:   getEnvAsFloat("DASHBOARD_HIGH_RISK_THRESHOLD", 0.7),
			DetailRiskThreshold: getEnvAsFloat("DASHBOARD_DETAIL_RISK_THRESHOLD", 0.45),
			MetricsCacheTTL:     getEnvAsDuration("DASHBOARD_METRICS_CACHE_TTL", "30s"),
			ClientsSampleSize:   getEnvAsInt("DASHBOARD_CLIENTS_SAMPLE_SIZE", 2000),
			MetricsFallbackFile: getEnv("DASHBOARD_METRICS_FALLBACK", ""),
			ClientsFallbackFile: getEnv("DASHBOARD_CLIENTS_FALLBACK", ""),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "churninsight_dashboard"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 200<<20),
		},
		Session: SessionConfig{
			IdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", "30m"),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", "1m"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
