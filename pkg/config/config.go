package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Backend    BackendConfig
	Poller     PollerConfig
	Cache      CacheConfig
	Reconciler ReconcilerConfig
	JWT        JWTConfig
	Logger     LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type BackendConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// PollerConfig carries the two watch profiles: the coarse profile for
// full analysis runs and the fine profile for chat-style quick checks.
type PollerConfig struct {
	Interval         time.Duration
	MaxAttempts      int
	QuickInterval    time.Duration
	QuickMaxAttempts int
	// Consecutive transport failures tolerated before a watch escalates
	// to a terminal failure.
	TransportFailureLimit int
}

type CacheConfig struct {
	Path string
	TTL  time.Duration
}

type ReconcilerConfig struct {
	// ReevaluationHorizon fills in reevaluation_date when the backend
	// leaves it empty.
	ReevaluationHorizon time.Duration
}

type JWTConfig struct {
	SecretKey string
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// If no .env file found, continue with environment variables
	// (useful for Docker/K8s)

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	requestTimeout, _ := strconv.Atoi(getEnv("BACKEND_REQUEST_TIMEOUT", "15"))
	pollInterval, _ := strconv.Atoi(getEnv("POLL_INTERVAL_SECONDS", "5"))
	pollAttempts, _ := strconv.Atoi(getEnv("POLL_MAX_ATTEMPTS", "600"))
	quickInterval, _ := strconv.Atoi(getEnv("QUICK_POLL_INTERVAL_SECONDS", "1"))
	quickAttempts, _ := strconv.Atoi(getEnv("QUICK_POLL_MAX_ATTEMPTS", "600"))
	failureLimit, _ := strconv.Atoi(getEnv("POLL_TRANSPORT_FAILURE_LIMIT", "3"))
	cacheTTL, _ := strconv.Atoi(getEnv("CACHE_TTL_HOURS", "24"))
	reevalDays, _ := strconv.Atoi(getEnv("REEVALUATION_HORIZON_DAYS", "30"))

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_BASE_URL", "http://localhost:9090/api"),
			APIKey:         getEnv("BACKEND_API_KEY", ""),
			RequestTimeout: time.Duration(requestTimeout) * time.Second,
		},
		Poller: PollerConfig{
			Interval:              time.Duration(pollInterval) * time.Second,
			MaxAttempts:           pollAttempts,
			QuickInterval:         time.Duration(quickInterval) * time.Second,
			QuickMaxAttempts:      quickAttempts,
			TransportFailureLimit: failureLimit,
		},
		Cache: CacheConfig{
			Path: getEnv("CACHE_PATH", "pricesync-cache.db"),
			TTL:  time.Duration(cacheTTL) * time.Hour,
		},
		Reconciler: ReconcilerConfig{
			ReevaluationHorizon: time.Duration(reevalDays) * 24 * time.Hour,
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
