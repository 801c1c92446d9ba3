// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Worker      WorkerConfig
	Cull        CullConfig
	Stream      StreamConfig
	Device      DeviceConfig
	Cache       CacheConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration for the Postgres device index
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration. An empty URL disables the event
// mirror.
type NATSConfig struct {
	URL            string
	Subject        string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// WorkerConfig holds photo worker configuration
type WorkerConfig struct {
	ClientID           string
	DefaultRangeMeters float64
	MessageBuffer      int
}

// CullConfig holds display culling configuration
type CullConfig struct {
	GridSize         int
	MaxPhotosInArea  int
	MaxPhotosInRange int
}

// StreamConfig holds stream source loader configuration
type StreamConfig struct {
	TokenTimeout      time.Duration
	AuthFailureWindow time.Duration
	DialTimeout       time.Duration
}

// DeviceConfig holds device photo index configuration. Backend selects the
// adapter: "postgres", "http" or "none".
type DeviceConfig struct {
	Backend  string
	Endpoint string
	PageSize int
}

// CacheConfig holds static document cache configuration
type CacheConfig struct {
	DocumentTTL time.Duration
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "127.0.0.1"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "hillview"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			Subject:        getEnv("NATS_SUBJECT", "photos.events"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Worker: WorkerConfig{
			ClientID:           getEnv("WORKER_CLIENT_ID", ""),
			DefaultRangeMeters: getEnvAsFloat("WORKER_DEFAULT_RANGE_METERS", 200.0),
			MessageBuffer:      getEnvAsInt("WORKER_MESSAGE_BUFFER", 256),
		},
		Cull: CullConfig{
			GridSize:         getEnvAsInt("CULL_GRID_SIZE", 8),
			MaxPhotosInArea:  getEnvAsInt("CULL_MAX_PHOTOS_IN_AREA", 700),
			MaxPhotosInRange: getEnvAsInt("CULL_MAX_PHOTOS_IN_RANGE", 40),
		},
		Stream: StreamConfig{
			TokenTimeout:      getEnvAsDuration("STREAM_TOKEN_TIMEOUT", 5*time.Second),
			AuthFailureWindow: getEnvAsDuration("STREAM_AUTH_FAILURE_WINDOW", 1*time.Second),
			DialTimeout:       getEnvAsDuration("STREAM_DIAL_TIMEOUT", 10*time.Second),
		},
		Device: DeviceConfig{
			Backend:  getEnv("DEVICE_BACKEND", "none"),
			Endpoint: getEnv("DEVICE_ENDPOINT", "http://127.0.0.1:7231/photos/query"),
			PageSize: getEnvAsInt("DEVICE_PAGE_SIZE", 500),
		},
		Cache: CacheConfig{
			DocumentTTL: getEnvAsDuration("CACHE_DOCUMENT_TTL", 15*time.Minute),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	switch config.Device.Backend {
	case "postgres", "http", "none":
	default:
		return fmt.Errorf("unknown device backend %q", config.Device.Backend)
	}

	if config.Cull.GridSize <= 0 {
		return fmt.Errorf("cull grid size must be positive")
	}

	return nil
}

// Helper functions

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
