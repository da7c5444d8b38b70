package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendPostgres  = "postgres"
)

type Config struct {
	Port         string
	StoreBackend string
	// Firebase
	FirebaseCredentialsPath string
	FirebaseProjectID       string
	FirebaseAPIKey          string
	// PostgreSQL, same keys the original .env used
	Postgres PostgresConfig
	// MongoDB
	MongoURI      string
	MongoDatabase string
	// Redis caches verified identities; empty disables the cache
	RedisURL         string
	IdentityCacheTTL time.Duration

	CORSAllowedOrigins []string
	LogLevel           string
	LogFile            string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq keyword/value connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode)
}

func Load() (Config, error) {
	cfg := Config{
		Port:                    getenv("SERVER_PORT", "8080"),
		StoreBackend:            strings.ToLower(getenv("STORE_BACKEND", BackendMemory)),
		FirebaseCredentialsPath: getenv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseProjectID:       getenv("FIREBASE_PROJECT_ID", ""),
		FirebaseAPIKey:          getenv("FIREBASE_API_KEY", ""),
		Postgres: PostgresConfig{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			User:     getenv("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD", ""),
			Name:     getenv("DB_NAME", "taskboard"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
		MongoURI:           getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getenv("MONGO_DATABASE", "taskboard"),
		RedisURL:           getenv("REDIS_URL", ""),
		IdentityCacheTTL:   time.Duration(getenvInt("IDENTITY_CACHE_TTL_SECONDS", 300)) * time.Second,
		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFile:            getenv("LOG_FILE", ""),
	}
	return cfg, cfg.Validate()
}

// Validate reports settings that make the selected backend unusable.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendPostgres:
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("config: MONGO_URI is required for the %s backend", c.StoreBackend)
		}
	case BackendFirestore:
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("config: FIREBASE_CREDENTIALS_PATH is required for the %s backend", c.StoreBackend)
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.IdentityCacheTTL <= 0 {
		return fmt.Errorf("config: IDENTITY_CACHE_TTL_SECONDS must be positive")
	}
	return nil
}

// IdentityEnabled reports whether enough Firebase settings exist to verify tokens.
func (c Config) IdentityEnabled() bool {
	return c.FirebaseCredentialsPath != ""
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
