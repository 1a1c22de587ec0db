package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendNeo4j = "neo4j"
	BackendSQL   = "sql"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// StoreBackend selects the graph accessor: neo4j or sql
	StoreBackend string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// SQL (gorm)
	DBType         string // postgres, mysql, sqlite
	DBDSN          string
	DBMaxOpenConns int

	// Auth
	JWTSecret string

	// Request handling
	RequestTimeout        time.Duration
	EngagementConcurrency int

	// Storage circuit breaker
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		StoreBackend:          getEnv("STORE_BACKEND", BackendNeo4j),
		Neo4jURI:              getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", "password"),
		DBType:                getEnv("DB_TYPE", "postgres"),
		DBDSN:                 getEnv("DB_DSN", ""),
		DBMaxOpenConns:        getEnvInt("DB_MAX_OPEN_CONNS", 10),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		RequestTimeout:        time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 5000)) * time.Millisecond,
		EngagementConcurrency: getEnvInt("ENGAGEMENT_CONCURRENCY", 8),
		BreakerMaxFailures:    getEnvInt("BREAKER_MAX_FAILURES", 5),
		BreakerOpenTimeout:    time.Duration(getEnvInt("BREAKER_OPEN_SECONDS", 30)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendNeo4j:
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required")
		}
		if c.Neo4jUser == "" {
			return fmt.Errorf("NEO4J_USER is required")
		}
	case BackendSQL:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required when STORE_BACKEND=sql")
		}
		switch c.DBType {
		case "postgres", "postgresql", "mysql", "mariadb", "sqlite":
		default:
			return fmt.Errorf("unsupported DB_TYPE: %s", c.DBType)
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND: %s", c.StoreBackend)
	}
	if c.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.EngagementConcurrency < 1 {
		return fmt.Errorf("ENGAGEMENT_CONCURRENCY must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
