package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// BackendNeo4j stores the relationship graph in Neo4j.
	BackendNeo4j = "neo4j"

	// BackendMemory keeps the relationship graph in process (demo and tests).
	BackendMemory = "memory"

	// DefaultReconcileInterval is how often serve re-drives deferred graph mirrors.
	DefaultReconcileInterval = 5 * time.Minute
)

// Config holds all configuration for gamegraph.
type Config struct {
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Graph   GraphConfig   `mapstructure:"graph"`
	Auth    AuthConfig    `mapstructure:"auth"`
	API     APIConfig     `mapstructure:"api"`
	Seed    SeedConfig    `mapstructure:"seed"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Neo4jConfig holds graph database connection settings.
type Neo4jConfig struct {
	URI               string        `mapstructure:"uri"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	MaxPoolSize       int           `mapstructure:"max_pool_size"`
	AcquireTimeout    time.Duration `mapstructure:"acquire_timeout"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionLife time.Duration `mapstructure:"max_connection_lifetime"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// String returns a safe representation of Neo4jConfig with the password masked.
func (c Neo4jConfig) String() string {
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:%s, Database:%s}",
		c.URI, c.Username, maskSecret(c.Password), c.Database)
}

// CatalogConfig holds the relational catalog settings.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// GraphConfig holds relationship graph behaviour.
type GraphConfig struct {
	Backend           string        `mapstructure:"backend"`
	MutualFriendship  bool          `mapstructure:"mutual_friendship"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ReconcileRate     float64       `mapstructure:"reconcile_rate"`
	ReconcileBatch    int           `mapstructure:"reconcile_batch"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// String returns a safe representation of AuthConfig with the secret masked.
func (c AuthConfig) String() string {
	return fmt.Sprintf("AuthConfig{JWTSecret:%s, TokenTTL:%s}", maskSecret(c.JWTSecret), c.TokenTTL)
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	LoginRate       float64       `mapstructure:"login_rate"`
	LoginBurst      int           `mapstructure:"login_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SeedConfig holds demo data settings.
type SeedConfig struct {
	RandomSeed    int64  `mapstructure:"random_seed"`
	Password      string `mapstructure:"password"`
	PlaysPerUser  int    `mapstructure:"plays_per_user"`
	SkipThreshold int    `mapstructure:"skip_threshold"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// maskSecret shows first 2 + last 2 chars, replacing the middle with asterisks.
func maskSecret(s string) string {
	const visible = 2
	if len(s) <= visible*4 {
		return "***"
	}
	return s[:visible] + "****" + s[len(s)-visible:]
}

// Load reads configuration from file and environment variables. A .env file
// in the working directory is loaded first; it never overrides variables
// already set in the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.max_pool_size", 50)
	v.SetDefault("neo4j.acquire_timeout", "60s")
	v.SetDefault("neo4j.connect_timeout", "5s")
	v.SetDefault("neo4j.max_connection_lifetime", "1h")
	v.SetDefault("neo4j.read_timeout", "10s")
	v.SetDefault("neo4j.write_timeout", "30s")

	v.SetDefault("catalog.path", filepath.Join(homeDir(), ".gamegraph", "catalog.db"))

	v.SetDefault("graph.backend", BackendNeo4j)
	v.SetDefault("graph.mutual_friendship", false)
	v.SetDefault("graph.reconcile_interval", DefaultReconcileInterval.String())
	v.SetDefault("graph.reconcile_rate", 20.0)
	v.SetDefault("graph.reconcile_batch", 500)
	v.SetDefault("graph.breaker_failures", 5)
	v.SetDefault("graph.breaker_timeout", "10s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "1h")

	v.SetDefault("api.listen_addr", ":3001")
	v.SetDefault("api.login_rate", 1.0)
	v.SetDefault("api.login_burst", 10)
	v.SetDefault("api.shutdown_timeout", "10s")

	v.SetDefault("seed.random_seed", 42)
	v.SetDefault("seed.password", "password123")
	v.SetDefault("seed.plays_per_user", 3)
	v.SetDefault("seed.skip_threshold", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".gamegraph"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("GAMEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map specific env vars, including the names the original backend used.
	_ = v.BindEnv("neo4j.uri", "GAMEGRAPH_NEO4J_URI", "NEO4J_URI")
	_ = v.BindEnv("neo4j.username", "GAMEGRAPH_NEO4J_USERNAME", "NEO4J_USER")
	_ = v.BindEnv("neo4j.password", "GAMEGRAPH_NEO4J_PASSWORD", "NEO4J_PASSWORD")
	_ = v.BindEnv("neo4j.database", "GAMEGRAPH_NEO4J_DATABASE", "NEO4J_DATABASE")
	_ = v.BindEnv("auth.jwt_secret", "GAMEGRAPH_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("catalog.path", "GAMEGRAPH_CATALOG_PATH")
	_ = v.BindEnv("graph.backend", "GAMEGRAPH_GRAPH_BACKEND")
	_ = v.BindEnv("graph.mutual_friendship", "GAMEGRAPH_GRAPH_MUTUAL_FRIENDSHIP")
	_ = v.BindEnv("api.listen_addr", "GAMEGRAPH_API_LISTEN_ADDR")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK: use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// PORT is honoured unless the listen address was set explicitly.
	if port := os.Getenv("PORT"); port != "" && os.Getenv("GAMEGRAPH_API_LISTEN_ADDR") == "" && !v.InConfig("api.listen_addr") {
		cfg.API.ListenAddr = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Graph.Backend {
	case BackendNeo4j:
		if c.Neo4j.URI == "" {
			return fmt.Errorf("neo4j.uri must not be empty")
		}
		if c.Neo4j.MaxPoolSize <= 0 {
			return fmt.Errorf("neo4j.max_pool_size must be greater than 0")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("graph.backend must be %q or %q, got %q", BackendNeo4j, BackendMemory, c.Graph.Backend)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path must not be empty")
	}
	if c.Neo4j.ReadTimeout < 0 || c.Neo4j.WriteTimeout < 0 {
		return fmt.Errorf("neo4j read/write timeouts must be >= 0")
	}
	if c.Graph.ReconcileInterval < 0 {
		return fmt.Errorf("graph.reconcile_interval must be >= 0")
	}
	if c.Graph.ReconcileRate < 0 {
		return fmt.Errorf("graph.reconcile_rate must be >= 0")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be greater than 0")
	}
	if c.Seed.PlaysPerUser < 0 {
		return fmt.Errorf("seed.plays_per_user must be >= 0")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
