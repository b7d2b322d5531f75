package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
	MCPMode  bool // serve tools over stdin/stdout instead of HTTP
}

// APIConfig holds settings for the investing backend client
type APIConfig struct {
	BaseURL      string
	Timeout      time.Duration
	UserID       int64
	RateLimitDur time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend    string // memory, file, sqlite, redis or postgres
	KeyPrefix  string
	FileDir    string
	SQLitePath string
	RedisAddr  string
	TTLFile    string
	TTL        TTLConfig

	// EncryptionKey, when set, must be 32 bytes. Values are then sealed
	// with AES-256-GCM before they reach the store.
	EncryptionKey string
}

// TTLConfig is the per-domain time-to-live table. It is the only part of the
// configuration that can come from a YAML file.
type TTLConfig struct {
	Projects       time.Duration `yaml:"projects"`
	Portfolio      time.Duration `yaml:"portfolio"`
	UserBalance    time.Duration `yaml:"userBalance"`
	SimulationData time.Duration `yaml:"simulationData"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// AuthConfig holds the settings for tokens sent to the backend and checked on
// mutating local routes.
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
	RequireAuth    bool
}

// DefaultJWTSecret signs backend tokens when no secret is configured. It is
// public, so it never satisfies RequireAuth.
const DefaultJWTSecret = "change-me-in-production"

// Backends accepted by CacheConfig.Backend.
var Backends = []string{"memory", "file", "sqlite", "redis", "postgres"}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: ":8080"},
		API: APIConfig{
			BaseURL:      "http://localhost:5000",
			Timeout:      10 * time.Second,
			UserID:       1,
			RateLimitDur: 0,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			KeyPrefix:  "youthInvest_",
			FileDir:    defaultFileDir(),
			SQLitePath: "youthinvest.db",
			RedisAddr:  "localhost:6379",
			TTL: TTLConfig{
				Projects:       5 * time.Minute,
				Portfolio:      5 * time.Minute,
				UserBalance:    60 * time.Second,
				SimulationData: 10 * time.Minute,
			},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "youthinvest",
			SSLMode:  "disable",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Auth: AuthConfig{
			JWTSecret:      DefaultJWTSecret,
			JWTIssuer:      "youthinvest",
			JWTAudience:    "youthinvest-api",
			AccessTokenTTL: 15 * time.Minute,
		},
	}
}

// Load parses flags and environment variables to build configuration, then
// applies the optional TTL file and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	flag.StringVar(&cfg.Server.HTTPAddr, "http", cfg.Server.HTTPAddr, "HTTP server address")
	flag.BoolVar(&cfg.Server.MCPMode, "mcp", false, "Run as an MCP tool server on stdio")
	flag.StringVar(&cfg.API.BaseURL, "api-url", cfg.API.BaseURL, "Investing backend base URL")
	flag.DurationVar(&cfg.API.Timeout, "api-timeout", cfg.API.Timeout, "Backend request timeout")
	flag.Int64Var(&cfg.API.UserID, "user-id", cfg.API.UserID, "Simulator user id")
	flag.DurationVar(&cfg.API.RateLimitDur, "rate-limit", cfg.API.RateLimitDur, "Minimum delay between backend requests")
	flag.StringVar(&cfg.Cache.Backend, "cache-backend", cfg.Cache.Backend, "Cache store: memory, file, sqlite, redis or postgres")
	flag.StringVar(&cfg.Cache.KeyPrefix, "cache-prefix", cfg.Cache.KeyPrefix, "Cache key prefix")
	flag.StringVar(&cfg.Cache.FileDir, "cache-dir", cfg.Cache.FileDir, "Directory for the file cache store")
	flag.StringVar(&cfg.Cache.SQLitePath, "sqlite-path", cfg.Cache.SQLitePath, "Path of the SQLite cache store")
	flag.StringVar(&cfg.Cache.RedisAddr, "redis-addr", cfg.Cache.RedisAddr, "Redis server address")
	flag.StringVar(&cfg.Cache.TTLFile, "config", "", "YAML file with per-domain cache TTLs")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "Log format (json, console)")
	flag.StringVar(&cfg.Database.Host, "db-host", cfg.Database.Host, "PostgreSQL host")
	flag.IntVar(&cfg.Database.Port, "db-port", cfg.Database.Port, "PostgreSQL port")
	flag.StringVar(&cfg.Database.User, "db-user", cfg.Database.User, "PostgreSQL user")
	flag.StringVar(&cfg.Database.Password, "db-password", cfg.Database.Password, "PostgreSQL password")
	flag.StringVar(&cfg.Database.Database, "db-name", cfg.Database.Database, "PostgreSQL database name")
	flag.StringVar(&cfg.Database.SSLMode, "db-sslmode", cfg.Database.SSLMode, "PostgreSQL SSL mode")

	flag.Parse()

	return finish(cfg)
}

// LoadEnv builds configuration from defaults and the environment only. Used
// by commands that parse their own flags.
func LoadEnv() (*Config, error) {
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)

	if cfg.Cache.TTLFile != "" {
		if err := LoadTTLFile(cfg.Cache.TTLFile, &cfg.Cache.TTL); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type ttlFile struct {
	Cache struct {
		TTL TTLConfig `yaml:"ttl"`
	} `yaml:"cache"`
}

// LoadTTLFile overlays the TTLs found in a YAML file of the form
//
//	cache:
//	  ttl:
//	    projects: 5m
//	    userBalance: 60s
//
// Domains the file leaves out keep their current value.
func LoadTTLFile(path string, ttl *TTLConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file ttlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overlay := file.Cache.TTL
	if overlay.Projects != 0 {
		ttl.Projects = overlay.Projects
	}
	if overlay.Portfolio != 0 {
		ttl.Portfolio = overlay.Portfolio
	}
	if overlay.UserBalance != 0 {
		ttl.UserBalance = overlay.UserBalance
	}
	if overlay.SimulationData != 0 {
		ttl.SimulationData = overlay.SimulationData
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if !validBackend(c.Cache.Backend) {
		return fmt.Errorf("unknown cache backend %q (want one of %s)", c.Cache.Backend, strings.Join(Backends, ", "))
	}
	ttls := map[string]time.Duration{
		"projects":       c.Cache.TTL.Projects,
		"portfolio":      c.Cache.TTL.Portfolio,
		"userBalance":    c.Cache.TTL.UserBalance,
		"simulationData": c.Cache.TTL.SimulationData,
	}
	for name, ttl := range ttls {
		if ttl <= 0 {
			return fmt.Errorf("cache ttl for %s must be positive, got %s", name, ttl)
		}
	}
	if k := c.Cache.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("cache encryption key must be 32 bytes, got %d", len(k))
	}
	if c.API.BaseURL == "" {
		return errors.New("api base url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Auth.RequireAuth && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DefaultJWTSecret) {
		return errors.New("auth is required but no jwt secret is set (AUTH_JWT_SECRET)")
	}
	return nil
}

func validBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}

func defaultFileDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".youthinvest-cache"
	}
	return dir + string(os.PathSeparator) + "youthinvest"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("MCP_MODE"); v == "true" || v == "1" {
		cfg.Server.MCPMode = true
	}
	if v := os.Getenv("API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	setDuration("API_TIMEOUT", &cfg.API.Timeout)
	if v := os.Getenv("USER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.API.UserID = id
		}
	}
	setDuration("RATE_LIMIT", &cfg.API.RateLimitDur)

	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_PREFIX"); v != "" {
		cfg.Cache.KeyPrefix = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.Cache.FileDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Cache.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	cfg.Cache.EncryptionKey = getEnvOrDefault("CACHE_ENCRYPTION_KEY", cfg.Cache.EncryptionKey)
	if v := os.Getenv("CONFIG_FILE"); v != "" {
		cfg.Cache.TTLFile = v
	}
	setDuration("CACHE_TTL_PROJECTS", &cfg.Cache.TTL.Projects)
	setDuration("CACHE_TTL_PORTFOLIO", &cfg.Cache.TTL.Portfolio)
	setDuration("CACHE_TTL_USER_BALANCE", &cfg.Cache.TTL.UserBalance)
	setDuration("CACHE_TTL_SIMULATION", &cfg.Cache.TTL.SimulationData)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	cfg.Auth.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTIssuer = getEnvOrDefault("AUTH_JWT_ISSUER", cfg.Auth.JWTIssuer)
	cfg.Auth.JWTAudience = getEnvOrDefault("AUTH_JWT_AUDIENCE", cfg.Auth.JWTAudience)
	setDuration("AUTH_ACCESS_TOKEN_TTL", &cfg.Auth.AccessTokenTTL)
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_REQUIRED"))); v == "true" || v == "1" {
		cfg.Auth.RequireAuth = true
	}
}

// setDuration leaves *dst alone when the variable is unset or unparsable.
func setDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
