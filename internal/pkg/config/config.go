package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
// SSOT: every setting is loaded from .env (or the process environment)
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	MarketData MarketDataConfig
	Simulation SimulationConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL             string // SSOT: DATABASE_URL
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// CacheConfig controls the market data cache.
// Backend: memory (process only), postgres or sqlite (durable second level)
type CacheConfig struct {
	Backend        string
	TTL            time.Duration
	SQLitePath     string
	PruneInterval  time.Duration
	StoreRetention time.Duration // durable entries older than this are purged
}

type MarketDataConfig struct {
	Source          string // yahoo, csv
	YahooBaseURL    string
	YahooPageURL    string
	CSVDir          string
	FetchTimeout    time.Duration
	RetryBackoff    time.Duration
	BenchmarkTicker string
}

// SimulationConfig holds the named analytics parameters.
// FeeRate and RiskFreeRate are annual fractions (0.005 = 0.5%/yr).
type SimulationConfig struct {
	FeeRate         float64
	RiskFreeRate    float64
	ConfidenceLevel float64
	RollingWindow   int
	ForecastHorizon int
}

type LoggingConfig struct {
	Level         string
	Format        string
	FileEnabled   bool
	FilePath      string
	RotationSize  int // MB
	RetentionDays int
}

// Load loads configuration from .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env is optional, the environment alone is enough
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			Mode:           getEnv("GIN_MODE", "debug"),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 25*time.Second),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:        int32(getEnvInt("DB_MIN_CONNS", 1)),
			MaxConnLifetime: 1 * time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Cache: CacheConfig{
			Backend:        getEnv("CACHE_BACKEND", "memory"),
			TTL:            getEnvDuration("CACHE_TTL", 12*time.Hour),
			SQLitePath:     getEnv("CACHE_SQLITE_PATH", "data/market_cache.db"),
			PruneInterval:  getEnvDuration("CACHE_PRUNE_INTERVAL", 10*time.Minute),
			StoreRetention: getEnvDuration("CACHE_STORE_RETENTION", 30*24*time.Hour),
		},
		MarketData: MarketDataConfig{
			Source:          getEnv("MARKET_DATA_SOURCE", "yahoo"),
			YahooBaseURL:    getEnv("YAHOO_BASE_URL", "https://query2.finance.yahoo.com"),
			YahooPageURL:    getEnv("YAHOO_PAGE_URL", "https://finance.yahoo.com"),
			CSVDir:          getEnv("MARKET_DATA_CSV_DIR", "data/prices"),
			FetchTimeout:    getEnvDuration("MARKET_DATA_FETCH_TIMEOUT", 10*time.Second),
			RetryBackoff:    getEnvDuration("MARKET_DATA_RETRY_BACKOFF", 500*time.Millisecond),
			BenchmarkTicker: getEnv("BENCHMARK_TICKER", "ACWI"),
		},
		Simulation: SimulationConfig{
			FeeRate:         getEnvFloat("SIM_FEE_RATE", 0),
			RiskFreeRate:    getEnvFloat("SIM_RISK_FREE_RATE", 0),
			ConfidenceLevel: getEnvFloat("SIM_CONFIDENCE_LEVEL", 0.95),
			RollingWindow:   getEnvInt("SIM_ROLLING_WINDOW", 12),
			ForecastHorizon: getEnvInt("SIM_FORECAST_HORIZON", 12),
		},
		Logging: LoggingConfig{
			Level:         getEnv("LOG_LEVEL", "info"),
			Format:        getEnv("LOG_FORMAT", "pretty"),
			FileEnabled:   getEnvBool("LOG_FILE_ENABLED", false),
			FilePath:      getEnv("LOG_FILE_PATH", "logs"),
			RotationSize:  getEnvInt("LOG_ROTATION_SIZE", 50),
			RetentionDays: getEnvInt("LOG_RETENTION_DAYS", 14),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that would otherwise surface as odd results
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("CACHE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q (memory, postgres, sqlite)", c.Cache.Backend)
	}

	switch c.MarketData.Source {
	case "yahoo", "csv":
	default:
		return fmt.Errorf("invalid MARKET_DATA_SOURCE %q (yahoo, csv)", c.MarketData.Source)
	}

	if c.Simulation.FeeRate < 0 || c.Simulation.FeeRate >= 1 {
		return fmt.Errorf("SIM_FEE_RATE must be in [0, 1), got %v", c.Simulation.FeeRate)
	}
	if c.Simulation.ConfidenceLevel <= 0 || c.Simulation.ConfidenceLevel >= 1 {
		return fmt.Errorf("SIM_CONFIDENCE_LEVEL must be in (0, 1), got %v", c.Simulation.ConfidenceLevel)
	}
	if c.Simulation.RollingWindow < 2 {
		return fmt.Errorf("SIM_ROLLING_WINDOW must be >= 2, got %d", c.Simulation.RollingWindow)
	}
	if c.Simulation.ForecastHorizon < 1 {
		return fmt.Errorf("SIM_FORECAST_HORIZON must be >= 1, got %d", c.Simulation.ForecastHorizon)
	}
	if c.Cache.PruneInterval <= 0 {
		return fmt.Errorf("CACHE_PRUNE_INTERVAL must be positive")
	}
	if c.MarketData.FetchTimeout <= 0 {
		return fmt.Errorf("MARKET_DATA_FETCH_TIMEOUT must be positive")
	}

	return nil
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
