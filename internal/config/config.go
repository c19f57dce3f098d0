package config

import (
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	BalanceAPIURL     string        // Base URL of the remote balance API
	BalanceAPIKey     string        // Token sent to the remote balance API
	BalanceAPITimeout time.Duration // Timeout of a single balance request
	BalanceCacheTTL   time.Duration // How long a fetched balance stays in Redis

	FrecencyNumOrders   int     // Number of recent orders counted in frecency
	FrecencyScale       float64 // Points for an order placed right now
	FrecencyDecayPerDay float64 // Weight retained by an order per day of age

	LoginRatePerMinute int // Login attempts allowed per client and minute
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    getenv("APP_PORT", "8080"),     // Application port
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     os.Getenv("DB_HOST"),           // Database host
		DBPort:     os.Getenv("DB_PORT"),           // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment

		BalanceAPIURL:     os.Getenv("BALANCE_API_URL"),
		BalanceAPIKey:     os.Getenv("BALANCE_API_KEY"),
		BalanceAPITimeout: getDuration("BALANCE_API_TIMEOUT", 3*time.Second),
		BalanceCacheTTL:   getDuration("BALANCE_CACHE_TTL", 30*time.Second),

		FrecencyNumOrders:   getInt("FRECENCY_NUM_ORDERS", 10),
		FrecencyScale:       getFloat("FRECENCY_SCALE", 10_000_000),
		FrecencyDecayPerDay: getFloat("FRECENCY_DECAY_PER_DAY", 0.0025915),

		LoginRatePerMinute: getInt("LOGIN_RATE_PER_MINUTE", 10),
	}
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt falls back to def when the variable is unset, malformed or not positive
func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
