package main

import (
	"context" // context package is needed for Redis operations
	"time"    // Limiter idle timeout

	"tap_system/internal/api"        // Custom package for API handlers
	"tap_system/internal/balance"    // Remote balance API
	"tap_system/internal/config"     // Custom package for configuration
	"tap_system/internal/db"         // Database connection
	"tap_system/internal/frecency"   // Frecency scoring
	"tap_system/internal/ledger"     // Order ledger
	"tap_system/internal/metrics"    // Prometheus counters
	"tap_system/internal/middleware" // Custom package for middleware
	"tap_system/internal/store"      // Persistence
	"tap_system/internal/utils"      // Redis cache helpers

	"github.com/gin-gonic/gin"                                  // Gin web framework
	"github.com/prometheus/client_golang/prometheus"            // Metrics registry
	"github.com/prometheus/client_golang/prometheus/collectors" // Runtime collectors
	"github.com/redis/go-redis/v9"                              // Redis client
	"github.com/sirupsen/logrus"                                // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	conn, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}
	cache := utils.RedisCache{Client: redisClient}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Domain services
	st := store.New(conn)
	balances := balance.NewCachedFetcher(
		balance.NewClient(nil, cfg.BalanceAPIURL, cfg.BalanceAPIKey, cfg.BalanceAPITimeout, nil),
		cache, cfg.BalanceCacheTTL, nil,
	)
	scorer := frecency.New(cfg.FrecencyNumOrders, cfg.FrecencyScale, cfg.FrecencyDecayPerDay)
	orders := ledger.New(st, scorer, ledger.WithInvalidator(balances), ledger.WithMetrics(collector))

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{
		Users:        st,
		Products:     st,
		Ledger:       orders,
		Balances:     balances,
		Metrics:      collector,
		Cache:        cache,
		Gatherer:     registry,
		LoginLimiter: middleware.NewRateLimiter(cfg.LoginRatePerMinute, 10*time.Minute),
		JWTSecret:    cfg.JWTSecret,
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	logrus.Info("Server running on " + cfg.AppPort) // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
