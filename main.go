package main

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/bachgen/internal/api"
	"github.com/Conceptual-Machines/bachgen/internal/cache"
	"github.com/Conceptual-Machines/bachgen/internal/config"
	"github.com/Conceptual-Machines/bachgen/internal/database"
	"github.com/Conceptual-Machines/bachgen/internal/logger"
	"github.com/Conceptual-Machines/bachgen/internal/metrics"
	"github.com/Conceptual-Machines/bachgen/internal/services"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Printf("⚠️  %v, using info", err)
	}
	logger.SetLevel(level)

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "bachgen@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	if cfg.IsJWTMode() && cfg.JWTSecret == "" {
		log.Fatal("AUTH_MODE=jwt requires JWT_SECRET")
	}

	opts := []services.ComposerOption{services.WithDefaultBPM(cfg.DefaultBPM)}

	// Archive (optional)
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL, cfg.Environment != environmentProduction)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to connect to database:", err)
		}
		if err := database.Migrate(db); err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to run migrations:", err)
		}
		opts = append(opts, services.WithStore(database.NewStore(db)))
	} else {
		log.Println("⚠️  Archive disabled (DATABASE_URL not set)")
	}

	// Result cache (optional)
	cacheOn := false
	if cfg.RedisURL != "" {
		store, err := cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			sentry.CaptureException(err)
			log.Printf("⚠️  Redis unavailable, caching disabled: %v", err)
		} else {
			c := cache.New(store, cfg.CacheTTL)
			defer c.Close()
			opts = append(opts, services.WithCache(c))
			cacheOn = true
		}
	}

	// Metrics
	prom := metrics.NewPrometheus()
	cloudwatch, err := metrics.NewClient(context.Background(), cfg.Environment, cfg.MetricsEnabled)
	if err != nil {
		log.Printf("Failed to initialize CloudWatch metrics: %v", err)
	}
	opts = append(opts, services.WithPrometheus(prom), services.WithCloudWatch(cloudwatch))

	// Set Gin mode
	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Deps{
		Config:     cfg,
		DB:         db,
		Composer:   services.NewComposerService(opts...),
		Prometheus: prom,
		CloudWatch: cloudwatch,
		CacheOn:    cacheOn,
		Version:    GetVersion(),
	})

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
