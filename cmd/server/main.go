package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"saastracker-backend/internal/api"
	"saastracker-backend/internal/cache"
	"saastracker-backend/internal/config"
	"saastracker-backend/internal/core"
	"saastracker-backend/internal/db"
	"saastracker-backend/internal/events"
	"saastracker-backend/internal/middleware"
	"saastracker-backend/internal/payment"
)

func main() {
	// .env is a development convenience; in production the environment is set directly.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Println("Warning: Error loading .env file:", err)
		}
	}

	// --- 1. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	zapLogger, err := newLogger(appConfig)
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	zapLogger.Info("Configuration loaded", zap.String("storeBackend", appConfig.StoreBackend), zap.String("ginMode", appConfig.GinMode))

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInit()

	// --- 3. Storage and token verification ---
	repos, verifier, closeStore, err := openStore(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize storage", zap.Error(err))
	}
	defer closeStore()

	// --- 4. Optional infrastructure: user cache and event publisher ---
	userCache := openCache(initCtx, appConfig, zapLogger)
	if c, ok := userCache.(*cache.RedisCache); ok {
		defer c.Close()
	}
	publisher := openPublisher(appConfig, zapLogger)
	defer publisher.Close()

	// --- 5. Payment provider ---
	var payments core.PaymentProvider = payment.Unconfigured{}
	if appConfig.StripeSecretKey != "" {
		payments = payment.NewStripeProvider(payment.StripeConfig{
			SecretKey:         appConfig.StripeSecretKey,
			WebhookSecret:     appConfig.StripeWebhookSecret,
			MaxNetworkRetries: 2,
			Logger:            zapLogger.Named("stripe"),
		})
		zapLogger.Info("Stripe payment provider configured")
	} else {
		zapLogger.Warn("STRIPE_SECRET_KEY is not set; subscription calls will fail")
	}

	// --- 6. Initialize Services ---
	userService := core.NewUserService(repos.Users, userCache, appConfig.UserCacheTTL, publisher, nil)
	services := api.Services{
		Users:   userService,
		Tools:   core.NewToolService(repos.Tools, publisher, nil),
		Billing: core.NewBillingService(userService, repos.Subscriptions, payments, publisher, nil),
	}

	// --- 7. Setup Gin HTTP Engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if appConfig.ClientURL == "" {
		zapLogger.Warn("CLIENT_URL is not configured; only the HTTP fallback sends CORS headers")
	}
	authMW := middleware.NewAuthMiddleware(verifier, zapLogger)
	router := api.NewRouter(zapLogger, appConfig.ClientURL, authMW, services)

	// --- 8. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 9. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), appConfig.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	zapLogger.Info("Server exiting gracefully.")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsRelease() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// openStore returns the repositories for the configured backend together with the
// token verifier and a close function.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (db.Repositories, middleware.TokenVerifier, func(), error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn("Using the in-memory store; data is lost on restart")
		var verifier middleware.TokenVerifier = middleware.RejectingVerifier{}
		if cfg.FirebaseProjectID != "" {
			fb, err := db.Open(ctx, cfg, log)
			if err != nil {
				return db.Repositories{}, nil, nil, err
			}
			verifier = fb.Auth
			return db.NewMemoryStore().Repositories(), verifier, func() { _ = fb.Close() }, nil
		}
		log.Warn("FIREBASE_PROJECT_ID is not set; ID tokens will be rejected")
		return db.NewMemoryStore().Repositories(), verifier, func() {}, nil
	}

	fb, err := db.Open(ctx, cfg, log)
	if err != nil {
		return db.Repositories{}, nil, nil, err
	}
	return fb.Repositories(), fb.Auth, func() {
		if err := fb.Close(); err != nil {
			log.Warn("Error closing Firestore client", zap.Error(err))
		}
	}, nil
}

func openCache(ctx context.Context, cfg config.Config, log *zap.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.Noop{}
	}
	c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		log.Warn("Redis unavailable; user cache disabled", zap.Error(err))
		return cache.Noop{}
	}
	return c
}

func openPublisher(cfg config.Config, log *zap.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.Noop{}
	}
	p, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.EventsQueue, log)
	if err != nil {
		log.Warn("RabbitMQ unavailable; domain events disabled", zap.Error(err))
		return events.Noop{}
	}
	return p
}
