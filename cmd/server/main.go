package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripmingle/internal/config"
	"tripmingle/internal/handlers"
	"tripmingle/internal/middleware"
	"tripmingle/internal/repositories/mongodb"
	"tripmingle/internal/services"
	"tripmingle/pkg/cache"
	"tripmingle/pkg/database"
	"tripmingle/pkg/logger"
	"tripmingle/pkg/payment"
	"tripmingle/pkg/push"
	"tripmingle/pkg/sms"
	"tripmingle/pkg/websocket"
	"tripmingle/routes"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// MongoDB
	mongoDB, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoDB.Close()

	if err := database.EnsureIndexes(context.Background(), mongoDB.Database); err != nil {
		appLogger.WithError(err).Fatal("Failed to create indexes")
	}

	// Redis
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	cacheService := services.NewCacheService(redisCache, appLogger)

	// Repositories
	tripRepo := mongodb.NewTripRepository(mongoDB.Database, cacheService)
	notificationRepo := mongodb.NewNotificationRepository(mongoDB.Database, cacheService)
	userRepo := mongodb.NewUserRepository(mongoDB.Database)
	vehicleRepo := mongodb.NewVehicleRepository(mongoDB.Database)

	// Push provider
	var pushProvider push.PushProvider
	switch cfg.Push.Provider {
	case "apns":
		pushProvider, err = push.NewAPNSProvider(
			cfg.Push.APNS.KeyFile,
			cfg.Push.APNS.KeyID,
			cfg.Push.APNS.TeamID,
			cfg.Push.APNS.BundleID,
			cfg.Push.APNS.Production,
		)
	default:
		if cfg.Push.FCM.Credentials != "" {
			pushProvider, err = push.NewFCMProvider(cfg.Push.FCM.Credentials)
		}
	}
	if err != nil {
		appLogger.WithError(err).Warn("Push provider unavailable, notifications will be stored only")
		pushProvider = nil
	}

	var smsProvider sms.SMSProvider
	if cfg.SMS.Enabled {
		smsProvider = sms.NewTwilioProvider(
			cfg.SMS.Twilio.AccountSID,
			cfg.SMS.Twilio.AuthToken,
			cfg.SMS.Twilio.FromNumber,
		)
	}

	paymentProvider := payment.NewStripeProvider(
		cfg.Payment.Stripe.SecretKey,
		cfg.Payment.Stripe.WebhookSecret,
	)

	// Services
	notificationService := services.NewNotificationService(
		notificationRepo,
		userRepo,
		pushProvider,
		cfg.Push.Provider,
		smsProvider,
		appLogger,
	)
	paymentService := services.NewPaymentService(paymentProvider, appLogger)
	tripService := services.NewTripService(
		tripRepo,
		userRepo,
		vehicleRepo,
		notificationService,
		paymentService,
		cacheService,
		cfg.Booking,
		appLogger,
	)

	// Handlers
	tripHandler := handlers.NewTripHandler(tripService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// WebSocket hub and Redis bridge
	hub := websocket.NewHub(appLogger)
	go hub.Run()

	wsHandler := websocket.NewHandler(hub, cfg.WebSocket, appLogger)
	bridge := websocket.NewBridge(hub, redisCache, appLogger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go bridge.Run(workerCtx)
	go tripService.RunSearchExpiryWorker(workerCtx)

	// Router
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.MetricsMiddleware())

	v1 := router.Group("/api/v1")
	{
		routes.SetupTripRoutes(v1, tripHandler, cfg.Security.JWTSecret)
		routes.SetupNotificationRoutes(v1, notificationHandler, cfg.Security.JWTSecret)
	}

	router.GET(cfg.WebSocket.Path, middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"mongodb": "up", "redis": "up"}

		if err := mongoDB.Ping(); err != nil {
			checks["mongodb"] = "down"
			status = http.StatusServiceUnavailable
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := redisCache.Ping(ctx); err != nil {
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":  checks,
			"version": cfg.App.Version,
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.App.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}

	appLogger.Info("Server stopped")
}
