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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prop-engine/internal/config"
	"github.com/prop-engine/internal/feed"
	"github.com/prop-engine/internal/handler"
	"github.com/prop-engine/internal/middleware"
	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/repository"
	"github.com/prop-engine/internal/service"
	"github.com/prop-engine/internal/worker"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := middleware.InitLogger("logs"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb := initRedis(cfg)

	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	violationRepo := repository.NewViolationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Price feed
	feedClient := feed.NewClient(cfg.Feed.WSURL)
	priceService := service.NewPriceService(rdb, feedClient, cfg.Feed.Symbols)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWT)
	notifier := service.NewNotificationService(cfg.Notify.WebhookURL)
	riskService := service.NewRiskService()
	chargesService := service.NewChargesService(settingsRepo)
	accountService := service.NewAccountService(accountRepo, challengeRepo, tradeRepo, violationRepo, settingsRepo, notifier)
	tradingService := service.NewTradingService(
		accountRepo,
		challengeRepo,
		tradeRepo,
		violationRepo,
		settingsRepo,
		riskService,
		chargesService,
		priceService,
		accountService,
		notifier,
	)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	accountHandler := handler.NewAccountHandler(accountService, violationRepo)
	challengeHandler := handler.NewChallengeHandler(challengeRepo, accountService)
	tradingHandler := handler.NewTradingHandler(tradingService)
	priceHandler := handler.NewPriceHandler(priceService)
	adminHandler := handler.NewAdminHandler(accountService, challengeRepo, settingsRepo)

	router := gin.Default()
	router.Use(middleware.RequestLoggerMiddleware())
	router.Use(corsMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
			"time":       time.Now().Unix(),
			"feed":       priceService.IsConnected(),
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		authHandler.RegisterRoutes(v1)

		authMiddleware := middleware.AuthMiddleware(authService)
		adminMiddleware := middleware.RequireAdmin()

		accountHandler.RegisterRoutes(v1, authMiddleware)
		challengeHandler.RegisterRoutes(v1, authMiddleware)
		tradingHandler.RegisterRoutes(v1, authMiddleware)
		priceHandler.RegisterRoutes(v1)
		adminHandler.RegisterRoutes(v1, authMiddleware, adminMiddleware)
	}

	// Start price feed
	ctx := context.Background()
	if err := priceService.Start(ctx); err != nil {
		log.Printf("Warning: Failed to start price service: %v", err)
	}

	// Background workers
	sltpWorker := worker.NewSLTPWorker(
		tradingService,
		priceService,
		tradeRepo,
		time.Duration(cfg.Engine.SLTPIntervalSeconds)*time.Second,
	)
	go sltpWorker.Start()

	maintenanceWorker := worker.NewMaintenanceWorker(accountRepo, accountService, cfg.Engine.MaintenanceSchedule)
	if err := maintenanceWorker.Start(); err != nil {
		log.Fatalf("Failed to start maintenance worker: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	sltpWorker.Stop()
	maintenanceWorker.Stop()
	priceService.Stop()

	// Graceful shutdown with 10 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := rdb.Close(); err != nil {
		log.Printf("Error closing Redis connection: %v", err)
	}

	log.Println("Server exited properly")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.ChallengeAccount{},
		&models.Trade{},
		&models.Violation{},
		&models.PlatformSettings{},
		&models.TradeCharges{},
	)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
