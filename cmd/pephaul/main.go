package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/config"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/handler"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/repository"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/service"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/metrics"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting pephaul service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.Product{},
		&entity.ProductLock{},
		&entity.Order{},
		&entity.OrderItem{},
		&entity.Setting{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services, cfg)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(metrics.Middleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		)
		dialector = mysql.Open(dsn)
	default:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	{
		api.GET("/products", h.Catalog.List)
		api.GET("/form", h.Catalog.State)
		api.GET("/fx", h.Catalog.Rate)

		orders := api.Group("/orders")
		{
			orders.POST("", h.Order.Submit)
			orders.GET("/lookup", h.Order.Lookup)
			orders.GET("/:id", h.Order.Get)
			orders.POST("/:id/items", h.Order.AddItems)
			orders.PUT("/:id/items", h.Order.UpdateQuantity)
			orders.POST("/:id/cancel", h.Order.Cancel)
			orders.POST("/:id/payment", h.Order.SubmitPayment)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", h.Admin.Login)

			authed := admin.Group("")
			authed.Use(middleware.JWTAuth(cfg.JWT.Secret), middleware.AdminOnly())
			{
				authed.GET("/orders", h.Admin.ListOrders)
				authed.GET("/orders/search", h.Admin.SearchOrders)
				authed.GET("/orders/export", h.Admin.ExportOrders)
				authed.POST("/orders/:id/confirm-payment", h.Admin.ConfirmPayment)
				authed.POST("/orders/:id/mark-unpaid", h.Admin.MarkUnpaid)
				authed.PUT("/orders/:id/lock", h.Admin.SetOrderLock)
				authed.GET("/orders/:id/proof", h.Admin.ProofURL)

				authed.PUT("/locks/global", h.Admin.SetGlobalLock)
				authed.GET("/locks/tabs", h.Admin.ListTabLocks)
				authed.PUT("/locks/tabs/:tab", h.Admin.SetTabLock)

				authed.PUT("/tabs/current", h.Admin.SetCurrentTab)
				authed.PUT("/tabs/:tab/supplier", h.Admin.AssignSupplier)

				authed.POST("/products", h.Admin.UpsertProduct)
				authed.POST("/products/import", h.Admin.ImportCatalog)
				authed.GET("/products/template", h.Admin.DownloadTemplate)
				authed.PUT("/products/:code/lock", h.Admin.SetProductLock)

				authed.GET("/suppliers", h.Admin.ListSuppliers)
				authed.GET("/suppliers/summary", h.Admin.SupplierSummary)
			}
		}
	}
}
