package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cataloghq/catalog-service/config"
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/media"
	"github.com/cataloghq/catalog-service/internal/pkg/broker"
	"github.com/cataloghq/catalog-service/internal/pkg/cache"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
	"github.com/cataloghq/catalog-service/internal/pkg/postgres"
	"github.com/cataloghq/catalog-service/internal/pkg/search"
	"github.com/cataloghq/catalog-service/internal/pkg/txmanager"

	catH "github.com/cataloghq/catalog-service/internal/category/handler"
	catRepoPkg "github.com/cataloghq/catalog-service/internal/category/repository"
	catUCPkg "github.com/cataloghq/catalog-service/internal/category/usecase"

	crH "github.com/cataloghq/catalog-service/internal/changerequest/handler"
	crRepoPkg "github.com/cataloghq/catalog-service/internal/changerequest/repository"
	crUCPkg "github.com/cataloghq/catalog-service/internal/changerequest/usecase"

	invH "github.com/cataloghq/catalog-service/internal/inventory/handler"
	invListenerPkg "github.com/cataloghq/catalog-service/internal/inventory/listener"
	invRepoPkg "github.com/cataloghq/catalog-service/internal/inventory/repository"
	invUCPkg "github.com/cataloghq/catalog-service/internal/inventory/usecase"

	prodH "github.com/cataloghq/catalog-service/internal/product/handler"
	prodRepoPkg "github.com/cataloghq/catalog-service/internal/product/repository"
	prodUCPkg "github.com/cataloghq/catalog-service/internal/product/usecase"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.Config{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	catRepo := catRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	invRepo := invRepoPkg.NewPGRepository(db)
	crRepo := crRepoPkg.NewPGRepository(db)
	txm := txmanager.NewManager(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.OrdersTopic,
		GroupID: cfg.Kafka.InventoryGroup,
	})
	defer kafkaConsumer.Close()

	publisher := broker.NewPublisher(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.CatalogTopic,
	})
	defer publisher.Close()
	appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers))

	// 5.8 Initialize Elasticsearch
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, search sync disabled", zap.Error(err))
		esClient = nil
	} else {
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 5.9 Initialize Media Store
	mediaStore, err := media.NewGCSStore(context.Background(), cfg.Media.Bucket, cfg.Media.Prefix)
	if err != nil {
		appLogger.Fatal("Could not initialize media store", zap.Error(err))
	}

	// 6. Initialize UseCases
	authz := auth.NewRoleAuthorizer()
	catUC := catUCPkg.NewCategoryUseCase(catRepo, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, redisClient, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(
		prodRepo, crRepo, catRepo, invRepo, mediaStore, txm, authz,
		redisClient, esClient, publisher, appLogger,
	)
	crUC := crUCPkg.NewChangeRequestUseCase(crRepo, prodRepo, txm, redisClient, publisher, appLogger)

	// 6.5 Initialize Listeners
	invListener := invListenerPkg.NewInventoryListener(kafkaConsumer, invUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go invListener.Start(ctx)

	// 7. Initialize HTTP Router
	if cfg.Server.AppEnv != "dev" && cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), auth.Middleware())

	api := router.Group("/api/v1")
	prodH.NewProductHandler(prodUC, appLogger).Register(api)
	catH.NewCategoryHandler(catUC, appLogger).Register(api)
	invH.NewInventoryHandler(invUC, appLogger).Register(api)
	crH.NewChangeRequestHandler(crUC, appLogger).Register(api.Group("", auth.RequireAdmin()))

	// 8. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
