package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"productapi/internal/config"
	"productapi/internal/handlers"
	applogger "productapi/internal/logger"
	"productapi/internal/metrics"
	"productapi/internal/repositories"
	"productapi/internal/search"
	"productapi/internal/server"
	"productapi/internal/services"
	"productapi/pkg/rabbitmq"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := applogger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// --- Product Store ---
	productRepo, err := newProductRepository(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize product store", zap.Error(err))
	}

	// --- Search Index ---
	productIndex := newProductIndex(cfg)

	// --- RabbitMQ (optional) ---
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{
			URL:          cfg.RabbitMQURL,
			Exchange:     cfg.RabbitMQExchange,
			ReindexQueue: cfg.RabbitMQReindexQueue,
			Logger:       logger,
		})
		if err != nil {
			logger.Fatal("Failed to initialize RabbitMQ client", zap.Error(err))
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		logger.Info("RABBITMQ_URL not set, product events disabled")
	}

	// --- Gateway, handlers, app ---
	m := metrics.New()
	productService := services.NewProductService(productRepo, productIndex, publisher, logger, m).
		WithPageSize(cfg.SearchPageSize)
	// The in-memory index starts empty, fill it from the store.
	if cfg.SearchBackend == config.SearchMemory {
		if _, err := productService.RebuildIndex(context.Background()); err != nil {
			logger.Fatal("Failed to build search index", zap.Error(err))
		}
	}

	productHandler := handlers.NewProductHandler(productService, logger)
	app := server.NewApp(productHandler, server.Options{RequestLogging: true, Metrics: m})

	// --- Reindex consumer ---
	if mqClient != nil {
		err := mqClient.ConsumeReindexEvents(func(event rabbitmq.ProductEvent) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return productService.ReindexProduct(ctx, event.ProductID)
		})
		if err != nil {
			logger.Error("Failed to start reindex consumer", zap.Error(err))
		}
	}

	// --- Start HTTP Server ---
	logger.Info("Starting server",
		zap.String("port", cfg.AppPort),
		zap.String("store", cfg.DatabaseDriver),
		zap.String("search", cfg.SearchBackend),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Error during Fiber shutdown", zap.Error(err))
	}
	logger.Info("Server gracefully stopped")
}

func newProductRepository(cfg *config.Config) (repositories.ProductRepository, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		return repositories.NewMemoryProductRepository(), nil
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repo := repositories.NewGORMProductRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

func newProductIndex(cfg *config.Config) search.ProductIndex {
	if cfg.SearchBackend == config.SearchElasticsearch {
		return search.NewElasticsearchIndex(search.ElasticsearchConfig{
			URL:     cfg.ElasticsearchURL,
			Index:   cfg.ElasticsearchIndex,
			Timeout: cfg.ElasticsearchTimeout,
		})
	}
	return search.NewMemoryIndex()
}
