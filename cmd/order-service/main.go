package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	catalogrepo "github.com/vlkv/go-shop/internal/catalog/repository"
	catalogservice "github.com/vlkv/go-shop/internal/catalog/service"
	"github.com/vlkv/go-shop/internal/order/repository"
	"github.com/vlkv/go-shop/internal/order/service"
	orderhttp "github.com/vlkv/go-shop/internal/order/transport/http"
	"github.com/vlkv/go-shop/pkg/config"
	"github.com/vlkv/go-shop/pkg/db"
	"github.com/vlkv/go-shop/pkg/kafka"
	"github.com/vlkv/go-shop/pkg/mylogger"
	outboxrepo "github.com/vlkv/go-shop/pkg/outbox/repository"
	"github.com/vlkv/go-shop/pkg/outbox/worker"
	"github.com/vlkv/go-shop/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, "order-service")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: "info",
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	productRepo := catalogrepo.NewProductRepository(pool, logger)
	inventory := catalogservice.NewCachedInventoryService(
		catalogservice.NewInventoryService(productRepo, logger),
		redisClient,
	)

	orderRepo := repository.NewOrderRepository(pool, logger)
	outboxRepo := outboxrepo.NewOutboxRepository(pool, logger)

	orderService := service.NewOrderService(
		pool,
		orderRepo,
		inventory,
		outboxRepo,
		cfg.Kafka.OrderTopic,
		logger,
	)

	baseProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}

	policy := kafka.RetryPolicy{
		MaxAttempts: cfg.Kafka.Retry.MaxAttempts,
		Backoff:     cfg.Kafka.Retry.Backoff,
	}
	producer := kafka.NewRetryingProducer(baseProducer, policy, logger)

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, producer, logger)
	go outboxProcessor.Start(ctx)

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})

	orderHandler := orderhttp.NewOrderHandler(orderService, logger)
	orderhttp.RegisterRoutes(app, orderHandler)

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down order service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down http server", zap.Error(err))
	}

	if err := producer.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close producer", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	pool.Close()
}
