package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vlkv/go-shop/internal/notification/infrastructure/email"
	"github.com/vlkv/go-shop/internal/notification/repository"
	"github.com/vlkv/go-shop/internal/notification/service"
	"github.com/vlkv/go-shop/internal/notification/transport/kafka"
	"github.com/vlkv/go-shop/pkg/config"
	"github.com/vlkv/go-shop/pkg/db"
	pkgkafka "github.com/vlkv/go-shop/pkg/kafka"
	"github.com/vlkv/go-shop/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, "notification-service")
	if err != nil {
		log.Fatalf("error starting telemetry: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: "info",
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("error creating postgres db: %v", err)
	}

	emailSender := email.NewSMTPSender(cfg.SMTP, logger)
	notificationRepo := repository.NewNotificationRepository(logger)
	notificationService := service.NewNotificationService(pool, notificationRepo, emailSender, logger)

	consumer := kafka.NewConsumer(notificationService, logger)

	policy := pkgkafka.RetryPolicy{
		MaxAttempts: cfg.Kafka.Retry.MaxAttempts,
		Backoff:     cfg.Kafka.Retry.Backoff,
	}

	consumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.OrderTopic, policy)

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Printf("error closing telemetry: %v\n", err)
	}

	pool.Close()
}
