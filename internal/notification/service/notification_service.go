package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vlkv/go-shop/internal/notification/domain"
	"github.com/vlkv/go-shop/internal/notification/infrastructure/email"
	"github.com/vlkv/go-shop/internal/notification/repository"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type NotificationService struct {
	pool        *pgxpool.Pool
	repo        repository.NotificationRepository
	emailSender email.Sender
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewNotificationService(
	pool *pgxpool.Pool,
	repo repository.NotificationRepository,
	emailSender email.Sender,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		pool:        pool,
		repo:        repo,
		emailSender: emailSender,
		logger:      logger,
		tracer:      otel.Tracer("notification-service"),
	}
}

// HandleOrderEvent processes one delivery. The dedup row, the notification
// record and the email all succeed or fail together: an email failure rolls
// the dedup row back so the redelivered message gets a fresh try, while a
// duplicate delivery short-circuits before any side effect runs.
func (s *NotificationService) HandleOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderEvent")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", event.OrderID),
		attribute.String("status", event.Status),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := s.repo.MarkProcessed(ctx, tx, event.OrderID, event.Status); err != nil {
		if errors.Is(err, repository.ErrAlreadyProcessed) {
			mylogger.Info(
				ctx,
				s.logger,
				"Duplicate delivery, skipping",
				zap.Int64("order_id", event.OrderID),
				zap.String("status", event.Status),
			)

			return nil
		}

		return err
	}

	userEmail, err := s.repo.GetUserEmail(ctx, tx, event.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Event references unknown user, dropping",
				zap.Int64("order_id", event.OrderID),
				zap.Int64("user_id", event.UserID),
			)

			// The dedup row still commits so the event is not retried.
			return tx.Commit(ctx)
		}

		return err
	}

	if err := s.repo.RecordNotification(ctx, tx, event.OrderID, event.UserID, event.Status, userEmail); err != nil {
		return err
	}

	if err := s.emailSender.SendOrderStatusEmail(ctx, userEmail, event); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order event processed",
		zap.Int64("order_id", event.OrderID),
		zap.String("status", event.Status),
	)

	return nil
}
