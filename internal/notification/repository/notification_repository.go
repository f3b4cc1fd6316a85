package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type NotificationRepository interface {
	MarkProcessed(ctx context.Context, tx pgx.Tx, orderID int64, status string) error
	RecordNotification(ctx context.Context, tx pgx.Tx, orderID, userID int64, status, email string) error
	GetUserEmail(ctx context.Context, tx pgx.Tx, userID int64) (string, error)
}

type notificationRepo struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewNotificationRepository(logger *zap.Logger) NotificationRepository {
	return &notificationRepo{
		logger: logger,
		tracer: otel.Tracer("notification/repository"),
	}
}

// MarkProcessed inserts the dedup row keyed by (order_id, status). A
// duplicate key means another delivery of the same event already went
// through, which is reported as ErrAlreadyProcessed so the caller can skip
// the side effect without failing the message.
func (r *notificationRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, orderID int64, status string) error {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.MarkProcessed")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", status),
	)

	query := `
		INSERT INTO processed_events (order_id, status, processed_at)
		VALUES ($1, $2, NOW())
	`

	if _, err := tx.Exec(ctx, query, orderID, status); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyProcessed
		}

		span.RecordError(err)
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	return nil
}

func (r *notificationRepo) RecordNotification(ctx context.Context, tx pgx.Tx, orderID, userID int64, status, email string) error {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.RecordNotification")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("user_id", userID),
	)

	query := `
		INSERT INTO notifications (order_id, user_id, status, email, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	if _, err := tx.Exec(ctx, query, orderID, userID, status, email); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to record notification: %w", err)
	}

	return nil
}

func (r *notificationRepo) GetUserEmail(ctx context.Context, tx pgx.Tx, userID int64) (string, error) {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.GetUserEmail")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT email FROM users WHERE id = $1
	`

	var email string
	if err := tx.QueryRow(ctx, query, userID).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}

		span.RecordError(err)
		return "", fmt.Errorf("failed to get user email: %w", err)
	}

	return email, nil
}
