package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"github.com/vlkv/go-shop/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	ClaimPendingEvents(ctx context.Context, batchSize int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, eventID int64) error
	MarkEventFailed(ctx context.Context, eventID int64, error string) error
}

type KafkaProducer interface {
	ProduceMessage(ctx context.Context, topic string, message interface{}) error
}

// OutboxProcessor drains committed events to the bus on its own task loop.
// The business transaction never waits on broker round trips; the producer
// handed in owns the per-event retry budget, and an event that exhausts it
// is marked failed and logged, never retried again.
//
// Each batch is claimed up front and published with no transaction open, so
// the retry budget never pins row locks or a pooled connection while the
// producer backs off.
type OutboxProcessor struct {
	repo          OutboxRepository
	kafkaProducer KafkaProducer
	logger        *zap.Logger
	batchSize     int
	interval      time.Duration
	tracer        trace.Tracer
}

func NewOutboxProcessor(
	repo OutboxRepository,
	producer KafkaProducer,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:          repo,
		kafkaProducer: producer,
		logger:        logger,
		batchSize:     50,
		interval:      500 * time.Millisecond,
		tracer:        otel.Tracer("outbox-worker"),
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	mylogger.Info(
		ctx,
		p.logger,
		"Starting outbox processor",
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(
				ctx,
				p.logger,
				"Outbox processor stopping",
			)

			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"Error processing outbox batch",
					zap.Error(err),
				)
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.processBatch")
	defer span.End()

	events, err := p.repo.ClaimPendingEvents(ctx, p.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	mylogger.Debug(
		ctx,
		p.logger,
		"Processing outbox events",
		zap.Int("count", len(events)),
	)

	for _, event := range events {
		if !json.Valid(event.Payload) {
			mylogger.Error(
				ctx,
				p.logger,
				"Outbox event payload is not valid JSON, retiring it",
				zap.Int64("id", event.Id),
			)

			if dbErr := p.repo.MarkEventFailed(ctx, event.Id, "malformed payload"); dbErr != nil {
				return dbErr
			}
			continue
		}

		err = p.kafkaProducer.ProduceMessage(ctx, event.Topic, event.Payload)
		if err != nil {
			mylogger.Error(
				ctx,
				p.logger,
				"Delivery failed, event retired after exhausting attempts",
				zap.Int64("id", event.Id),
				zap.String("topic", event.Topic),
				zap.Error(err),
			)

			if dbErr := p.repo.MarkEventFailed(ctx, event.Id, err.Error()); dbErr != nil {
				return dbErr
			}

			continue
		}

		if dbErr := p.repo.MarkEventPublished(ctx, event.Id); dbErr != nil {
			mylogger.Error(
				ctx,
				p.logger,
				"Failed to mark event published",
				zap.Int64("id", event.Id),
				zap.Error(dbErr),
			)

			return dbErr
		}

		mylogger.Debug(
			ctx,
			p.logger,
			"Outbox event published",
			zap.Int64("id", event.Id),
			zap.String("topic", event.Topic),
		)
	}

	return nil
}
