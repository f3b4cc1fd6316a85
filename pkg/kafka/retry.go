package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sony/gobreaker"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"github.com/vlkv/go-shop/pkg/utils"
	"go.uber.org/zap"
)

// ErrMalformedPayload marks messages that can never be delivered no matter
// how often we retry. They fail a publish attempt sequence immediately and
// are dropped on the consumer side without redelivery.
var ErrMalformedPayload = errors.New("malformed payload")

type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// IsRetryable classifies delivery failures: broker and connectivity errors
// are worth another attempt, broken payloads and configuration are not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrMalformedPayload) {
		return false
	}

	var confErr sarama.ConfigurationError
	if errors.As(err, &confErr) {
		return false
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var marshalErr *json.MarshalerError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.As(err, &marshalErr) {
		return false
	}

	return true
}

// RetryingProducer wraps a Producer with one bounded attempt sequence per
// message and a circuit breaker so a dead broker fails fast instead of
// stalling the delivery worker for the full backoff budget.
type RetryingProducer struct {
	next   Producer
	policy RetryPolicy
	logger *zap.Logger
	cb     *gobreaker.CircuitBreaker
}

func NewRetryingProducer(next Producer, policy RetryPolicy, logger *zap.Logger) *RetryingProducer {
	settings := gobreaker.Settings{
		Name:     "KafkaProducer",
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &RetryingProducer{
		next:   next,
		policy: policy,
		logger: logger,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *RetryingProducer) ProduceMessage(ctx context.Context, topic string, message interface{}) error {
	var err error

	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		_, err = utils.ExecuteWithBreaker(p.cb, func() (struct{}, error) {
			return struct{}{}, p.next.ProduceMessage(ctx, topic, message)
		})
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			mylogger.Error(
				ctx,
				p.logger,
				"Non-retryable publish failure",
				zap.String("topic", topic),
				zap.Error(err),
			)

			return err
		}

		mylogger.Warn(
			ctx,
			p.logger,
			"Publish attempt failed",
			zap.String("topic", topic),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.policy.MaxAttempts),
			zap.Error(err),
		)

		if attempt < p.policy.MaxAttempts {
			time.Sleep(p.policy.Backoff)
		}
	}

	return fmt.Errorf("publish to %s failed after %d attempts: %w", topic, p.policy.MaxAttempts, err)
}

func (p *RetryingProducer) Close() error {
	return p.next.Close()
}
