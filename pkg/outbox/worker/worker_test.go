package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vlkv/go-shop/pkg/outbox/domain"
	"go.uber.org/zap"
)

type fakeOutboxRepo struct {
	pending   []*domain.OutboxEvent
	published []int64
	failed    map[int64]string
}

func newFakeOutboxRepo(events ...*domain.OutboxEvent) *fakeOutboxRepo {
	return &fakeOutboxRepo{
		pending: events,
		failed:  map[int64]string{},
	}
}

func (r *fakeOutboxRepo) SaveOutboxEvent(context.Context, pgx.Tx, *domain.OutboxEvent) error {
	return nil
}

func (r *fakeOutboxRepo) ClaimPendingEvents(context.Context, int) ([]*domain.OutboxEvent, error) {
	claimed := r.pending
	r.pending = nil
	return claimed, nil
}

func (r *fakeOutboxRepo) MarkEventPublished(_ context.Context, eventID int64) error {
	r.published = append(r.published, eventID)
	return nil
}

func (r *fakeOutboxRepo) MarkEventFailed(_ context.Context, eventID int64, errMsg string) error {
	r.failed[eventID] = errMsg
	return nil
}

type recordingProducer struct {
	topics []string
	err    error
}

func (p *recordingProducer) ProduceMessage(_ context.Context, topic string, _ interface{}) error {
	p.topics = append(p.topics, topic)
	return p.err
}

func outboxEvent(id int64, payload string) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		Id:      id,
		Topic:   "order-events",
		Payload: json.RawMessage(payload),
	}
}

func TestProcessBatch_PublishesAndMarksInOrder(t *testing.T) {
	repo := newFakeOutboxRepo(
		outboxEvent(1, `{"orderId":1}`),
		outboxEvent(2, `{"orderId":2}`),
	)
	producer := &recordingProducer{}
	p := NewOutboxProcessor(repo, producer, zap.NewNop())

	err := p.processBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, repo.published)
	assert.Empty(t, repo.failed)
	assert.Len(t, producer.topics, 2)
}

func TestProcessBatch_ExhaustedDeliveryRetiresEvent(t *testing.T) {
	repo := newFakeOutboxRepo(
		outboxEvent(1, `{"orderId":1}`),
		outboxEvent(2, `{"orderId":2}`),
	)
	producer := &recordingProducer{err: errors.New("publish to order-events failed after 3 attempts")}
	p := NewOutboxProcessor(repo, producer, zap.NewNop())

	err := p.processBatch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, repo.published)
	assert.Contains(t, repo.failed[1], "after 3 attempts")
	assert.Contains(t, repo.failed[2], "after 3 attempts")

	// A retired event is never claimed again.
	next := p.processBatch(context.Background())
	require.NoError(t, next)
	assert.Len(t, producer.topics, 2)
}

func TestProcessBatch_MalformedPayloadRetiredWithoutPublish(t *testing.T) {
	repo := newFakeOutboxRepo(
		outboxEvent(1, `{"orderId":`),
		outboxEvent(2, `{"orderId":2}`),
	)
	producer := &recordingProducer{}
	p := NewOutboxProcessor(repo, producer, zap.NewNop())

	err := p.processBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "malformed payload", repo.failed[1])
	assert.Equal(t, []int64{2}, repo.published)
	assert.Len(t, producer.topics, 1, "broken payloads never reach the broker")
}
