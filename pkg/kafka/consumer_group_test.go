package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func newFakeSession() *fakeSession {
	return &fakeSession{ctx: context.Background()}
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "" }
func (s *fakeSession) GenerationID() int32                      { return 0 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "order-events" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func claimOf(offsets ...int64) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(offsets))
	for _, offset := range offsets {
		ch <- &sarama.ConsumerMessage{Topic: "order-events", Offset: offset}
	}
	close(ch)

	return &fakeClaim{messages: ch}
}

func newTestHandler(fn HandlerFunc) *saramaHandler {
	return &saramaHandler{
		handler: fn,
		policy:  RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
		logger:  zap.NewNop(),
	}
}

func TestConsumeClaim_MarksSuccesses(t *testing.T) {
	session := newFakeSession()
	h := newTestHandler(func(context.Context, *sarama.ConsumerMessage) error {
		return nil
	})

	err := h.ConsumeClaim(session, claimOf(5, 6))

	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, session.marked)
}

// An exhausted retryable message must stop the claim with its offset
// unmarked; marking later messages would commit past it and lose it.
func TestConsumeClaim_ExhaustedMessageStopsClaimUnmarked(t *testing.T) {
	session := newFakeSession()
	calls := 0
	h := newTestHandler(func(_ context.Context, msg *sarama.ConsumerMessage) error {
		if msg.Offset == 5 {
			calls++
			return errors.New("downstream unavailable")
		}
		return nil
	})

	err := h.ConsumeClaim(session, claimOf(5, 6))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Empty(t, session.marked, "nothing past the failed offset may be committed")
}

func TestConsumeClaim_NonRetryableMarkedAndSkipped(t *testing.T) {
	session := newFakeSession()
	calls := 0
	h := newTestHandler(func(_ context.Context, msg *sarama.ConsumerMessage) error {
		calls++
		if msg.Offset == 5 {
			return fmt.Errorf("%w: garbage", ErrMalformedPayload)
		}
		return nil
	})

	err := h.ConsumeClaim(session, claimOf(5, 6))

	require.NoError(t, err)
	assert.Equal(t, 2, calls, "non-retryable failures get exactly one attempt")
	assert.Equal(t, []int64{5, 6}, session.marked)
}

func TestConsumeClaim_RecoversWithinBudget(t *testing.T) {
	session := newFakeSession()
	calls := 0
	h := newTestHandler(func(context.Context, *sarama.ConsumerMessage) error {
		calls++
		if calls < 3 {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	err := h.ConsumeClaim(session, claimOf(5))

	require.NoError(t, err)
	assert.Equal(t, []int64{5}, session.marked)
}
