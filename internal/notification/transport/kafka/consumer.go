package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	notifdomain "github.com/vlkv/go-shop/internal/notification/domain"
	"github.com/vlkv/go-shop/internal/notification/service"
	orderdomain "github.com/vlkv/go-shop/internal/order/domain"
	"github.com/vlkv/go-shop/pkg/kafka"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"go.uber.org/zap"
)

type Consumer struct {
	service *service.NotificationService
	logger  *zap.Logger
}

func NewConsumer(service *service.NotificationService, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, groupID, topic string, policy kafka.RetryPolicy) {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{topic},
		c.processMessage,
		policy,
		c.logger,
	)

	consumerGroup.Run(ctx)
}

// processMessage decodes one delivery. Payloads that cannot be decoded or
// carry an unknown status are classified as malformed so the consumer group
// drops them instead of retrying forever.
func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Info(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
	)

	var event notifdomain.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("%w: %v", kafka.ErrMalformedPayload, err)
	}

	if _, err := orderdomain.ParseOrderStatus(event.Status); err != nil {
		return fmt.Errorf("%w: %v", kafka.ErrMalformedPayload, err)
	}

	if event.OrderID <= 0 || event.UserID <= 0 {
		return fmt.Errorf("%w: missing order or user id", kafka.ErrMalformedPayload)
	}

	return c.service.HandleOrderEvent(ctx, event)
}
