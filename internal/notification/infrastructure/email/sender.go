package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/vlkv/go-shop/internal/notification/domain"
	"github.com/vlkv/go-shop/pkg/config"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Sender interface {
	SendOrderStatusEmail(ctx context.Context, to string, event domain.OrderEvent) error
}

type smtpSender struct {
	from     string
	password string
	host     string
	port     string
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewSMTPSender(cfg config.SMTP, logger *zap.Logger) Sender {
	return &smtpSender{
		from:     cfg.User,
		password: cfg.Password,
		host:     cfg.Host,
		port:     cfg.Port,
		logger:   logger,
		tracer:   otel.Tracer("notification/infrastructure/email"),
	}
}

func (s *smtpSender) SendOrderStatusEmail(ctx context.Context, to string, event domain.OrderEvent) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderStatusEmail")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", to),
		attribute.Int64("order_id", event.OrderID),
	)

	subject := fmt.Sprintf("Subject: Your order #%d is %s.\n", event.OrderID, event.Status)
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	body := fmt.Sprintf(`
		<h1>Order #%d update</h1>
		<p>Status: %s</p>
		<p>Total: %s</p>
	`, event.OrderID, event.Status, event.Total.StringFixed(2))

	msg := []byte(subject + mime + body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	mylogger.Info(
		ctx,
		s.logger,
		"Sending order status email",
		zap.String("to", to),
		zap.Int64("order_id", event.OrderID),
	)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		span.RecordError(err)
		mylogger.Error(
			ctx,
			s.logger,
			"Error sending order status email",
			zap.String("to", to),
			zap.Int64("order_id", event.OrderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to send mail: %v", err)
	}

	mylogger.Info(ctx, s.logger, "Order status email sent successfully", zap.String("to", to))
	return nil
}
