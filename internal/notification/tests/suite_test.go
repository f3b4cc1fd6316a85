package tests

import (
	"context"
	"errors"
	"testing"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/vlkv/go-shop/internal/notification/domain"
	"github.com/vlkv/go-shop/internal/notification/repository"
	"github.com/vlkv/go-shop/internal/notification/service"
	"github.com/vlkv/go-shop/pkg/testsuite"
	"go.uber.org/zap"
)

// fakeSender records sent emails and can be told to fail.
type fakeSender struct {
	sent []string
	fail bool
}

func (f *fakeSender) SendOrderStatusEmail(_ context.Context, to string, _ domain.OrderEvent) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}

	f.sent = append(f.sent, to)
	return nil
}

type NotificationTestSuite struct {
	testsuite.BaseSuite

	Service *service.NotificationService
	Sender  *fakeSender
}

func (s *NotificationTestSuite) SetupSuite() {
	s.BaseSuite.SetupInfrastructure("../../../migrations")
}

func (s *NotificationTestSuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *NotificationTestSuite) SetupTest() {
	s.BaseSuite.TruncateTable("users")
	s.BaseSuite.TruncateTable("processed_events")
	s.BaseSuite.TruncateTable("notifications")

	logger := zap.NewNop()
	s.Sender = &fakeSender{}

	repo := repository.NewNotificationRepository(logger)
	s.Service = service.NewNotificationService(s.DbPool, repo, s.Sender, logger)
}

func (s *NotificationTestSuite) seedUser(id int64, email string) {
	query := `
		INSERT INTO users (id, email)
		VALUES ($1, $2) ON CONFLICT DO NOTHING
	`

	_, err := s.DbPool.Exec(s.Ctx, query, id, email)
	s.Require().NoError(err)
}

func (s *NotificationTestSuite) orderEvent(orderID, userID int64) domain.OrderEvent {
	return domain.OrderEvent{
		OrderID: orderID,
		UserID:  userID,
		Total:   decimal.RequireFromString("20.00"),
		Status:  "NEW",
	}
}

func (s *NotificationTestSuite) processedCount() int64 {
	var count int64
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_events`).Scan(&count)
	s.Require().NoError(err)
	return count
}

func TestNotificationSuite(t *testing.T) {
	suite.Run(t, new(NotificationTestSuite))
}
