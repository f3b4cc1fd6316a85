package tests

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	catalogrepo "github.com/vlkv/go-shop/internal/catalog/repository"
	"github.com/vlkv/go-shop/internal/order/domain"
	"github.com/vlkv/go-shop/internal/order/repository"
	"github.com/vlkv/go-shop/internal/order/service"
)

func (s *IntegrationTestSuite) TestCreateOrder_Success() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	order := s.createOrder(999)

	s.Require().Equal(domain.OrderStatusNew, order.Status)
	s.Require().Equal("20.00", order.Total.StringFixed(2))
	s.Require().Len(order.Items, 1)
	s.Require().Equal("Kuronami No Yaiba", order.Items[0].ProductName)
	s.Require().Equal("10.00", order.Items[0].UnitPrice.StringFixed(2))

	s.Require().EqualValues(3, s.stockOf(1))
}

func (s *IntegrationTestSuite) TestCreateOrder_PublishesExactlyOneEvent() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	order := s.createOrder(999)
	aggregateID := fmt.Sprintf("%d", order.ID)

	var outboxCount int64
	err := s.DbPool.QueryRow(s.Ctx,
		`SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1`, aggregateID).
		Scan(&outboxCount)
	s.Require().NoError(err)
	s.Require().EqualValues(1, outboxCount)

	publishedAtQuery := `
		SELECT published_at
		FROM outbox
		WHERE aggregate_id = $1
	`

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time

		err := s.DbPool.QueryRow(s.Ctx, publishedAtQuery, aggregateID).Scan(&publishedAt)
		if err != nil || publishedAt == nil {
			return false
		}

		return true
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestCreateOrder_InsufficientStock() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 1)

	_, err := s.OrderService.Create(s.Ctx, 999, []service.OrderItemRequest{
		{ProductID: 1, Quantity: 2},
	})

	s.Require().ErrorIs(err, catalogrepo.ErrInsufficientStock)
	s.Require().Contains(err.Error(), "Kuronami No Yaiba")

	// Nothing persisted, nothing reserved, nothing queued.
	s.Require().EqualValues(1, s.stockOf(1))

	var orderCount, outboxCount int64
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount))
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&outboxCount))
	s.Require().Zero(orderCount)
	s.Require().Zero(outboxCount)
}

func (s *IntegrationTestSuite) TestCreateOrder_PartialFailureRollsBack() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)
	s.seedProduct(2, "Wakizashi", "25.50", 1)

	_, err := s.OrderService.Create(s.Ctx, 999, []service.OrderItemRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})

	s.Require().ErrorIs(err, catalogrepo.ErrInsufficientStock)

	// The first item's reservation rolled back with the transaction.
	s.Require().EqualValues(5, s.stockOf(1))
	s.Require().EqualValues(1, s.stockOf(2))
}

func (s *IntegrationTestSuite) TestCreateOrder_UnknownProduct() {
	s.seedUser(999, "test@example.com")

	_, err := s.OrderService.Create(s.Ctx, 999, []service.OrderItemRequest{
		{ProductID: 42, Quantity: 1},
	})

	s.Require().ErrorIs(err, catalogrepo.ErrProductNotFound)
}

func (s *IntegrationTestSuite) TestCreateOrder_UnknownUser() {
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	_, err := s.OrderService.Create(s.Ctx, 404, []service.OrderItemRequest{
		{ProductID: 1, Quantity: 1},
	})

	s.Require().ErrorIs(err, repository.ErrUserNotFound)
}

func (s *IntegrationTestSuite) TestCreateOrder_EmptyItems() {
	s.seedUser(999, "test@example.com")

	_, err := s.OrderService.Create(s.Ctx, 999, nil)

	s.Require().ErrorIs(err, service.ErrEmptyOrder)
}

func (s *IntegrationTestSuite) TestCreateOrder_ConcurrentOrdersNeverOversell() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	var wg sync.WaitGroup
	var accepted atomic.Int64

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.OrderService.Create(s.Ctx, 999, []service.OrderItemRequest{
				{ProductID: 1, Quantity: 1},
			})
			if err == nil {
				accepted.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Require().EqualValues(5, accepted.Load())
	s.Require().EqualValues(0, s.stockOf(1))
}

func (s *IntegrationTestSuite) TestCreateOrder_SnapshotSurvivesPriceChange() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	order := s.createOrder(999)

	_, err := s.DbPool.Exec(s.Ctx, `UPDATE products SET price = 99.99 WHERE id = 1`)
	s.Require().NoError(err)

	stored, err := s.OrderService.FindByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal("10.00", stored.Items[0].UnitPrice.StringFixed(2))
	s.Require().Equal("20.00", stored.Total.StringFixed(2))
}
