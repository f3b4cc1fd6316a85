package tests

import (
	"github.com/vlkv/go-shop/internal/order/repository"
	"github.com/vlkv/go-shop/internal/order/service"
)

func (s *IntegrationTestSuite) TestDeleteOrder_ReleasesStock() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	order := s.createOrder(999)
	s.Require().EqualValues(3, s.stockOf(1))

	var before int64
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&before))

	s.Require().NoError(s.OrderService.Delete(s.Ctx, 999, order.ID))

	s.Require().EqualValues(5, s.stockOf(1))

	_, err := s.OrderService.FindByID(s.Ctx, order.ID)
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)

	var after int64
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&after))
	s.Require().Equal(before, after)
}

func (s *IntegrationTestSuite) TestDeleteOrder_NotOwner() {
	s.seedUser(999, "test@example.com")
	s.seedUser(1000, "other@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	order := s.createOrder(999)

	err := s.OrderService.Delete(s.Ctx, 1000, order.ID)
	s.Require().ErrorIs(err, service.ErrNotOrderOwner)
}

func (s *IntegrationTestSuite) TestDeleteOrder_NotFound() {
	s.seedUser(999, "test@example.com")

	err := s.OrderService.Delete(s.Ctx, 999, 12345)
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)
}
