package tests

import (
	"github.com/vlkv/go-shop/internal/order/domain"
	"github.com/vlkv/go-shop/internal/order/service"
)

func (s *IntegrationTestSuite) seedOrders() {
	s.seedUser(999, "test@example.com")
	s.seedUser(1000, "other@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 100)

	for i := 0; i < 3; i++ {
		_, err := s.OrderService.Create(s.Ctx, 999, []service.OrderItemRequest{
			{ProductID: 1, Quantity: int64(i + 1)},
		})
		s.Require().NoError(err)
	}

	_, err := s.OrderService.Create(s.Ctx, 1000, []service.OrderItemRequest{
		{ProductID: 1, Quantity: 1},
	})
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestFindByOwner_Paged() {
	s.seedOrders()

	orders, total, err := s.OrderService.FindByOwner(s.Ctx, 999, service.ListParams{Limit: 2})
	s.Require().NoError(err)
	s.Require().EqualValues(3, total)
	s.Require().Len(orders, 2)

	for _, o := range orders {
		s.Require().EqualValues(999, o.UserID)
		s.Require().NotEmpty(o.Items)
	}

	rest, total, err := s.OrderService.FindByOwner(s.Ctx, 999, service.ListParams{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Require().EqualValues(3, total)
	s.Require().Len(rest, 1)
}

func (s *IntegrationTestSuite) TestFindByOwner_SortedByTotal() {
	s.seedOrders()

	orders, _, err := s.OrderService.FindByOwner(s.Ctx, 999, service.ListParams{Sort: "total"})
	s.Require().NoError(err)
	s.Require().Len(orders, 3)

	for i := 1; i < len(orders); i++ {
		s.Require().True(orders[i-1].Total.GreaterThanOrEqual(orders[i].Total),
			"expected totals in descending order")
	}
}

func (s *IntegrationTestSuite) TestFindByStatus() {
	s.seedOrders()

	orders, total, err := s.OrderService.FindByStatus(s.Ctx, domain.OrderStatusNew, service.ListParams{})
	s.Require().NoError(err)
	s.Require().EqualValues(4, total)
	s.Require().Len(orders, 4)

	_, total, err = s.OrderService.FindByStatus(s.Ctx, domain.OrderStatusShipped, service.ListParams{})
	s.Require().NoError(err)
	s.Require().Zero(total)
}
