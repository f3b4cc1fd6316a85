package tests

import (
	"github.com/vlkv/go-shop/internal/order/service"
)

func (s *IntegrationTestSuite) TestUpdateOrder_ReplacesItems() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)
	s.seedProduct(2, "Wakizashi", "25.50", 4)

	order := s.createOrder(999)
	s.Require().EqualValues(3, s.stockOf(1))

	updated, err := s.OrderService.Update(s.Ctx, 999, order.ID, []service.OrderItemRequest{
		{ProductID: 2, Quantity: 2},
	})
	s.Require().NoError(err)

	s.Require().Len(updated.Items, 1)
	s.Require().Equal("Wakizashi", updated.Items[0].ProductName)
	s.Require().Equal("51.00", updated.Total.StringFixed(2))

	// Old reservation handed back, new one taken.
	s.Require().EqualValues(5, s.stockOf(1))
	s.Require().EqualValues(2, s.stockOf(2))
}

func (s *IntegrationTestSuite) TestUpdateOrder_NotOwner() {
	s.seedUser(999, "test@example.com")
	s.seedUser(1000, "other@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	order := s.createOrder(999)

	_, err := s.OrderService.Update(s.Ctx, 1000, order.ID, []service.OrderItemRequest{
		{ProductID: 1, Quantity: 1},
	})

	s.Require().ErrorIs(err, service.ErrNotOrderOwner)
	s.Require().EqualValues(3, s.stockOf(1))
}

func (s *IntegrationTestSuite) TestUpdateOrder_EmitsNoEvent() {
	s.seedUser(999, "test@example.com")
	s.seedProduct(1, "Kuronami No Yaiba", "10.00", 5)

	order := s.createOrder(999)

	var before int64
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&before))

	_, err := s.OrderService.Update(s.Ctx, 999, order.ID, []service.OrderItemRequest{
		{ProductID: 1, Quantity: 1},
	})
	s.Require().NoError(err)

	var after int64
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&after))
	s.Require().Equal(before, after)
}
