package tests

func (s *NotificationTestSuite) TestHandleOrderEvent_SendsEmail() {
	s.seedUser(999, "test@example.com")

	err := s.Service.HandleOrderEvent(s.Ctx, s.orderEvent(1, 999))
	s.Require().NoError(err)

	s.Require().Equal([]string{"test@example.com"}, s.Sender.sent)
	s.Require().EqualValues(1, s.processedCount())

	var email string
	err = s.DbPool.QueryRow(s.Ctx,
		`SELECT email FROM notifications WHERE order_id = 1 AND status = 'NEW'`).Scan(&email)
	s.Require().NoError(err)
	s.Require().Equal("test@example.com", email)
}

func (s *NotificationTestSuite) TestHandleOrderEvent_DuplicateDeliveryIsNoop() {
	s.seedUser(999, "test@example.com")

	event := s.orderEvent(1, 999)

	s.Require().NoError(s.Service.HandleOrderEvent(s.Ctx, event))
	s.Require().NoError(s.Service.HandleOrderEvent(s.Ctx, event))

	// One email, one dedup row, no error on redelivery.
	s.Require().Len(s.Sender.sent, 1)
	s.Require().EqualValues(1, s.processedCount())
}

func (s *NotificationTestSuite) TestHandleOrderEvent_SameOrderDifferentStatus() {
	s.seedUser(999, "test@example.com")

	first := s.orderEvent(1, 999)
	second := s.orderEvent(1, 999)
	second.Status = "PAID"

	s.Require().NoError(s.Service.HandleOrderEvent(s.Ctx, first))
	s.Require().NoError(s.Service.HandleOrderEvent(s.Ctx, second))

	s.Require().Len(s.Sender.sent, 2)
	s.Require().EqualValues(2, s.processedCount())
}

func (s *NotificationTestSuite) TestHandleOrderEvent_EmailFailureRollsBackDedup() {
	s.seedUser(999, "test@example.com")
	s.Sender.fail = true

	err := s.Service.HandleOrderEvent(s.Ctx, s.orderEvent(1, 999))
	s.Require().Error(err)

	// Rolled back, so a redelivery gets a fresh try.
	s.Require().Zero(s.processedCount())

	s.Sender.fail = false
	s.Require().NoError(s.Service.HandleOrderEvent(s.Ctx, s.orderEvent(1, 999)))
	s.Require().Len(s.Sender.sent, 1)
}

func (s *NotificationTestSuite) TestHandleOrderEvent_UnknownUserDropped() {
	err := s.Service.HandleOrderEvent(s.Ctx, s.orderEvent(1, 404))
	s.Require().NoError(err)

	// The dedup row commits so the event never comes back.
	s.Require().Empty(s.Sender.sent)
	s.Require().EqualValues(1, s.processedCount())
}
