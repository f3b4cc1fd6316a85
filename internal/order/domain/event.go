package domain

import "github.com/shopspring/decimal"

// OrderEvent is the immutable message published to the order-events topic
// after an order commits. One event per accepted order.
type OrderEvent struct {
	OrderID int64           `json:"orderId"`
	UserID  int64           `json:"userId"`
	Total   decimal.Decimal `json:"total"`
	Status  string          `json:"status"`
}

func NewOrderEvent(o *Order) OrderEvent {
	return OrderEvent{
		OrderID: o.ID,
		UserID:  o.UserID,
		Total:   o.Total,
		Status:  string(o.Status),
	}
}
