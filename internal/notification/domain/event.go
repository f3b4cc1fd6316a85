package domain

import "github.com/shopspring/decimal"

// OrderEvent mirrors the message published on the order-events topic.
type OrderEvent struct {
	OrderID int64           `json:"orderId"`
	UserID  int64           `json:"userId"`
	Total   decimal.Decimal `json:"total"`
	Status  string          `json:"status"`
}
