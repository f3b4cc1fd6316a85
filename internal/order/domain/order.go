package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a closed set. Anything outside it is rejected at the edges
// so an invalid status is never representable inside the pipeline.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusNew, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
		return OrderStatus(s), nil
	}

	return "", fmt.Errorf("unknown order status %q", s)
}

type Order struct {
	ID     int64           `db:"id"`
	UserID int64           `db:"user_id"`
	Status OrderStatus     `db:"status"`
	Items  []OrderItem     `db:"items"`
	Total  decimal.Decimal `db:"total"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OrderItem carries a frozen snapshot of the product's name and unit price
// taken when the item was validated. ProductID is kept for traversal only.
type OrderItem struct {
	ID          int64           `db:"id"`
	OrderID     int64           `db:"order_id"`
	ProductID   int64           `db:"product_id"`
	ProductName string          `db:"product_name"`
	Quantity    int64           `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// CalculateTotal recomputes the total from the items. The total is never
// written independently of the item set.
func (o *Order) CalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.Total = total
}
