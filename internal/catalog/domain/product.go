package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `db:"id"`
	Name          string          `db:"name"`
	Description   string          `db:"description"`
	Price         decimal.Decimal `db:"price"`
	StockQuantity int64           `db:"stock_quantity"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ProductSnapshot freezes the name and unit price at reservation time.
// Later catalog edits must never leak into historical orders.
type ProductSnapshot struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
}
