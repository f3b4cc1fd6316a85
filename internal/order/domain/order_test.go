package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTotal(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
	}

	order.CalculateTotal()

	assert.True(t, order.Total.Equal(decimal.RequireFromString("20.00")),
		"expected 20.00, got %s", order.Total)
}

func TestCalculateTotal_MultipleItems(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")},
			{Quantity: 1, UnitPrice: decimal.RequireFromString("0.01")},
		},
	}

	order.CalculateTotal()

	assert.True(t, order.Total.Equal(decimal.RequireFromString("59.98")),
		"expected 59.98, got %s", order.Total)
}

func TestCalculateTotal_NoItems(t *testing.T) {
	order := &Order{}

	order.CalculateTotal()

	assert.True(t, order.Total.IsZero())
}

func TestSubtotal_NoFloatDrift(t *testing.T) {
	item := OrderItem{Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")}

	assert.Equal(t, "0.30", item.Subtotal().StringFixed(2))
}

func TestParseOrderStatus(t *testing.T) {
	for _, valid := range []string{"NEW", "PAID", "SHIPPED", "CANCELLED"} {
		status, err := ParseOrderStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(status))
	}

	_, err := ParseOrderStatus("DELIVERED")
	assert.Error(t, err)

	_, err = ParseOrderStatus("new")
	assert.Error(t, err)
}
