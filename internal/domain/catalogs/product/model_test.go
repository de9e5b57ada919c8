package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"retailcore/internal/core/types"
)

func TestIsLowStock(t *testing.T) {
	tests := []struct {
		name     string
		minLevel int64
		onHand   int64
		want     bool
	}{
		{"above minimum", 5, 6, false},
		{"at minimum", 5, 5, true},
		{"below minimum", 5, 2, true},
		{"negative on hand", 5, -1, true},
		{"no minimum configured, in stock", 0, 3, false},
		{"no minimum configured, ran out", 0, 0, true},
		{"no minimum configured, oversold", 0, -2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProduct("SKU-1", "Widget")
			p.MinStockLevel = tt.minLevel
			assert.Equal(t, tt.want, p.IsLowStock(tt.onHand))
		})
	}
}

func TestIsOutOfStock(t *testing.T) {
	p := NewProduct("SKU-1", "Widget")

	assert.False(t, p.IsOutOfStock(1))
	assert.True(t, p.IsOutOfStock(0))
	assert.True(t, p.IsOutOfStock(-3))
}

func TestValidate_StockLevels(t *testing.T) {
	p := NewProduct("SKU-1", "Widget")
	p.MinStockLevel = 10
	p.MaxStockLevel = 5

	assert.Error(t, p.Validate(context.Background()))

	p.MaxStockLevel = 0 // no cap
	assert.NoError(t, p.Validate(context.Background()))
}

func TestMargin(t *testing.T) {
	p := NewProduct("SKU-1", "Widget")
	p.Price = types.MustMoney("10.00")
	p.Cost = types.MustMoney("6.50")

	assert.True(t, types.MustMoney("3.50").Equal(p.Margin()))
}
