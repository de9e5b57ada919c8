package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

func percentPromo(pct string) *Promotion {
	p := New("Ten Percent Off", TypePercentage, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	v := types.MustMoney(pct)
	p.DiscountPercentage = &v
	p.Status = StatusActive
	return p
}

func TestComputeDiscount_Percentage(t *testing.T) {
	p := percentPromo("10")
	line := Line{ProductID: id.New(), Quantity: 3, UnitPrice: types.MustMoney("5.00")}

	got := clampDiscount(p, line, computeDiscount(p, line))
	assert.True(t, types.MustMoney("1.50").Equal(got), "got %s", got)
}

func TestComputeDiscount_PercentageCappedByMaximum(t *testing.T) {
	p := percentPromo("50")
	cap := types.MustMoney("2.00")
	p.MaximumDiscountAmount = &cap

	line := Line{ProductID: id.New(), Quantity: 10, UnitPrice: types.MustMoney("10.00")}

	got := clampDiscount(p, line, computeDiscount(p, line))
	assert.True(t, cap.Equal(got), "got %s", got)
}

func TestComputeDiscount_FixedAmountNeverExceedsLineTotal(t *testing.T) {
	p := New("Five Off", TypeFixedAmount, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	amount := types.MustMoney("5.00")
	p.DiscountAmount = &amount
	p.Status = StatusActive

	line := Line{ProductID: id.New(), Quantity: 1, UnitPrice: types.MustMoney("3.20")}

	got := clampDiscount(p, line, computeDiscount(p, line))
	assert.True(t, types.MustMoney("3.20").Equal(got), "got %s", got)
}

func TestComputeDiscount_BuyXGetY(t *testing.T) {
	buy, get := int64(2), int64(1)
	p := New("Buy 2 Get 1", TypeBuyXGetY, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	p.BuyQuantity = &buy
	p.GetQuantity = &get
	p.Status = StatusActive

	tests := []struct {
		qty  int64
		want string
	}{
		{1, "0"},     // not enough for one bundle
		{2, "2.00"},  // one free unit
		{5, "4.00"},  // two bundles
		{7, "6.00"},  // three bundles
	}

	for _, tt := range tests {
		line := Line{ProductID: id.New(), Quantity: tt.qty, UnitPrice: types.MustMoney("2.00")}
		got := clampDiscount(p, line, computeDiscount(p, line))
		assert.True(t, types.MustMoney(tt.want).Equal(got), "qty=%d got %s want %s", tt.qty, got, tt.want)
	}
}

func TestMeetsMinimum(t *testing.T) {
	p := percentPromo("10")
	minPurchase := types.MustMoney("20.00")
	p.MinimumPurchaseAmount = &minPurchase

	assert.False(t, meetsMinimum(p, types.MustMoney("19.99")))
	assert.True(t, meetsMinimum(p, types.MustMoney("20.00")))
	assert.True(t, meetsMinimum(p, types.MustMoney("25.00")))

	p.MinimumPurchaseAmount = nil
	assert.True(t, meetsMinimum(p, types.Zero()))
}

func TestInWindow_HalfOpen(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	p := New("March Sale", TypePercentage, start, end)

	assert.False(t, p.InWindow(start.Add(-time.Second)))
	assert.True(t, p.InWindow(start), "start is inclusive")
	assert.True(t, p.InWindow(end.Add(-time.Second)))
	assert.False(t, p.InWindow(end), "end is exclusive")
}

func TestValidate_PercentageBounds(t *testing.T) {
	tests := []struct {
		pct     string
		wantErr bool
	}{
		{"0", true},
		{"-5", true},
		{"0.5", false},
		{"100", false},
		{"100.01", true},
	}

	for _, tt := range tests {
		p := percentPromo(tt.pct)
		err := p.Validate(context.Background())
		if tt.wantErr {
			assert.Error(t, err, "pct=%s", tt.pct)
		} else {
			assert.NoError(t, err, "pct=%s", tt.pct)
		}
	}
}
