package promotion

import (
	"github.com/shopspring/decimal"

	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

// Line is a candidate sale line the engine evaluates a promotion against.
type Line struct {
	ProductID id.ID
	VariantID *id.ID

	Quantity  int64
	UnitPrice types.Money

	// SaleTotal is the running total of the whole sale, used for the
	// minimum purchase gate.
	SaleTotal types.Money
}

// Total returns quantity x unit price.
func (l Line) Total() types.Money {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// meetsMinimum checks the minimum purchase gate against the sale total.
func meetsMinimum(p *Promotion, saleTotal types.Money) bool {
	if p.MinimumPurchaseAmount == nil {
		return true
	}
	return !saleTotal.LessThan(*p.MinimumPurchaseAmount)
}

// computeDiscount runs the per-type discount rule without any clamping.
// Free shipping and bundle promotions carry no numeric discount here.
func computeDiscount(p *Promotion, line Line) types.Money {
	switch p.Type {
	case TypePercentage:
		return line.Total().Mul(*p.DiscountPercentage).Div(decimal.NewFromInt(100))

	case TypeFixedAmount:
		// Flat amount, independent of quantity or line total
		return *p.DiscountAmount

	case TypeBuyXGetY:
		freeUnits := (line.Quantity / *p.BuyQuantity) * *p.GetQuantity
		if freeUnits > line.Quantity {
			freeUnits = line.Quantity
		}
		return line.UnitPrice.Mul(decimal.NewFromInt(freeUnits))

	default:
		return types.Zero()
	}
}

// clampDiscount applies the maximum discount cap and never lets the
// discount exceed the line total. The clamps apply uniformly to every
// promotion type.
func clampDiscount(p *Promotion, line Line, discount types.Money) types.Money {
	if p.MaximumDiscountAmount != nil && discount.GreaterThan(*p.MaximumDiscountAmount) {
		discount = *p.MaximumDiscountAmount
	}
	if lineTotal := line.Total(); discount.GreaterThan(lineTotal) {
		discount = lineTotal
	}
	if discount.IsNegative() {
		return types.Zero()
	}
	return types.Round2(discount)
}
