package pricing

import (
	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountAmount computes what d takes off subTotal. The result never exceeds subTotal.
func DiscountAmount(d *entity.Discount, subTotal decimal.Decimal) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, nil
	}
	if !d.Active {
		return decimal.Zero, common.ErrDiscountInactive.WithDetails(map[string]string{"code": d.Code})
	}
	return RecomputeDiscount(d, subTotal)
}

// RecomputeDiscount re-applies a discount already granted to an order against
// a new sub total. It does not look at Active: deactivating a code does not
// take it away from orders that hold it.
func RecomputeDiscount(d *entity.Discount, subTotal decimal.Decimal) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, nil
	}
	if d.Value.IsNegative() {
		return decimal.Zero, common.ErrInvalidDiscount
	}

	var amount decimal.Decimal
	switch d.Type {
	case entity.DiscountPercent:
		if d.Value.GreaterThan(hundred) {
			return decimal.Zero, common.ErrInvalidDiscount.WithDetails("percentage above 100")
		}
		amount = subTotal.Mul(d.Value).Div(hundred).Round(2)
	case entity.DiscountFixed:
		amount = d.Value
	default:
		return decimal.Zero, common.ErrInvalidDiscount.WithDetails("unknown discount type")
	}

	if amount.GreaterThan(subTotal) {
		amount = subTotal
	}
	return amount, nil
}

// ManualDiscount validates a discount amount typed in by staff.
func ManualDiscount(amount, subTotal decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, common.ErrInvalidDiscount.WithDetails("discount cannot be negative")
	}
	if amount.GreaterThan(subTotal) {
		return decimal.Zero, common.ErrInvalidDiscount.WithDetails("discount exceeds sub total")
	}
	return amount, nil
}
