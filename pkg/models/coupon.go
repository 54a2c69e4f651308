package models

import (
	"github.com/shopspring/decimal"
)

// Coupon is a percentage discount code. Codes are stored normalized
// (upper case, no whitespace).
type Coupon struct {
	Code               string          `json:"code" bson:"code"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" bson:"discount_percentage"`
	IsActive           bool            `json:"is_active" bson:"is_active"`
}

// ValidPercentage reports whether a discount lies in the closed range 0..100.
func ValidPercentage(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
}

type CreateCouponRequest struct {
	Code               string          `json:"code" binding:"required,min=1,max=50"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}
