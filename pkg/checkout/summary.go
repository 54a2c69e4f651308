// Package checkout turns a cart into an order summary and a WhatsApp order
// message, and tracks where a session is in the checkout flow.
package checkout

import (
	"github.com/shopspring/decimal"

	"clouddesign.com.br/storefront/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// Summary is derived from a CartState on every read and never stored.
type Summary struct {
	ItemCount            int             `json:"item_count"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	Total                decimal.Decimal `json:"total"`
	FreeShippingGoal     decimal.Decimal `json:"free_shipping_goal"`
	FreeShippingProgress float64         `json:"free_shipping_progress"`
	GoalReached          bool            `json:"goal_reached"`
	AmountMissing        decimal.Decimal `json:"amount_missing"`
}

// Summarize computes subtotal, coupon discount, total and progress towards
// the free-shipping goal. Progress is total/goal clamped to [0,1]; a
// non-positive goal counts as reached.
func Summarize(state models.CartState, goal decimal.Decimal) Summary {
	subtotal := decimal.Zero
	for _, item := range state.Items {
		subtotal = subtotal.Add(item.Price())
	}

	discount := decimal.Zero
	if state.Coupon != nil {
		discount = subtotal.Mul(state.Coupon.DiscountPercent).Div(hundred)
	}
	total := subtotal.Sub(discount)

	s := Summary{
		ItemCount:        len(state.Items),
		Subtotal:         subtotal,
		DiscountAmount:   discount,
		Total:            total,
		FreeShippingGoal: goal,
		AmountMissing:    decimal.Zero,
	}
	if !goal.IsPositive() {
		s.FreeShippingProgress = 1
		s.GoalReached = true
		return s
	}

	progress, _ := total.Div(goal).Float64()
	s.FreeShippingProgress = min(max(progress, 0), 1)
	s.GoalReached = total.GreaterThanOrEqual(goal)
	if !s.GoalReached {
		s.AmountMissing = goal.Sub(total)
	}
	return s
}
