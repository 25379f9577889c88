package coupon

import (
	"strconv"
	"strings"
)

type Kind string

const (
	KindPercentage  Kind = "percentage"
	KindFixedAmount Kind = "fixed_amount"
)

// Coupon is a discount offer that passed server-side validation for a user.
// DiscountValue keeps the raw offer value; see Discount for how it is read.
type Coupon struct {
	ID                string   `json:"id"`
	Code              string   `json:"code"`
	Kind              Kind     `json:"kind"`
	DiscountValue     string   `json:"discount_value"`
	MinPurchaseAmount *float64 `json:"min_purchase_amount,omitempty"`
	MaxDiscountAmount *float64 `json:"max_discount_amount,omitempty"`
	Description       *string  `json:"description,omitempty"`
}

// Discount returns the amount taken off subtotal. Percentage discounts are
// capped at MaxDiscountAmount when set; fixed amounts that do not parse as a
// number count as zero.
func (c *Coupon) Discount(subtotal float64) float64 {
	if c == nil {
		return 0
	}

	switch c.Kind {
	case KindPercentage:
		pct := parsePercent(c.DiscountValue)
		amount := subtotal * pct / 100
		if c.MaxDiscountAmount != nil && *c.MaxDiscountAmount > 0 && amount > *c.MaxDiscountAmount {
			amount = *c.MaxDiscountAmount
		}
		return amount
	case KindFixedAmount:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.DiscountValue), 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}

// parsePercent reads values such as "20", "20%" or "20.5 %" by dropping
// everything that is not a digit or a dot.
func parsePercent(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// Validation is the answer of the server-side eligibility check.
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Offer   *Offer `json:"offer,omitempty"`
}

// Offer is the coupon row as returned by is_coupon_valid_for_user.
type Offer struct {
	ID                string   `json:"id"`
	Code              string   `json:"code"`
	CouponType        string   `json:"coupon_type"`
	Discount          any      `json:"discount"`
	Description       *string  `json:"description,omitempty"`
	MinPurchaseAmount *float64 `json:"min_purchase_amount,omitempty"`
	MaxDiscountAmount *float64 `json:"max_discount_amount,omitempty"`
}
