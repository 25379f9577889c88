package coupon

import (
	"strconv"
	"strings"
)

// MapOffer converts a validated offer into a Coupon. Offers typed "percent"
// become percentage coupons; everything else is a fixed amount.
func MapOffer(o *Offer) *Coupon {
	if o == nil {
		return nil
	}

	kind := KindFixedAmount
	if strings.EqualFold(o.CouponType, "percent") || strings.EqualFold(o.CouponType, string(KindPercentage)) {
		kind = KindPercentage
	}

	return &Coupon{
		ID:                o.ID,
		Code:              o.Code,
		Kind:              kind,
		DiscountValue:     discountString(o.Discount),
		MinPurchaseAmount: o.MinPurchaseAmount,
		MaxDiscountAmount: o.MaxDiscountAmount,
		Description:       o.Description,
	}
}

func discountString(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64)
	default:
		return ""
	}
}
