package cart

import "grocer-be/internal/coupon"

// ComputeTotals is pure: the same lines and coupon always give the same
// totals. Lines without product data count at price zero. The discounted
// subtotal is not floored, so a large fixed coupon can make it negative.
func ComputeTotals(lines []*LineView, applied *coupon.Coupon) Totals {
	var t Totals
	for _, l := range lines {
		if l == nil {
			continue
		}
		var price float64
		if l.Product != nil {
			price = l.Product.Price
		}
		t.Subtotal += price * float64(l.Quantity)
		t.ItemCount += l.Quantity
	}

	t.DiscountAmount = applied.Discount(t.Subtotal)
	t.DiscountedSubtotal = t.Subtotal - t.DiscountAmount
	return t
}
