package cart

import (
	"time"

	"grocer-be/internal/product"
)

// TableName is the collection holding cart lines; change events are scoped
// to it.
const TableName = "cart_items"

// NotifyChannel is the channel the cart_items trigger notifies on. The name
// is fixed by the migration.
const NotifyChannel = "cart_items_changes"

// Line is one product in a user's cart. There is at most one line per
// (OwnerID, ProductID).
type Line struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineView is a Line joined with its product.
type LineView struct {
	Line
	Product *product.Product `json:"product"`
}

// Totals is derived from lines and the applied coupon on every read and is
// never persisted.
type Totals struct {
	Subtotal           float64 `json:"subtotal"`
	ItemCount          int     `json:"item_count"`
	DiscountAmount     float64 `json:"discount_amount"`
	DiscountedSubtotal float64 `json:"discounted_subtotal"`
}

type AddItemParams struct {
	OwnerID   string
	ProductID string
	Quantity  int
}

type UpdateQuantityParams struct {
	LineID   string
	OwnerID  string
	Quantity int
}
