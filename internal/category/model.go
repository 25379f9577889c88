package category

// Category groups products sharing the same category label.
type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
	InStockCount int    `json:"in_stock_count"`
}
