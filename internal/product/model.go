package product

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Unit        string    `json:"unit"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Category    string    `json:"category"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListOptions struct {
	Category string
	Search   string
	Limit    int
	Page     int
}
