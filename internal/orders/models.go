package orders

import "time"

// Order is the persisted record of a successful placement. The line list is
// immutable once written; only status and shipping address may be amended.
type Order struct {
	ID              string    `json:"id"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	Status          Status    `json:"status"`
	ShippingAddress string    `json:"shipping_address"`
	TotalCents      int       `json:"total_cents"`
	Lines           []Line    `json:"lines"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Line struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int    `json:"price_cents"`
}
