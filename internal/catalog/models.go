package catalog

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	Materials   []BOMLine `json:"materials"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BOMLine is one bill-of-materials entry: producing one unit of the product
// consumes QtyPerUnit from the referenced raw-material lot.
type BOMLine struct {
	MaterialID string `json:"material_id"`
	QtyPerUnit int    `json:"qty_per_unit"`
}
