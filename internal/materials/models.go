package materials

import "time"

// Lot is one tracked batch of a raw material with its own availability.
type Lot struct {
	ID                string    `json:"id"`
	MaterialName      string    `json:"material_name"`
	LotNumber         string    `json:"lot_number"`
	ReceivedAt        time.Time `json:"received_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	QuantityReceived  int       `json:"quantity_received"`
	QuantityAvailable int       `json:"quantity_available"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
