package inventory

import "github.com/google/uuid"

type adjustRequest struct {
	ProductID  uuid.UUID  `json:"product_id" validate:"required"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	Quantity   int        `json:"quantity" validate:"gte=0"`
	Reason     string     `json:"reason" validate:"required,max=500"`
}

type transferRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	FromLocationID uuid.UUID `json:"from_location_id" validate:"required"`
	ToLocationID   uuid.UUID `json:"to_location_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"gt=0"`
	Note           string    `json:"note,omitempty" validate:"max=500"`
}
