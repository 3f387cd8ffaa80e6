package shifts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OpenInput struct {
	BusinessID   uuid.UUID
	TillID       string
	OperatorID   uuid.UUID
	OpeningFloat decimal.Decimal
}

// CloseInput carries the physical count and who is closing. ActorRole decides
// whether someone other than the opening operator may close.
type CloseInput struct {
	ShiftID       uuid.UUID
	BusinessID    uuid.UUID
	CountedAmount decimal.Decimal
	ActorID       uuid.UUID
	ActorRole     string
}
