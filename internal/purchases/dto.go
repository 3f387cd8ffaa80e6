package purchases

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
)

type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitCost  decimal.Decimal
}

type CreateInput struct {
	BusinessID   uuid.UUID
	ActorID      uuid.UUID
	SupplierName string
	Reference    string
	Lines        []LineInput
}

// ReceiveInput books a pending purchase into stock. A nil location means the
// primary location.
type ReceiveInput struct {
	PurchaseID uuid.UUID
	BusinessID uuid.UUID
	LocationID *uuid.UUID
	ActorID    uuid.UUID
}

type PurchaseDetail struct {
	Purchase models.Purchase       `json:"purchase"`
	Lines    []models.PurchaseLine `json:"lines"`
}
