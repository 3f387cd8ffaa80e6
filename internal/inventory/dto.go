package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/angelmondragon/pos-backend/pkg/types"
)

// MovementInput describes one ledger entry to apply. Quantity is the magnitude
// for additive types and the target balance for adjustments.
type MovementInput struct {
	BusinessID uuid.UUID
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Type       enums.MovementType
	Quantity   int
	UnitCost   decimal.Decimal
	RefType    enums.MovementRefType
	RefID      *uuid.UUID
	ActorID    uuid.UUID
	Note       *string
}

// AdjustInput sets a balance to a physically counted quantity. A nil location
// means the primary location.
type AdjustInput struct {
	BusinessID uuid.UUID
	ProductID  uuid.UUID
	LocationID *uuid.UUID
	Quantity   int
	Reason     string
	ActorID    uuid.UUID
}

type TransferInput struct {
	BusinessID     uuid.UUID
	ProductID      uuid.UUID
	FromLocationID uuid.UUID
	ToLocationID   uuid.UUID
	Quantity       int
	Note           string
	ActorID        uuid.UUID
}

type MovementResult struct {
	Movement models.StockMovement `json:"movement"`
	Balance  models.StockBalance  `json:"balance"`
}

type TransferResult struct {
	TransferID uuid.UUID            `json:"transfer_id"`
	Out        models.StockMovement `json:"out"`
	In         models.StockMovement `json:"in"`
}

// BalanceView is the read model served (and cached) for balance lookups.
type BalanceView struct {
	ProductID        uuid.UUID `json:"product_id"`
	LocationID       uuid.UUID `json:"location_id"`
	Quantity         int       `json:"quantity"`
	ReorderThreshold int       `json:"reorder_threshold"`
	LowStock         bool      `json:"low_stock"`
}

type LowStockItem struct {
	ProductID        uuid.UUID `json:"product_id"`
	LocationID       uuid.UUID `json:"location_id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Quantity         int       `json:"quantity"`
	ReorderThreshold int       `json:"reorder_threshold"`
}

type MovementPage = types.Page[models.StockMovement]

// LedgerReport compares a stored balance with the replay of its movements.
type LedgerReport struct {
	BusinessID       uuid.UUID `json:"business_id"`
	ProductID        uuid.UUID `json:"product_id"`
	LocationID       uuid.UUID `json:"location_id"`
	StoredQuantity   int       `json:"stored_quantity"`
	ReplayedQuantity int       `json:"replayed_quantity"`
	MovementCount    int       `json:"movement_count"`
	Consistent       bool      `json:"consistent"`
	Problem          string    `json:"problem,omitempty"`
}

// BalanceKey identifies one (product, location) pair.
type BalanceKey struct {
	BusinessID uuid.UUID
	ProductID  uuid.UUID
	LocationID uuid.UUID
}
