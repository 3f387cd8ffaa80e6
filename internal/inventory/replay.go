package inventory

import (
	"fmt"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
)

// Replay rebuilds a balance from its movements in insertion order. Every entry
// must start where the previous one ended and carry a delta matching its
// before/after pair; the running total may never go negative.
func Replay(movements []models.StockMovement) (int, error) {
	qty := 0
	for i, m := range movements {
		if m.QuantityBefore != qty {
			return qty, fmt.Errorf("movement %d (#%d) starts at %d but ledger is at %d", m.ID, i, m.QuantityBefore, qty)
		}
		if m.QuantityAfter-m.QuantityBefore != m.Delta {
			return qty, fmt.Errorf("movement %d delta %d does not match %d -> %d", m.ID, m.Delta, m.QuantityBefore, m.QuantityAfter)
		}
		qty += m.Delta
		if qty < 0 {
			return qty, fmt.Errorf("movement %d drives balance negative (%d)", m.ID, qty)
		}
	}
	return qty, nil
}
