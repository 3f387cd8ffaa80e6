package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/internal/credit"
	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/outbox/payloads"
)

// ReturnSale takes back part or all of a completed sale under a return
// document number.
func (s *service) ReturnSale(ctx context.Context, input ReturnInput) (result *ReturnResult, err error) {
	defer s.metrics.Track("sale_return", time.Now(), &err)

	if err := validateReturnItems(input.Items); err != nil {
		return nil, err
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.BusinessID, input.OrderID, true)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusCompleted {
			return notCompleted(order, "returned")
		}
		lines, err := repo.ListLines(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order lines")
		}
		byID := make(map[uuid.UUID]*models.OrderLine, len(lines))
		for i := range lines {
			byID[lines[i].ID] = &lines[i]
		}
		for _, item := range input.Items {
			line, ok := byID[item.LineID]
			if !ok {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "line %s does not belong to order %s", item.LineID, order.Number)
			}
			if item.Quantity > line.RemainingQuantity() {
				return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "cannot return %d, only %d remaining on line %d",
					item.Quantity, line.RemainingQuantity(), line.Position).
					WithDetails(map[string]any{
						"line_id":   line.ID,
						"requested": item.Quantity,
						"remaining": line.RemainingQuantity(),
					})
			}
		}

		number, err := s.numbers.Next(ctx, tx, input.BusinessID, enums.DocumentReturn, now)
		if err != nil {
			return err
		}
		locationID, err := s.stockLocation(ctx, tx, order)
		if err != nil {
			return err
		}

		orderID := order.ID
		note := number
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			note = number + ": " + reason
		}
		returned := decimal.Zero
		movements := make([]models.StockMovement, 0, len(input.Items))
		events := make([]payloads.ReturnedLine, 0, len(input.Items))
		for _, item := range input.Items {
			line := byID[item.LineID]
			returned = returned.Add(ReturnAmount(*line, item.Quantity))

			if line.TrackStock {
				movement, _, err := s.inventory.ApplyMovement(ctx, tx, inventory.MovementInput{
					BusinessID: order.BusinessID,
					ProductID:  line.ProductID,
					LocationID: locationID,
					Type:       enums.MovementReturn,
					Quantity:   item.Quantity,
					UnitCost:   line.UnitCost,
					RefType:    enums.RefReturn,
					RefID:      &orderID,
					ActorID:    input.ActorID,
					Note:       &note,
				})
				if err != nil {
					return err
				}
				movements = append(movements, *movement)
			}

			line.ReturnedQuantity += item.Quantity
			if err := repo.SetReturnedQuantity(ctx, line.ID, line.ReturnedQuantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record returned quantity")
			}
			events = append(events, payloads.ReturnedLine{ProductID: line.ProductID, Quantity: item.Quantity})
		}

		full := true
		for _, line := range lines {
			if line.RemainingQuantity() > 0 {
				full = false
				break
			}
		}

		release := credit.ProportionalRelease(order.CreditUsed, order.CreditReleased, returned, order.Total)
		if full {
			release = order.CreditUsed.Sub(order.CreditReleased)
		}
		if release.IsPositive() && order.CustomerID != nil {
			if _, err := s.credit.Release(ctx, tx, order.BusinessID, *order.CustomerID, release); err != nil {
				return err
			}
		} else {
			release = decimal.Zero
		}

		order.ReturnedAmount = order.ReturnedAmount.Add(returned)
		order.CreditReleased = order.CreditReleased.Add(release)
		fields := map[string]any{
			"returned_amount": order.ReturnedAmount,
			"credit_released": order.CreditReleased,
		}
		if full {
			order.Status = enums.OrderStatusReturned
			fields["status"] = order.Status
		} else {
			order.Notes = appendNote(order.Notes, fmt.Sprintf("partial return: %s (%s)", returned.StringFixed(2), number))
			fields["notes"] = order.Notes
		}
		if err := repo.UpdateOrder(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update returned order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReturned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, BusinessID: &input.BusinessID},
			Data: payloads.OrderReturnedEvent{
				OrderID:        order.ID,
				BusinessID:     order.BusinessID,
				ReturnNumber:   number,
				Lines:          events,
				ReturnedAmount: returned,
				CreditReleased: release,
				FullyReturned:  full,
			},
		}); err != nil {
			return err
		}

		result = &ReturnResult{
			Order:          *order,
			ReturnNumber:   number,
			ReturnedAmount: returned,
			CreditReleased: release,
			Movements:      movements,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.inventory.Invalidate(ctx, input.BusinessID)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":        result.Order.ID.String(),
		"return_number":   result.ReturnNumber,
		"returned_amount": result.ReturnedAmount.StringFixed(2),
		"credit_released": result.CreditReleased.StringFixed(2),
		"status":          string(result.Order.Status),
	}), "order returned")
	return result, nil
}

// ReturnAmount is the refund for qty more units of line on top of
// line.ReturnedQuantity. Shares are rounded cumulatively, so the refunds of a
// line always add up to its subtotal once every unit is back.
func ReturnAmount(line models.OrderLine, qty int) decimal.Decimal {
	if line.Quantity <= 0 || qty <= 0 {
		return decimal.Zero
	}
	before := line.ReturnedQuantity
	after := before + qty
	if after > line.Quantity {
		after = line.Quantity
	}
	return lineShare(line, after).Sub(lineShare(line, before))
}

func lineShare(line models.OrderLine, units int) decimal.Decimal {
	if units >= line.Quantity {
		return line.Subtotal
	}
	return line.Subtotal.
		Mul(decimal.NewFromInt(int64(units))).
		Div(decimal.NewFromInt(int64(line.Quantity))).
		Round(2)
}

func validateReturnItems(items []ReturnItem) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if item.LineID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line id required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "return quantity must be positive")
		}
		if _, dup := seen[item.LineID]; dup {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "line %s listed more than once", item.LineID)
		}
		seen[item.LineID] = struct{}{}
	}
	return nil
}

func appendNote(existing *string, note string) *string {
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return &note
	}
	joined := *existing + "\n" + note
	return &joined
}
