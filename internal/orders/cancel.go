package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/outbox/payloads"
)

// CancelSale voids a completed sale. Stock not already returned goes back
// through reversing movements and all unreleased credit is released; the
// original rows stay untouched.
func (s *service) CancelSale(ctx context.Context, input CancelInput) (detail *OrderDetail, err error) {
	defer s.metrics.Track("sale_cancel", time.Now(), &err)

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	var released decimal.Decimal
	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.BusinessID, input.OrderID, true)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusCompleted {
			return notCompleted(order, "cancelled")
		}
		lines, err := repo.ListLines(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order lines")
		}

		locationID, err := s.stockLocation(ctx, tx, order)
		if err != nil {
			return err
		}
		orderID := order.ID
		note := "cancelled: " + reason
		for _, line := range lines {
			remaining := line.RemainingQuantity()
			if !line.TrackStock || remaining <= 0 {
				continue
			}
			if _, _, err := s.inventory.ApplyMovement(ctx, tx, inventory.MovementInput{
				BusinessID: order.BusinessID,
				ProductID:  line.ProductID,
				LocationID: locationID,
				Type:       enums.MovementReturn,
				Quantity:   remaining,
				UnitCost:   line.UnitCost,
				RefType:    enums.RefCancellation,
				RefID:      &orderID,
				ActorID:    input.ActorID,
				Note:       &note,
			}); err != nil {
				return err
			}
		}

		released = order.CreditUsed.Sub(order.CreditReleased)
		if released.IsPositive() && order.CustomerID != nil {
			if _, err := s.credit.Release(ctx, tx, order.BusinessID, *order.CustomerID, released); err != nil {
				return err
			}
		} else {
			released = decimal.Zero
		}

		actor := input.ActorID
		order.Status = enums.OrderStatusCancelled
		order.CancelReason = &reason
		order.CancelledBy = &actor
		order.CancelledAt = &now
		order.CreditReleased = order.CreditReleased.Add(released)
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":          order.Status,
			"cancel_reason":   order.CancelReason,
			"cancelled_by":    order.CancelledBy,
			"cancelled_at":    order.CancelledAt,
			"credit_released": order.CreditReleased,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, BusinessID: &input.BusinessID},
			Data: payloads.OrderCancelledEvent{
				OrderID:        order.ID,
				BusinessID:     order.BusinessID,
				Number:         order.Number,
				Reason:         reason,
				CreditReleased: released,
				CancelledAt:    now,
			},
		}); err != nil {
			return err
		}

		detail, err = s.detail(ctx, repo, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.inventory.Invalidate(ctx, input.BusinessID)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":        detail.Order.ID.String(),
		"number":          detail.Order.Number,
		"reason":          reason,
		"credit_released": released.StringFixed(2),
	}), "order cancelled")
	return detail, nil
}

// stockLocation is where the order drew its stock. Orders written before
// locations were recorded fall back to the primary location.
func (s *service) stockLocation(ctx context.Context, tx *gorm.DB, order *models.Order) (uuid.UUID, error) {
	if order.LocationID != nil {
		return *order.LocationID, nil
	}
	loc, err := s.inventory.PrimaryLocation(ctx, tx, order.BusinessID)
	if err != nil {
		return uuid.Nil, err
	}
	return loc.ID, nil
}

func notCompleted(order *models.Order, action string) error {
	return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "order %s is %s and cannot be %s", order.Number, order.Status, action).
		WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
}
