package orders

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/outbox/payloads"
)

// CreateSale validates everything it can before opening the transaction, then
// numbers the sale, re-checks stock on fresh rows, persists the order, moves
// stock and reserves credit as one unit.
func (s *service) CreateSale(ctx context.Context, input SaleInput) (detail *OrderDetail, err error) {
	defer s.metrics.Track("sale_create", time.Now(), &err)

	shift, err := s.shifts.RequireOpenShift(ctx, nil, input.BusinessID, input.ActorID)
	if err != nil {
		return nil, err
	}
	productsByID, err := s.catalog.LoadActive(ctx, nil, input.BusinessID, s.productIDs(input.Lines))
	if err != nil {
		return nil, err
	}
	lines, totals, err := PriceOrder(s.policy, productsByID, input.Lines)
	if err != nil {
		return nil, err
	}
	location, err := s.inventory.PrimaryLocation(ctx, nil, input.BusinessID)
	if err != nil {
		return nil, err
	}
	needs := trackedNeeds(lines)
	if err := s.checkStock(ctx, nil, input.BusinessID, location.ID, needs); err != nil {
		return nil, err
	}
	pay, err := evaluateTender(input.Payments, totals.Total, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomer(ctx, input.BusinessID, input.CustomerID, pay.creditUsed); err != nil {
		return nil, err
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		number, err := s.numbers.Next(ctx, tx, input.BusinessID, enums.DocumentSale, now)
		if err != nil {
			return err
		}
		if err := s.checkStock(ctx, tx, input.BusinessID, location.ID, needs); err != nil {
			return err
		}

		order := &models.Order{
			BusinessID:     input.BusinessID,
			Number:         number,
			Status:         enums.OrderStatusCompleted,
			CustomerID:     input.CustomerID,
			ShiftID:        &shift.ID,
			LocationID:     &location.ID,
			ActorID:        input.ActorID,
			Subtotal:       totals.Subtotal,
			DiscountTotal:  totals.Discount,
			TaxTotal:       totals.Tax,
			Total:          totals.Total,
			PaymentMethod:  ptr(pay.method),
			AmountPaid:     pay.amountPaid,
			ChangeAmount:   pay.change,
			CreditUsed:     pay.creditUsed,
			CreditReleased: decimal.Zero,
			ReturnedAmount: decimal.Zero,
			Notes:          optionalString(strings.TrimSpace(input.Notes)),
		}
		if err := repo.CreateOrder(ctx, order, lines, pay.payments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := s.applyOutbound(ctx, tx, order, lines, input.ActorID); err != nil {
			return err
		}
		if pay.creditUsed.IsPositive() {
			if _, err := s.credit.Reserve(ctx, tx, input.BusinessID, *input.CustomerID, pay.creditUsed); err != nil {
				return err
			}
		}
		if err := s.emitCompleted(ctx, tx, enums.EventOrderCreated, order, len(lines)); err != nil {
			return err
		}

		detail = &OrderDetail{Order: *order, Lines: lines, Payments: pay.payments}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.inventory.Invalidate(ctx, input.BusinessID)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":    detail.Order.ID.String(),
		"number":      detail.Order.Number,
		"total":       detail.Order.Total.StringFixed(2),
		"method":      string(pay.method),
		"credit_used": pay.creditUsed.StringFixed(2),
		"lines":       len(lines),
	}), "order created")
	return detail, nil
}

func (s *service) emitCompleted(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, lineCount int) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.ActorID, BusinessID: &order.BusinessID},
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			BusinessID:    order.BusinessID,
			Number:        order.Number,
			ShiftID:       order.ShiftID,
			CustomerID:    order.CustomerID,
			Total:         order.Total,
			PaymentMethod: order.PaymentMethod,
			CreditUsed:    order.CreditUsed,
			LineCount:     lineCount,
		},
	})
}
