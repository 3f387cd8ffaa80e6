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

// CreateQuote prices and stores a quote. It needs no shift and has no effect
// on stock or credit.
func (s *service) CreateQuote(ctx context.Context, input QuoteInput) (detail *OrderDetail, err error) {
	defer s.metrics.Track("quote_create", time.Now(), &err)

	productsByID, err := s.catalog.LoadActive(ctx, nil, input.BusinessID, s.productIDs(input.Lines))
	if err != nil {
		return nil, err
	}
	lines, totals, err := PriceOrder(s.policy, productsByID, input.Lines)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomer(ctx, input.BusinessID, input.CustomerID, decimal.Zero); err != nil {
		return nil, err
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.numbers.Next(ctx, tx, input.BusinessID, enums.DocumentQuote, now)
		if err != nil {
			return err
		}
		order := &models.Order{
			BusinessID:     input.BusinessID,
			Number:         number,
			Status:         enums.OrderStatusQuote,
			CustomerID:     input.CustomerID,
			ActorID:        input.ActorID,
			Subtotal:       totals.Subtotal,
			DiscountTotal:  totals.Discount,
			TaxTotal:       totals.Tax,
			Total:          totals.Total,
			AmountPaid:     decimal.Zero,
			ChangeAmount:   decimal.Zero,
			CreditUsed:     decimal.Zero,
			CreditReleased: decimal.Zero,
			ReturnedAmount: decimal.Zero,
			Notes:          optionalString(strings.TrimSpace(input.Notes)),
		}
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order, lines, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create quote")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, BusinessID: &input.BusinessID},
			Data: payloads.QuoteEvent{
				OrderID:    order.ID,
				BusinessID: order.BusinessID,
				Number:     order.Number,
				Total:      order.Total,
			},
		}); err != nil {
			return err
		}
		detail = &OrderDetail{Order: *order, Lines: lines, Payments: []models.Payment{}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": detail.Order.ID.String(),
		"number":   detail.Order.Number,
		"total":    detail.Order.Total.StringFixed(2),
	}), "quote created")
	return detail, nil
}

// ConfirmQuote turns a quote into a completed sale under its quote number,
// using the prices stored on the quote.
func (s *service) ConfirmQuote(ctx context.Context, input ConfirmQuoteInput) (detail *OrderDetail, err error) {
	defer s.metrics.Track("quote_confirm", time.Now(), &err)

	shift, err := s.shifts.RequireOpenShift(ctx, nil, input.BusinessID, input.ActorID)
	if err != nil {
		return nil, err
	}
	quote, err := s.loadOrder(ctx, s.repo, input.BusinessID, input.OrderID, false)
	if err != nil {
		return nil, err
	}
	if quote.Status != enums.OrderStatusQuote {
		return nil, notAQuote(quote)
	}
	lines, err := s.repo.ListLines(ctx, quote.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load quote lines")
	}
	location, err := s.inventory.PrimaryLocation(ctx, nil, input.BusinessID)
	if err != nil {
		return nil, err
	}
	needs := trackedNeeds(lines)
	if err := s.checkStock(ctx, nil, input.BusinessID, location.ID, needs); err != nil {
		return nil, err
	}
	pay, err := evaluateTender(input.Payments, quote.Total, quote.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomer(ctx, input.BusinessID, quote.CustomerID, pay.creditUsed); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.BusinessID, input.OrderID, true)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusQuote {
			return notAQuote(order)
		}
		if err := s.checkStock(ctx, tx, input.BusinessID, location.ID, needs); err != nil {
			return err
		}

		for i := range pay.payments {
			pay.payments[i].OrderID = order.ID
		}
		if err := repo.InsertPayments(ctx, pay.payments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payments")
		}

		order.Status = enums.OrderStatusCompleted
		order.ShiftID = &shift.ID
		order.LocationID = &location.ID
		order.PaymentMethod = ptr(pay.method)
		order.AmountPaid = pay.amountPaid
		order.ChangeAmount = pay.change
		order.CreditUsed = pay.creditUsed
		order.ConfirmedAt = &now
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":         order.Status,
			"shift_id":       order.ShiftID,
			"location_id":    order.LocationID,
			"payment_method": order.PaymentMethod,
			"amount_paid":    order.AmountPaid,
			"change_amount":  order.ChangeAmount,
			"credit_used":    order.CreditUsed,
			"confirmed_at":   order.ConfirmedAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm quote")
		}

		if err := s.applyOutbound(ctx, tx, order, lines, input.ActorID); err != nil {
			return err
		}
		if pay.creditUsed.IsPositive() {
			if _, err := s.credit.Reserve(ctx, tx, input.BusinessID, *order.CustomerID, pay.creditUsed); err != nil {
				return err
			}
		}
		if err := s.emitCompleted(ctx, tx, enums.EventQuoteConfirmed, order, len(lines)); err != nil {
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
		"order_id": detail.Order.ID.String(),
		"number":   detail.Order.Number,
		"total":    detail.Order.Total.StringFixed(2),
		"method":   string(pay.method),
	}), "quote confirmed")
	return detail, nil
}

func notAQuote(order *models.Order) error {
	return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "order %s is %s, not a quote", order.Number, order.Status).
		WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
}
