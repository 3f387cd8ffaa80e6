package credit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

// Ledger maintains customer credit utilization. It owns no table of its own;
// every change happens on the locked customer row inside the caller's
// transaction.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, businessID, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
	Release(ctx context.Context, tx *gorm.DB, businessID, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
	Available(ctx context.Context, businessID, customerID uuid.UUID) (decimal.Decimal, error)
}

type ledger struct {
	repo Repository
	logg *logger.Logger
}

func NewLedger(repo Repository, logg *logger.Logger) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("credit repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &ledger{repo: repo, logg: logg}, nil
}

func (l *ledger) Reserve(ctx context.Context, tx *gorm.DB, businessID, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credit reservation requires a transaction")
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount cannot be negative")
	}
	repo := l.repo.WithTx(tx)
	customer, err := l.lockActive(ctx, repo, businessID, customerID)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return customer, nil
	}

	available := customer.AvailableCredit()
	if amount.GreaterThan(available) {
		return nil, InsufficientCredit(customerID, available, amount)
	}

	utilized := customer.CreditUtilized.Add(amount).Round(2)
	if err := repo.SetUtilized(ctx, customer.ID, utilized); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve credit")
	}
	customer.CreditUtilized = utilized

	l.logg.Debug(l.logg.WithFields(ctx, map[string]any{
		"customer_id": customerID.String(),
		"amount":      amount.StringFixed(2),
		"utilized":    utilized.StringFixed(2),
	}), "credit reserved")
	return customer, nil
}

// Release gives back credit. Utilization floors at zero so a release can never
// create headroom beyond the limit.
func (l *ledger) Release(ctx context.Context, tx *gorm.DB, businessID, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credit release requires a transaction")
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount cannot be negative")
	}
	repo := l.repo.WithTx(tx)
	customer, err := repo.LockCustomer(ctx, businessID, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock customer")
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if amount.IsZero() {
		return customer, nil
	}

	utilized := decimal.Max(customer.CreditUtilized.Sub(amount), decimal.Zero).Round(2)
	if err := repo.SetUtilized(ctx, customer.ID, utilized); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release credit")
	}
	customer.CreditUtilized = utilized

	l.logg.Debug(l.logg.WithFields(ctx, map[string]any{
		"customer_id": customerID.String(),
		"amount":      amount.StringFixed(2),
		"utilized":    utilized.StringFixed(2),
	}), "credit released")
	return customer, nil
}

func (l *ledger) Available(ctx context.Context, businessID, customerID uuid.UUID) (decimal.Decimal, error) {
	customer, err := l.repo.FindCustomer(ctx, businessID, customerID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	if customer == nil || !customer.Active {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer.AvailableCredit(), nil
}

func (l *ledger) lockActive(ctx context.Context, repo Repository, businessID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := repo.LockCustomer(ctx, businessID, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock customer")
	}
	if customer == nil || !customer.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}

// InsufficientCredit builds the error reported when a reservation exceeds the
// customer's headroom.
func InsufficientCredit(customerID uuid.UUID, available, requested decimal.Decimal) error {
	return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "insufficient credit, available %s, requested %s",
		available.StringFixed(2), requested.StringFixed(2)).
		WithDetails(map[string]any{
			"customer_id": customerID,
			"available":   available.StringFixed(2),
			"requested":   requested.StringFixed(2),
		})
}
