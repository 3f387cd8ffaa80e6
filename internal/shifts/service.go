package shifts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the cash shift register.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.CashShift, error)
	Close(ctx context.Context, input CloseInput) (*models.CashShift, error)
	RequireOpenShift(ctx context.Context, tx *gorm.DB, businessID, operatorID uuid.UUID) (*models.CashShift, error)
	Get(ctx context.Context, businessID, id uuid.UUID) (*models.CashShift, error)
	CurrentForOperator(ctx context.Context, businessID, operatorID uuid.UUID) (*models.CashShift, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	outbox   outbox.Emitter
	logg     *logger.Logger
	metrics  *metrics.WorkflowMetrics
	elevated map[string]struct{}
}

// NewService wires the shift register. elevatedRoles may close any operator's
// shift.
func NewService(tx txRunner, repo Repository, emitter outbox.Emitter, logg *logger.Logger, m *metrics.WorkflowMetrics, elevatedRoles []string) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("shift repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	elevated := make(map[string]struct{}, len(elevatedRoles))
	for _, role := range elevatedRoles {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			elevated[role] = struct{}{}
		}
	}
	return &service{
		tx:       tx,
		repo:     repo,
		outbox:   emitter,
		logg:     logg,
		metrics:  m,
		elevated: elevated,
	}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (shift *models.CashShift, err error) {
	defer s.metrics.Track("shift_open", time.Now(), &err)

	tillID := strings.TrimSpace(input.TillID)
	if tillID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "till id required")
	}
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	if input.OpeningFloat.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening float cannot be negative")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindOpenByTill(ctx, input.BusinessID, tillID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open shift for till")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "till already has an open shift").
				WithDetails(map[string]any{"shift_id": existing.ID, "till_id": tillID})
		}
		existing, err = repo.FindAnyOpenByOperator(ctx, input.OperatorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open shift for operator")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "operator already has an open shift").
				WithDetails(map[string]any{"shift_id": existing.ID, "till_id": existing.TillID, "business_id": existing.BusinessID})
		}

		shift = &models.CashShift{
			BusinessID:   input.BusinessID,
			TillID:       tillID,
			OperatorID:   input.OperatorID,
			Status:       enums.ShiftStatusOpen,
			OpeningFloat: input.OpeningFloat.Round(2),
			OpenedAt:     time.Now().UTC(),
		}
		if err := repo.Create(ctx, shift); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an open shift already exists for this till or operator")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shift")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShiftOpened,
			AggregateType: enums.AggregateShift,
			AggregateID:   shift.ID,
			Actor:         &outbox.ActorRef{UserID: input.OperatorID, BusinessID: &input.BusinessID},
			Data: payloads.ShiftOpenedEvent{
				ShiftID:      shift.ID,
				BusinessID:   input.BusinessID,
				TillID:       tillID,
				OperatorID:   input.OperatorID,
				OpeningFloat: shift.OpeningFloat,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"shift_id":      shift.ID.String(),
		"till_id":       shift.TillID,
		"operator_id":   shift.OperatorID.String(),
		"opening_float": shift.OpeningFloat.StringFixed(2),
	}), "shift opened")
	return shift, nil
}

func (s *service) Close(ctx context.Context, input CloseInput) (shift *models.CashShift, err error) {
	defer s.metrics.Track("shift_close", time.Now(), &err)

	if input.CountedAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counted amount cannot be negative")
	}

	var activity CashActivity
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.LockByID(ctx, input.BusinessID, input.ShiftID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock shift")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
		}
		if current.Status != enums.ShiftStatusOpen {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "shift already closed")
		}
		if !s.mayClose(current, input) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the opening operator or a manager may close this shift")
		}

		activity, err = repo.CashActivity(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum shift cash")
		}

		expected := ExpectedCash(current.OpeningFloat, activity.CashIn, activity.ChangeOut)
		counted := input.CountedAmount.Round(2)
		now := time.Now().UTC()
		closedBy := input.ActorID

		current.Status = enums.ShiftStatusClosed
		current.CountedAmount = decimal.NewNullDecimal(counted)
		current.ExpectedAmount = decimal.NewNullDecimal(expected)
		current.Variance = decimal.NewNullDecimal(counted.Sub(expected))
		current.ClosedAt = &now
		current.ClosedBy = &closedBy
		if err := repo.SaveClosing(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close shift")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShiftClosed,
			AggregateType: enums.AggregateShift,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, BusinessID: &input.BusinessID, Role: input.ActorRole},
			Data: payloads.ShiftClosedEvent{
				ShiftID:  current.ID,
				Expected: expected,
				Counted:  counted,
				Variance: current.Variance.Decimal,
				ClosedBy: closedBy,
			},
		}); err != nil {
			return err
		}
		shift = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"shift_id": shift.ID.String(),
		"expected": shift.ExpectedAmount.Decimal.StringFixed(2),
		"counted":  shift.CountedAmount.Decimal.StringFixed(2),
		"variance": shift.Variance.Decimal.StringFixed(2),
		"orders":   activity.OrderCount,
	}), "shift closed")
	return shift, nil
}

// ExpectedCash is what the drawer should hold at close.
func ExpectedCash(openingFloat, cashIn, changeOut decimal.Decimal) decimal.Decimal {
	return openingFloat.Add(cashIn).Sub(changeOut).Round(2)
}

func (s *service) mayClose(shift *models.CashShift, input CloseInput) bool {
	if shift.OperatorID == input.ActorID {
		return true
	}
	_, ok := s.elevated[strings.ToLower(strings.TrimSpace(input.ActorRole))]
	return ok
}

func (s *service) RequireOpenShift(ctx context.Context, tx *gorm.DB, businessID, operatorID uuid.UUID) (*models.CashShift, error) {
	shift, err := s.repo.WithTx(tx).FindOpenByOperator(ctx, businessID, operatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load open shift")
	}
	if shift == nil {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "no open shift for operator")
	}
	return shift, nil
}

func (s *service) Get(ctx context.Context, businessID, id uuid.UUID) (*models.CashShift, error) {
	shift, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shift")
	}
	if shift == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
	}
	return shift, nil
}

func (s *service) CurrentForOperator(ctx context.Context, businessID, operatorID uuid.UUID) (*models.CashShift, error) {
	shift, err := s.repo.FindOpenByOperator(ctx, businessID, operatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load open shift")
	}
	if shift == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open shift for operator")
	}
	return shift, nil
}
