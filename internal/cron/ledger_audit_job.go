package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type ledgerVerifier interface {
	VerifyAll(ctx context.Context) ([]inventory.LedgerReport, error)
}

type LedgerAuditJobParams struct {
	Logger *logger.Logger
	Ledger ledgerVerifier
}

// NewLedgerAuditJob replays every stock balance against its movements and
// fails the run when any of them drifted.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger verifier required")
	}
	return &ledgerAuditJob{logg: params.Logger, ledger: params.Ledger}, nil
}

type ledgerAuditJob struct {
	logg   *logger.Logger
	ledger ledgerVerifier
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	reports, err := j.ledger.VerifyAll(ctx)
	if err != nil {
		return fmt.Errorf("verify ledger: %w", err)
	}

	var errs []error
	for _, report := range reports {
		if report.Consistent {
			continue
		}
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"business_id":       report.BusinessID.String(),
			"product_id":        report.ProductID.String(),
			"location_id":       report.LocationID.String(),
			"stored_quantity":   report.StoredQuantity,
			"replayed_quantity": report.ReplayedQuantity,
			"problem":           report.Problem,
		}), "stock ledger drift detected")
		errs = append(errs, fmt.Errorf("product %s at location %s: %s", report.ProductID, report.LocationID, report.Problem))
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"balances_checked": len(reports),
		"balances_drifted": len(errs),
	}), "ledger audit complete")
	return multierr.Combine(errs...)
}
