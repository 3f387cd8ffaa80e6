package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type lowStockReader interface {
	ActiveLocations(ctx context.Context) ([]models.Location, error)
	ListLowStock(ctx context.Context, businessID, locationID uuid.UUID) ([]inventory.LowStockItem, error)
}

type LowStockScanJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockReader
}

// NewLowStockScanJob logs every tracked product sitting below its reorder
// threshold, one entry per location.
func NewLowStockScanJob(params LowStockScanJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory reader required")
	}
	return &lowStockScanJob{logg: params.Logger, inventory: params.Inventory}, nil
}

type lowStockScanJob struct {
	logg      *logger.Logger
	inventory lowStockReader
}

func (j *lowStockScanJob) Name() string { return "low-stock-scan" }

func (j *lowStockScanJob) Run(ctx context.Context) error {
	locations, err := j.inventory.ActiveLocations(ctx)
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}

	var (
		errs  []error
		total int
	)
	for _, loc := range locations {
		items, err := j.inventory.ListLowStock(ctx, loc.BusinessID, loc.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("location %s: %w", loc.ID, err))
			continue
		}
		if len(items) == 0 {
			continue
		}
		total += len(items)
		codes := make([]string, 0, len(items))
		for _, item := range items {
			codes = append(codes, item.Code)
		}
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"business_id": loc.BusinessID.String(),
			"location_id": loc.ID.String(),
			"location":    loc.Name,
			"count":       len(items),
			"codes":       codes,
		}), "products below reorder threshold")
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"locations_scanned": len(locations),
		"low_stock_items":   total,
	}), "low stock scan complete")
	return multierr.Combine(errs...)
}
