package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
)

// Catalog resolves the products a workflow references.
type Catalog interface {
	LoadActive(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	Get(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*models.Product, error)
}

type catalog struct {
	repo Repository
}

// NewCatalog builds the workflow-facing product lookup.
func NewCatalog(repo Repository) (Catalog, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &catalog{repo: repo}, nil
}

// LoadActive returns every referenced product keyed by id. A missing, foreign
// or deactivated product fails the whole request as a bad reference.
func (c *catalog) LoadActive(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	rows, err := c.repo.WithTx(tx).FindByIDs(ctx, businessID, unique)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range unique {
		product, ok := byID[id]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s not found", id).
				WithDetails(map[string]any{"product_id": id})
		}
		if !product.Active {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s is inactive", product.Code).
				WithDetails(map[string]any{"product_id": id})
		}
	}
	return byID, nil
}

func (c *catalog) Get(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*models.Product, error) {
	return c.repo.WithTx(tx).FindByID(ctx, businessID, id)
}
