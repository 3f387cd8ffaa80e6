package engine

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pos-backend/internal/credit"
	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/internal/numbering"
	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/internal/products"
	"github.com/angelmondragon/pos-backend/internal/purchases"
	"github.com/angelmondragon/pos-backend/internal/shifts"
	"github.com/angelmondragon/pos-backend/pkg/cache"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/redis"
)

// Params are the process-level resources the engine is built on. Redis and
// Registerer may be nil.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	Registerer prometheus.Registerer
	Now        func() time.Time
}

// Engine holds the wired transaction services.
type Engine struct {
	Outbox     *outbox.Service
	OutboxRepo *outbox.Repository
	Inventory  inventory.Service
	Shifts     shifts.Service
	Credit     credit.Ledger
	Orders     orders.Service
	Purchases  purchases.Service
}

func New(p Params) (*Engine, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if p.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	cfg := p.Config
	conn := p.DB.DB()
	workflowMetrics := metrics.NewWorkflowMetrics(p.Registerer)

	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)

	productRepo := products.NewRepository(conn)
	catalog, err := products.NewCatalog(productRepo)
	if err != nil {
		return nil, err
	}

	var balanceCache cache.Cache
	if cfg.FeatureFlags.CacheEnabled && p.Redis != nil {
		redisCache, err := cache.NewRedis(p.Redis, cfg.Cache.TTL, logg)
		if err != nil {
			return nil, err
		}
		balanceCache = redisCache
	}

	inventorySvc, err := inventory.NewService(p.DB, inventory.NewRepository(conn), catalog, emitter, balanceCache, logg, workflowMetrics)
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}
	shiftSvc, err := shifts.NewService(p.DB, shifts.NewRepository(conn), emitter, logg, workflowMetrics, cfg.Sales.ElevatedRoles)
	if err != nil {
		return nil, fmt.Errorf("shift service: %w", err)
	}
	ledger, err := credit.NewLedger(credit.NewRepository(conn), logg)
	if err != nil {
		return nil, fmt.Errorf("credit ledger: %w", err)
	}
	numbers, err := numbering.NewService(numbering.Prefixes{
		enums.DocumentSale:   cfg.Sales.SalePrefix,
		enums.DocumentQuote:  cfg.Sales.QuotePrefix,
		enums.DocumentReturn: cfg.Sales.ReturnPrefix,
	}, cfg.Sales.Location())
	if err != nil {
		return nil, fmt.Errorf("numbering service: %w", err)
	}
	taxPolicy, err := orders.ParseTaxPolicy(cfg.Sales.TaxPolicy)
	if err != nil {
		return nil, err
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Tx:        p.DB,
		Repo:      orders.NewRepository(conn),
		Catalog:   catalog,
		Inventory: inventorySvc,
		Shifts:    shiftSvc,
		Credit:    ledger,
		Numbers:   numbers,
		Outbox:    emitter,
		Logger:    logg,
		Metrics:   workflowMetrics,
		TaxPolicy: taxPolicy,
		Now:       p.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}
	purchaseSvc, err := purchases.NewService(purchases.ServiceParams{
		Tx:        p.DB,
		Repo:      purchases.NewRepository(conn),
		Products:  productRepo,
		Catalog:   catalog,
		Inventory: inventorySvc,
		Outbox:    emitter,
		Logger:    logg,
		Metrics:   workflowMetrics,
		Now:       p.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("purchase service: %w", err)
	}

	return &Engine{
		Outbox:     emitter,
		OutboxRepo: outboxRepo,
		Inventory:  inventorySvc,
		Shifts:     shiftSvc,
		Credit:     ledger,
		Orders:     orderSvc,
		Purchases:  purchaseSvc,
	}, nil
}
