package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pos-backend/api/controllers"
	inventorycontrollers "github.com/angelmondragon/pos-backend/api/controllers/inventory"
	ordercontrollers "github.com/angelmondragon/pos-backend/api/controllers/orders"
	purchasecontrollers "github.com/angelmondragon/pos-backend/api/controllers/purchases"
	shiftcontrollers "github.com/angelmondragon/pos-backend/api/controllers/shifts"
	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/internal/credit"
	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/internal/purchases"
	"github.com/angelmondragon/pos-backend/internal/shifts"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/pos-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface is wired to. Redis and
// Gatherer may be nil.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     *pkgredis.Client
	Gatherer  prometheus.Gatherer
	Shifts    shifts.Service
	Orders    orders.Service
	Purchases purchases.Service
	Inventory inventory.Service
	Credit    credit.Ledger
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	deps := map[string]controllers.Pinger{"database": p.DB}
	var idemStore pkgredis.IdempotencyStore
	if p.Redis != nil {
		deps["redis"] = p.Redis
		idemStore = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	elevated := middleware.RequireRole(logg, cfg.Sales.ElevatedRoles...)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", shiftcontrollers.Open(p.Shifts, logg))
			r.Get("/current", shiftcontrollers.Current(p.Shifts, logg))
			r.Get("/{shiftId}", shiftcontrollers.Get(p.Shifts, logg))
			r.Post("/{shiftId}/close", shiftcontrollers.Close(p.Shifts, logg))
		})

		r.Post("/sales", ordercontrollers.CreateSale(p.Orders, logg))
		r.Post("/quotes", ordercontrollers.CreateQuote(p.Orders, logg))
		r.Post("/quotes/{orderId}/confirm", ordercontrollers.ConfirmQuote(p.Orders, logg))
		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", ordercontrollers.Get(p.Orders, logg))
			r.Post("/cancel", ordercontrollers.Cancel(p.Orders, logg))
			r.Post("/returns", ordercontrollers.Return(p.Orders, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", purchasecontrollers.Create(p.Purchases, logg))
			r.Get("/{purchaseId}", purchasecontrollers.Get(p.Purchases, logg))
			r.Post("/{purchaseId}/receive", purchasecontrollers.Receive(p.Purchases, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/balance", inventorycontrollers.Balance(p.Inventory, logg))
			r.Get("/low-stock", inventorycontrollers.LowStock(p.Inventory, logg))
			r.Get("/movements", inventorycontrollers.Movements(p.Inventory, logg))
			r.Post("/transfers", inventorycontrollers.Transfer(p.Inventory, logg))
			r.With(elevated).Post("/adjustments", inventorycontrollers.Adjust(p.Inventory, logg))
			r.With(elevated).Get("/verify", inventorycontrollers.Verify(p.Inventory, logg))
		})

		r.Get("/customers/{customerId}/credit", controllers.CustomerCredit(p.Credit, logg))
	})

	return r
}
