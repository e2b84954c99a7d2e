package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nayhtetaung/feedledger-backend/api/controllers"
	"github.com/nayhtetaung/feedledger-backend/api/middleware"
	"github.com/nayhtetaung/feedledger-backend/internal/batches"
	"github.com/nayhtetaung/feedledger-backend/internal/inventory"
	"github.com/nayhtetaung/feedledger-backend/internal/ledger"
	"github.com/nayhtetaung/feedledger-backend/internal/parties"
	"github.com/nayhtetaung/feedledger-backend/internal/sales"
	"github.com/nayhtetaung/feedledger-backend/pkg/config"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	"github.com/nayhtetaung/feedledger-backend/pkg/logger"
	pkgredis "github.com/nayhtetaung/feedledger-backend/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     *pkgredis.Client
	Registry  *prometheus.Registry
	Parties   parties.Service
	Batches   batches.Service
	Inventory inventory.Service
	Sales     sales.Service
	Ledger    ledger.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(nil),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.DB, redisPinger(d.Redis)))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	// Paying money out and unwinding discounts are owner actions; everything
	// else is open to any authenticated member.
	ownerOnly := middleware.RequireRole(enums.MemberRoleOwner.String(), logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore(d.Redis), logg))

		r.Route("/parties", func(r chi.Router) {
			r.Post("/", controllers.CreateParty(d.Parties, logg))
			r.Get("/", controllers.ListParties(d.Parties, logg))
			r.Route("/{partyID}", func(r chi.Router) {
				r.Get("/", controllers.GetParty(d.Parties, logg))
				r.Patch("/", controllers.UpdateParty(d.Parties, logg))
				r.Post("/deposit", controllers.Deposit(d.Parties, logg))
				r.With(ownerOnly).Post("/withdraw", controllers.Withdraw(d.Parties, logg))
				r.Post("/batches", controllers.StartBatch(d.Batches, logg))
				r.Get("/batches", controllers.ListBatches(d.Batches, logg))
				r.Get("/batches/active", controllers.GetActiveBatch(d.Batches, logg))
				r.Get("/sales", controllers.ListPartySales(d.Sales, logg))
				r.Get("/transactions", controllers.ListPartyTransactions(d.Ledger, logg))
				r.Get("/statement", controllers.GetPartyStatement(d.Parties, d.Batches, d.Ledger, logg))
			})
		})

		r.Route("/batches/{batchID}", func(r chi.Router) {
			r.Get("/", controllers.GetBatch(d.Batches, logg))
			r.Get("/transactions", controllers.ListBatchTransactions(d.Ledger, logg))
			r.Post("/discounts", controllers.AddBatchDiscount(d.Batches, logg))
			r.With(ownerOnly).Delete("/discounts/{discountID}", controllers.RemoveBatchDiscount(d.Batches, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.CreateSale(d.Sales, logg))
			r.Post("/wholesale", controllers.CreateWholesaleSale(d.Sales, logg))
			r.Get("/{saleID}", controllers.GetSale(d.Sales, logg))
		})

		r.Post("/buy-backs", controllers.CreateBuyBack(d.Sales, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(d.Inventory, logg))
			r.Get("/", controllers.ListProducts(d.Inventory, logg))
			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", controllers.GetProduct(d.Inventory, logg))
				r.Post("/stock/add", controllers.AddStock(d.Inventory, logg))
				r.Post("/stock/remove", controllers.RemoveStock(d.Inventory, logg))
			})
		})
	})

	return r
}

// a typed nil *Client must not leak into the interface as non-nil
func redisPinger(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func idempotencyStore(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}
