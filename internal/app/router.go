package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockflow-io/stockflow/internal/alerts"
	"github.com/stockflow-io/stockflow/internal/catalog"
	"github.com/stockflow-io/stockflow/internal/orders"
	"github.com/stockflow-io/stockflow/internal/stock"
	"github.com/stockflow-io/stockflow/internal/transactions"
	"github.com/stockflow-io/stockflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	OrdersHandler       *orders.Handler
	StockHandler        *stock.Handler
	TransactionsHandler *transactions.Handler
	AlertsHandler       *alerts.Handler
	CatalogHandler      *catalog.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/orders", params.OrdersHandler.MountRoutes)
	r.Route("/stock", params.StockHandler.MountRoutes)
	r.Route("/transactions", params.TransactionsHandler.MountRoutes)
	r.Route("/alerts", params.AlertsHandler.MountRoutes)
	r.Route("/catalog", params.CatalogHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
