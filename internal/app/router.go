package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dagelec/dagelec-erp/internal/auth"
	"github.com/dagelec/dagelec-erp/internal/inventory"
	"github.com/dagelec/dagelec-erp/internal/masterdata/clients"
	"github.com/dagelec/dagelec-erp/internal/masterdata/ingredients"
	"github.com/dagelec/dagelec-erp/internal/masterdata/personnel"
	"github.com/dagelec/dagelec-erp/internal/masterdata/vendors"
	"github.com/dagelec/dagelec-erp/internal/observability"
	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/realtime"
	"github.com/dagelec/dagelec-erp/internal/requisition"
	"github.com/dagelec/dagelec-erp/internal/shared"
	"github.com/dagelec/dagelec-erp/jobs"
	"github.com/dagelec/dagelec-erp/report"
)

// RouterParams groups dependencies for building the HTTP router. Optional
// handlers left nil are not mounted.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Tokens         *auth.Tokens
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.Handler
	RequisitionHandler *requisition.Handler
	ClientsHandler     *clients.Handler
	VendorsHandler     *vendors.Handler
	PersonnelHandler   *personnel.Handler
	IngredientsHandler *ingredients.Handler
	InventoryHandler   *inventory.Handler
	Hub                *realtime.Hub
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Dagelec defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	mwCfg := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Tokens:         params.Tokens,
		RBAC:           params.RBACMiddleware,
		Metrics:        params.Metrics,
	}
	for _, mw := range BaseStack(mwCfg) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.Hub != nil {
		r.With(params.RBACMiddleware.Require(rbac.FormRequisition, rbac.ActionSearch)).
			Get("/ws/requisitions", params.Hub.ServeWS)
	}

	r.Group(func(r chi.Router) {
		for _, mw := range APIStack(mwCfg) {
			r.Use(mw)
		}
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		r.Route("/api", func(r chi.Router) {
			if params.PermissionsHandler != nil {
				r.Route("/me", params.PermissionsHandler.MountRoutes)
			}
			if params.RequisitionHandler != nil {
				r.Route("/requisitions", params.RequisitionHandler.MountRoutes)
			}
			r.Route("/masterdata", func(r chi.Router) {
				if params.ClientsHandler != nil {
					r.Route("/clients", params.ClientsHandler.MountRoutes)
				}
				if params.VendorsHandler != nil {
					r.Route("/vendors", params.VendorsHandler.MountRoutes)
				}
				if params.PersonnelHandler != nil {
					r.Route("/personnel", params.PersonnelHandler.MountRoutes)
				}
				if params.IngredientsHandler != nil {
					r.Route("/ingredients", params.IngredientsHandler.MountRoutes)
				}
			})
			if params.InventoryHandler != nil {
				r.Route("/inventory", params.InventoryHandler.MountRoutes)
			}
		})
		if params.ReportHandler != nil {
			r.Route("/report", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
