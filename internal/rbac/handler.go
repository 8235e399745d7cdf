package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
)

// Handler exposes the current user's permission matrix.
type Handler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, rbac Middleware) *Handler {
	return &Handler{logger: logger, rbac: rbac}
}

// MountRoutes registers /me routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireUser)
		r.Get("/permissions", h.permissions)
		r.Get("/menu", h.menu)
		r.Get("/row-actions", h.rowActions)
	})
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	ev := EvaluatorFromContext(r.Context())
	entries := ev.Store().All()
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": entries})
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	ev := EvaluatorFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"menu":   ev.FormMenu(),
		"groups": ev.MenuGroups(),
	})
}

func (h *Handler) rowActions(w http.ResponseWriter, r *http.Request) {
	form := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("form")))
	if form == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "form is required")
		return
	}
	mode := ParseContextMode(r.URL.Query().Get("mode"))
	ev := EvaluatorFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"form":    form,
		"mode":    mode,
		"actions": ev.RowActionsIn(form, mode),
	})
}
