package inventory

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dagelec/dagelec-erp/internal/export"
	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	form := rbac.FormInventory
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(form, rbac.ActionSearch))
		r.Get("/balances", h.handleBalances)
		r.Get("/movements", h.handleMovements)
	})
	r.With(h.rbac.Require(form, rbac.ActionInform)).Get("/balances/export", h.handleExport)
	r.With(h.rbac.Require(form, rbac.ActionCreate)).Post("/movements", h.handlePost)
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Balances(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list inventory balances failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMovementFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.fail(w, "get stock card failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	var in MovementInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	posted, err := h.service.Post(r.Context(), actorID, in)
	if err != nil {
		h.fail(w, "post inventory movement failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, posted)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.Balances(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "export inventory balances failed", err)
		return
	}
	table := export.Table{
		Title: "Inventario",
		Columns: []export.Column{
			{Title: "Ingrediente", Width: 30}, {Title: "Unidad", Width: 10},
			{Title: "Cantidad", Width: 14}, {Title: "Costo promedio", Width: 16},
		},
	}
	for _, b := range items {
		table.Rows = append(table.Rows, []string{b.IngredientName, b.Unit, b.Qty.String(), b.AvgCost.StringFixed(2)})
	}
	art, err := export.Render(table, format, time.Now())
	if err != nil {
		h.fail(w, "render inventory balances failed", err)
		return
	}
	httpx.Attachment(w, art.ContentType, art.Filename, len(art.Body))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseMovementFilter(r *http.Request) (MovementFilter, error) {
	q := r.URL.Query()
	var filter MovementFilter
	id, err := strconv.ParseInt(q.Get("ingredient_id"), 10, 64)
	if err != nil || id <= 0 {
		return filter, fmt.Errorf("%w: ingrediente no válido", ErrValidation)
	}
	filter.IngredientID = id
	if raw := q.Get("from"); raw != "" {
		if filter.From, err = time.Parse(time.DateOnly, raw); err != nil {
			return filter, fmt.Errorf("%w: fecha inicial no válida", ErrValidation)
		}
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return filter, fmt.Errorf("%w: fecha final no válida", ErrValidation)
		}
		filter.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	filter.Limit = min(httpx.QueryInt(r, "limit", 200), 500)
	return filter, nil
}
