package clients

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dagelec/dagelec-erp/internal/export"
	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
	"github.com/dagelec/dagelec-erp/internal/rbac"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	form := rbac.FormClient
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(form, rbac.ActionSearch))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.With(h.rbac.Require(form, rbac.ActionInform)).Get("/export", h.Export)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(form, rbac.ActionCreate))
		r.Post("/", h.Create)
		r.Post("/duplicates", h.CheckDuplicates)
	})
	r.With(h.rbac.Require(form, rbac.ActionUpdate)).Put("/{id}", h.Update)
	r.With(h.rbac.Require(form, rbac.ActionDelete)).Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.service.List(r.Context(), shared.ParseListFilters(r))
	if err != nil {
		shared.RespondError(w, h.logger, "list clients failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.Page[Client]{Items: items, Total: total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, "get client failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		shared.RespondError(w, h.logger, "create client failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	names, err := h.service.Duplicates(r.Context(), 0, in)
	if err != nil {
		shared.RespondError(w, h.logger, "client duplicates failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"duplicates": names})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		shared.RespondError(w, h.logger, "update client failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, "delete client failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters := shared.ParseListFilters(r)
	filters.Limit = 0
	items, _, err := h.service.List(r.Context(), filters)
	if err != nil {
		shared.RespondError(w, h.logger, "export clients failed", err)
		return
	}
	table := export.Table{
		Title: "Clientes",
		Columns: []export.Column{
			{Title: "Documento", Width: 16}, {Title: "Nombre", Width: 30}, {Title: "Cityo", Width: 20},
			{Title: "Teléfono", Width: 14}, {Title: "Correo", Width: 24}, {Title: "Dirección", Width: 30},
		},
	}
	for _, v := range items {
		table.Rows = append(table.Rows, []string{v.Document, v.Name, v.City, v.Phone, v.Email, v.Address})
	}
	art, err := export.Render(table, format, time.Now())
	if err != nil {
		shared.RespondError(w, h.logger, "render clients failed", err)
		return
	}
	httpx.Attachment(w, art.ContentType, art.Filename, len(art.Body))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}
