package requisition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dagelec/dagelec-erp/internal/export"
	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

const maxUploadBytes = 10 << 20

// Printer renders the print sheet of a requisition.
type Printer interface {
	PrintRequisition(ctx context.Context, r Requisition) ([]byte, error)
}

// ExportRequest asks for an export to be produced in the background.
type ExportRequest struct {
	UserID int64  `json:"user_id"`
	Format string `json:"format"`
	Filter Filter `json:"filter"`
}

// ExportQueue schedules background exports.
type ExportQueue interface {
	EnqueueRequisitionExport(ctx context.Context, req ExportRequest) (string, error)
}

// IdempotencyStore remembers client-supplied request keys.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "requisition.create"

// Handler exposes requisition endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	orchestrator *Orchestrator
	printer      Printer
	exports      ExportQueue
	idempotency  IdempotencyStore
	rbac         rbac.Middleware
	validate     *validator.Validate
}

// NewHandler builds Handler instance. printer and exports may be nil.
func NewHandler(logger *slog.Logger, service *Service, orchestrator *Orchestrator, printer Printer, exports ExportQueue, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		orchestrator: orchestrator,
		printer:      printer,
		exports:      exports,
		rbac:         rbac,
		validate:     validator.New(),
	}
}

// WithIdempotency makes POST / honour the Idempotency-Key header.
func (h *Handler) WithIdempotency(store IdempotencyStore) *Handler {
	h.idempotency = store
	return h
}

// MountRoutes registers requisition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	form := rbac.FormRequisition
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(form, rbac.ActionSearch))
		r.Get("/", h.list)
		r.Get("/{pk}", h.get)
		r.Get("/{pk}/approvals", h.approvals)
		r.Get("/{pk}/attachment", h.attachment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(form, rbac.ActionInform))
		r.Get("/export", h.export)
		r.Post("/export", h.exportAsync)
	})
	r.With(h.rbac.Require(form, rbac.ActionCreate)).Post("/", h.create)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(form, rbac.ActionUpdate))
		r.Put("/{pk}", h.update)
		r.Post("/{pk}/attachments", h.upload)
	})
	r.With(h.rbac.Require(form, rbac.ActionSend)).Post("/{pk}/send", h.send)
	r.With(h.rbac.Require(form, rbac.ActionApprove)).Post("/{pk}/approve", h.approve)
	r.With(h.rbac.Require(form, rbac.ActionPrint)).Get("/{pk}/print", h.print)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(form, rbac.ActionManage))
		r.Post("/{pk}/items", h.createItem)
		r.Put("/{pk}/items/{sk}", h.updateItem)
	})
	r.With(h.rbac.Require(form, rbac.ActionDelete)).Delete("/{pk}/items/{sk}", h.deleteItem)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.List(r.Context(), rbac.EvaluatorFromContext(r.Context()), filter)
	if err != nil {
		h.fail(w, "list requisitions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":   rows,
		"mode":   filter.Mode(),
		"filter": filter,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Get(r.Context(), pkParam(r))
	if err != nil {
		h.fail(w, "get requisition", err)
		return
	}
	row := h.service.Decorate(rbac.EvaluatorFromContext(r.Context()), Filter{}, req)
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actorID, _ := shared.UserIDFromContext(r.Context())
	var header Header
	var file *Upload
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", ErrValidation, err))
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("data")), &header); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", ErrValidation, err))
			return
		}
		if f, fh, err := r.FormFile("file"); err == nil {
			defer f.Close()
			file = &Upload{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Size: fh.Size, Body: f}
		}
	} else if err := httpx.DecodeJSON(r, &header); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			h.fail(w, "create requisition", err)
			return
		}
	}
	result, err := h.service.Create(r.Context(), actorID, header, file)
	if err != nil {
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(context.WithoutCancel(r.Context()), key)
		}
		h.fail(w, "create requisition", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actorID, _ := shared.UserIDFromContext(r.Context())
	var header Header
	if err := httpx.DecodeJSON(r, &header); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), actorID, pkParam(r), header)
	if err != nil {
		h.fail(w, "update requisition", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: file is required", ErrValidation))
		return
	}
	defer f.Close()
	updated, err := h.service.Attach(r.Context(), pkParam(r), &Upload{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Size: fh.Size, Body: f})
	if err != nil {
		h.fail(w, "upload requisition attachment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) attachment(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.AttachmentURL(r.Context(), pkParam(r))
	if err != nil {
		h.fail(w, "requisition attachment url", err)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var payload TransitionPayload
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	h.transition(w, r, TriggerSend, payload)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var payload TransitionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.transition(w, r, TriggerApprove, payload)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, trigger rbac.Action, payload TransitionPayload) {
	if err := h.validate.Struct(payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	actor := Actor{ID: actorID, Permissions: rbac.EvaluatorFromContext(r.Context())}
	result, err := h.orchestrator.RequestTransition(r.Context(), actor, pkParam(r), trigger, payload)
	if err != nil {
		h.fail(w, "requisition transition", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) approvals(w http.ResponseWriter, r *http.Request) {
	history, err := h.orchestrator.History(r.Context(), pkParam(r))
	if err != nil {
		h.fail(w, "requisition approvals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": history})
}

func (h *Handler) print(w http.ResponseWriter, r *http.Request) {
	if h.printer == nil {
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	req, err := h.service.Get(r.Context(), pkParam(r))
	if err != nil {
		h.fail(w, "print requisition", err)
		return
	}
	pdf, err := h.printer.PrintRequisition(r.Context(), req)
	if err != nil {
		h.fail(w, "print requisition", remoteError("print", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", strings.ReplaceAll(req.PK, "#", "-")+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	art, err := h.service.Export(r.Context(), filter, format, time.Now())
	if err != nil {
		h.fail(w, "export requisitions", err)
		return
	}
	httpx.Attachment(w, art.ContentType, art.Filename, len(art.Body))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}

func (h *Handler) exportAsync(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, err := h.exports.EnqueueRequisitionExport(r.Context(), ExportRequest{UserID: actorID, Format: string(format), Filter: filter})
	if err != nil {
		h.fail(w, "enqueue requisition export", remoteError("enqueue", err))
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var in ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	it, err := h.service.AddItem(r.Context(), pkParam(r), in)
	if err != nil {
		h.fail(w, "create requisition item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, it)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var in ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	it, err := h.service.UpdateItem(r.Context(), pkParam(r), skParam(r), in)
	if err != nil {
		h.fail(w, "update requisition item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), pkParam(r), skParam(r)); err != nil {
		h.fail(w, "delete requisition item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	var re *RemoteError
	if errors.As(err, &re) {
		h.logger.Error(msg, slog.String("op", re.Op), slog.Any("error", re.Err))
	} else {
		h.logger.Warn(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pkParam(r *http.Request) string {
	raw := chi.URLParam(r, "pk")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return NormalizePK(raw)
}

func skParam(r *http.Request) string {
	raw := chi.URLParam(r, "sk")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "#") {
		raw = "ITEM#" + raw
	}
	return raw
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func parseFilter(q url.Values) (Filter, error) {
	f := Filter{
		City:       strings.TrimSpace(q.Get("city")),
		CostCenter: strings.TrimSpace(q.Get("cost_center")),
		Process:    strings.TrimSpace(q.Get("process")),
		Search:     strings.TrimSpace(q.Get("search")),
	}
	if f.Search == "" {
		f.Search = strings.TrimSpace(q.Get("q"))
	}
	if raw := q.Get("pending"); raw != "" {
		pending, err := strconv.ParseBool(raw)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: pending must be a boolean", ErrValidation)
		}
		f.PendingApproval = pending
	}
	for _, raw := range strings.Split(q.Get("status"), ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		s, err := ParseStatus(raw)
		if err != nil {
			return Filter{}, err
		}
		f.Statuses = append(f.Statuses, s)
	}
	var err error
	if f.CreatedFrom, err = parseDate(q.Get("from")); err != nil {
		return Filter{}, err
	}
	if f.CreatedTo, err = parseDate(q.Get("to")); err != nil {
		return Filter{}, err
	}
	if !f.CreatedTo.IsZero() {
		f.CreatedTo = f.CreatedTo.AddDate(0, 0, 1)
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = min(v, 500)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	return f, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dates use YYYY-MM-DD", ErrValidation)
	}
	return t, nil
}
