package requisition

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dagelec/dagelec-erp/internal/export"
	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

// ObjectStore keeps binary attachments.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Upload is a file received with a requisition.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// WarnUploadFailed is reported when the requisition saved but its file did not.
const WarnUploadFailed = "Requisición guardada pero falló la carga del archivo"

// Row is a list entry decorated with what the viewer may do with it.
type Row struct {
	Requisition
	Actions       []rbac.Action `json:"actions"`
	Editable      bool          `json:"editable"`
	ItemsEditable bool          `json:"items_editable"`
}

// Service implements requisition CRUD around a Gateway.
type Service struct {
	gateway   Gateway
	machine   *Machine
	storage   ObjectStore
	publisher Publisher
	audit     AuditPort
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService constructs Service. storage, publisher and audit may be nil.
func NewService(gateway Gateway, machine *Machine, storage ObjectStore, publisher Publisher, audit AuditPort, logger *slog.Logger) *Service {
	if machine == nil {
		machine = DefaultMachine()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway:   gateway,
		machine:   machine,
		storage:   storage,
		publisher: publisher,
		audit:     audit,
		validate:  validator.New(),
		logger:    logger,
	}
}

// List returns requisitions matching f decorated for the viewer.
func (s *Service) List(ctx context.Context, ev *rbac.Evaluator, f Filter) ([]Row, error) {
	items, err := s.gateway.Query(ctx, f)
	if err != nil {
		return nil, remoteError("query", err)
	}
	rows := make([]Row, 0, len(items))
	for _, r := range items {
		rows = append(rows, s.Decorate(ev, f, r))
	}
	return rows, nil
}

// Export renders every requisition matching f, ignoring pagination.
func (s *Service) Export(ctx context.Context, f Filter, format export.Format, now time.Time) (export.Artifact, error) {
	f.Limit, f.Offset = 0, 0
	items, err := s.gateway.Query(ctx, f)
	if err != nil {
		return export.Artifact{}, remoteError("query", err)
	}
	return export.Render(ExportTable(items), format, now)
}

// Decorate attaches viewer-specific flags to r.
func (s *Service) Decorate(ev *rbac.Evaluator, f Filter, r Requisition) Row {
	return Row{
		Requisition:   r,
		Actions:       RowActions(ev, s.machine, f, r),
		Editable:      CanEditHeader(r.Status),
		ItemsEditable: CanManageItems(r.Status),
	}
}

// Get returns one requisition with its items.
func (s *Service) Get(ctx context.Context, pk string) (Requisition, error) {
	r, err := s.gateway.Get(ctx, pk)
	if err != nil {
		return Requisition{}, remoteError("get", err)
	}
	return r, nil
}

// Create stores a new requisition. A failed attachment upload does not undo
// the requisition; it is reported as a warning.
func (s *Service) Create(ctx context.Context, actorID int64, h Header, file *Upload) (Result, error) {
	h = h.trimmed()
	if err := s.validate.Struct(h); err != nil {
		return Result{}, err
	}
	created, err := s.gateway.Create(ctx, actorID, h)
	if err != nil {
		return Result{}, remoteError("create", err)
	}
	result := Result{Requisition: created}
	if file != nil {
		updated, err := s.attach(ctx, created, file)
		if err != nil {
			s.logger.Warn("requisition attachment failed", slog.String("pk", created.PK), slog.Any("error", err))
			result.Warnings = append(result.Warnings, WarnUploadFailed)
		} else {
			result.Requisition = updated
		}
	}
	s.recordAudit(ctx, actorID, "REQUISITION_CREATE", created.PK, map[string]any{"city": h.City})
	s.publish(ctx, result.Requisition)
	return result, nil
}

// Update rewrites the header of a Guardada requisition.
func (s *Service) Update(ctx context.Context, actorID int64, pk string, h Header) (Requisition, error) {
	h = h.trimmed()
	if err := s.validate.Struct(h); err != nil {
		return Requisition{}, err
	}
	current, err := s.Get(ctx, pk)
	if err != nil {
		return Requisition{}, err
	}
	if !CanEditHeader(current.Status) {
		return Requisition{}, ErrReadOnly
	}
	updated, err := s.gateway.Update(ctx, pk, h)
	if err != nil {
		return Requisition{}, remoteError("update", err)
	}
	s.recordAudit(ctx, actorID, "REQUISITION_UPDATE", pk, nil)
	s.publish(ctx, updated)
	return updated, nil
}

// Attach uploads a file for an existing requisition.
func (s *Service) Attach(ctx context.Context, pk string, file *Upload) (Requisition, error) {
	current, err := s.Get(ctx, pk)
	if err != nil {
		return Requisition{}, err
	}
	if !CanEditHeader(current.Status) {
		return Requisition{}, ErrReadOnly
	}
	updated, err := s.attach(ctx, current, file)
	if err != nil {
		return Requisition{}, remoteError("attach", err)
	}
	s.publish(ctx, updated)
	return updated, nil
}

// AttachmentURL returns a short-lived download link for the attachment of pk.
func (s *Service) AttachmentURL(ctx context.Context, pk string) (string, error) {
	current, err := s.Get(ctx, pk)
	if err != nil {
		return "", err
	}
	if current.Attachment == "" || s.storage == nil {
		return "", ErrNotFound
	}
	url, err := s.storage.PresignGet(ctx, current.Attachment)
	if err != nil {
		return "", remoteError("presign", err)
	}
	return url, nil
}

// AddItem appends a line while the requisition accepts item changes.
func (s *Service) AddItem(ctx context.Context, pk string, in ItemInput) (Item, error) {
	if err := s.checkItem(in); err != nil {
		return Item{}, err
	}
	if err := s.ensureItemsEditable(ctx, pk); err != nil {
		return Item{}, err
	}
	it, err := s.gateway.CreateItem(ctx, pk, in)
	if err != nil {
		return Item{}, remoteError("create_item", err)
	}
	s.refresh(ctx, pk)
	return it, nil
}

// UpdateItem rewrites a line while the requisition accepts item changes.
func (s *Service) UpdateItem(ctx context.Context, pk, sk string, in ItemInput) (Item, error) {
	if err := s.checkItem(in); err != nil {
		return Item{}, err
	}
	if err := s.ensureItemsEditable(ctx, pk); err != nil {
		return Item{}, err
	}
	it, err := s.gateway.UpdateItem(ctx, pk, sk, in)
	if err != nil {
		return Item{}, remoteError("update_item", err)
	}
	s.refresh(ctx, pk)
	return it, nil
}

// DeleteItem removes a line while the requisition accepts item changes.
func (s *Service) DeleteItem(ctx context.Context, pk, sk string) error {
	if err := s.ensureItemsEditable(ctx, pk); err != nil {
		return err
	}
	if err := s.gateway.DeleteItem(ctx, pk, sk); err != nil {
		return remoteError("delete_item", err)
	}
	s.refresh(ctx, pk)
	return nil
}

func (s *Service) checkItem(in ItemInput) error {
	if err := s.validate.Struct(in); err != nil {
		return err
	}
	if in.GrossCost.IsNegative() {
		return fmt.Errorf("%w: gross cost must not be negative", ErrValidation)
	}
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	return nil
}

func (s *Service) ensureItemsEditable(ctx context.Context, pk string) error {
	current, err := s.Get(ctx, pk)
	if err != nil {
		return err
	}
	if !CanManageItems(current.Status) {
		return ErrReadOnly
	}
	return nil
}

func (s *Service) attach(ctx context.Context, r Requisition, file *Upload) (Requisition, error) {
	if s.storage == nil {
		return Requisition{}, fmt.Errorf("requisition: attachment storage not configured")
	}
	key := attachmentKey(r.PK, file.Name)
	if err := s.storage.Put(ctx, key, file.Body, file.Size, file.ContentType); err != nil {
		return Requisition{}, err
	}
	if err := s.gateway.SetAttachment(ctx, r.PK, key); err != nil {
		return Requisition{}, err
	}
	r.Attachment = key
	return r, nil
}

func (s *Service) refresh(ctx context.Context, pk string) {
	if s.publisher == nil {
		return
	}
	r, err := s.gateway.Get(ctx, pk)
	if err != nil {
		s.logger.Warn("requisition refresh failed", slog.String("pk", pk), slog.Any("error", err))
		return
	}
	s.publish(ctx, r)
}

func (s *Service) publish(ctx context.Context, r Requisition) {
	if s.publisher != nil {
		s.publisher.PublishRequisition(ctx, r)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, pk string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "requisition", EntityID: pk, Meta: meta}); err != nil {
		s.logger.Warn("requisition audit failed", slog.String("pk", pk), slog.Any("error", err))
	}
}

func attachmentKey(pk, name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "adjunto"
	}
	return "requisitions/" + strings.ReplaceAll(pk, "#", "-") + "/" + base
}

func (h Header) trimmed() Header {
	h.City = strings.TrimSpace(h.City)
	h.Process = strings.TrimSpace(h.Process)
	h.DeliveryPlace = strings.TrimSpace(h.DeliveryPlace)
	h.CostCenter = strings.TrimSpace(h.CostCenter)
	h.Observations = strings.TrimSpace(h.Observations)
	h.Checker1 = strings.TrimSpace(h.Checker1)
	h.Checker2 = strings.TrimSpace(h.Checker2)
	h.Approver = strings.TrimSpace(h.Approver)
	return h
}
