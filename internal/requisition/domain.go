package requisition

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
	"github.com/dagelec/dagelec-erp/internal/rbac"
)

// Status is the lifecycle state of a requisition.
type Status string

const (
	StatusSaved      Status = "Guardada"
	StatusInReview1  Status = "EnRevisión1"
	StatusInReview2  Status = "EnRevisión2"
	StatusInApproval Status = "EnAprobación"
	StatusApproved   Status = "Aprobada"
	StatusRejected   Status = "Rechazada"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusSaved, StatusInReview1, StatusInReview2, StatusInApproval, StatusApproved, StatusRejected}

// ParseStatus matches raw against the known statuses.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range AllStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsPendingApproval reports whether s is a review or approval step awaiting a decision.
func (s Status) IsPendingApproval() bool {
	return s == StatusInReview1 || s == StatusInReview2 || s == StatusInApproval
}

// Transition triggers reuse the permission actions that gate them.
const (
	TriggerSend    = rbac.ActionSend
	TriggerApprove = rbac.ActionApprove
)

// Requisition is one purchase request.
type Requisition struct {
	PK            string    `json:"pk"`
	City          string    `json:"city"`
	Process       string    `json:"process"`
	DeliveryPlace string    `json:"delivery_place"`
	CostCenter    string    `json:"cost_center"`
	Observations  string    `json:"observations"`
	Checker1      string    `json:"checker1"`
	Checker2      string    `json:"checker2,omitempty"`
	Approver      string    `json:"approver"`
	Status        Status    `json:"status"`
	Attachment    string    `json:"attachment,omitempty"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Items         []Item    `json:"items,omitempty"`
}

// Item is a requisition line. UnitPrice and Total are derived, never stored.
type Item struct {
	PK              string          `json:"pk"`
	SK              string          `json:"sk"`
	IngredientID    int64           `json:"ingredient_id"`
	IngredientName  string          `json:"ingredient_name"`
	Unit            string          `json:"unit"`
	ReferenceWeight decimal.Decimal `json:"reference_weight"`
	GrossCost       decimal.Decimal `json:"gross_cost"`
	Quantity        decimal.Decimal `json:"quantity"`
	Brand           string          `json:"brand"`
	Presentation    string          `json:"presentation"`
	RequiredDate    time.Time       `json:"required_date"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Total           decimal.Decimal `json:"total"`
}

// Header holds the editable requisition fields.
type Header struct {
	City          string `json:"city" validate:"required,max=120"`
	Process       string `json:"process" validate:"required,max=120"`
	DeliveryPlace string `json:"delivery_place" validate:"required,max=200"`
	CostCenter    string `json:"cost_center" validate:"required,max=60"`
	Observations  string `json:"observations" validate:"max=2000"`
	Checker1      string `json:"checker1" validate:"required,max=120"`
	Checker2      string `json:"checker2" validate:"max=120"`
	Approver      string `json:"approver" validate:"required,max=120"`
}

// ItemInput holds the editable item fields.
type ItemInput struct {
	IngredientID int64           `json:"ingredient_id" validate:"required,gt=0"`
	GrossCost    decimal.Decimal `json:"gross_cost"`
	Quantity     decimal.Decimal `json:"quantity"`
	Brand        string          `json:"brand" validate:"max=120"`
	Presentation string          `json:"presentation" validate:"max=120"`
	RequiredDate time.Time       `json:"required_date" validate:"required"`
}

// StatusChange is the payload persisted for a transition.
type StatusChange struct {
	PK           string
	From         Status
	To           Status
	Observations string
}

// Actor is the user requesting an operation together with their grants.
type Actor struct {
	ID          int64
	Permissions Authorizer
}

// Authorizer answers permission questions for one actor.
type Authorizer interface {
	HasPermission(formID string, action rbac.Action) bool
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("requisition: not found: %w", httpx.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("requisition: invalid input: %w", httpx.ErrValidation)
	// ErrReadOnly is returned when editing a requisition that left Guardada.
	ErrReadOnly = fmt.Errorf("requisition: read only once sent: %w", httpx.ErrConflict)
	// ErrIllegalTransition is returned for a trigger not allowed from the current status.
	ErrIllegalTransition = fmt.Errorf("requisition: illegal transition: %w", httpx.ErrUnprocessable)
	// ErrOutcomeRequired is returned when APPROVE is requested without an outcome.
	ErrOutcomeRequired = fmt.Errorf("requisition: outcome required: %w", httpx.ErrValidation)
	// ErrForbidden is returned when the actor lacks the permission for an operation.
	ErrForbidden = fmt.Errorf("requisition: forbidden: %w", httpx.ErrForbidden)
	// ErrInFlight is returned while another transition on the same requisition runs.
	ErrInFlight = fmt.Errorf("requisition: transition in progress: %w", httpx.ErrConflict)
	// ErrStale is returned when the stored status changed underneath a transition.
	ErrStale = fmt.Errorf("requisition: status changed concurrently: %w", httpx.ErrConflict)
)

// GenericRemoteMessage is shown when the remote failure carries no message of its own.
const GenericRemoteMessage = "Algo salió mal, intenta nuevamente"

// RemoteError wraps a failure of the persistence collaborator.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericRemoteMessage
}

// Unwrap exposes the cause and classifies the error as an upstream failure.
func (e *RemoteError) Unwrap() []error {
	return []error{e.Err, httpx.ErrUpstream}
}

// Retryable reports whether offering a retry makes sense. A message supplied by
// the collaborator is a deliberate rejection; anything else is a transport or
// server fault.
func (e *RemoteError) Retryable() bool {
	return e.Message == ""
}

// MessageCarrier is implemented by collaborator errors that hold a user-facing message.
type MessageCarrier interface {
	UserMessage() string
}

func remoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) || isDomainError(err) {
		return err
	}
	msg := ""
	var mc MessageCarrier
	if errors.As(err, &mc) {
		msg = mc.UserMessage()
	}
	return &RemoteError{Op: op, Message: msg, Err: err}
}

func isDomainError(err error) bool {
	for _, target := range []error{ErrNotFound, ErrValidation, ErrReadOnly, ErrIllegalTransition, ErrForbidden, ErrStale} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// CanEditHeader reports whether header fields may change in status.
func CanEditHeader(status Status) bool {
	return status == StatusSaved
}

// CanManageItems reports whether items may be added, edited or removed in status.
func CanManageItems(status Status) bool {
	return status == StatusSaved
}

// FormatPK renders the primary key of the n-th requisition.
func FormatPK(n int64) string {
	return fmt.Sprintf("%s#%03d", rbac.FormRequisition, n)
}

// NormalizePK accepts either a full key or its numeric suffix.
func NormalizePK(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "#") {
		return raw
	}
	return rbac.FormRequisition + "#" + raw
}
