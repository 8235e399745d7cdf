package rbac

import (
	"fmt"
	"strings"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
)

// Action is a verb a user may perform on a form.
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionSearch  Action = "SEARCH"
	ActionInform  Action = "INFORM"
	ActionUpdate  Action = "UPDATE"
	ActionManage  Action = "MANAGE"
	ActionSend    Action = "SEND"
	ActionApprove Action = "APPROVE"
	ActionDelete  Action = "DELETE"
	ActionPrint   Action = "PRINT"
)

// Form identifiers known to the application.
const (
	FormClient      = "CLIENT"
	FormVendor      = "VENDOR"
	FormPersonnel   = "PERSONNEL"
	FormIngredient  = "INGREDIENT"
	FormInventory   = "INVENTORY"
	FormRequisition = "REQUISITION"
)

// Entry grants one action on one form.
type Entry struct {
	FormID string `json:"form_id"`
	Action Action `json:"action"`
}

// MenuEntry is one navigable form in the user's menu.
type MenuEntry struct {
	FormID      string `json:"form_id"`
	Category    string `json:"category"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// MenuGroup holds consecutive menu entries sharing a category.
type MenuGroup struct {
	Category string      `json:"category"`
	Entries  []MenuEntry `json:"entries"`
}

// ContextMode selects which row actions a list view exposes.
type ContextMode string

const (
	ModeNormal          ContextMode = "normal"
	ModePendingApproval ContextMode = "pending"
)

var (
	// ErrUnknownAction indicates an action outside the known set.
	ErrUnknownAction = fmt.Errorf("rbac: unknown action: %w", httpx.ErrValidation)
	// ErrPermissionsUnavailable indicates the permission matrix could not be loaded.
	ErrPermissionsUnavailable = fmt.Errorf("rbac: permissions unavailable: %w", httpx.ErrUnavailable)
)

var knownActions = map[Action]struct{}{
	ActionCreate: {}, ActionSearch: {}, ActionInform: {}, ActionUpdate: {}, ActionManage: {},
	ActionSend: {}, ActionApprove: {}, ActionDelete: {}, ActionPrint: {},
}

// ParseAction normalises raw into a known Action.
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownActions[a]; !ok {
		return "", ErrUnknownAction
	}
	return a, nil
}

// IsPageLevel reports whether the action belongs to the page rather than a row.
func (a Action) IsPageLevel() bool {
	return a == ActionCreate || a == ActionSearch || a == ActionInform
}

// ParseContextMode maps a query value to a ContextMode, defaulting to normal.
func ParseContextMode(raw string) ContextMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModePendingApproval)) {
		return ModePendingApproval
	}
	return ModeNormal
}
