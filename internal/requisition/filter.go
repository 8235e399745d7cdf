package requisition

import (
	"slices"
	"strings"
	"time"

	"github.com/dagelec/dagelec-erp/internal/rbac"
)

// Filter narrows a requisition list. Zero values match everything.
type Filter struct {
	Statuses        []Status  `json:"statuses,omitempty"`
	PendingApproval bool      `json:"pending_approval,omitempty"`
	City            string    `json:"city,omitempty"`
	CostCenter      string    `json:"cost_center,omitempty"`
	Process         string    `json:"process,omitempty"`
	CreatedFrom     time.Time `json:"created_from,omitempty"`
	CreatedTo       time.Time `json:"created_to,omitempty"`
	Search          string    `json:"search,omitempty"`
	Limit           int       `json:"limit,omitempty"`
	Offset          int       `json:"offset,omitempty"`
}

// Mode maps the filter onto the row-action context.
func (f Filter) Mode() rbac.ContextMode {
	if f.PendingApproval {
		return rbac.ModePendingApproval
	}
	return rbac.ModeNormal
}

// Matches reports whether r belongs in a list built with f.
func (f Filter) Matches(r Requisition) bool {
	if f.PendingApproval && !r.Status.IsPendingApproval() {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	if f.City != "" && !strings.EqualFold(strings.TrimSpace(f.City), r.City) {
		return false
	}
	if f.CostCenter != "" && !strings.EqualFold(strings.TrimSpace(f.CostCenter), r.CostCenter) {
		return false
	}
	if f.Process != "" && !strings.EqualFold(strings.TrimSpace(f.Process), r.Process) {
		return false
	}
	if !f.CreatedFrom.IsZero() && r.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && !r.CreatedAt.Before(f.CreatedTo) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		haystack := strings.ToLower(strings.Join([]string{r.PK, r.City, r.Process, r.DeliveryPlace, r.CostCenter, r.Observations}, " "))
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}

// RowActions computes the row-level actions the actor sees for r in a list
// built with f. Transition triggers are only offered when they apply to the
// requisition's current status. UPDATE is offered while the header is
// editable and MANAGE while items may change.
func RowActions(ev *rbac.Evaluator, m *Machine, f Filter, r Requisition) []rbac.Action {
	available := m.Available(r.Status)
	out := []rbac.Action{}
	for _, action := range ev.RowActionsIn(rbac.FormRequisition, f.Mode()) {
		switch {
		case m.Handles(action) && !slices.Contains(available, action):
			continue
		case action == rbac.ActionUpdate && !CanEditHeader(r.Status):
			continue
		case action == rbac.ActionManage && !CanManageItems(r.Status):
			continue
		}
		out = append(out, action)
	}
	return out
}
