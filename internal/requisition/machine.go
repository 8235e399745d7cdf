package requisition

import (
	"fmt"
	"slices"

	"github.com/dagelec/dagelec-erp/internal/rbac"
)

// Rule is one row of the transition table. A rule with several targets
// requires the caller to choose an outcome.
type Rule struct {
	From       Status
	Trigger    rbac.Action
	Permission rbac.Action
	Targets    []Status
}

// DefaultRules is the transition table in force. Adding a second review step
// means adding rows here.
var DefaultRules = []Rule{
	{From: StatusSaved, Trigger: TriggerSend, Permission: rbac.ActionSend, Targets: []Status{StatusInReview1}},
	{From: StatusInReview1, Trigger: TriggerApprove, Permission: rbac.ActionApprove, Targets: []Status{StatusApproved, StatusRejected}},
}

// Machine validates requisition transitions against a rule table.
type Machine struct {
	formID string
	rules  []Rule
}

// NewMachine builds a Machine over rules. Permissions are checked on formID.
func NewMachine(formID string, rules []Rule) *Machine {
	return &Machine{formID: formID, rules: slices.Clone(rules)}
}

// DefaultMachine returns the machine for the REQUISITION form with DefaultRules.
func DefaultMachine() *Machine {
	return NewMachine(rbac.FormRequisition, DefaultRules)
}

// Rules returns a copy of the table.
func (m *Machine) Rules() []Rule {
	return slices.Clone(m.rules)
}

// TransitionRequest describes an attempted transition.
type TransitionRequest struct {
	Current Status
	Trigger rbac.Action
	Outcome Status
}

// Validate returns the resulting status of req, or an error when the actor
// lacks the permission (ErrForbidden), the trigger does not apply to the
// current status (ErrIllegalTransition) or an outcome is missing
// (ErrOutcomeRequired). It never touches the network.
func (m *Machine) Validate(req TransitionRequest, perms Authorizer) (Status, error) {
	permission, known := m.permissionFor(req.Trigger)
	if !known {
		return "", fmt.Errorf("%w: unknown trigger %q", ErrIllegalTransition, req.Trigger)
	}
	if perms == nil || !perms.HasPermission(m.formID, permission) {
		return "", fmt.Errorf("%w: %s on %s", ErrForbidden, permission, m.formID)
	}
	rule, ok := m.find(req.Current, req.Trigger)
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", ErrIllegalTransition, req.Trigger, req.Current)
	}
	if len(rule.Targets) == 1 {
		if req.Outcome != "" && req.Outcome != rule.Targets[0] {
			return "", fmt.Errorf("%w: %s cannot lead to %s", ErrIllegalTransition, req.Trigger, req.Outcome)
		}
		return rule.Targets[0], nil
	}
	if req.Outcome == "" {
		return "", ErrOutcomeRequired
	}
	if !slices.Contains(rule.Targets, req.Outcome) {
		return "", fmt.Errorf("%w: %s cannot lead to %s", ErrIllegalTransition, req.Trigger, req.Outcome)
	}
	return req.Outcome, nil
}

// Available lists the triggers that apply to status, regardless of permissions.
func (m *Machine) Available(status Status) []rbac.Action {
	out := []rbac.Action{}
	for _, r := range m.rules {
		if r.From == status && !slices.Contains(out, r.Trigger) {
			out = append(out, r.Trigger)
		}
	}
	return out
}

// Handles reports whether trigger is a transition trigger of this machine.
func (m *Machine) Handles(trigger rbac.Action) bool {
	_, ok := m.permissionFor(trigger)
	return ok
}

func (m *Machine) find(from Status, trigger rbac.Action) (Rule, bool) {
	for _, r := range m.rules {
		if r.From == from && r.Trigger == trigger {
			return r, true
		}
	}
	return Rule{}, false
}

func (m *Machine) permissionFor(trigger rbac.Action) (rbac.Action, bool) {
	for _, r := range m.rules {
		if r.Trigger == trigger {
			return r.Permission, true
		}
	}
	return "", false
}
