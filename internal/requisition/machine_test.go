package requisition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dagelec/dagelec-erp/internal/rbac"
)

func grants(actions ...rbac.Action) *rbac.Evaluator {
	entries := make([]rbac.Entry, 0, len(actions))
	for _, a := range actions {
		entries = append(entries, rbac.Entry{FormID: rbac.FormRequisition, Action: a})
	}
	return rbac.NewEvaluator(rbac.NewLoadedStore(entries), nil)
}

func TestValidateEveryStatusTriggerPair(t *testing.T) {
	m := DefaultMachine()
	perms := grants(rbac.ActionSend, rbac.ActionApprove)
	type key struct {
		from    Status
		trigger rbac.Action
	}
	legal := map[key][]Status{
		{StatusSaved, TriggerSend}:        {StatusInReview1},
		{StatusInReview1, TriggerApprove}: {StatusApproved, StatusRejected},
	}
	for _, from := range AllStatuses {
		for _, trigger := range []rbac.Action{TriggerSend, TriggerApprove} {
			targets, ok := legal[key{from, trigger}]
			if !ok {
				for _, outcome := range append([]Status{""}, AllStatuses...) {
					_, err := m.Validate(TransitionRequest{Current: from, Trigger: trigger, Outcome: outcome}, perms)
					require.ErrorIs(t, err, ErrIllegalTransition, "%s from %s -> %q", trigger, from, outcome)
				}
				continue
			}
			for _, target := range targets {
				got, err := m.Validate(TransitionRequest{Current: from, Trigger: trigger, Outcome: target}, perms)
				require.NoError(t, err)
				require.Equal(t, target, got)
			}
		}
	}
}

func TestValidateRequiresPermission(t *testing.T) {
	m := DefaultMachine()
	_, err := m.Validate(TransitionRequest{Current: StatusSaved, Trigger: TriggerSend}, grants(rbac.ActionApprove))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = m.Validate(TransitionRequest{Current: StatusInReview1, Trigger: TriggerApprove, Outcome: StatusApproved}, grants(rbac.ActionSend))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = m.Validate(TransitionRequest{Current: StatusSaved, Trigger: TriggerSend}, nil)
	require.ErrorIs(t, err, ErrForbidden)

	unloaded := rbac.NewEvaluator(rbac.NewStore(), nil)
	_, err = m.Validate(TransitionRequest{Current: StatusSaved, Trigger: TriggerSend}, unloaded)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestValidateApproveNeedsOutcome(t *testing.T) {
	m := DefaultMachine()
	_, err := m.Validate(TransitionRequest{Current: StatusInReview1, Trigger: TriggerApprove}, grants(rbac.ActionApprove))
	require.ErrorIs(t, err, ErrOutcomeRequired)

	_, err = m.Validate(TransitionRequest{Current: StatusInReview1, Trigger: TriggerApprove, Outcome: StatusSaved}, grants(rbac.ActionApprove))
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestValidateUnknownTrigger(t *testing.T) {
	_, err := DefaultMachine().Validate(TransitionRequest{Current: StatusSaved, Trigger: rbac.ActionDelete}, grants(rbac.ActionDelete))
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestScenarioSendThenSendAgain(t *testing.T) {
	m := DefaultMachine()
	perms := grants(rbac.ActionSend)
	next, err := m.Validate(TransitionRequest{Current: StatusSaved, Trigger: TriggerSend}, perms)
	require.NoError(t, err)
	require.Equal(t, StatusInReview1, next)

	_, err = m.Validate(TransitionRequest{Current: next, Trigger: TriggerSend}, perms)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestScenarioRejectedIsTerminal(t *testing.T) {
	m := DefaultMachine()
	perms := grants(rbac.ActionSend, rbac.ActionApprove)
	next, err := m.Validate(TransitionRequest{Current: StatusInReview1, Trigger: TriggerApprove, Outcome: StatusRejected}, perms)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, next)
	require.True(t, next.IsTerminal())

	_, err = m.Validate(TransitionRequest{Current: next, Trigger: TriggerApprove, Outcome: StatusApproved}, perms)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = m.Validate(TransitionRequest{Current: next, Trigger: TriggerSend}, perms)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestMachineIsDataDriven(t *testing.T) {
	rules := append(DefaultRules[:1:1],
		Rule{From: StatusInReview1, Trigger: TriggerApprove, Permission: rbac.ActionApprove, Targets: []Status{StatusInReview2, StatusRejected}},
		Rule{From: StatusInReview2, Trigger: TriggerApprove, Permission: rbac.ActionApprove, Targets: []Status{StatusInApproval, StatusRejected}},
		Rule{From: StatusInApproval, Trigger: TriggerApprove, Permission: rbac.ActionApprove, Targets: []Status{StatusApproved, StatusRejected}},
	)
	m := NewMachine(rbac.FormRequisition, rules)
	perms := grants(rbac.ActionApprove)

	next, err := m.Validate(TransitionRequest{Current: StatusInReview1, Trigger: TriggerApprove, Outcome: StatusInReview2}, perms)
	require.NoError(t, err)
	require.Equal(t, StatusInReview2, next)

	next, err = m.Validate(TransitionRequest{Current: StatusInApproval, Trigger: TriggerApprove, Outcome: StatusApproved}, perms)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, next)

	require.Len(t, DefaultMachine().Rules(), 2)
}

func TestAvailable(t *testing.T) {
	m := DefaultMachine()
	require.Equal(t, []rbac.Action{TriggerSend}, m.Available(StatusSaved))
	require.Equal(t, []rbac.Action{TriggerApprove}, m.Available(StatusInReview1))
	require.Empty(t, m.Available(StatusApproved))
}

func TestHeaderAndItemsEditableOnlyWhenSaved(t *testing.T) {
	for _, s := range AllStatuses {
		require.Equal(t, s == StatusSaved, CanEditHeader(s), s)
		require.Equal(t, s == StatusSaved, CanManageItems(s), s)
	}
}

func TestPKHelpers(t *testing.T) {
	require.Equal(t, "REQUISITION#001", FormatPK(1))
	require.Equal(t, "REQUISITION#1234", FormatPK(1234))
	require.Equal(t, "REQUISITION#007", NormalizePK("007"))
	require.Equal(t, "REQUISITION#007", NormalizePK("REQUISITION#007"))
}
