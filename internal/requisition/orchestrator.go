package requisition

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

// ApprovalModule names requisitions in the approval log.
const ApprovalModule = "requisition"

// Locker guards a key against concurrent holders.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(context.Context), error)
}

// ApprovalStore persists transition history.
type ApprovalStore interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref string) ([]shared.ApprovalLog, error)
}

// Publisher notifies open list views of an authoritative requisition snapshot.
type Publisher interface {
	PublishRequisition(ctx context.Context, r Requisition)
}

// TransitionObserver counts transition attempts by trigger and result.
type TransitionObserver interface {
	ObserveTransition(trigger, result string)
}

// Notifier is told about completed transitions, typically to enqueue mail.
type Notifier interface {
	RequisitionTransitioned(ctx context.Context, r Requisition, trigger rbac.Action, actorID int64) error
}

// TransitionPayload carries the user input of a transition.
type TransitionPayload struct {
	Outcome      Status `json:"outcome"`
	Observations string `json:"observations" validate:"max=2000"`
}

// Result is a completed operation together with degraded secondary outcomes.
type Result struct {
	Requisition Requisition `json:"requisition"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// Warning messages for secondary failures.
const (
	WarnHistoryNotRecorded = "Estado actualizado pero no se registró el historial"
	WarnNotifyFailed       = "Estado actualizado pero no se pudo enviar la notificación"
)

// Orchestrator runs requisition transitions end to end.
type Orchestrator struct {
	machine   *Machine
	gateway   Gateway
	locks     Locker
	approvals ApprovalStore
	publisher Publisher
	notifier  Notifier
	observer  TransitionObserver
	logger    *slog.Logger
	timeout   time.Duration
}

// OrchestratorOption customises an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithApprovals records every successful transition.
func WithApprovals(store ApprovalStore) OrchestratorOption {
	return func(o *Orchestrator) { o.approvals = store }
}

// WithPublisher signals list views after each transition.
func WithPublisher(p Publisher) OrchestratorOption {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithNotifier hands completed transitions to n.
func WithNotifier(n Notifier) OrchestratorOption {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithObserver reports transition outcomes to obs.
func WithObserver(obs TransitionObserver) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithTimeout bounds the remote call of a transition.
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timeout = d }
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(machine *Machine, gateway Gateway, locks Locker, logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	if machine == nil {
		machine = DefaultMachine()
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{machine: machine, gateway: gateway, locks: locks, logger: logger, timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Machine exposes the transition table in use.
func (o *Orchestrator) Machine() *Machine {
	return o.machine
}

// RequestTransition validates and applies trigger on the requisition pk.
// Validation failures return before any write. The remote write is not
// cancelled when ctx is; it runs to completion under its own deadline.
func (o *Orchestrator) RequestTransition(ctx context.Context, actor Actor, pk string, trigger rbac.Action, payload TransitionPayload) (Result, error) {
	result, err := o.requestTransition(ctx, actor, pk, trigger, payload)
	o.observe(trigger, err)
	return result, err
}

func (o *Orchestrator) requestTransition(ctx context.Context, actor Actor, pk string, trigger rbac.Action, payload TransitionPayload) (Result, error) {
	payload.Observations = strings.TrimSpace(payload.Observations)
	current, err := o.gateway.Get(ctx, pk)
	if err != nil {
		return Result{}, remoteError("get", err)
	}
	target, err := o.machine.Validate(TransitionRequest{Current: current.Status, Trigger: trigger, Outcome: payload.Outcome}, actor.Permissions)
	if err != nil {
		return Result{}, err
	}

	if o.locks != nil {
		release, err := o.locks.Acquire(ctx, shared.RequisitionLockKey(pk))
		if err != nil {
			if errors.Is(err, shared.ErrLockHeld) {
				return Result{}, ErrInFlight
			}
			return Result{}, remoteError("lock", err)
		}
		defer release(context.WithoutCancel(ctx))
	}

	callCtx := context.WithoutCancel(ctx)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, o.timeout)
		defer cancel()
	}
	updated, err := o.gateway.ChangeStatus(callCtx, StatusChange{PK: pk, From: current.Status, To: target, Observations: payload.Observations})
	if err != nil {
		o.logger.Warn("requisition transition failed",
			slog.String("pk", pk), slog.String("trigger", string(trigger)), slog.Any("error", err))
		return Result{}, remoteError("change_status", err)
	}

	result := Result{Requisition: updated}
	if o.approvals != nil {
		entry := shared.ApprovalLog{
			Module:  ApprovalModule,
			Ref:     pk,
			ActorID: actor.ID,
			Action:  approvalAction(trigger, target),
			Status:  string(target),
			Note:    payload.Observations,
		}
		if err := o.approvals.Record(callCtx, entry); err != nil {
			o.logger.Warn("requisition approval log failed", slog.String("pk", pk), slog.Any("error", err))
			result.Warnings = append(result.Warnings, WarnHistoryNotRecorded)
		}
	}
	if o.notifier != nil {
		if err := o.notifier.RequisitionTransitioned(callCtx, updated, trigger, actor.ID); err != nil {
			o.logger.Warn("requisition notify failed", slog.String("pk", pk), slog.Any("error", err))
			result.Warnings = append(result.Warnings, WarnNotifyFailed)
		}
	}
	if o.publisher != nil {
		o.publisher.PublishRequisition(callCtx, updated)
	}
	o.logger.Info("requisition transitioned",
		slog.String("pk", pk), slog.String("from", string(current.Status)), slog.String("to", string(target)), slog.Int64("actor", actor.ID))
	return result, nil
}

// History returns the recorded transitions of pk, oldest first.
func (o *Orchestrator) History(ctx context.Context, pk string) ([]shared.ApprovalLog, error) {
	if o.approvals == nil {
		return []shared.ApprovalLog{}, nil
	}
	return o.approvals.List(ctx, ApprovalModule, pk)
}

func (o *Orchestrator) observe(trigger rbac.Action, err error) {
	if o.observer == nil {
		return
	}
	o.observer.ObserveTransition(string(trigger), resultLabel(err))
}

func resultLabel(err error) string {
	var re *RemoteError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInFlight):
		return "in_flight"
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrOutcomeRequired):
		return "invalid"
	case errors.As(err, &re):
		return "remote_error"
	default:
		return "error"
	}
}

func approvalAction(trigger rbac.Action, target Status) shared.ApprovalAction {
	switch {
	case trigger == TriggerSend:
		return shared.ApprovalSend
	case target == StatusRejected:
		return shared.ApprovalReject
	default:
		return shared.ApprovalApprove
	}
}
