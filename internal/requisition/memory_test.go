package requisition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

type memoryGateway struct {
	mu        sync.Mutex
	seq       int64
	items     map[string]Requisition
	changeErr error
	changeCtx []error
}

func newMemoryGateway() *memoryGateway {
	return &memoryGateway{items: map[string]Requisition{}}
}

func (m *memoryGateway) put(r Requisition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[r.PK] = r
}

func (m *memoryGateway) Query(_ context.Context, f Filter) ([]Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Requisition{}
	for _, r := range m.items {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryGateway) Get(_ context.Context, pk string) (Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[pk]
	if !ok {
		return Requisition{}, ErrNotFound
	}
	return r, nil
}

func (m *memoryGateway) Create(_ context.Context, createdBy int64, h Header) (Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r := Requisition{
		PK: FormatPK(m.seq), City: h.City, Process: h.Process, DeliveryPlace: h.DeliveryPlace,
		CostCenter: h.CostCenter, Observations: h.Observations, Checker1: h.Checker1, Checker2: h.Checker2,
		Approver: h.Approver, Status: StatusSaved, CreatedBy: createdBy, CreatedAt: time.Now(), Items: []Item{},
	}
	m.items[r.PK] = r
	return r, nil
}

func (m *memoryGateway) Update(_ context.Context, pk string, h Header) (Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[pk]
	if !ok {
		return Requisition{}, ErrNotFound
	}
	if r.Status != StatusSaved {
		return Requisition{}, ErrReadOnly
	}
	r.City, r.Process, r.CostCenter = h.City, h.Process, h.CostCenter
	m.items[pk] = r
	return r, nil
}

func (m *memoryGateway) ChangeStatus(ctx context.Context, change StatusChange) (Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeCtx = append(m.changeCtx, ctx.Err())
	if m.changeErr != nil {
		return Requisition{}, m.changeErr
	}
	r, ok := m.items[change.PK]
	if !ok {
		return Requisition{}, ErrNotFound
	}
	if r.Status != change.From {
		return Requisition{}, ErrStale
	}
	r.Status = change.To
	if change.Observations != "" {
		r.Observations = change.Observations
	}
	m.items[change.PK] = r
	return r, nil
}

func (m *memoryGateway) SetAttachment(_ context.Context, pk, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[pk]
	if !ok {
		return ErrNotFound
	}
	r.Attachment = key
	m.items[pk] = r
	return nil
}

func (m *memoryGateway) CreateItem(_ context.Context, pk string, in ItemInput) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[pk]
	if !ok {
		return Item{}, ErrNotFound
	}
	it := Item{PK: pk, SK: "ITEM#" + uuid.NewString(), IngredientID: in.IngredientID, GrossCost: in.GrossCost, Quantity: in.Quantity}
	it = it.Priced()
	r.Items = append(r.Items, it)
	m.items[pk] = r
	return it, nil
}

func (m *memoryGateway) UpdateItem(_ context.Context, pk, sk string, in ItemInput) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[pk]
	if !ok {
		return Item{}, ErrNotFound
	}
	for i, it := range r.Items {
		if it.SK == sk {
			it.GrossCost, it.Quantity = in.GrossCost, in.Quantity
			r.Items[i] = it.Priced()
			return r.Items[i], nil
		}
	}
	return Item{}, ErrNotFound
}

func (m *memoryGateway) DeleteItem(_ context.Context, pk, sk string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[pk]
	if !ok {
		return ErrNotFound
	}
	for i, it := range r.Items {
		if it.SK == sk {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			m.items[pk] = r
			return nil
		}
	}
	return ErrNotFound
}

type memoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memoryLocker) Acquire(_ context.Context, key string) (func(context.Context), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, shared.ErrLockHeld
	}
	l.held[key] = true
	return func(context.Context) {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type memoryApprovals struct {
	mu   sync.Mutex
	logs []shared.ApprovalLog
	err  error
}

func (a *memoryApprovals) Record(_ context.Context, log shared.ApprovalLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}

func (a *memoryApprovals) List(_ context.Context, module, ref string) ([]shared.ApprovalLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []shared.ApprovalLog{}
	for _, l := range a.logs {
		if l.Module == module && l.Ref == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []Requisition
}

func (p *recordingPublisher) PublishRequisition(_ context.Context, r Requisition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, r)
}

type failingNotifier struct{}

func (failingNotifier) RequisitionTransitioned(context.Context, Requisition, rbac.Action, int64) error {
	return fmt.Errorf("smtp down")
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveTransition(trigger, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[trigger+"/"+result]++
}
