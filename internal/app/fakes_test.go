package app

import (
	"context"
	"sync"
	"time"

	"github.com/cmirandac/gatepass/internal/domain"
	"github.com/cmirandac/gatepass/internal/queue"
)

// fakeStore is an in-memory stand-in for both repositories. Each operation
// is linearizable under the mutex, mirroring how the real implementation
// relies on single conditional statements, so the concurrency properties can
// be exercised without a database.
type fakeStore struct {
	mu          sync.Mutex
	events      map[string]*domain.Event
	zones       map[string]*domain.Zone
	tickets     map[string]*domain.Ticket
	validations map[string]*domain.ValidationRecord // keyed by ticket id
	nextSerial  int64

	failWith map[string]error // op name -> forced error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      make(map[string]*domain.Event),
		zones:       make(map[string]*domain.Zone),
		tickets:     make(map[string]*domain.Ticket),
		validations: make(map[string]*domain.ValidationRecord),
		failWith:    make(map[string]error),
	}
}

func (f *fakeStore) addEvent(e domain.Event) {
	cp := e
	f.events[e.ID] = &cp
}

func (f *fakeStore) addZone(z domain.Zone) {
	cp := z
	f.zones[z.ID] = &cp
}

func (f *fakeStore) addTicket(t domain.Ticket) {
	cp := t
	f.tickets[t.ID] = &cp
}

func (f *fakeStore) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith[op] = err
}

func (f *fakeStore) forced(op string) error {
	return f.failWith[op]
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) GetZone(ctx context.Context, zoneID string) (domain.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.forced("GetZone"); err != nil {
		return domain.Zone{}, err
	}
	z, ok := f.zones[zoneID]
	if !ok {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	return *z, nil
}

func (f *fakeStore) TryReserve(ctx context.Context, zoneID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.forced("TryReserve"); err != nil {
		return false, err
	}
	z, ok := f.zones[zoneID]
	if !ok {
		return false, domain.ErrZoneNotFound
	}
	if z.ActiveCount >= z.Capacity {
		return false, nil
	}
	z.ActiveCount++
	return true, nil
}

func (f *fakeStore) ReleaseZone(ctx context.Context, zoneID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	z, ok := f.zones[zoneID]
	if !ok {
		return domain.ErrZoneNotFound
	}
	if z.ActiveCount > 0 {
		z.ActiveCount--
	}
	return nil
}

func (f *fakeStore) CountActiveByHolder(ctx context.Context, eventID, holderID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if t.EventID == eventID && t.HolderID == holderID && t.State == domain.TicketStateActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateTicket(ctx context.Context, t domain.Ticket) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.forced("CreateTicket"); err != nil {
		return 0, err
	}
	f.nextSerial++
	cp := t
	cp.Serial = f.nextSerial
	f.tickets[t.ID] = &cp
	return f.nextSerial, nil
}

func (f *fakeStore) UpdateIssuedToken(ctx context.Context, ticketID, tok string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return domain.ErrTicketNotFound
	}
	t.IssuedToken = tok
	return nil
}

func (f *fakeStore) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return *t, nil
}

func (f *fakeStore) GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error) {
	return f.GetTicket(ctx, ticketID)
}

func (f *fakeStore) MarkVoid(ctx context.Context, ticketID, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if t.State != domain.TicketStateActive {
		return domain.ErrAlreadyConsumed
	}
	t.State = domain.TicketStateVoid
	t.VoidReason = reason
	t.UpdatedAt = at
	return nil
}

func (f *fakeStore) ListActiveTicketsByEvent(ctx context.Context, eventID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.tickets {
		if t.EventID == eventID && t.State == domain.TicketStateActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTicketWithContext(ctx context.Context, ticketID string) (domain.Ticket, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.forced("GetTicketWithContext"); err != nil {
		return domain.Ticket{}, "", false, err
	}
	t, ok := f.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, "", false, domain.ErrTicketNotFound
	}
	zoneName := ""
	eventActive := false
	if z, ok := f.zones[t.ZoneID]; ok {
		zoneName = z.Name
		if e, ok := f.events[z.EventID]; ok {
			eventActive = e.Active
		}
	}
	return *t, zoneName, eventActive, nil
}

// MarkUsed is the conditional ACTIVE→USED step; under the mutex exactly one
// concurrent caller can observe ACTIVE.
func (f *fakeStore) MarkUsed(ctx context.Context, ticketID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.forced("MarkUsed"); err != nil {
		return err
	}
	t, ok := f.tickets[ticketID]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if t.State != domain.TicketStateActive {
		return domain.ErrAlreadyConsumed
	}
	t.State = domain.TicketStateUsed
	t.UpdatedAt = at
	return nil
}

func (f *fakeStore) CreateValidation(ctx context.Context, v domain.ValidationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.forced("CreateValidation"); err != nil {
		return err
	}
	if _, exists := f.validations[v.TicketID]; exists {
		return domain.ErrAlreadyConsumed
	}
	cp := v
	f.validations[v.TicketID] = &cp
	return nil
}

func (f *fakeStore) GetValidationByTicket(ctx context.Context, ticketID string) (*domain.ValidationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.validations[ticketID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) ListValidationsByEvent(ctx context.Context, eventID string) ([]domain.ValidationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ValidationRecord
	for _, v := range f.validations {
		t, ok := f.tickets[v.TicketID]
		if ok && t.EventID == eventID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeStore) ListValidationsByOperator(ctx context.Context, operatorID string) ([]domain.ValidationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ValidationRecord
	for _, v := range f.validations {
		if v.OperatorID == operatorID {
			out = append(out, *v)
		}
	}
	return out, nil
}

// capturingAudit records published audit events for assertions.
type capturingAudit struct {
	mu         sync.Mutex
	admissions []queue.AdmissionEvent
	alerts     []queue.SecurityAlertEvent
}

func (a *capturingAudit) PublishAdmission(ctx context.Context, e queue.AdmissionEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.admissions = append(a.admissions, e)
	return nil
}

func (a *capturingAudit) PublishSecurityAlert(ctx context.Context, e queue.SecurityAlertEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, e)
	return nil
}
