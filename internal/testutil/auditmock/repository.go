package auditmock

import (
	"context"
	"sync"

	domain "peerfund-backend/internal/domain/audit"

	"gorm.io/gorm"
)

// EventRepo is an in-memory append-only event store for tests. It records
// every appended event in order, like the real table does.
type EventRepo struct {
	mu     sync.Mutex
	Events []domain.Event

	AppendFn func(ctx context.Context, e *domain.Event) error
}

func (m *EventRepo) Append(ctx context.Context, e *domain.Event) error {
	if m.AppendFn != nil {
		if err := m.AppendFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uint64(len(m.Events) + 1)
	m.Events = append(m.Events, *e)
	return nil
}

func (m *EventRepo) ListByReferenceID(ctx context.Context, referenceID string) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.Events {
		if e.ReferenceID == referenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Types returns the appended event types in order, a convenient assertion
// target.
func (m *EventRepo) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.EventType)
	}
	return out
}

// DecisionRepo is an in-memory decision log for tests.
type DecisionRepo struct {
	mu      sync.Mutex
	Entries []domain.DecisionLogEntry

	AppendFn func(ctx context.Context, d *domain.DecisionLogEntry) error
}

func (m *DecisionRepo) Append(ctx context.Context, d *domain.DecisionLogEntry) error {
	if m.AppendFn != nil {
		if err := m.AppendFn(ctx, d); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uint64(len(m.Entries) + 1)
	m.Entries = append(m.Entries, *d)
	return nil
}

func (m *DecisionRepo) GetByDecisionID(ctx context.Context, decisionID string) (*domain.DecisionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Entries {
		if m.Entries[i].DecisionID == decisionID {
			d := m.Entries[i]
			return &d, nil
		}
	}
	// Same miss signal the real repository produces.
	return nil, gorm.ErrRecordNotFound
}

func (m *DecisionRepo) ListByType(ctx context.Context, decisionType string) ([]domain.DecisionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DecisionLogEntry
	for _, d := range m.Entries {
		if d.DecisionType == decisionType {
			out = append(out, d)
		}
	}
	return out, nil
}

// FraudFlagRepo is an in-memory fraud flag store for tests.
type FraudFlagRepo struct {
	mu    sync.Mutex
	Flags []domain.FraudFlag

	CreateFn func(ctx context.Context, f *domain.FraudFlag) error
}

func (m *FraudFlagRepo) Create(ctx context.Context, f *domain.FraudFlag) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, f); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = uint64(len(m.Flags) + 1)
	m.Flags = append(m.Flags, *f)
	return nil
}

func (m *FraudFlagRepo) ListByUserID(ctx context.Context, userID string) ([]domain.FraudFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FraudFlag
	for _, f := range m.Flags {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}
