package audit

import "context"

// Append-only stores: no update or delete methods exist on purpose.

type EventRepository interface {
	Append(ctx context.Context, e *Event) error
	// ListByReferenceID returns events in append order (created_at, then
	// insertion id for ties).
	ListByReferenceID(ctx context.Context, referenceID string) ([]Event, error)
}

type DecisionRepository interface {
	Append(ctx context.Context, d *DecisionLogEntry) error
	GetByDecisionID(ctx context.Context, decisionID string) (*DecisionLogEntry, error)
	ListByType(ctx context.Context, decisionType string) ([]DecisionLogEntry, error)
}

type FraudFlagRepository interface {
	Create(ctx context.Context, f *FraudFlag) error
	ListByUserID(ctx context.Context, userID string) ([]FraudFlag, error)
}
