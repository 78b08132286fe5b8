package audit

import (
	"context"
	"encoding/json"
	"time"

	domain "peerfund-backend/internal/domain/audit"
	"peerfund-backend/internal/domain/errs"
	"peerfund-backend/pkg/hashing"
	"peerfund-backend/pkg/id"
)

// EventLog appends tamper-evident state-change records. Append is not
// idempotent: events represent occurrences, so identical arguments produce
// two distinct events.
type EventLog struct {
	Now func() time.Time
}

func NewEventLog() *EventLog {
	return &EventLog{Now: func() time.Time { return time.Now().UTC() }}
}

// Append hashes {eventType, referenceId, detail, timestamp} and persists
// the event. Hashing failure aborts before anything is written, so the
// enclosing transaction rolls back the primary change with it.
func (l *EventLog) Append(ctx context.Context, repo domain.EventRepository, referenceID, eventType string, detail map[string]any) (*domain.Event, error) {
	ts := l.Now()
	h, err := hashing.Sum(map[string]any{
		"eventType":   eventType,
		"referenceId": referenceID,
		"detail":      detail,
		"timestamp":   ts.UnixMilli(),
	})
	if err != nil {
		return nil, errs.Integrityf("event hash: %v", err)
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return nil, errs.Integrityf("event detail: %v", err)
	}

	e := &domain.Event{
		EventID:     id.NewID32(),
		ReferenceID: referenceID,
		EventType:   eventType,
		Detail:      string(detailJSON),
		Hash:        h,
		CreatedAt:   ts,
	}
	if err := repo.Append(ctx, e); err != nil {
		return nil, errs.Storage("append event", err)
	}
	return e, nil
}

// ListForReference returns a reference entity's events in append order.
func (l *EventLog) ListForReference(ctx context.Context, repo domain.EventRepository, referenceID string) ([]domain.Event, error) {
	events, err := repo.ListByReferenceID(ctx, referenceID)
	if err != nil {
		return nil, errs.Storage("list events", err)
	}
	return events, nil
}
