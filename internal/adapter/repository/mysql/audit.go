package mysql

import (
	"context"

	auditDomain "peerfund-backend/internal/domain/audit"

	"gorm.io/gorm"
)

// Append-only stores. No Update or Delete methods exist here, matching the
// repository interfaces.

type EventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) *EventRepository { return &EventRepository{db: db} }

func (r *EventRepository) Append(ctx context.Context, e *auditDomain.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EventRepository) ListByReferenceID(ctx context.Context, referenceID string) ([]auditDomain.Event, error) {
	var out []auditDomain.Event
	res := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

type DecisionRepository struct{ db *gorm.DB }

func NewDecisionRepository(db *gorm.DB) *DecisionRepository { return &DecisionRepository{db: db} }

func (r *DecisionRepository) Append(ctx context.Context, d *auditDomain.DecisionLogEntry) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DecisionRepository) GetByDecisionID(ctx context.Context, decisionID string) (*auditDomain.DecisionLogEntry, error) {
	var out auditDomain.DecisionLogEntry
	res := r.db.WithContext(ctx).Where("decision_id = ?", decisionID).First(&out)
	return &out, res.Error
}

func (r *DecisionRepository) ListByType(ctx context.Context, decisionType string) ([]auditDomain.DecisionLogEntry, error) {
	var out []auditDomain.DecisionLogEntry
	res := r.db.WithContext(ctx).
		Where("decision_type = ?", decisionType).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

type FraudFlagRepository struct{ db *gorm.DB }

func NewFraudFlagRepository(db *gorm.DB) *FraudFlagRepository { return &FraudFlagRepository{db: db} }

func (r *FraudFlagRepository) Create(ctx context.Context, f *auditDomain.FraudFlag) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FraudFlagRepository) ListByUserID(ctx context.Context, userID string) ([]auditDomain.FraudFlag, error) {
	var out []auditDomain.FraudFlag
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}
