package mysql

import (
	"context"

	loanDomain "peerfund-backend/internal/domain/loan"

	"gorm.io/gorm"
)

type EndorsementRepository struct{ db *gorm.DB }

func NewEndorsementRepository(db *gorm.DB) *EndorsementRepository {
	return &EndorsementRepository{db: db}
}

func (r *EndorsementRepository) Create(ctx context.Context, e *loanDomain.Endorsement) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EndorsementRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]loanDomain.Endorsement, error) {
	var out []loanDomain.Endorsement
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}
