package mysql

import (
	"context"

	loanDomain "peerfund-backend/internal/domain/loan"

	"gorm.io/gorm"
)

type InstallmentRepository struct{ db *gorm.DB }

func NewInstallmentRepository(db *gorm.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

func (r *InstallmentRepository) CreateBatch(ctx context.Context, items []loanDomain.Installment) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *InstallmentRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]loanDomain.Installment, error) {
	var out []loanDomain.Installment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("sequence ASC").
		Find(&out)
	return out, res.Error
}

func (r *InstallmentRepository) GetByInstallmentID(ctx context.Context, installmentID string) (*loanDomain.Installment, error) {
	var out loanDomain.Installment
	res := r.db.WithContext(ctx).Where("installment_id = ?", installmentID).First(&out)
	return &out, res.Error
}

func (r *InstallmentRepository) Save(ctx context.Context, i *loanDomain.Installment) error {
	return r.db.WithContext(ctx).Save(i).Error
}
