package loanmock

import (
	"context"

	domain "peerfund-backend/internal/domain/loan"
)

// Repo is a function-backed mock of domain.Repository. Fill in only the
// methods a test needs; the rest return context.Canceled.
type Repo struct {
	CreateFn               func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn          func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn func(ctx context.Context, loanID string) (*domain.Loan, error)
	SaveFn                 func(ctx context.Context, l *domain.Loan) error
	ListByBorrowerIDFn     func(ctx context.Context, borrowerID string) ([]domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) ListByBorrowerID(ctx context.Context, borrowerID string) ([]domain.Loan, error) {
	if m.ListByBorrowerIDFn != nil {
		return m.ListByBorrowerIDFn(ctx, borrowerID)
	}
	return nil, nil
}

// InstallmentRepo mocks domain.InstallmentRepository.
type InstallmentRepo struct {
	CreateBatchFn        func(ctx context.Context, items []domain.Installment) error
	ListByLoanIDFn       func(ctx context.Context, loanID uint64) ([]domain.Installment, error)
	GetByInstallmentIDFn func(ctx context.Context, installmentID string) (*domain.Installment, error)
	SaveFn               func(ctx context.Context, i *domain.Installment) error
}

func (m *InstallmentRepo) CreateBatch(ctx context.Context, items []domain.Installment) error {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, items)
	}
	return nil
}

func (m *InstallmentRepo) ListByLoanID(ctx context.Context, loanID uint64) ([]domain.Installment, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, nil
}

func (m *InstallmentRepo) GetByInstallmentID(ctx context.Context, installmentID string) (*domain.Installment, error) {
	if m.GetByInstallmentIDFn != nil {
		return m.GetByInstallmentIDFn(ctx, installmentID)
	}
	return nil, context.Canceled
}

func (m *InstallmentRepo) Save(ctx context.Context, i *domain.Installment) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, i)
	}
	return nil
}

// EndorsementRepo mocks domain.EndorsementRepository.
type EndorsementRepo struct {
	CreateFn       func(ctx context.Context, e *domain.Endorsement) error
	ListByLoanIDFn func(ctx context.Context, loanID uint64) ([]domain.Endorsement, error)
}

func (m *EndorsementRepo) Create(ctx context.Context, e *domain.Endorsement) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, e)
	}
	return nil
}

func (m *EndorsementRepo) ListByLoanID(ctx context.Context, loanID uint64) ([]domain.Endorsement, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, nil
}
