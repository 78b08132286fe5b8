package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate locks the loan row for the rest of the enclosing
	// transaction. Funding activation and repaid/default transitions depend
	// on this lock.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	ListByBorrowerID(ctx context.Context, borrowerID string) ([]Loan, error)
}

type InstallmentRepository interface {
	CreateBatch(ctx context.Context, items []Installment) error
	// ListByLoanID returns installments ordered by sequence.
	ListByLoanID(ctx context.Context, loanID uint64) ([]Installment, error)
	GetByInstallmentID(ctx context.Context, installmentID string) (*Installment, error)
	Save(ctx context.Context, i *Installment) error
}

type EndorsementRepository interface {
	Create(ctx context.Context, e *Endorsement) error
	ListByLoanID(ctx context.Context, loanID uint64) ([]Endorsement, error)
}
