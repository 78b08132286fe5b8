package uow

import (
	"context"

	"peerfund-backend/internal/domain/audit"
	"peerfund-backend/internal/domain/loan"
	"peerfund-backend/internal/domain/params"
	"peerfund-backend/internal/domain/user"
)

// Repos bundles every repository bound to one transaction.
type Repos struct {
	Users        user.Repository
	Params       params.Repository
	Loans        loan.Repository
	Installments loan.InstallmentRepository
	Endorsements loan.EndorsementRepository
	Events       audit.EventRepository
	Decisions    audit.DecisionRepository
	FraudFlags   audit.FraudFlagRepository
}

type UnitOfWork interface {
	// WithinTx runs fn inside a storage transaction.
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinLoanTx locks the loan row first, then runs fn. Coverage
	// threshold crossing and repaid/default checks must happen under this
	// lock so only one concurrent writer performs a transition.
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
