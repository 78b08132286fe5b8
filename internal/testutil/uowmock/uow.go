package uowmock

import (
	"context"
	"errors"

	"peerfund-backend/internal/domain/errs"
	"peerfund-backend/internal/domain/loan"
	"peerfund-backend/internal/domain/uow"

	"gorm.io/gorm"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork. Fill in the
// function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn     func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn func(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error
}

// Passthrough returns a UoW that runs callbacks directly against the given
// repos, with loan lookup backed by the Loans repo, mimicking a committed
// transaction.
func Passthrough(r uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(ctx context.Context, fn func(uow.Repos) error) error {
			return fn(r)
		},
		WithinLoanTxFn: func(ctx context.Context, loanID string, fn func(uow.Repos, *loan.Loan) error) error {
			l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return errs.NotFoundf("loan %s", loanID)
			case err != nil:
				return errs.Storage("lock loan", err)
			}
			return fn(r, l)
		},
	}
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, loanID, fn)
	}
	return errUnimplemented
}
