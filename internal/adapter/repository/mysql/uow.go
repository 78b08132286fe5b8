package mysql

import (
	"context"
	"errors"

	"peerfund-backend/internal/domain/errs"
	"peerfund-backend/internal/domain/loan"
	"peerfund-backend/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func bindRepos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Users:        &UserRepository{db: tx},
		Params:       &ParamsRepository{db: tx},
		Loans:        &LoanRepository{db: tx},
		Installments: &InstallmentRepository{db: tx},
		Endorsements: &EndorsementRepository{db: tx},
		Events:       &EventRepository{db: tx},
		Decisions:    &DecisionRepository{db: tx},
		FraudFlags:   &FraudFlagRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bindRepos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := bindRepos(tx)
		// lock the loan row up-front so concurrent state transitions serialize
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errs.NotFoundf("loan %s", loanID)
		case err != nil:
			return errs.Storage("lock loan", err)
		}
		return fn(r, l)
	})
}
