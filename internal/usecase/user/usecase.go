package user

import (
	"context"
	"errors"
	"strings"
	"time"

	auditDomain "peerfund-backend/internal/domain/audit"
	"peerfund-backend/internal/domain/errs"
	"peerfund-backend/internal/domain/uow"
	domain "peerfund-backend/internal/domain/user"
	auditLog "peerfund-backend/internal/usecase/audit"
	"peerfund-backend/internal/usecase/fraud"
	"peerfund-backend/pkg/id"

	"gorm.io/gorm"
)

const defaultScore = 50

type Usecase struct {
	uow       uow.UnitOfWork
	events    *auditLog.EventLog
	decisions *auditLog.DecisionLog
	detector  *fraud.Detector
	Now       func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, events *auditLog.EventLog, decisions *auditLog.DecisionLog, detector *fraud.Detector) *Usecase {
	return &Usecase{
		uow:       tx,
		events:    events,
		decisions: decisions,
		detector:  detector,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user, then runs the multi-account detector over the
// recent-accounts snapshot. A HIGH alert persists a fraud flag, records the
// judgment, and puts the user under review, all in the same transaction
// as the registration itself.
func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*UserDTO, error) {
	if in.DisplayName == "" {
		return nil, errs.Validationf("display_name is required")
	}
	role := domain.Role(in.Role)
	if !role.Valid() {
		return nil, errs.Validationf("role %q is not one of BORROWER|SUPPORTER|OPERATOR|PROVIDER", in.Role)
	}
	wallet := domain.NormalizeWallet(in.Wallet)
	if wallet == "" {
		return nil, errs.Validationf("wallet is required")
	}
	score := defaultScore
	if in.Score != nil {
		score = *in.Score
	}
	if score < 0 || score > 100 {
		return nil, errs.Validationf("score must be within [0,100]")
	}

	var dto *UserDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		_, err := r.Users.GetByWallet(ctx, wallet)
		switch {
		case err == nil:
			return errs.Conflictf("wallet %s already registered", wallet)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return errs.Storage("lookup wallet", err)
		}

		now := u.Now()
		usr := &domain.User{
			UserID:      id.NewID32(),
			DisplayName: in.DisplayName,
			Wallet:      wallet,
			Role:        role,
			Score:       score,
			Status:      domain.StatusActive,
			CreatedAt:   now,
		}
		if err := r.Users.Create(ctx, usr); err != nil {
			return errs.Storage("create user", err)
		}
		if _, err := u.events.Append(ctx, r.Events, usr.UserID, auditDomain.EventUserRegistered, map[string]any{
			"wallet": wallet,
			"role":   string(role),
		}); err != nil {
			return err
		}

		if err := u.fraudCheck(ctx, r, usr, now); err != nil {
			return err
		}

		dto = toUserDTO(usr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// fraudCheck runs the pure detector against the creation-window snapshot
// and persists its verdict. The detector itself never touches the store.
func (u *Usecase) fraudCheck(ctx context.Context, r uow.Repos, usr *domain.User, now time.Time) error {
	snapshot, err := r.Users.ListCreatedSince(ctx, now.Add(-u.detector.Window))
	if err != nil {
		return errs.Storage("load account snapshot", err)
	}
	alert := u.detector.DetectMultiAccount(snapshot, usr.UserID)
	if alert == nil {
		return nil
	}

	p, err := r.Params.GetActive(ctx)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.Integrityf("no active parameter version")
	case err != nil:
		return errs.Storage("load parameters", err)
	}

	flag := &auditDomain.FraudFlag{
		FlagID:    id.NewID32(),
		UserID:    usr.UserID,
		FlagType:  alert.FlagType,
		Severity:  alert.Severity,
		Details:   "correlated accounts: " + strings.Join(alert.CorrelatedUserIDs, ","),
		CreatedAt: now,
	}
	if err := r.FraudFlags.Create(ctx, flag); err != nil {
		return errs.Storage("create fraud flag", err)
	}
	if _, err := u.decisions.Record(ctx, r.Decisions, auditDomain.DecisionFraudCheck,
		map[string]any{
			"user_id":         usr.UserID,
			"window_secs":     int64(u.detector.Window / time.Second),
			"batch_threshold": u.detector.BatchThreshold,
			"correlated":      alert.CorrelatedUserIDs,
		},
		map[string]any{
			"flag_type":        alert.FlagType,
			"severity":         string(alert.Severity),
			"correlated_count": len(alert.CorrelatedUserIDs),
		},
		p.Version); err != nil {
		return err
	}

	if alert.Severity == auditDomain.SeverityHigh {
		usr.Status = domain.StatusUnderReview
		if err := r.Users.Save(ctx, usr); err != nil {
			return errs.Storage("save user", err)
		}
		if _, err := u.events.Append(ctx, r.Events, usr.UserID, auditDomain.EventUserFlagged, map[string]any{
			"flag_id":  flag.FlagID,
			"severity": string(alert.Severity),
		}); err != nil {
			return err
		}
	}
	return nil
}

// LoginOrSwitchRole resolves a wallet to its user. A requested role that
// differs from the stored one is an explicit, logged role change, never a
// silent overwrite.
func (u *Usecase) LoginOrSwitchRole(ctx context.Context, wallet, requestedRole string) (*UserDTO, error) {
	w := domain.NormalizeWallet(wallet)
	if w == "" {
		return nil, errs.Validationf("wallet is required")
	}

	var dto *UserDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		usr, err := r.Users.GetByWallet(ctx, w)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errs.NotFoundf("wallet %s", w)
		case err != nil:
			return errs.Storage("lookup wallet", err)
		}

		if requestedRole != "" && domain.Role(requestedRole) != usr.Role {
			role := domain.Role(requestedRole)
			if !role.Valid() {
				return errs.Validationf("role %q is not one of BORROWER|SUPPORTER|OPERATOR|PROVIDER", requestedRole)
			}
			old := usr.Role
			usr.Role = role
			if err := r.Users.Save(ctx, usr); err != nil {
				return errs.Storage("save user", err)
			}
			if _, err := u.events.Append(ctx, r.Events, usr.UserID, auditDomain.EventRoleChanged, map[string]any{
				"old_role": string(old),
				"new_role": string(role),
			}); err != nil {
				return err
			}
		}

		dto = toUserDTO(usr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// GetView returns the user together with their fraud flags and a summary
// of their loans.
func (u *Usecase) GetView(ctx context.Context, userID string) (*UserView, error) {
	if !id.IsID32(userID) {
		return nil, errs.Validationf("user_id must be 32-char lowercase hex")
	}

	var view *UserView
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		usr, err := r.Users.GetByUserID(ctx, userID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errs.NotFoundf("user %s", userID)
		case err != nil:
			return errs.Storage("load user", err)
		}

		flags, err := r.FraudFlags.ListByUserID(ctx, userID)
		if err != nil {
			return errs.Storage("list fraud flags", err)
		}
		loans, err := r.Loans.ListByBorrowerID(ctx, userID)
		if err != nil {
			return errs.Storage("list loans", err)
		}

		v := &UserView{User: *toUserDTO(usr)}
		for i := range flags {
			v.FraudFlags = append(v.FraudFlags, FraudFlagDTO{
				FlagID:    flags[i].FlagID,
				FlagType:  flags[i].FlagType,
				Severity:  string(flags[i].Severity),
				CreatedAt: flags[i].CreatedAt,
			})
		}
		for i := range loans {
			v.Loans = append(v.Loans, LoanSummaryDTO{
				LoanID:    loans[i].LoanID,
				Principal: loans[i].Principal,
				State:     string(loans[i].State),
				CreatedAt: loans[i].CreatedAt,
			})
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func toUserDTO(u *domain.User) *UserDTO {
	return &UserDTO{
		UserID:      u.UserID,
		DisplayName: u.DisplayName,
		Wallet:      u.Wallet,
		Role:        string(u.Role),
		Score:       u.Score,
		Status:      string(u.Status),
		CreatedAt:   u.CreatedAt,
	}
}
