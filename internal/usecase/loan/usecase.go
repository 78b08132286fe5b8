package loan

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	auditDomain "peerfund-backend/internal/domain/audit"
	"peerfund-backend/internal/domain/errs"
	domain "peerfund-backend/internal/domain/loan"
	"peerfund-backend/internal/domain/params"
	"peerfund-backend/internal/domain/uow"
	"peerfund-backend/internal/domain/user"
	auditLog "peerfund-backend/internal/usecase/audit"
	"peerfund-backend/internal/usecase/loanbook"
	"peerfund-backend/internal/usecase/pricing"
	"peerfund-backend/pkg/id"

	"gorm.io/gorm"
)

type Usecase struct {
	uow       uow.UnitOfWork
	events    *auditLog.EventLog
	decisions *auditLog.DecisionLog
	Now       func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, events *auditLog.EventLog, decisions *auditLog.DecisionLog) *Usecase {
	return &Usecase{
		uow:       tx,
		events:    events,
		decisions: decisions,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create prices the loan from the borrower's score against the active
// parameter version, snapshots the chosen tier into the loan, and records
// both the event and the pricing decision in the same transaction.
func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	if !id.IsID32(in.BorrowerID) {
		return nil, errs.Validationf("borrower_id must be 32-char lowercase hex")
	}
	if !in.Principal.IsPositive() {
		return nil, errs.Validationf("principal must be positive")
	}
	if in.InstallmentCount < 1 || in.InstallmentCount > 120 {
		return nil, errs.Validationf("installment_count must be between 1 and 120")
	}

	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		borrower, err := r.Users.GetByUserID(ctx, in.BorrowerID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errs.NotFoundf("borrower %s", in.BorrowerID)
		case err != nil:
			return errs.Storage("load borrower", err)
		}
		if borrower.Status != user.StatusActive {
			return errs.Conflictf("borrower %s is %s", borrower.UserID, borrower.Status)
		}

		p, err := r.Params.GetActive(ctx)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errs.Integrityf("no active parameter version")
		case err != nil:
			return errs.Storage("load parameters", err)
		}
		if err := pricing.Validate(p.Tiers); err != nil {
			return err
		}
		tier, err := pricing.SelectFromTable(p, borrower.Score)
		if err != nil {
			return err
		}
		if in.Principal.GreaterThan(tier.MaxPrincipal) {
			return errs.Validationf("principal %s exceeds tier %s limit %s",
				in.Principal, tier.Name, tier.MaxPrincipal)
		}

		now := u.Now()
		l := &domain.Loan{
			LoanID:           id.NewID32(),
			BorrowerID:       borrower.UserID,
			Principal:        in.Principal,
			TierName:         tier.Name,
			RateBps:          tier.RateBps,
			MinCoveragePct:   tier.MinCoveragePct,
			ParamsVersion:    p.Version,
			InstallmentCount: in.InstallmentCount,
			State:            domain.StateProposed,
			StateUpdatedAt:   now,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return errs.Storage("create loan", err)
		}

		if _, err := u.events.Append(ctx, r.Events, l.LoanID, auditDomain.EventLoanCreated, map[string]any{
			"borrower_id":    l.BorrowerID,
			"principal":      l.Principal.String(),
			"tier":           tier.Name,
			"rate_bps":       tier.RateBps,
			"params_version": p.Version,
		}); err != nil {
			return err
		}
		if _, err := u.decisions.Record(ctx, r.Decisions, auditDomain.DecisionLoanPricing,
			map[string]any{
				"borrower_id": l.BorrowerID,
				"score":       borrower.Score,
				"principal":   l.Principal.String(),
			},
			map[string]any{
				"tier":             tier.Name,
				"rate_bps":         tier.RateBps,
				"min_coverage_pct": tier.MinCoveragePct,
				"max_principal":    tier.MaxPrincipal.String(),
			},
			p.Version); err != nil {
			return err
		}

		dto = toLoanDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// AddEndorsement stakes a supporter's amount behind a loan. The first
// endorsement moves PROPOSED -> FUNDING; the one that satisfies the
// snapshot coverage requirement performs the one-shot FUNDING -> ACTIVE
// transition under the loan row lock and generates the installment
// schedule. Concurrent endorsers past the threshold observe ACTIVE and
// leave the transition alone.
func (u *Usecase) AddEndorsement(ctx context.Context, in EndorsementInput) (*EndorsementDTO, error) {
	if !id.IsID32(in.LoanID) || !id.IsID32(in.SupporterID) {
		return nil, errs.Validationf("loan_id and supporter_id must be 32-char lowercase hex")
	}
	if !in.Amount.IsPositive() {
		return nil, errs.Validationf("amount must be positive")
	}

	var dto *EndorsementDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State != domain.StateProposed && l.State != domain.StateFunding {
			return errs.Conflictf("loan %s is %s and cannot accept endorsements", l.LoanID, l.State)
		}

		supporter, err := r.Users.GetByUserID(ctx, in.SupporterID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errs.NotFoundf("supporter %s", in.SupporterID)
		case err != nil:
			return errs.Storage("load supporter", err)
		}
		if supporter.UserID == l.BorrowerID {
			return errs.Validationf("borrower cannot endorse their own loan")
		}
		if supporter.Status == user.StatusBlocked {
			return errs.Conflictf("supporter %s is blocked", supporter.UserID)
		}

		now := u.Now()
		if l.State == domain.StateProposed {
			l.State = domain.StateFunding
			l.StateUpdatedAt = now
			if err := r.Loans.Save(ctx, l); err != nil {
				return errs.Storage("save loan", err)
			}
		}

		e := &domain.Endorsement{
			EndorsementID: id.NewID32(),
			LoanID:        l.ID,
			SupporterID:   supporter.UserID,
			StakedAmount:  in.Amount,
			CreatedAt:     now,
		}
		if err := r.Endorsements.Create(ctx, e); err != nil {
			return errs.Storage("create endorsement", err)
		}
		if _, err := u.events.Append(ctx, r.Events, l.LoanID, auditDomain.EventEndorsementAdded, map[string]any{
			"endorsement_id": e.EndorsementID,
			"supporter_id":   supporter.UserID,
			"amount":         in.Amount.String(),
		}); err != nil {
			return err
		}

		ends, err := r.Endorsements.ListByLoanID(ctx, l.ID)
		if err != nil {
			return errs.Storage("list endorsements", err)
		}
		cov, err := loanbook.CoveragePct(l, ends)
		if err != nil {
			return err
		}

		if loanbook.CanActivate(l, ends) {
			p, err := u.loadVersion(ctx, r, l.ParamsVersion)
			if err != nil {
				return err
			}
			l.State = domain.StateActive
			l.StateUpdatedAt = now
			if err := r.Loans.Save(ctx, l); err != nil {
				return errs.Storage("save loan", err)
			}
			sched := loanbook.BuildSchedule(l, now, p.InstallmentCadence())
			if err := r.Installments.CreateBatch(ctx, sched); err != nil {
				return errs.Storage("create installments", err)
			}
			if _, err := u.events.Append(ctx, r.Events, l.LoanID, auditDomain.EventLoanActivated, map[string]any{
				"coverage_pct":      cov.String(),
				"installment_count": len(sched),
			}); err != nil {
				return err
			}
		}

		dto = &EndorsementDTO{
			EndorsementID: e.EndorsementID,
			LoanID:        l.LoanID,
			SupporterID:   e.SupporterID,
			StakedAmount:  e.StakedAmount,
			LoanState:     string(l.State),
			CoveragePct:   cov,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// RecordPayment marks an installment paid. Overdue statuses are swept
// first so lateness is decided against the clock, not arrival order. When
// the last installment is paid the loan flips ACTIVE -> REPAID; the
// all-paid check is safe to re-evaluate from any caller.
func (u *Usecase) RecordPayment(ctx context.Context, in PaymentInput) (*PaymentDTO, error) {
	if !id.IsID32(in.LoanID) || !id.IsID32(in.InstallmentID) {
		return nil, errs.Validationf("loan_id and installment_id must be 32-char lowercase hex")
	}

	var dto *PaymentDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State != domain.StateActive {
			return errs.Conflictf("loan %s is %s and cannot accept payments", l.LoanID, l.State)
		}
		p, err := u.loadVersion(ctx, r, l.ParamsVersion)
		if err != nil {
			return err
		}
		insts, err := r.Installments.ListByLoanID(ctx, l.ID)
		if err != nil {
			return errs.Storage("list installments", err)
		}
		if err := u.sweepOverdue(ctx, r, l, p, insts); err != nil {
			return err
		}

		var target *domain.Installment
		for i := range insts {
			if insts[i].InstallmentID == in.InstallmentID {
				target = &insts[i]
				break
			}
		}
		if target == nil {
			return errs.NotFoundf("installment %s on loan %s", in.InstallmentID, l.LoanID)
		}
		if target.Status == domain.InstallmentPaid {
			return errs.Conflictf("installment %s already paid", target.InstallmentID)
		}

		now := u.Now()
		late := target.Status == domain.InstallmentOverdue
		target.Status = domain.InstallmentPaid
		target.PaidAt = &now
		if err := r.Installments.Save(ctx, target); err != nil {
			return errs.Storage("save installment", err)
		}
		if _, err := u.events.Append(ctx, r.Events, l.LoanID, auditDomain.EventInstallmentPaid, map[string]any{
			"installment_id": target.InstallmentID,
			"sequence":       target.Sequence,
			"amount":         target.DueAmount.String(),
			"late":           late,
		}); err != nil {
			return err
		}

		if loanbook.AllPaid(insts) {
			if l.State == domain.StateActive {
				l.State = domain.StateRepaid
				l.StateUpdatedAt = now
				if err := r.Loans.Save(ctx, l); err != nil {
					return errs.Storage("save loan", err)
				}
				if _, err := u.events.Append(ctx, r.Events, l.LoanID, auditDomain.EventLoanRepaid, nil); err != nil {
					return err
				}
			}
		} else if err := u.maybeDefault(ctx, r, l, p, insts); err != nil {
			return err
		}

		dto = &PaymentDTO{
			InstallmentID: target.InstallmentID,
			Sequence:      target.Sequence,
			Status:        string(target.Status),
			Late:          late,
			LoanState:     string(l.State),
			PaidAt:        now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Cancel ends a loan that never met its coverage requirement. The expiry
// deadline itself is the caller's policy; this only guards the transition.
func (u *Usecase) Cancel(ctx context.Context, loanID, reason string) (*LoanDTO, error) {
	if !id.IsID32(loanID) {
		return nil, errs.Validationf("loan_id must be 32-char lowercase hex")
	}
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State != domain.StateProposed && l.State != domain.StateFunding {
			return errs.Conflictf("loan %s is %s and cannot be cancelled", l.LoanID, l.State)
		}
		l.State = domain.StateCancelled
		l.StateUpdatedAt = u.Now()
		if err := r.Loans.Save(ctx, l); err != nil {
			return errs.Storage("save loan", err)
		}
		if _, err := u.events.Append(ctx, r.Events, l.LoanID, auditDomain.EventLoanCancelled, map[string]any{
			"reason": reason,
		}); err != nil {
			return err
		}
		dto = toLoanDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// GetView reconstructs the loan's derived state. The overdue sweep runs
// under the loan lock so status flips (and a default, if the streak
// crosses the threshold) are persisted with their events before the
// derived amounts are computed.
func (u *Usecase) GetView(ctx context.Context, loanID string) (*LoanView, error) {
	if !id.IsID32(loanID) {
		return nil, errs.Validationf("loan_id must be 32-char lowercase hex")
	}
	var view *LoanView
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		ends, err := r.Endorsements.ListByLoanID(ctx, l.ID)
		if err != nil {
			return errs.Storage("list endorsements", err)
		}
		insts, err := r.Installments.ListByLoanID(ctx, l.ID)
		if err != nil {
			return errs.Storage("list installments", err)
		}

		// Lapsing is a property of the installment, not the loan: a loan
		// that already defaulted keeps accruing overdue installments, so the
		// sweep runs for DEFAULTED too. maybeDefault only ever fires once.
		if l.State == domain.StateActive || l.State == domain.StateDefaulted {
			p, err := u.loadVersion(ctx, r, l.ParamsVersion)
			if err != nil {
				return err
			}
			if err := u.sweepOverdue(ctx, r, l, p, insts); err != nil {
				return err
			}
			if err := u.maybeDefault(ctx, r, l, p, insts); err != nil {
				return err
			}
		}

		cov, err := loanbook.CoveragePct(l, ends)
		if err != nil {
			return err
		}

		v := &LoanView{
			Loan:          *toLoanDTO(l),
			CoveragePct:   cov,
			AmountOwed:    loanbook.AmountOwed(insts),
			OverdueAmount: loanbook.OverdueAmount(insts),
		}
		for i := range insts {
			v.Installments = append(v.Installments, InstallmentDTO{
				InstallmentID: insts[i].InstallmentID,
				Sequence:      insts[i].Sequence,
				DueAmount:     insts[i].DueAmount,
				Status:        string(insts[i].Status),
				DueAt:         insts[i].DueAt,
				PaidAt:        insts[i].PaidAt,
			})
		}
		for i := range ends {
			v.Endorsements = append(v.Endorsements, EndorsementDTO{
				EndorsementID: ends[i].EndorsementID,
				LoanID:        l.LoanID,
				SupporterID:   ends[i].SupporterID,
				StakedAmount:  ends[i].StakedAmount,
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

// ReplayDecision re-verifies a stored automated judgment. Every decision
// gets its hash recomputed from the stored fields; pricing decisions are
// additionally re-executed against their pinned parameter version, which
// must reproduce the recorded tier exactly. Any divergence is an integrity
// violation.
func (u *Usecase) ReplayDecision(ctx context.Context, decisionID string) (*DecisionReplayDTO, error) {
	if !id.IsID32(decisionID) {
		return nil, errs.Validationf("decision_id must be 32-char lowercase hex")
	}
	var dto *DecisionReplayDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		entry, err := r.Decisions.GetByDecisionID(ctx, decisionID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errs.NotFoundf("decision %s", decisionID)
		case err != nil:
			return errs.Storage("load decision", err)
		}
		if err := u.decisions.Verify(entry); err != nil {
			return err
		}

		dto = &DecisionReplayDTO{
			DecisionID:    entry.DecisionID,
			DecisionType:  entry.DecisionType,
			ParamsVersion: entry.ParamsVersion,
			HashOK:        true,
		}
		if entry.DecisionType != auditDomain.DecisionLoanPricing {
			return nil
		}

		var inputs struct {
			Score int `json:"score"`
		}
		if err := json.Unmarshal([]byte(entry.Inputs), &inputs); err != nil {
			return errs.Integrityf("decision %s: stored inputs unreadable: %v", entry.DecisionID, err)
		}
		var outputs struct {
			Tier           string `json:"tier"`
			RateBps        int    `json:"rate_bps"`
			MinCoveragePct int    `json:"min_coverage_pct"`
		}
		if err := json.Unmarshal([]byte(entry.Outputs), &outputs); err != nil {
			return errs.Integrityf("decision %s: stored outputs unreadable: %v", entry.DecisionID, err)
		}

		tier, _, err := pricing.NewEngine(r.Params).SelectTier(ctx, inputs.Score, entry.ParamsVersion)
		if err != nil {
			return err
		}
		if tier.Name != outputs.Tier || tier.RateBps != outputs.RateBps || tier.MinCoveragePct != outputs.MinCoveragePct {
			return errs.Integrityf("decision %s: replay diverged (recorded %s/%d/%d, replayed %s/%d/%d)",
				entry.DecisionID, outputs.Tier, outputs.RateBps, outputs.MinCoveragePct,
				tier.Name, tier.RateBps, tier.MinCoveragePct)
		}
		dto.Replayed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListEvents returns the append-ordered event history for any reference
// entity (loan, user, ...).
func (u *Usecase) ListEvents(ctx context.Context, referenceID string) ([]auditDomain.Event, error) {
	if !id.IsID32(referenceID) {
		return nil, errs.Validationf("reference_id must be 32-char lowercase hex")
	}
	var events []auditDomain.Event
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		events, err = u.events.ListForReference(ctx, r.Events, referenceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (u *Usecase) loadVersion(ctx context.Context, r uow.Repos, version string) (*params.SystemParameters, error) {
	p, err := r.Params.GetByVersion(ctx, version)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// The loan snapshot references it, so absence is corruption.
		return nil, errs.Integrityf("parameter version %q referenced by loan not found", version)
	case err != nil:
		return nil, errs.Storage("load parameters", err)
	}
	return p, nil
}

func (u *Usecase) sweepOverdue(ctx context.Context, r uow.Repos, l *domain.Loan, p *params.SystemParameters, insts []domain.Installment) error {
	for _, idx := range loanbook.SweepOverdue(u.Now(), p.GracePeriod(), insts) {
		ins := &insts[idx]
		ins.Status = domain.InstallmentOverdue
		if err := r.Installments.Save(ctx, ins); err != nil {
			return errs.Storage("save installment", err)
		}
		if _, err := u.events.Append(ctx, r.Events, l.LoanID, auditDomain.EventInstallmentOverdue, map[string]any{
			"installment_id": ins.InstallmentID,
			"sequence":       ins.Sequence,
			"due_amount":     ins.DueAmount.String(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (u *Usecase) maybeDefault(ctx context.Context, r uow.Repos, l *domain.Loan, p *params.SystemParameters, insts []domain.Installment) error {
	if l.State != domain.StateActive || p.DefaultOverdueStreak <= 0 {
		return nil
	}
	streak := loanbook.ConsecutiveOverdue(insts)
	if streak < p.DefaultOverdueStreak {
		return nil
	}
	l.State = domain.StateDefaulted
	l.StateUpdatedAt = u.Now()
	if err := r.Loans.Save(ctx, l); err != nil {
		return errs.Storage("save loan", err)
	}
	if _, err := u.events.Append(ctx, r.Events, l.LoanID, auditDomain.EventLoanDefaulted, map[string]any{
		"consecutive_overdue": streak,
		"threshold":           p.DefaultOverdueStreak,
	}); err != nil {
		return err
	}
	return nil
}

func toLoanDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:           l.LoanID,
		BorrowerID:       l.BorrowerID,
		Principal:        l.Principal,
		TierName:         l.TierName,
		RateBps:          l.RateBps,
		MinCoveragePct:   l.MinCoveragePct,
		ParamsVersion:    l.ParamsVersion,
		InstallmentCount: l.InstallmentCount,
		State:            string(l.State),
		CreatedAt:        l.CreatedAt,
	}
}
