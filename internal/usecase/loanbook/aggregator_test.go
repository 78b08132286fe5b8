package loanbook

import (
	"errors"
	"testing"
	"time"

	"peerfund-backend/internal/domain/errs"
	"peerfund-backend/internal/domain/loan"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func stake(amounts ...string) []loan.Endorsement {
	out := make([]loan.Endorsement, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, loan.Endorsement{StakedAmount: dec(a)})
	}
	return out
}

func TestCoveragePct(t *testing.T) {
	l := &loan.Loan{LoanID: "l1", Principal: dec("1000000")}

	got, err := CoveragePct(l, stake("150000", "100000"))
	if err != nil {
		t.Fatalf("CoveragePct: %v", err)
	}
	if !got.Equal(dec("25")) {
		t.Fatalf("coverage = %s, want 25", got)
	}
}

func TestCoveragePct_NonPositivePrincipalIsIntegrityError(t *testing.T) {
	l := &loan.Loan{LoanID: "l1", Principal: decimal.Zero}
	_, err := CoveragePct(l, stake("100"))
	if !errors.Is(err, errs.ErrIntegrityViolation) {
		t.Fatalf("want integrity violation, got %v", err)
	}
}

func TestCoveragePct_MonotonicUnderAddedEndorsements(t *testing.T) {
	l := &loan.Loan{LoanID: "l1", Principal: dec("1000000")}
	var ends []loan.Endorsement
	prev := decimal.Zero
	for _, amt := range []string{"10000", "0.01", "250000", "1", "739998.99"} {
		ends = append(ends, loan.Endorsement{StakedAmount: dec(amt)})
		cov, err := CoveragePct(l, ends)
		if err != nil {
			t.Fatalf("CoveragePct: %v", err)
		}
		if cov.LessThan(prev) {
			t.Fatalf("coverage decreased: %s -> %s", prev, cov)
		}
		prev = cov
	}
	if !prev.Equal(dec("100")) {
		t.Fatalf("final coverage = %s, want 100", prev)
	}
}

func TestMeetsCoverage_ExactThreshold(t *testing.T) {
	// Score-75 scenario: principal 1,000,000 at 25% requires 250,000 staked.
	l := &loan.Loan{Principal: dec("1000000"), MinCoveragePct: 25}

	if MeetsCoverage(l, stake("249999.99")) {
		t.Fatal("249,999.99 must not meet a 250,000 requirement")
	}
	if !MeetsCoverage(l, stake("250000")) {
		t.Fatal("exactly 250,000 must meet the requirement")
	}
	if !MeetsCoverage(l, stake("100000", "150000.01")) {
		t.Fatal("250,000.01 must meet the requirement")
	}
}

func TestMeetsCoverage_ZeroRequirement(t *testing.T) {
	l := &loan.Loan{Principal: dec("1000000"), MinCoveragePct: 0}
	if !MeetsCoverage(l, nil) {
		t.Fatal("zero requirement is met with no endorsements")
	}
}

func installments(statuses ...loan.InstallmentStatus) []loan.Installment {
	out := make([]loan.Installment, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, loan.Installment{Sequence: i + 1, Status: s, DueAmount: dec("100")})
	}
	return out
}

func TestAmountOwedAndOverdue(t *testing.T) {
	ins := installments(loan.InstallmentPaid, loan.InstallmentOverdue, loan.InstallmentPending, loan.InstallmentOverdue)

	if owed := AmountOwed(ins); !owed.Equal(dec("300")) {
		t.Fatalf("owed = %s, want 300", owed)
	}
	if over := OverdueAmount(ins); !over.Equal(dec("200")) {
		t.Fatalf("overdue = %s, want 200", over)
	}
}

func TestSweepOverdue_GraceBoundary(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	grace := 86400 * time.Second
	ins := []loan.Installment{{Sequence: 1, Status: loan.InstallmentPending, DueAt: due}}

	if flips := SweepOverdue(due.Add(86399*time.Second), grace, ins); len(flips) != 0 {
		t.Fatalf("T+86399s: expected no flip, got %v", flips)
	}
	if flips := SweepOverdue(due.Add(86400*time.Second), grace, ins); len(flips) != 0 {
		t.Fatalf("T+86400s exactly: expected no flip, got %v", flips)
	}
	if flips := SweepOverdue(due.Add(86401*time.Second), grace, ins); len(flips) != 1 {
		t.Fatalf("T+86401s: expected flip, got %v", flips)
	}
}

func TestSweepOverdue_SkipsPaidAndAlreadyOverdue(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ins := []loan.Installment{
		{Sequence: 1, Status: loan.InstallmentPaid, DueAt: due},
		{Sequence: 2, Status: loan.InstallmentOverdue, DueAt: due},
		{Sequence: 3, Status: loan.InstallmentPending, DueAt: due},
	}
	flips := SweepOverdue(due.Add(48*time.Hour), 24*time.Hour, ins)
	if len(flips) != 1 || flips[0] != 2 {
		t.Fatalf("flips = %v, want [2]", flips)
	}
}

func TestConsecutiveOverdue(t *testing.T) {
	tests := []struct {
		statuses []loan.InstallmentStatus
		want     int
	}{
		{[]loan.InstallmentStatus{loan.InstallmentPaid, loan.InstallmentPaid}, 0},
		{[]loan.InstallmentStatus{loan.InstallmentOverdue, loan.InstallmentOverdue, loan.InstallmentPaid, loan.InstallmentOverdue}, 2},
		{[]loan.InstallmentStatus{loan.InstallmentPaid, loan.InstallmentOverdue, loan.InstallmentOverdue, loan.InstallmentOverdue}, 3},
		{[]loan.InstallmentStatus{loan.InstallmentOverdue, loan.InstallmentPending, loan.InstallmentOverdue}, 1},
	}
	for _, tc := range tests {
		if got := ConsecutiveOverdue(installments(tc.statuses...)); got != tc.want {
			t.Fatalf("statuses %v: got %d, want %d", tc.statuses, got, tc.want)
		}
	}
}

func TestAllPaid(t *testing.T) {
	if AllPaid(nil) {
		t.Fatal("no installments is not all-paid")
	}
	if AllPaid(installments(loan.InstallmentPaid, loan.InstallmentPending)) {
		t.Fatal("pending installment present")
	}
	if !AllPaid(installments(loan.InstallmentPaid, loan.InstallmentPaid)) {
		t.Fatal("all paid not recognized")
	}
}

func TestBuildSchedule_SplitsPrincipalWithRemainderOnLast(t *testing.T) {
	l := &loan.Loan{ID: 7, Principal: dec("1000000"), InstallmentCount: 3}
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cadence := 30 * 24 * time.Hour

	sched := BuildSchedule(l, at, cadence)
	if len(sched) != 3 {
		t.Fatalf("len = %d, want 3", len(sched))
	}

	total := decimal.Zero
	for i, ins := range sched {
		total = total.Add(ins.DueAmount)
		if ins.Sequence != i+1 {
			t.Fatalf("sequence[%d] = %d", i, ins.Sequence)
		}
		if ins.Status != loan.InstallmentPending {
			t.Fatalf("status = %s", ins.Status)
		}
		if ins.LoanID != 7 {
			t.Fatalf("loan fk = %d", ins.LoanID)
		}
		wantDue := at.Add(time.Duration(i+1) * cadence)
		if !ins.DueAt.Equal(wantDue) {
			t.Fatalf("dueAt[%d] = %s, want %s", i, ins.DueAt, wantDue)
		}
	}
	if !total.Equal(l.Principal) {
		t.Fatalf("schedule total %s != principal %s", total, l.Principal)
	}
	if !sched[0].DueAmount.Equal(dec("333333.33")) {
		t.Fatalf("per-installment = %s", sched[0].DueAmount)
	}
	if !sched[2].DueAmount.Equal(dec("333333.34")) {
		t.Fatalf("last installment = %s", sched[2].DueAmount)
	}
}
