package fraud

import (
	"time"

	"peerfund-backend/internal/domain/audit"
	"peerfund-backend/internal/domain/user"
)

// SimilarityFn is the externally supplied correlation signal between two
// accounts. The concrete signal is policy, not algorithm: the detector only
// fixes the velocity-window shape of the heuristic.
type SimilarityFn func(a, b user.User) bool

// Alert is the detector's pure output. The caller decides whether to
// persist a fraud flag and whether HIGH severity forces a status change.
type Alert struct {
	UserID            string
	FlagType          string
	Severity          audit.Severity
	CorrelatedUserIDs []string
}

// Detector flags multi-account registration bursts. It holds no state and
// touches no store, so it can be unit-tested against a fixed snapshot.
type Detector struct {
	// Window is the creation-time proximity that makes two accounts
	// candidates for correlation.
	Window time.Duration
	// BatchThreshold is the correlated-account count at which severity
	// becomes HIGH.
	BatchThreshold int
	// Similar is the configurable correlation signal. When nil, proximity
	// within Window alone correlates (velocity-only policy).
	Similar SimilarityFn
}

func NewDetector(window time.Duration, batchThreshold int, similar SimilarityFn) *Detector {
	return &Detector{Window: window, BatchThreshold: batchThreshold, Similar: similar}
}

// DetectMultiAccount inspects the account snapshot for other users created
// within Window of the new user that also pass the similarity signal.
// Returns nil when nothing correlates.
func (d *Detector) DetectMultiAccount(users []user.User, newUserID string) *Alert {
	var newcomer *user.User
	for i := range users {
		if users[i].UserID == newUserID {
			newcomer = &users[i]
			break
		}
	}
	if newcomer == nil {
		return nil
	}

	var correlated []string
	for i := range users {
		other := &users[i]
		if other.UserID == newUserID {
			continue
		}
		delta := newcomer.CreatedAt.Sub(other.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta > d.Window {
			continue
		}
		if d.Similar != nil && !d.Similar(*newcomer, *other) {
			continue
		}
		correlated = append(correlated, other.UserID)
	}
	if len(correlated) == 0 {
		return nil
	}

	severity := audit.SeverityLow
	if len(correlated) >= d.BatchThreshold {
		severity = audit.SeverityHigh
	}
	return &Alert{
		UserID:            newUserID,
		FlagType:          audit.FlagMultiAccount,
		Severity:          severity,
		CorrelatedUserIDs: correlated,
	}
}
