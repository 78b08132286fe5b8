package audit

import (
	"context"
	"encoding/json"
	"time"

	domain "peerfund-backend/internal/domain/audit"
	"peerfund-backend/internal/domain/errs"
	"peerfund-backend/pkg/hashing"
	"peerfund-backend/pkg/id"
)

// DecisionLog records automated judgments with a reproducible hash over
// their inputs, outputs and parameter version, so disputes can re-derive
// the hash from the stored entry alone.
type DecisionLog struct {
	Now func() time.Time
}

func NewDecisionLog() *DecisionLog {
	return &DecisionLog{Now: func() time.Time { return time.Now().UTC() }}
}

func (l *DecisionLog) Record(ctx context.Context, repo domain.DecisionRepository, decisionType string, inputs, outputs map[string]any, paramsVersion string) (*domain.DecisionLogEntry, error) {
	h, err := hashing.DecisionSum(inputs, outputs, paramsVersion)
	if err != nil {
		return nil, errs.Integrityf("decision hash: %v", err)
	}
	inJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, errs.Integrityf("decision inputs: %v", err)
	}
	outJSON, err := json.Marshal(outputs)
	if err != nil {
		return nil, errs.Integrityf("decision outputs: %v", err)
	}

	d := &domain.DecisionLogEntry{
		DecisionID:    id.NewID32(),
		DecisionType:  decisionType,
		Inputs:        string(inJSON),
		Outputs:       string(outJSON),
		ParamsVersion: paramsVersion,
		Hash:          h,
		CreatedAt:     l.Now(),
	}
	if err := repo.Append(ctx, d); err != nil {
		return nil, errs.Storage("append decision", err)
	}
	return d, nil
}

// Verify re-hashes a stored entry's own fields and compares against the
// persisted hash. A mismatch signals tampering or a non-reproducible
// decision path and is surfaced as an integrity violation.
func (l *DecisionLog) Verify(entry *domain.DecisionLogEntry) error {
	var inputs, outputs any
	if err := json.Unmarshal([]byte(entry.Inputs), &inputs); err != nil {
		return errs.Integrityf("decision %s: stored inputs unreadable: %v", entry.DecisionID, err)
	}
	if err := json.Unmarshal([]byte(entry.Outputs), &outputs); err != nil {
		return errs.Integrityf("decision %s: stored outputs unreadable: %v", entry.DecisionID, err)
	}
	recomputed, err := hashing.DecisionSum(inputs, outputs, entry.ParamsVersion)
	if err != nil {
		return errs.Integrityf("decision %s: re-hash: %v", entry.DecisionID, err)
	}
	if recomputed != entry.Hash {
		return errs.Integrityf("decision %s: hash mismatch (stored %s, recomputed %s)",
			entry.DecisionID, hashing.Short(entry.Hash), hashing.Short(recomputed))
	}
	return nil
}
