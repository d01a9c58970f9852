package ports

import (
	"context"

	"prospect/internal/domain"
	"prospect/internal/scoring"
	"prospect/internal/validation"
)

// IngestInput is one candidate idea from a discovery pass.
type IngestInput struct {
	Title          string
	PrimaryKeyword string
	Raw            domain.RawSignals
	EvidenceURLs   []string
}

// Opportunities scores and stores discovered ideas.
type Opportunities interface {
	Ingest(ctx context.Context, in IngestInput) (*domain.Opportunity, error)
	Get(ctx context.Context, id string) (*domain.Opportunity, error)
}

// PendingOpportunity is a surfaced opportunity with its priority band.
type PendingOpportunity struct {
	Opportunity domain.Opportunity
	Band        scoring.Band
}

// Review is the gate-1 human review surface.
type Review interface {
	Pending(ctx context.Context) ([]PendingOpportunity, error)
	// Approve moves an opportunity into validation (organic or paid) or
	// straight to manufacturing (skip). The returned session is nil for skip.
	Approve(ctx context.Context, opportunityID string, method domain.ValidationMethod) (*domain.ValidationSession, error)
	Reject(ctx context.Context, opportunityID string, reason string) (*domain.Opportunity, error)
}

// Sessions manages validation session lifecycles.
type Sessions interface {
	Open(ctx context.Context, opportunityID string, method domain.ValidationMethod) (*domain.ValidationSession, error)
	RecordSignal(ctx context.Context, sessionID string, sig domain.SignalType, count int) (*domain.ValidationSession, error)
	RecordTraffic(ctx context.Context, sessionID string, visits, signups int) (*domain.ValidationSession, error)
	// Evaluate computes the session's current outcome and persists any
	// running -> terminal transition exactly once.
	Evaluate(ctx context.Context, sessionID string) (*domain.ValidationSession, validation.Result, error)
	// ForceStatus and ExtendDeadline are the manual reviewer overrides; they
	// bypass the point rubric but respect terminal-state immutability.
	ForceStatus(ctx context.Context, sessionID string, target domain.SessionStatus) (validation.Result, error)
	ExtendDeadline(ctx context.Context, sessionID string, days int) (*domain.ValidationSession, error)
}
