package ports

import (
	"context"
	"time"

	"prospect/internal/domain"
)

// OpportunityRepository stores scored opportunities.
type OpportunityRepository interface {
	CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error
	GetOpportunity(ctx context.Context, id string) (*domain.Opportunity, error)
	ListByStatus(ctx context.Context, status domain.OpportunityStatus) ([]domain.Opportunity, error)
	// FindDuplicate returns the newest opportunity with the same primary
	// keyword that is either still in the pipeline since the given time or
	// carries an unexpired retry marker. domain.ErrNotFound when clear.
	FindDuplicate(ctx context.Context, keyword string, since, now time.Time) (*domain.Opportunity, error)
	// TransitionOpportunity is a compare-and-set on status. Returns false
	// without error when the row was not in the expected state.
	TransitionOpportunity(ctx context.Context, id string, from, to domain.OpportunityStatus, retryAfter *time.Time) (bool, error)
}

// SessionRepository stores validation sessions. Counter writes must be
// serialized per session (atomic SQL increments or an equivalent lock) so
// concurrent recorders never lose increments.
type SessionRepository interface {
	// CreateSession fails with domain.ErrAlreadyOpen when a running session
	// already exists for the opportunity.
	CreateSession(ctx context.Context, s *domain.ValidationSession) error
	GetSession(ctx context.Context, id string) (*domain.ValidationSession, error)
	// IncrementSignal adds to one signal counter, guarded on running status.
	IncrementSignal(ctx context.Context, id string, sig domain.SignalType, count int) error
	// AddTraffic adds paid-variant visits/signups, guarded on running status.
	AddTraffic(ctx context.Context, id string, visits, signups int) error
	// TransitionSession is a compare-and-set from running to a terminal
	// status; only the first writer wins. Returns false when the session was
	// no longer running.
	TransitionSession(ctx context.Context, id string, to domain.SessionStatus, failedAt, retryAfter *time.Time) (bool, error)
	// ExtendDeadline pushes the deadline of a running session. Returns false
	// when the session was not running.
	ExtendDeadline(ctx context.Context, id string, deadline time.Time) (bool, error)
	// ListDue returns running sessions whose deadline has passed.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ValidationSession, error)
}
