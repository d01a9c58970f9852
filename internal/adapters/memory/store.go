// Package memory implements the repository ports over in-process maps. It
// backs the test suites and DB-less local runs; the Postgres adapter is the
// production implementation of the same contracts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"prospect/internal/domain"
)

type Store struct {
	mu            sync.Mutex
	opportunities map[string]*domain.Opportunity
	sessions      map[string]*domain.ValidationSession
}

func New() *Store {
	return &Store{
		opportunities: make(map[string]*domain.Opportunity),
		sessions:      make(map[string]*domain.ValidationSession),
	}
}

func (st *Store) CreateOpportunity(_ context.Context, opp *domain.Opportunity) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	opp.ID = uuid.NewString()
	opp.CreatedAt = time.Now()
	st.opportunities[opp.ID] = cloneOpportunity(opp)
	return nil
}

func (st *Store) GetOpportunity(_ context.Context, id string) (*domain.Opportunity, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	opp, ok := st.opportunities[id]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "opportunity %s", id)
	}
	return cloneOpportunity(opp), nil
}

func (st *Store) ListByStatus(_ context.Context, status domain.OpportunityStatus) ([]domain.Opportunity, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []domain.Opportunity
	for _, opp := range st.opportunities {
		if opp.Status == status {
			out = append(out, *cloneOpportunity(opp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score.Total > out[j].Score.Total })
	return out, nil
}

func (st *Store) FindDuplicate(_ context.Context, keyword string, since, now time.Time) (*domain.Opportunity, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var newest *domain.Opportunity
	for _, opp := range st.opportunities {
		if opp.PrimaryKeyword != keyword {
			continue
		}
		inPipeline := !opp.CreatedAt.Before(since) &&
			opp.Status != domain.StatusRejected && opp.Status != domain.StatusFailed
		retryBlocked := opp.RetryEligibleAfter != nil && opp.RetryEligibleAfter.After(now)
		if !inPipeline && !retryBlocked {
			continue
		}
		if newest == nil || opp.CreatedAt.After(newest.CreatedAt) {
			newest = opp
		}
	}
	if newest == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "no duplicate for %q", keyword)
	}
	return cloneOpportunity(newest), nil
}

func (st *Store) TransitionOpportunity(_ context.Context, id string, from, to domain.OpportunityStatus, retryAfter *time.Time) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	opp, ok := st.opportunities[id]
	if !ok || opp.Status != from {
		return false, nil
	}
	opp.Status = to
	if retryAfter != nil {
		ra := *retryAfter
		opp.RetryEligibleAfter = &ra
	}
	return true, nil
}

func (st *Store) CreateSession(_ context.Context, s *domain.ValidationSession) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.opportunities[s.OpportunityID]; !ok {
		return domain.Errorf(domain.ErrNotFound, "opportunity %s", s.OpportunityID)
	}
	for _, existing := range st.sessions {
		if existing.OpportunityID == s.OpportunityID && existing.Status == domain.SessionRunning {
			return domain.Errorf(domain.ErrAlreadyOpen, "opportunity %s", s.OpportunityID)
		}
	}
	s.ID = uuid.NewString()
	st.sessions[s.ID] = cloneSession(s)
	return nil
}

func (st *Store) GetSession(_ context.Context, id string) (*domain.ValidationSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "session %s", id)
	}
	return cloneSession(s), nil
}

func (st *Store) IncrementSignal(ctx context.Context, id string, sig domain.SignalType, count int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "session %s", id)
	}
	if s.Status != domain.SessionRunning {
		return domain.Errorf(domain.ErrInvalidState, "session %s is %s", id, s.Status)
	}
	if s.Signals == nil {
		s.Signals = map[domain.SignalType]int{}
	}
	s.Signals[sig] += count
	return nil
}

func (st *Store) AddTraffic(_ context.Context, id string, visits, signups int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "session %s", id)
	}
	if s.Status != domain.SessionRunning {
		return domain.Errorf(domain.ErrInvalidState, "session %s is %s", id, s.Status)
	}
	s.Visits += visits
	s.Signups += signups
	return nil
}

func (st *Store) TransitionSession(_ context.Context, id string, to domain.SessionStatus, failedAt, retryAfter *time.Time) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok || s.Status != domain.SessionRunning {
		return false, nil
	}
	s.Status = to
	if failedAt != nil {
		fa := *failedAt
		s.FailedAt = &fa
	}
	if retryAfter != nil {
		ra := *retryAfter
		s.RetryEligibleAfter = &ra
	}
	return true, nil
}

func (st *Store) ExtendDeadline(_ context.Context, id string, deadline time.Time) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok || s.Status != domain.SessionRunning {
		return false, nil
	}
	s.Deadline = deadline
	return true, nil
}

func (st *Store) ListDue(_ context.Context, now time.Time, limit int) ([]domain.ValidationSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []domain.ValidationSession
	for _, s := range st.sessions {
		if s.Status == domain.SessionRunning && !s.Deadline.After(now) {
			out = append(out, *cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneOpportunity(opp *domain.Opportunity) *domain.Opportunity {
	c := *opp
	c.EvidenceDomains = append([]string(nil), opp.EvidenceDomains...)
	c.Raw.RedditMentionTimes = append([]time.Time(nil), opp.Raw.RedditMentionTimes...)
	if opp.RetryEligibleAfter != nil {
		ra := *opp.RetryEligibleAfter
		c.RetryEligibleAfter = &ra
	}
	return &c
}

func cloneSession(s *domain.ValidationSession) *domain.ValidationSession {
	c := *s
	c.Signals = make(map[domain.SignalType]int, len(s.Signals))
	for k, v := range s.Signals {
		c.Signals[k] = v
	}
	if s.FailedAt != nil {
		fa := *s.FailedAt
		c.FailedAt = &fa
	}
	if s.RetryEligibleAfter != nil {
		ra := *s.RetryEligibleAfter
		c.RetryEligibleAfter = &ra
	}
	return &c
}
