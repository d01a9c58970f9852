// Package review implements the gate-1 human review surface: listing
// surfaced opportunities by priority band and routing an approval into one of
// the validation paths.
package review

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"prospect/internal/domain"
	"prospect/internal/ports"
	"prospect/internal/scoring"
	"prospect/internal/validation"
)

// Policy carries the business-phase configuration the review gate applies.
// Passed in explicitly; never global state.
type Policy struct {
	CurrentPhase   int
	PaidValidation bool
}

type Service struct {
	opps     ports.OpportunityRepository
	sessions ports.Sessions
	policy   Policy
	now      func() time.Time
	log      *logrus.Logger
}

func New(opps ports.OpportunityRepository, sessions ports.Sessions, policy Policy, log *logrus.Logger) *Service {
	return &Service{opps: opps, sessions: sessions, policy: policy, now: time.Now, log: log}
}

// Pending returns discovered opportunities that clear the surfacing bar,
// highest score first. Anything under 50 stays invisible to the reviewer.
func (s *Service) Pending(ctx context.Context) ([]ports.PendingOpportunity, error) {
	opps, err := s.opps.ListByStatus(ctx, domain.StatusDiscovered)
	if err != nil {
		return nil, err
	}
	out := make([]ports.PendingOpportunity, 0, len(opps))
	for _, opp := range opps {
		band, surfaced := scoring.Surface(opp.Score.Total)
		if !surfaced {
			continue
		}
		out = append(out, ports.PendingOpportunity{Opportunity: opp, Band: band})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Opportunity.Score.Total > out[j].Opportunity.Score.Total
	})
	return out, nil
}

// Approve routes a discovered opportunity into organic validation, paid
// validation, or straight to manufacturing when validation is skipped.
func (s *Service) Approve(ctx context.Context, opportunityID string, method domain.ValidationMethod) (*domain.ValidationSession, error) {
	switch method {
	case domain.MethodOrganic:
	case domain.MethodPaid:
		if !s.policy.PaidValidation || s.policy.CurrentPhase < 1 {
			return nil, domain.Errorf(domain.ErrInvalidInput, "paid validation requires phase >= 1 and the paid flag")
		}
	case domain.MethodSkip:
		return nil, s.transition(ctx, opportunityID, domain.StatusManufacturing, nil)
	default:
		return nil, domain.Errorf(domain.ErrInvalidInput, "unknown validation method %q", method)
	}

	if err := s.transition(ctx, opportunityID, domain.StatusValidating, nil); err != nil {
		return nil, err
	}
	sess, err := s.sessions.Open(ctx, opportunityID, method)
	if err != nil {
		// Undo the status move so the opportunity is reviewable again.
		if _, rbErr := s.opps.TransitionOpportunity(ctx, opportunityID, domain.StatusValidating, domain.StatusDiscovered, nil); rbErr != nil {
			s.log.WithError(rbErr).WithField("opportunity_id", opportunityID).Error("approve rollback failed")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"session_id":     sess.ID,
		"method":         method,
	}).Info("gate1 approved")
	return sess, nil
}

// Reject archives an opportunity and blocks re-ingestion of its keyword for
// the retry window.
func (s *Service) Reject(ctx context.Context, opportunityID string, reason string) (*domain.Opportunity, error) {
	retryAfter := s.now().Add(validation.RetryWindow)
	if err := s.transition(ctx, opportunityID, domain.StatusRejected, &retryAfter); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"opportunity_id":       opportunityID,
		"reason":               reason,
		"retry_eligible_after": retryAfter,
	}).Info("gate1 rejected")
	return s.opps.GetOpportunity(ctx, opportunityID)
}

func (s *Service) transition(ctx context.Context, id string, to domain.OpportunityStatus, retryAfter *time.Time) error {
	ok, err := s.opps.TransitionOpportunity(ctx, id, domain.StatusDiscovered, to, retryAfter)
	if err != nil {
		return err
	}
	if !ok {
		// Distinguish a missing row from one already past review.
		if _, err := s.opps.GetOpportunity(ctx, id); err != nil {
			return err
		}
		return domain.Errorf(domain.ErrInvalidState, "opportunity %s is not awaiting review", id)
	}
	return nil
}
