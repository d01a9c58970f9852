// Package sessions owns the validation session lifecycle: opening windows,
// recording signals, and persisting the single running -> terminal transition
// that the pure rubric in internal/validation computes.
package sessions

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"prospect/internal/domain"
	"prospect/internal/ports"
	"prospect/internal/validation"
)

type Service struct {
	sessions ports.SessionRepository
	opps     ports.OpportunityRepository
	notifier ports.Notifier
	now      func() time.Time
	log      *logrus.Logger
}

func New(sessions ports.SessionRepository, opps ports.OpportunityRepository, notifier ports.Notifier, log *logrus.Logger) *Service {
	if notifier == nil {
		notifier = ports.NoopNotifier{}
	}
	return &Service{sessions: sessions, opps: opps, notifier: notifier, now: time.Now, log: log}
}

// Open starts a validation window for an opportunity. At most one running
// session may exist per opportunity; a second open fails with ErrAlreadyOpen.
func (s *Service) Open(ctx context.Context, opportunityID string, method domain.ValidationMethod) (*domain.ValidationSession, error) {
	if method != domain.MethodOrganic && method != domain.MethodPaid {
		return nil, domain.Errorf(domain.ErrInvalidInput, "unknown session method %q", method)
	}
	if _, err := s.opps.GetOpportunity(ctx, opportunityID); err != nil {
		return nil, err
	}

	now := s.now()
	sess := &domain.ValidationSession{
		OpportunityID: opportunityID,
		Method:        method,
		OpenedAt:      now,
		Deadline:      now.Add(validation.Window),
		Signals:       map[domain.SignalType]int{},
		Status:        domain.SessionRunning,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"session_id":     sess.ID,
		"opportunity_id": opportunityID,
		"method":         method,
		"deadline":       sess.Deadline,
	}).Info("validation session opened")
	return sess, nil
}

// RecordSignal appends to the organic point ledger. The session is evaluated
// against the clock before the write is accepted: a session that has already
// cleared the bar or run out its window is settled first and the late write
// rejected.
func (s *Service) RecordSignal(ctx context.Context, sessionID string, sig domain.SignalType, count int) (*domain.ValidationSession, error) {
	if !sig.Valid() {
		return nil, domain.Errorf(domain.ErrInvalidInput, "unknown signal type %q", sig)
	}
	if count < 1 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "signal count must be >= 1, got %d", count)
	}

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Method != domain.MethodOrganic {
		return nil, domain.Errorf(domain.ErrInvalidInput, "session %s tracks paid traffic, not organic signals", sessionID)
	}
	if err := s.guardRunning(ctx, sess); err != nil {
		return nil, err
	}

	if err := s.sessions.IncrementSignal(ctx, sessionID, sig, count); err != nil {
		return nil, err
	}
	return s.sessions.GetSession(ctx, sessionID)
}

// RecordTraffic appends paid-variant visits and signups.
func (s *Service) RecordTraffic(ctx context.Context, sessionID string, visits, signups int) (*domain.ValidationSession, error) {
	if visits < 0 || signups < 0 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "visits and signups must be >= 0")
	}
	if visits == 0 && signups == 0 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "nothing to record")
	}

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Method != domain.MethodPaid {
		return nil, domain.Errorf(domain.ErrInvalidInput, "session %s tracks organic signals, not paid traffic", sessionID)
	}
	if err := s.guardRunning(ctx, sess); err != nil {
		return nil, err
	}

	if err := s.sessions.AddTraffic(ctx, sessionID, visits, signups); err != nil {
		return nil, err
	}
	return s.sessions.GetSession(ctx, sessionID)
}

// Evaluate computes the session's outcome at the current instant and persists
// any running -> terminal transition. Redundant calls agree: a terminal
// session returns its stored result unchanged.
func (s *Service) Evaluate(ctx context.Context, sessionID string) (*domain.ValidationSession, validation.Result, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, validation.Result{}, err
	}
	res := validation.Evaluate(sess, s.now())
	if sess.Status == domain.SessionRunning && res.Status != domain.SessionRunning {
		if err := s.settle(ctx, sess, res); err != nil {
			return nil, validation.Result{}, err
		}
		sess, err = s.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return nil, validation.Result{}, err
		}
		// Re-read through the rubric so racing evaluators all report the
		// transition the first writer persisted.
		res = validation.Evaluate(sess, s.now())
	}
	return sess, res, nil
}

// ForceStatus is the reviewer's manual override ("Mark Validated" / "Mark
// Failed"): it bypasses the rubric but still only moves a running session.
func (s *Service) ForceStatus(ctx context.Context, sessionID string, target domain.SessionStatus) (validation.Result, error) {
	if target != domain.SessionPassed && target != domain.SessionFailed {
		return validation.Result{}, domain.Errorf(domain.ErrInvalidInput, "cannot force status %q", target)
	}
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return validation.Result{}, err
	}
	if sess.Terminal() {
		return validation.Result{}, domain.Errorf(domain.ErrInvalidState, "session %s is already %s", sessionID, sess.Status)
	}
	res := validation.Evaluate(sess, s.now())
	res.Status = target
	if target == domain.SessionFailed {
		res.RetryEligibleAfter = s.now().Add(validation.RetryWindow)
	}
	if err := s.settle(ctx, sess, res); err != nil {
		return validation.Result{}, err
	}
	s.log.WithFields(logrus.Fields{"session_id": sessionID, "status": target}).Warn("session status forced")
	return res, nil
}

// ExtendDeadline pushes a running session's window out ("Extend 7 Days").
func (s *Service) ExtendDeadline(ctx context.Context, sessionID string, days int) (*domain.ValidationSession, error) {
	if days < 1 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "extension must be >= 1 day, got %d", days)
	}
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.SessionRunning {
		return nil, domain.Errorf(domain.ErrInvalidState, "session %s is %s", sessionID, sess.Status)
	}
	deadline := sess.Deadline.Add(time.Duration(days) * 24 * time.Hour)
	ok, err := s.sessions.ExtendDeadline(ctx, sessionID, deadline)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Errorf(domain.ErrInvalidState, "session %s is no longer running", sessionID)
	}
	return s.sessions.GetSession(ctx, sessionID)
}

// guardRunning settles a session whose outcome is already determined and
// rejects the pending write.
func (s *Service) guardRunning(ctx context.Context, sess *domain.ValidationSession) error {
	if sess.Terminal() {
		return domain.Errorf(domain.ErrInvalidState, "session %s is %s", sess.ID, sess.Status)
	}
	if res := validation.Evaluate(sess, s.now()); res.Status != domain.SessionRunning {
		if err := s.settle(ctx, sess, res); err != nil {
			return err
		}
		return domain.Errorf(domain.ErrInvalidState, "session %s settled as %s before the write", sess.ID, res.Status)
	}
	return nil
}

// settle persists a terminal result with compare-and-set on running status.
// Only the first writer's transition is honored; losing a race is not an
// error because the winner persisted the same rubric outcome.
func (s *Service) settle(ctx context.Context, sess *domain.ValidationSession, res validation.Result) error {
	var failedAt, retryAfter *time.Time
	if res.Status == domain.SessionFailed {
		now := s.now()
		failedAt = &now
		if !res.RetryEligibleAfter.IsZero() {
			ra := res.RetryEligibleAfter
			retryAfter = &ra
		}
	}

	won, err := s.sessions.TransitionSession(ctx, sess.ID, res.Status, failedAt, retryAfter)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	switch res.Status {
	case domain.SessionPassed:
		if _, err := s.opps.TransitionOpportunity(ctx, sess.OpportunityID, domain.StatusValidating, domain.StatusValidated, nil); err != nil {
			return err
		}
		trig := ports.ManufacturingTrigger{
			OpportunityID: sess.OpportunityID,
			SessionID:     sess.ID,
			Method:        sess.Method,
			Points:        res.Points,
			PassedAt:      s.now(),
		}
		if err := s.notifier.ValidationPassed(ctx, trig); err != nil {
			// The transition stands; the trigger can be replayed by hand.
			s.log.WithError(err).WithField("session_id", sess.ID).Error("manufacturing trigger failed")
		}
		s.log.WithFields(logrus.Fields{
			"session_id":     sess.ID,
			"opportunity_id": sess.OpportunityID,
			"points":         res.Points,
		}).Info("validation passed")
	case domain.SessionFailed:
		if _, err := s.opps.TransitionOpportunity(ctx, sess.OpportunityID, domain.StatusValidating, domain.StatusFailed, retryAfter); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"session_id":     sess.ID,
			"opportunity_id": sess.OpportunityID,
			"points":         res.Points,
		}).Info("validation failed")
	}
	return nil
}
