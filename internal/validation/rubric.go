// Package validation holds the pure pass/fail rules for validation sessions:
// the organic point rubric and the paid conversion rule. Persistence of the
// transitions it computes is the caller's job.
package validation

import (
	"time"

	"prospect/internal/domain"
)

// Window and thresholds. The 7-day window and 15-point bar are fixed by the
// rubric, not configuration.
const (
	Window        = 7 * 24 * time.Hour
	RetryWindow   = 90 * 24 * time.Hour
	PassThreshold = 15

	// Paid variant: pass when both hold.
	PaidMinCVR     = 0.04
	PaidMinSignups = 2
)

// Point values per signal. Upvotes are tracked as raw units and convert to
// points by integer division.
const (
	pointsEmailSignup    = 3
	pointsDM             = 4
	pointsBuyComment     = 3
	pointsDetailQuestion = 2
	pointsShare          = 3
	upvotesPerPoint      = 25
)

// Points applies the rubric to a signal ledger:
//
//	3*email_signup + 4*dm + 3*buy_comment + 2*detail_question + 3*share + upvote_unit/25
func Points(counts map[domain.SignalType]int) int {
	return pointsEmailSignup*counts[domain.SignalEmailSignup] +
		pointsDM*counts[domain.SignalDM] +
		pointsBuyComment*counts[domain.SignalBuyComment] +
		pointsDetailQuestion*counts[domain.SignalDetailQuestion] +
		pointsShare*counts[domain.SignalShare] +
		counts[domain.SignalUpvote]/upvotesPerPoint
}

// Result is one evaluation of a session against the clock.
type Result struct {
	Status domain.SessionStatus
	Method domain.ValidationMethod

	// Organic progress.
	Points       int
	PointsNeeded int

	// Paid progress.
	Visits  int
	Signups int
	CVR     float64

	// Set only on a failed result.
	RetryEligibleAfter time.Time
}

// Evaluate computes the session's status at the given instant. It has no side
// effects and is idempotent: a terminal session always evaluates to its
// stored terminal result, it is never re-derived or flipped.
func Evaluate(s *domain.ValidationSession, now time.Time) Result {
	res := Result{Status: s.Status, Method: s.Method}

	switch s.Method {
	case domain.MethodPaid:
		res.Visits = s.Visits
		res.Signups = s.Signups
		if s.Visits > 0 {
			res.CVR = float64(s.Signups) / float64(s.Visits)
		}
	default:
		res.Points = Points(s.Signals)
	}

	if s.Terminal() {
		if s.Status == domain.SessionFailed && s.RetryEligibleAfter != nil {
			res.RetryEligibleAfter = *s.RetryEligibleAfter
		}
		return res
	}

	passed := false
	switch s.Method {
	case domain.MethodPaid:
		passed = res.CVR >= PaidMinCVR && res.Signups >= PaidMinSignups
	default:
		passed = res.Points >= PassThreshold
	}

	switch {
	case passed:
		// An opportunity may pass early; the session need not run the
		// full window once it has cleared the bar.
		res.Status = domain.SessionPassed
	case !now.Before(s.Deadline):
		res.Status = domain.SessionFailed
		res.RetryEligibleAfter = now.Add(RetryWindow)
	default:
		res.Status = domain.SessionRunning
		if s.Method != domain.MethodPaid {
			res.PointsNeeded = PassThreshold - res.Points
		}
	}
	return res
}
