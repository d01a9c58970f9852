package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"prospect/internal/domain"
)

func organicSession(opened time.Time, counts map[domain.SignalType]int) *domain.ValidationSession {
	return &domain.ValidationSession{
		ID:            "s1",
		OpportunityID: "o1",
		Method:        domain.MethodOrganic,
		OpenedAt:      opened,
		Deadline:      opened.Add(Window),
		Signals:       counts,
		Status:        domain.SessionRunning,
	}
}

func TestPointsRubric(t *testing.T) {
	cases := []struct {
		name   string
		counts map[domain.SignalType]int
		want   int
	}{
		{"empty", nil, 0},
		{"five signups hit the bar exactly", map[domain.SignalType]int{domain.SignalEmailSignup: 5}, 15},
		{"signups plus dms", map[domain.SignalType]int{domain.SignalEmailSignup: 2, domain.SignalDM: 3}, 18},
		{"dms alone clear the bar", map[domain.SignalType]int{domain.SignalDM: 4}, 16},
		{"signups alone below the bar", map[domain.SignalType]int{domain.SignalEmailSignup: 2}, 6},
		{"upvotes floor-divide by 25", map[domain.SignalType]int{domain.SignalUpvote: 100}, 4},
		{"upvotes below a unit count nothing", map[domain.SignalType]int{domain.SignalUpvote: 24}, 0},
		{"mixed ledger", map[domain.SignalType]int{
			domain.SignalBuyComment:     1,
			domain.SignalDetailQuestion: 2,
			domain.SignalShare:          1,
			domain.SignalUpvote:         30,
		}, 3 + 4 + 3 + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Points(tc.counts))
		})
	}
}

func TestEvaluatePassesAtFifteenPoints(t *testing.T) {
	opened := time.Now()
	s := organicSession(opened, map[domain.SignalType]int{domain.SignalEmailSignup: 5})

	// The bar is >= 15, not > 15, and passing needs no deadline.
	res := Evaluate(s, opened.Add(time.Hour))
	assert.Equal(t, domain.SessionPassed, res.Status)
	assert.Equal(t, 15, res.Points)
}

func TestEvaluatePassesEvenAfterDeadline(t *testing.T) {
	opened := time.Now()
	s := organicSession(opened, map[domain.SignalType]int{domain.SignalDM: 4})

	res := Evaluate(s, opened.Add(Window+time.Hour))
	assert.Equal(t, domain.SessionPassed, res.Status)
	assert.Equal(t, 16, res.Points)
}

func TestEvaluateRunningReportsProgress(t *testing.T) {
	opened := time.Now()
	s := organicSession(opened, map[domain.SignalType]int{domain.SignalEmailSignup: 2})

	res := Evaluate(s, opened.Add(time.Hour))
	assert.Equal(t, domain.SessionRunning, res.Status)
	assert.Equal(t, 6, res.Points)
	assert.Equal(t, 9, res.PointsNeeded)
}

func TestEvaluateFailsOnlyAtDeadline(t *testing.T) {
	opened := time.Now()
	s := organicSession(opened, map[domain.SignalType]int{domain.SignalUpvote: 100})

	before := Evaluate(s, opened.Add(Window-time.Second))
	assert.Equal(t, domain.SessionRunning, before.Status)
	assert.Equal(t, 4, before.Points)

	atDeadline := Evaluate(s, opened.Add(Window))
	assert.Equal(t, domain.SessionFailed, atDeadline.Status)
	assert.Equal(t, opened.Add(Window).Add(RetryWindow), atDeadline.RetryEligibleAfter)
}

func TestEvaluateTerminalIsIdempotent(t *testing.T) {
	opened := time.Now()
	retry := opened.Add(Window).Add(RetryWindow)
	s := organicSession(opened, map[domain.SignalType]int{domain.SignalEmailSignup: 5})
	s.Status = domain.SessionFailed
	s.RetryEligibleAfter = &retry

	// A stored terminal status is never re-derived, even though the ledger
	// would evaluate to passed today.
	first := Evaluate(s, opened.Add(2*Window))
	second := Evaluate(s, opened.Add(3*Window))
	assert.Equal(t, domain.SessionFailed, first.Status)
	assert.Equal(t, first, second)
	assert.Equal(t, retry, first.RetryEligibleAfter)
}

func TestEvaluatePaidVariant(t *testing.T) {
	opened := time.Now()
	paid := func(visits, signups int) *domain.ValidationSession {
		return &domain.ValidationSession{
			Method:   domain.MethodPaid,
			OpenedAt: opened,
			Deadline: opened.Add(Window),
			Visits:   visits,
			Signups:  signups,
			Status:   domain.SessionRunning,
		}
	}

	// 4% CVR and 2 signups both required.
	res := Evaluate(paid(50, 2), opened.Add(time.Hour))
	assert.Equal(t, domain.SessionPassed, res.Status)
	assert.InDelta(t, 0.04, res.CVR, 1e-9)

	// High CVR but a single signup is not enough.
	res = Evaluate(paid(10, 1), opened.Add(time.Hour))
	assert.Equal(t, domain.SessionRunning, res.Status)

	// Enough signups but diluted CVR.
	res = Evaluate(paid(200, 3), opened.Add(time.Hour))
	assert.Equal(t, domain.SessionRunning, res.Status)

	// Zero visits never divides by zero.
	res = Evaluate(paid(0, 0), opened.Add(time.Hour))
	assert.Equal(t, domain.SessionRunning, res.Status)
	assert.Equal(t, 0.0, res.CVR)

	// Deadline fails the paid variant the same way.
	res = Evaluate(paid(200, 3), opened.Add(Window))
	assert.Equal(t, domain.SessionFailed, res.Status)
}
