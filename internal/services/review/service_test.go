package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospect/internal/adapters/memory"
	"prospect/internal/domain"
	"prospect/internal/scoring"
	sesssvc "prospect/internal/services/sessions"
	"prospect/internal/validation"
)

func newFixture(t *testing.T, policy Policy) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	sessions := sesssvc.New(store, store, nil, log)
	return New(store, sessions, policy, log), store
}

func seedOpportunity(t *testing.T, store *memory.Store, keyword string, total float64) string {
	t.Helper()
	opp := &domain.Opportunity{
		Title:          "Opportunity " + keyword,
		PrimaryKeyword: keyword,
		Score:          domain.Score{Total: total},
		Status:         domain.StatusDiscovered,
	}
	require.NoError(t, store.CreateOpportunity(context.Background(), opp))
	return opp.ID
}

func TestPendingFiltersAndBands(t *testing.T) {
	svc, store := newFixture(t, Policy{})
	ctx := context.Background()

	seedOpportunity(t, store, "hidden", 42)
	seedOpportunity(t, store, "marginal", 55)
	seedOpportunity(t, store, "good", 65)
	seedOpportunity(t, store, "top", 82)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	// Highest score first; sub-50 never surfaces.
	assert.Equal(t, "top", pending[0].Opportunity.PrimaryKeyword)
	assert.Equal(t, scoring.BandHigh, pending[0].Band)
	assert.Equal(t, scoring.BandGood, pending[1].Band)
	assert.Equal(t, scoring.BandMarginal, pending[2].Band)
}

func TestApproveOrganicOpensSession(t *testing.T) {
	svc, store := newFixture(t, Policy{})
	ctx := context.Background()
	id := seedOpportunity(t, store, "organic", 70)

	sess, err := svc.Approve(ctx, id, domain.MethodOrganic)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, id, sess.OpportunityID)
	assert.Equal(t, domain.MethodOrganic, sess.Method)
	assert.Equal(t, sess.OpenedAt.Add(validation.Window), sess.Deadline)

	opp, err := store.GetOpportunity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidating, opp.Status)

	// Double approval is caller misuse.
	_, err = svc.Approve(ctx, id, domain.MethodOrganic)
	assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)
}

func TestApproveSkipGoesStraightToManufacturing(t *testing.T) {
	svc, store := newFixture(t, Policy{})
	ctx := context.Background()
	id := seedOpportunity(t, store, "skip", 70)

	sess, err := svc.Approve(ctx, id, domain.MethodSkip)
	require.NoError(t, err)
	assert.Nil(t, sess)

	opp, err := store.GetOpportunity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusManufacturing, opp.Status)
}

func TestApprovePaidIsPhaseGated(t *testing.T) {
	ctx := context.Background()

	svc, store := newFixture(t, Policy{CurrentPhase: 0, PaidValidation: true})
	id := seedOpportunity(t, store, "paid-early", 70)
	_, err := svc.Approve(ctx, id, domain.MethodPaid)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)

	svc, store = newFixture(t, Policy{CurrentPhase: 1, PaidValidation: true})
	id = seedOpportunity(t, store, "paid", 70)
	sess, err := svc.Approve(ctx, id, domain.MethodPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodPaid, sess.Method)
}

func TestApproveUnknownTargets(t *testing.T) {
	svc, store := newFixture(t, Policy{})
	ctx := context.Background()

	_, err := svc.Approve(ctx, "missing", domain.MethodOrganic)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	id := seedOpportunity(t, store, "typo", 70)
	_, err = svc.Approve(ctx, id, "express")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
}

func TestRejectSetsRetryMarker(t *testing.T) {
	svc, store := newFixture(t, Policy{})
	ctx := context.Background()
	id := seedOpportunity(t, store, "rejected", 70)

	before := time.Now()
	opp, err := svc.Reject(ctx, id, "no differentiation")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, opp.Status)
	require.NotNil(t, opp.RetryEligibleAfter)
	assert.WithinDuration(t, before.Add(validation.RetryWindow), *opp.RetryEligibleAfter, time.Minute)

	// A rejected opportunity is no longer reviewable.
	_, err = svc.Reject(ctx, id, "again")
	assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)

	_, err = store.GetOpportunity(ctx, id)
	assert.NoError(t, err)
}
