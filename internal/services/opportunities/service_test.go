package opportunities

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
	"prospect/internal/ports"
	"prospect/internal/scoring"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(store, scoring.New(), 90*24*time.Hour, log), store
}

func validInput() ports.IngestInput {
	return ports.IngestInput{
		Title:          "AI Prompt Pack for Freelancers",
		PrimaryKeyword: "Freelance Prompts",
		Raw: domain.RawSignals{
			RedditMentions:     12,
			TwitterMentions:    4,
			TrendScore:         0.4,
			CPC:                2.1,
			CompetitorCount:    2,
			CompetitorStrength: domain.CompetitorWeak,
		},
		EvidenceURLs: []string{
			"https://www.reddit.com/r/freelance/comments/abc",
			"https://old.reddit.com/r/freelance/comments/def",
			"https://x.com/someone/status/123",
			"not a url at all://",
		},
	}
}

func TestIngestScoresAndStores(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	opp, err := svc.Ingest(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, opp.ID)
	assert.Equal(t, domain.StatusDiscovered, opp.Status)
	assert.Equal(t, "freelance prompts", opp.PrimaryKeyword)
	assert.Greater(t, opp.Score.Total, 0.0)

	stored, err := store.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, opp.Score.Total, stored.Score.Total)
}

func TestIngestNormalizesEvidenceDomains(t *testing.T) {
	svc, _ := newService(t)

	opp, err := svc.Ingest(context.Background(), validInput())
	require.NoError(t, err)
	// www and old subdomains collapse to one registrable domain; the
	// malformed URL is skipped.
	assert.Equal(t, []string{"reddit.com", "x.com"}, opp.EvidenceDomains)
}

func TestIngestRejectsBadInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	mut := []struct {
		name string
		mod  func(in ports.IngestInput) ports.IngestInput
	}{
		{"empty title", func(in ports.IngestInput) ports.IngestInput { in.Title = "  "; return in }},
		{"empty keyword", func(in ports.IngestInput) ports.IngestInput { in.PrimaryKeyword = ""; return in }},
		{"negative mentions", func(in ports.IngestInput) ports.IngestInput { in.Raw.RedditMentions = -1; return in }},
		{"trend out of range", func(in ports.IngestInput) ports.IngestInput { in.Raw.TrendScore = 2; return in }},
	}
	for _, tc := range mut {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Ingest(ctx, tc.mod(validInput()))
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestIngestRefusesDuplicateKeyword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, validInput())
	assert.True(t, errors.Is(err, domain.ErrDuplicate), "got %v", err)

	// Case and whitespace differences still collide.
	in := validInput()
	in.PrimaryKeyword = "  FREELANCE PROMPTS "
	_, err = svc.Ingest(ctx, in)
	assert.True(t, errors.Is(err, domain.ErrDuplicate), "got %v", err)
}

func TestIngestAllowsRetryAfterMarkerExpires(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, validInput())
	require.NoError(t, err)

	// Reject it with an expired retry marker and age it out of the
	// pipeline lookback.
	expired := time.Now().Add(-time.Hour)
	ok, err := store.TransitionOpportunity(ctx, first.ID, domain.StatusDiscovered, domain.StatusRejected, &expired)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Ingest(ctx, validInput())
	assert.NoError(t, err)
}
