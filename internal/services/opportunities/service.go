package opportunities

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"

	"prospect/internal/domain"
	"prospect/internal/ports"
	"prospect/internal/scoring"
)

type Service struct {
	repo     ports.OpportunityRepository
	scorer   *scoring.Scorer
	lookback time.Duration
	now      func() time.Time
	log      *logrus.Logger
}

func New(repo ports.OpportunityRepository, scorer *scoring.Scorer, lookback time.Duration, log *logrus.Logger) *Service {
	return &Service{
		repo:     repo,
		scorer:   scorer,
		lookback: lookback,
		now:      time.Now,
		log:      log,
	}
}

// Ingest validates one discovery candidate, scores it, and stores it as
// discovered. Candidates whose keyword matches a recent or retry-blocked
// opportunity are refused with domain.ErrDuplicate.
func (s *Service) Ingest(ctx context.Context, in ports.IngestInput) (*domain.Opportunity, error) {
	title := strings.TrimSpace(in.Title)
	keyword := strings.ToLower(strings.TrimSpace(in.PrimaryKeyword))
	if title == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "title is required")
	}
	if keyword == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "primary_keyword is required")
	}
	if err := in.Raw.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	dup, err := s.repo.FindDuplicate(ctx, keyword, now.Add(-s.lookback), now)
	if err == nil {
		return nil, domain.Errorf(domain.ErrDuplicate, "keyword %q already tracked by opportunity %s", keyword, dup.ID)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	opp := &domain.Opportunity{
		Title:           title,
		PrimaryKeyword:  keyword,
		Raw:             in.Raw,
		Score:           s.scorer.Score(in.Raw, now),
		Status:          domain.StatusDiscovered,
		EvidenceDomains: registrableDomains(in.EvidenceURLs),
	}
	if err := s.repo.CreateOpportunity(ctx, opp); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"opportunity_id": opp.ID,
		"keyword":        keyword,
		"score":          opp.Score.Total,
		"confidence":     opp.Score.Confidence,
	}).Info("opportunity ingested")
	return opp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Opportunity, error) {
	return s.repo.GetOpportunity(ctx, id)
}

// registrableDomains reduces evidence URLs to their deduplicated eTLD+1 set,
// which is what the duplicate review context cares about. Unparseable URLs
// are skipped rather than failing the ingest.
func registrableDomains(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil {
			registrable = host
		}
		if _, ok := seen[registrable]; ok {
			continue
		}
		seen[registrable] = struct{}{}
		out = append(out, registrable)
	}
	return out
}
