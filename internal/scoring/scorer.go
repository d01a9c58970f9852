// Package scoring converts raw discovery signals into a bounded 0-100
// priority score. The scorer is a pure function of its inputs: no hidden
// state, no I/O, and it never errors -- out-of-range input is rejected
// upstream by domain.RawSignals.Validate.
package scoring

import (
	"math"
	"time"

	"prospect/internal/domain"
)

// Sub-score ceilings and penalty table.
const (
	maxDemand  = 50
	maxIntent  = 40
	maxReddit  = 30
	maxTwitter = 10
	maxTrend   = 10
	maxCPC     = 20
	maxComp    = 20

	// Points per mention before capping. Full reddit marks at 40 fresh
	// mentions, full twitter marks at 20.
	redditPerMention  = 0.75
	twitterPerMention = 0.5

	// Points per competitor in a weak (validated, non-dominant) market.
	compPerCompetitor = 5

	penaltyStrong = -20
	penaltyWeak   = -5
	penaltyNone   = -10 // unvalidated-market risk
)

// DecayFunc weights a mention by its age. Must return a value in [0,1] and be
// non-increasing in age.
type DecayFunc func(age time.Duration) float64

// CPCCurve maps a cost-per-click to intent points in [0,maxCPC]. Must be
// monotone non-decreasing.
type CPCCurve func(cpc float64) float64

// NoDecay treats every mention at full weight. This is the default: when
// decay inputs are unavailable, older evidence counts the same as new.
func NoDecay(time.Duration) float64 { return 1 }

// LinearDecay returns a curve whose weight falls linearly from 1 to 0 over
// the window.
func LinearDecay(window time.Duration) DecayFunc {
	return func(age time.Duration) float64 {
		if age <= 0 {
			return 1
		}
		if age >= window {
			return 0
		}
		return 1 - float64(age)/float64(window)
	}
}

// ExpDecay returns an exponential falloff with the given half-life.
func ExpDecay(halfLife time.Duration) DecayFunc {
	return func(age time.Duration) float64 {
		if age <= 0 {
			return 1
		}
		return math.Exp2(-float64(age) / float64(halfLife))
	}
}

// RampCPC is the default CPC curve: a linear ramp reaching the 20-point cap
// at $3.00 CPC and saturating above ("$3+ CPC = high intent").
func RampCPC(cpc float64) float64 {
	return math.Min(maxCPC, cpc/3.0*maxCPC)
}

type Scorer struct {
	decay DecayFunc
	cpc   CPCCurve
}

type Option func(*Scorer)

// WithDecay swaps the freshness decay curve applied to timestamped mentions.
func WithDecay(fn DecayFunc) Option { return func(s *Scorer) { s.decay = fn } }

// WithCPCCurve swaps the CPC-to-points mapping.
func WithCPCCurve(fn CPCCurve) Option { return func(s *Scorer) { s.cpc = fn } }

func New(opts ...Option) *Scorer {
	s := &Scorer{decay: NoDecay, cpc: RampCPC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score maps validated raw signals to demand/intent/penalty sub-scores and a
// clamped total. now anchors freshness decay for timestamped mentions.
func (s *Scorer) Score(raw domain.RawSignals, now time.Time) domain.Score {
	demand := math.Min(maxDemand, s.redditPoints(raw, now)+s.twitterPoints(raw)+trendPoints(raw))
	intent := math.Min(maxIntent, math.Min(maxCPC, s.cpc(raw.CPC))+competitorPoints(raw))
	penalty := competitionPenalty(raw.CompetitorStrength)

	total := demand + intent + penalty
	total = math.Max(0, math.Min(total, 100))

	return domain.Score{
		Demand:             demand,
		Intent:             intent,
		CompetitionPenalty: penalty,
		Total:              total,
		Confidence:         confidence(raw),
	}
}

// redditPoints weights timestamped mentions through the decay curve; mentions
// without a timestamp count at full weight.
func (s *Scorer) redditPoints(raw domain.RawSignals, now time.Time) float64 {
	weighted := float64(raw.RedditMentions - len(raw.RedditMentionTimes))
	for _, t := range raw.RedditMentionTimes {
		weighted += s.decay(now.Sub(t))
	}
	return math.Min(maxReddit, weighted*redditPerMention)
}

func (s *Scorer) twitterPoints(raw domain.RawSignals) float64 {
	return math.Min(maxTwitter, float64(raw.TwitterMentions)*twitterPerMention)
}

func trendPoints(raw domain.RawSignals) float64 {
	return math.Min(maxTrend, raw.TrendScore*10)
}

// competitorPoints rewards an existing, non-dominant market: competitors with
// weak strength signal validated demand. Strong (saturated) and none earn
// nothing here; they are handled by the penalty instead.
func competitorPoints(raw domain.RawSignals) float64 {
	if raw.CompetitorStrength != domain.CompetitorWeak {
		return 0
	}
	return math.Min(maxComp, float64(raw.CompetitorCount)*compPerCompetitor)
}

func competitionPenalty(strength domain.CompetitorStrength) float64 {
	switch strength {
	case domain.CompetitorStrong:
		return penaltyStrong
	case domain.CompetitorWeak:
		return penaltyWeak
	default:
		return penaltyNone
	}
}

// confidence counts how many demand sources supplied non-trivial data. All
// three -> high, two -> medium, one or none -> low. Monotone in the number of
// available sources.
func confidence(raw domain.RawSignals) domain.Confidence {
	sources := 0
	if raw.RedditMentions > 0 {
		sources++
	}
	if raw.TwitterMentions > 0 {
		sources++
	}
	if raw.TrendScore > 0 {
		sources++
	}
	switch {
	case sources == 3:
		return domain.ConfidenceHigh
	case sources == 2:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
