package domain

import "time"

// Core domain models used internally. API request/response types live in the
// HTTP adapter; keep these decoupled where helpful.

type CompetitorStrength string

const (
	CompetitorNone   CompetitorStrength = "none"
	CompetitorWeak   CompetitorStrength = "weak"
	CompetitorStrong CompetitorStrength = "strong"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type OpportunityStatus string

const (
	StatusDiscovered    OpportunityStatus = "discovered"
	StatusValidating    OpportunityStatus = "validating"
	StatusValidated     OpportunityStatus = "validated"
	StatusFailed        OpportunityStatus = "failed"
	StatusRejected      OpportunityStatus = "rejected"
	StatusManufacturing OpportunityStatus = "manufacturing"
)

type ValidationMethod string

const (
	MethodOrganic ValidationMethod = "organic"
	MethodPaid    ValidationMethod = "paid"
	MethodSkip    ValidationMethod = "skip"
)

type SessionStatus string

const (
	SessionRunning SessionStatus = "running"
	SessionPassed  SessionStatus = "passed"
	SessionFailed  SessionStatus = "failed"
)

// SignalType is the closed set of organic validation signals. No dynamically
// named types: the point table must stay auditable.
type SignalType string

const (
	SignalEmailSignup    SignalType = "email_signup"
	SignalDM             SignalType = "dm"
	SignalBuyComment     SignalType = "buy_comment"
	SignalDetailQuestion SignalType = "detail_question"
	SignalShare          SignalType = "share"
	SignalUpvote         SignalType = "upvote_unit"
)

// SignalTypes lists every valid signal type.
var SignalTypes = []SignalType{
	SignalEmailSignup,
	SignalDM,
	SignalBuyComment,
	SignalDetailQuestion,
	SignalShare,
	SignalUpvote,
}

func (s SignalType) Valid() bool {
	for _, t := range SignalTypes {
		if s == t {
			return true
		}
	}
	return false
}

// RawSignals holds the measured discovery signals for one candidate idea.
// Created once per discovery pass and consumed exactly once by the scorer.
type RawSignals struct {
	RedditMentions     int
	RedditMentionTimes []time.Time // optional per-mention timestamps for freshness decay
	TwitterMentions    int
	TrendScore         float64 // normalized interest in [0,1]
	CPC                float64 // cost-per-click, commercial-intent proxy
	CompetitorCount    int
	CompetitorStrength CompetitorStrength
}

// Validate rejects out-of-range discovery data at the boundary. Bad input
// must be visible to the caller, never clamped away inside the scorer.
func (r RawSignals) Validate() error {
	switch {
	case r.RedditMentions < 0:
		return Errorf(ErrInvalidInput, "reddit_mentions must be >= 0, got %d", r.RedditMentions)
	case r.TwitterMentions < 0:
		return Errorf(ErrInvalidInput, "twitter_mentions must be >= 0, got %d", r.TwitterMentions)
	case r.TrendScore < 0 || r.TrendScore > 1:
		return Errorf(ErrInvalidInput, "trend_score must be in [0,1], got %v", r.TrendScore)
	case r.CPC < 0:
		return Errorf(ErrInvalidInput, "cpc must be >= 0, got %v", r.CPC)
	case r.CompetitorCount < 0:
		return Errorf(ErrInvalidInput, "competitor_count must be >= 0, got %d", r.CompetitorCount)
	case len(r.RedditMentionTimes) > r.RedditMentions:
		return Errorf(ErrInvalidInput, "more mention timestamps (%d) than mentions (%d)",
			len(r.RedditMentionTimes), r.RedditMentions)
	}
	switch r.CompetitorStrength {
	case CompetitorNone, CompetitorWeak, CompetitorStrong:
		return nil
	default:
		return Errorf(ErrInvalidInput, "unknown competitor_strength %q", r.CompetitorStrength)
	}
}

// Score is the scorer's output. Total is always in [0,100] even though the
// raw sum can go negative: clamped, not wrapped.
type Score struct {
	Demand             float64 // 0..50
	Intent             float64 // 0..40
	CompetitionPenalty float64 // -20..0
	Total              float64 // 0..100
	Confidence         Confidence
}

type Opportunity struct {
	ID                 string
	Title              string
	PrimaryKeyword     string
	Raw                RawSignals
	Score              Score
	Status             OpportunityStatus
	EvidenceDomains    []string // registrable domains of discovery evidence URLs
	RetryEligibleAfter *time.Time
	CreatedAt          time.Time
}

// ValidationSession is the append-only point ledger for one opportunity's
// validation window. Counters only ever increase; status transitions once.
type ValidationSession struct {
	ID            string
	OpportunityID string
	Method        ValidationMethod
	OpenedAt      time.Time
	Deadline      time.Time

	// Organic ledger.
	Signals map[SignalType]int

	// Paid ledger.
	Visits  int
	Signups int

	Status             SessionStatus
	FailedAt           *time.Time
	RetryEligibleAfter *time.Time
}

// SignalCount returns the recorded count for one signal type, zero when the
// ledger has never seen it.
func (s *ValidationSession) SignalCount(t SignalType) int {
	if s.Signals == nil {
		return 0
	}
	return s.Signals[t]
}

func (s *ValidationSession) Terminal() bool {
	return s.Status == SessionPassed || s.Status == SessionFailed
}
