package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRawSignalsValidate(t *testing.T) {
	valid := RawSignals{
		RedditMentions:     3,
		TwitterMentions:    1,
		TrendScore:         0.5,
		CPC:                1.2,
		CompetitorCount:    2,
		CompetitorStrength: CompetitorWeak,
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name string
		mut  func(r RawSignals) RawSignals
	}{
		{"negative reddit mentions", func(r RawSignals) RawSignals { r.RedditMentions = -1; return r }},
		{"negative twitter mentions", func(r RawSignals) RawSignals { r.TwitterMentions = -1; return r }},
		{"trend above one", func(r RawSignals) RawSignals { r.TrendScore = 1.1; return r }},
		{"trend below zero", func(r RawSignals) RawSignals { r.TrendScore = -0.1; return r }},
		{"negative cpc", func(r RawSignals) RawSignals { r.CPC = -0.01; return r }},
		{"negative competitors", func(r RawSignals) RawSignals { r.CompetitorCount = -1; return r }},
		{"unknown strength", func(r RawSignals) RawSignals { r.CompetitorStrength = "dominant"; return r }},
		{"more timestamps than mentions", func(r RawSignals) RawSignals {
			r.RedditMentionTimes = []time.Time{time.Now(), time.Now(), time.Now(), time.Now()}
			return r
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mut(valid).Validate()
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestSignalTypeValid(t *testing.T) {
	for _, s := range SignalTypes {
		assert.True(t, s.Valid())
	}
	assert.False(t, SignalType("retweet").Valid())
	assert.False(t, SignalType("").Valid())
}

func TestSessionTerminal(t *testing.T) {
	s := ValidationSession{Status: SessionRunning}
	assert.False(t, s.Terminal())
	s.Status = SessionPassed
	assert.True(t, s.Terminal())
	s.Status = SessionFailed
	assert.True(t, s.Terminal())
}
