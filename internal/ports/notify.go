package ports

import (
	"context"
	"time"

	"prospect/internal/domain"
)

// ManufacturingTrigger is emitted once when a validation session passes.
type ManufacturingTrigger struct {
	OpportunityID string                  `json:"opportunity_id"`
	SessionID     string                  `json:"session_id"`
	Method        domain.ValidationMethod `json:"method"`
	Points        int                     `json:"points,omitempty"`
	PassedAt      time.Time               `json:"passed_at"`
}

// Notifier hands a passed opportunity to the downstream manufacturing
// pipeline. Implementations must tolerate redundant calls from racing
// evaluators; the CAS transition guarantees at most one per session.
type Notifier interface {
	ValidationPassed(ctx context.Context, trig ManufacturingTrigger) error
}

// NoopNotifier is used when no trigger target is configured.
type NoopNotifier struct{}

func (NoopNotifier) ValidationPassed(context.Context, ManufacturingTrigger) error { return nil }

// MultiNotifier fans a trigger out to several targets, returning the first
// error after attempting all of them.
type MultiNotifier []Notifier

func (m MultiNotifier) ValidationPassed(ctx context.Context, trig ManufacturingTrigger) error {
	var first error
	for _, n := range m {
		if err := n.ValidationPassed(ctx, trig); err != nil && first == nil {
			first = err
		}
	}
	return first
}
