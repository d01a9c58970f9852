// Package deadlines sweeps running validation sessions whose window has
// expired. The on-write evaluation path may race this sweeper; both funnel
// through the same compare-and-set, so only the first writer's transition is
// honored and they always agree on the outcome.
package deadlines

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"prospect/internal/domain"
	"prospect/internal/ports"
	"prospect/internal/validation"
)

const batchSize = 100

// Evaluator is the slice of the sessions service the sweeper needs.
type Evaluator interface {
	Evaluate(ctx context.Context, sessionID string) (*domain.ValidationSession, validation.Result, error)
}

// Run polls for due sessions until the context is cancelled.
func Run(ctx context.Context, repo ports.SessionRepository, eval Evaluator, interval time.Duration, log *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := Sweep(ctx, repo, eval, log); err != nil {
				log.WithError(err).Error("deadline sweep failed")
			}
		}
	}
}

// Sweep evaluates every running session past its deadline, in batches until
// the due set is drained.
func Sweep(ctx context.Context, repo ports.SessionRepository, eval Evaluator, log *logrus.Logger) error {
	for {
		due, err := repo.ListDue(ctx, time.Now(), batchSize)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		for _, sess := range due {
			if _, res, err := eval.Evaluate(ctx, sess.ID); err != nil {
				log.WithError(err).WithField("session_id", sess.ID).Error("deadline evaluation failed")
			} else if res.Status != domain.SessionRunning {
				log.WithFields(logrus.Fields{
					"session_id": sess.ID,
					"status":     res.Status,
					"points":     res.Points,
				}).Info("session settled at deadline")
			}
		}
		if len(due) < batchSize {
			return nil
		}
	}
}
