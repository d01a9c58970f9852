// Package redisq publishes manufacturing triggers onto a Redis stream for
// the downstream pipeline to consume.
package redisq

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"prospect/internal/ports"
)

const DefaultStream = "manufacturing:triggers"

type Notifier struct {
	client *redis.Client
	stream string
}

func Connect(ctx context.Context, url, stream string) (*Notifier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &Notifier{client: client, stream: stream}, nil
}

func (n *Notifier) Close() error { return n.client.Close() }

func (n *Notifier) ValidationPassed(ctx context.Context, trig ports.ManufacturingTrigger) error {
	return n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]interface{}{
			"opportunity_id": trig.OpportunityID,
			"session_id":     trig.SessionID,
			"method":         string(trig.Method),
			"points":         trig.Points,
			"passed_at":      trig.PassedAt.Format(time.RFC3339),
		},
	}).Err()
}
