package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

const (
	metricsChannel = "vaultwatch:metrics"
	alertsChannel  = "vaultwatch:alerts"
	metricsStream  = "vaultwatch:metrics:stream"
	alertsStream   = "vaultwatch:alerts:stream"

	// streamMaxLen is the approximate maximum length for Redis streams,
	// enforced via XADD MAXLEN ~.
	streamMaxLen int64 = 10000
)

// Publisher pushes metric snapshots and alert batches to Redis. Each publish
// fans out on a Pub/Sub channel and appends to a capped stream so consumers
// can either tail live or replay recent history.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher backed by the given Client.
func NewPublisher(c *Client) *Publisher {
	return &Publisher{rdb: c.Underlying()}
}

// PublishMetrics serializes a metrics snapshot and publishes it.
func (p *Publisher) PublishMetrics(ctx context.Context, m domain.GlobalMetrics) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal metrics: %w", err)
	}
	return p.publish(ctx, metricsChannel, metricsStream, payload)
}

// PublishAlerts serializes an alert batch and publishes it. Empty batches
// are skipped.
func (p *Publisher) PublishAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	payload, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("redis: marshal alerts: %w", err)
	}
	return p.publish(ctx, alertsChannel, alertsStream, payload)
}

func (p *Publisher) publish(ctx context.Context, channel, stream string, payload []byte) error {
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := p.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}
