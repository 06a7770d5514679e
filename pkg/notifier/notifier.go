// Package notifier adapts the Redis client into the Coordinator's Notifier
// interface: a fire-and-forget publisher that never blocks a mutation on
// broker availability.
package notifier

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const publishTimeout = 2 * time.Second

// publisherClient is the subset of *redis.Client's surface Publisher needs.
// Declared narrowly so tests can supply a fake without a live broker.
type publisherClient interface {
	Publish(ctx context.Context, channel, message string) error
}

// Publisher publishes update events to a Redis pub/sub channel. Failures
// are logged, never returned, since the Coordinator treats notification
// as best-effort.
type Publisher struct {
	client  publisherClient
	channel string
	logger  zerolog.Logger
}

// New returns a Publisher that sends every event to channel on client.
func New(client publisherClient, channel string, logger zerolog.Logger) *Publisher {
	return &Publisher{client: client, channel: channel, logger: logger}
}

// Publish sends event to the configured channel in a detached goroutine
// bounded by publishTimeout, logging and swallowing any error.
func (p *Publisher) Publish(event string) {
	if p == nil || p.client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.client.Publish(ctx, p.channel, event); err != nil {
			p.logger.Warn().Err(err).Str("channel", p.channel).Str("event", event).Msg("failed to publish update event")
		}
	}()
}
