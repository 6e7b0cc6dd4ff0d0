// Package events carries rebuild notifications between the indexer and the
// searcher over Kafka. Publishing is best-effort: a broker outage never
// fails a build, it only delays cache invalidation until the TTL expires.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/irlabs/postsearch/pkg/config"
	"github.com/irlabs/postsearch/pkg/kafka"
)

// RebuildCompleted announces that a new index version has been published.
type RebuildCompleted struct {
	Version     string    `json:"version"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher emits rebuild events.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewPublisher creates a Publisher on the rebuild topic.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		producer: kafka.NewProducer(cfg, cfg.Topics.RebuildComplete),
		logger:   slog.Default().With("component", "rebuild-publisher"),
	}
}

// PublishRebuildCompleted publishes the event, keyed by version.
func (p *Publisher) PublishRebuildCompleted(ctx context.Context, ev RebuildCompleted) error {
	if err := p.producer.Publish(ctx, kafka.Event{Key: ev.Version, Value: ev}); err != nil {
		return fmt.Errorf("publishing rebuild event: %w", err)
	}
	p.logger.Info("rebuild event published",
		"version", ev.Version,
		"documents", ev.Documents,
		"terms", ev.Terms,
	)
	return nil
}

// Close flushes the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

// NewInvalidationConsumer returns a consumer that decodes rebuild events and
// invokes onRebuild for each one. The searcher uses it to flush its query
// cache after a rebuild.
func NewInvalidationConsumer(cfg config.KafkaConfig, onRebuild func(ctx context.Context, ev RebuildCompleted) error) *kafka.Consumer {
	logger := slog.Default().With("component", "rebuild-consumer")
	handler := func(ctx context.Context, key, value []byte) error {
		var ev RebuildCompleted
		if err := json.Unmarshal(value, &ev); err != nil {
			logger.Error("dropping undecodable rebuild event", "key", string(key), "error", err)
			return nil
		}
		return onRebuild(ctx, ev)
	}
	return kafka.NewConsumer(cfg, cfg.Topics.RebuildComplete, handler)
}
