package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
)

// Publisher delivers one encoded event. KafkaProducer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxPoller polls the event_outbox table and publishes events to Kafka.
type OutboxPoller struct {
	db        repository.DBTX
	repo      repository.OutboxRepository
	producer  Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(db repository.DBTX, repo repository.OutboxRepository, producer Publisher, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		db:        db,
		repo:      repo,
		producer:  producer,
		logger:    logger,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
}

// WithBatching overrides the poll interval and batch size.
func (p *OutboxPoller) WithBatching(interval time.Duration, batchSize int) *OutboxPoller {
	p.interval = interval
	p.batchSize = batchSize
	return p
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("outbox poller stopped")
				return
			case <-ticker.C:
				if _, err := p.Poll(ctx); err != nil {
					p.logger.Error("outbox poll error", "error", err)
				}
			}
		}
	}()
}

// Poll publishes one batch in order and deletes what was delivered. It stops
// at the first publish failure so per-aggregate ordering survives a retry.
func (p *OutboxPoller) Poll(ctx context.Context) (int, error) {
	rows, err := p.repo.FetchUnpublished(ctx, p.db, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(rows))
	var pubErr error
	for _, row := range rows {
		msg, err := EncodeEvent(row.OutboxDraft)
		if err != nil {
			pubErr = err
			break
		}
		if err := p.producer.Publish(ctx, Topic(row.OutboxDraft), []byte(row.PartitionKey), msg); err != nil {
			pubErr = fmt.Errorf("publish event %s: %w", row.EventID, err)
			break
		}
		published = append(published, row.SeqID)
	}

	if err := p.repo.MarkPublished(ctx, p.db, published); err != nil {
		return 0, err
	}
	p.logger.Debug("outbox poll complete", "published", len(published))
	return len(published), pubErr
}

// Topic is the Kafka topic an event is published to.
func Topic(d domain.OutboxDraft) string {
	return TopicFor(string(d.AggregateType))
}

// TopicFor names the topic carrying one aggregate type's events.
func TopicFor(aggregate string) string {
	return "matchwager." + aggregate
}

// EncodeEvent renders the message envelope published for an outbox event.
func EncodeEvent(d domain.OutboxDraft) ([]byte, error) {
	msg, err := json.Marshal(map[string]any{
		"event_id":       d.EventID,
		"aggregate_type": d.AggregateType,
		"aggregate_id":   d.AggregateID,
		"event_type":     d.EventType,
		"payload":        d.Payload,
		"occurred_at":    d.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", d.EventID, err)
	}
	return msg, nil
}
