// Package publisher writes built documents to the documents topic, keyed by
// document id so every version of a document lands on one partition.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/document"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/resilience"
)

// EventProducer is satisfied by *kafka.Producer.
type EventProducer interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Publisher publishes documents with retry.
type Publisher struct {
	producer EventProducer
	retry    resilience.RetryConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Publisher. m may be nil.
func New(producer EventProducer, retry resilience.RetryConfig, m *metrics.Metrics) *Publisher {
	return &Publisher{
		producer: producer,
		retry:    retry,
		metrics:  m,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Publish writes doc to Kafka.
func (p *Publisher) Publish(ctx context.Context, doc *document.Document) error {
	event := kafka.Event{Key: doc.ID(), Value: doc}
	err := resilience.Retry(ctx, "publish-document", p.retry, func(ctx context.Context) error {
		return p.producer.Publish(ctx, event)
	})
	p.observe(1, err)
	if err != nil {
		return fmt.Errorf("publishing document %s: %w", doc.ID(), err)
	}
	p.logger.Debug("document published", "doc_id", doc.ID())
	return nil
}

// PublishAll writes docs in one batch. The batch is retried as a whole;
// consumers see duplicates rather than gaps.
func (p *Publisher) PublishAll(ctx context.Context, docs []*document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	events := make([]kafka.Event, len(docs))
	for i, doc := range docs {
		events[i] = kafka.Event{Key: doc.ID(), Value: doc}
	}
	err := resilience.Retry(ctx, "publish-documents", p.retry, func(ctx context.Context) error {
		return p.producer.PublishBatch(ctx, events)
	})
	p.observe(len(docs), err)
	if err != nil {
		return fmt.Errorf("publishing %d documents: %w", len(docs), err)
	}
	p.logger.Debug("documents published", "count", len(docs))
	return nil
}

func (p *Publisher) observe(n int, err error) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.DocumentsPublishedTotal.WithLabelValues(status).Add(float64(n))
}
