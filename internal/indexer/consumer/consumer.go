// Package consumer turns page-rendered events from Kafka into published
// search documents.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/access"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/document"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/page"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/tracing"
)

// DocumentBuilder is satisfied by *builder.Builder.
type DocumentBuilder interface {
	BuildFromPage(ctx context.Context, p page.Page, url string, rootline access.Rootline, mountPoint string) (*document.Document, error)
}

// DocumentPublisher is satisfied by *publisher.Publisher.
type DocumentPublisher interface {
	Publish(ctx context.Context, doc *document.Document) error
}

// PageConsumer wraps a Kafka consumer reading the page-rendered topic.
type PageConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a PageConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *PageConsumer {
	return &PageConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "page-consumer"),
	}
}

// Start begins consuming. It blocks until ctx is cancelled or a message
// cannot be processed.
func (pc *PageConsumer) Start(ctx context.Context) error {
	pc.logger.Info("page consumer starting")
	return pc.consumer.Start(ctx)
}

// HandlePageRendered returns a MessageHandler that builds a document for
// every page-rendered event and publishes it.
//
// Events that can never succeed (undecodable, invalid, or for a page no
// site covers) are logged and acknowledged. Build and publish failures
// for anything else are returned so the message is retried.
func HandlePageRendered(b DocumentBuilder, pub DocumentPublisher) kafka.MessageHandler {
	log := slog.Default().With("component", "page-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.PageRenderedEvent](value)
		if err != nil {
			log.Error("dropping undecodable page event", "key", string(key), "error", err)
			return nil
		}
		if err := validator.ValidateBuildRequest(&event.BuildRequest); err != nil {
			log.Warn("dropping invalid page event", "event_id", event.EventID, "error", err)
			return nil
		}

		ctx, span := tracing.StartSpan(ctx, "page_rendered", event.EventID)
		defer func() {
			span.End()
			span.Log(log)
		}()
		span.SetAttr("page_id", event.Page.ID)
		ctx = logger.WithPageID(ctx, event.Page.ID)

		rootline, _ := access.Parse(event.AccessRootline)
		doc, err := b.BuildFromPage(ctx, event.Page, event.URL, rootline, event.MountPoint)
		if errors.Is(err, apperrors.ErrSiteNotFound) {
			logger.FromContext(ctx).Warn("dropping page event without site", "event_id", event.EventID, "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("building document for event %s: %w", event.EventID, err)
		}
		span.SetAttr("doc_id", doc.ID())

		if err := pub.Publish(ctx, doc); err != nil {
			return fmt.Errorf("event %s: %w", event.EventID, err)
		}
		logger.FromContext(ctx).Info("page indexed", "event_id", event.EventID, "doc_id", doc.ID())
		return nil
	}
}
