// Command pageworker consumes page-rendered events, builds a search document
// for each and publishes it to the documents topic.
//
// Usage:
//
//	go run ./cmd/pageworker [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/resilience"
)

// messageRetry is the only retry layer for a page event; the publisher
// inside the handler makes a single attempt per call.
var messageRetry = resilience.RetryConfig{MaxAttempts: 5}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting page worker")

	if err := run(cfg); err != nil {
		slog.Error("page worker failed", "error", err)
		os.Exit(1)
	}
	slog.Info("page worker stopped")
}

// run returns when the context is cancelled or a message cannot be
// processed; in the latter case the offset stays uncommitted.
func run(cfg *config.Config) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	deps, err := bootstrap.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer deps.Close()

	sites, err := bootstrap.NewSites(cfg, deps, m)
	if err != nil {
		return fmt.Errorf("setting up site resolution: %w", err)
	}
	b, err := bootstrap.NewBuilder(cfg, sites.Resolver, m)
	if err != nil {
		return fmt.Errorf("creating document builder: %w", err)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Documents)
	defer producer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	pageConsumer := newPageConsumer(
		kafka.NewGroupReader(cfg.Kafka, cfg.Kafka.Topics.PageRendered),
		cfg.Kafka.Topics.PageRendered,
		b,
		producer,
		messageRetry,
		m,
	)

	slog.Info("page worker ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.PageRendered,
		"group", cfg.Kafka.ConsumerGroup,
		"publish_topic", cfg.Kafka.Topics.Documents,
	)

	return pageConsumer.Start(ctx)
}

func newPageConsumer(
	r kafka.MessageReader,
	topic string,
	b consumer.DocumentBuilder,
	producer publisher.EventProducer,
	retry resilience.RetryConfig,
	m *metrics.Metrics,
) *consumer.PageConsumer {
	pub := publisher.New(producer, resilience.RetryConfig{MaxAttempts: 1}, m)
	kc := kafka.NewConsumerWithReader(r, topic, consumer.HandlePageRendered(b, pub))
	kc.SetRetry(retry)
	return consumer.New(kc)
}
