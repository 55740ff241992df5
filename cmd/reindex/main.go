// Command reindex rebuilds and republishes every page document of one site
// from the renderings stored in Postgres.
//
// Usage:
//
//	go run ./cmd/reindex -site 1 [-config configs/development.yaml]
//	go run ./cmd/reindex -page 42
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/page"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	siteRoot := flag.Int("site", 0, "root page id of the site to reindex")
	pageID := flag.Int("page", 0, "reindex a single page instead of a site")
	flag.Parse()

	if (*siteRoot <= 0) == (*pageID <= 0) {
		fmt.Fprintln(os.Stderr, "exactly one of -site or -page is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, *siteRoot, *pageID); err != nil {
		slog.Error("reindex failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, siteRoot, pageID int) error {
	if !cfg.Postgres.Enabled() {
		return fmt.Errorf("reindex reads renderings from postgres; set postgres.host")
	}
	m := metrics.New(prometheus.DefaultRegisterer)

	deps, err := bootstrap.Connect(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	sites, err := bootstrap.NewSites(cfg, deps, m)
	if err != nil {
		return err
	}
	b, err := bootstrap.NewBuilder(cfg, sites.Resolver, m)
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Documents)
	defer producer.Close()
	pub := publisher.New(producer, resilience.RetryConfig{MaxAttempts: 5}, m)

	r := indexer.NewReindexer(page.NewRepository(deps.DB), b, pub, cfg.Reindex)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sum indexer.Summary
	if pageID > 0 {
		sum, err = r.RunPage(ctx, pageID)
	} else {
		sum, err = r.Run(ctx, siteRoot)
	}
	slog.Info("reindex summary",
		"built", sum.Built,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"batches", sum.Batches,
		"duration", sum.Duration,
	)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d pages failed to build", sum.Failed)
	}
	return nil
}
