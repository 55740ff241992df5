// Command docbuilder serves the document build API.
//
// POST /api/v1/documents/build turns a rendered page into a search document
// and returns it; with ?publish=true the document is also written to the
// documents topic. Health endpoints are at /health/live and /health/ready.
//
// Usage:
//
//	go run ./cmd/docbuilder [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/resilience"
)

const requestTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting docbuilder service", "port", cfg.Server.Port)

	m := metrics.New(prometheus.DefaultRegisterer)

	deps, err := bootstrap.Connect(cfg)
	if err != nil {
		slog.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	sites, err := bootstrap.NewSites(cfg, deps, m)
	if err != nil {
		slog.Error("failed to set up site resolution", "error", err)
		os.Exit(1)
	}
	b, err := bootstrap.NewBuilder(cfg, sites.Resolver, m)
	if err != nil {
		slog.Error("failed to create document builder", "error", err)
		os.Exit(1)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Documents)
	defer producer.Close()
	pub := publisher.New(producer, resilience.RetryConfig{}, m)
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.Documents)

	// A nil *CachedResolver must not become a non-nil interface.
	var siteCache handler.CacheInvalidator
	if sites.Cache != nil {
		siteCache = sites.Cache
	}
	h := handler.New(b, pub, siteCache)

	checker := health.NewChecker()
	if deps.DB != nil {
		checker.Register("postgres", health.PingCheck(deps.DB))
	}
	if deps.Redis != nil {
		checker.Register("redis", health.OptionalPingCheck(deps.Redis))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents/build", h.Build)
	mux.HandleFunc("POST /api/v1/sites/cache/invalidate", h.InvalidateSiteCache)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Metrics(m),
			middleware.Timeout(requestTimeout),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("docbuilder service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("docbuilder service stopped")
}
