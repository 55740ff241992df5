// Package bootstrap assembles the document builder and its site resolver
// from configuration. The commands share it so that every entry point
// resolves sites the same way.
package bootstrap

import (
	"errors"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/site"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/resilience"
)

// ErrNoSiteSource is returned when neither static sites nor a database are
// configured.
var ErrNoSiteSource = errors.New("no site source: configure sites.entries or postgres")

// Deps are the optional connections a command managed to open.
type Deps struct {
	DB    *postgres.Client
	Redis *pkgredis.Client
}

// Sites is the resolver the builder uses and, when Redis fronts it, the
// cache that can be invalidated.
type Sites struct {
	Resolver site.Resolver
	Cache    *site.CachedResolver
}

// NewSites picks the site source. Static entries win over the database;
// only the database lookup is cached.
func NewSites(cfg *config.Config, deps Deps, m *metrics.Metrics) (Sites, error) {
	log := logger.WithComponent("bootstrap")

	if len(cfg.Sites.Entries) > 0 {
		static, err := site.NewStaticResolver(cfg.Sites.Entries, cfg.Sites.EncryptionKey)
		if err != nil {
			return Sites{}, err
		}
		log.Info("using static site table", "sites", len(cfg.Sites.Entries))
		return Sites{Resolver: static}, nil
	}
	if deps.DB == nil {
		return Sites{}, ErrNoSiteSource
	}

	breaker := resilience.NewCircuitBreaker("site-repository", resilience.CircuitBreakerConfig{
		IsFailure: site.NotFoundIsNotFailure,
		OnStateChange: func(name string, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	repo := site.NewRepository(deps.DB, cfg.Sites.EncryptionKey, breaker)
	if deps.Redis == nil {
		log.Info("resolving sites from postgres without cache")
		return Sites{Resolver: repo}, nil
	}
	cache := site.NewCachedResolver(repo, deps.Redis, cfg.Redis.CacheTTL, m)
	log.Info("resolving sites from postgres with redis cache", "ttl", cfg.Redis.CacheTTL)
	return Sites{Resolver: cache, Cache: cache}, nil
}

// NewBuilder wires the production collaborators into a builder.
func NewBuilder(cfg *config.Config, sites site.Resolver, m *metrics.Metrics) (*builder.Builder, error) {
	var opts []builder.Option
	if m != nil {
		opts = append(opts, builder.WithMetrics(m))
	}
	return builder.New(sites, variant.NewIDBuilder(cfg.Sites.SystemName), extractor.NewHTMLExtractor(), opts...)
}

// Connect opens the optional connections. A configured Postgres that cannot
// be reached is an error; an unreachable Redis only disables the cache.
func Connect(cfg *config.Config) (Deps, error) {
	var deps Deps
	log := logger.WithComponent("bootstrap")
	if cfg.Postgres.Enabled() {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return deps, err
		}
		deps.DB = db
		log.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}
	if deps.DB != nil && cfg.Redis.Addr != "" {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, site cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			deps.Redis = rc
		}
	}
	return deps, nil
}

// Close releases whatever Connect opened.
func (d Deps) Close() {
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
