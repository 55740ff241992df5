// Package indexer rebuilds and republishes the documents of a whole site
// from the renderings stored in Postgres.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/access"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/document"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/page"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/logger"
)

// PageSource is satisfied by *page.Repository.
type PageSource interface {
	List(ctx context.Context, siteRootID int, after page.Cursor, limit int) ([]page.Rendering, page.Cursor, error)
	FindAll(ctx context.Context, pageID int) ([]page.Rendering, error)
}

// DocumentBuilder is satisfied by *builder.Builder.
type DocumentBuilder interface {
	BuildFromPage(ctx context.Context, p page.Page, url string, rootline access.Rootline, mountPoint string) (*document.Document, error)
}

// BatchPublisher is satisfied by *publisher.Publisher.
type BatchPublisher interface {
	PublishAll(ctx context.Context, docs []*document.Document) error
}

// Summary counts the outcome of a reindex run.
type Summary struct {
	Built    int64
	Skipped  int64
	Failed   int64
	Batches  int
	Duration time.Duration
}

// Reindexer walks the renderings of a site in batches, builds each batch
// concurrently and publishes it.
type Reindexer struct {
	pages     PageSource
	builder   DocumentBuilder
	publisher BatchPublisher
	cfg       config.ReindexConfig
	logger    *slog.Logger
}

func NewReindexer(pages PageSource, b DocumentBuilder, pub BatchPublisher, cfg config.ReindexConfig) *Reindexer {
	return &Reindexer{
		pages:     pages,
		builder:   b,
		publisher: pub,
		cfg:       cfg,
		logger:    slog.Default().With("component", "reindexer"),
	}
}

// Run reindexes every rendering under siteRootID. Renderings that cannot be
// built are counted and skipped; a publish failure aborts the run.
func (r *Reindexer) Run(ctx context.Context, siteRootID int) (Summary, error) {
	start := time.Now()
	var (
		sum    Summary
		cursor page.Cursor
	)
	r.logger.Info("reindex started", "site_root", siteRootID, "batch_size", r.cfg.BatchSize, "concurrency", r.cfg.Concurrency)
	for {
		batch, next, err := r.pages.List(ctx, siteRootID, cursor, r.cfg.BatchSize)
		if err != nil {
			sum.Duration = time.Since(start)
			return sum, fmt.Errorf("listing batch %d: %w", sum.Batches+1, err)
		}
		if len(batch) == 0 {
			break
		}
		sum.Batches++

		if err := r.processBatch(ctx, batch, &sum); err != nil {
			sum.Duration = time.Since(start)
			return sum, fmt.Errorf("batch %d: %w", sum.Batches, err)
		}
		r.logger.Debug("batch done", "batch", sum.Batches, "size", len(batch), "built", sum.Built)

		if len(batch) < r.cfg.BatchSize {
			break
		}
		cursor = next
	}
	sum.Duration = time.Since(start)
	r.logger.Info("reindex finished",
		"site_root", siteRootID,
		"built", sum.Built,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"batches", sum.Batches,
		"duration", sum.Duration,
	)
	return sum, nil
}

// RunPage reindexes every rendering of a single page: one document per
// language, access group set and mount point it was rendered for.
func (r *Reindexer) RunPage(ctx context.Context, pageID int) (Summary, error) {
	start := time.Now()
	batch, err := r.pages.FindAll(ctx, pageID)
	if err != nil {
		return Summary{}, fmt.Errorf("loading page %d: %w", pageID, err)
	}
	sum := Summary{Batches: 1}
	err = r.processBatch(ctx, batch, &sum)
	sum.Duration = time.Since(start)
	r.logger.Info("page reindexed", "page_id", pageID, "renderings", len(batch), "built", sum.Built)
	return sum, err
}

func (r *Reindexer) processBatch(ctx context.Context, batch []page.Rendering, sum *Summary) error {
	docs := make([]*document.Document, len(batch))
	var built, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, rnd := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := r.build(gctx, rnd)
			switch {
			case err == nil:
				docs[i] = doc
				built.Add(1)
			case errors.Is(err, apperrors.ErrSiteNotFound), errors.Is(err, apperrors.ErrInvalidInput):
				logger.FromContext(gctx).Warn("skipping page", "page_id", rnd.Page.ID, "error", err)
				skipped.Add(1)
			default:
				r.logger.Error("building page failed", "page_id", rnd.Page.ID, "error", err)
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sum.Skipped += skipped.Load()
	sum.Failed += failed.Load()

	ready := docs[:0]
	for _, doc := range docs {
		if doc != nil {
			ready = append(ready, doc)
		}
	}
	if err := r.publisher.PublishAll(ctx, ready); err != nil {
		return err
	}
	sum.Built += built.Load()
	return nil
}

func (r *Reindexer) build(ctx context.Context, rnd page.Rendering) (*document.Document, error) {
	rootline, err := access.Parse(rnd.AccessRootline)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithPageID(ctx, rnd.Page.ID)
	return r.builder.BuildFromPage(ctx, rnd.Page, rnd.URL, rootline, rnd.MountPoint)
}
