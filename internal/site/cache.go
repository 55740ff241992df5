package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/redis"
)

const (
	keyPrefix     = "site:page:"
	lookupTimeout = 5 * time.Second
)

// CachedResolver keeps resolved sites in Redis keyed by page id and
// collapses concurrent lookups of the same page. Redis failures are logged
// and the inner resolver answers instead. Misses are never cached.
type CachedResolver struct {
	inner   Resolver
	client  *pkgredis.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCachedResolver wraps inner. m may be nil.
func NewCachedResolver(inner Resolver, client *pkgredis.Client, ttl time.Duration, m *metrics.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "site-cache"),
	}
}

func (c *CachedResolver) SiteByPageID(ctx context.Context, pageID int) (Site, error) {
	if s, ok := c.get(ctx, pageID); ok {
		return s, nil
	}
	key := cacheKey(pageID)
	ch := c.group.DoChan(key, func() (any, error) {
		// The lookup is shared, so one caller giving up must not fail the rest.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		s, err := c.inner.SiteByPageID(lookupCtx, pageID)
		if err != nil {
			if errors.Is(err, apperrors.ErrSiteNotFound) {
				c.observe("resolver", "miss")
			} else {
				c.observe("resolver", "error")
			}
			return Site{}, err
		}
		c.observe("resolver", "hit")
		c.set(lookupCtx, pageID, s)
		return s, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Site{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("site lookup shared", "page_id", pageID)
		}
		return res.Val.(Site), nil
	case <-ctx.Done():
		return Site{}, ctx.Err()
	}
}

// InvalidatePage drops the cached site of one page, for instance after it
// moved to another site. It returns 0 when nothing was cached.
func (c *CachedResolver) InvalidatePage(ctx context.Context, pageID int) (int64, error) {
	deleted, err := c.client.Del(ctx, cacheKey(pageID))
	if err != nil {
		return 0, fmt.Errorf("invalidating site of page %d: %w", pageID, err)
	}
	c.logger.Debug("site cache entry invalidated", "page_id", pageID, "keys_deleted", deleted)
	return deleted, nil
}

// Invalidate drops every cached site, returning the number of keys removed.
func (c *CachedResolver) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating site cache: %w", err)
	}
	c.logger.Info("site cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *CachedResolver) get(ctx context.Context, pageID int) (Site, bool) {
	key := cacheKey(pageID)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("site cache get failed", "key", key, "error", err)
			c.observe("cache", "error")
			return Site{}, false
		}
		c.observe("cache", "miss")
		return Site{}, false
	}
	var s Site
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		c.logger.Warn("site cache entry corrupt", "key", key, "error", err)
		c.observe("cache", "error")
		return Site{}, false
	}
	c.observe("cache", "hit")
	return s, true
}

func (c *CachedResolver) set(ctx context.Context, pageID int, s Site) {
	key := cacheKey(pageID)
	data, err := json.Marshal(s)
	if err != nil {
		c.logger.Error("site cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("site cache set failed", "key", key, "error", err)
	}
}

func (c *CachedResolver) observe(source, result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.SiteLookupsTotal.WithLabelValues(source, result).Inc()
}

func cacheKey(pageID int) string {
	return keyPrefix + strconv.Itoa(pageID)
}
