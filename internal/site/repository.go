package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/resilience"
)

// rootlineQuery walks up the page tree from $1 and returns the nearest
// site root that has a site record. Depth is capped to stop on cycles.
const rootlineQuery = `
WITH RECURSIVE rootline (uid, pid, is_siteroot, depth) AS (
	SELECT uid, pid, is_siteroot, 0 FROM pages WHERE uid = $1 AND deleted = false
	UNION ALL
	SELECT p.uid, p.pid, p.is_siteroot, r.depth + 1
	FROM pages p
	JOIN rootline r ON p.uid = r.pid
	WHERE r.is_siteroot = false AND p.deleted = false AND r.depth < 99
)
SELECT s.root_page_id, s.name, s.domain
FROM rootline r
JOIN sites s ON s.root_page_id = r.uid
WHERE r.is_siteroot = true
ORDER BY r.depth
LIMIT 1`

// Repository resolves sites from the CMS page tree in Postgres.
type Repository struct {
	db            *postgres.Client
	encryptionKey string
	breaker       *resilience.CircuitBreaker
	logger        *slog.Logger
}

// NewRepository creates a Repository. Lookups go through breaker; site
// misses do not count as failures.
func NewRepository(db *postgres.Client, encryptionKey string, breaker *resilience.CircuitBreaker) *Repository {
	return &Repository{
		db:            db,
		encryptionKey: encryptionKey,
		breaker:       breaker,
		logger:        slog.Default().With("component", "site-repository"),
	}
}

// NotFoundIsNotFailure is the IsFailure filter for the repository breaker.
func NotFoundIsNotFailure(err error) bool {
	return !errors.Is(err, apperrors.ErrSiteNotFound)
}

func (r *Repository) SiteByPageID(ctx context.Context, pageID int) (Site, error) {
	var s Site
	err := r.breaker.Execute(func() error {
		err := r.db.DB.QueryRowContext(ctx, rootlineQuery, pageID).Scan(&s.RootPageID, &s.Name, &s.Domain)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.SiteNotFound(pageID)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrSiteNotFound) {
			return Site{}, err
		}
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return Site{}, apperrors.Newf(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "site lookup for page %d: %v", pageID, err)
		}
		return Site{}, fmt.Errorf("querying site for page %d: %w", pageID, err)
	}
	s.SiteHash = ComputeSiteHash(s.Domain, r.encryptionKey)
	r.logger.Debug("site resolved", "page_id", pageID, "root_page_id", s.RootPageID)
	return s, nil
}
