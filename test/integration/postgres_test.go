//go:build integration

// Package integration runs the Postgres-backed repositories against a real
// database with the schema from migrations/ applied.
//
// Run with:
//
//	go test -v -tags=integration ./test/integration/...
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/document"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/page"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/site"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/resilience"
)

// Page ids used here sit far above anything a dev database holds.
const (
	rootID  = 900001
	childID = 900002
	leafID  = 900003
	orphan  = 900099
	domain  = "integration.example.org"
)

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "cms_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "pageindexer"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func seed(t *testing.T, db *postgres.Client) {
	t.Helper()
	ctx := context.Background()
	schema, err := os.ReadFile("../../migrations/001_pages.sql")
	require.NoError(t, err)
	_, err = db.DB.ExecContext(ctx, string(schema))
	require.NoError(t, err)

	cleanup := func() {
		db.DB.ExecContext(ctx, `DELETE FROM sites WHERE root_page_id = $1`, rootID)
		db.DB.ExecContext(ctx, `DELETE FROM pages WHERE uid BETWEEN $1 AND $2`, rootID, orphan)
	}
	cleanup()
	t.Cleanup(cleanup)

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO pages (uid, pid, root_page_uid, is_siteroot, title) VALUES ($1, 0, $1, true, 'Root')`, []any{rootID}},
		{`INSERT INTO pages (uid, pid, root_page_uid, title, keywords) VALUES ($1, $2, $2, 'Child', 'a, b, a')`, []any{childID, rootID}},
		{`INSERT INTO pages (uid, pid, root_page_uid, title, endtime) VALUES ($1, $2, $3, 'Leaf', 1893456000)`, []any{leafID, childID, rootID}},
		{`INSERT INTO pages (uid, pid, title) VALUES ($1, 0, 'Orphan')`, []any{orphan}},
		{`INSERT INTO sites (root_page_id, name, domain) VALUES ($1, 'integration', $2)`, []any{rootID, domain}},
		{`INSERT INTO page_renderings (page_uid, url, access_rootline, content) VALUES ($1, 'https://integration.example.org/', '', '<title>Root</title>')`, []any{rootID}},
		{`INSERT INTO page_renderings (page_uid, url, access_rootline, content) VALUES ($1, 'https://integration.example.org/child', 'c:0', '<h1>Child</h1>')`, []any{childID}},
		{`INSERT INTO page_renderings (page_uid, url, access_rootline, mount_point, content) VALUES ($1, 'https://integration.example.org/leaf', '900003:2,1', '5-3', '<p>Leaf</p>')`, []any{leafID}},
	}
	err = db.InTx(ctx, func(tx *sql.Tx) error {
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
				return fmt.Errorf("%s: %w", s.query, err)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestSiteRepositoryWalksRootline(t *testing.T) {
	db := skipIfNoPostgres(t)
	seed(t, db)

	repo := site.NewRepository(db, "key", resilience.NewCircuitBreaker("test", resilience.CircuitBreakerConfig{
		IsFailure: site.NotFoundIsNotFailure,
	}))

	for _, id := range []int{rootID, childID, leafID} {
		s, err := repo.SiteByPageID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, rootID, s.RootPageID)
		assert.Equal(t, domain, s.Domain)
		assert.Equal(t, site.ComputeSiteHash(domain, "key"), s.SiteHash)
	}

	_, err := repo.SiteByPageID(context.Background(), orphan)
	assert.ErrorIs(t, err, apperrors.ErrSiteNotFound)
}

func TestPageRepositoryPagesThroughSite(t *testing.T) {
	db := skipIfNoPostgres(t)
	seed(t, db)
	repo := page.NewRepository(db)

	first, cursor, err := repo.List(context.Background(), rootID, page.Cursor{}, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, rootID, first[0].Page.ID)
	assert.Nil(t, first[0].Page.Keywords)
	require.NotNil(t, first[1].Page.Keywords)
	assert.Equal(t, "a, b, a", *first[1].Page.Keywords)

	rest, _, err := repo.List(context.Background(), rootID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, leafID, rest[0].Page.ID)
	assert.Equal(t, "5-3", rest[0].MountPoint)

	_, err = repo.FindAll(context.Background(), orphan)
	assert.ErrorIs(t, err, apperrors.ErrPageNotFound)
}

type memPublisher struct {
	mu   sync.Mutex
	docs []*document.Document
}

func (p *memPublisher) PublishAll(_ context.Context, docs []*document.Document) error {
	p.mu.Lock()
	p.docs = append(p.docs, docs...)
	p.mu.Unlock()
	return nil
}

func TestReindexSiteFromPostgres(t *testing.T) {
	db := skipIfNoPostgres(t)
	seed(t, db)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Sites.EncryptionKey = "key"

	sites, err := bootstrap.NewSites(cfg, bootstrap.Deps{DB: db}, nil)
	require.NoError(t, err)
	b, err := bootstrap.NewBuilder(cfg, sites.Resolver, nil)
	require.NoError(t, err)

	pub := &memPublisher{}
	r := indexer.NewReindexer(page.NewRepository(db), b, pub, config.ReindexConfig{Concurrency: 2, BatchSize: 2})
	sum, err := r.Run(context.Background(), rootID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Built)
	require.Len(t, pub.docs, 3)

	hash := site.ComputeSiteHash(domain, "key")
	ids := make(map[string]*document.Document)
	for _, d := range pub.docs {
		ids[d.ID()] = d
	}
	leaf := ids[hash+"/pages/900003/5-3/0/0/2,1"]
	require.NotNil(t, leaf)
	assert.Equal(t, "900003,5-3", leaf.String("rootline"))
	assert.Equal(t, "900003:2,1", leaf.String("access"))
	assert.Equal(t, []any{int64(1893456000)}, leaf.Values("endtime"))

	child := ids[hash+"/pages/900002/0/0/0"]
	require.NotNil(t, child)
	assert.Equal(t, []any{"a", "b"}, child.Values("keywords"))
	assert.Equal(t, "Child", child.String("tagsH1"))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
