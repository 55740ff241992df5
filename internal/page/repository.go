package page

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/postgres"
)

// renderingColumns is shared by every query that scans into Rendering.
const renderingColumns = `
	p.uid, p.type_num, p.sys_language_uid, p.pid, p.crdate, p.sys_lastchanged,
	p.title, p.subtitle, p.nav_title, p.author, p.description, p.abstract,
	p.keywords, p.endtime, r.content, r.url, r.access_rootline, r.mount_point`

const listQuery = `
SELECT` + renderingColumns + `, r.id
FROM pages p
JOIN page_renderings r ON r.page_uid = p.uid
WHERE p.deleted = false AND p.hidden = false
  AND (p.uid = $1 OR p.root_page_uid = $1)
  AND (r.page_uid, r.id) > ($2, $3)
ORDER BY r.page_uid, r.id
LIMIT $4`

const findQuery = `
SELECT` + renderingColumns + `
FROM pages p
JOIN page_renderings r ON r.page_uid = p.uid
WHERE p.deleted = false AND p.uid = $1
ORDER BY r.id`

// Cursor marks the last rendering returned by a List call.
type Cursor struct {
	PageID      int
	RenderingID int64
}

// Repository reads rendered pages from Postgres.
type Repository struct {
	db *postgres.Client
}

func NewRepository(db *postgres.Client) *Repository {
	return &Repository{db: db}
}

// List returns up to limit renderings of pages under siteRootID after
// cursor, and the cursor to continue from.
func (r *Repository) List(ctx context.Context, siteRootID int, after Cursor, limit int) ([]Rendering, Cursor, error) {
	rows, err := r.db.DB.QueryContext(ctx, listQuery, siteRootID, after.PageID, after.RenderingID, limit)
	if err != nil {
		return nil, after, fmt.Errorf("listing renderings under site %d: %w", siteRootID, err)
	}
	defer rows.Close()

	var (
		out  []Rendering
		next = after
	)
	for rows.Next() {
		var (
			rnd Rendering
			id  int64
		)
		if err := scanRendering(rows, &rnd, &id); err != nil {
			return nil, after, err
		}
		out = append(out, rnd)
		next = Cursor{PageID: rnd.Page.ID, RenderingID: id}
	}
	if err := rows.Err(); err != nil {
		return nil, after, fmt.Errorf("iterating renderings: %w", err)
	}
	return out, next, nil
}

// FindAll returns every rendering of pageID in storage order.
func (r *Repository) FindAll(ctx context.Context, pageID int) ([]Rendering, error) {
	rows, err := r.db.DB.QueryContext(ctx, findQuery, pageID)
	if err != nil {
		return nil, fmt.Errorf("loading renderings of page %d: %w", pageID, err)
	}
	defer rows.Close()

	var out []Rendering
	for rows.Next() {
		var rnd Rendering
		if err := scanRendering(rows, &rnd, nil); err != nil {
			return nil, err
		}
		out = append(out, rnd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating renderings: %w", err)
	}
	if len(out) == 0 {
		return nil, apperrors.Newf(apperrors.ErrPageNotFound, http.StatusNotFound, "page %d has no rendering", pageID)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRendering(s scanner, rnd *Rendering, renderingID *int64) error {
	var keywords sql.NullString
	p := &rnd.Page
	dest := []any{
		&p.ID, &p.Type, &p.LanguageUID, &p.ParentID, &p.Created, &p.Changed,
		&p.Title, &p.SubTitle, &p.NavTitle, &p.Author, &p.Description, &p.Abstract,
		&keywords, &p.EndTime, &p.Content, &rnd.URL, &rnd.AccessRootline, &rnd.MountPoint,
	}
	if renderingID != nil {
		dest = append(dest, renderingID)
	}
	if err := s.Scan(dest...); err != nil {
		return fmt.Errorf("scanning rendering: %w", err)
	}
	if keywords.Valid {
		kw := keywords.String
		p.Keywords = &kw
	}
	return nil
}
