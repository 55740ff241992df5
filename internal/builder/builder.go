// Package builder maps a rendered CMS page onto a search document.
//
// A Builder holds no mutable state; one instance may serve any number of
// goroutines provided its collaborators are safe for concurrent use.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/access"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/document"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/page"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/site"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/tracing"
)

const (
	// AppKey marks documents written by this indexer.
	AppKey = "EXT:solr"

	recordType = "pages"

	// publicGroups stands in for an access group list that is empty after
	// cleaning.
	publicGroups = "0"
)

// VariantIDBuilder derives the id shared by all variants of one record.
type VariantIDBuilder interface {
	BuildFromTypeAndUID(recordType string, uid int) string
}

// ContentExtractor reads the indexable parts of rendered page content.
type ContentExtractor interface {
	Extract(rawContent string) extractor.Content
}

// Builder builds page documents.
type Builder struct {
	sites     site.Resolver
	variants  VariantIDBuilder
	extractor ContentExtractor
	formatID  DocumentIDFormatter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option customises a Builder.
type Option func(*Builder)

// WithDocumentIDFormatter replaces FormatPageDocumentID.
func WithDocumentIDFormatter(f DocumentIDFormatter) Option {
	return func(b *Builder) { b.formatID = f }
}

// WithMetrics records build counts and latency on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// New returns a Builder. Every collaborator is required.
func New(sites site.Resolver, variants VariantIDBuilder, ext ContentExtractor, opts ...Option) (*Builder, error) {
	if sites == nil || variants == nil || ext == nil {
		return nil, errors.New("builder: site resolver, variant id builder and content extractor are required")
	}
	b := &Builder{
		sites:     sites,
		variants:  variants,
		extractor: ext,
		formatID:  FormatPageDocumentID,
		logger:    slog.Default().With("component", "document-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// BuildFromPage maps p onto a new document. url is stored verbatim,
// rootline carries the access groups the rendering was made for and
// mountPoint is the mount point parameter ("" for none).
//
// The title field holds the <title> of the rendered content. When the
// content has none, p.Title is written instead of an empty title.
//
// The only failure is an unresolvable site; no document is returned then.
func (b *Builder) BuildFromPage(ctx context.Context, p page.Page, url string, rootline access.Rootline, mountPoint string) (*document.Document, error) {
	start := time.Now()
	doc, err := b.build(ctx, p, url, rootline, mountPoint)
	b.observe(start, err)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("document built",
		"page_id", p.ID,
		"doc_id", doc.ID(),
		"fields", doc.Len(),
	)
	return doc, nil
}

func (b *Builder) build(ctx context.Context, p page.Page, url string, rootline access.Rootline, mountPoint string) (*document.Document, error) {
	spanCtx, span := tracing.StartChildSpan(ctx, "site_lookup")
	s, err := b.sites.SiteByPageID(spanCtx, p.ID)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("resolving site for page %d: %w", p.ID, err)
	}

	groups := documentIDGroups(rootline)
	doc := document.New()

	doc.SetField("id", b.formatID(s.SiteHash, p.ID, p.Type, p.LanguageUID, groups, mountPoint))
	doc.SetField("site", s.Domain)
	doc.SetField("siteHash", s.SiteHash)
	doc.SetField("appKey", AppKey)
	doc.SetField("type", recordType)

	doc.SetField("uid", p.ID)
	doc.SetField("pid", p.ParentID)
	doc.SetField("variantId", b.variants.BuildFromTypeAndUID(recordType, p.ID))

	doc.SetField("typeNum", p.Type)
	doc.SetField("created", p.Created)
	doc.SetField("changed", p.Changed)
	doc.SetField("rootline", rootlineFieldValue(p.ID, mountPoint))

	if a := rootline.String(); strings.TrimSpace(a) != "" {
		doc.SetField("access", a)
	}
	if p.EndTime != 0 {
		doc.SetField("endtime", p.EndTime)
	}

	_, span = tracing.StartChildSpan(ctx, "extract_content")
	content := b.extractor.Extract(p.Content)
	span.End()

	title := content.PageTitle
	if title == "" {
		title = p.Title
	}
	doc.SetField("title", title)
	doc.SetField("subTitle", p.SubTitle)
	doc.SetField("navTitle", p.NavTitle)
	doc.SetField("author", p.Author)
	doc.SetField("description", p.Description)
	doc.SetField("abstract", p.Abstract)
	doc.SetField("content", content.IndexableContent)
	doc.SetField("url", url)

	if p.Keywords != nil {
		for _, kw := range splitKeywords(*p.Keywords) {
			doc.AddField("keywords", kw)
		}
	}

	// Tag fields may shadow fixed fields; the later write wins.
	for _, tag := range content.TagContent {
		if doc.Has(tag.Name) {
			logger.FromContext(ctx).Warn("tag content overwrites document field",
				"field", tag.Name,
				"page_id", p.ID,
			)
		}
		doc.SetField(tag.Name, tag.Text)
	}

	return doc, nil
}

func (b *Builder) observe(start time.Time, err error) {
	if b.metrics == nil {
		return
	}
	b.metrics.DocumentBuildDuration.Observe(time.Since(start).Seconds())
	result := "ok"
	switch {
	case errors.Is(err, apperrors.ErrSiteNotFound):
		result = "site_not_found"
	case err != nil:
		result = "error"
	}
	b.metrics.DocumentsBuiltTotal.WithLabelValues(result).Inc()
}

// documentIDGroups returns the cleaned group list of rootline joined with
// commas, or "0" when no group restricts the page.
func documentIDGroups(rootline access.Rootline) string {
	groups := access.CleanGroupArray(rootline.Groups())
	if len(groups) == 0 {
		return publicGroups
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, ",")
}

func rootlineFieldValue(pageID int, mountPoint string) string {
	v := strconv.Itoa(pageID)
	if mountPoint != "" {
		v += "," + mountPoint
	}
	return v
}

// splitKeywords splits on commas, trims, drops empty entries and keeps the
// first occurrence of each keyword.
func splitKeywords(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
