// Package site resolves the site a page belongs to. A site is identified by
// its root page; its hash scopes document ids so that several installations
// can share one search index.
package site

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
)

// Site is a configured website rooted at RootPageID.
type Site struct {
	RootPageID int    `json:"root_page_id"`
	Name       string `json:"name"`
	Domain     string `json:"domain"`
	SiteHash   string `json:"site_hash"`
}

// Resolver finds the site owning a page. Implementations return an error
// matching apperrors.ErrSiteNotFound when no site covers the page and must
// be safe for concurrent use.
type Resolver interface {
	SiteByPageID(ctx context.Context, pageID int) (Site, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, pageID int) (Site, error)

func (f ResolverFunc) SiteByPageID(ctx context.Context, pageID int) (Site, error) {
	return f(ctx, pageID)
}

// ComputeSiteHash derives the stable hash of a domain for one installation.
func ComputeSiteHash(domain, encryptionKey string) string {
	sum := sha1.Sum([]byte(domain + encryptionKey + "tx_solr"))
	return hex.EncodeToString(sum[:])
}
