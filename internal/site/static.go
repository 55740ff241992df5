package site

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
)

// StaticResolver answers lookups from the site table in the configuration.
// It is immutable after construction.
type StaticResolver struct {
	byPage map[int]Site
}

// NewStaticResolver indexes every root page and member page of entries.
// A page listed under two sites is a configuration error.
func NewStaticResolver(entries []config.SiteEntry, encryptionKey string) (*StaticResolver, error) {
	r := &StaticResolver{byPage: make(map[int]Site)}
	for _, entry := range entries {
		s := Site{
			RootPageID: entry.RootPageID,
			Name:       entry.Name,
			Domain:     entry.Domain,
			SiteHash:   ComputeSiteHash(entry.Domain, encryptionKey),
		}
		ids := append([]int{entry.RootPageID}, entry.PageIDs...)
		for _, id := range ids {
			if prev, dup := r.byPage[id]; dup && prev.RootPageID != s.RootPageID {
				return nil, fmt.Errorf("page %d belongs to sites %d and %d", id, prev.RootPageID, s.RootPageID)
			}
			r.byPage[id] = s
		}
	}
	return r, nil
}

func (r *StaticResolver) SiteByPageID(_ context.Context, pageID int) (Site, error) {
	s, ok := r.byPage[pageID]
	if !ok {
		return Site{}, apperrors.SiteNotFound(pageID)
	}
	return s, nil
}
