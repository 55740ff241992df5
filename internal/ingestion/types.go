// Package ingestion defines the request/response types and Kafka event
// schemas shared by the document build API and the page worker.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/document"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/page"
)

// BuildRequest is the JSON body accepted by the build endpoint. It carries a
// rendered page and the request context it was rendered in.
type BuildRequest struct {
	Page           page.Page `json:"page"`
	URL            string    `json:"url"`
	AccessRootline string    `json:"access_rootline"`
	MountPoint     string    `json:"mount_point,omitempty"`
}

// Rendering converts the request into the form the builder consumes.
func (r BuildRequest) Rendering() page.Rendering {
	return page.Rendering{
		Page:           r.Page,
		URL:            r.URL,
		AccessRootline: r.AccessRootline,
		MountPoint:     r.MountPoint,
	}
}

// BuildResponse is returned by the build endpoint.
type BuildResponse struct {
	Document  *document.Document `json:"document"`
	Published bool               `json:"published"`
}

// PageRenderedEvent is the payload of the page-rendered topic, produced by
// the CMS each time a page is rendered for indexing.
type PageRenderedEvent struct {
	EventID    string    `json:"event_id"`
	RenderedAt time.Time `json:"rendered_at"`
	BuildRequest
}
