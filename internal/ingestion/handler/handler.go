// Package handler serves the document build API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/access"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/document"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/page"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/logger"
)

const maxBodyBytes = 8 << 20

// DocumentBuilder is satisfied by *builder.Builder.
type DocumentBuilder interface {
	BuildFromPage(ctx context.Context, p page.Page, url string, rootline access.Rootline, mountPoint string) (*document.Document, error)
}

// DocumentPublisher is satisfied by *publisher.Publisher.
type DocumentPublisher interface {
	Publish(ctx context.Context, doc *document.Document) error
}

// CacheInvalidator is satisfied by *site.CachedResolver.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int64, error)
	InvalidatePage(ctx context.Context, pageID int) (int64, error)
}

type Handler struct {
	builder   DocumentBuilder
	publisher DocumentPublisher
	siteCache CacheInvalidator
	logger    *slog.Logger
}

// New creates a Handler. pub and siteCache may be nil; the endpoints that
// need them then answer 503.
func New(b DocumentBuilder, pub DocumentPublisher, siteCache CacheInvalidator) *Handler {
	return &Handler{
		builder:   b,
		publisher: pub,
		siteCache: siteCache,
		logger:    slog.Default().With("component", "build-handler"),
	}
}

// Build handles POST /api/v1/documents/build. The built document is
// returned; with ?publish=true it is also written to the documents topic.
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	publish := false
	if v := r.URL.Query().Get("publish"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "publish must be a boolean")
			return
		}
		publish = b
	}
	if publish && h.publisher == nil {
		h.writeError(w, http.StatusServiceUnavailable, "publishing is not configured")
		return
	}

	var req ingestion.BuildRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateBuildRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx = logger.WithPageID(ctx, req.Page.ID)
	log := logger.FromContext(ctx)

	// Validation has already parsed the rootline once.
	rootline, _ := access.Parse(req.AccessRootline)
	doc, err := h.builder.BuildFromPage(ctx, req.Page, req.URL, rootline, req.MountPoint)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Warn("document build failed", "error", err, "status_code", status)
		h.writeError(w, status, err.Error())
		return
	}

	if publish {
		if err := h.publisher.Publish(ctx, doc); err != nil {
			log.Error("document publish failed", "doc_id", doc.ID(), "error", err)
			h.writeError(w, http.StatusBadGateway, "document built but could not be published")
			return
		}
		log.Info("document published", "doc_id", doc.ID())
	}

	h.writeJSON(w, http.StatusOK, ingestion.BuildResponse{Document: doc, Published: publish})
}

// InvalidateSiteCache handles POST /api/v1/sites/cache/invalidate. With
// ?page=<uid> only that page's entry is dropped.
func (h *Handler) InvalidateSiteCache(w http.ResponseWriter, r *http.Request) {
	if h.siteCache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "site cache is not configured")
		return
	}
	if v := r.URL.Query().Get("page"); v != "" {
		pageID, err := strconv.Atoi(v)
		if err != nil || pageID <= 0 {
			h.writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		deleted, err := h.siteCache.InvalidatePage(r.Context(), pageID)
		if err != nil {
			logger.FromContext(r.Context()).Error("site cache invalidation failed", "page_id", pageID, "error", err)
			h.writeError(w, http.StatusServiceUnavailable, "site cache unavailable")
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]int64{"keys_deleted": deleted})
		return
	}
	deleted, err := h.siteCache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("site cache invalidation failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "site cache unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
