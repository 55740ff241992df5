package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/document"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/site"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/config"
)

type recordingPublisher struct {
	docs []*document.Document
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, doc *document.Document) error {
	if p.err != nil {
		return p.err
	}
	p.docs = append(p.docs, doc)
	return nil
}

type fakeCache struct {
	deleted int64
	err     error
	pages   *[]int
}

func (c fakeCache) Invalidate(context.Context) (int64, error) {
	return c.deleted, c.err
}

// InvalidatePage reports one deleted key for pages not seen before.
func (c fakeCache) InvalidatePage(_ context.Context, pageID int) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	for _, p := range *c.pages {
		if p == pageID {
			return 0, nil
		}
	}
	*c.pages = append(*c.pages, pageID)
	return 1, nil
}

func newTestBuilder(t *testing.T) *builder.Builder {
	t.Helper()
	sites, err := site.NewStaticResolver([]config.SiteEntry{
		{Name: "main", RootPageID: 1, Domain: "www.example.org", PageIDs: []int{42}},
	}, "key")
	require.NoError(t, err)
	b, err := builder.New(sites, variant.NewIDBuilder("test"), extractor.NewHTMLExtractor())
	require.NoError(t, err)
	return b
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents/build", h.Build)
	mux.HandleFunc("POST /api/v1/sites/cache/invalidate", h.InvalidateSiteCache)
	return mux
}

const buildBody = `{
	"page": {"uid": 42, "type": 0, "pid": 1, "crdate": 100, "SYS_LASTCHANGED": 200,
	         "keywords": "a, b", "content": "<title>Hello</title><p>World</p>"},
	"url": "https://www.example.org/hello",
	"access_rootline": "42:1/c:0"
}`

func do(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBuildReturnsDocument(t *testing.T) {
	pub := &recordingPublisher{}
	mux := newMux(New(newTestBuilder(t), pub, nil))

	rec := do(t, mux, "/api/v1/documents/build", buildBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Document  map[string]any `json:"document"`
		Published bool           `json:"published"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Published)
	assert.Equal(t, site.ComputeSiteHash("www.example.org", "key")+"/pages/42/0/0/1", resp.Document["id"])
	assert.Equal(t, "Hello", resp.Document["title"])
	assert.Equal(t, "42:1/c:0", resp.Document["access"])
	assert.Equal(t, []any{"a", "b"}, resp.Document["keywords"])
	assert.Empty(t, pub.docs)
}

func TestBuildAndPublish(t *testing.T) {
	pub := &recordingPublisher{}
	mux := newMux(New(newTestBuilder(t), pub, nil))

	rec := do(t, mux, "/api/v1/documents/build?publish=true", buildBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"published":true`)
	require.Len(t, pub.docs, 1)
	assert.Equal(t, "42", pub.docs[0].String("rootline"))
}

func TestBuildPublishFailure(t *testing.T) {
	mux := newMux(New(newTestBuilder(t), &recordingPublisher{err: errors.New("kafka down")}, nil))

	rec := do(t, mux, "/api/v1/documents/build?publish=1", buildBody)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBuildPublishWithoutPublisher(t *testing.T) {
	mux := newMux(New(newTestBuilder(t), nil, nil))

	rec := do(t, mux, "/api/v1/documents/build?publish=true", buildBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBuildRejectsBadInput(t *testing.T) {
	mux := newMux(New(newTestBuilder(t), nil, nil))

	tests := []struct {
		name   string
		target string
		body   string
		want   string
	}{
		{"malformed json", "/api/v1/documents/build", `{`, "invalid JSON body"},
		{"bad publish flag", "/api/v1/documents/build?publish=maybe", buildBody, "publish must be a boolean"},
		{"validation", "/api/v1/documents/build", `{"page":{"uid":0},"url":""}`, "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestBuildUnknownSite(t *testing.T) {
	mux := newMux(New(newTestBuilder(t), nil, nil))

	rec := do(t, mux, "/api/v1/documents/build", `{"page":{"uid":777},"url":"https://x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no site configured for page 777")
}

func TestInvalidateSiteCache(t *testing.T) {
	var pages []int
	mux := newMux(New(newTestBuilder(t), nil, fakeCache{deleted: 3, pages: &pages}))
	rec := do(t, mux, "/api/v1/sites/cache/invalidate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"keys_deleted":3}`, rec.Body.String())

	rec = do(t, mux, "/api/v1/sites/cache/invalidate?page=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"keys_deleted":1}`, rec.Body.String())
	assert.Equal(t, []int{42}, pages)

	rec = do(t, mux, "/api/v1/sites/cache/invalidate?page=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"keys_deleted":0}`, rec.Body.String())

	rec = do(t, mux, "/api/v1/sites/cache/invalidate?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mux = newMux(New(newTestBuilder(t), nil, fakeCache{err: errors.New("redis down")}))
	rec = do(t, mux, "/api/v1/sites/cache/invalidate", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	mux = newMux(New(newTestBuilder(t), nil, nil))
	rec = do(t, mux, "/api/v1/sites/cache/invalidate", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
