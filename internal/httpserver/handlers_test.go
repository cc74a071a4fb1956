package httpserver

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dadosbr/agregador/internal/aggregator"
	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/ratelimit"
	"github.com/dadosbr/agregador/internal/registry"
	"github.com/dadosbr/agregador/internal/types"
)

type fixedAdapter struct {
	source string
	url    string
}

func (a *fixedAdapter) BuildRequest(registry.FetchParams) (httpclient.Request, error) {
	return httpclient.Request{
		Source:  a.source,
		URL:     a.url,
		Query:   url.Values{},
		Headers: http.Header{},
	}, nil
}

func (a *fixedAdapter) ParsePage(body []byte) (*httpclient.Page, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, err
	}
	return &httpclient.Page{Records: records}, nil
}

func newTestServer(t *testing.T, upstreamBody string) *Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstreamBody))
	}))
	t.Cleanup(upstream.Close)

	reg := registry.New()
	require.NoError(t, reg.Register(&registry.SourceDescriptor{
		Key:        "stub",
		Name:       "Stub Source",
		BaseURL:    upstream.URL,
		Enabled:    true,
		RateLimit:  600000,
		Pagination: httpclient.PaginationNone,
		Categories: []string{"teste"},
		Adapter:    &fixedAdapter{source: "stub", url: upstream.URL},
	}))
	reg.MapKeyword("dados", "stub")

	cfg := &types.Config{
		RetryAttempts:      1,
		BackoffBase:        time.Millisecond,
		PageCap:            3,
		SearchTimeout:      5 * time.Second,
		DefaultResultLimit: 20,
		CacheTTL:           time.Hour,
	}

	client := httpclient.NewClient(
		ratelimit.NewSourceLimiter(map[string]int{"stub": 600000}),
		httpclient.WithMaxAttempts(1),
		httpclient.WithLogger(log.New(io.Discard, "", 0)),
	)
	agg := aggregator.New(cfg, reg,
		aggregator.WithClient(client),
		aggregator.WithLogger(log.New(io.Discard, "", 0)),
	)

	srv, err := NewServer(nil, cfg, agg, reg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	srv.started = time.Now()
	return srv
}

func TestHandleSearchGet(t *testing.T) {
	srv := newTestServer(t, `[{"id": 1, "nome": "dados abertos"}]`)

	rec := httptest.NewRecorder()
	srv.handleSearch(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=dados", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dados", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "stub", resp.Results[0].Source)
	assert.Equal(t, []string{"stub"}, resp.SourcesQueried)
}

func TestHandleSearchPost(t *testing.T) {
	srv := newTestServer(t, `[{"id": 2, "nome": "dados"}]`)

	body := `{"query": "dados", "sources": ["stub"], "limit": 5}`
	rec := httptest.NewRecorder()
	srv.handleSearch(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 1)
}

func TestHandleSearchMissingQuery(t *testing.T) {
	srv := newTestServer(t, `[]`)

	rec := httptest.NewRecorder()
	srv.handleSearch(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchNoSourceMatched(t *testing.T) {
	srv := newTestServer(t, `[]`)

	// No keyword matches and the test registry declares no defaults.
	rec := httptest.NewRecorder()
	srv.handleSearch(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=nada+relacionado", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrorTypeNoSourceMatched), resp.Type)
}

func TestHandleSearchMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, `[]`)

	rec := httptest.NewRecorder()
	srv.handleSearch(rec, httptest.NewRequest(http.MethodDelete, "/api/search", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSources(t *testing.T) {
	srv := newTestServer(t, `[]`)

	rec := httptest.NewRecorder()
	srv.handleSources(rec, httptest.NewRequest(http.MethodGet, "/api/sources", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Sources []SourceInfo `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "stub", resp.Sources[0].Key)
	assert.True(t, resp.Sources[0].Enabled)
	assert.Equal(t, 600000, resp.Sources[0].RateLimit)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, `[]`)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Sources)
	assert.Empty(t, resp.Probes)
}

func TestHandleHealthWithProbe(t *testing.T) {
	srv := newTestServer(t, `[]`)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?probe=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Probes, 1)
	assert.Equal(t, "stub", resp.Probes[0].Source)
	assert.True(t, resp.Probes[0].Healthy)
}
