// Package aggregator implements the fan-out search core: resolve the
// sources a query should hit, fetch them concurrently with per-source
// isolation, then merge the survivors into one relevance-ranked response.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/dadosbr/agregador/internal/cache"
	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/ratelimit"
	"github.com/dadosbr/agregador/internal/registry"
	"github.com/dadosbr/agregador/internal/types"
)

const tracerName = "github.com/dadosbr/agregador/internal/aggregator"

// Aggregator orchestrates one search across the registered sources. It is
// safe for concurrent use; per-request state lives on the stack of Search.
type Aggregator struct {
	registry  *registry.Registry
	client    *httpclient.Client
	paginator *httpclient.Paginator
	cache     *cache.ResponseCache
	cfg       *types.Config
	logger    *log.Logger
	now       func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClient substitutes the fetch client, used by tests to point at
// httptest servers.
func WithClient(c *httpclient.Client) Option {
	return func(a *Aggregator) {
		a.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New builds an Aggregator over the given registry. The rate-limiter
// budgets come from the registry's descriptors, so a source's limit
// follows it wherever the shared client is used.
func New(cfg *types.Config, reg *registry.Registry, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry: reg,
		cfg:      cfg,
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.client == nil {
		limiter := ratelimit.NewSourceLimiter(reg.RateBudgets())
		a.client = httpclient.NewClient(limiter,
			httpclient.WithMaxAttempts(cfg.RetryAttempts),
			httpclient.WithBackoffBase(cfg.BackoffBase),
			httpclient.WithLogger(a.logger),
		)
	}
	a.paginator = httpclient.NewPaginator(a.client, a.logger)
	if cfg.CacheEnabled {
		a.cache = cache.New(cfg.CacheTTL)
	}
	return a
}

// sourceOutcome is what one fan-out branch reports back to the merge phase.
type sourceOutcome struct {
	status  types.SourceStatus
	results []types.AggregatedResult
}

// Search runs the full pipeline for one request: resolve, fetch, merge.
//
// Source failures are isolated: one branch timing out or erroring never
// cancels the others, and the response carries a ledger entry for every
// resolved source. Search returns an error only for request-level
// failures, when routing matched nothing or every branch failed.
func (a *Aggregator) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	started := a.now()
	requestID := uuid.NewString()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "aggregator.search")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", requestID))

	resolved := a.registry.Resolve(req.Query, req.Sources, req.Category)
	if len(resolved) == 0 {
		a.logger.Printf("[search %s] no source matched query %q", requestID, req.Query)
		return nil, &types.AggregateError{Type: types.ErrorTypeNoSourceMatched}
	}
	span.SetAttributes(attribute.Int("sources.resolved", len(resolved)))
	a.logger.Printf("[search %s] resolved %d sources for %q", requestID, len(resolved), req.Query)

	searchCtx, cancel := context.WithTimeout(ctx, a.cfg.SearchTimeout)
	defer cancel()

	// Fan out. A plain errgroup (no shared cancellation) keeps branches
	// isolated; each branch reports through its own outcome slot.
	outcomes := make([]sourceOutcome, len(resolved))
	var g errgroup.Group
	for i, desc := range resolved {
		i, desc := i, desc
		g.Go(func() error {
			outcomes[i] = a.fetchSource(searchCtx, desc, req)
			return nil
		})
	}
	g.Wait()

	return a.merge(requestID, req, resolved, outcomes, started)
}

// fetchSource runs one branch of the fan-out: cache probe, paginated
// fetch, normalization and scoring. It never returns an error; failures
// become the branch's ledger entry.
func (a *Aggregator) fetchSource(ctx context.Context, desc *registry.SourceDescriptor, req types.SearchRequest) sourceOutcome {
	params := registry.FetchParams{
		Query:     req.Query,
		Category:  req.Category,
		DateRange: a.effectiveDateRange(req.DateRange, desc),
	}

	httpReq, err := desc.Adapter.BuildRequest(params)
	if err != nil {
		return failedOutcome(desc.Key, types.ErrorTypeUnknown, err.Error())
	}

	cacheKey := ""
	if a.cache != nil {
		cacheKey = cache.Key(desc.Key, httpReq.URL, flattenQuery(httpReq.Query))
		if records, ok := a.cache.Get(cacheKey); ok {
			outcome := a.buildOutcome(desc, req, records)
			outcome.status.Cached = true
			return outcome
		}
	}

	records, fetchErr := a.paginator.FetchAll(ctx, httpclient.PageRequest{
		Request:   httpReq,
		Style:     desc.Pagination,
		PageParam: desc.PageParam,
		MaxPages:  a.cfg.PageCap,
		Delay:     desc.CourtesyDelay,
	}, desc.Adapter)

	if fetchErr != nil && len(records) == 0 {
		errorType := types.ErrorTypeUnknown
		var fe *httpclient.FetchError
		if errors.As(fetchErr, &fe) {
			errorType = fe.Type
		}
		a.logger.Printf("[source %s] fetch failed: %v", desc.Key, fetchErr)
		return failedOutcome(desc.Key, errorType, fetchErr.Error())
	}
	if fetchErr != nil {
		// Pagination halted mid-stream; the pages already fetched still
		// count as a (partial) success.
		a.logger.Printf("[source %s] pagination halted, keeping %d records: %v", desc.Key, len(records), fetchErr)
	}

	if a.cache != nil && fetchErr == nil {
		a.cache.Put(cacheKey, records)
	}
	return a.buildOutcome(desc, req, records)
}

func (a *Aggregator) buildOutcome(desc *registry.SourceDescriptor, req types.SearchRequest, records []json.RawMessage) sourceOutcome {
	fetchedAt := a.now()
	category := req.Category
	if category == "" && len(desc.Categories) > 0 {
		category = desc.Categories[0]
	}

	results := make([]types.AggregatedResult, 0, len(records))
	for _, raw := range records {
		result, ok := normalizeRecord(desc.Key, category, raw, fetchedAt)
		if !ok {
			continue
		}
		result.Relevance = Score(req.Query, searchableText(result))
		results = append(results, result)
	}

	return sourceOutcome{
		status: types.SourceStatus{
			Source:  desc.Key,
			Success: true,
			Empty:   len(results) == 0,
		},
		results: results,
	}
}

// merge is the terminal phase: rank the union of all branch results and
// assemble the response plus its ledger.
func (a *Aggregator) merge(requestID string, req types.SearchRequest, resolved []*registry.SourceDescriptor, outcomes []sourceOutcome, started time.Time) (*types.SearchResponse, error) {
	ledger := make([]types.SourceStatus, len(outcomes))
	merged := make([]types.AggregatedResult, 0, 64)
	var sourceErrors []types.SourceError
	succeeded := 0

	for i, outcome := range outcomes {
		ledger[i] = outcome.status
		if outcome.status.Success {
			succeeded++
			merged = append(merged, outcome.results...)
			continue
		}
		sourceErrors = append(sourceErrors, types.SourceError{
			Source: outcome.status.Source,
			Reason: outcome.status.Reason,
		})
	}

	if succeeded == 0 {
		a.logger.Printf("[search %s] all %d sources unavailable", requestID, len(resolved))
		return nil, &types.AggregateError{
			Type:   types.ErrorTypeAllSourcesUnavailable,
			Ledger: ledger,
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Relevance != merged[j].Relevance {
			return merged[i].Relevance > merged[j].Relevance
		}
		return merged[i].Source < merged[j].Source
	})
	merged = a.window(merged, req)

	queried := make([]string, len(resolved))
	for i, desc := range resolved {
		queried[i] = desc.Key
	}

	a.logger.Printf("[search %s] merged %d results from %d/%d sources in %s",
		requestID, len(merged), succeeded, len(resolved), time.Since(started).Round(time.Millisecond))

	return &types.SearchResponse{
		RequestID:      requestID,
		Query:          req.Query,
		Results:        merged,
		SourcesQueried: queried,
		SourceErrors:   sourceErrors,
		Ledger:         ledger,
		TookMs:         time.Since(started).Milliseconds(),
	}, nil
}

// window applies the request's page and limit to the ranked result set.
func (a *Aggregator) window(results []types.AggregatedResult, req types.SearchRequest) []types.AggregatedResult {
	limit := req.Limit
	if limit <= 0 {
		limit = a.cfg.DefaultResultLimit
	}
	page := req.Page
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * limit
	if offset >= len(results) {
		return []types.AggregatedResult{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

// effectiveDateRange fills a missing range from the source's default
// lookback. Sources that reject unbounded queries declare one.
func (a *Aggregator) effectiveDateRange(requested *types.DateRange, desc *registry.SourceDescriptor) *types.DateRange {
	if requested != nil && !requested.IsZero() {
		return requested
	}
	if desc.DefaultLookback <= 0 {
		return requested
	}
	end := a.now()
	return &types.DateRange{Start: end.Add(-desc.DefaultLookback), End: end}
}

func failedOutcome(source string, errorType types.ErrorType, reason string) sourceOutcome {
	return sourceOutcome{status: types.SourceStatus{
		Source:    source,
		ErrorType: errorType,
		Reason:    reason,
	}}
}

func flattenQuery(values url.Values) map[string]string {
	flat := make(map[string]string, len(values))
	for key := range values {
		flat[key] = values.Get(key)
	}
	return flat
}
