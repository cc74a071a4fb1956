package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/types"
)

// FetchParams carries the resolved query context into a source adapter.
type FetchParams struct {
	Query     string
	Category  string
	DateRange *types.DateRange
}

// Adapter is the two-function capability contract each source exposes:
// build the outbound request, and parse one page of the response. The
// core depends only on this contract, never on a source's schema.
type Adapter interface {
	BuildRequest(params FetchParams) (httpclient.Request, error)
	httpclient.PageParser
}

// SourceDescriptor identifies one upstream API. Descriptors are immutable
// after registration and owned by the Registry.
type SourceDescriptor struct {
	Key             string
	Name            string
	BaseURL         string
	Enabled         bool
	TokenRequired   bool
	TokenHeader     string
	RateLimit       int // requests per minute
	Pagination      httpclient.PaginationStyle
	PageParam       string
	CourtesyDelay   time.Duration
	DefaultLookback time.Duration
	Categories      []string
	Adapter         Adapter
}

// HasCategory reports whether the descriptor serves the given category.
func (d *SourceDescriptor) HasCategory(category string) bool {
	for _, c := range d.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Registry is the static catalogue of sources plus the keyword routing
// table. Built once at startup, read-only afterwards.
type Registry struct {
	sources  map[string]*SourceDescriptor
	order    []string
	keywords map[string][]string
	defaults []string
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		sources:  make(map[string]*SourceDescriptor),
		keywords: make(map[string][]string),
	}
}

// Register adds a source descriptor. Keys must be unique.
func (r *Registry) Register(desc *SourceDescriptor) error {
	if desc == nil || desc.Key == "" {
		return fmt.Errorf("registry: descriptor requires a key")
	}
	if desc.BaseURL == "" {
		return fmt.Errorf("registry: source %s requires a base URL", desc.Key)
	}
	if desc.Adapter == nil {
		return fmt.Errorf("registry: source %s requires an adapter", desc.Key)
	}
	if _, exists := r.sources[desc.Key]; exists {
		return fmt.Errorf("registry: source %s already registered", desc.Key)
	}
	if desc.Pagination == "" {
		desc.Pagination = httpclient.PaginationNone
	}
	r.sources[desc.Key] = desc
	r.order = append(r.order, desc.Key)
	return nil
}

// MapKeyword routes a query keyword to one or more source keys. Keywords
// are stored accent-folded and lower-cased.
func (r *Registry) MapKeyword(keyword string, sourceKeys ...string) {
	folded := Normalize(keyword)
	if folded == "" || len(sourceKeys) == 0 {
		return
	}
	r.keywords[folded] = append(r.keywords[folded], sourceKeys...)
}

// SetDefaults fixes the fallback set used when no keyword matches.
func (r *Registry) SetDefaults(sourceKeys ...string) {
	r.defaults = sourceKeys
}

// Get returns the descriptor for key.
func (r *Registry) Get(key string) (*SourceDescriptor, bool) {
	desc, ok := r.sources[key]
	return desc, ok
}

// All returns every registered descriptor in registration order.
func (r *Registry) All() []*SourceDescriptor {
	out := make([]*SourceDescriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.sources[key])
	}
	return out
}

// RateBudgets returns the per-source requests-per-minute budgets.
func (r *Registry) RateBudgets() map[string]int {
	budgets := make(map[string]int, len(r.sources))
	for key, desc := range r.sources {
		budgets[key] = desc.RateLimit
	}
	return budgets
}

// Resolve produces the ordered, de-duplicated set of sources to query.
// Explicit sources win outright; otherwise every keyword contained in the
// folded query text contributes its mapped sources (union, not
// short-circuit), and an empty match set falls back to the defaults.
func (r *Registry) Resolve(queryText string, explicit []string, category string) []*SourceDescriptor {
	if len(explicit) > 0 {
		return r.collect(explicit, "")
	}

	folded := Normalize(queryText)
	matched := make([]string, 0, 4)

	// Deterministic scan order regardless of map iteration.
	keywords := make([]string, 0, len(r.keywords))
	for keyword := range r.keywords {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	for _, keyword := range keywords {
		if strings.Contains(folded, keyword) {
			matched = append(matched, r.keywords[keyword]...)
		}
	}

	if len(matched) == 0 {
		matched = r.defaults
	}
	return r.collect(matched, category)
}

func (r *Registry) collect(keys []string, category string) []*SourceDescriptor {
	seen := make(map[string]bool, len(keys))
	out := make([]*SourceDescriptor, 0, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		desc, ok := r.sources[key]
		if !ok || !desc.Enabled {
			continue
		}
		if category != "" && len(desc.Categories) > 0 && !desc.HasCategory(category) {
			continue
		}
		out = append(out, desc)
	}
	return out
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases and strips combining marks so "Saúde" and "saude"
// compare equal during keyword matching.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}
