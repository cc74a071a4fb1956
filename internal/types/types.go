package types

import (
	"fmt"
	"time"
)

// ErrorType classifies a failed upstream interaction.
type ErrorType string

const (
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeRateLimited      ErrorType = "rate_limited"
	ErrorTypeUpstreamServer   ErrorType = "upstream_server_error"
	ErrorTypeUpstreamClient   ErrorType = "upstream_client_error"
	ErrorTypeMalformedPayload ErrorType = "malformed_payload"
	ErrorTypeAuthRequired     ErrorType = "auth_required"
	ErrorTypeUnknown          ErrorType = "unknown"

	// Aggregate-level conditions, never attached to a single source.
	ErrorTypeAllSourcesUnavailable ErrorType = "all_sources_unavailable"
	ErrorTypeNoSourceMatched       ErrorType = "no_source_matched"
)

// DateRange bounds a time-scoped query. Zero values mean unbounded.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether no bound was supplied.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// SearchRequest is the single inbound operation of the aggregation core.
type SearchRequest struct {
	Query     string     `json:"query"`
	Sources   []string   `json:"sources,omitempty"`
	Category  string     `json:"category,omitempty"`
	DateRange *DateRange `json:"date_range,omitempty"`
	Page      int        `json:"page,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// AggregatedResult is one normalized record surviving relevance filtering.
type AggregatedResult struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Data        any       `json:"data"`
	Relevance   float64   `json:"relevance"`
	Timestamp   time.Time `json:"timestamp"`
	URL         string    `json:"url,omitempty"`
}

// SourceStatus is one ledger entry of the aggregate response. Every resolved
// source gets exactly one entry so callers can tell "no data" from
// "source unreachable".
type SourceStatus struct {
	Source    string    `json:"source"`
	Success   bool      `json:"success"`
	Empty     bool      `json:"empty,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
	ErrorType ErrorType `json:"error_type,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// SourceError is the error-only projection of the ledger used in responses.
type SourceError struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// SearchResponse is the terminal output of the aggregation core.
type SearchResponse struct {
	RequestID      string             `json:"request_id"`
	Query          string             `json:"query"`
	Results        []AggregatedResult `json:"results"`
	SourcesQueried []string           `json:"sources_queried"`
	SourceErrors   []SourceError      `json:"source_errors"`
	Ledger         []SourceStatus     `json:"ledger"`
	TookMs         int64              `json:"took_ms"`
}

// AggregateError is a request-level failure: routing produced no candidates,
// or every resolved source failed.
type AggregateError struct {
	Type   ErrorType
	Ledger []SourceStatus
}

func (e *AggregateError) Error() string {
	switch e.Type {
	case ErrorTypeNoSourceMatched:
		return "no source matched the query"
	case ErrorTypeAllSourcesUnavailable:
		return fmt.Sprintf("all %d resolved sources unavailable", len(e.Ledger))
	default:
		return string(e.Type)
	}
}

// Config represents the aggregator configuration loaded from environment
// variables.
type Config struct {
	// HTTP API server
	ServerHost string `json:"server_host" env:"SERVER_HOST,default=localhost"`
	ServerPort int    `json:"server_port" env:"SERVER_PORT,default=8080"`

	// Upstream fetch behaviour
	HTTPTimeout   time.Duration `json:"http_timeout" env:"HTTP_TIMEOUT,default=30s"`
	RetryAttempts int           `json:"retry_attempts" env:"RETRY_ATTEMPTS,default=3"`
	BackoffBase   time.Duration `json:"backoff_base" env:"BACKOFF_BASE,default=1s"`
	PageCap       int           `json:"page_cap" env:"PAGE_CAP,default=5"`
	PageDelay     time.Duration `json:"page_delay" env:"PAGE_DELAY,default=500ms"`

	// Aggregation
	SearchTimeout      time.Duration `json:"search_timeout" env:"SEARCH_TIMEOUT,default=30s"`
	DefaultResultLimit int           `json:"default_result_limit" env:"DEFAULT_RESULT_LIMIT,default=20"`

	// Response cache
	CacheTTL     time.Duration `json:"cache_ttl" env:"CACHE_TTL,default=1h"`
	CacheEnabled bool          `json:"cache_enabled" env:"CACHE_ENABLED,default=true"`

	// Source credentials
	TransparenciaAPIKey string `json:"-" env:"TRANSPARENCIA_API_KEY"`

	// OpenTelemetry
	OTelEnabled              bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=agregador"`
	OTelExporterOTLPEndpoint string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string  `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}
