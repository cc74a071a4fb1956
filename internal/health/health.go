// Package health probes the reachability of the registered upstream
// sources. A probe is a single lightweight GET against each source's base
// URL; any HTTP response counts as reachable, since several of the
// government APIs answer their root path with 404 while being perfectly
// healthy.
package health

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dadosbr/agregador/internal/registry"
)

const defaultProbeTimeout = 5 * time.Second

// Status is the probe result for one source.
type Status struct {
	Source     string `json:"source"`
	Healthy    bool   `json:"healthy"`
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
}

// Checker probes every registered source concurrently.
type Checker struct {
	registry   *registry.Registry
	httpClient *http.Client
	timeout    time.Duration
}

// NewChecker builds a Checker. A nil httpClient selects a default with
// the probe timeout.
func NewChecker(reg *registry.Registry, httpClient *http.Client) *Checker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultProbeTimeout}
	}
	return &Checker{
		registry:   reg,
		httpClient: httpClient,
		timeout:    defaultProbeTimeout,
	}
}

// CheckAll probes every enabled source and returns one status per source
// in registration order. Disabled sources are reported unhealthy with the
// reason "disabled" and are not probed.
func (c *Checker) CheckAll(ctx context.Context) []Status {
	descriptors := c.registry.All()
	statuses := make([]Status, len(descriptors))

	var g errgroup.Group
	for i, desc := range descriptors {
		if !desc.Enabled {
			statuses[i] = Status{Source: desc.Key, Reason: "disabled"}
			continue
		}
		i, desc := i, desc
		g.Go(func() error {
			statuses[i] = c.probe(ctx, desc.Key, desc.BaseURL)
			return nil
		})
	}
	g.Wait()

	return statuses
}

func (c *Checker) probe(ctx context.Context, source, baseURL string) Status {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, baseURL, nil)
	if err != nil {
		return Status{Source: source, Reason: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	latency := time.Since(started).Milliseconds()
	if err != nil {
		return Status{Source: source, Reason: err.Error(), LatencyMs: latency}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return Status{
		Source:     source,
		Healthy:    true,
		StatusCode: resp.StatusCode,
		LatencyMs:  latency,
	}
}
