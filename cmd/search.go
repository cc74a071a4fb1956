package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dadosbr/agregador/internal/aggregator"
	appconfig "github.com/dadosbr/agregador/internal/config"
	"github.com/dadosbr/agregador/internal/metrics"
	"github.com/dadosbr/agregador/internal/observability"
	"github.com/dadosbr/agregador/internal/sources"
	"github.com/dadosbr/agregador/internal/types"
)

var (
	searchQuery    string
	searchSources  []string
	searchCategory string
	searchLimit    int
	searchPage     int
	searchFrom     string
	searchTo       string
	searchJSON     bool
	searchTimeout  int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search across the registered government data sources",
	Long: `
Search fans the query out to every source the router resolves for it and
prints the merged, relevance-ranked results. Sources can also be pinned
explicitly with --sources.

Examples:
  # Route by query keywords
  agregador search -q "gastos do ministerio da saude"

  # Pin specific sources
  agregador search -q "dolar" --sources bancocentral

  # Bounded date window, JSON output
  agregador search -q "despesas" --from 2026-08-01 --to 2026-08-29 --json
`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Text query to search for (required)")
	searchCmd.Flags().StringSliceVar(&searchSources, "sources", nil, "Comma-separated source keys to pin (skips keyword routing)")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Restrict to sources serving this category")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum results to return (defaults to config)")
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "Result page to return")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "Start of date window (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "End of date window (YYYY-MM-DD)")
	searchCmd.Flags().BoolVarP(&searchJSON, "json", "j", false, "Output results in JSON format")
	searchCmd.Flags().IntVar(&searchTimeout, "timeout", 0, "Request timeout in seconds (defaults to config)")

	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	shutdown, err := observability.Init(cfg)
	if err != nil {
		log.Printf("Warning: observability init failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	if err := metrics.Init(); err == nil {
		metrics.RecordInvocation(metrics.ModeSearch)
		_ = metrics.InitOTelMetrics()
	}
	defer func() { _ = metrics.Close() }()

	req := types.SearchRequest{
		Query:    searchQuery,
		Sources:  searchSources,
		Category: searchCategory,
		Limit:    searchLimit,
		Page:     searchPage,
	}
	req.DateRange, err = parseDateRange(searchFrom, searchTo)
	if err != nil {
		return err
	}

	reg, err := sources.DefaultRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to build source registry: %w", err)
	}
	agg := aggregator.New(cfg, reg)

	timeout := cfg.SearchTimeout
	if searchTimeout > 0 {
		timeout = time.Duration(searchTimeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	resp, err := agg.Search(ctx, req)
	if err != nil {
		return err
	}

	if searchJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	}

	printSearchResponse(resp)
	return nil
}

func printSearchResponse(resp *types.SearchResponse) {
	fmt.Printf("Query: %s\n", resp.Query)
	fmt.Printf("Sources: %s\n", strings.Join(resp.SourcesQueried, ", "))
	fmt.Printf("Results: %d (%dms)\n\n", len(resp.Results), resp.TookMs)

	for i, result := range resp.Results {
		fmt.Printf("%d. [%s] %s (relevance %.2f)\n", i+1, result.Source, result.Title, result.Relevance)
		if result.Description != "" && result.Description != result.Title {
			fmt.Printf("   %s\n", truncate(result.Description, 160))
		}
		if result.URL != "" {
			fmt.Printf("   %s\n", result.URL)
		}
	}

	if len(resp.SourceErrors) > 0 {
		fmt.Println("\nSource errors:")
		for _, sourceErr := range resp.SourceErrors {
			fmt.Printf("  %s: %s\n", sourceErr.Source, sourceErr.Reason)
		}
	}
}

func parseDateRange(from, to string) (*types.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	var dr types.DateRange
	var err error
	if from != "" {
		dr.Start, err = time.Parse("2006-01-02", from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from date %q: %w", from, err)
		}
	}
	if to != "" {
		dr.End, err = time.Parse("2006-01-02", to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to date %q: %w", to, err)
		}
	}
	if !dr.Start.IsZero() && !dr.End.IsZero() && dr.End.Before(dr.Start) {
		return nil, fmt.Errorf("--to date is before --from date")
	}
	return &dr, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
