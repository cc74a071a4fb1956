package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/dadosbr/agregador/internal/config"
	"github.com/dadosbr/agregador/internal/health"
	"github.com/dadosbr/agregador/internal/metrics"
	"github.com/dadosbr/agregador/internal/sources"
)

var (
	sourcesJSON  bool
	sourcesCheck bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered data sources and their settings",
	Long: `
List every registered source with its rate budget, pagination style and
whether it is currently enabled. Sources requiring an API token show as
disabled until the token is configured. With --check each enabled source
is probed for reachability.
`,
	RunE: runSources,
}

func init() {
	sourcesCmd.Flags().BoolVarP(&sourcesJSON, "json", "j", false, "Output in JSON format")
	sourcesCmd.Flags().BoolVar(&sourcesCheck, "check", false, "Probe each enabled source for reachability")
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := metrics.Init(); err == nil {
		metrics.RecordInvocation(metrics.ModeSources)
	}
	defer func() { _ = metrics.Close() }()

	reg, err := sources.DefaultRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to build source registry: %w", err)
	}

	descriptors := reg.All()

	var probes map[string]health.Status
	if sourcesCheck {
		checker := health.NewChecker(reg, nil)
		probes = make(map[string]health.Status, len(descriptors))
		for _, status := range checker.CheckAll(cmd.Context()) {
			probes[status.Source] = status
		}
	}

	if sourcesJSON {
		type sourceRow struct {
			Key        string         `json:"key"`
			Name       string         `json:"name"`
			Enabled    bool           `json:"enabled"`
			RateLimit  int            `json:"rate_limit_per_minute"`
			Pagination string         `json:"pagination"`
			Categories []string       `json:"categories,omitempty"`
			Probe      *health.Status `json:"probe,omitempty"`
		}
		rows := make([]sourceRow, 0, len(descriptors))
		for _, desc := range descriptors {
			row := sourceRow{
				Key:        desc.Key,
				Name:       desc.Name,
				Enabled:    desc.Enabled,
				RateLimit:  desc.RateLimit,
				Pagination: string(desc.Pagination),
				Categories: desc.Categories,
			}
			if status, ok := probes[desc.Key]; ok {
				probeCopy := status
				row.Probe = &probeCopy
			}
			rows = append(rows, row)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}

	header := fmt.Sprintf("%-16s %-28s %-8s %-10s %-12s %s", "KEY", "NAME", "ENABLED", "RATE/MIN", "PAGINATION", "CATEGORIES")
	if sourcesCheck {
		header += fmt.Sprintf("  %-8s %-8s %s", "HEALTHY", "LATENCY", "DETAIL")
	}
	fmt.Println(header)
	for _, desc := range descriptors {
		line := fmt.Sprintf("%-16s %-28s %-8t %-10d %-12s %s",
			desc.Key, desc.Name, desc.Enabled, desc.RateLimit,
			desc.Pagination, strings.Join(desc.Categories, ","))
		if status, ok := probes[desc.Key]; ok {
			detail := status.Reason
			if status.Healthy {
				detail = fmt.Sprintf("HTTP %d", status.StatusCode)
			}
			line += fmt.Sprintf("  %-8t %-8s %s",
				status.Healthy, fmt.Sprintf("%dms", status.LatencyMs), detail)
		}
		fmt.Println(line)
	}
	return nil
}
