package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dadosbr/agregador/internal/metrics"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cumulative invocation counts",
	Long: `
Show how many times each mode (serve, search, sources, stats) has been
invoked on this machine. Counts are persisted in ~/.agregador/stats.db.
`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVarP(&statsJSON, "json", "j", false, "Output in JSON format")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := metrics.Init(); err != nil {
		return fmt.Errorf("failed to open stats store: %w", err)
	}
	defer func() { _ = metrics.Close() }()

	metrics.RecordInvocation(metrics.ModeStats)

	stats := metrics.GetStats()
	if stats == nil {
		return fmt.Errorf("stats store not available")
	}

	if statsJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}

	fmt.Printf("%-10s %s\n", "MODE", "INVOCATIONS")
	for _, mode := range []metrics.Mode{metrics.ModeServe, metrics.ModeSearch, metrics.ModeSources, metrics.ModeStats} {
		fmt.Printf("%-10s %d\n", mode, stats[mode])
	}
	return nil
}
