package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agregador",
	Short: "Agregador - unified search across Brazilian government open-data APIs",
	Long: `Agregador is a CLI and API server that fans a single query out to the
Brazilian government open-data APIs (Portal da Transparencia, Camara dos
Deputados, Senado Federal, IBGE, Brasil API and Banco Central), merges the
responses into one relevance-ranked result set and reports per-source
status for every request.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
}
