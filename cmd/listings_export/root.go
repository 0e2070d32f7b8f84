package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Global flag values.
var (
	noColor   bool
	threshold int
)

// rootCmd renders what the dashboard shows without running the server.
var rootCmd = &cobra.Command{
	Use:   "listings_export",
	Short: "Export dashboard charts and statistics from a listings CSV",
	Long: `listings_export reads a vehicle listings CSV and renders the same charts
and statistics as the dashboard, for use in reports or scheduled jobs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().IntVar(&threshold, "threshold", 1000, "manufacturers with fewer listings are hidden unless the query sets small=1")

	rootCmd.AddCommand(chartsCmd)
	rootCmd.AddCommand(describeCmd)
}
