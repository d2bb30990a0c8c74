// Package cli implements the gatekeeper command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gatekeeper",
	Short: "Admission gate for a read-only parts catalog",
	Long:  "Sits in front of the catalog API and challenges unverified clients.\nBrowsers pass a telemetry check and receive a signed admission token;\nscripted clients are rejected before any catalog data is served.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
