package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tollgate",
	Short: "Tollgate - class-based rate limiting gateway",
	Long: `Tollgate is a rate limiting gateway for multi-tenant HTTP services.

Each request's tenant is resolved to a rate class via a shared key-value
store, class-scoped limit definitions are matched by HTTP verb and URI
pattern, and matched requests are accounted against fixed-window quota
counters in the same store. Denied requests receive 429 with a Retry-After
signal; the gateway never fails open when the store is unreachable.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
