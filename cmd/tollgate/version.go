package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the release version, overridden at build time via
// -ldflags "-X main.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tollgate %s (%s, %s/%s)\n",
			Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
