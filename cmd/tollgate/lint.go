package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"strato-hq/tollgate/pkg/limits/loader"
)

var lintFile string

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a limit definitions file",
	Long: `Validate every record of a limit definitions file and report the
problems the gateway would skip at load time. Exits non-zero when any
record is invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLint(lintFile)
	},
}

func init() {
	lintCmd.Flags().StringVarP(&lintFile, "file", "f", "", "definitions file to validate (required)")
	_ = lintCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(lintCmd)
}

func runLint(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read definitions file: %w", err)
	}

	var doc loader.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse definitions document: %w", err)
	}

	invalid := 0
	for i := range doc.Limits {
		rec := &doc.Limits[i]

		if rec.Class != loader.ClassLimit {
			fmt.Printf("  [%d] SKIP: unknown class %q (uuid %s)\n", i, rec.Class, rec.UUID)
			invalid++
			continue
		}
		def := rec.Definition
		if err := def.Validate(); err != nil {
			fmt.Printf("  [%d] INVALID: %v\n", i, err)
			invalid++
			continue
		}
		fmt.Printf("  [%d] ok: %s %v %s (%d per %s, class %s)\n",
			i, def.URI, def.Verbs, def.UUID, def.Value, def.Unit, def.RateClass)
	}

	fmt.Printf("%d definition(s): %d valid, %d invalid\n",
		len(doc.Limits), len(doc.Limits)-invalid, invalid)
	if invalid > 0 {
		return fmt.Errorf("%d invalid definition(s)", invalid)
	}
	return nil
}
