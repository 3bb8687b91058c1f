package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strato-hq/tollgate/pkg/config"
	"strato-hq/tollgate/pkg/limits"
)

var limitClassFlag string

var limitClassCmd = &cobra.Command{
	Use:   "limit-class <tenant-id>",
	Short: "Query or set the rate class assigned to a tenant",
	Long: `Query or set the rate class associated with a tenant in the shared
class store. Without --class the current assignment is printed. Setting
--class default removes the assignment, reverting the tenant to the
default class.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLimitClass(cmd, args[0])
	},
}

func init() {
	limitClassCmd.Flags().StringVar(&limitClassFlag, "class", "", "rate class to assign to the tenant")
	rootCmd.AddCommand(limitClassCmd)
}

func runLimitClass(cmd *cobra.Command, tenantID string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(&cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()

	current, ok, err := store.classes.GetClass(ctx, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		current = limits.DefaultClass
	}

	if limitClassFlag == "" {
		fmt.Printf("Tenant %s:\n", tenantID)
		fmt.Printf("  Configured rate-limit class: %s\n", current)
		return nil
	}

	if limitClassFlag != current {
		if limitClassFlag == limits.DefaultClass {
			err = store.classes.DeleteClass(ctx, tenantID)
		} else {
			err = store.classes.SetClass(ctx, tenantID, limitClassFlag)
		}
		if err != nil {
			return err
		}
	}

	fmt.Printf("Tenant %s:\n", tenantID)
	fmt.Printf("  Previous rate-limit class: %s\n", current)
	fmt.Printf("  New rate-limit class: %s\n", limitClassFlag)
	return nil
}
