package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for FairHire.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fairhire",
		Short: "Bias auditing tool for hiring datasets and models",
		Long: `FairHire audits hiring datasets and screening models for bias.

An audit runs a fixed chain of checks over a CSV dataset:
- Data bias: statistical parity and disparate impact of the recorded outcomes
- Model bias: demographic parity and equalized odds of a model's predictions
- Explanations: the features that drove the model's decision per candidate

Completed audits are saved to a result store (SQLite by default) and can be
listed, shown and compared later. 'fairhire serve' exposes the same audit
over HTTP.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .fairhire in current or home directory)")
	cmd.PersistentFlags().String("store", "",
		"Result store backend: sqlite, redis or memory (default: sqlite)")

	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewDeleteCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
