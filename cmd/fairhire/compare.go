package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/fairhire/internal/config"
	"github.com/nao1215/fairhire/internal/report"
	"github.com/nao1215/fairhire/internal/store"
)

// NewCompareCmd creates the compare command.
// This command compares two saved audits, for example the same dataset
// before and after a change to the screening model.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [base-audit-id] [target-audit-id]",
		Short: "Compare two saved audits",
		Long: `Compare displays the differences between two saved audits.

Findings are matched by type. For every finding the comparison shows:
- Whether the verdict changed (absent, OK or BIAS)
- The metric values of both audits and their difference

The overall bias status is "improved" when the target audit has fewer
biased findings than the base audit, "worsened" when it has more and
"unchanged" otherwise.

Examples:
  # Compare two audits
  fairhire compare 0f8d2c4e-... 7a1b3c5d-...

  # Output the comparison in JSON format
  fairhire compare --json 0f8d2c4e-... 7a1b3c5d-...`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, _ *config.Config, st store.Store) error {
		base, err := recallAudit(ctx, st, args[0])
		if err != nil {
			return err
		}
		target, err := recallAudit(ctx, st, args[1])
		if err != nil {
			return err
		}

		c := report.Compare(base, target)
		out := cmd.OutOrStdout()
		if jsonOutput {
			if _, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(c); err != nil {
				return fmt.Errorf("failed to write comparison: %w", err)
			}
			return nil
		}
		return c.WriteText(out)
	})
}
