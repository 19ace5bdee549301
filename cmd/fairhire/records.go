package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nao1215/fairhire/internal/config"
	"github.com/nao1215/fairhire/internal/model"
	"github.com/nao1215/fairhire/internal/store"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [audit-id]",
		Short: "Show a saved audit",
		Long: `Show prints a saved audit with its findings, explanations and report.

Examples:
  # Show an audit in the terminal
  fairhire show 0f8d2c4e-5b6a-4c1e-9d3f-2a7b8c9d0e1f

  # Export an audit as JSON
  fairhire show --json 0f8d2c4e-5b6a-4c1e-9d3f-2a7b8c9d0e1f > audit.json`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	addFormatFlags(cmd)

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	jsonReport, markdownReport, err := getFormatFlags(cmd)
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, cfg *config.Config, st store.Store) error {
		rec, err := recallAudit(ctx, st, args[0])
		if err != nil {
			return err
		}
		_, err = newRecordWriter(cmd.OutOrStdout(), jsonReport, markdownReport, cfg.Verbose).Write(rec)
		return err
	})
}

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List saved audits",
		Long: `List prints the IDs of the saved audits that have not expired, sorted.

An optional prefix limits the output to IDs starting with it.

Examples:
  # List every saved audit
  fairhire list

  # List audits whose ID starts with 0f8d
  fairhire list 0f8d`,
		Args: cobra.MaximumNArgs(1),
		RunE: runListCmd,
	}
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	return withStore(cmd, func(ctx context.Context, _ *config.Config, st store.Store) error {
		ids, err := st.ListIDs(ctx, prefix)
		if err != nil {
			return fmt.Errorf("failed to list audits: %w", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No audits found.")
			return nil
		}

		slices.Sort(ids)
		out := cmd.OutOrStdout()
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	})
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [audit-id]...",
		Short: "Delete saved audits",
		Long: `Delete removes saved audits from the result store.

Examples:
  fairhire delete 0f8d2c4e-5b6a-4c1e-9d3f-2a7b8c9d0e1f`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDeleteCmd,
	}
}

// runDeleteCmd executes the delete command. Every ID is attempted; the
// first missing audit is reported after the others were deleted.
func runDeleteCmd(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, _ *config.Config, st store.Store) error {
		var firstErr error
		for _, id := range args {
			found, err := st.Delete(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to delete audit %s: %w", id, err)
			}
			if !found {
				if firstErr == nil {
					firstErr = model.RecordNotFound(id)
				}
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted audit %s\n", id)
		}
		return firstErr
	})
}

// withStore loads and validates the configuration, opens the result store
// and runs fn with it.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, st store.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, cfg, st)
}

// recallAudit returns the saved audit or a RecordNotFound error.
func recallAudit(ctx context.Context, st store.Store, id string) (*model.AuditRecord, error) {
	rec, found, err := st.Recall(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit %s: %w", id, err)
	}
	if !found {
		return nil, model.RecordNotFound(id)
	}
	return rec, nil
}
