package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flatshelf/internal/output"
)

var historyFlagLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent install, uninstall and update operations",
	Long: `Show the operation journal, newest first.

Operations still marked running were interrupted before flatpak exited or
are in progress in another flatshelf process.`,
	Example: `  flatshelf history
  flatshelf history --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlagLimit, "limit", 20, "Maximum number of operations to show (0 for all)")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyFlagLimit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", historyFlagLimit)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	env, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer env.Close()

	ops, err := env.journal.ListOperations(historyFlagLimit)
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderOperationTable(ops))
	return nil
}
