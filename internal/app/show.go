package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flatshelf/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show <application-id>",
	Short: "Show details for one application",
	Long: `Show catalog and installation details for a single application.

Any catalog application can be shown, including ones not in the whitelist.
The most recent journalled operation for the application is included.`,
	Example: `  flatshelf show org.gnome.Calculator`,
	Args:    cobra.ExactArgs(1),
	RunE:    runShow,
}

func init() {
	RootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	env, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := refresh(ctx, env); err != nil {
		return err
	}

	app, ok := env.manager.Lookup(args[0])
	if !ok {
		return fmt.Errorf("application %q is not in the Flathub catalog", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderApplicationDetail(app))
	if !env.manager.Whitelist().Allows(app.ID) {
		fmt.Fprintf(out, "%-18s %s\n", "Whitelisted:", "no")
	}

	last, err := env.journal.LastOperation(app.ID)
	if err != nil {
		return fmt.Errorf("failed to read operation journal: %w", err)
	}
	if last != nil {
		fmt.Fprintf(out, "%-18s %s %s (%s)\n", "Last operation:",
			last.Kind, last.Status, last.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
