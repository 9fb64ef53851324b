package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flatshelf/internal/apps"
	"github.com/blackwell-systems/flatshelf/internal/output"
)

var (
	listFlagInstalled bool
	listFlagUpdates   bool
	listFlagAll       bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelisted applications",
	Long: `List applications from the Flathub catalog joined with the local
installation.

By default lists applications that can be installed. Only whitelisted
applications are shown; with an empty whitelist nothing is listed.

Applications installed locally but missing from the catalog are not shown.`,
	Example: `  flatshelf list              # Installable applications
  flatshelf list --installed  # Installed applications
  flatshelf list --updates    # Installed applications with a newer version
  flatshelf list --all        # Every whitelisted application`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listFlagInstalled, "installed", false, "List installed applications")
	listCmd.Flags().BoolVar(&listFlagUpdates, "updates", false, "List installed applications with an update")
	listCmd.Flags().BoolVar(&listFlagAll, "all", false, "List every whitelisted application")
	listCmd.MarkFlagsMutuallyExclusive("installed", "updates", "all")

	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	env, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := refresh(ctx, env); err != nil {
		return err
	}

	var list []apps.Application
	switch {
	case listFlagInstalled:
		list = env.manager.Installed()
	case listFlagUpdates:
		list = env.manager.Updates()
	case listFlagAll:
		set, err := env.manager.Snapshot()
		if err != nil {
			return err
		}
		wl := env.manager.Whitelist()
		for _, app := range set.All() {
			if wl.Allows(app.ID) {
				list = append(list, app)
			}
		}
	default:
		list = env.manager.Available()
	}

	if env.manager.Whitelist().Len() == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: the whitelist is empty, so no applications are listed.")
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderApplicationTable(list))
	return nil
}

// refresh reconciles the catalog with the local installation behind a
// spinner on stderr.
func refresh(ctx context.Context, env *environment) error {
	spinner := output.NewSpinner("Fetching Flathub catalog")
	spinner.Start()
	err := env.manager.Refresh(ctx)
	spinner.Stop()
	if err != nil {
		return describeRefreshError(err)
	}
	return nil
}
