package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/flatshelf/internal/flatpak"
	"github.com/blackwell-systems/flatshelf/internal/shell"
	"github.com/blackwell-systems/flatshelf/internal/watcher"
)

var installFlagUpdateProfile bool

var (
	installCmd = newActionCmd(flatpak.KindInstall,
		"Install an application from Flathub",
		`Install an application from the configured remote (flathub by default).

flatpak's output is streamed as it runs and the result is recorded in the
operation journal.`)

	uninstallCmd = newActionCmd(flatpak.KindUninstall,
		"Uninstall an application",
		`Uninstall an application. flatpak's output is streamed as it runs and
the result is recorded in the operation journal.`)

	updateCmd = newActionCmd(flatpak.KindUpdate,
		"Update an installed application",
		`Update an installed application to the latest version on its remote.
flatpak's output is streamed as it runs and the result is recorded in the
operation journal.`)
)

func init() {
	installCmd.Flags().BoolVar(&installFlagUpdateProfile, "update-profile", false,
		"Add the flatpak exports directory to XDG_DATA_DIRS in your shell profile if it is missing")

	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(uninstallCmd)
	RootCmd.AddCommand(updateCmd)
}

func newActionCmd(kind flatpak.Kind, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:     string(kind) + " <application-id>",
		Short:   short,
		Long:    long,
		Example: fmt.Sprintf("  flatshelf %s org.gnome.Calculator", kind),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, kind, args[0])
		},
	}
}

// runAction dispatches one flatpak mutation and streams its output. The
// command does not wait for a refresh; run list afterwards to see the
// new state.
func runAction(cmd *cobra.Command, kind flatpak.Kind, appID string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	env, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer env.Close()

	running, err := env.journal.RunningOperations()
	if err != nil {
		return fmt.Errorf("failed to read operation journal: %w", err)
	}
	for _, op := range running {
		if op.AppID == appID {
			env.logger.Warn("journal shows an unfinished operation for this application",
				zap.String("app_id", appID),
				zap.String("kind", op.Kind),
				zap.Time("started_at", op.StartedAt))
		}
	}

	job, err := env.manager.Dispatch(ctx, kind, appID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running: %s\n\n", job.CommandLine())

	if _, err := io.Copy(out, job.Output()); err != nil {
		env.logger.Debug("output stream ended early", zap.Error(err))
	}

	if err := job.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n✓ %s %s succeeded\n", kind, appID)

	if kind == flatpak.KindInstall {
		checkExports(out, env)
	}
	return nil
}

// checkExports makes sure launchers for installed applications will show up
// in the desktop session, which reads .desktop files from XDG_DATA_DIRS.
func checkExports(out io.Writer, env *environment) {
	dir, err := watcher.InstallationDir(env.scope)
	if err != nil {
		env.logger.Debug("cannot locate installation", zap.Error(err))
		return
	}
	exports := shell.ExportsDir(dir)
	if shell.OnDataDirs(exports) {
		return
	}

	if !installFlagUpdateProfile {
		fmt.Fprintf(out, "\nNote: %s is not on XDG_DATA_DIRS, so the application may not\n", exports)
		fmt.Fprintln(out, "appear in your desktop menu. Re-run with --update-profile to fix this.")
		return
	}

	added, configFile, err := shell.EnsureDataDirEntry(exports)
	if err != nil {
		env.logger.Warn("failed to update shell profile", zap.Error(err))
		return
	}
	if added {
		fmt.Fprintf(out, "\nAdded %s to XDG_DATA_DIRS in %s (takes effect at next login)\n", exports, configFile)
	}
}
