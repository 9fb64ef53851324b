package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flatshelf/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-reconcile applications whenever the installation changes",
	Long: `Watch the flatpak installation for changes and refresh the application
view after each one, printing a one-line summary.

Changes made by flatshelf, the flatpak CLI or a software centre are all
picked up. Bursts of filesystem events are coalesced; the interval is set
with watch_debounce in config.yaml.

Runs in the foreground until interrupted.`,
	Example: `  flatshelf watch`,
	Args:    cobra.NoArgs,
	RunE:    runWatch,
}

func init() {
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	env, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	out := cmd.OutOrStdout()
	summary := func() {
		fmt.Fprintf(out, "[%s] %d available, %d installed, %d updates\n",
			time.Now().Format("15:04:05"),
			len(env.manager.Available()),
			len(env.manager.Installed()),
			len(env.manager.Updates()))
	}

	if err := refresh(ctx, env); err != nil {
		return err
	}
	summary()

	dir, err := watcher.InstallationDir(env.scope)
	if err != nil {
		return err
	}

	w, err := watcher.New(env.manager, []string{dir}, env.cfg.WatchDebounce, env.logger.Logger)
	if err != nil {
		return err
	}
	w.OnRefresh(func(err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed, keeping previous view: %v\n", describeRefreshError(err))
			return
		}
		summary()
	})

	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}

	fmt.Fprintf(out, "Watching %s (press Ctrl+C to stop)...\n", dir)
	<-ctx.Done()
	fmt.Fprintln(out, "\nStopping.")
	return w.Stop()
}
