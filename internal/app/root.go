package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/flatshelf/internal/apps"
	"github.com/blackwell-systems/flatshelf/internal/catalog"
	"github.com/blackwell-systems/flatshelf/internal/config"
	"github.com/blackwell-systems/flatshelf/internal/flatpak"
	"github.com/blackwell-systems/flatshelf/internal/logging"
	"github.com/blackwell-systems/flatshelf/internal/store"
)

var (
	configPath string
	verbose    bool

	// newRunner builds the flatpak command runner; tests replace it.
	newRunner = func() flatpak.Runner { return flatpak.NewExecRunner() }

	// RootCmd is the root command for flatshelf
	RootCmd = &cobra.Command{
		Use:   "flatshelf",
		Short: "Browse and manage a curated shelf of Flathub applications",
		Long: `flatshelf joins the Flathub catalog with your local flatpak installation
and shows a curated, whitelisted view of what can be installed, what is
installed, and what has an update waiting.

Only applications named in the whitelist are listed. Add identifiers to
config.yaml or to the whitelist file in the config directory
(~/.config/flatshelf by default), one per line.

The configured remote (flathub) is registered at startup if missing.
Install, uninstall and update run flatpak directly and stream its output.
Every operation is recorded in a local journal.

Examples:
  # Applications you can install
  flatshelf list

  # Installed applications with a newer catalog version
  flatshelf list --updates

  # Install an application
  flatshelf install org.gnome.Calculator

  # Recent operations
  flatshelf history`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/flatshelf/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging on stderr")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// environment holds the components a command works with.
type environment struct {
	cfg     *config.Config
	logger  *logging.Logger
	scope   flatpak.Scope
	client  *flatpak.Client
	fetcher *catalog.Fetcher
	manager *apps.Manager
	journal *store.Store
}

// setup loads configuration, wires the flatpak client, catalog fetcher and
// application manager, and makes sure the configured remote is registered.
// When withJournal is set the operation journal is opened and attached to
// the manager.
func setup(ctx context.Context, withJournal bool) (*environment, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config directory: %w", err)
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	scope, err := cfg.ResolveScope()
	if err != nil {
		return nil, err
	}

	client := flatpak.NewClient(scope, cfg.RemoteName)
	client.SetRunner(newRunner())
	client.SetLogger(logger.Logger)

	fetcher := catalog.New(cfg.CatalogOptions(), logger.Logger)
	manager := apps.NewManager(client, fetcher, client, apps.NewWhitelist(cfg.Whitelist...), logger.Logger)

	env := &environment{
		cfg:     cfg,
		logger:  logger,
		scope:   scope,
		client:  client,
		fetcher: fetcher,
		manager: manager,
	}

	if withJournal {
		journal, err := openJournal(cfg)
		if err != nil {
			return nil, err
		}
		env.journal = journal
		manager.SetRecorder(journal)
	}

	logger.Debug("configuration loaded",
		zap.String("config", path),
		zap.String("scope", scope.String()),
		zap.Int("whitelist", len(cfg.Whitelist)))

	env.ensureRemote(ctx)

	return env, nil
}

func openJournal(cfg *config.Config) (*store.Store, error) {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func (e *environment) Close() {
	if e.journal != nil {
		e.journal.Close()
	}
	e.logger.Sync()
}

// ensureRemote registers the configured remote once per run. Failure is
// logged and the command carries on; a later install reports the real error.
func (e *environment) ensureRemote(ctx context.Context) {
	if err := e.client.AddRemote(ctx, e.cfg.RemoteName, e.cfg.RemoteURL); err != nil {
		e.logger.Warn("could not register remote",
			zap.String("remote", e.cfg.RemoteName),
			zap.Error(err))
	}
}

// signalContext returns the command context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// describeRefreshError turns a refresh failure into a message that names
// the source that failed.
func describeRefreshError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrUnavailable):
		return fmt.Errorf("the Flathub catalog could not be reached: %w", err)
	case errors.Is(err, catalog.ErrDecode):
		return fmt.Errorf("the Flathub catalog returned an unreadable response: %w", err)
	case errors.Is(err, flatpak.ErrListUnavailable):
		return fmt.Errorf("installed applications could not be listed (is flatpak installed?): %w", err)
	default:
		return err
	}
}
