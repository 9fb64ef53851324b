package flatpak

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultRemoteName is the remote the catalog's applications are installed from.
	DefaultRemoteName = "flathub"
	// DefaultRemoteURL is the .flatpakrepo descriptor registered for DefaultRemoteName.
	DefaultRemoteURL = "https://dl.flathub.org/repo/flathub.flatpakrepo"
)

var (
	// ErrListUnavailable means the installed listing could not be read at all.
	// Callers must treat local state as unknown, not as empty.
	ErrListUnavailable = errors.New("installed application listing unavailable")

	// ErrRemoteAdd means the remote could not be registered.
	ErrRemoteAdd = errors.New("failed to register flatpak remote")
)

// Client builds and runs flatpak commands for a single installation scope.
type Client struct {
	scope  Scope
	remote string
	runner Runner
	logger *zap.Logger
}

// NewClient creates a Client for the given scope that installs from remote.
// An empty remote means DefaultRemoteName.
func NewClient(scope Scope, remote string) *Client {
	if remote == "" {
		remote = DefaultRemoteName
	}
	return &Client{
		scope:  scope,
		remote: remote,
		runner: NewExecRunner(),
		logger: zap.NewNop(),
	}
}

// SetRunner replaces the command runner (useful for testing).
func (c *Client) SetRunner(r Runner) {
	c.runner = r
}

// SetLogger sets the logger used for command tracing.
func (c *Client) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	c.logger = l
}

// Scope returns the installation scope the client operates on.
func (c *Client) Scope() Scope {
	return c.scope
}

// Remote returns the remote installs are pulled from.
func (c *Client) Remote() string {
	return c.remote
}

// ListInstalled returns the applications installed in the client's scope.
func (c *Client) ListInstalled(ctx context.Context) ([]Installed, error) {
	args := c.listArgs()
	c.logger.Debug("listing installed applications", zap.Strings("args", args))

	output, err := c.runner.Output(ctx, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: flatpak list failed: %w (stderr: %s)",
				ErrListUnavailable, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%w: flatpak list failed: %w", ErrListUnavailable, err)
	}

	return ParseInstalled(string(output)), nil
}

// AddRemote registers a remote if it is not already present. flatpak itself
// makes this a no-op for existing remotes.
func (c *Client) AddRemote(ctx context.Context, name, url string) error {
	args := c.remoteAddArgs(name, url)
	c.logger.Debug("registering remote", zap.String("remote", name), zap.String("url", url))

	output, err := c.runner.CombinedOutput(ctx, args...)
	if err != nil {
		return fmt.Errorf("%w %s (%s): %w (output: %s)",
			ErrRemoteAdd, name, url, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Install starts installing appID from the client's remote.
func (c *Client) Install(ctx context.Context, appID string) (*Operation, error) {
	return c.start(ctx, KindInstall, appID)
}

// Uninstall starts removing appID.
func (c *Client) Uninstall(ctx context.Context, appID string) (*Operation, error) {
	return c.start(ctx, KindUninstall, appID)
}

// Update starts updating appID.
func (c *Client) Update(ctx context.Context, appID string) (*Operation, error) {
	return c.start(ctx, KindUpdate, appID)
}

// Dispatch starts the operation of the given kind.
func (c *Client) Dispatch(ctx context.Context, kind Kind, appID string) (*Operation, error) {
	return c.start(ctx, kind, appID)
}

func (c *Client) start(ctx context.Context, kind Kind, appID string) (*Operation, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, fmt.Errorf("flatpak %s: application id cannot be empty", kind)
	}

	args, err := c.mutationArgs(kind, appID)
	if err != nil {
		return nil, err
	}

	c.logger.Info("starting flatpak operation",
		zap.String("kind", string(kind)),
		zap.String("app_id", appID),
		zap.Stringer("scope", c.scope))

	proc, err := c.runner.Start(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start flatpak %s %s: %w", kind, appID, err)
	}

	return &Operation{
		Kind:  kind,
		AppID: appID,
		Scope: c.scope,
		Args:  args,
		proc:  proc,
	}, nil
}

func (c *Client) listArgs() []string {
	args := []string{"list"}
	args = append(args, c.scope.flags()...)
	return append(args, "--app")
}

func (c *Client) remoteAddArgs(name, url string) []string {
	args := []string{"remote-add"}
	args = append(args, c.scope.flags()...)
	return append(args, "--if-not-exists", name, url)
}

func (c *Client) mutationArgs(kind Kind, appID string) ([]string, error) {
	args := []string{string(kind)}
	args = append(args, c.scope.flags()...)
	args = append(args, "-y")

	switch kind {
	case KindInstall:
		return append(args, c.remote, appID), nil
	case KindUninstall, KindUpdate:
		return append(args, appID), nil
	default:
		return nil, fmt.Errorf("unknown operation %q", kind)
	}
}
