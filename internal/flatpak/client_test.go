package flatpak

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records every invocation and returns canned results.
type fakeRunner struct {
	calls    [][]string
	output   []byte
	err      error
	startErr error
	procOut  string
	procErr  error
}

func (f *fakeRunner) Output(ctx context.Context, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	return f.output, f.err
}

func (f *fakeRunner) CombinedOutput(ctx context.Context, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	return f.output, f.err
}

func (f *fakeRunner) Start(ctx context.Context, args ...string) (Process, error) {
	f.calls = append(f.calls, args)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &fakeProcess{out: strings.NewReader(f.procOut), err: f.procErr}, nil
}

type fakeProcess struct {
	out io.Reader
	err error
}

func (p *fakeProcess) Output() io.Reader { return p.out }
func (p *fakeProcess) Wait() error       { return p.err }

func TestListInstalled(t *testing.T) {
	tests := []struct {
		name       string
		scope      Scope
		expectArgs []string
	}{
		{name: "system scope", scope: ScopeSystem, expectArgs: []string{"list", "--app"}},
		{name: "user scope", scope: ScopeUser, expectArgs: []string{"list", "--user", "--app"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{output: []byte(mockFlatpakList)}
			c := NewClient(tt.scope, "")
			c.SetRunner(runner)

			installed, err := c.ListInstalled(context.Background())
			require.NoError(t, err)
			assert.Len(t, installed, 3)
			require.Len(t, runner.calls, 1)
			assert.Equal(t, tt.expectArgs, runner.calls[0])
		})
	}
}

func TestListInstalledFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exec: \"flatpak\": executable file not found in $PATH")}
	c := NewClient(ScopeUser, "")
	c.SetRunner(runner)

	installed, err := c.ListInstalled(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrListUnavailable))
	assert.Nil(t, installed, "no partial list on failure")
}

func TestAddRemote(t *testing.T) {
	tests := []struct {
		name       string
		scope      Scope
		expectArgs []string
	}{
		{
			name:       "system scope",
			scope:      ScopeSystem,
			expectArgs: []string{"remote-add", "--if-not-exists", "flathub", DefaultRemoteURL},
		},
		{
			name:       "user scope",
			scope:      ScopeUser,
			expectArgs: []string{"remote-add", "--user", "--if-not-exists", "flathub", DefaultRemoteURL},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			c := NewClient(tt.scope, "")
			c.SetRunner(runner)

			require.NoError(t, c.AddRemote(context.Background(), DefaultRemoteName, DefaultRemoteURL))
			assert.Equal(t, tt.expectArgs, runner.calls[0])
		})
	}
}

func TestAddRemoteFailure(t *testing.T) {
	runner := &fakeRunner{output: []byte("error: permission denied"), err: errors.New("exit status 1")}
	c := NewClient(ScopeSystem, "")
	c.SetRunner(runner)

	err := c.AddRemote(context.Background(), DefaultRemoteName, DefaultRemoteURL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteAdd))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestMutationCommandStructure(t *testing.T) {
	tests := []struct {
		name       string
		kind       Kind
		scope      Scope
		expectArgs []string
	}{
		{"install system", KindInstall, ScopeSystem, []string{"install", "-y", "flathub", "org.app.Foo"}},
		{"install user", KindInstall, ScopeUser, []string{"install", "--user", "-y", "flathub", "org.app.Foo"}},
		{"uninstall system", KindUninstall, ScopeSystem, []string{"uninstall", "-y", "org.app.Foo"}},
		{"uninstall user", KindUninstall, ScopeUser, []string{"uninstall", "--user", "-y", "org.app.Foo"}},
		{"update system", KindUpdate, ScopeSystem, []string{"update", "-y", "org.app.Foo"}},
		{"update user", KindUpdate, ScopeUser, []string{"update", "--user", "-y", "org.app.Foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{procOut: "Installing...\nDone.\n"}
			c := NewClient(tt.scope, "")
			c.SetRunner(runner)

			op, err := c.Dispatch(context.Background(), tt.kind, "org.app.Foo")
			require.NoError(t, err)
			assert.Equal(t, tt.expectArgs, runner.calls[0])
			assert.Equal(t, tt.expectArgs, op.Args)
			assert.Equal(t, tt.kind, op.Kind)
			assert.Equal(t, tt.scope, op.Scope)

			out, err := io.ReadAll(op.Output())
			require.NoError(t, err)
			assert.Equal(t, "Installing...\nDone.\n", string(out))
			assert.NoError(t, op.Wait())
		})
	}
}

func TestInstallUsesConfiguredRemote(t *testing.T) {
	runner := &fakeRunner{}
	c := NewClient(ScopeSystem, "flathub-beta")
	c.SetRunner(runner)

	op, err := c.Install(context.Background(), "org.app.Foo")
	require.NoError(t, err)
	assert.Equal(t, "flatpak install -y flathub-beta org.app.Foo", op.CommandLine())
}

func TestOperationWaitWrapsExitError(t *testing.T) {
	runner := &fakeRunner{procErr: errors.New("exit status 1")}
	c := NewClient(ScopeUser, "")
	c.SetRunner(runner)

	op, err := c.Uninstall(context.Background(), "org.app.Foo")
	require.NoError(t, err)

	err = op.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flatpak uninstall org.app.Foo failed")
}

func TestDispatchErrors(t *testing.T) {
	c := NewClient(ScopeUser, "")
	c.SetRunner(&fakeRunner{startErr: errors.New("fork failed")})

	_, err := c.Update(context.Background(), "org.app.Foo")
	assert.ErrorContains(t, err, "failed to start flatpak update org.app.Foo")

	_, err = c.Install(context.Background(), "   ")
	assert.ErrorContains(t, err, "application id cannot be empty")

	_, err = c.Dispatch(context.Background(), Kind("rebase"), "org.app.Foo")
	assert.ErrorContains(t, err, "unknown operation")
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("System")
	require.NoError(t, err)
	assert.Equal(t, ScopeSystem, s)

	s, err = ParseScope(" user ")
	require.NoError(t, err)
	assert.Equal(t, ScopeUser, s)

	_, err = ParseScope("global")
	assert.Error(t, err)

	assert.Equal(t, "system", ScopeSystem.String())
	assert.Equal(t, "user", ScopeUser.String())
}

func TestParseKind(t *testing.T) {
	for _, v := range []string{"install", "uninstall", "update"} {
		k, err := ParseKind(v)
		require.NoError(t, err)
		assert.Equal(t, Kind(v), k)
	}
	_, err := ParseKind("rebase")
	assert.Error(t, err)
}
