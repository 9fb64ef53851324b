package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blackwell-systems/flatshelf/internal/flatpak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

func newInstallation(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0755))
	return root
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(time.Now().String()), 0644))
}

func TestWatcherRefreshesOnChangedMarker(t *testing.T) {
	root := newInstallation(t)
	ref := &countingRefresher{}

	w, err := New(ref, []string{root}, 50*time.Millisecond, nil)
	require.NoError(t, err)

	results := make(chan error, 4)
	w.OnRefresh(func(err error) { results <- err })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	touch(t, filepath.Join(root, changedFile))

	select {
	case err := <-results:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("refresh was not triggered")
	}
	assert.Equal(t, int32(1), ref.calls.Load())
}

func TestWatcherDebouncesBursts(t *testing.T) {
	root := newInstallation(t)
	ref := &countingRefresher{}

	w, err := New(ref, []string{root}, 300*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "org.app.App"+string(rune('A'+i))), 0755))
	}

	assert.Eventually(t, func() bool { return ref.calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), ref.calls.Load(), "burst coalesced into one refresh")
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	root := newInstallation(t)
	ref := &countingRefresher{}

	w, err := New(ref, []string{root}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	touch(t, filepath.Join(root, "repo-lock"))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), ref.calls.Load())
}

func TestWatcherReportsRefreshErrors(t *testing.T) {
	root := newInstallation(t)
	ref := &countingRefresher{err: errors.New("catalog unavailable")}

	w, err := New(ref, []string{root}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	results := make(chan error, 4)
	w.OnRefresh(func(err error) { results <- err })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	touch(t, filepath.Join(root, changedFile))

	select {
	case err := <-results:
		assert.EqualError(t, err, "catalog unavailable")
	case <-time.After(3 * time.Second):
		t.Fatal("refresh was not triggered")
	}
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	root := newInstallation(t)
	ctx, cancel := context.WithCancel(context.Background())

	w, err := New(&countingRefresher{}, []string{root}, time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	cancel()
	assert.NoError(t, w.Stop())
}

func TestWatcherStartFailsWithoutDirectories(t *testing.T) {
	w, err := New(&countingRefresher{}, []string{filepath.Join(t.TempDir(), "missing")}, time.Second, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, []string{"/tmp"}, time.Second, nil)
	assert.Error(t, err)

	_, err = New(&countingRefresher{}, nil, time.Second, nil)
	assert.Error(t, err)
}

func TestInstallationDir(t *testing.T) {
	dir, err := InstallationDir(flatpak.ScopeSystem)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/flatpak", dir)

	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	dir, err = InstallationDir(flatpak.ScopeUser)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data/flatpak", dir)
}
