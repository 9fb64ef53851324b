package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/blackwell-systems/flatshelf/internal/flatpak"
)

// changedFile is touched by flatpak after each transaction.
const changedFile = ".changed"

// Refresher rebuilds the application view.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Watcher triggers a refresh when a flatpak installation changes.
type Watcher struct {
	refresher Refresher
	roots     []string
	debounce  time.Duration
	logger    *zap.Logger
	onRefresh func(error)

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// InstallationDir returns the flatpak installation directory for scope.
// The user installation honours XDG_DATA_HOME.
func InstallationDir(scope flatpak.Scope) (string, error) {
	if scope == flatpak.ScopeSystem {
		return "/var/lib/flatpak", nil
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "flatpak"), nil
}

// New creates a Watcher for the given installation directories.
func New(refresher Refresher, roots []string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if refresher == nil {
		return nil, fmt.Errorf("refresher cannot be nil")
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one installation directory is required")
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		refresher: refresher,
		roots:     roots,
		debounce:  debounce,
		logger:    logger,
		fsw:       fsw,
		stopCh:    make(chan struct{}),
	}, nil
}

// OnRefresh registers a callback run after every triggered refresh with its
// result. Must be called before Start.
func (w *Watcher) OnRefresh(fn func(error)) {
	w.onRefresh = fn
}

// Start watches the installation directories and returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	watched := 0
	for _, root := range w.roots {
		for _, dir := range []string{root, filepath.Join(root, "app")} {
			if err := w.fsw.Add(dir); err != nil {
				// The installation may not exist until the first install.
				w.logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
				continue
			}
			watched++
			w.logger.Debug("watching directory", zap.String("dir", dir))
		}
	}
	if watched == 0 {
		return fmt.Errorf("none of the installation directories could be watched: %v", w.roots)
	}

	w.running = true
	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop halts the watcher. A refresh in progress is allowed to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.fsw.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("installation changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.refresh(ctx)
		}
	}
}

// relevant keeps the .changed marker and entries directly under app/.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if filepath.Base(event.Name) == changedFile {
		return true
	}
	return filepath.Base(filepath.Dir(event.Name)) == "app"
}

func (w *Watcher) refresh(ctx context.Context) {
	err := w.refresher.Refresh(ctx)
	if err != nil {
		w.logger.Warn("refresh after installation change failed", zap.Error(err))
	} else {
		w.logger.Info("applications refreshed after installation change")
	}
	if w.onRefresh != nil {
		w.onRefresh(err)
	}
}
