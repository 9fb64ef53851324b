package apps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/flatshelf/internal/catalog"
	"github.com/blackwell-systems/flatshelf/internal/flatpak"
)

var (
	// ErrNotReady is returned before the first successful reconciliation.
	ErrNotReady = errors.New("applications have not been reconciled yet")

	// ErrBusy is returned when an operation is already in flight for an application.
	ErrBusy = errors.New("application is busy")
)

// Lister reads the local installation listing.
type Lister interface {
	ListInstalled(ctx context.Context) ([]flatpak.Installed, error)
}

// Fetcher retrieves the remote catalog.
type Fetcher interface {
	Fetch(ctx context.Context) ([]catalog.Entry, error)
}

// Dispatcher starts flatpak mutations.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind flatpak.Kind, appID string) (*flatpak.Operation, error)
}

// Recorder journals dispatched operations.
type Recorder interface {
	StartOperation(op *flatpak.Operation) (string, error)
	FinishOperation(id string, opErr error) error
}

// Manager owns the current application Set.
type Manager struct {
	lister     Lister
	fetcher    Fetcher
	dispatcher Dispatcher
	recorder   Recorder
	whitelist  Whitelist
	logger     *zap.Logger

	current atomic.Pointer[Set]

	mu          sync.Mutex // guards base, busy, refreshedAt and swaps of current
	base        *Set
	busy        map[string]struct{}
	refreshedAt time.Time
}

// NewManager creates a Manager. Nothing is fetched until Refresh is called.
func NewManager(lister Lister, fetcher Fetcher, dispatcher Dispatcher, wl Whitelist, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		lister:     lister,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		whitelist:  wl,
		logger:     logger,
		busy:       make(map[string]struct{}),
	}
}

// SetRecorder sets the journal that dispatched operations are written to.
func (m *Manager) SetRecorder(r Recorder) {
	m.recorder = r
}

// Whitelist returns the whitelist applied to listings.
func (m *Manager) Whitelist() Whitelist {
	return m.whitelist
}

// Refresh fetches the catalog and reads the local listing concurrently, then
// replaces the current Set. On failure the previous Set is kept.
func (m *Manager) Refresh(ctx context.Context) error {
	var (
		entries   []catalog.Entry
		installed []flatpak.Installed
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = m.fetcher.Fetch(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		installed, err = m.lister.ListInstalled(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		m.logger.Warn("reconciliation failed, keeping previous applications", zap.Error(err))
		return fmt.Errorf("failed to refresh applications: %w", err)
	}

	set := Reconcile(entries, installed)

	m.mu.Lock()
	m.base = set
	m.refreshedAt = time.Now()
	m.current.Store(set.withBusy(m.busy))
	m.mu.Unlock()

	m.logger.Debug("applications reconciled",
		zap.Int("catalog", len(entries)),
		zap.Int("installed", len(installed)),
		zap.Int("applications", set.Len()))
	return nil
}

// Snapshot returns the current Set.
func (m *Manager) Snapshot() (*Set, error) {
	s := m.current.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

// RefreshedAt returns when the current Set was built.
func (m *Manager) RefreshedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshedAt
}

// Available lists whitelisted applications that can be installed.
func (m *Manager) Available() []Application {
	return m.current.Load().Available(m.whitelist)
}

// Installed lists whitelisted applications that are installed and idle.
func (m *Manager) Installed() []Application {
	return m.current.Load().Installed(m.whitelist)
}

// Updates lists whitelisted installed applications with a newer catalog version.
func (m *Manager) Updates() []Application {
	return m.current.Load().Updates(m.whitelist)
}

// Lookup finds an application by identifier, ignoring the whitelist.
func (m *Manager) Lookup(id string) (Application, bool) {
	return m.current.Load().Lookup(id)
}

// MarkBusy flags id as having an operation in flight. It returns false if
// the id was already busy.
func (m *Manager) MarkBusy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.busy[id]; ok {
		return false
	}
	m.busy[id] = struct{}{}
	m.publishLocked()
	return true
}

// ClearBusy removes the in-flight flag from id.
func (m *Manager) ClearBusy(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.busy[id]; !ok {
		return
	}
	delete(m.busy, id)
	m.publishLocked()
}

// publishLocked swaps in a copy of base carrying the current busy flags.
// Must be called with mu held.
func (m *Manager) publishLocked() {
	if m.base == nil {
		return
	}
	m.current.Store(m.base.withBusy(m.busy))
}

// Dispatch starts an operation for appID and marks it busy until the
// returned Job's Wait completes. The Set is not refreshed afterwards; the
// caller decides when to call Refresh.
func (m *Manager) Dispatch(ctx context.Context, kind flatpak.Kind, appID string) (*Job, error) {
	if m.dispatcher == nil {
		return nil, fmt.Errorf("no dispatcher configured")
	}
	if !m.MarkBusy(appID) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, appID)
	}

	op, err := m.dispatcher.Dispatch(ctx, kind, appID)
	if err != nil {
		m.ClearBusy(appID)
		return nil, err
	}

	job := &Job{Operation: op, manager: m}
	if m.recorder != nil {
		id, err := m.recorder.StartOperation(op)
		if err != nil {
			m.logger.Warn("failed to journal operation", zap.String("app_id", appID), zap.Error(err))
		}
		job.journalID = id
	}
	return job, nil
}

// Job is a dispatched operation tracked by a Manager.
type Job struct {
	*flatpak.Operation

	manager   *Manager
	journalID string
	once      sync.Once
	err       error
}

// Wait waits for the operation to finish, records the outcome and clears the
// busy flag. Safe to call more than once.
func (j *Job) Wait() error {
	j.once.Do(func() {
		j.err = j.Operation.Wait()
		m := j.manager
		if m.recorder != nil && j.journalID != "" {
			if err := m.recorder.FinishOperation(j.journalID, j.err); err != nil {
				m.logger.Warn("failed to journal operation result", zap.String("app_id", j.AppID), zap.Error(err))
			}
		}
		m.ClearBusy(j.AppID)
	})
	return j.err
}

// JournalID returns the journal entry for this job, if any.
func (j *Job) JournalID() string {
	return j.journalID
}
