package folders

import (
	"context"
	"net/url"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workspaced/internal/binding"
	"github.com/fyrsmithlabs/workspaced/internal/dispatch"
)

// BackendService is the boundary to the external analysis backend.
//
// Calls are made from dispatch tasks, never from the host's thread.
// The resolver is queried lazily, once per added folder.
type BackendService interface {
	AddFolders(ctx context.Context, added []FolderInfo, resolver binding.Resolver) error
	RemoveFolder(ctx context.Context, folderURI string) error
}

// Manager owns the workspace folder registry and its readiness state.
//
// Registry mutations are synchronous: once Initialize or
// DidChangeWorkspaceFolders returns, reads observe the new state.
// Backend propagation runs on the dispatch queue.
type Manager struct {
	folders   sync.Map // folder URI string -> *Folder
	readiness sync.Map // scope ID string -> bool

	// Listeners are registered during wiring, before the manager goes
	// live; the slice is not guarded against concurrent notification.
	listeners []Listener

	backend  BackendService
	resolver binding.Resolver
	queue    *dispatch.Queue
	logger   *zap.Logger
	metrics  *Metrics
}

// NewManager creates a folder manager. The queue must be started by
// the caller.
func NewManager(backend BackendService, resolver binding.Resolver, queue *dispatch.Queue, logger *zap.Logger) *Manager {
	return &Manager{
		backend:  backend,
		resolver: resolver,
		queue:    queue,
		logger:   logger,
		metrics:  NewMetrics(logger),
	}
}

// Initialize registers the host's initial folder set.
//
// This is the bootstrap path: listeners are not notified per folder.
// One backend task carrying the whole set is submitted afterwards.
func (m *Manager) Initialize(ctx context.Context, initial []FolderInfo) {
	if len(initial) == 0 {
		return
	}
	for _, wf := range initial {
		m.add(ctx, wf)
	}
	m.queue.Submit("initialize workspace folders", func(ctx context.Context) error {
		return m.backend.AddFolders(ctx, initial, m.resolver)
	})
}

// DidChangeWorkspaceFolders applies a folder delta from the host.
//
// Removals are processed before additions so a folder moving to an
// already-used URI never collides with its not-yet-removed prior self.
// Listeners are notified synchronously per change; one backend task is
// submitted for the whole event.
func (m *Manager) DidChangeWorkspaceFolders(ctx context.Context, event ChangeEvent) {
	m.logger.Debug("processing workspace folder change",
		zap.Int("added", len(event.Added)),
		zap.Int("removed", len(event.Removed)))

	for _, wf := range event.Removed {
		u, err := url.Parse(wf.URI)
		if err != nil {
			m.logger.Warn("ignoring removed folder with invalid URI",
				zap.String("uri", wf.URI), zap.Error(err))
			continue
		}
		m.remove(ctx, u)
	}
	for _, wf := range event.Added {
		added := m.add(ctx, wf)
		if added == nil {
			continue
		}
		m.notifyAdded(added)
	}

	m.queue.Submit("sync workspace folder change", func(ctx context.Context) error {
		if err := m.backend.AddFolders(ctx, event.Added, m.resolver); err != nil {
			return err
		}
		for _, wf := range event.Removed {
			if err := m.backend.RemoveFolder(ctx, wf.URI); err != nil {
				return err
			}
		}
		return nil
	})
}

// add stores a new handle for the descriptor. A duplicate URI replaces
// the previous handle with a warning; hosts resend folder-open events
// and that must not fail. Returns nil only for an unparseable URI.
func (m *Manager) add(ctx context.Context, wf FolderInfo) *Folder {
	u, err := url.Parse(wf.URI)
	if err != nil {
		m.logger.Warn("ignoring added folder with invalid URI",
			zap.String("uri", wf.URI), zap.Error(err))
		return nil
	}

	f := newFolder(u, wf.Name)
	if _, replaced := m.folders.Swap(u.String(), f); replaced {
		m.logger.Warn("registered workspace folder was already added",
			zap.String("folder", f.String()))
	} else {
		m.logger.Debug("folder added", zap.String("folder", f.String()))
		m.metrics.FolderAdded(ctx)
	}
	return f
}

// remove deletes and returns the handle for the URI, notifying
// listeners. Removing an unknown folder is tolerated with a warning
// because removal notifications race with other mutation paths.
func (m *Manager) remove(ctx context.Context, u *url.URL) *Folder {
	v, loaded := m.folders.LoadAndDelete(u.String())
	if !loaded {
		m.logger.Warn("unregistered workspace folder was missing",
			zap.String("uri", u.String()))
		return nil
	}
	f := v.(*Folder)
	m.logger.Debug("folder removed", zap.String("folder", f.String()))
	m.metrics.FolderRemoved(ctx)
	m.notifyRemoved(f)
	return f
}

// FindFolderForFile returns the registered folder containing fileURI,
// or nil when no folder is an ancestor. With nested workspace roots
// the deepest folder wins; ties break on lexical URI order so the
// choice is stable for a fixed registry state.
func (m *Manager) FindFolderForFile(fileURI *url.URL) (*Folder, error) {
	var candidates []*Folder
	var ancestryErr error
	m.folders.Range(func(_, v any) bool {
		f := v.(*Folder)
		ok, err := IsAncestor(f.URI, fileURI)
		if err != nil {
			ancestryErr = err
			return false
		}
		if ok {
			candidates = append(candidates, f)
		}
		return true
	})
	if ancestryErr != nil {
		return nil, ancestryErr
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) > 1 {
		sort.Slice(candidates, func(i, j int) bool {
			di, dj := pathDepth(candidates[i].URI.Path), pathDepth(candidates[j].URI.Path)
			if di != dj {
				return di > dj
			}
			return candidates[i].URI.String() < candidates[j].URI.String()
		})
		m.logger.Debug("multiple workspace folders contain file, defaulting to the deepest",
			zap.String("file", fileURI.String()),
			zap.String("folder", candidates[0].URI.String()))
	}
	return candidates[0], nil
}

// GetFolder returns the handle registered for the URI, or nil.
func (m *Manager) GetFolder(u *url.URL) *Folder {
	v, ok := m.folders.Load(u.String())
	if !ok {
		return nil
	}
	return v.(*Folder)
}

// GetAll returns a point-in-time snapshot of all registered folders.
func (m *Manager) GetAll() []*Folder {
	var all []*Folder
	m.folders.Range(func(_, v any) bool {
		all = append(all, v.(*Folder))
		return true
	})
	return all
}

// Modules lists registered folders as analysis modules, keyed by the
// folder display name.
func (m *Manager) Modules() []Module {
	var modules []Module
	m.folders.Range(func(_, v any) bool {
		f := v.(*Folder)
		modules = append(modules, Module{Key: f.Name, URI: f.URI.String()})
		return true
	})
	return modules
}

// AddListener registers a lifecycle listener. Register before the
// manager goes live; registration is not safe against concurrent
// notification.
func (m *Manager) AddListener(l Listener) {
	m.listeners = append(m.listeners, l)
}

// RemoveListener unregisters a previously added listener.
func (m *Manager) RemoveListener(l Listener) {
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *Manager) notifyAdded(f *Folder) {
	for _, l := range m.listeners {
		m.notify(f, l.FolderAdded)
	}
}

func (m *Manager) notifyRemoved(f *Folder) {
	for _, l := range m.listeners {
		m.notify(f, l.FolderRemoved)
	}
}

// notify isolates listener panics so one failing listener cannot abort
// the remaining notifications or the mutation itself.
func (m *Manager) notify(f *Folder, callback func(*Folder)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("folder lifecycle listener panicked",
				zap.String("folder", f.String()),
				zap.Any("panic", r))
		}
	}()
	callback(f)
}

// UpdateAnalysisReadiness overwrites the readiness flag for every
// scope in scopeIDs. Scope IDs are opaque and need not match a
// registered folder.
func (m *Manager) UpdateAnalysisReadiness(scopeIDs []string, ready bool) {
	for _, scope := range scopeIDs {
		m.logger.Debug("analysis readiness changed",
			zap.String("scope", scope),
			zap.Bool("ready", ready))
		m.readiness.Store(scope, ready)
	}
}

// IsReadyForAnalysis returns the stored readiness flag. A scope that
// was never set is not ready.
func (m *Manager) IsReadyForAnalysis(scopeID string) bool {
	v, ok := m.readiness.Load(scopeID)
	if !ok {
		return false
	}
	return v.(bool)
}

// Shutdown stops the dispatch queue, draining in-flight backend tasks
// bounded by ctx. The manager is inert afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.queue.Shutdown(ctx)
}
