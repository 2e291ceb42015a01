package queue

import (
	"context"
	"errors"
	"sync"

	"main/pkg/models"
	"main/pkg/resolver"
)

// Manager owns the queue: items are added through the resolver, processed by
// a background run, paused cooperatively and disposed exactly once.
type Manager struct {
	mu       sync.Mutex
	items    []*models.DownloadItem
	resolver *resolver.Resolver
	proc     *Processor
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	disposed bool
}

// NewManager wires a resolver and processor into a queue manager.
func NewManager(res *resolver.Resolver, proc *Processor) *Manager {
	return &Manager{resolver: res, proc: proc}
}

// AddItem resolves rawURL and appends the resulting item to the queue.
func (m *Manager) AddItem(ctx context.Context, rawURL string, kind models.ItemKind, quality, format, destDir string) (*models.DownloadItem, error) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil, errors.New("queue is disposed")
	}
	m.mu.Unlock()

	item, err := m.resolver.Resolve(ctx, rawURL, kind, quality, format, destDir)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
	return item, nil
}

// Items returns a snapshot of the queue in order.
func (m *Manager) Items() []*models.DownloadItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.DownloadItem, len(m.items))
	copy(out, m.items)
	return out
}

// Active returns how many items are downloading right now.
func (m *Manager) Active() int {
	return m.proc.Active()
}

// StartAll begins processing pending items in the background. Calling it
// while a run is in flight is a no-op.
func (m *Manager) StartAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running || m.disposed {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true

	snapshot := make([]*models.DownloadItem, len(m.items))
	copy(snapshot, m.items)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.proc.Run(ctx, snapshot)

		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()
}

// PauseAll asks the in-flight run to stop. Items finish at the next
// cancellation point; already-finished items keep their state.
func (m *Manager) PauseAll() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current run has wound down.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Dispose pauses the queue and waits for the worker to exit. The manager
// accepts no further work afterwards.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.mu.Unlock()

	m.PauseAll()
	m.Wait()
}
