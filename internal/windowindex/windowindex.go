// Package windowindex maintains a live, queryable snapshot of every
// top-level window on the desktop, fed by the host's lifecycle events
// rather than re-enumerating on every call.
package windowindex

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Index is a thread-safe handle→WindowInfo cache kept current by
// subscribing to the host's lifecycle events.
type Index struct {
	host   desktop.Host
	logger *zap.Logger

	mu      sync.RWMutex
	windows map[model.Handle]model.WindowInfo

	unsubscribe func()
}

// New builds a WindowIndex, populates it with one full enumeration, and
// subscribes to the host for incremental updates.
func New(host desktop.Host, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &Index{
		host:    host,
		logger:  logger,
		windows: make(map[model.Handle]model.WindowInfo),
	}
	idx.bootstrap()
	idx.unsubscribe = host.Subscribe(idx.onEvent)
	return idx
}

func (idx *Index) bootstrap() {
	handles, err := idx.host.EnumerateTopLevelWindows()
	if err != nil {
		idx.logger.Warn("initial window enumeration failed", zap.Error(err))
		return
	}
	for _, h := range handles {
		idx.refresh(h)
	}
}

// onEvent is the host.EventSink. It must return quickly: refreshing a
// single window is a handful of syscalls, and is never done while holding
// the index lock.
func (idx *Index) onEvent(evt desktop.Event) {
	switch evt.Kind {
	case desktop.EventDestroyed:
		idx.mu.Lock()
		delete(idx.windows, evt.Handle)
		idx.mu.Unlock()
	case desktop.EventCreated, desktop.EventUpdated:
		idx.refresh(evt.Handle)
	}
}

// refresh re-queries a single window and either upserts or, if it no longer
// exists, removes it. A window can legitimately disappear between the event
// firing and the query running, so a query failure is not logged as an
// error.
func (idx *Index) refresh(handle model.Handle) {
	info, err := idx.host.QueryWindow(handle)
	if err != nil {
		idx.mu.Lock()
		delete(idx.windows, handle)
		idx.mu.Unlock()
		return
	}
	idx.mu.Lock()
	idx.windows[handle] = *info
	idx.mu.Unlock()
}

// Close unsubscribes from the host.
func (idx *Index) Close() {
	if idx.unsubscribe != nil {
		idx.unsubscribe()
	}
}

// Snapshot returns every window currently known to the index.
func (idx *Index) Snapshot() []model.WindowInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]model.WindowInfo, 0, len(idx.windows))
	for _, w := range idx.windows {
		out = append(out, w)
	}
	return out
}

// Get looks up a single window by handle.
func (idx *Index) Get(handle model.Handle) (model.WindowInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	w, ok := idx.windows[handle]
	return w, ok
}

// Predicate filters a WindowInfo during Find/WaitForWindows.
type Predicate func(model.WindowInfo) bool

// Find returns every currently-indexed window matching pred, optionally
// restricted to a single process id (expectedProcessID == 0 means "any
// process"). Results are returned in no particular order; callers that care
// about ranking (the Launcher) re-sort them.
func (idx *Index) Find(pred Predicate, expectedProcessID uint32) []model.WindowInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []model.WindowInfo
	for _, w := range idx.windows {
		if expectedProcessID != 0 && w.ProcessID != expectedProcessID {
			continue
		}
		if pred == nil || pred(w) {
			out = append(out, w)
		}
	}
	return out
}

const (
	defaultWaitPollInterval = 100 * time.Millisecond
)

// WaitForWindows blocks, polling at pollInterval (defaultWaitPollInterval if
// zero), until Find(pred, expectedProcessID) returns at least one window or
// ctx is done. This backs the Launcher's post-launch settle step, where a
// freshly started process hasn't created its main window yet.
func (idx *Index) WaitForWindows(ctx context.Context, pred Predicate, expectedProcessID uint32, pollInterval time.Duration) []model.WindowInfo {
	if pollInterval <= 0 {
		pollInterval = defaultWaitPollInterval
	}

	if found := idx.Find(pred, expectedProcessID); len(found) > 0 {
		return found
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if found := idx.Find(pred, expectedProcessID); len(found) > 0 {
				return found
			}
		}
	}
}
