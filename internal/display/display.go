// Package display tracks the current monitor layout and resolves which
// monitor a given rectangle belongs to, polling the desktop host on a
// fixed interval and publishing only when the layout actually changes.
package display

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// ChangeKind identifies what changed between two polls.
type ChangeKind int

const (
	_ ChangeKind = iota
	MonitorsChanged
)

// ChangeSink receives a notification whenever the monitor layout changes.
// Sinks run synchronously from the poll goroutine, so they must not block.
type ChangeSink func(ChangeKind)

const defaultPollInterval = time.Second

// Index is the DisplayIndex: a polled, cached view of the monitor layout.
type Index struct {
	host   desktop.Host
	logger *zap.Logger
	period time.Duration

	mu       sync.RWMutex
	monitors []model.MonitorInfo

	refreshing int32 // single-entry-flag guard: concurrent Refresh calls are a no-op

	sinkMu   sync.Mutex
	sinks    map[int]ChangeSink
	nextSink int

	stop chan struct{}
	done chan struct{}
}

// New creates a DisplayIndex. It performs one synchronous refresh before
// returning so callers never observe an empty monitor list at startup.
func New(host desktop.Host, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &Index{
		host:   host,
		logger: logger,
		period: defaultPollInterval,
		sinks:  make(map[int]ChangeSink),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	idx.refresh()
	return idx
}

// Start begins the background poll loop. Safe to call once; Stop ends it.
func (idx *Index) Start() {
	go idx.loop()
}

func (idx *Index) loop() {
	defer close(idx.done)
	ticker := time.NewTicker(idx.period)
	defer ticker.Stop()
	for {
		select {
		case <-idx.stop:
			return
		case <-ticker.C:
			idx.refresh()
		}
	}
}

// Stop ends the poll loop and waits for it to exit.
func (idx *Index) Stop() {
	select {
	case <-idx.stop:
		return
	default:
		close(idx.stop)
	}
	<-idx.done
}

// refresh re-enumerates monitors and publishes MonitorsChanged if the set
// differs from the cached one. A refresh already in flight makes this a
// no-op rather than queueing a second one.
func (idx *Index) refresh() {
	if !atomic.CompareAndSwapInt32(&idx.refreshing, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&idx.refreshing, 0)

	monitors, err := idx.host.EnumerateMonitors()
	if err != nil {
		idx.logger.Warn("monitor enumeration failed, keeping previous layout", zap.Error(err))
		return
	}

	idx.mu.Lock()
	changed := !sameMonitors(idx.monitors, monitors)
	if changed {
		idx.monitors = monitors
	}
	idx.mu.Unlock()

	if changed {
		idx.publish(MonitorsChanged)
	}
}

// Refresh forces an immediate poll, useful for tests and for callers that
// just received a display-change notification from the OS out of band.
func (idx *Index) Refresh() {
	idx.refresh()
}

func sameMonitors(a, b []model.MonitorInfo) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[string]model.MonitorInfo, len(a))
	for _, m := range a {
		byID[m.ID] = m
	}
	for _, m := range b {
		prev, ok := byID[m.ID]
		if !ok {
			return false
		}
		if !prev.Equal(m) {
			return false
		}
	}
	return true
}

// Monitors returns the current cached monitor list.
func (idx *Index) Monitors() []model.MonitorInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]model.MonitorInfo, len(idx.monitors))
	copy(out, idx.monitors)
	return out
}

// ByID looks up a monitor by its stable ID.
func (idx *Index) ByID(id string) (model.MonitorInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, m := range idx.monitors {
		if m.ID == id {
			return m, true
		}
	}
	return model.MonitorInfo{}, false
}

// ByOrdinal looks up a monitor by its enumeration ordinal.
func (idx *Index) ByOrdinal(ordinal int) (model.MonitorInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, m := range idx.monitors {
		if m.Ordinal == ordinal {
			return m, true
		}
	}
	return model.MonitorInfo{}, false
}

// ResolveMonitor assigns rect to the monitor whose bounds contain its center
// point, falling back to the monitor with the largest intersection area
// when the center falls outside every monitor (a window dragged mostly off
// screen, for instance). Returns false only when there are no monitors at
// all.
func (idx *Index) ResolveMonitor(rect model.Rect) (model.MonitorInfo, bool) {
	idx.mu.RLock()
	monitors := idx.monitors
	idx.mu.RUnlock()

	if len(monitors) == 0 {
		return model.MonitorInfo{}, false
	}

	cx, cy := rect.Center()
	for _, m := range monitors {
		if m.DPIAwareRect.ContainsPoint(cx, cy) {
			return m, true
		}
	}

	best, bestArea := monitors[0], -1
	for _, m := range monitors {
		if area := m.DPIAwareRect.Intersect(rect).Area(); area > bestArea {
			best, bestArea = m, area
		}
	}
	return best, true
}

// Subscribe registers sink for layout-change notifications.
func (idx *Index) Subscribe(sink ChangeSink) (unsubscribe func()) {
	idx.sinkMu.Lock()
	id := idx.nextSink
	idx.nextSink++
	idx.sinks[id] = sink
	idx.sinkMu.Unlock()

	return func() {
		idx.sinkMu.Lock()
		delete(idx.sinks, id)
		idx.sinkMu.Unlock()
	}
}

func (idx *Index) publish(kind ChangeKind) {
	idx.sinkMu.Lock()
	sinks := make([]ChangeSink, 0, len(idx.sinks))
	for _, s := range idx.sinks {
		sinks = append(sinks, s)
	}
	idx.sinkMu.Unlock()

	for _, s := range sinks {
		func() {
			defer func() { recover() }()
			s(kind)
		}()
	}
}
