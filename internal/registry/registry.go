// Package registry tracks which window handles are claimed by which
// ApplicationDefinitions across workspaces, behind a single mutex guarding
// a pair of maps kept consistent under concurrent access.
package registry

import (
	"sync"

	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

type binding struct {
	handle    model.Handle
	workspace string
	shared    bool
}

// Registry tracks bindings between application definitions and live windows.
type Registry struct {
	host desktop.Host

	mu sync.Mutex

	byApp    map[string]binding
	byHandle map[model.Handle]map[string]struct{} // handle -> set of bound app IDs
}

// New creates a Registry. host is used only for self-healing reads (pruning
// bindings to windows that no longer exist); a nil host disables pruning.
func New(host desktop.Host) *Registry {
	return &Registry{
		host:     host,
		byApp:    make(map[string]binding),
		byHandle: make(map[model.Handle]map[string]struct{}),
	}
}

// TryBind claims handle exclusively for appID within workspace. It fails if
// handle is already bound (exclusively or shared) to a different app. If
// appID was bound to a different handle, that prior binding is released
// first.
func (r *Registry) TryBind(appID, workspace string, handle model.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneStaleLocked()

	if apps, ok := r.byHandle[handle]; ok {
		for other := range apps {
			if other != appID {
				return false
			}
		}
	}

	r.bindLocked(appID, workspace, handle, false)
	return true
}

// BindShared claims handle for appID without requiring exclusivity,
// allowing several ApplicationDefinitions to resolve to the same live
// window (e.g. two saved tabs of what is now a single merged browser
// window).
func (r *Registry) BindShared(appID, workspace string, handle model.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneStaleLocked()
	r.bindLocked(appID, workspace, handle, true)
}

func (r *Registry) bindLocked(appID, workspace string, handle model.Handle, shared bool) {
	if prev, ok := r.byApp[appID]; ok && prev.handle != handle {
		r.removeFromHandleLocked(prev.handle, appID)
	}
	r.byApp[appID] = binding{handle: handle, workspace: workspace, shared: shared}
	if r.byHandle[handle] == nil {
		r.byHandle[handle] = make(map[string]struct{})
	}
	r.byHandle[handle][appID] = struct{}{}
}

func (r *Registry) removeFromHandleLocked(handle model.Handle, appID string) {
	if set, ok := r.byHandle[handle]; ok {
		delete(set, appID)
		if len(set) == 0 {
			delete(r.byHandle, handle)
		}
	}
}

// BoundWindow returns the handle bound to appID, if any.
func (r *Registry) BoundWindow(appID string) (model.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneStaleLocked()
	b, ok := r.byApp[appID]
	return b.handle, ok
}

// BoundApp returns one app ID bound to handle (arbitrary choice among
// several, for an exclusive binding there is always exactly one).
func (r *Registry) BoundApp(handle model.Handle) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneStaleLocked()
	for appID := range r.byHandle[handle] {
		return appID, true
	}
	return "", false
}

// BoundApps returns every app ID currently bound to handle.
func (r *Registry) BoundApps(handle model.Handle) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneStaleLocked()
	out := make([]string, 0, len(r.byHandle[handle]))
	for appID := range r.byHandle[handle] {
		out = append(out, appID)
	}
	return out
}

// WorkspaceWindows returns every window handle bound to an app in workspace.
func (r *Registry) WorkspaceWindows(workspace string) []model.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneStaleLocked()
	seen := make(map[model.Handle]struct{})
	var out []model.Handle
	for _, b := range r.byApp {
		if b.workspace != workspace {
			continue
		}
		if _, ok := seen[b.handle]; ok {
			continue
		}
		seen[b.handle] = struct{}{}
		out = append(out, b.handle)
	}
	return out
}

// AllBoundWindows returns every window handle currently bound to any app.
func (r *Registry) AllBoundWindows() []model.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneStaleLocked()
	out := make([]model.Handle, 0, len(r.byHandle))
	for h := range r.byHandle {
		out = append(out, h)
	}
	return out
}

// UnbindApp releases appID's claim, whatever window it's bound to.
func (r *Registry) UnbindApp(appID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byApp[appID]
	if !ok {
		return
	}
	delete(r.byApp, appID)
	r.removeFromHandleLocked(b.handle, appID)
}

// UnbindWindow releases every app claim currently pointing at handle.
func (r *Registry) UnbindWindow(handle model.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for appID := range r.byHandle[handle] {
		delete(r.byApp, appID)
	}
	delete(r.byHandle, handle)
}

// ClearWorkspace releases every binding belonging to workspace.
func (r *Registry) ClearWorkspace(workspace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for appID, b := range r.byApp {
		if b.workspace != workspace {
			continue
		}
		delete(r.byApp, appID)
		r.removeFromHandleLocked(b.handle, appID)
	}
}

// Clear releases every binding in the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byApp = make(map[string]binding)
	r.byHandle = make(map[model.Handle]map[string]struct{})
}

// RegistryStats summarizes the registry's current contents, a small
// supplemented read the UI/CLI surface uses to report workspace health.
type RegistryStats struct {
	TotalBindings     int
	ExclusiveBindings int
	SharedBindings    int
	DistinctWindows   int
	Workspaces        int
}

func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneStaleLocked()

	stats := RegistryStats{
		TotalBindings:   len(r.byApp),
		DistinctWindows: len(r.byHandle),
	}
	workspaces := make(map[string]struct{})
	for _, b := range r.byApp {
		workspaces[b.workspace] = struct{}{}
		if b.shared {
			stats.SharedBindings++
		} else {
			stats.ExclusiveBindings++
		}
	}
	stats.Workspaces = len(workspaces)
	return stats
}

// pruneStaleLocked drops bindings to windows the host no longer recognizes,
// so a registry read always reflects reality even if UnbindWindow or the
// destroy event for that handle hasn't been observed yet.
func (r *Registry) pruneStaleLocked() {
	if r.host == nil {
		return
	}
	for handle := range r.byHandle {
		if r.host.IsWindow(handle) {
			continue
		}
		for appID := range r.byHandle[handle] {
			delete(r.byApp, appID)
		}
		delete(r.byHandle, handle)
	}
}
