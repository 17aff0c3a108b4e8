package desktop

import (
	"fmt"
	"sync"
	"time"

	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Fake is an in-memory Host used by every package's tests in this module and
// by internal/engine's integration test. It implements the same Host
// contract a WindowsHost does (its enumerations never error) so component tests
// don't need a Windows machine to exercise the matching/launch/registry
// logic.
type Fake struct {
	mu sync.Mutex

	monitors []model.MonitorInfo
	windows  map[model.Handle]*model.WindowInfo
	placements map[model.Handle]Placement
	cloak    map[model.Handle]CloakState
	desktop  map[model.Handle]Tristate
	toolWindow map[model.Handle]bool
	canMinimize map[model.Handle]bool

	nextHandle model.Handle
	nextPID    uint32

	sinks    map[int]EventSink
	nextSink int

	// Launched records StartProcess/ActivateByAUMID/LaunchPackage calls so
	// tests can assert "no process started".
	Launched []LaunchCall

	// AfterLaunch, if set, is called synchronously from StartProcess /
	// ActivateByAUMID / LaunchPackage so a test can make a window "appear"
	// as a side effect of launching, mirroring real OS behavior.
	AfterLaunch func(pid uint32, opts StartProcessOptions)

	inputIdle bool
}

// LaunchCall records one activation/start-process invocation.
type LaunchCall struct {
	Method string // "aumid", "package", "path"
	Target string
	Args   string
}

func NewFake() *Fake {
	return &Fake{
		windows:     make(map[model.Handle]*model.WindowInfo),
		placements:  make(map[model.Handle]Placement),
		cloak:       make(map[model.Handle]CloakState),
		desktop:     make(map[model.Handle]Tristate),
		toolWindow:  make(map[model.Handle]bool),
		canMinimize: make(map[model.Handle]bool),
		sinks:       make(map[int]EventSink),
		nextHandle:  1,
		nextPID:     1000,
		inputIdle:   true,
	}
}

func (f *Fake) SetMonitors(monitors []model.MonitorInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitors = monitors
}

func (f *Fake) SetInputIdle(idle bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputIdle = idle
}

// AddWindow registers a window (optionally assigning its handle/pid if
// zero) and returns the effective handle. By default the window can
// minimize, is on the current virtual desktop, and is not cloaked — tests
// override via the Set* helpers below.
func (f *Fake) AddWindow(info model.WindowInfo) model.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	if info.Handle == 0 {
		info.Handle = f.nextHandle
		f.nextHandle++
	}
	if info.ProcessID == 0 {
		info.ProcessID = f.nextPID
		f.nextPID++
	}
	cp := info
	f.windows[info.Handle] = &cp
	f.placements[info.Handle] = Placement{NormalRect: info.Bounds}
	f.cloak[info.Handle] = CloakVisible
	f.desktop[info.Handle] = Yes
	f.canMinimize[info.Handle] = true

	handle := info.Handle
	f.fireLocked(Event{Kind: EventCreated, Handle: handle})
	return handle
}

func (f *Fake) RemoveWindow(handle model.Handle) {
	f.mu.Lock()
	delete(f.windows, handle)
	delete(f.placements, handle)
	delete(f.cloak, handle)
	delete(f.desktop, handle)
	f.fireLocked(Event{Kind: EventDestroyed, Handle: handle})
	f.mu.Unlock()
}

func (f *Fake) UpdateWindow(handle model.Handle, mutate func(*model.WindowInfo)) {
	f.mu.Lock()
	info, ok := f.windows[handle]
	if !ok {
		f.mu.Unlock()
		return
	}
	mutate(info)
	f.placements[handle] = Placement{NormalRect: info.Bounds, IsMinimized: f.placements[handle].IsMinimized, IsMaximized: f.placements[handle].IsMaximized}
	f.fireLocked(Event{Kind: EventUpdated, Handle: handle})
	f.mu.Unlock()
}

func (f *Fake) SetCloak(handle model.Handle, state CloakState) {
	f.mu.Lock()
	f.cloak[handle] = state
	f.mu.Unlock()
}

func (f *Fake) SetOnCurrentDesktop(handle model.Handle, state Tristate) {
	f.mu.Lock()
	f.desktop[handle] = state
	f.mu.Unlock()
}

func (f *Fake) SetToolWindow(handle model.Handle, isTool bool) {
	f.mu.Lock()
	f.toolWindow[handle] = isTool
	f.mu.Unlock()
}

func (f *Fake) SetCanMinimize(handle model.Handle, can bool) {
	f.mu.Lock()
	f.canMinimize[handle] = can
	f.mu.Unlock()
}

func (f *Fake) SetPlacement(handle model.Handle, p Placement) {
	f.mu.Lock()
	f.placements[handle] = p
	if info, ok := f.windows[handle]; ok {
		info.Bounds = p.NormalRect
	}
	f.mu.Unlock()
}

func (f *Fake) fireLocked(evt Event) {
	sinks := make([]EventSink, 0, len(f.sinks))
	for _, s := range f.sinks {
		sinks = append(sinks, s)
	}
	go func() {
		for _, s := range sinks {
			func() {
				defer func() { recover() }()
				s(evt)
			}()
		}
	}()
}

func (f *Fake) EnumerateMonitors() ([]model.MonitorInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.MonitorInfo(nil), f.monitors...)
	return out, nil
}

func (f *Fake) EnumerateTopLevelWindows() ([]model.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Handle
	for h := range f.windows {
		out = append(out, h)
	}
	return out, nil
}

func (f *Fake) QueryWindow(handle model.Handle) (*model.WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.windows[handle]
	if !ok {
		return nil, fmt.Errorf("no such window: %v", handle)
	}
	cp := *info
	return &cp, nil
}

func (f *Fake) Subscribe(sink EventSink) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextSink
	f.nextSink++
	f.sinks[id] = sink
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.sinks, id)
		f.mu.Unlock()
	}
}

func (f *Fake) IsWindow(handle model.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.windows[handle]
	return ok
}

func (f *Fake) IsCloaked(handle model.Handle) CloakState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.cloak[handle]; ok {
		return s
	}
	return CloakUnknown
}

func (f *Fake) IsOnCurrentVirtualDesktop(handle model.Handle) Tristate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.desktop[handle]; ok {
		return s
	}
	return Unknown
}

func (f *Fake) HasToolWindowStyle(handle model.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toolWindow[handle]
}

func (f *Fake) CanMinimize(handle model.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canMinimize[handle]
}

func (f *Fake) GetPlacement(handle model.Handle) (Placement, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.placements[handle]
	return p, ok
}

func (f *Fake) SetPosition(handle model.Handle, rect model.Rect, noActivate, noZOrder bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.windows[handle]; !ok {
		return false
	}
	p := f.placements[handle]
	p.NormalRect = rect
	f.placements[handle] = p
	f.windows[handle].Bounds = rect
	return true
}

func (f *Fake) Show(handle model.Handle, state model.ShowState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.windows[handle]; !ok {
		return false
	}
	p := f.placements[handle]
	p.IsMinimized = state == model.ShowMinimized
	p.IsMaximized = state == model.ShowMaximized
	f.placements[handle] = p
	return true
}

func (f *Fake) SiblingWindows(pid uint32) ([]model.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Handle
	for h, info := range f.windows {
		if info.ProcessID == pid {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *Fake) WaitForInputIdle(pid uint32, timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputIdle
}

func (f *Fake) ActivateByAUMID(aumid, args string) (pid uint32, err error) {
	f.mu.Lock()
	pid = f.nextPID
	f.nextPID++
	f.Launched = append(f.Launched, LaunchCall{Method: "aumid", Target: aumid, Args: args})
	cb := f.AfterLaunch
	f.mu.Unlock()
	if cb != nil {
		cb(pid, StartProcessOptions{})
	}
	return pid, nil
}

func (f *Fake) LaunchPackage(fullName string) (bool, error) {
	f.mu.Lock()
	f.Launched = append(f.Launched, LaunchCall{Method: "package", Target: fullName})
	cb := f.AfterLaunch
	f.mu.Unlock()
	if cb != nil {
		cb(0, StartProcessOptions{})
	}
	return true, nil
}

func (f *Fake) StartProcess(opts StartProcessOptions) (pid uint32, err error) {
	f.mu.Lock()
	pid = f.nextPID
	f.nextPID++
	f.Launched = append(f.Launched, LaunchCall{Method: "path", Target: opts.Path, Args: opts.Args})
	cb := f.AfterLaunch
	f.mu.Unlock()
	if cb != nil {
		cb(pid, opts)
	}
	return pid, nil
}

var _ Host = (*Fake)(nil)
