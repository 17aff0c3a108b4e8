// Package desktop defines the Host capability the rest of the engine
// consumes, plus a Windows implementation built on the syscalls needed for
// window enumeration, DPI handling and process inspection.
package desktop

import (
	"time"

	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Tristate models a query whose answer may be unknown (e.g. virtual-desktop
// membership on platforms/builds where the API is unavailable).
type Tristate int

const (
	Unknown Tristate = iota
	Yes
	No
)

// CloakState is DWMWA_CLOAKED's tri-state: a window can be cloaked, visible,
// or its cloak status simply unknown to the host, modeled explicitly rather
// than collapsed to a bool so call sites can each apply their own policy.
type CloakState int

const (
	CloakUnknown CloakState = iota
	CloakVisible
	CloakHidden
)

// EventKind is the lifecycle event WindowIndex subscribes to.
type EventKind int

const (
	EventCreated EventKind = iota
	EventUpdated
	EventDestroyed
)

// Event is a single window lifecycle notification.
type Event struct {
	Kind   EventKind
	Handle model.Handle
}

// EventSink receives lifecycle events. Implementations (WindowIndex) must not
// block for long: the host delivers events on its own dispatch thread and a
// slow sink would back up every other subscriber.
type EventSink func(Event)

// Placement is the (normal_rect, is_minimized, is_maximized) tuple the
// platform's window-placement query returns.
type Placement struct {
	NormalRect  model.Rect
	IsMinimized bool
	IsMaximized bool
}

// Host is the abstract desktop capability the engine consumes. The core
// never talks to the OS directly outside of an implementation of this
// interface.
type Host interface {
	EnumerateMonitors() ([]model.MonitorInfo, error)
	EnumerateTopLevelWindows() ([]model.Handle, error)
	QueryWindow(handle model.Handle) (*model.WindowInfo, error)

	// Subscribe registers sink for lifecycle events and returns an
	// unsubscribe function.
	Subscribe(sink EventSink) (unsubscribe func())

	IsWindow(handle model.Handle) bool
	IsCloaked(handle model.Handle) CloakState
	IsOnCurrentVirtualDesktop(handle model.Handle) Tristate
	HasToolWindowStyle(handle model.Handle) bool
	CanMinimize(handle model.Handle) bool

	GetPlacement(handle model.Handle) (Placement, bool)
	SetPosition(handle model.Handle, rect model.Rect, noActivate, noZOrder bool) bool
	Show(handle model.Handle, state model.ShowState) bool

	// SiblingWindows lists every top-level window belonging to pid, for the
	// Launcher's sibling-minimize rule.
	SiblingWindows(pid uint32) ([]model.Handle, error)

	WaitForInputIdle(pid uint32, timeout time.Duration) bool

	ActivateByAUMID(aumid, args string) (pid uint32, err error)
	LaunchPackage(fullName string) (bool, error)
	StartProcess(opts StartProcessOptions) (pid uint32, err error)
}

// StartProcessOptions configures Host.StartProcess.
type StartProcessOptions struct {
	Path             string
	Args             string
	ShellExecute     bool
	Runas            bool
	WorkingDirectory string
}
