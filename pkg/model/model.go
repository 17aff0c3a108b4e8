// Package model defines the data shapes the workspace runtime engine persists
// and passes between its components: monitors, windows, application
// definitions and the workspace documents that bundle them.
package model

import "github.com/google/uuid"

// Rect is an axis-aligned rectangle in virtual-screen coordinates.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) Right() int  { return r.Left + r.Width }
func (r Rect) Bottom() int { return r.Top + r.Height }
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the rectangle's center point.
func (r Rect) Center() (x, y int) {
	return r.Left + r.Width/2, r.Top + r.Height/2
}

// Area returns width*height, or 0 for an empty rectangle.
func (r Rect) Area() int {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// Intersect returns the intersection of two rectangles, or the zero Rect if
// they don't overlap.
func (r Rect) Intersect(other Rect) Rect {
	x1 := maxInt(r.Left, other.Left)
	y1 := maxInt(r.Top, other.Top)
	x2 := minInt(r.Right(), other.Right())
	y2 := minInt(r.Bottom(), other.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{Left: x1, Top: y1, Width: x2 - x1, Height: y2 - y1}
}

// ContainsPoint reports whether (x, y) falls inside the rectangle.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.Left && x < r.Right() && y >= r.Top && y < r.Bottom()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// MonitorInfo identifies a physical monitor across DisplayIndex refreshes.
type MonitorInfo struct {
	ID             string `json:"id"`
	InstanceID     string `json:"instanceId"`
	Ordinal        int    `json:"number"`
	DPI            int    `json:"dpi"`
	DPIAwareRect   Rect   `json:"dpiAwareRect"`
	DPIUnawareRect Rect   `json:"dpiUnawareRect"`
}

// Equal compares the (id, dpi, rect) tuple DisplayIndex uses to decide
// whether a refresh actually changed anything.
func (m MonitorInfo) Equal(other MonitorInfo) bool {
	return m.ID == other.ID && m.DPI == other.DPI && m.DPIAwareRect == other.DPIAwareRect
}

// Handle is an opaque window handle: a value, never dereferenced.
type Handle uintptr

// ShowState is a window's show-state as captured by a placement query.
type ShowState int

const (
	ShowNormal ShowState = iota
	ShowMinimized
	ShowMaximized
)

// WindowInfo is an immutable snapshot of a top-level window at a moment in
// time.
type WindowInfo struct {
	Handle           Handle
	ProcessID        uint32
	ProcessPath      string
	ProcessFileName  string
	ProcessName      string
	PackageFullName  string
	AppUserModelID   string
	Title            string
	ClassName        string
	Bounds           Rect
	IsVisible        bool
	MonitorID        string
	MonitorOrdinal   int
}

// ApplicationDefinition captures one window's identity and target geometry
// inside a WorkspaceDefinition.
type ApplicationDefinition struct {
	ID                   string `json:"id"`
	Name                 string `json:"application"`
	Title                string `json:"title"`
	Path                 string `json:"application-path"`
	PackageFullName      string `json:"package-full-name"`
	AppUserModelID       string `json:"app-user-model-id"`
	PWAAppID             string `json:"pwa-app-id"`
	CommandLineArguments string `json:"command-line-arguments"`
	WorkingDirectory     string `json:"working-directory"`
	IsElevated           bool   `json:"is-elevated"`
	CanLaunchElevated    bool   `json:"can-launch-elevated"`
	Minimized            bool   `json:"minimized"`
	Maximized            bool   `json:"maximized"`
	MonitorOrdinal       int    `json:"monitor"`
	Position             Rect   `json:"position"`
	Version              string `json:"version"`
	// CapturedDPI is the target monitor's DPI at capture time. It is
	// recorded and persisted only; the Launcher does not read it, and
	// rescales Position only when the destination monitor differs from the
	// declared one.
	CapturedDPI int `json:"captured-dpi,omitempty"`
}

// NewApplicationID returns a fresh GUID suitable for ApplicationDefinition.ID.
func NewApplicationID() string {
	return uuid.NewString()
}

// WorkspaceDefinition is a named set of application definitions plus the
// monitor layout captured at snapshot time.
type WorkspaceDefinition struct {
	ID                 string                   `json:"id"`
	Name               string                   `json:"name"`
	CreationTime       int64                    `json:"creationTime"`
	LastLaunchedTime   int64                    `json:"lastLaunchedTime"`
	IsShortcutNeeded   bool                     `json:"isShortcutNeeded"`
	MoveExistingWindows bool                    `json:"moveExistingWindows"`
	Monitors           []MonitorInfo            `json:"monitors"`
	Applications       []ApplicationDefinition  `json:"applications"`
}

// NewWorkspaceID returns a fresh GUID suitable for WorkspaceDefinition.ID.
func NewWorkspaceID() string {
	return uuid.NewString()
}

// WorkspaceDocument is the persisted form of every known workspace.
type WorkspaceDocument struct {
	Workspaces []WorkspaceDefinition `json:"workspaces"`
}

// Clone returns a deep copy of the definition so callers (Store, Launcher) can
// mutate a working copy without aliasing shared slices.
func (w WorkspaceDefinition) Clone() WorkspaceDefinition {
	out := w
	out.Monitors = append([]MonitorInfo(nil), w.Monitors...)
	out.Applications = append([]ApplicationDefinition(nil), w.Applications...)
	return out
}
