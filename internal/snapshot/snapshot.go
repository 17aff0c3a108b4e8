// Package snapshot captures the current desktop into a WorkspaceDefinition,
// the inverse of what internal/launch does: instead of placing windows to
// match a definition, it builds a definition to match the windows that are
// already there. The same visible/cloaked/tool-window filter that gates
// which windows are worth capturing also gates which ones are worth binding.
package snapshot

import (
	"strings"

	"go.uber.org/zap"

	"github.com/workspace-engine/workspace-engine/internal/clock"
	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/display"
	"github.com/workspace-engine/workspace-engine/internal/registry"
	"github.com/workspace-engine/workspace-engine/internal/windowindex"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Config tunes which windows Capture considers eligible.
type Config struct {
	// ExcludedClassNames are window classes that are never snapshot-worthy
	// (shell chrome, tooltips, the taskbar itself).
	ExcludedClassNames []string
}

func DefaultConfig() Config {
	return Config{
		ExcludedClassNames: []string{
			"Shell_TrayWnd",
			"Shell_SecondaryTrayWnd",
			"Progman",
			"WorkerW",
			"Windows.UI.Core.CoreWindow",
		},
	}
}

// Snapshotter captures the live desktop into a WorkspaceDefinition.
type Snapshotter struct {
	host     desktop.Host
	windows  *windowindex.Index
	displays *display.Index
	registry *registry.Registry
	clock    clock.Clock
	logger   *zap.Logger

	excluded map[string]struct{}
}

func New(host desktop.Host, windows *windowindex.Index, displays *display.Index, reg *registry.Registry, cfg Config, clk clock.Clock, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	excluded := make(map[string]struct{}, len(cfg.ExcludedClassNames))
	for _, c := range cfg.ExcludedClassNames {
		excluded[strings.ToLower(c)] = struct{}{}
	}
	return &Snapshotter{host: host, windows: windows, displays: displays, registry: reg, clock: clk, logger: logger, excluded: excluded}
}

// Capture builds a new WorkspaceDefinition named name from every currently
// eligible top-level window, binding each captured window into the
// registry so a subsequent Launcher run recognizes it as already placed
// instead of matching it by heuristic.
func (s *Snapshotter) Capture(name string) model.WorkspaceDefinition {
	now := s.clock.Now().UnixMilli()
	def := model.WorkspaceDefinition{
		ID:           model.NewWorkspaceID(),
		Name:         name,
		CreationTime: now,
		Monitors:     s.displays.Monitors(),
	}

	all := s.windows.Snapshot()
	for _, w := range all {
		if !s.eligible(w) {
			continue
		}

		// A window hosted by the application frame host carries the host's
		// path; borrow the path of another process's window with the same
		// title, if there is one.
		path := w.ProcessPath
		if strings.HasSuffix(strings.ToLower(path), "applicationframehost.exe") {
			for _, o := range all {
				if o.ProcessID != w.ProcessID && o.ProcessPath != "" && o.Title == w.Title {
					path = o.ProcessPath
					break
				}
			}
		}

		placement, _ := s.host.GetPlacement(w.Handle)
		monitorOrdinal := w.MonitorOrdinal
		var capturedDPI int
		if mon, ok := s.displays.ResolveMonitor(w.Bounds); ok {
			monitorOrdinal = mon.Ordinal
			capturedDPI = mon.DPI
		}

		appID := model.NewApplicationID()
		app := model.ApplicationDefinition{
			ID:              appID,
			Name:            w.ProcessName,
			Title:           w.Title,
			Path:            path,
			PackageFullName: w.PackageFullName,
			AppUserModelID:  w.AppUserModelID,
			MonitorOrdinal:  monitorOrdinal,
			CapturedDPI:     capturedDPI,
			Position:        placement.NormalRect,
			Minimized:       placement.IsMinimized,
			Maximized:       placement.IsMaximized,
		}
		def.Applications = append(def.Applications, app)

		if s.registry != nil {
			s.registry.BindShared(appID, name, w.Handle)
		}
	}

	return def
}

// eligible applies the per-window capture filter: visible, not explicitly
// cloaked, not a tool window, not in the excluded class set, and with a
// non-empty title.
// A window whose cloak status is unknown is still included — treating
// "unknown" as "hidden" would silently drop windows on hosts where
// DwmGetWindowAttribute simply isn't wired up.
func (s *Snapshotter) eligible(w model.WindowInfo) bool {
	if !w.IsVisible {
		return false
	}
	if _, excludedClass := s.excluded[strings.ToLower(w.ClassName)]; excludedClass {
		return false
	}
	if s.host.IsCloaked(w.Handle) == desktop.CloakHidden {
		return false
	}
	if s.host.HasToolWindowStyle(w.Handle) {
		return false
	}
	if w.Title == "" {
		return false
	}
	return true
}
