package snapshot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/internal/clock"
	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/display"
	"github.com/workspace-engine/workspace-engine/internal/registry"
	"github.com/workspace-engine/workspace-engine/internal/snapshot"
	"github.com/workspace-engine/workspace-engine/internal/windowindex"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func TestCapture_FiltersAndBinds(t *testing.T) {
	host := desktop.NewFake()
	host.SetMonitors([]model.MonitorInfo{
		{ID: "A", Ordinal: 0, DPIAwareRect: model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080}},
	})

	visible := host.AddWindow(model.WindowInfo{Title: "Notepad", ClassName: "Notepad", IsVisible: true, ProcessName: "notepad"})
	host.AddWindow(model.WindowInfo{Title: "", ClassName: "ToolTip", IsVisible: true})
	tray := host.AddWindow(model.WindowInfo{Title: "Tray", ClassName: "Shell_TrayWnd", IsVisible: true})
	hidden := host.AddWindow(model.WindowInfo{Title: "Hidden", ClassName: "App", IsVisible: false})
	toolWindow := host.AddWindow(model.WindowInfo{Title: "Palette", ClassName: "App", IsVisible: true})
	cloaked := host.AddWindow(model.WindowInfo{Title: "UWP suspended", ClassName: "App", IsVisible: true})

	host.SetToolWindow(toolWindow, true)
	host.SetCloak(cloaked, desktop.CloakHidden)
	_ = tray
	_ = hidden

	windows := windowindex.New(host, nil)
	defer windows.Close()
	displays := display.New(host, nil)
	reg := registry.New(host)
	clk := clock.NewFake(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	snapper := snapshot.New(host, windows, displays, reg, snapshot.DefaultConfig(), clk, nil)

	def := snapper.Capture("captured")
	require.Equal(t, "captured", def.Name)
	require.Len(t, def.Applications, 1)
	require.Equal(t, "Notepad", def.Applications[0].Title)
	require.Equal(t, clk.Now().UnixMilli(), def.CreationTime)

	bound, ok := reg.BoundWindow(def.Applications[0].ID)
	require.True(t, ok)
	require.Equal(t, visible, bound)
}

func TestCapture_EmptyDesktopYieldsNoApplications(t *testing.T) {
	host := desktop.NewFake()
	windows := windowindex.New(host, nil)
	defer windows.Close()
	displays := display.New(host, nil)
	reg := registry.New(host)

	snapper := snapshot.New(host, windows, displays, reg, snapshot.DefaultConfig(), nil, nil)
	def := snapper.Capture("empty")
	require.Empty(t, def.Applications)
}
