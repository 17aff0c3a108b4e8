package launch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/internal/clock"
	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/display"
	"github.com/workspace-engine/workspace-engine/internal/launch"
	"github.com/workspace-engine/workspace-engine/internal/match"
	"github.com/workspace-engine/workspace-engine/internal/registry"
	"github.com/workspace-engine/workspace-engine/internal/windowindex"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func newLauncher(t *testing.T, host *desktop.Fake) (*launch.Launcher, *windowindex.Index, *registry.Registry) {
	t.Helper()
	windows := windowindex.New(host, nil)
	t.Cleanup(windows.Close)
	displays := display.New(host, nil)
	reg := registry.New(host)
	cfg := launch.DefaultConfig()
	cfg.LaunchSettleTimeout = 500 * time.Millisecond
	cfg.LaunchPollInterval = 5 * time.Millisecond
	cfg.PositionRetries = 1
	cfg.PositionRetryDelay = time.Millisecond

	l := launch.New(host, windows, displays, reg, match.NewMatcher(nil), cfg, clock.Real{}, nil)
	return l, windows, reg
}

func TestLaunch_AssignsExistingWindowWithoutLaunching(t *testing.T) {
	host := desktop.NewFake()
	handle := host.AddWindow(model.WindowInfo{Title: "Notepad", ProcessName: "notepad", IsVisible: true})
	l, _, reg := newLauncher(t, host)

	ws := model.WorkspaceDefinition{
		Name:                "dev",
		MoveExistingWindows: true,
		Applications: []model.ApplicationDefinition{
			{ID: "app-1", Title: "Notepad", Name: "notepad"},
		},
	}

	result := l.Launch(context.Background(), ws, launch.Options{})
	require.Equal(t, 1, result.AssignedExisting)
	require.Equal(t, 0, result.Launched)
	require.Empty(t, host.Launched)

	bound, ok := reg.BoundWindow("app-1")
	require.True(t, ok)
	require.Equal(t, handle, bound)
}

func TestLaunch_LaunchesMissingApplication(t *testing.T) {
	host := desktop.NewFake()
	host.AfterLaunch = func(pid uint32, opts desktop.StartProcessOptions) {
		host.AddWindow(model.WindowInfo{Title: "New App", ProcessID: pid, IsVisible: true})
	}
	l, _, reg := newLauncher(t, host)

	ws := model.WorkspaceDefinition{
		Name: "dev",
		Applications: []model.ApplicationDefinition{
			{ID: "app-1", Title: "New App", Path: `C:\apps\new.exe`},
		},
	}

	result := l.Launch(context.Background(), ws, launch.Options{})
	require.Equal(t, 1, result.Launched)
	require.Empty(t, result.Failed)

	_, ok := reg.BoundWindow("app-1")
	require.True(t, ok)
	require.Len(t, host.Launched, 1)
	require.Equal(t, "path", host.Launched[0].Method)
}

func TestLaunch_FailsWhenWindowNeverAppears(t *testing.T) {
	host := desktop.NewFake()
	l, _, _ := newLauncher(t, host)

	ws := model.WorkspaceDefinition{
		Name: "dev",
		Applications: []model.ApplicationDefinition{
			{ID: "app-1", Title: "Ghost", Path: `C:\apps\ghost.exe`},
		},
	}

	result := l.Launch(context.Background(), ws, launch.Options{})
	require.Equal(t, 0, result.Launched)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "app-1", result.Failed[0].AppID)
}

func TestLaunch_ReconcilePositionsBoundWindow(t *testing.T) {
	host := desktop.NewFake()
	host.SetMonitors([]model.MonitorInfo{
		{ID: "A", Ordinal: 0, DPI: 96, DPIAwareRect: model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080}},
	})
	handle := host.AddWindow(model.WindowInfo{Title: "Notepad", ProcessName: "notepad", IsVisible: true})
	l, _, _ := newLauncher(t, host)

	ws := model.WorkspaceDefinition{
		Name:                "dev",
		MoveExistingWindows: true,
		Applications: []model.ApplicationDefinition{
			{ID: "app-1", Title: "Notepad", Name: "notepad", MonitorOrdinal: 0, CapturedDPI: 96,
				Position: model.Rect{Left: 100, Top: 200, Width: 640, Height: 480}},
		},
	}

	l.Launch(context.Background(), ws, launch.Options{})

	placement, ok := host.GetPlacement(handle)
	require.True(t, ok)
	require.Equal(t, model.Rect{Left: 100, Top: 200, Width: 640, Height: 480}, placement.NormalRect)
}

func TestLaunch_MinimizeSiblingsHidesOtherProcessWindows(t *testing.T) {
	host := desktop.NewFake()
	primary := host.AddWindow(model.WindowInfo{Title: "Main", ProcessID: 55, IsVisible: true})
	sibling := host.AddWindow(model.WindowInfo{Title: "Tip of the day", ProcessID: 55, IsVisible: true})
	l, _, _ := newLauncher(t, host)

	ws := model.WorkspaceDefinition{
		Name:                "dev",
		MoveExistingWindows: true,
		Applications: []model.ApplicationDefinition{
			{ID: "app-1", Title: "Main"},
		},
	}

	l.Launch(context.Background(), ws, launch.Options{MinimizeSiblings: true})

	mainPlacement, _ := host.GetPlacement(primary)
	require.False(t, mainPlacement.IsMinimized)

	siblingPlacement, _ := host.GetPlacement(sibling)
	require.True(t, siblingPlacement.IsMinimized)
}
