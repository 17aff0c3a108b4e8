package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/internal/clock"
	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/engine"
	"github.com/workspace-engine/workspace-engine/internal/launch"
	"github.com/workspace-engine/workspace-engine/internal/store"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func newTestEngine(t *testing.T, host *desktop.Fake) (*engine.Engine, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	cfg := engine.DefaultConfig()
	cfg.Store = store.Config{Dir: t.TempDir(), FileName: "workspaces.json"}
	cfg.Launch.LaunchSettleTimeout = 500 * time.Millisecond
	cfg.Launch.LaunchPollInterval = 5 * time.Millisecond
	cfg.Launch.PositionRetries = 1
	cfg.Launch.PositionRetryDelay = time.Millisecond

	e := engine.New(host, cfg, clk, nil)
	t.Cleanup(e.Close)
	return e, clk
}

// TestCaptureThenLaunch exercises the full round trip this engine exists
// for: snapshot the live desktop into a workspace, then launch that same
// workspace back and confirm the already-open window is recognized instead
// of being relaunched.
func TestCaptureThenLaunch(t *testing.T) {
	host := desktop.NewFake()
	host.SetMonitors([]model.MonitorInfo{
		{ID: "A", Ordinal: 0, DPI: 96, DPIAwareRect: model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080}},
	})
	host.AddWindow(model.WindowInfo{
		Title: "Editor", ClassName: "EditorWnd", ProcessName: "editor",
		ProcessPath: `C:\apps\editor.exe`, IsVisible: true,
		Bounds: model.Rect{Left: 50, Top: 60, Width: 800, Height: 600},
	})

	e, _ := newTestEngine(t, host)

	captured, err := e.CaptureWorkspace("dev")
	require.NoError(t, err)
	require.Len(t, captured.Applications, 1)

	names, err := e.ListWorkspaces()
	require.NoError(t, err)
	require.Equal(t, []string{"dev"}, names)

	captured.MoveExistingWindows = true
	require.NoError(t, e.Store.Save(captured, ""))

	result, err := e.LaunchWorkspace(context.Background(), "dev", launch.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, result.AssignedExisting)
	require.Equal(t, 0, result.Launched)
	require.Empty(t, host.Launched, "an already-open window must never be relaunched")

	after, err := e.Store.Get("dev")
	require.NoError(t, err)
	require.NotZero(t, after.LastLaunchedTime)
}

func TestLaunchWorkspace_LaunchesMissingApplication(t *testing.T) {
	host := desktop.NewFake()
	host.AfterLaunch = func(pid uint32, opts desktop.StartProcessOptions) {
		host.AddWindow(model.WindowInfo{Title: "Fresh", ProcessID: pid, IsVisible: true})
	}
	e, _ := newTestEngine(t, host)

	def := model.WorkspaceDefinition{
		ID:   model.NewWorkspaceID(),
		Name: "build",
		Applications: []model.ApplicationDefinition{
			{ID: model.NewApplicationID(), Title: "Fresh", Path: `C:\apps\fresh.exe`},
		},
	}
	require.NoError(t, e.Store.Save(def, ""))

	result, err := e.LaunchWorkspace(context.Background(), "build", launch.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Launched)
	require.Len(t, host.Launched, 1)
}

func TestDeleteWorkspace_ClearsRegistryBindings(t *testing.T) {
	host := desktop.NewFake()
	host.AddWindow(model.WindowInfo{Title: "Notes", IsVisible: true})
	e, _ := newTestEngine(t, host)

	captured, err := e.CaptureWorkspace("scratch")
	require.NoError(t, err)
	require.Len(t, captured.Applications, 1)

	boundBefore, ok := e.Registry.BoundWindow(captured.Applications[0].ID)
	require.True(t, ok)
	require.NotZero(t, boundBefore)

	require.NoError(t, e.DeleteWorkspace("scratch"))

	_, ok = e.Registry.BoundWindow(captured.Applications[0].ID)
	require.False(t, ok)

	_, err = e.Store.Get("scratch")
	require.Error(t, err)
}
