package display_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/display"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func twoMonitors() []model.MonitorInfo {
	return []model.MonitorInfo{
		{ID: "A", Ordinal: 0, DPI: 96, DPIAwareRect: model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080}},
		{ID: "B", Ordinal: 1, DPI: 96, DPIAwareRect: model.Rect{Left: 1920, Top: 0, Width: 1920, Height: 1080}},
	}
}

func TestResolveMonitor_CenterContainment(t *testing.T) {
	host := desktop.NewFake()
	host.SetMonitors(twoMonitors())
	idx := display.New(host, nil)

	mon, ok := idx.ResolveMonitor(model.Rect{Left: 100, Top: 100, Width: 400, Height: 300})
	require.True(t, ok)
	require.Equal(t, "A", mon.ID)

	mon, ok = idx.ResolveMonitor(model.Rect{Left: 2000, Top: 100, Width: 400, Height: 300})
	require.True(t, ok)
	require.Equal(t, "B", mon.ID)
}

func TestResolveMonitor_FallsBackToIntersectionArea(t *testing.T) {
	host := desktop.NewFake()
	host.SetMonitors(twoMonitors())
	idx := display.New(host, nil)

	// Center sits in neither monitor (window dragged far above both), but
	// most of its area overlaps monitor B.
	rect := model.Rect{Left: 1800, Top: -2000, Width: 2000, Height: 2100}
	mon, ok := idx.ResolveMonitor(rect)
	require.True(t, ok)
	require.Equal(t, "B", mon.ID)
}

func TestResolveMonitor_NoMonitors(t *testing.T) {
	host := desktop.NewFake()
	idx := display.New(host, nil)

	_, ok := idx.ResolveMonitor(model.Rect{Width: 100, Height: 100})
	require.False(t, ok)
}

func TestRefresh_PublishesOnlyOnChange(t *testing.T) {
	host := desktop.NewFake()
	host.SetMonitors(twoMonitors())
	idx := display.New(host, nil)

	var notifications int
	unsub := idx.Subscribe(func(display.ChangeKind) { notifications++ })
	defer unsub()

	idx.Refresh()
	require.Equal(t, 0, notifications, "identical layout should not notify")

	host.SetMonitors([]model.MonitorInfo{twoMonitors()[0]})
	idx.Refresh()
	require.Equal(t, 1, notifications)

	idx.Refresh()
	require.Equal(t, 1, notifications, "second refresh of the same layout should not notify again")
}

func TestByIDAndByOrdinal(t *testing.T) {
	host := desktop.NewFake()
	host.SetMonitors(twoMonitors())
	idx := display.New(host, nil)

	mon, ok := idx.ByID("B")
	require.True(t, ok)
	require.Equal(t, 1, mon.Ordinal)

	mon, ok = idx.ByOrdinal(0)
	require.True(t, ok)
	require.Equal(t, "A", mon.ID)

	_, ok = idx.ByID("missing")
	require.False(t, ok)
}
