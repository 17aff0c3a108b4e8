package windowindex_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/windowindex"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func TestSnapshot_ReflectsBootstrap(t *testing.T) {
	host := desktop.NewFake()
	host.AddWindow(model.WindowInfo{Title: "Notepad", ProcessID: 42})

	idx := windowindex.New(host, nil)
	defer idx.Close()

	snap := idx.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "Notepad", snap[0].Title)
}

func TestOnEvent_CreateUpdateDestroy(t *testing.T) {
	host := desktop.NewFake()
	idx := windowindex.New(host, nil)
	defer idx.Close()

	require.Empty(t, idx.Snapshot())

	handle := host.AddWindow(model.WindowInfo{Title: "App", ProcessID: 7})
	require.Eventually(t, func() bool {
		return len(idx.Snapshot()) == 1
	}, time.Second, time.Millisecond)

	host.UpdateWindow(handle, func(w *model.WindowInfo) { w.Title = "App renamed" })
	require.Eventually(t, func() bool {
		w, ok := idx.Get(handle)
		return ok && w.Title == "App renamed"
	}, time.Second, time.Millisecond)

	host.RemoveWindow(handle)
	require.Eventually(t, func() bool {
		_, ok := idx.Get(handle)
		return !ok
	}, time.Second, time.Millisecond)
}

func TestFind_FiltersByProcessID(t *testing.T) {
	host := desktop.NewFake()
	host.AddWindow(model.WindowInfo{Title: "A", ProcessID: 1})
	host.AddWindow(model.WindowInfo{Title: "B", ProcessID: 2})

	idx := windowindex.New(host, nil)
	defer idx.Close()

	found := idx.Find(func(w model.WindowInfo) bool { return true }, 2)
	require.Len(t, found, 1)
	require.Equal(t, "B", found[0].Title)
}

func TestWaitForWindows_ReturnsOnceCreated(t *testing.T) {
	host := desktop.NewFake()
	idx := windowindex.New(host, nil)
	defer idx.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		host.AddWindow(model.WindowInfo{Title: "Late", ProcessID: 99})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	found := idx.WaitForWindows(ctx, func(w model.WindowInfo) bool { return true }, 99, 10*time.Millisecond)
	require.Len(t, found, 1)
	require.Equal(t, "Late", found[0].Title)
}

func TestWaitForWindows_TimesOut(t *testing.T) {
	host := desktop.NewFake()
	idx := windowindex.New(host, nil)
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	found := idx.WaitForWindows(ctx, func(w model.WindowInfo) bool { return true }, 123, 5*time.Millisecond)
	require.Nil(t, found)
}
