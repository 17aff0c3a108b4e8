//go:build windows

package desktop

import (
	"runtime"
	"syscall"
	"unsafe"

	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Win event constants the window index subscribes to: foreground change,
// object create/destroy/show/hide, location-change, name-change.
const (
	eventSystemForeground       = 0x0003
	eventObjectCreate           = 0x8000
	eventObjectDestroy          = 0x8001
	eventObjectShow             = 0x8002
	eventObjectHide             = 0x8003
	eventObjectLocationChange   = 0x800B
	eventObjectNameChange       = 0x800C

	winEventOutOfContext   = 0x0000
	winEventSkipOwnProcess = 0x0002
)

// installHooks registers the WinEvent hooks and pumps their message queue on
// a dedicated, OS-thread-locked goroutine: WinEvent callbacks are delivered
// through the hook-installing thread's message queue, so something has to
// keep calling GetMessage/DispatchMessage for the lifetime of the process.
func (h *WindowsHost) installHooks() {
	ready := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		callback := syscall.NewCallback(h.onWinEvent)

		hook1, _, _ := procSetWinEventHook.Call(
			eventSystemForeground, eventSystemForeground, 0, callback, 0, 0,
			winEventOutOfContext|winEventSkipOwnProcess,
		)
		hook2, _, _ := procSetWinEventHook.Call(
			eventObjectCreate, eventObjectNameChange, 0, callback, 0, 0,
			winEventOutOfContext|winEventSkipOwnProcess,
		)

		h.mu.Lock()
		if hook1 != 0 {
			h.hookHandles = append(h.hookHandles, hook1)
		}
		if hook2 != 0 {
			h.hookHandles = append(h.hookHandles, hook2)
		}
		h.mu.Unlock()

		close(ready)

		var m msg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) <= 0 {
				return
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		}
	}()
	<-ready
}

// onWinEvent is the WINEVENTPROC callback. It must not block: it fans the
// event out to every subscriber's sink synchronously, so each sink is
// expected to return quickly (WindowIndex's sink re-queries the one window
// and returns).
func (h *WindowsHost) onWinEvent(hWinEventHook uintptr, event uint32, hwnd uintptr, idObject, idChild int32, idEventThread, dwmsEventTime uint32) uintptr {
	if hwnd == 0 || idObject != 0 /* OBJID_WINDOW */ {
		return 0
	}

	var kind EventKind
	switch event {
	case eventObjectDestroy:
		kind = EventDestroyed
	case eventObjectCreate, eventObjectShow, eventObjectNameChange, eventSystemForeground:
		kind = EventCreated
	case eventObjectLocationChange, eventObjectHide:
		kind = EventUpdated
	default:
		return 0
	}

	h.dispatch(Event{Kind: kind, Handle: model.Handle(hwnd)})
	return 0
}

func (h *WindowsHost) dispatch(evt Event) {
	h.mu.Lock()
	sinks := make([]EventSink, 0, len(h.sinks))
	for _, s := range h.sinks {
		sinks = append(sinks, s)
	}
	h.mu.Unlock()

	for _, sink := range sinks {
		func() {
			// A subscriber exception must never crash the dispatch path;
			// a panicking sink is caught here.
			defer func() { recover() }()
			sink(evt)
		}()
	}
}

// Subscribe registers sink for lifecycle events and returns an unsubscribe
// function.
func (h *WindowsHost) Subscribe(sink EventSink) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextSink
	h.nextSink++
	h.sinks[id] = sink
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.sinks, id)
		h.mu.Unlock()
	}
}

// Close releases the WinEvent hooks. Not part of the Host interface (the
// interface models a process-lifetime capability) but useful for tests that
// construct and discard a WindowsHost.
func (h *WindowsHost) Close() {
	h.mu.Lock()
	hooks := h.hookHandles
	h.hookHandles = nil
	h.mu.Unlock()
	for _, hook := range hooks {
		procUnhookWinEvent.Call(hook)
	}
}
