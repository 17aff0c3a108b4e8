//go:build windows

package desktop

import (
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// virtualDesktopManager wraps the public IVirtualDesktopManager COM
// interface (CLSID_VirtualDesktopManager / IID_IVirtualDesktopManager),
// documented since Windows 10, to answer IsOnCurrentVirtualDesktop. Any
// failure along the way — COM not initialized, interface unavailable,
// per-call error — degrades to Unknown rather than panicking.
type virtualDesktopManager struct {
	mu   sync.Mutex
	impl uintptr // IVirtualDesktopManager*
	ok   bool
	init bool
}

var (
	clsidVirtualDesktopManager = windows.GUID{
		Data1: 0xaa509086, Data2: 0x5ca9, Data3: 0x4c25,
		Data4: [8]byte{0x8f, 0x95, 0x58, 0x9d, 0x3c, 0x07, 0xb4, 0x8a},
	}
	iidVirtualDesktopManager = windows.GUID{
		Data1: 0xa5cd92ff, Data2: 0x29be, Data3: 0x454c,
		Data4: [8]byte{0x8d, 0x04, 0xd8, 0x28, 0x79, 0xfb, 0x3f, 0x1b},
	}
)

func (v *virtualDesktopManager) ensure() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.init {
		return v.ok
	}
	v.init = true

	const coinitApartmentThreaded = 0x2
	// Ignore the result: RPC_E_CHANGED_MODE (already initialized with a
	// different concurrency model by this process) and S_FALSE (already
	// initialized on this thread) are both fine to proceed past.
	windows.CoInitializeEx(0, coinitApartmentThreaded)

	var unk *uint64 // opaque pointer-to-vtable-pointer for the created instance
	hr, _, _ := procCoCreateInstance.Call(
		uintptr(unsafe.Pointer(&clsidVirtualDesktopManager)),
		0,
		uintptr(clsctxInprocServer|clsctxLocalServer),
		uintptr(unsafe.Pointer(&iidVirtualDesktopManager)),
		uintptr(unsafe.Pointer(&unk)),
	)
	if int32(hr) < 0 || unk == nil {
		return false
	}

	v.impl = uintptr(unsafe.Pointer(unk))
	v.ok = true
	return true
}

// isWindowOnCurrentVirtualDesktop calls vtable slot 3:
// HRESULT IsWindowOnCurrentVirtualDesktop(HWND topLevelWindow, BOOL *onCurrentDesktop)
func (v *virtualDesktopManager) isWindowOnCurrentVirtualDesktop(hwnd uintptr) Tristate {
	if !v.ensure() {
		return Unknown
	}

	v.mu.Lock()
	impl := v.impl
	v.mu.Unlock()
	if impl == 0 {
		return Unknown
	}

	vtbl := *(*uintptr)(unsafe.Pointer(impl))
	proc := *(*uintptr)(unsafe.Pointer(vtbl + 3*unsafe.Sizeof(uintptr(0))))

	var onCurrent int32
	hr, _, _ := syscall.SyscallN(proc, impl, hwnd, uintptr(unsafe.Pointer(&onCurrent)))
	if int32(hr) < 0 {
		return Unknown
	}
	if onCurrent != 0 {
		return Yes
	}
	return No
}

const (
	clsctxInprocServer = 0x1
	clsctxLocalServer  = 0x4
)

var (
	ole32              = windows.NewLazySystemDLL("ole32.dll")
	procCoCreateInstance = ole32.NewProc("CoCreateInstance")
)

var sharedVirtualDesktopManager = &virtualDesktopManager{}
