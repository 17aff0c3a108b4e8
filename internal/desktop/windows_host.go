//go:build windows

package desktop

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func init() {
	// Window-management syscalls must run on a consistent thread.
	runtime.LockOSThread()
}

// WindowsHost implements Host against the real Windows desktop.
type WindowsHost struct {
	logger *zap.Logger

	mu        sync.Mutex
	sinks     map[int]EventSink
	nextSink  int
	hookHandles []uintptr
	vdm       *virtualDesktopManager
}

// NewWindowsHost creates a Host backed by Win32/DWM syscalls. It enables
// per-monitor DPI awareness because every placement the Launcher issues has
// to be interpreted in the same DPI context it was captured in.
func NewWindowsHost(logger *zap.Logger) (*WindowsHost, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WindowsHost{
		logger: logger,
		sinks:  make(map[int]EventSink),
		vdm:    sharedVirtualDesktopManager,
	}
	if err := h.enableDPIAwareness(); err != nil {
		logger.Warn("failed to enable per-monitor DPI awareness, falling back to system DPI", zap.Error(err))
	}
	h.installHooks()
	return h, nil
}

func (h *WindowsHost) enableDPIAwareness() error {
	const perMonitorAwareV2 = 2
	if procSetProcessDpiAwareness.Find() == nil {
		ret, _, _ := procSetProcessDpiAwareness.Call(uintptr(perMonitorAwareV2))
		if ret == 0 {
			return nil
		}
	}
	return fmt.Errorf("SetProcessDpiAwareness unavailable")
}

// EnumerateMonitors lists every physical monitor with its DPI and both
// DPI-aware and DPI-unaware rectangles.
func (h *WindowsHost) EnumerateMonitors() ([]model.MonitorInfo, error) {
	var monitors []model.MonitorInfo
	var ordinal int

	cb := syscall.NewCallback(func(hMonitor, hdc, lprcMonitor, lParam uintptr) uintptr {
		var mi monitorInfoEx
		mi.CbSize = uint32(unsafe.Sizeof(mi))
		ret, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi)))
		if ret == 0 {
			ordinal++
			return 1
		}

		dpiX, dpiY, err := h.dpiForMonitor(hMonitor)
		if err != nil {
			dpiX, dpiY = 96, 96
		}
		_ = dpiY

		left, top, width, height := mi.RcMonitor.toModel()
		rect := model.Rect{Left: left, Top: top, Width: width, Height: height}
		unawareRect := rescaleToSystemDPI(rect, dpiX)

		device := utf16ToString(mi.SzDevice[:])
		monitors = append(monitors, model.MonitorInfo{
			ID:             device,
			InstanceID:     fmt.Sprintf("%s#%d", device, hMonitor),
			Ordinal:        ordinal,
			DPI:            dpiX,
			DPIAwareRect:   rect,
			DPIUnawareRect: unawareRect,
		})
		ordinal++
		return 1
	})

	ret, _, _ := procEnumDisplayMonitors.Call(0, 0, cb, 0)
	if ret == 0 && len(monitors) == 0 {
		// Enumeration failures never propagate as an error; an empty list
		// is a valid (if degenerate) answer.
		return []model.MonitorInfo{}, nil
	}
	return monitors, nil
}

// rescaleToSystemDPI approximates the DPI-unaware rectangle a legacy caller
// would observe, scaling from the DPI-aware rect down to 96 DPI.
func rescaleToSystemDPI(rect model.Rect, dpi int) model.Rect {
	if dpi <= 0 {
		dpi = 96
	}
	scale := 96.0 / float64(dpi)
	return model.Rect{
		Left:   int(float64(rect.Left) * scale),
		Top:    int(float64(rect.Top) * scale),
		Width:  int(float64(rect.Width) * scale),
		Height: int(float64(rect.Height) * scale),
	}
}

func (h *WindowsHost) dpiForMonitor(hMonitor uintptr) (dpiX, dpiY int, err error) {
	if procGetDpiForMonitor.Find() != nil {
		return 96, 96, fmt.Errorf("GetDpiForMonitor unavailable")
	}
	var x, y uint32
	hr, _, _ := procGetDpiForMonitor.Call(hMonitor, mdtEffectiveDpi, uintptr(unsafe.Pointer(&x)), uintptr(unsafe.Pointer(&y)))
	if hr != 0 {
		return 96, 96, fmt.Errorf("GetDpiForMonitor failed: hr=%#x", hr)
	}
	return int(x), int(y), nil
}

// EnumerateTopLevelWindows lists every top-level window handle currently
// known to the OS.
func (h *WindowsHost) EnumerateTopLevelWindows() ([]model.Handle, error) {
	var handles []model.Handle
	cb := syscall.NewCallback(func(hwnd, lParam uintptr) uintptr {
		handles = append(handles, model.Handle(hwnd))
		return 1
	})
	ret, _, _ := procEnumWindows.Call(cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows failed")
	}
	return handles, nil
}

// QueryWindow reads every WindowInfo field for handle, resolving the
// effective process path via QueryFullProcessImageNameW.
func (h *WindowsHost) QueryWindow(handle model.Handle) (*model.WindowInfo, error) {
	hwnd := uintptr(handle)
	if ret, _, _ := procIsWindow.Call(hwnd); ret == 0 {
		return nil, fmt.Errorf("not a window: %v", handle)
	}

	info := &model.WindowInfo{Handle: handle}

	if titleLen, _, _ := procGetWindowTextLengthW.Call(hwnd); titleLen > 0 {
		buf := make([]uint16, titleLen+1)
		procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		info.Title = syscall.UTF16ToString(buf)
	}

	classBuf := make([]uint16, 256)
	procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&classBuf[0])), uintptr(len(classBuf)))
	info.ClassName = syscall.UTF16ToString(classBuf)

	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	info.ProcessID = pid

	var rect wRect
	procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rect)))
	left, top, width, height := rect.toModel()
	info.Bounds = model.Rect{Left: left, Top: top, Width: width, Height: height}

	visible, _, _ := procIsWindowVisible.Call(hwnd)
	info.IsVisible = visible != 0

	if path, err := h.processPath(pid); err == nil {
		info.ProcessPath = path
		info.ProcessFileName = filepathBase(path)
		info.ProcessName = strings.TrimSuffix(strings.ToLower(info.ProcessFileName), ".exe")
	}

	if mon, ok := h.monitorForRect(info.Bounds); ok {
		info.MonitorID = mon.ID
		info.MonitorOrdinal = mon.Ordinal
	}

	return info, nil
}

func (h *WindowsHost) monitorForRect(rect model.Rect) (model.MonitorInfo, bool) {
	monitors, err := h.EnumerateMonitors()
	if err != nil || len(monitors) == 0 {
		return model.MonitorInfo{}, false
	}
	cx, cy := rect.Center()
	for _, m := range monitors {
		if m.DPIAwareRect.ContainsPoint(cx, cy) {
			return m, true
		}
	}
	best, bestArea := monitors[0], -1
	for _, m := range monitors {
		area := m.DPIAwareRect.Intersect(rect).Area()
		if area > bestArea {
			best, bestArea = m, area
		}
	}
	return best, true
}

func filepathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '\\' || p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

func (h *WindowsHost) processPath(pid uint32) (string, error) {
	handle, _, _ := procOpenProcess.Call(processQueryLimitedInformation, 0, uintptr(pid))
	if handle == 0 {
		return "", fmt.Errorf("OpenProcess failed for pid %d", pid)
	}
	defer procCloseHandle.Call(handle)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	ret, _, _ := procQueryFullProcessImageNameW.Call(handle, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if ret == 0 {
		return "", fmt.Errorf("QueryFullProcessImageNameW failed for pid %d", pid)
	}
	return syscall.UTF16ToString(buf[:size]), nil
}

// SiblingWindows enumerates top-level windows belonging to pid, for the
// Launcher's minimize-sibling-windows rule.
func (h *WindowsHost) SiblingWindows(pid uint32) ([]model.Handle, error) {
	all, err := h.EnumerateTopLevelWindows()
	if err != nil {
		return nil, err
	}
	var out []model.Handle
	for _, handle := range all {
		var windowPID uint32
		procGetWindowThreadProcessId.Call(uintptr(handle), uintptr(unsafe.Pointer(&windowPID)))
		if windowPID == pid {
			out = append(out, handle)
		}
	}
	return out, nil
}

func (h *WindowsHost) IsWindow(handle model.Handle) bool {
	ret, _, _ := procIsWindow.Call(uintptr(handle))
	return ret != 0
}

func (h *WindowsHost) IsCloaked(handle model.Handle) CloakState {
	var cloaked int32
	hr, _, _ := dwmapi.NewProc("DwmGetWindowAttribute").Call(
		uintptr(handle), dwmwaCloaked, uintptr(unsafe.Pointer(&cloaked)), unsafe.Sizeof(cloaked),
	)
	if hr != 0 {
		return CloakUnknown
	}
	if cloaked != 0 {
		return CloakHidden
	}
	return CloakVisible
}

func (h *WindowsHost) IsOnCurrentVirtualDesktop(handle model.Handle) Tristate {
	return h.vdm.isWindowOnCurrentVirtualDesktop(uintptr(handle))
}

func (h *WindowsHost) HasToolWindowStyle(handle model.Handle) bool {
	exStyle, _, _ := procGetWindowLongPtrW.Call(uintptr(handle), uintptr(int32(gwlExStyle)))
	return exStyle&wsExToolWindow != 0
}

func (h *WindowsHost) CanMinimize(handle model.Handle) bool {
	style, _, _ := procGetWindowLongPtrW.Call(uintptr(handle), uintptr(int32(gwlStyle)))
	return style&wsMinimizeBox != 0
}

func (h *WindowsHost) GetPlacement(handle model.Handle) (Placement, bool) {
	var wp windowPlacement
	wp.Length = uint32(unsafe.Sizeof(wp))
	ret, _, _ := procGetWindowPlacement.Call(uintptr(handle), uintptr(unsafe.Pointer(&wp)))
	if ret == 0 {
		return Placement{}, false
	}
	left, top, width, height := wp.RcNormalPosition.toModel()
	return Placement{
		NormalRect:  model.Rect{Left: left, Top: top, Width: width, Height: height},
		IsMinimized: wp.ShowCmd == swShowMinimized,
		IsMaximized: wp.ShowCmd == swMaximize,
	}, true
}

func (h *WindowsHost) SetPosition(handle model.Handle, rect model.Rect, noActivate, noZOrder bool) bool {
	flags := uintptr(0)
	if noActivate {
		flags |= swpNoActivate
	}
	if noZOrder {
		flags |= swpNoZOrder
	}
	ret, _, _ := procSetWindowPos.Call(
		uintptr(handle), 0,
		uintptr(rect.Left), uintptr(rect.Top), uintptr(rect.Width), uintptr(rect.Height),
		flags,
	)
	return ret != 0
}

func (h *WindowsHost) Show(handle model.Handle, state model.ShowState) bool {
	var cmd uintptr
	switch state {
	case model.ShowMinimized:
		cmd = swMinimize
	case model.ShowMaximized:
		cmd = swShowMaximized()
	default:
		cmd = swRestore
	}
	ret, _, _ := procShowWindow.Call(uintptr(handle), cmd)
	return ret != 0
}

func swShowMaximized() uintptr { return swMaximize }

func (h *WindowsHost) WaitForInputIdle(pid uint32, timeout time.Duration) bool {
	handle, _, _ := procOpenProcess.Call(processQueryLimitedInformation|0x0100 /* SYNCHRONIZE */, 0, uintptr(pid))
	if handle == 0 {
		return false
	}
	defer procCloseHandle.Call(handle)

	ret, _, _ := procWaitForInputIdle.Call(handle, uintptr(timeout.Milliseconds()))
	return ret == 0
}
