//go:build windows

package desktop

import (
	"golang.org/x/sys/windows"
)

// DLL handles and procedures, extended with the monitor-enumeration, DPI,
// event-hook, process-snapshot and activation procedures the window index
// and launcher need.
var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	dwmapi   = windows.NewLazySystemDLL("dwmapi.dll")
	shcore   = windows.NewLazySystemDLL("shcore.dll")
	shell32  = windows.NewLazySystemDLL("shell32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsIconic                 = user32.NewProc("IsIconic")
	procIsZoomed                 = user32.NewProc("IsZoomed")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procGetWindowPlacement       = user32.NewProc("GetWindowPlacement")
	procSetWindowPlacement       = user32.NewProc("SetWindowPlacement")
	procGetWindowLongPtrW        = user32.NewProc("GetWindowLongPtrW")
	procEnumDisplayMonitors      = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW          = user32.NewProc("GetMonitorInfoW")
	procSetWinEventHook          = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent           = user32.NewProc("UnhookWinEvent")
	procGetMessageW              = user32.NewProc("GetMessageW")
	procTranslateMessage         = user32.NewProc("TranslateMessage")
	procDispatchMessageW         = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW       = user32.NewProc("PostThreadMessageW")
	procSetProcessDpiAwareness   = shcore.NewProc("SetProcessDpiAwareness")
	procGetDpiForMonitor         = shcore.NewProc("GetDpiForMonitor")

	procOpenProcess               = kernel32.NewProc("OpenProcess")
	procCloseHandle                = kernel32.NewProc("CloseHandle")
	procQueryFullProcessImageNameW = kernel32.NewProc("QueryFullProcessImageNameW")
	procCreateToolhelp32Snapshot   = kernel32.NewProc("CreateToolhelp32Snapshot")
	procProcess32FirstW            = kernel32.NewProc("Process32FirstW")
	procProcess32NextW             = kernel32.NewProc("Process32NextW")
	procWaitForInputIdle           = user32.NewProc("WaitForInputIdle")
	procCreateProcessW             = kernel32.NewProc("CreateProcessW")

	procShellExecuteExW = shell32.NewProc("ShellExecuteExW")
)

const (
	swHide          = 0
	swShowNormal    = 1
	swShowMinimized = 2
	swMaximize      = 3
	swShow          = 5
	swMinimize      = 6
	swRestore       = 9

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010

	gwlExStyle = -20
	gwlStyle   = -16

	wsExToolWindow = 0x00000080
	wsMinimizeBox  = 0x00020000

	processQueryLimitedInformation = 0x1000

	dwmwaCloaked = 14

	mdtEffectiveDpi = 0

	th32csSnapProcess = 0x00000002

	seeMaskNoCloseProcess = 0x00000040
	sweShow               = 5
)

type wRect struct {
	Left, Top, Right, Bottom int32
}

func (r wRect) toModel() (left, top, width, height int) {
	return int(r.Left), int(r.Top), int(r.Right - r.Left), int(r.Bottom - r.Top)
}

type wPoint struct {
	X, Y int32
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      wPoint
}

const wmQuit = 0x0012

type windowPlacement struct {
	Length           uint32
	Flags            uint32
	ShowCmd          uint32
	PtMinPosition    wPoint
	PtMaxPosition    wPoint
	RcNormalPosition wRect
}

type monitorInfoEx struct {
	CbSize    uint32
	RcMonitor wRect
	RcWork    wRect
	DwFlags   uint32
	SzDevice  [32]uint16
}

type processEntry32 struct {
	Size              uint32
	CntUsage          uint32
	ProcessID         uint32
	DefaultHeapID     uintptr
	ModuleID          uint32
	CntThreads        uint32
	ParentProcessID   uint32
	PriClassBase      int32
	Flags             uint32
	ExeFile           [windows.MAX_PATH]uint16
}

type startupInfoW struct {
	Cb              uint32
	Reserved1       *uint16
	Desktop         *uint16
	Title           *uint16
	X, Y            uint32
	XSize, YSize    uint32
	XCountChars     uint32
	YCountChars     uint32
	FillAttribute   uint32
	Flags           uint32
	ShowWindow      uint16
	Reserved2       uint16
	Reserved3       *byte
	StdInput        windows.Handle
	StdOutput       windows.Handle
	StdError        windows.Handle
}

type processInformation struct {
	Process   windows.Handle
	Thread    windows.Handle
	ProcessID uint32
	ThreadID  uint32
}

type shellExecuteInfoW struct {
	Size         uint32
	Mask         uint32
	Hwnd         uintptr
	Verb         *uint16
	File         *uint16
	Parameters   *uint16
	Directory    *uint16
	Show         int32
	HInstApp     uintptr
	IDList       uintptr
	ClassName    *uint16
	HkeyClass    uintptr
	HotKey       uint32
	HIconOrMon   uintptr
	Process      windows.Handle
}

func utf16PtrOrNil(s string) *uint16 {
	if s == "" {
		return nil
	}
	p, err := windows.UTF16PtrFromString(s)
	if err != nil {
		return nil
	}
	return p
}

func utf16ToString(buf []uint16) string {
	for i, c := range buf {
		if c == 0 {
			return windows.UTF16ToString(buf[:i])
		}
	}
	return windows.UTF16ToString(buf)
}
