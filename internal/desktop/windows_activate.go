//go:build windows

package desktop

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ActivateByAUMID launches a packaged/activatable app by its shell AUMID.
// Real workspace tools (including the PowerToys-family tool this spec's
// original_source traces to) use the documented "shell:AppsFolder\<AUMID>"
// ShellExecute idiom rather than the COM IApplicationActivationManager
// interface directly, because it's a stable public surface that also
// respects any command-line arguments appended after the AUMID.
func (h *WindowsHost) ActivateByAUMID(aumid, args string) (pid uint32, err error) {
	if aumid == "" {
		return 0, fmt.Errorf("empty aumid")
	}
	target := "shell:AppsFolder\\" + aumid
	return h.shellExecute(target, args)
}

// LaunchPackage activates a packaged app by its package full name via the
// same shell folder idiom. Only the exact full name is tried; no fallback
// to the package family name is attempted.
func (h *WindowsHost) LaunchPackage(fullName string) (bool, error) {
	if fullName == "" {
		return false, fmt.Errorf("empty package full name")
	}
	_, err := h.shellExecute("shell:AppsFolder\\"+fullName, "")
	return err == nil, err
}

func (h *WindowsHost) shellExecute(file, args string) (pid uint32, err error) {
	var info shellExecuteInfoW
	info.Size = uint32(unsafe.Sizeof(info))
	info.Mask = seeMaskNoCloseProcess
	info.Verb = utf16PtrOrNil("open")
	info.File = utf16PtrOrNil(file)
	info.Parameters = utf16PtrOrNil(args)
	info.Show = sweShow

	ret, _, _ := procShellExecuteExW.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0, fmt.Errorf("ShellExecuteExW failed for %q", file)
	}
	if info.Process != 0 {
		defer procCloseHandle.Call(uintptr(info.Process))
		pid = windows.GetProcessId(windows.Handle(info.Process))
	}
	return pid, nil
}

// StartProcess starts a process from a path: shell-execute when the path is
// a shell: URI or not a regular file, the runas verb when elevation was
// requested and is permitted, and plain CreateProcess otherwise so the
// working directory and argument string are passed exactly as configured.
func (h *WindowsHost) StartProcess(opts StartProcessOptions) (pid uint32, err error) {
	useShell := opts.ShellExecute || strings.HasPrefix(opts.Path, "shell:") || !isRegularFile(opts.Path)

	if useShell || opts.Runas {
		var info shellExecuteInfoW
		info.Size = uint32(unsafe.Sizeof(info))
		info.Mask = seeMaskNoCloseProcess
		if opts.Runas {
			info.Verb = utf16PtrOrNil("runas")
		} else {
			info.Verb = utf16PtrOrNil("open")
		}
		info.File = utf16PtrOrNil(opts.Path)
		info.Parameters = utf16PtrOrNil(opts.Args)
		info.Directory = utf16PtrOrNil(opts.WorkingDirectory)
		info.Show = sweShow

		ret, _, _ := procShellExecuteExW.Call(uintptr(unsafe.Pointer(&info)))
		if ret == 0 {
			return 0, fmt.Errorf("ShellExecuteExW failed for %q", opts.Path)
		}
		if info.Process != 0 {
			defer procCloseHandle.Call(uintptr(info.Process))
			pid = windows.GetProcessId(windows.Handle(info.Process))
		}
		return pid, nil
	}

	cmdLine := opts.Path
	if opts.Args != "" {
		cmdLine = opts.Path + " " + opts.Args
	}
	cmdLinePtr, convErr := windows.UTF16PtrFromString(cmdLine)
	if convErr != nil {
		return 0, convErr
	}

	var si startupInfoW
	si.Cb = uint32(unsafe.Sizeof(si))
	var pi processInformation

	ret, _, lastErr := procCreateProcessW.Call(
		0,
		uintptr(unsafe.Pointer(cmdLinePtr)),
		0, 0, 0, 0, 0,
		uintptr(unsafe.Pointer(utf16PtrOrNil(opts.WorkingDirectory))),
		uintptr(unsafe.Pointer(&si)),
		uintptr(unsafe.Pointer(&pi)),
	)
	if ret == 0 {
		return 0, fmt.Errorf("CreateProcessW failed for %q: %v", opts.Path, lastErr)
	}
	defer procCloseHandle.Call(uintptr(pi.Process))
	defer procCloseHandle.Call(uintptr(pi.Thread))

	return pi.ProcessID, nil
}

func isRegularFile(path string) bool {
	attrs, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	const invalidFileAttributes = 0xFFFFFFFF
	const fileAttributeDirectory = 0x10
	ret, _, _ := procGetFileAttributesW.Call(uintptr(unsafe.Pointer(attrs)))
	if uint32(ret) == invalidFileAttributes {
		return false
	}
	return uint32(ret)&fileAttributeDirectory == 0
}

var procGetFileAttributesW = kernel32.NewProc("GetFileAttributesW")
