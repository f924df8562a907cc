//go:build windows

package util

import (
	"log/slog"
	"os"
	"slices"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetConsoleWindow = kernel32.NewProc("GetConsoleWindow")
)

// IsRunFromGUI reports whether the bridge was started from Explorer (or any
// parent without a console) rather than a shell.
func IsRunFromGUI() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	hasConsole := hwnd != 0

	parentName := getParentProcessName()
	isCliParent := isCliProcess(parentName)

	slog.Debug("parent process", "name", parentName, "console", hasConsole, "cli", isCliParent)

	if !hasConsole {
		return true
	}

	if isCliParent {
		return false
	}

	return strings.EqualFold(parentName, "explorer.exe")
}

// getParentProcessName walks one process snapshot: first to find our
// parent pid, then to find its executable name.
func getParentProcessName() string {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(snapshot)

	each := func(fn func(pe *windows.ProcessEntry32) bool) {
		var pe windows.ProcessEntry32
		pe.Size = uint32(unsafe.Sizeof(pe))
		for err := windows.Process32First(snapshot, &pe); err == nil; err = windows.Process32Next(snapshot, &pe) {
			if fn(&pe) {
				return
			}
		}
	}

	self := uint32(os.Getpid())
	var parent uint32
	each(func(pe *windows.ProcessEntry32) bool {
		if pe.ProcessID == self {
			parent = pe.ParentProcessID
			return true
		}
		return false
	})
	if parent == 0 {
		return ""
	}

	var name string
	each(func(pe *windows.ProcessEntry32) bool {
		if pe.ProcessID == parent {
			name = windows.UTF16ToString(pe.ExeFile[:])
			return true
		}
		return false
	})
	return name
}

var cliProcesses = []string{
	"cmd.exe",
	"powershell.exe",
	"pwsh.exe",
	"wt.exe",
	"conhost.exe",
	"windowsterminal.exe",
	"bash.exe",
}

func isCliProcess(name string) bool {
	return slices.Contains(cliProcesses, strings.ToLower(name))
}
