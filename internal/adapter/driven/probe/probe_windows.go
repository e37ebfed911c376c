//go:build windows

// Package probe implements the WindowProbe port against the OS window system.
package probe

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/shirou/gopsutil/process"
	"golang.org/x/sys/windows"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WindowProbe = (*Probe)(nil)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow    = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW         = user32.NewProc("GetWindowTextW")
	procGetWindowThreadProcess = user32.NewProc("GetWindowThreadProcessId")
)

// Probe samples the focused top-level window via the Win32 API. The window
// handle yields the title directly; the owning process name is resolved
// through the process table by PID.
type Probe struct{}

// New creates a window probe for the current platform.
func New() *Probe {
	return &Probe{}
}

// Sample captures the focused window's process name and title. It returns
// driven.ErrNoForegroundWindow when no window has focus and a wrapped error
// when the process owning the window cannot be inspected. Both are transient;
// the caller skips the tick.
func (p *Probe) Sample(ctx context.Context) (model.Sample, error) {
	if err := ctx.Err(); err != nil {
		return model.Sample{}, err
	}

	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return model.Sample{}, driven.ErrNoForegroundWindow
	}

	title := windowText(hwnd)

	var pid uint32
	procGetWindowThreadProcess.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return model.Sample{}, fmt.Errorf("resolve window owner: no pid for hwnd %#x", hwnd)
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return model.Sample{}, fmt.Errorf("open process %d: %w", pid, err)
	}

	name, err := proc.Name()
	if err != nil {
		return model.Sample{}, fmt.Errorf("process name %d: %w", pid, err)
	}

	return model.Sample{
		ProcessName: name,
		WindowTitle: title,
	}, nil
}

// windowText reads the window title, truncated at 512 UTF-16 code units.
func windowText(hwnd uintptr) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}
