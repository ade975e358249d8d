//go:build windows

package panel

import (
	"syscall"
	"unsafe"

	"fyne.io/fyne/v2/driver"
)

const (
	flashwAll       = 0x00000003
	flashwTimerNoFG = 0x0000000C
)

var (
	user32DLL         = syscall.NewLazyDLL("user32.dll")
	procFlashWindowEx = user32DLL.NewProc("FlashWindowEx")
)

type flashWInfo struct {
	cbSize    uint32
	hwnd      uintptr
	dwFlags   uint32
	uCount    uint32
	dwTimeout uint32
}

// flashNative flashes the taskbar button until the window is focused.
func (panel *Window) flashNative(count int) {
	nativeWindow, ok := panel.window.(driver.NativeWindow)
	if !ok {
		return
	}

	nativeWindow.RunNative(func(context any) {
		var hwnd uintptr
		switch value := context.(type) {
		case driver.WindowsWindowContext:
			hwnd = value.HWND
		case *driver.WindowsWindowContext:
			hwnd = value.HWND
		default:
			return
		}
		if hwnd == 0 {
			return
		}

		info := flashWInfo{
			hwnd:    hwnd,
			dwFlags: flashwAll | flashwTimerNoFG,
			uCount:  uint32(count * 3),
		}
		info.cbSize = uint32(unsafe.Sizeof(info))
		procFlashWindowEx.Call(uintptr(unsafe.Pointer(&info)))
	})
}
