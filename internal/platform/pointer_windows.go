package platform

import (
	"fmt"
	"unsafe"

	"autotimer/internal/core/activity"
)

var procGetCursorPos = user32.NewProc("GetCursorPos")

type cursorPointerSource struct{}

type winPoint struct {
	x int32
	y int32
}

func newPointerSource() activity.PointerSource {
	return cursorPointerSource{}
}

func (cursorPointerSource) CursorPosition() (activity.Point, error) {
	var pt winPoint
	result, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if result == 0 {
		return activity.Point{}, fmt.Errorf("get cursor pos: %w", err)
	}
	return activity.Point{X: int(pt.x), Y: int(pt.y)}, nil
}
