//go:build !windows

package panel

func (panel *Window) flashNative(int) {}
