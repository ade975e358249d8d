package platform

import (
	"context"
	"os"
	"strconv"
)

func playFile(ctx context.Context, path string, volumePercent int) error {
	// paplay volume is linear with 65536 as 100%.
	paVolume := strconv.Itoa(volumePercent * 65536 / 100)
	return runFirstAvailable(ctx, [][]string{
		{"paplay", "--volume=" + paVolume, path},
		{"pw-play", path},
		{"aplay", "-q", path},
	})
}

func systemBeep(ctx context.Context) error {
	err := runFirstAvailable(ctx, [][]string{
		{"canberra-gtk-play", "--id=bell"},
	})
	if err == nil {
		return nil
	}
	if _, writeErr := os.Stdout.WriteString("\a"); writeErr != nil {
		return err
	}
	return nil
}
