package platform

import (
	"context"
	"fmt"
)

func playFile(ctx context.Context, path string, volumePercent int) error {
	return runFirstAvailable(ctx, [][]string{
		{"afplay", "-v", fmt.Sprintf("%.2f", float64(volumePercent)/100), path},
	})
}

func systemBeep(ctx context.Context) error {
	return runFirstAvailable(ctx, [][]string{
		{"osascript", "-e", "beep"},
	})
}
