package platform

import (
	"context"
	"fmt"
	"strings"
)

var procMessageBeep = user32.NewProc("MessageBeep")

const mbIconExclamation = 0x00000030

func playFile(ctx context.Context, path string, _ int) error {
	script := fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", strings.ReplaceAll(path, "'", "''"))
	return runFirstAvailable(ctx, [][]string{
		{"powershell", "-NoProfile", "-NonInteractive", "-Command", script},
	})
}

func systemBeep(context.Context) error {
	if err := procMessageBeep.Find(); err != nil {
		return fmt.Errorf("MessageBeep: %w", err)
	}
	ok, _, callErr := procMessageBeep.Call(mbIconExclamation)
	if ok == 0 {
		return fmt.Errorf("MessageBeep: %w", callErr)
	}
	return nil
}
