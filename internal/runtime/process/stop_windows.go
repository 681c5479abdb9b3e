//go:build windows

package process

import (
	"context"
	"errors"

	psprocess "github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/windows"
)

func terminate(ctx context.Context, p *psprocess.Process) error {
	return p.TerminateWithContext(ctx)
}

// OpenProcess reports ERROR_INVALID_PARAMETER for a PID that no longer exists.
func isGone(err error) bool {
	return errors.Is(err, windows.ERROR_INVALID_PARAMETER)
}

func isDenied(err error) bool {
	return errors.Is(err, windows.ERROR_ACCESS_DENIED)
}
