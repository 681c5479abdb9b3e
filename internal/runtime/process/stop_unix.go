//go:build !windows

package process

import (
	"context"
	"errors"

	psprocess "github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

func terminate(ctx context.Context, p *psprocess.Process) error {
	return p.SendSignalWithContext(ctx, unix.SIGTERM)
}

func isGone(err error) bool {
	return errors.Is(err, unix.ESRCH)
}

func isDenied(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}
