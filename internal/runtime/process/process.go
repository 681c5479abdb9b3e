package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	psprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/Paintersrp/reaper/internal/runtime"
)

// Name is the backend identifier used in configuration.
const Name = "process"

func init() {
	runtime.Register(Name, New)
}

type table struct{}

// New constructs a table over the host's process list.
func New() runtime.Table {
	return &table{}
}

func (t *table) Snapshot(ctx context.Context, match runtime.MatchFunc) ([]runtime.Handle, error) {
	procs, err := psprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var handles []runtime.Handle
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Gone, inaccessible or otherwise unreadable.
			continue
		}
		if match != nil && !match(name) {
			continue
		}
		if isZombie(ctx, p) {
			continue
		}
		h := &handle{proc: p, name: name}
		// Caches the creation time so IsRunning can detect PID reuse after
		// the process exits.
		if created, err := p.CreateTimeWithContext(ctx); err == nil {
			h.started = time.UnixMilli(created)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

type handle struct {
	proc    *psprocess.Process
	name    string
	started time.Time
}

func (h *handle) PID() int32 {
	return h.proc.Pid
}

func (h *handle) Name() string {
	return h.name
}

func (h *handle) StartTime() time.Time {
	return h.started
}

func (h *handle) Terminate(ctx context.Context) error {
	if err := terminate(ctx, h.proc); err != nil {
		return fmt.Errorf("terminate pid %d: %w", h.proc.Pid, classify(err))
	}
	return nil
}

func (h *handle) Kill(ctx context.Context) error {
	if err := h.proc.KillWithContext(ctx); err != nil {
		return fmt.Errorf("kill pid %d: %w", h.proc.Pid, classify(err))
	}
	return nil
}

func (h *handle) Running(ctx context.Context) (bool, error) {
	running, err := h.proc.IsRunningWithContext(ctx)
	if err != nil {
		if exists, existsErr := psprocess.PidExistsWithContext(ctx, h.proc.Pid); existsErr == nil && !exists {
			return false, nil
		}
		if errors.Is(classify(err), runtime.ErrNotRunning) {
			return false, nil
		}
		return false, fmt.Errorf("inspect pid %d: %w", h.proc.Pid, classify(err))
	}
	if !running {
		return false, nil
	}
	return !isZombie(ctx, h.proc), nil
}

func isZombie(ctx context.Context, p *psprocess.Process) bool {
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	return slices.Contains(status, psprocess.Zombie)
}

// classify maps backend specific errors onto the runtime sentinels while
// preserving the original message.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, runtime.ErrNotRunning), errors.Is(err, runtime.ErrAccessDenied):
		return err
	case errors.Is(err, psprocess.ErrorProcessNotRunning), errors.Is(err, os.ErrProcessDone), isGone(err):
		return fmt.Errorf("%w: %v", runtime.ErrNotRunning, err)
	case errors.Is(err, psprocess.ErrorNotPermitted), errors.Is(err, os.ErrPermission), isDenied(err):
		return fmt.Errorf("%w: %v", runtime.ErrAccessDenied, err)
	default:
		return err
	}
}
