package runtime

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotRunning reports that a process disappeared before or while it was
	// being signalled.
	ErrNotRunning = errors.New("process not running")
	// ErrAccessDenied reports that the caller lacks permission to inspect or
	// signal a process.
	ErrAccessDenied = errors.New("access denied")
)

// Handle is a transient reference to a live process obtained from a Table
// snapshot. Handles are not meant to outlive a single invocation.
type Handle interface {
	// PID returns the numeric process identifier.
	PID() int32

	// Name returns the executable name captured at snapshot time.
	Name() string

	// StartTime returns when the process was created, or the zero time when
	// the backend cannot tell.
	StartTime() time.Time

	// Terminate requests a graceful stop. Implementations return an error
	// wrapping ErrNotRunning when the process is already gone.
	Terminate(ctx context.Context) error

	// Kill stops the process immediately, bypassing cleanup.
	Kill(ctx context.Context) error

	// Running reports whether the process is still alive. Zombies are
	// reported as not running.
	Running(ctx context.Context) (bool, error)
}

// MatchFunc reports whether a process name is of interest.
type MatchFunc func(name string) bool

// Table describes a backend capable of enumerating processes.
type Table interface {
	// Snapshot returns, in table order, every process whose name satisfies
	// match at the time of the call. Entries that vanish, are inaccessible or
	// are zombies are omitted rather than reported as errors. A nil match
	// selects every readable process.
	Snapshot(ctx context.Context, match MatchFunc) ([]Handle, error)
}

// Registry maps backend identifiers to their concrete tables.
type Registry map[string]Table

// Clone returns a shallow copy of the registry, allowing callers to avoid
// accidental mutation of shared maps.
func (r Registry) Clone() Registry {
	dup := make(Registry, len(r))
	for k, v := range r {
		dup[k] = v
	}
	return dup
}
