package terminator

import (
	"fmt"
	"strings"
)

// Kind classifies what happened to a single matched process.
type Kind string

const (
	KindTerminated  Kind = "terminated"
	KindForceKilled Kind = "force_killed"
	KindAlreadyGone Kind = "already_gone"
	KindTimeout     Kind = "timeout"
	KindFailed      Kind = "failed"
)

const (
	markSuccess = "✓"
	markFailure = "✗"
)

// Outcome records the result of stopping one process.
type Outcome struct {
	PID  int32
	Kind Kind
	Err  error
}

// Success reports whether the process is considered stopped.
func (o Outcome) Success() bool {
	switch o.Kind {
	case KindTerminated, KindForceKilled, KindAlreadyGone:
		return true
	default:
		return false
	}
}

// Message renders the human readable detail for the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindTerminated:
		return fmt.Sprintf("Process terminated (PID: %d)", o.PID)
	case KindForceKilled:
		return fmt.Sprintf("Process force killed (PID: %d)", o.PID)
	case KindAlreadyGone:
		return fmt.Sprintf("Process already terminated (PID: %d)", o.PID)
	case KindTimeout:
		return fmt.Sprintf("Process did not terminate in time (PID: %d)", o.PID)
	default:
		detail := "unknown error"
		if o.Err != nil {
			detail = o.Err.Error()
		}
		return fmt.Sprintf("Failed to terminate process (PID: %d): %s", o.PID, detail)
	}
}

// Line renders the outcome as a status line prefixed with its mark.
func (o Outcome) Line() string {
	mark := markFailure
	if o.Success() {
		mark = markSuccess
	}
	return mark + " " + o.Message()
}

// Result is the outcome of one invocation. Passthrough always equals the
// request's Passthrough.
type Result struct {
	Status      string
	Passthrough string

	Target     string
	Idle       bool
	Err        error
	Found      int
	Terminated int
	Outcomes   []Outcome
}

// Partial reports whether at least one matched process could not be stopped.
func (r Result) Partial() bool {
	return r.Found > 0 && r.Terminated < r.Found
}

func (r Result) summary() string {
	var b strings.Builder
	switch {
	case r.Found == 0:
		fmt.Fprintf(&b, "No %s processes found.", r.Target)
	case r.Terminated == r.Found:
		fmt.Fprintf(&b, "Successfully terminated %d of %d process(es).", r.Terminated, r.Found)
	default:
		fmt.Fprintf(&b, "Terminated %d of %d process(es). Some failed.", r.Terminated, r.Found)
	}
	for _, o := range r.Outcomes {
		b.WriteByte('\n')
		b.WriteString(o.Line())
	}
	return b.String()
}

func errorResult(target string, err error, passthrough string) Result {
	return Result{
		Status:      "Error: " + err.Error(),
		Passthrough: passthrough,
		Target:      target,
		Err:         err,
	}
}
