// Package terminator finds processes by executable name and stops them.
//
// An invocation takes a snapshot of matching processes first and only then
// signals them, one at a time, so the reported count reflects a single point
// in time. Every failure is folded into the returned status text; callers
// always receive a well-formed Result.
package terminator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/reaper/internal/runtime"
)

const (
	// DefaultGracePeriod bounds the wait after a graceful termination request.
	DefaultGracePeriod = 5 * time.Second
	// DefaultPollInterval is how often a signalled process is checked for exit.
	DefaultPollInterval = 100 * time.Millisecond

	// StatusIdle is reported when the trigger input is false.
	StatusIdle = "Idle"
)

// Target identifies the processes to stop and how long to wait for them.
type Target struct {
	Name         string
	GracePeriod  time.Duration
	PollInterval time.Duration
}

func (t Target) withDefaults() Target {
	if t.GracePeriod <= 0 {
		t.GracePeriod = DefaultGracePeriod
	}
	if t.PollInterval <= 0 {
		t.PollInterval = DefaultPollInterval
	}
	if t.PollInterval > t.GracePeriod {
		t.PollInterval = t.GracePeriod
	}
	return t
}

// Matches reports whether name equals the target name, ignoring case.
func (t Target) Matches(name string) bool {
	return strings.EqualFold(name, t.Name)
}

// Request carries the per-invocation inputs.
type Request struct {
	Trigger     bool
	Force       bool
	Passthrough string
}

// Observer receives the result of every invocation, including idle ones.
type Observer func(Result, time.Duration)

// Option customises a Terminator.
type Option func(*Terminator)

// WithLogger routes diagnostic output to the supplied logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Terminator) {
		if logger != nil {
			t.log = logger
		}
	}
}

// WithObserver registers a callback invoked once per Terminate call.
func WithObserver(obs Observer) Option {
	return func(t *Terminator) {
		t.observer = obs
	}
}

// WithClock overrides the time source used for grace period accounting.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(t *Terminator) {
		if now != nil {
			t.now = now
		}
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// Terminator stops every process in a table whose name matches its target.
type Terminator struct {
	table    runtime.Table
	target   Target
	log      logrus.FieldLogger
	observer Observer
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// New constructs a Terminator over the provided table.
func New(table runtime.Table, target Target, opts ...Option) *Terminator {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	t := &Terminator{
		table:  table,
		target: target.withDefaults(),
		log:    discard,
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.WithField("target", t.target.Name)
	return t
}

// Target returns the resolved target specification.
func (t *Terminator) Target() Target {
	return t.target
}

// Terminate runs one invocation. It never panics and never returns an error:
// failures are reported through Result.Status.
func (t *Terminator) Terminate(ctx context.Context, req Request) (res Result) {
	started := t.now()
	defer func() {
		if r := recover(); r != nil {
			t.log.WithField("panic", r).Error("termination aborted")
			res = errorResult(t.target.Name, fmt.Errorf("%v", r), req.Passthrough)
		}
		if t.observer != nil {
			t.observer(res, t.now().Sub(started))
		}
	}()

	if !req.Trigger {
		return Result{Status: StatusIdle, Passthrough: req.Passthrough, Idle: true}
	}
	if t.table == nil {
		return errorResult(t.target.Name, errors.New("no process table configured"), req.Passthrough)
	}

	handles, err := t.table.Snapshot(ctx, t.target.Matches)
	if err != nil {
		t.log.WithError(err).Error("process enumeration failed")
		return errorResult(t.target.Name, err, req.Passthrough)
	}
	t.log.WithField("found", len(handles)).Debug("process snapshot taken")

	res = Result{Target: t.target.Name, Found: len(handles), Passthrough: req.Passthrough}
	for _, h := range handles {
		outcome := t.stop(ctx, h, req.Force)
		if outcome.Success() {
			res.Terminated++
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}
	res.Status = res.summary()
	return res
}

// Run is a convenience wrapper matching the node's positional contract for
// callers that choose the target name per call.
func Run(ctx context.Context, table runtime.Table, targetName string, trigger, force bool, passthrough string) (string, string) {
	res := New(table, Target{Name: targetName}).Terminate(ctx, Request{
		Trigger:     trigger,
		Force:       force,
		Passthrough: passthrough,
	})
	return res.Status, res.Passthrough
}

func (t *Terminator) stop(ctx context.Context, h runtime.Handle, force bool) Outcome {
	pid := h.PID()
	log := t.log.WithField("pid", pid)

	if err := ctx.Err(); err != nil {
		return Outcome{PID: pid, Kind: KindFailed, Err: err}
	}
	outcome, err := t.terminate(ctx, h, force)
	if err != nil {
		outcome = Outcome{PID: pid, Kind: KindFailed, Err: err}
	}
	log.WithField("result", outcome.Kind).Info(outcome.Message())
	return outcome
}

func (t *Terminator) terminate(ctx context.Context, h runtime.Handle, force bool) (Outcome, error) {
	pid := h.PID()
	if err := h.Terminate(ctx); err != nil {
		if errors.Is(err, runtime.ErrNotRunning) {
			return Outcome{PID: pid, Kind: KindAlreadyGone}, nil
		}
		return Outcome{}, err
	}

	exited, err := t.waitExit(ctx, h)
	if err != nil {
		if errors.Is(err, runtime.ErrNotRunning) {
			return Outcome{PID: pid, Kind: KindAlreadyGone}, nil
		}
		return Outcome{}, err
	}
	if exited {
		return Outcome{PID: pid, Kind: KindTerminated}, nil
	}
	if !force {
		return Outcome{PID: pid, Kind: KindTimeout}, nil
	}

	if err := h.Kill(ctx); err != nil {
		if errors.Is(err, runtime.ErrNotRunning) {
			return Outcome{PID: pid, Kind: KindTerminated}, nil
		}
		return Outcome{}, err
	}
	return Outcome{PID: pid, Kind: KindForceKilled}, nil
}

// waitExit polls until the process exits or the grace period elapses. An
// error wrapping runtime.ErrNotRunning means the process vanished underneath.
func (t *Terminator) waitExit(ctx context.Context, h runtime.Handle) (bool, error) {
	deadline := t.now().Add(t.target.GracePeriod)
	for {
		running, err := h.Running(ctx)
		if err != nil {
			return false, err
		}
		if !running {
			return true, nil
		}
		remaining := deadline.Sub(t.now())
		if remaining <= 0 {
			return false, nil
		}
		if err := t.sleep(ctx, min(remaining, t.target.PollInterval)); err != nil {
			return false, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
