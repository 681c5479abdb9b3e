package node

import (
	"context"
	"time"

	"github.com/Paintersrp/reaper/internal/metrics"
	"github.com/Paintersrp/reaper/internal/runtime"
	"github.com/Paintersrp/reaper/internal/terminator"
)

// Node binds a definition to the terminator that implements it.
type Node struct {
	def   Definition
	table runtime.Table
	term  *terminator.Terminator
}

// Definition returns the node's static metadata.
func (n *Node) Definition() Definition {
	return n.def
}

// Name returns the node identifier.
func (n *Node) Name() string {
	return n.def.Name
}

// Target returns the resolved termination target.
func (n *Node) Target() terminator.Target {
	return n.term.Target()
}

// Invoke runs the node. Failures are reported in Outputs.Status.
func (n *Node) Invoke(ctx context.Context, in Inputs) Outputs {
	res := n.Execute(ctx, in)
	return Outputs{Status: res.Status, OutputText: res.Passthrough}
}

// Execute runs the node and returns the detailed result.
func (n *Node) Execute(ctx context.Context, in Inputs) terminator.Result {
	return n.term.Terminate(ctx, terminator.Request{
		Trigger:     in.Trigger,
		Force:       bool(in.ForceKill),
		Passthrough: in.Text,
	})
}

// Matches lists the processes an invocation would signal right now without
// signalling them.
func (n *Node) Matches(ctx context.Context) ([]runtime.Handle, error) {
	return n.table.Snapshot(ctx, n.Target().Matches)
}

// Outcome classifies a result for metrics and reporting.
func Outcome(res terminator.Result) string {
	switch {
	case res.Idle:
		return metrics.OutcomeIdle
	case res.Err != nil:
		return metrics.OutcomeError
	case res.Found == 0:
		return metrics.OutcomeNotFound
	case res.Partial():
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeSuccess
	}
}

func recordMetrics(name string) terminator.Observer {
	return func(res terminator.Result, elapsed time.Duration) {
		metrics.RecordInvocation(name, Outcome(res))
		if res.Idle {
			return
		}
		for _, o := range res.Outcomes {
			metrics.RecordProcess(name, string(o.Kind))
		}
		metrics.ObserveTermination(name, elapsed)
	}
}
