package api

import (
	stdcontext "context"
	"fmt"
	"time"

	"github.com/Paintersrp/reaper/internal/node"
)

// NodeController serves Controller requests from a node registry.
type NodeController struct {
	nodes *node.Registry
	now   func() time.Time
}

// NewNodeController wraps reg.
func NewNodeController(reg *node.Registry) *NodeController {
	if reg == nil {
		return nil
	}
	return &NodeController{nodes: reg, now: time.Now}
}

// Nodes lists every node definition in declaration order.
func (c *NodeController) Nodes(stdcontext.Context) ([]node.Definition, error) {
	return c.nodes.Definitions(), nil
}

// Node returns the definition of a single node.
func (c *NodeController) Node(_ stdcontext.Context, name string) (*node.Definition, error) {
	n, ok := c.nodes.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	def := n.Definition()
	return &def, nil
}

// Invoke runs the named node. Termination failures are part of the result;
// only lookup and cancellation problems are returned as errors.
func (c *NodeController) Invoke(ctx stdcontext.Context, name string, in node.Inputs) (*InvokeResult, error) {
	n, ok := c.nodes.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := c.now()
	res := n.Execute(ctx, in)
	finished := c.now()

	processes := make([]ProcessReport, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		processes = append(processes, ProcessReport{
			PID:     o.PID,
			Result:  string(o.Kind),
			Success: o.Success(),
			Message: o.Message(),
		})
	}
	return &InvokeResult{
		Outputs: node.Outputs{Status: res.Status, OutputText: res.Passthrough},
		Details: InvokeDetails{
			Node:        name,
			Target:      n.Target().Name,
			Outcome:     node.Outcome(res),
			Found:       res.Found,
			Terminated:  res.Terminated,
			Processes:   processes,
			Duration:    finished.Sub(started).String(),
			CompletedAt: finished.UTC(),
		},
	}, nil
}
