package node

import (
	"fmt"
	goruntime "runtime"

	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/reaper/internal/config"
	"github.com/Paintersrp/reaper/internal/logging"
	"github.com/Paintersrp/reaper/internal/runtime"
	"github.com/Paintersrp/reaper/internal/terminator"
)

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	logger logrus.FieldLogger
	goos   string
	extra  []terminator.Option
}

// WithLogger sets the logger handed to every node's terminator.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *buildOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithGOOS overrides the operating system used to resolve target names.
func WithGOOS(goos string) Option {
	return func(o *buildOptions) {
		if goos != "" {
			o.goos = goos
		}
	}
}

// WithTerminatorOptions appends options to every terminator. They run after
// the defaults, so an observer supplied here replaces metrics recording.
func WithTerminatorOptions(opts ...terminator.Option) Option {
	return func(o *buildOptions) {
		o.extra = append(o.extra, opts...)
	}
}

// Registry holds the configured nodes in declaration order.
type Registry struct {
	order []*Node
	byKey map[string]*Node
}

// Build constructs one node per configured entry, binding each to the table
// registered for its backend.
func Build(cfg *config.Config, tables runtime.Registry, opts ...Option) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	options := buildOptions{logger: logging.Discard(), goos: goruntime.GOOS}
	for _, opt := range opts {
		opt(&options)
	}

	reg := &Registry{byKey: make(map[string]*Node, len(cfg.Nodes))}
	for _, spec := range cfg.Nodes {
		if _, dup := reg.byKey[spec.Name]; dup {
			return nil, fmt.Errorf("node %s: declared twice", spec.Name)
		}
		table, ok := tables[spec.Backend]
		if !ok {
			return nil, fmt.Errorf("node %s: backend %q is not registered", spec.Name, spec.Backend)
		}
		target := terminator.Target{
			Name:         cfg.ResolveTargetName(spec, options.goos),
			GracePeriod:  spec.GracePeriod.Duration,
			PollInterval: cfg.PollInterval.Duration,
		}
		termOpts := []terminator.Option{
			terminator.WithLogger(options.logger.WithField("node", spec.Name)),
			terminator.WithObserver(recordMetrics(spec.Name)),
		}
		termOpts = append(termOpts, options.extra...)
		term := terminator.New(table, target, termOpts...)

		n := &Node{
			def: Definition{
				Name:        spec.Name,
				DisplayName: spec.DisplayName,
				Category:    spec.Category,
				Function:    Function,
				OutputNode:  true,
				Backend:     spec.Backend,
				Target:      term.Target().Name,
				GracePeriod: term.Target().GracePeriod.String(),
				Inputs:      standardInputs(),
				Outputs:     standardOutputs(),
			},
			table: table,
			term:  term,
		}
		reg.order = append(reg.order, n)
		reg.byKey[spec.Name] = n
	}
	return reg, nil
}

// Get returns the node registered under name.
func (r *Registry) Get(name string) (*Node, bool) {
	n, ok := r.byKey[name]
	return n, ok
}

// Default returns the first declared node.
func (r *Registry) Default() *Node {
	if len(r.order) == 0 {
		return nil
	}
	return r.order[0]
}

// Nodes returns the nodes in declaration order.
func (r *Registry) Nodes() []*Node {
	return append([]*Node(nil), r.order...)
}

// Definitions returns every node definition in declaration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, n := range r.order {
		defs = append(defs, n.Definition())
	}
	return defs
}

// DisplayNames maps node names to their display names.
func (r *Registry) DisplayNames() map[string]string {
	names := make(map[string]string, len(r.order))
	for _, n := range r.order {
		names[n.def.Name] = n.def.DisplayName
	}
	return names
}
