package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Invocation outcomes.
const (
	OutcomeIdle     = "idle"
	OutcomeNotFound = "not_found"
	OutcomeSuccess  = "success"
	OutcomePartial  = "partial"
	OutcomeError    = "error"
)

var (
	registry = prometheus.NewRegistry()

	invocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reaper",
		Name:      "invocations_total",
		Help:      "Total node invocations by outcome.",
	}, []string{"node", "outcome"})

	processes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reaper",
		Name:      "processes_total",
		Help:      "Matched processes by termination result.",
	}, []string{"node", "result"})

	terminationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reaper",
		Name:      "termination_seconds",
		Help:      "Wall time of triggered invocations in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"node"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reaper",
		Name:      "build_info",
		Help:      "Build metadata for the running reaper binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(invocations, processes, terminationLatency, buildInfo)
}

// Registry returns the Prometheus registry containing all reaper metrics.
func Registry() *prometheus.Registry {
	return registry
}

// RecordInvocation counts one invocation of node with the given outcome.
func RecordInvocation(node, outcome string) {
	if node == "" || outcome == "" {
		return
	}
	invocations.WithLabelValues(node, outcome).Inc()
}

// RecordProcess counts one matched process and its termination result.
func RecordProcess(node, result string) {
	if node == "" || result == "" {
		return
	}
	processes.WithLabelValues(node, result).Inc()
}

// ObserveTermination records how long a triggered invocation took.
func ObserveTermination(node string, d time.Duration) {
	label := node
	if label == "" {
		label = "unknown"
	}
	terminationLatency.WithLabelValues(label).Observe(d.Seconds())
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}

// ResetNode clears every series recorded for a node.
func ResetNode(node string) {
	if node == "" {
		return
	}
	invocations.DeletePartialMatch(prometheus.Labels{"node": node})
	processes.DeletePartialMatch(prometheus.Labels{"node": node})
	terminationLatency.DeleteLabelValues(node)
}
