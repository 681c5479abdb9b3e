package node

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Paintersrp/reaper/internal/config"
	"github.com/Paintersrp/reaper/internal/metrics"
	"github.com/Paintersrp/reaper/internal/runtime"
	"github.com/Paintersrp/reaper/internal/terminator"
)

type stubHandle struct {
	pid  int32
	name string

	mu      sync.Mutex
	stopped bool
}

func (h *stubHandle) PID() int32           { return h.pid }
func (h *stubHandle) Name() string         { return h.name }
func (h *stubHandle) StartTime() time.Time { return time.Time{} }

func (h *stubHandle) Terminate(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	return nil
}

func (h *stubHandle) Kill(context.Context) error { return h.Terminate(context.Background()) }

func (h *stubHandle) Running(context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.stopped, nil
}

type stubTable struct {
	handles []*stubHandle
}

func (t *stubTable) Snapshot(_ context.Context, match runtime.MatchFunc) ([]runtime.Handle, error) {
	var out []runtime.Handle
	for _, h := range t.handles {
		if match == nil || match(h.name) {
			out = append(out, h)
		}
	}
	return out, nil
}

func buildRegistry(t *testing.T, cfg *config.Config, table runtime.Table) *Registry {
	t.Helper()
	reg, err := Build(cfg, runtime.Registry{config.BackendProcess: table}, WithGOOS("linux"))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return reg
}

func TestDefaultDefinition(t *testing.T) {
	reg := buildRegistry(t, config.Default(), &stubTable{})

	def := reg.Default().Definition()
	if def.Name != "OllamaKiller" || def.DisplayName != "Ollama Process Killer" {
		t.Fatalf("unexpected node identity: %+v", def)
	}
	if def.Category != "utils" || def.Function != "kill_ollama" || !def.OutputNode {
		t.Fatalf("unexpected node metadata: %+v", def)
	}
	if def.Target != "ollama" || def.GracePeriod != "5s" {
		t.Fatalf("unexpected target settings: %+v", def)
	}

	if len(def.Inputs) != 3 {
		t.Fatalf("expected three inputs, got %d", len(def.Inputs))
	}
	text, trigger, force := def.Inputs[0], def.Inputs[1], def.Inputs[2]
	if text.Name != "text" || text.Type != TypeString || !text.Required || !text.ForceInput {
		t.Fatalf("unexpected text input: %+v", text)
	}
	if trigger.Name != "trigger" || trigger.Type != TypeBoolean || trigger.Default != false ||
		trigger.LabelOn != "Kill Process" || trigger.LabelOff != "Idle" {
		t.Fatalf("unexpected trigger input: %+v", trigger)
	}
	if force.Name != "force_kill" || force.Required || force.Default != "false" ||
		strings.Join(force.Choices, ",") != "false,true" {
		t.Fatalf("unexpected force_kill input: %+v", force)
	}
	if len(def.Outputs) != 2 || def.Outputs[0].Name != "status" || def.Outputs[1].Name != "output_text" {
		t.Fatalf("unexpected outputs: %+v", def.Outputs)
	}

	if got := reg.DisplayNames(); got["OllamaKiller"] != "Ollama Process Killer" {
		t.Fatalf("unexpected display names: %v", got)
	}
}

func TestInputsDecodeForceKill(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{`{"force_kill": true}`, true},
		{`{"force_kill": false}`, false},
		{`{"force_kill": "true"}`, true},
		{`{"force_kill": "TRUE"}`, true},
		{`{"force_kill": "false"}`, false},
		{`{"force_kill": "yes"}`, false},
		{`{"force_kill": 1}`, false},
		{`{"force_kill": null}`, false},
		{`{}`, false},
	}
	for _, tc := range cases {
		var in Inputs
		if err := json.Unmarshal([]byte(tc.body), &in); err != nil {
			t.Fatalf("decode %s: %v", tc.body, err)
		}
		if bool(in.ForceKill) != tc.want {
			t.Fatalf("decode %s: expected force_kill=%v, got %v", tc.body, tc.want, in.ForceKill)
		}
	}
}

func TestInvokeIdleAndTriggered(t *testing.T) {
	table := &stubTable{handles: []*stubHandle{
		{pid: 11, name: "Ollama"},
		{pid: 12, name: "bash"},
	}}
	reg := buildRegistry(t, config.Default(), table)
	n := reg.Default()

	idle := n.Invoke(context.Background(), Inputs{Text: "hello", Trigger: false})
	if idle.Status != "Idle" || idle.OutputText != "hello" {
		t.Fatalf("unexpected idle outputs: %+v", idle)
	}

	out := n.Invoke(context.Background(), Inputs{Text: "hello", Trigger: true})
	want := "Successfully terminated 1 of 1 process(es).\n✓ Process terminated (PID: 11)"
	if out.Status != want {
		t.Fatalf("unexpected status:\n%s\nwant:\n%s", out.Status, want)
	}
	if out.OutputText != "hello" {
		t.Fatalf("expected passthrough, got %q", out.OutputText)
	}
}

func TestMatchesDoesNotSignal(t *testing.T) {
	h := &stubHandle{pid: 21, name: "ollama"}
	reg := buildRegistry(t, config.Default(), &stubTable{handles: []*stubHandle{h}})

	matches, err := reg.Default().Matches(context.Background())
	if err != nil {
		t.Fatalf("Matches returned error: %v", err)
	}
	if len(matches) != 1 || matches[0].PID() != 21 {
		t.Fatalf("unexpected matches: %v", matches)
	}
	if running, _ := h.Running(context.Background()); !running {
		t.Fatalf("dry run must not signal the process")
	}
}

func TestBuildResolvesPerNodeTargets(t *testing.T) {
	cfg := &config.Config{
		Nodes: []config.NodeSpec{
			{Name: "OllamaKiller"},
			{Name: "Sleeper", GracePeriod: config.Duration{Duration: time.Second}, Target: config.TargetSpec{Name: "sleep"}},
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}
	reg := buildRegistry(t, cfg, &stubTable{})

	defs := reg.Definitions()
	if len(defs) != 2 || defs[0].Name != "OllamaKiller" || defs[1].Name != "Sleeper" {
		t.Fatalf("unexpected definitions order: %+v", defs)
	}
	sleeper, ok := reg.Get("Sleeper")
	if !ok {
		t.Fatalf("expected Sleeper node")
	}
	if sleeper.Target().Name != "sleep" || sleeper.Target().GracePeriod != time.Second {
		t.Fatalf("unexpected sleeper target: %+v", sleeper.Target())
	}
	if _, ok := reg.Get("Missing"); ok {
		t.Fatalf("unexpected node lookup success")
	}
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Nodes[0].Backend = config.BackendDocker
	if _, err := Build(cfg, runtime.Registry{config.BackendProcess: &stubTable{}}); err == nil {
		t.Fatalf("expected unregistered backend error")
	}
	if _, err := Build(nil, nil); err == nil {
		t.Fatalf("expected nil config error")
	}
}

func TestExtraObserverReceivesResults(t *testing.T) {
	var seen []terminator.Result
	reg, err := Build(config.Default(), runtime.Registry{config.BackendProcess: &stubTable{}}, WithGOOS("linux"),
		WithTerminatorOptions(terminator.WithObserver(func(res terminator.Result, _ time.Duration) {
			seen = append(seen, res)
		})))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	reg.Default().Invoke(context.Background(), Inputs{Trigger: true})
	if len(seen) != 1 || seen[0].Status != "No ollama processes found." {
		t.Fatalf("unexpected observed results: %+v", seen)
	}
}

func TestOutcome(t *testing.T) {
	cases := []struct {
		res  terminator.Result
		want string
	}{
		{terminator.Result{Idle: true}, metrics.OutcomeIdle},
		{terminator.Result{Err: context.Canceled}, metrics.OutcomeError},
		{terminator.Result{}, metrics.OutcomeNotFound},
		{terminator.Result{Found: 2, Terminated: 1}, metrics.OutcomePartial},
		{terminator.Result{Found: 2, Terminated: 2}, metrics.OutcomeSuccess},
	}
	for _, tc := range cases {
		if got := Outcome(tc.res); got != tc.want {
			t.Fatalf("Outcome(%+v) = %s, want %s", tc.res, got, tc.want)
		}
	}
}
