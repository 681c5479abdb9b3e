package api_test

import (
	stdcontext "context"
	"errors"
	"testing"
	"time"

	"github.com/Paintersrp/reaper/internal/api"
	"github.com/Paintersrp/reaper/internal/config"
	"github.com/Paintersrp/reaper/internal/node"
	"github.com/Paintersrp/reaper/internal/runtime"
)

type goneHandle struct{ pid int32 }

func (h goneHandle) PID() int32                               { return h.pid }
func (h goneHandle) Name() string                             { return "ollama" }
func (h goneHandle) StartTime() time.Time                     { return time.Time{} }
func (h goneHandle) Terminate(stdcontext.Context) error       { return runtime.ErrNotRunning }
func (h goneHandle) Kill(stdcontext.Context) error            { return runtime.ErrNotRunning }
func (h goneHandle) Running(stdcontext.Context) (bool, error) { return false, nil }

type staticTable []runtime.Handle

func (t staticTable) Snapshot(stdcontext.Context, runtime.MatchFunc) ([]runtime.Handle, error) {
	return t, nil
}

func newController(t *testing.T, table runtime.Table) *api.NodeController {
	t.Helper()
	reg, err := node.Build(config.Default(), runtime.Registry{config.BackendProcess: table}, node.WithGOOS("linux"))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return api.NewNodeController(reg)
}

func TestNodeControllerLookup(t *testing.T) {
	ctrl := newController(t, staticTable{})

	defs, err := ctrl.Nodes(stdcontext.Background())
	if err != nil || len(defs) != 1 || defs[0].Name != "OllamaKiller" {
		t.Fatalf("unexpected nodes: %+v, %v", defs, err)
	}
	def, err := ctrl.Node(stdcontext.Background(), "OllamaKiller")
	if err != nil || def.Function != "kill_ollama" {
		t.Fatalf("unexpected node: %+v, %v", def, err)
	}
	if _, err := ctrl.Node(stdcontext.Background(), "Nope"); !errors.Is(err, api.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if _, err := ctrl.Invoke(stdcontext.Background(), "Nope", node.Inputs{}); !errors.Is(err, api.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode from Invoke, got %v", err)
	}
}

func TestNodeControllerInvokeDetails(t *testing.T) {
	ctrl := newController(t, staticTable{goneHandle{pid: 77}})

	res, err := ctrl.Invoke(stdcontext.Background(), "OllamaKiller", node.Inputs{Text: "x", Trigger: true})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	want := "Successfully terminated 1 of 1 process(es).\n✓ Process already terminated (PID: 77)"
	if res.Status != want || res.OutputText != "x" {
		t.Fatalf("unexpected outputs: %+v", res.Outputs)
	}
	d := res.Details
	if d.Node != "OllamaKiller" || d.Target != "ollama" || d.Outcome != "success" || d.Found != 1 || d.Terminated != 1 {
		t.Fatalf("unexpected details: %+v", d)
	}
	if len(d.Processes) != 1 || d.Processes[0].PID != 77 || d.Processes[0].Result != "already_gone" || !d.Processes[0].Success {
		t.Fatalf("unexpected process reports: %+v", d.Processes)
	}
}

func TestNodeControllerInvokeCancelled(t *testing.T) {
	ctrl := newController(t, staticTable{})
	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	cancel()
	if _, err := ctrl.Invoke(ctx, "OllamaKiller", node.Inputs{Trigger: true}); !errors.Is(err, stdcontext.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
