package cli

import (
	"bytes"
	stdcontext "context"
	"errors"
	"net"
	"strings"
	"testing"

	apihttp "github.com/Paintersrp/reaper/internal/api/http"
	"github.com/Paintersrp/reaper/internal/config"
	"github.com/Paintersrp/reaper/internal/runtime"
)

func TestServeCommandReportsAPIServerError(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	root, ctx := newRootCommand()
	ctx.tables = runtime.Registry{config.BackendProcess: &mockTable{}}

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"serve", "--log-level", "error"})

	startErr := errors.New("serve failure")
	origNewAPIServer := newAPIServer
	t.Cleanup(func() {
		newAPIServer = origNewAPIServer
	})
	newAPIServer = func(cfg apihttp.Config) (*apihttp.Server, error) {
		cfg.Listener = &failingListener{addr: staticAddr("127.0.0.1:0"), err: startErr}
		return apihttp.NewServer(cfg)
	}

	err := root.ExecuteContext(stdcontext.Background())
	if !errors.Is(err, startErr) {
		t.Fatalf("expected serve error %v, got %v (stderr: %s)", startErr, err, stderr.String())
	}
	if strings.Contains(stdout.String(), "Node server listening") {
		t.Fatalf("server must not report listening after a start failure: %q", stdout.String())
	}
}

func TestServeCommandStopsOnCancel(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	root, ctx := newRootCommand()
	ctx.tables = runtime.Registry{config.BackendProcess: &mockTable{}}

	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--addr", "127.0.0.1:0", "--log-level", "error"})

	runCtx, cancel := stdcontext.WithCancel(stdcontext.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(runCtx) }()
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("serve returned error after cancel: %v", err)
	}
}

type staticAddr string

func (a staticAddr) Network() string { return "tcp" }
func (a staticAddr) String() string  { return string(a) }

type failingListener struct {
	addr net.Addr
	err  error
}

func (l *failingListener) Accept() (net.Conn, error) { return nil, l.err }
func (l *failingListener) Close() error              { return nil }
func (l *failingListener) Addr() net.Addr            { return l.addr }
