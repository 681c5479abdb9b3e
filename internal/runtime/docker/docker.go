package docker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"github.com/Paintersrp/reaper/internal/runtime"
)

// Name is the backend identifier used in configuration.
const Name = "docker"

func init() {
	runtime.Register(Name, New)
}

// apiClient is the subset of the Docker client the table relies on.
type apiClient interface {
	ContainerList(ctx context.Context, options types.ContainerListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerKill(ctx context.Context, containerID, signal string) error
}

type table struct {
	client     apiClient
	clientOnce sync.Once
	clientErr  error
}

// New returns a table whose entries are running containers, matched by
// container name. Each entry's PID is the container's init process.
func New() runtime.Table {
	return &table{}
}

func newWithClient(cli apiClient) *table {
	t := &table{client: cli}
	t.clientOnce.Do(func() {})
	return t
}

func (t *table) getClient() (apiClient, error) {
	t.clientOnce.Do(func() {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			t.clientErr = err
			return
		}
		t.client = cli
	})
	return t.client, t.clientErr
}

func (t *table) Snapshot(ctx context.Context, match runtime.MatchFunc) ([]runtime.Handle, error) {
	cli, err := t.getClient()
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{})
	if err != nil {
		return nil, fmt.Errorf("container list: %w", err)
	}

	var handles []runtime.Handle
	for _, c := range containers {
		name := containerName(c)
		if name == "" {
			continue
		}
		if match != nil && !match(name) {
			continue
		}
		info, err := cli.ContainerInspect(ctx, c.ID)
		if err != nil || info.ContainerJSONBase == nil || info.State == nil {
			continue
		}
		if !info.State.Running || info.State.Dead {
			continue
		}
		handles = append(handles, &handle{
			cli:     cli,
			id:      c.ID,
			name:    name,
			pid:     int32(info.State.Pid),
			started: time.Unix(c.Created, 0),
		})
	}
	return handles, nil
}

func containerName(c types.Container) string {
	for _, n := range c.Names {
		n = strings.TrimPrefix(n, "/")
		// Linked containers carry a second path segment; skip those aliases.
		if n != "" && !strings.Contains(n, "/") {
			return n
		}
	}
	return ""
}

type handle struct {
	cli     apiClient
	id      string
	name    string
	pid     int32
	started time.Time
}

func (h *handle) PID() int32 {
	return h.pid
}

func (h *handle) Name() string {
	return h.name
}

func (h *handle) StartTime() time.Time {
	return h.started
}

func (h *handle) Terminate(ctx context.Context) error {
	if err := h.cli.ContainerKill(ctx, h.id, "SIGTERM"); err != nil {
		return fmt.Errorf("signal container %s: %w", h.name, classify(err))
	}
	return nil
}

func (h *handle) Kill(ctx context.Context) error {
	if err := h.cli.ContainerKill(ctx, h.id, "SIGKILL"); err != nil {
		return fmt.Errorf("kill container %s: %w", h.name, classify(err))
	}
	return nil
}

func (h *handle) Running(ctx context.Context) (bool, error) {
	info, err := h.cli.ContainerInspect(ctx, h.id)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect container %s: %w", h.name, classify(err))
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return false, nil
	}
	// A restarted container gets a new init PID; the original is gone.
	if info.State.Pid != int(h.pid) {
		return false, nil
	}
	return info.State.Running, nil
}

// classify maps Docker API errors onto the runtime sentinels. The daemon
// answers signals sent to a stopped container with a conflict.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case client.IsErrNotFound(err), errdefs.IsConflict(err):
		return fmt.Errorf("%w: %v", runtime.ErrNotRunning, err)
	case errdefs.IsForbidden(err), errdefs.IsUnauthorized(err):
		return fmt.Errorf("%w: %v", runtime.ErrAccessDenied, err)
	default:
		return err
	}
}
