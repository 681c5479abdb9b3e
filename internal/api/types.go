package api

import (
	stdcontext "context"
	"errors"
	"time"

	"github.com/Paintersrp/reaper/internal/node"
)

var (
	ErrUnknownNode    = errors.New("unknown node")
	ErrInvalidRequest = errors.New("invalid request")
)

// ProcessReport describes what happened to one matched process.
type ProcessReport struct {
	PID     int32  `json:"pid"`
	Result  string `json:"result"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// InvokeDetails carries the structured counterpart of the status text.
type InvokeDetails struct {
	Node        string          `json:"node"`
	Target      string          `json:"target"`
	Outcome     string          `json:"outcome"`
	Found       int             `json:"found"`
	Terminated  int             `json:"terminated"`
	Processes   []ProcessReport `json:"processes"`
	Duration    string          `json:"duration"`
	CompletedAt time.Time       `json:"completed_at"`
}

// InvokeResult is the response to a node invocation.
type InvokeResult struct {
	node.Outputs
	Details InvokeDetails `json:"details"`
}

// Controller exposes node operations required by the HTTP server.
type Controller interface {
	Nodes(stdcontext.Context) ([]node.Definition, error)
	Node(stdcontext.Context, string) (*node.Definition, error)
	Invoke(stdcontext.Context, string, node.Inputs) (*InvokeResult, error)
}
