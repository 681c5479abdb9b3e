package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Paintersrp/reaper/internal/node"
	"github.com/Paintersrp/reaper/internal/terminator"
)

// ProcessRecord is the JSON form of a single process outcome.
type ProcessRecord struct {
	PID     int32  `json:"pid"`
	Result  string `json:"result"`
	Success bool   `json:"success"`
	Message string `json:"msg"`
}

// InvocationRecord represents an invocation result ready for JSON encoding.
type InvocationRecord struct {
	Timestamp  time.Time       `json:"ts"`
	Node       string          `json:"node"`
	Target     string          `json:"target"`
	Outcome    string          `json:"outcome"`
	Status     string          `json:"status"`
	OutputText string          `json:"output_text"`
	Found      int             `json:"found"`
	Terminated int             `json:"terminated"`
	Processes  []ProcessRecord `json:"processes"`
}

// NewInvocationRecord converts a terminator result into a structured record.
func NewInvocationRecord(nodeName string, res terminator.Result) InvocationRecord {
	processes := make([]ProcessRecord, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		processes = append(processes, ProcessRecord{
			PID:     o.PID,
			Result:  string(o.Kind),
			Success: o.Success(),
			Message: o.Message(),
		})
	}
	return InvocationRecord{
		Node:       nodeName,
		Target:     res.Target,
		Outcome:    node.Outcome(res),
		Status:     res.Status,
		OutputText: res.Passthrough,
		Found:      res.Found,
		Terminated: res.Terminated,
		Processes:  processes,
	}
}

// EncodeInvocation encodes a record to JSON, reporting errors to stderr if needed.
func EncodeInvocation(enc *json.Encoder, stderr io.Writer, record InvocationRecord) {
	if enc == nil {
		return
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode invocation: %v\n", err)
	}
}
