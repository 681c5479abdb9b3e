package node

import (
	"encoding/json"
	"strings"
)

// Flag is a boolean that also accepts the strings "true" and "false" on the
// wire. Any other value decodes as false.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		*f = Flag(val)
	case string:
		*f = Flag(ParseFlag(val))
	default:
		*f = false
	}
	return nil
}

// ParseFlag reports whether s spells "true", ignoring case and surrounding
// space.
func ParseFlag(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// Inputs carries one invocation's socket values.
type Inputs struct {
	Text      string `json:"text"`
	Trigger   bool   `json:"trigger"`
	ForceKill Flag   `json:"force_kill"`
}

// Outputs mirrors the node's output sockets.
type Outputs struct {
	Status     string `json:"status"`
	OutputText string `json:"output_text"`
}
