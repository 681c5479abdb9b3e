// Package node exposes process terminators through the host's node contract:
// a static definition describing inputs and outputs plus an Invoke operation
// that never fails.
package node

// Input and output socket types understood by the host.
const (
	TypeString  = "STRING"
	TypeBoolean = "BOOLEAN"
	TypeChoice  = "COMBO"
)

// Function is the entry point name advertised for every terminator node.
const Function = "kill_ollama"

// InputSpec describes one input socket.
type InputSpec struct {
	Name       string   `json:"name" yaml:"name"`
	Type       string   `json:"type" yaml:"type"`
	Required   bool     `json:"required" yaml:"required"`
	ForceInput bool     `json:"force_input,omitempty" yaml:"forceInput,omitempty"`
	Default    any      `json:"default,omitempty" yaml:"default,omitempty"`
	LabelOn    string   `json:"label_on,omitempty" yaml:"labelOn,omitempty"`
	LabelOff   string   `json:"label_off,omitempty" yaml:"labelOff,omitempty"`
	Choices    []string `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// OutputSpec describes one output socket.
type OutputSpec struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Definition is the static metadata a host uses to discover a node.
// OutputNode marks the node as side-effecting; hosts must not cache it.
type Definition struct {
	Name        string       `json:"name" yaml:"name"`
	DisplayName string       `json:"display_name" yaml:"displayName"`
	Category    string       `json:"category" yaml:"category"`
	Function    string       `json:"function" yaml:"function"`
	OutputNode  bool         `json:"output_node" yaml:"outputNode"`
	Backend     string       `json:"backend" yaml:"backend"`
	Target      string       `json:"target" yaml:"target"`
	GracePeriod string       `json:"grace_period" yaml:"gracePeriod"`
	Inputs      []InputSpec  `json:"inputs" yaml:"inputs"`
	Outputs     []OutputSpec `json:"outputs" yaml:"outputs"`
}

func standardInputs() []InputSpec {
	return []InputSpec{
		{Name: "text", Type: TypeString, Required: true, ForceInput: true},
		{Name: "trigger", Type: TypeBoolean, Required: true, Default: false, LabelOn: "Kill Process", LabelOff: "Idle"},
		{Name: "force_kill", Type: TypeChoice, Default: "false", Choices: []string{"false", "true"}},
	}
}

func standardOutputs() []OutputSpec {
	return []OutputSpec{
		{Name: "status", Type: TypeString},
		{Name: "output_text", Type: TypeString},
	}
}
