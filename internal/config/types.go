package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	BackendProcess = "process"
	BackendDocker  = "docker"

	LogFormatText = "text"
	LogFormatJSON = "json"

	// FallbackTarget is used when neither an explicit name nor an OS mapping
	// applies.
	FallbackTarget = "ollama"

	DefaultNodeName        = "OllamaKiller"
	DefaultNodeDisplayName = "Ollama Process Killer"
	DefaultCategory        = "utils"
	DefaultAddr            = "127.0.0.1:7664"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Config mirrors the reaper.yaml document structure.
type Config struct {
	Version      string     `yaml:"version"`
	Backend      string     `yaml:"backend"`
	GracePeriod  Duration   `yaml:"gracePeriod"`
	PollInterval Duration   `yaml:"pollInterval"`
	Target       TargetSpec `yaml:"target"`
	Nodes        []NodeSpec `yaml:"nodes"`
	Server       ServerSpec `yaml:"server"`
	Log          LogSpec    `yaml:"log"`
}

// TargetSpec selects the executable name to match. Name wins over the
// per-GOOS table, which wins over Default.
type TargetSpec struct {
	Name    string            `yaml:"name,omitempty"`
	Names   map[string]string `yaml:"names,omitempty"`
	Default string            `yaml:"default,omitempty"`
}

// NodeSpec declares one terminator node exposed to the host.
type NodeSpec struct {
	Name        string     `yaml:"name"`
	DisplayName string     `yaml:"displayName,omitempty"`
	Category    string     `yaml:"category,omitempty"`
	Backend     string     `yaml:"backend,omitempty"`
	GracePeriod Duration   `yaml:"gracePeriod,omitempty"`
	Target      TargetSpec `yaml:"target,omitempty"`
}

// ServerSpec configures the HTTP node server.
type ServerSpec struct {
	Addr string `yaml:"addr"`
}

// LogSpec configures logrus.
type LogSpec struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultTargetNames is the built-in executable name per GOOS.
func DefaultTargetNames() map[string]string {
	return map[string]string{
		"windows": "ollama.exe",
		"darwin":  "ollama",
		"linux":   "ollama",
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		panic(err)
	}
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() error {
	if c.Version == "" {
		c.Version = "1"
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendProcess
	}
	if !c.GracePeriod.IsSet() {
		c.GracePeriod = Duration{Duration: 5 * time.Second}
	}
	if !c.PollInterval.IsSet() {
		c.PollInterval = Duration{Duration: 100 * time.Millisecond}
	}
	if c.Target.Names == nil {
		c.Target.Names = DefaultTargetNames()
	}
	if c.Target.Default == "" {
		c.Target.Default = FallbackTarget
	}
	if len(c.Nodes) == 0 {
		c.Nodes = []NodeSpec{{Name: DefaultNodeName, DisplayName: DefaultNodeDisplayName}}
	}
	for i := range c.Nodes {
		node := &c.Nodes[i]
		node.Name = strings.TrimSpace(node.Name)
		if node.DisplayName == "" {
			node.DisplayName = node.Name
		}
		if node.Category == "" {
			node.Category = DefaultCategory
		}
		node.Backend = strings.ToLower(strings.TrimSpace(node.Backend))
		if node.Backend == "" {
			node.Backend = c.Backend
		}
		if !node.GracePeriod.IsSet() {
			node.GracePeriod = c.GracePeriod
		}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format == "" {
		c.Log.Format = LogFormatText
	}
	return nil
}

var nodeNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate enforces invariants the schema cannot express.
func (c *Config) Validate() error {
	if err := validateBackend(fieldPath("backend"), c.Backend); err != nil {
		return err
	}
	if c.GracePeriod.Duration <= 0 {
		return fmt.Errorf("%s: must be positive", fieldPath("gracePeriod"))
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("%s: must be positive", fieldPath("pollInterval"))
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("%s: must define at least one node", fieldPath("nodes"))
	}
	seen := make(map[string]int, len(c.Nodes))
	for i, node := range c.Nodes {
		if node.Name == "" {
			return fmt.Errorf("%s: is required", nodeField(i, "name"))
		}
		if !nodeNamePattern.MatchString(node.Name) {
			return fmt.Errorf("%s: %q must start with a letter and contain only letters, digits or underscores", nodeField(i, "name"), node.Name)
		}
		if prev, ok := seen[node.Name]; ok {
			return fmt.Errorf("%s: duplicates %s", nodeField(i, "name"), nodeField(prev, "name"))
		}
		seen[node.Name] = i
		if err := validateBackend(nodeField(i, "backend"), node.Backend); err != nil {
			return err
		}
		if node.GracePeriod.Duration <= 0 {
			return fmt.Errorf("%s: must be positive", nodeField(i, "gracePeriod"))
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%s: %w", fieldPath("log", "level"), err)
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%s: must be %q or %q, got %q", fieldPath("log", "format"), LogFormatText, LogFormatJSON, c.Log.Format)
	}
	return nil
}

func validateBackend(field, backend string) error {
	switch backend {
	case BackendProcess, BackendDocker:
		return nil
	default:
		return fmt.Errorf("%s: unknown backend %q", field, backend)
	}
}

// Node returns the node with the given name.
func (c *Config) Node(name string) (NodeSpec, bool) {
	for _, node := range c.Nodes {
		if node.Name == name {
			return node, true
		}
	}
	return NodeSpec{}, false
}

// ResolveTargetName picks the executable name for a node on goos. Precedence:
// node name, global name, node GOOS table, global GOOS table, node default,
// global default, FallbackTarget.
func (c *Config) ResolveTargetName(node NodeSpec, goos string) string {
	goos = strings.ToLower(goos)
	candidates := []string{
		node.Target.Name,
		c.Target.Name,
		node.Target.Names[goos],
		c.Target.Names[goos],
		node.Target.Default,
		c.Target.Default,
	}
	for _, candidate := range candidates {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return FallbackTarget
}

func fieldPath(parts ...string) string {
	return strings.Join(parts, ".")
}

func nodeField(index int, parts ...string) string {
	node := fmt.Sprintf("nodes[%d]", index)
	pathParts := append([]string{node}, parts...)
	return fieldPath(pathParts...)
}
