package config

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRejectsInvalidConfigs(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		contains string
	}{
		{
			name:     "unknown top-level field",
			body:     "timeout: 5s\n",
			contains: "(top level): additionalProperties 'timeout' not allowed",
		},
		{
			name:     "unknown backend",
			body:     "backend: podman\n",
			contains: "backend",
		},
		{
			name:     "malformed duration",
			body:     "gracePeriod: five seconds\n",
			contains: "gracePeriod",
		},
		{
			name:     "zero grace period",
			body:     "gracePeriod: 0s\n",
			contains: "gracePeriod: must be positive",
		},
		{
			name: "duplicate node names",
			body: `nodes:
  - name: Killer
  - name: Killer
`,
			contains: "nodes[1].name: duplicates nodes[0].name",
		},
		{
			name: "invalid node name",
			body: `nodes:
  - name: "kill me"
`,
			contains: "nodes[0].name",
		},
		{
			name: "node without name",
			body: `nodes:
  - displayName: Nameless
`,
			contains: "nodes[0]: missing properties: 'name'",
		},
		{
			name:     "bad log level",
			body:     "log:\n  level: loud\n",
			contains: "log.level",
		},
		{
			name:     "bad log format",
			body:     "log:\n  format: xml\n",
			contains: "log.format",
		},
		{
			name:     "invalid yaml",
			body:     "nodes: [\n",
			contains: "decode",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.contains) {
				t.Fatalf("expected error to contain %q, got %v", tc.contains, err)
			}
		})
	}
}

func TestInstancePath(t *testing.T) {
	tests := map[string]string{
		"":                   "(top level)",
		"/":                  "(top level)",
		"/nodes/0/name":      "nodes[0].name",
		"/nodes/3":           "nodes[3]",
		"/target/names/a~1b": "target.names.a/b",
		"/target/names/x~0y": "target.names.x~y",
	}
	for input, want := range tests {
		if got := instancePath(input); got != want {
			t.Fatalf("instancePath(%q)=%q, want %q", input, got, want)
		}
	}
}

func TestSchemaErrorListsEveryViolation(t *testing.T) {
	_, err := Parse([]byte(`backend: podman
nodes:
  - name: Killer
    gracePeriod: soon
`))
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}
	if len(schemaErr.Violations) != 2 {
		t.Fatalf("expected two violations, got %+v", schemaErr.Violations)
	}
	if got := schemaErr.Violations[0].Path; got != "backend" {
		t.Fatalf("expected violations sorted by path, first was %q", got)
	}
	if got := schemaErr.Violations[1].Path; got != "nodes[0].gracePeriod" {
		t.Fatalf("unexpected second path %q", got)
	}
	if !strings.HasPrefix(err.Error(), "config does not match schema:\n  backend: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestSchemaValueRejectsNonStringKeys(t *testing.T) {
	_, err := schemaValue(map[string]any{"target": map[any]any{1: "x"}}, "")
	if err == nil || !strings.Contains(err.Error(), "target: mapping key 1 is not a string") {
		t.Fatalf("unexpected error %v", err)
	}
}
