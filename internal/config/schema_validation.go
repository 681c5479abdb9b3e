package config

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	reaperschema "github.com/Paintersrp/reaper/schema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "reaper.v1.json"

var (
	schemaOnce   sync.Once
	configSchema *jsonschema.Schema
	schemaErr    error
)

// Violation is a single schema failure at a location in reaper.yaml.
type Violation struct {
	Path    string
	Message string
}

// SchemaError lists every place a document departs from the config schema.
type SchemaError struct {
	Violations []Violation
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("config does not match schema:")
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %s: %s", v.Path, v.Message)
	}
	return b.String()
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, bytes.NewReader(reaperschema.ConfigV1Schema)); err != nil {
			schemaErr = fmt.Errorf("register %s: %w", schemaURL, err)
			return
		}
		if configSchema, schemaErr = compiler.Compile(schemaURL); schemaErr != nil {
			schemaErr = fmt.Errorf("compile %s: %w", schemaURL, schemaErr)
		}
	})
	return configSchema, schemaErr
}

func validateAgainstSchema(doc map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	value, err := schemaValue(doc, "")
	if err != nil {
		return err
	}

	err = schema.Validate(value)
	if err == nil {
		return nil
	}
	vErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("validate config: %w", err)
	}
	return &SchemaError{Violations: collectViolations(vErr)}
}

// schemaValue converts decoded YAML into the value shapes the validator
// accepts. Non-string mapping keys are rejected since reaper.yaml never uses
// them.
func schemaValue(v any, path string) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			converted, err := schemaValue(item, joinField(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%s: mapping key %v is not a string", displayPath(path), k)
			}
			converted, err := schemaValue(item, joinField(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			converted, err := schemaValue(item, joinIndex(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	default:
		return v, nil
	}
}

// collectViolations keeps only the leaf failures; intermediate nodes merely
// repeat that a subschema did not match.
func collectViolations(root *jsonschema.ValidationError) []Violation {
	seen := make(map[Violation]struct{})
	var out []Violation
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			v := Violation{Path: instancePath(e.InstanceLocation), Message: e.Message}
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				out = append(out, v)
			}
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(root)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out
}

// instancePath renders a JSON pointer the way reaper reports config fields,
// for example /nodes/0/name becomes nodes[0].name.
func instancePath(ptr string) string {
	path := ""
	for _, token := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if token == "" {
			continue
		}
		token = strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
		if i, err := strconv.Atoi(token); err == nil {
			path = joinIndex(path, i)
			continue
		}
		path = joinField(path, token)
	}
	return displayPath(path)
}

func joinField(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func joinIndex(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func displayPath(path string) string {
	if path == "" {
		return "(top level)"
	}
	return path
}
