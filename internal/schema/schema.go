// Package schema holds the declarative shape definitions shared by inbound
// request checks, model output constraints and model output checks.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"formpilot/internal/errors"
)

// Type is a JSON value type.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Integer Type = "integer"
	Boolean Type = "boolean"
	Object  Type = "object"
	Array   Type = "array"
)

// Schema describes the accepted shape of one JSON value.
type Schema struct {
	Type        Type
	Description string
	Enum        []string
	Properties  []Property // ordered; order is kept in model output constraints
	Items       *Schema
	MinItems    int
	Nullable    bool
}

// Property is one named member of an object schema.
type Property struct {
	Name     string
	Schema   *Schema
	Required bool
}

// Mode controls how unknown object members are treated.
type Mode int

const (
	// Tolerant ignores members not named by the schema.
	Tolerant Mode = iota
	// Strict reports every member not named by the schema.
	Strict
)

// Decode parses data into generic JSON values, keeping numbers as
// json.Number so integer checks stay exact. Trailing data is an error.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

// Check walks v and returns every violation found. An empty result means v
// conforms to s.
func (s *Schema) Check(v any, mode Mode) []errors.Violation {
	var out []errors.Violation
	s.check(v, "", mode, &out)
	return out
}

func (s *Schema) check(v any, path string, mode Mode, out *[]errors.Violation) {
	report := func(format string, args ...any) {
		*out = append(*out, errors.Violation{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if v == nil {
		if !s.Nullable {
			report("must not be null")
		}
		return
	}

	switch s.Type {
	case String:
		str, ok := v.(string)
		if !ok {
			report("expected string, got %s", typeName(v))
			return
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			report("must be one of %s, got %q", strings.Join(s.Enum, ", "), str)
		}
	case Number:
		if _, ok := v.(json.Number); !ok {
			report("expected number, got %s", typeName(v))
		}
	case Integer:
		n, ok := v.(json.Number)
		if !ok {
			report("expected integer, got %s", typeName(v))
			return
		}
		if _, err := n.Int64(); err != nil {
			report("expected integer, got %s", n.String())
		}
	case Boolean:
		if _, ok := v.(bool); !ok {
			report("expected boolean, got %s", typeName(v))
		}
	case Object:
		obj, ok := v.(map[string]any)
		if !ok {
			report("expected object, got %s", typeName(v))
			return
		}
		s.checkObject(obj, path, mode, out)
	case Array:
		arr, ok := v.([]any)
		if !ok {
			report("expected array, got %s", typeName(v))
			return
		}
		if len(arr) < s.MinItems {
			report("must contain at least %d item(s)", s.MinItems)
		}
		if s.Items == nil {
			return
		}
		for i, item := range arr {
			s.Items.check(item, fmt.Sprintf("%s[%d]", path, i), mode, out)
		}
	}
}

func (s *Schema) checkObject(obj map[string]any, path string, mode Mode, out *[]errors.Violation) {
	known := make(map[string]bool, len(s.Properties))
	for _, p := range s.Properties {
		known[p.Name] = true
		child := joinPath(path, p.Name)

		val, present := obj[p.Name]
		if !present {
			if p.Required {
				*out = append(*out, errors.Violation{Path: child, Message: "is required"})
			}
			continue
		}
		p.Schema.check(val, child, mode, out)
	}

	if mode != Strict {
		return
	}
	var unknown []string
	for name := range obj {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		*out = append(*out, errors.Violation{Path: joinPath(path, name), Message: "unknown field"})
	}
}

// Property returns the named property schema, or nil.
func (s *Schema) Property(name string) *Schema {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
