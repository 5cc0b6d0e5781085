// Package envx models the layered environment mappings that task
// definitions declare.  Values are kept as a closed set of variants so
// that secret resolution can switch exhaustively instead of probing
// types at every level.
package envx

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is a single entry in an environment mapping.
type Value interface {
	value()
}

// String is a plain string value.
type String string

// Alias is a secret alias.  The leading '#' sentinel is stripped; the
// remainder is a dotted key path into a secret backend's alias mapping.
type Alias string

// Scalar is any non-string, non-mapping value (numbers, booleans,
// sequences).  It passes through resolution unchanged.
type Scalar struct {
	V any
}

func (String) value() {}
func (Alias) value()  {}
func (Scalar) value() {}

// Env is a string-keyed environment mapping.
type Env map[string]Value

func (Env) value() {}

// Path returns the dotted key path of an alias, split into segments.
func (a Alias) Path() []string {
	return strings.Split(string(a), ".")
}

// String returns the alias in its on-disk form, sentinel included.
func (a Alias) String() string {
	return "#" + string(a)
}

// FromAny converts a decoded YAML/JSON value into a Value.
func FromAny(v any) Value {
	switch v := v.(type) {
	case string:
		if strings.HasPrefix(v, "#") {
			return Alias(v[1:])
		}
		return String(v)
	case map[string]any:
		env := Env{}
		for key, value := range v {
			env[key] = FromAny(value)
		}
		return env
	default:
		return Scalar{V: v}
	}
}

// ToAny converts a Value back into the plain shape it was decoded from.
func ToAny(v Value) any {
	switch v := v.(type) {
	case String:
		return string(v)
	case Alias:
		return v.String()
	case Env:
		out := map[string]any{}
		for key, value := range v {
			out[key] = ToAny(value)
		}
		return out
	case Scalar:
		return v.V
	default:
		return nil
	}
}

// Merge returns a copy of e with every entry of other overriding the
// entry of the same name in e.  The merge is shallow, like the scope
// layering it implements: a task-level mapping replaces a
// definition-level mapping wholesale.
func (e Env) Merge(other Env) Env {
	merged := Env{}
	for key, value := range e {
		merged[key] = value
	}
	for key, value := range other {
		merged[key] = value
	}
	return merged
}

// Clone returns a deep copy of e.
func (e Env) Clone() Env {
	out := Env{}
	for key, value := range e {
		if m, ok := value.(Env); ok {
			out[key] = m.Clone()
		} else {
			out[key] = value
		}
	}
	return out
}

// Lookup descends into nested mappings one dotted-path segment at a
// time and returns the value at the end of the path.
func (e Env) Lookup(path []string) (Value, bool) {
	if len(path) == 0 {
		return nil, false
	}

	var cur Value = e
	for _, part := range path {
		m, ok := cur.(Env)
		if !ok {
			return nil, false
		}

		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// GetString returns the entry for key if it is a plain string.
func (e Env) GetString(key string) (string, bool) {
	s, ok := e[key].(String)
	return string(s), ok
}

func (e *Env) UnmarshalYAML(node *yaml.Node) error {
	raw := map[string]any{}
	err := node.Decode(&raw)
	if err != nil {
		return err
	}

	*e = FromAny(raw).(Env)
	return nil
}

func (e Env) MarshalYAML() (any, error) {
	return ToAny(e), nil
}
