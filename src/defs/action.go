package defs

import (
	"github.com/illikainen/snapback/src/envx"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Action is one stage of a task pipeline.  On disk it is a single-key
// mapping of kind to parameters; in memory it is a tagged variant so
// that iteration order never matters.
type Action struct {
	Kind   string
	Params envx.Value
}

func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("action must be a mapping of kind to parameters")
	}

	if len(node.Content) != 2 {
		return errors.Errorf("action must have exactly one key")
	}

	err := node.Content[0].Decode(&a.Kind)
	if err != nil {
		return errors.WithStack(err)
	}

	var raw any
	err = node.Content[1].Decode(&raw)
	if err != nil {
		return errors.WithStack(err)
	}

	if raw != nil {
		a.Params = envx.FromAny(raw)
	}
	return nil
}

func (a *Action) MarshalYAML() (any, error) {
	var params any
	if a.Params != nil {
		params = envx.ToAny(a.Params)
	}

	return map[string]any{a.Kind: params}, nil
}
