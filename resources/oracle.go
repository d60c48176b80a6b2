package resources

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// PropertyOracle knows the deferred-binding and configuration properties of
// a build and their values.
//
// The YAML form is:
//
//	binding:
//	  user.agent: [safari, gecko1_8]
//	configuration:
//	  rpc.endpoint: [/gwtRequest]
type PropertyOracle struct {
	// Binding maps each deferred-binding property to its permutation values.
	Binding map[string][]string `yaml:"binding"`

	// Configuration maps each configuration property to its values.
	Configuration map[string][]string `yaml:"configuration"`
}

// LoadOracle reads a PropertyOracle from a YAML file.
func LoadOracle(path string) (*PropertyOracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}
	return ParseOracle(data)
}

// ParseOracle decodes the YAML form of a PropertyOracle. Unknown top-level
// keys are rejected.
func ParseOracle(data []byte) (*PropertyOracle, error) {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	o := &PropertyOracle{}
	if len(raw.Content) == 0 {
		return o, nil
	}
	doc := raw.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse properties: line %d: expected a mapping", doc.Line)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		switch key.Value {
		case "binding", "configuration":
		default:
			return nil, fmt.Errorf("parse properties: line %d: unknown key %q", key.Line, key.Value)
		}
	}
	if err := doc.Decode(o); err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	return o, nil
}

// BindingValues returns the permutation values of a deferred-binding
// property.
func (o *PropertyOracle) BindingValues(name string) ([]string, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Binding[name]
	return slices.Clone(v), ok
}

// ConfigurationValues returns the values of a configuration property.
func (o *PropertyOracle) ConfigurationValues(name string) ([]string, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Configuration[name]
	return slices.Clone(v), ok
}
