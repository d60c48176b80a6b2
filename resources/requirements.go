// Package resources lets resource generators declare what their generated
// output depends on, so a bundle can be reused until one of those inputs
// changes.
package resources

import (
	"fmt"
	"net/url"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/model"
)

// Requirements is handed to a resource generator before it runs. Each call
// declares one input the generated output is sensitive to.
type Requirements interface {
	// AddConfigurationProperty declares sensitivity to the values of a
	// configuration property. It fails with a *BadPropertyValueError if
	// no such configuration property exists.
	AddConfigurationProperty(name string) error

	// AddPermutationAxis declares that output differs between permutations
	// of the deferred-binding property name (for example "user.agent").
	// If no deferred-binding property exists by that name, a configuration
	// property of the same name is accepted instead. It fails with a
	// *BadPropertyValueError when name is neither.
	AddPermutationAxis(name string) error

	// AddResolvedResource declares sensitivity to a dependent resource:
	// both the resolution of partialPath and the content found at
	// resolved.
	AddResolvedResource(partialPath string, resolved *url.URL)

	// AddTypeHierarchy declares sensitivity to structural changes of class
	// and every supertype reachable from it.
	AddTypeHierarchy(class model.Class)
}

// Hierarchical is implemented by classes that can report their direct
// supertypes. AddTypeHierarchy walks it when present.
type Hierarchical interface {
	model.Class
	Supertypes() []model.Class
}

// BadPropertyValueError reports a property that exists in neither the
// deferred-binding nor the configuration namespace.
type BadPropertyValueError struct {
	Property string
	// Namespace is the namespace that was searched last,
	// "configuration" or "binding".
	Namespace string
}

func (e *BadPropertyValueError) Error() string {
	return fmt.Sprintf("bad property value: no %s property %q", e.Namespace, e.Property)
}

// Is matches rpcontract.ErrBadPropertyValue.
func (e *BadPropertyValueError) Is(target error) bool {
	return target == rpcontract.ErrBadPropertyValue
}
