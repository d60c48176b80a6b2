package model

import (
	"slices"

	"github.com/broady/rpcontract"
)

// Parameter is one argument of a request method.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ServiceRequestMethod describes one request-producing method of a request
// context. It is owned by exactly one ServiceContextMethod.
type ServiceRequestMethod struct {
	name         string
	operation    string
	params       []Parameter
	resultType   string
	instanceType string
	instanceArg  string
	imports      []string
}

// Name is the method identifier within its context.
func (m *ServiceRequestMethod) Name() string { return m.name }

// OperationName is the identifier sent on the wire,
// "<context interface>::<method>".
func (m *ServiceRequestMethod) OperationName() string { return m.operation }

// Parameters returns a copy of the arguments in declaration order.
func (m *ServiceRequestMethod) Parameters() []Parameter { return slices.Clone(m.params) }

// ResultType is the qualified name of the value the request resolves to,
// empty for requests without a result.
func (m *ServiceRequestMethod) ResultType() string { return m.resultType }

// Instance reports whether the request must be bound to a proxy with
// using() before it can be fired.
func (m *ServiceRequestMethod) Instance() bool { return m.instanceType != "" }

// InstanceType is the proxy type an instance request is invoked on.
func (m *ServiceRequestMethod) InstanceType() string { return m.instanceType }

// InstanceParameter is the name of the parameter that binds the instance
// when the declared method takes the proxy directly instead of returning
// an unbound instance request. It is empty otherwise.
func (m *ServiceRequestMethod) InstanceParameter() string { return m.instanceArg }

// Imports lists the packages the parameter, result and instance types
// refer to, in the order they were added.
func (m *ServiceRequestMethod) Imports() []string { return slices.Clone(m.imports) }

// Accept calls v.VisitRequestMethod and v.EndVisitRequestMethod.
// The return value of the visit is ignored since a request method has no
// children.
func (m *ServiceRequestMethod) Accept(v Visitor) {
	v.VisitRequestMethod(m)
	v.EndVisitRequestMethod(m)
}

func (*ServiceRequestMethod) node() {}

func (m *ServiceRequestMethod) String() string {
	return m.operation
}

// OperationName returns the wire operation for method declared on class.
func OperationName(class Class, method string) string {
	return class.QualifiedSourceName() + "::" + method
}

// RequestMethodBuilder accumulates a ServiceRequestMethod.
// Like ContextMethodBuilder it is single-use.
type RequestMethodBuilder struct {
	toReturn *ServiceRequestMethod
}

// NewRequestMethodBuilder returns an open builder for the method called
// name, declared on the context class.
func NewRequestMethodBuilder(class Class, name string) *RequestMethodBuilder {
	return &RequestMethodBuilder{toReturn: &ServiceRequestMethod{
		name:      name,
		operation: OperationName(class, name),
	}}
}

// AddParameter appends an argument.
func (b *RequestMethodBuilder) AddParameter(name, typ string) error {
	if b.toReturn == nil {
		return rpcontract.ErrBuilderConsumed
	}
	b.toReturn.params = append(b.toReturn.params, Parameter{Name: name, Type: typ})
	return nil
}

// SetResultType records the type the request resolves to.
func (b *RequestMethodBuilder) SetResultType(typ string) error {
	if b.toReturn == nil {
		return rpcontract.ErrBuilderConsumed
	}
	b.toReturn.resultType = typ
	return nil
}

// SetInstanceType marks the request as an instance request on typ.
func (b *RequestMethodBuilder) SetInstanceType(typ string) error {
	if b.toReturn == nil {
		return rpcontract.ErrBuilderConsumed
	}
	b.toReturn.instanceType = typ
	return nil
}

// SetInstanceParameter marks the request as an instance request bound by
// the parameter name of type typ. The parameter is not added to the
// argument list.
func (b *RequestMethodBuilder) SetInstanceParameter(name, typ string) error {
	if b.toReturn == nil {
		return rpcontract.ErrBuilderConsumed
	}
	b.toReturn.instanceType = typ
	b.toReturn.instanceArg = name
	return nil
}

// AddImport records a package referenced by the signature. Repeated
// paths are recorded once.
func (b *RequestMethodBuilder) AddImport(path string) error {
	if b.toReturn == nil {
		return rpcontract.ErrBuilderConsumed
	}
	if !slices.Contains(b.toReturn.imports, path) {
		b.toReturn.imports = append(b.toReturn.imports, path)
	}
	return nil
}

// Build returns the descriptor and consumes the builder.
func (b *RequestMethodBuilder) Build() (*ServiceRequestMethod, error) {
	m := b.toReturn
	if m == nil {
		return nil, rpcontract.ErrBuilderConsumed
	}
	b.toReturn = nil
	return m, nil
}
