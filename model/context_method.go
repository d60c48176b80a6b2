package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/broady/rpcontract"
)

// ServiceContextMethod describes a factory method that vends a request
// context. It is immutable once returned by ContextMethodBuilder.Build.
type ServiceContextMethod struct {
	dialect        rpcontract.Dialect
	interfaceName  string
	methodName     string
	packageName    string
	requestMethods []*ServiceRequestMethod
	implSimpleName string
}

// Dialect is JSONRPC if the context interface carries MarkerJSONRPC.
func (c *ServiceContextMethod) Dialect() rpcontract.Dialect { return c.dialect }

// InterfaceQualifiedName is the qualified source name of the request
// context interface, i.e. the return type of the declared method.
func (c *ServiceContextMethod) InterfaceQualifiedName() string { return c.interfaceName }

// InterfaceSimpleName is InterfaceQualifiedName without the package.
func (c *ServiceContextMethod) InterfaceSimpleName() string {
	return strings.TrimPrefix(c.interfaceName, c.packageName+".")
}

// MethodName is the name of the declared factory method.
func (c *ServiceContextMethod) MethodName() string { return c.methodName }

// PackageName is the package of the context interface. Generated
// implementations live in the same package.
func (c *ServiceContextMethod) PackageName() string { return c.packageName }

// ImplSimpleName is the simple name of the generated implementation.
func (c *ServiceContextMethod) ImplSimpleName() string { return c.implSimpleName }

// QualifiedImplName is the qualified source name of the implementation.
func (c *ServiceContextMethod) QualifiedImplName() string {
	return c.packageName + "." + c.implSimpleName
}

// RequestMethods returns a copy of the request methods in declaration order.
func (c *ServiceContextMethod) RequestMethods() []*ServiceRequestMethod {
	return slices.Clone(c.requestMethods)
}

// Accept calls v.VisitContextMethod, then each request method if the visit
// descended, then v.EndVisitContextMethod.
func (c *ServiceContextMethod) Accept(v Visitor) {
	if v.VisitContextMethod(c) {
		for _, m := range c.requestMethods {
			m.Accept(v)
		}
	}
	v.EndVisitContextMethod(c)
}

func (*ServiceContextMethod) node() {}

// String is for debugging only.
func (c *ServiceContextMethod) String() string {
	return c.QualifiedImplName() + " " + c.methodName + "()"
}

// ImplSimpleName derives the implementation name for a context class:
// qualifier separators in the simple name become underscores and "Impl"
// is appended ("Outer.Inner" → "Outer_InnerImpl").
func ImplSimpleName(class Class) string {
	return strings.ReplaceAll(class.Name(), ".", "_") + "Impl"
}

// ContextMethodBuilder accumulates a ServiceContextMethod.
// A builder is single-use: after Build every call returns
// rpcontract.ErrBuilderConsumed.
type ContextMethodBuilder struct {
	toReturn *ServiceContextMethod
	declared bool
}

// NewContextMethodBuilder returns an open builder.
func NewContextMethodBuilder() *ContextMethodBuilder {
	return &ContextMethodBuilder{toReturn: &ServiceContextMethod{}}
}

// SetDeclaredMethod records the factory method and derives every name and
// the dialect from its return type, which must be a class or interface
// with a package. On error the builder is left unchanged.
func (b *ContextMethodBuilder) SetDeclaredMethod(m Method) error {
	if b.toReturn == nil {
		return rpcontract.ErrBuilderConsumed
	}
	if m == nil {
		return rpcontract.NewError(rpcontract.CodeInvalidArgument, "declared method is nil")
	}

	rt := m.ReturnType()
	if rt == nil {
		return rpcontract.Errorf(rpcontract.CodeInvalidReturnType, "method %s has no return type", m.Name())
	}
	class, ok := rt.ClassOrInterface()
	if !ok || class == nil {
		return rpcontract.Errorf(rpcontract.CodeInvalidReturnType, "method %s returns %s, which is not a class or interface", m.Name(), rt)
	}
	if class.PackageName() == "" {
		return rpcontract.Errorf(rpcontract.CodeInvalidReturnType, "method %s returns %s, which has no package", m.Name(), rt)
	}

	c := b.toReturn
	c.methodName = m.Name()
	c.interfaceName = class.QualifiedSourceName()
	c.packageName = class.PackageName()
	c.implSimpleName = ImplSimpleName(class)
	if class.HasMarker(MarkerJSONRPC) {
		c.dialect = rpcontract.JSONRPC
	} else {
		c.dialect = rpcontract.Standard
	}
	b.declared = true
	return nil
}

// SetRequestMethods stores a copy of methods, replacing any earlier call.
// The sequence is kept as given: no deduplication, empty is allowed.
func (b *ContextMethodBuilder) SetRequestMethods(methods []*ServiceRequestMethod) error {
	if b.toReturn == nil {
		return rpcontract.ErrBuilderConsumed
	}
	b.toReturn.requestMethods = slices.Clone(methods)
	return nil
}

// Build returns the accumulated descriptor and consumes the builder.
// The builder is consumed even when Build fails because no declared method
// was set.
func (b *ContextMethodBuilder) Build() (*ServiceContextMethod, error) {
	c := b.toReturn
	if c == nil {
		return nil, rpcontract.ErrBuilderConsumed
	}
	b.toReturn = nil
	if !b.declared {
		return nil, fmt.Errorf("build context method: %w",
			rpcontract.NewError(rpcontract.CodeInvalidArgument, "declared method not set"))
	}
	return c, nil
}
