package provider

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/model"
	"github.com/broady/rpcontract/resources"
)

var jsonrpcServiceType = reflect.TypeFor[rpcontract.JSONRPCService]()

// ReflectionProvider extracts contracts using runtime reflection.
//
// Reflection sees neither directives nor parameter names, so every factory
// must be listed explicitly, parameters are named arg0, arg1 and so on,
// and methods come out in lexical order. Instance requests must return
// rpcontract.InstanceRequest.
type ReflectionProvider struct{}

// ReflectionInputOptions configures reflection-based contract extraction.
type ReflectionInputOptions struct {
	// Factories are the factory interface types, for example
	// reflect.TypeFor[api.AppFactory]().
	Factories []reflect.Type

	// Requirements, if set, receives the type hierarchy of every request
	// context found.
	Requirements resources.Requirements
}

// BuildSchema converts each factory type and returns a Schema.
func (p *ReflectionProvider) BuildSchema(ctx context.Context, opts ReflectionInputOptions) (*model.Schema, error) {
	if len(opts.Factories) == 0 {
		return nil, rpcontract.NewError(rpcontract.CodeInvalidArgument, "no factory types provided")
	}

	b := &reflectionBuilder{
		schema:  &model.Schema{},
		classes: make(map[reflect.Type]*reflectClass),
		reqs:    opts.Requirements,
	}
	for _, t := range opts.Factories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if t == nil {
			return nil, rpcontract.NewError(rpcontract.CodeInvalidArgument, "nil factory type")
		}
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if err := b.buildFactory(t); err != nil {
			return nil, err
		}
		if !slices.Contains(b.schema.Packages, t.PkgPath()) {
			b.schema.Packages = append(b.schema.Packages, t.PkgPath())
		}
	}
	return b.schema, nil
}

type reflectionBuilder struct {
	schema  *model.Schema
	classes map[reflect.Type]*reflectClass
	reqs    resources.Requirements
}

func (b *reflectionBuilder) buildFactory(t reflect.Type) error {
	if t.Kind() != reflect.Interface || t.Name() == "" {
		return rpcontract.Errorf(rpcontract.CodeInvalidArgument, "factory %s is not a named interface", t)
	}
	class := b.class(t)
	class.factory = true

	var contexts []*model.ServiceContextMethod
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if isMarker(t, m) {
			continue
		}
		if m.Type.NumIn() > 0 {
			b.schema.AddWarning(model.Warning{
				Code:    WarnFactoryParams,
				Message: fmt.Sprintf("%s.%s takes parameters and is not a context method", t.Name(), m.Name),
			})
			continue
		}

		rm := reflectMethod{name: m.Name}
		switch m.Type.NumOut() {
		case 0:
		case 1:
			rm.ret = b.typeOf(m.Type.Out(0))
		default:
			rm.ret = reflectType{str: m.Type.String()}
		}

		cb := model.NewContextMethodBuilder()
		if err := cb.SetDeclaredMethod(rm); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), m.Name, err)
		}
		ctxClass := rm.ret.(reflectType).class
		requests, err := b.requestMethods(ctxClass)
		if err != nil {
			return err
		}
		if err := cb.SetRequestMethods(requests); err != nil {
			return err
		}
		cm, err := cb.Build()
		if err != nil {
			return err
		}
		contexts = append(contexts, cm)

		if b.reqs != nil {
			b.reqs.AddTypeHierarchy(ctxClass)
		}
	}

	b.schema.AddFactory(model.NewFactoryModel(class, contexts))
	return nil
}

func (b *reflectionBuilder) requestMethods(rc *reflectClass) ([]*model.ServiceRequestMethod, error) {
	t := rc.t
	if t.Kind() != reflect.Interface {
		return nil, rpcontract.Errorf(rpcontract.CodeInvalidReturnType, "request context %s is not an interface", rc.QualifiedSourceName())
	}

	var out []*model.ServiceRequestMethod
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if isMarker(t, m) {
			continue
		}
		rb := model.NewRequestMethodBuilder(rc, m.Name)
		ts := &reflectTypeString{local: t.PkgPath(), rb: rb}

		if m.Type.NumOut() != 1 {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), m.Name,
				rpcontract.Errorf(rpcontract.CodeInvalidReturnType, "must return rpcontract.Request or rpcontract.InstanceRequest, not %s", m.Type))
		}
		kind, instance, result := reflectRequestResult(m.Type.Out(0))
		switch kind {
		case notRequest:
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), m.Name,
				rpcontract.Errorf(rpcontract.CodeInvalidReturnType, "must return rpcontract.Request or rpcontract.InstanceRequest, not %s", m.Type.Out(0)))
		case instanceRequest:
			if err := rb.SetInstanceType(ts.of(instance)); err != nil {
				return nil, err
			}
		}

		for j := 0; j < m.Type.NumIn(); j++ {
			typ := m.Type.In(j)
			s := ts.of(typ)
			if m.Type.IsVariadic() && j == m.Type.NumIn()-1 {
				s = "..." + ts.of(typ.Elem())
			}
			if err := rb.AddParameter(fmt.Sprintf("arg%d", j), s); err != nil {
				return nil, err
			}
		}
		if err := rb.SetResultType(ts.of(result)); err != nil {
			return nil, err
		}
		if ts.err != nil {
			return nil, ts.err
		}

		req, err := rb.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (b *reflectionBuilder) typeOf(t reflect.Type) model.Type {
	rt := reflectType{t: t, str: t.String()}
	if t.Name() != "" && (t.Kind() == reflect.Interface || t.Kind() == reflect.Struct) {
		rt.class = b.class(t)
	}
	return rt
}

func (b *reflectionBuilder) class(t reflect.Type) *reflectClass {
	if c, ok := b.classes[t]; ok {
		return c
	}
	c := &reflectClass{t: t}
	c.jsonrpc = t.Kind() == reflect.Interface && t.Implements(jsonrpcServiceType)
	b.classes[t] = c
	return c
}

// reflectRequestResult classifies t as rpcontract.Request[T] or
// rpcontract.InstanceRequest[P, T] by the shape of their methods.
func reflectRequestResult(t reflect.Type) (kind requestKind, instance, result reflect.Type) {
	if t.Kind() != reflect.Interface || t.PkgPath() != rpcontractPath {
		return notRequest, nil, nil
	}
	switch {
	case strings.HasPrefix(t.Name(), "Request["):
		fire, ok := t.MethodByName("Fire")
		if !ok || fire.Type.NumOut() != 2 {
			return notRequest, nil, nil
		}
		return staticRequest, nil, fire.Type.Out(0)
	case strings.HasPrefix(t.Name(), "InstanceRequest["):
		using, ok := t.MethodByName("Using")
		if !ok || using.Type.NumIn() != 1 || using.Type.NumOut() != 1 {
			return notRequest, nil, nil
		}
		k, _, res := reflectRequestResult(using.Type.Out(0))
		if k != staticRequest {
			return notRequest, nil, nil
		}
		return instanceRequest, using.Type.In(0), res
	}
	return notRequest, nil, nil
}

func isMarker(t reflect.Type, m reflect.Method) bool {
	return m.Name == "JSONRPCService" && t.Implements(jsonrpcServiceType)
}

// reflectTypeString renders types relative to the package local and
// records the imports it needs.
type reflectTypeString struct {
	local string
	rb    *model.RequestMethodBuilder
	err   error
}

func (s *reflectTypeString) of(t reflect.Type) string {
	if t.Name() != "" {
		if t.PkgPath() == "" || t.PkgPath() == s.local {
			return t.Name()
		}
		name, _, _ := strings.Cut(t.String(), ".")
		if err := s.rb.AddImport(importSpec(name, t.PkgPath())); err != nil {
			s.err = err
		}
		return name + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + s.of(t.Elem())
	case reflect.Slice:
		return "[]" + s.of(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), s.of(t.Elem()))
	case reflect.Map:
		return "map[" + s.of(t.Key()) + "]" + s.of(t.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any"
		}
	}
	return t.String()
}

type reflectMethod struct {
	name string
	ret  model.Type
}

func (m reflectMethod) Name() string           { return m.name }
func (m reflectMethod) ReturnType() model.Type { return m.ret }

type reflectType struct {
	t     reflect.Type
	str   string
	class *reflectClass
}

func (t reflectType) String() string { return t.str }

func (t reflectType) ClassOrInterface() (model.Class, bool) {
	if t.class == nil {
		return nil, false
	}
	return t.class, true
}

// reflectClass adapts a named reflect.Type to model.Class and
// resources.Structured.
type reflectClass struct {
	t       reflect.Type
	factory bool
	jsonrpc bool
}

func (c *reflectClass) Name() string        { return c.t.Name() }
func (c *reflectClass) PackageName() string { return c.t.PkgPath() }

func (c *reflectClass) QualifiedSourceName() string {
	if c.t.PkgPath() == "" {
		return c.t.Name()
	}
	return c.t.PkgPath() + "." + c.t.Name()
}

func (c *reflectClass) HasMarker(m model.Marker) bool {
	switch m {
	case model.MarkerJSONRPC:
		return c.jsonrpc
	case model.MarkerFactory:
		return c.factory
	}
	return false
}

// Structure lists the method set, or the fields of a struct.
func (c *reflectClass) Structure() string {
	var sb strings.Builder
	if c.t.Kind() == reflect.Struct {
		for i := 0; i < c.t.NumField(); i++ {
			f := c.t.Field(i)
			fmt.Fprintf(&sb, "%s %s;", f.Name, f.Type)
		}
		return sb.String()
	}
	for i := 0; i < c.t.NumMethod(); i++ {
		m := c.t.Method(i)
		fmt.Fprintf(&sb, "%s%s;", m.Name, strings.TrimPrefix(m.Type.String(), "func"))
	}
	return sb.String()
}
