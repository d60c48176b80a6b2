package provider

import (
	"go/types"

	"github.com/broady/rpcontract/internal/directive"
	"github.com/broady/rpcontract/model"
)

// sourceMethod adapts a factory method to model.Method.
type sourceMethod struct {
	name string
	ret  model.Type
}

func (m sourceMethod) Name() string           { return m.name }
func (m sourceMethod) ReturnType() model.Type { return m.ret }

// sourceType adapts a types.Type to model.Type. class is set when the type
// is a named struct or interface.
type sourceType struct {
	t     types.Type
	class *sourceClass
}

func (t sourceType) String() string {
	return types.TypeString(t.t, func(p *types.Package) string { return p.Path() })
}

func (t sourceType) ClassOrInterface() (model.Class, bool) {
	if t.class == nil {
		return nil, false
	}
	return t.class, true
}

// sourceClass adapts a named type to model.Class. It also implements
// resources.Hierarchical and resources.Structured.
type sourceClass struct {
	named   *types.Named
	markers map[model.Marker]bool
	supers  []model.Class
}

func (c *sourceClass) Name() string { return c.named.Obj().Name() }

func (c *sourceClass) PackageName() string {
	if pkg := c.named.Obj().Pkg(); pkg != nil {
		return pkg.Path()
	}
	return ""
}

func (c *sourceClass) QualifiedSourceName() string {
	if pkg := c.PackageName(); pkg != "" {
		return pkg + "." + c.Name()
	}
	return c.Name()
}

func (c *sourceClass) HasMarker(m model.Marker) bool { return c.markers[m] }

func (c *sourceClass) Supertypes() []model.Class { return c.supers }

// Structure is the fully qualified underlying type, which changes whenever
// a method or field does.
func (c *sourceClass) Structure() string {
	return types.TypeString(c.named.Underlying(), func(p *types.Package) string { return p.Path() })
}

func (b *sourceBuilder) typeOf(t types.Type) model.Type {
	st := sourceType{t: t}
	if named, ok := types.Unalias(t).(*types.Named); ok {
		switch named.Underlying().(type) {
		case *types.Interface, *types.Struct:
			st.class = b.class(named)
		}
	}
	return st
}

// class returns the cached adapter for named, creating it and its
// supertypes on first use.
func (b *sourceBuilder) class(named *types.Named) *sourceClass {
	named = named.Origin()
	if c, ok := b.classes[named.Obj()]; ok {
		return c
	}
	c := &sourceClass{named: named, markers: make(map[model.Marker]bool)}
	b.classes[named.Obj()] = c

	var dirs *directive.File
	if pkg := named.Obj().Pkg(); pkg != nil {
		dirs = b.directives[pkg.Path()]
	}
	set := dirs.Type(named.Obj().Name())
	if set.Has(directive.KindFactory) {
		c.markers[model.MarkerFactory] = true
	}
	if set.Has(directive.KindJSONRPC) {
		c.markers[model.MarkerJSONRPC] = true
	}

	switch u := named.Underlying().(type) {
	case *types.Interface:
		for i := 0; i < u.NumMethods(); i++ {
			if isMarkerMethod(u.Method(i)) {
				c.markers[model.MarkerJSONRPC] = true
			}
		}
		for i := 0; i < u.NumEmbeddeds(); i++ {
			if e, ok := types.Unalias(u.EmbeddedType(i)).(*types.Named); ok {
				c.supers = append(c.supers, b.class(e))
			}
		}
	case *types.Struct:
		for i := 0; i < u.NumFields(); i++ {
			f := u.Field(i)
			if !f.Embedded() {
				continue
			}
			t := f.Type()
			if p, ok := t.(*types.Pointer); ok {
				t = p.Elem()
			}
			if e, ok := types.Unalias(t).(*types.Named); ok {
				c.supers = append(c.supers, b.class(e))
			}
		}
	}
	return c
}
