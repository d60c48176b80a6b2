package model

import (
	"strings"
	"testing"
)

// fakeClass is a literal Class. name may be nested ("Outer.Inner").
type fakeClass struct {
	pkg     string
	name    string
	markers []Marker
}

func (c fakeClass) Name() string        { return c.name }
func (c fakeClass) PackageName() string { return c.pkg }

func (c fakeClass) QualifiedSourceName() string {
	if c.pkg == "" {
		return c.name
	}
	return c.pkg + "." + c.name
}

func (c fakeClass) HasMarker(m Marker) bool {
	for _, have := range c.markers {
		if have == m {
			return true
		}
	}
	return false
}

// classType wraps a class; primitiveType has no class behind it.
type classType struct{ class fakeClass }

func (t classType) String() string                  { return t.class.QualifiedSourceName() }
func (t classType) ClassOrInterface() (Class, bool) { return t.class, true }

type primitiveType string

func (t primitiveType) String() string                  { return string(t) }
func (t primitiveType) ClassOrInterface() (Class, bool) { return nil, false }

type fakeMethod struct {
	name string
	ret  Type
}

func (m fakeMethod) Name() string     { return m.name }
func (m fakeMethod) ReturnType() Type { return m.ret }

// parseClass splits "com.example.Outer.Inner" at the first capitalized
// segment into package and nested name.
func parseClass(qualified string, markers ...Marker) fakeClass {
	parts := strings.Split(qualified, ".")
	for i, p := range parts {
		if p != "" && strings.ToUpper(p[:1]) == p[:1] {
			return fakeClass{
				pkg:     strings.Join(parts[:i], "."),
				name:    strings.Join(parts[i:], "."),
				markers: markers,
			}
		}
	}
	return fakeClass{name: qualified, markers: markers}
}

func requestMethod(t *testing.T, ctx fakeClass, name string) *ServiceRequestMethod {
	t.Helper()
	m, err := NewRequestMethodBuilder(ctx, name).Build()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func contextMethod(t *testing.T, method string, ctx fakeClass, requests ...string) *ServiceContextMethod {
	t.Helper()
	b := NewContextMethodBuilder()
	if err := b.SetDeclaredMethod(fakeMethod{name: method, ret: classType{ctx}}); err != nil {
		t.Fatal(err)
	}
	var rms []*ServiceRequestMethod
	for _, r := range requests {
		rms = append(rms, requestMethod(t, ctx, r))
	}
	if err := b.SetRequestMethods(rms); err != nil {
		t.Fatal(err)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return c
}
