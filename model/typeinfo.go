package model

import "fmt"

// The interfaces below are the boundary to a type-introspection facility.
// Package provider implements them over go/types and reflect; tests supply
// literal fakes.

// Method is a declared method whose result names a request context.
type Method interface {
	// Name is the method identifier.
	Name() string

	// ReturnType is the declared result type, or nil for a method without
	// results.
	ReturnType() Type
}

// Type is any type a method may return.
type Type interface {
	fmt.Stringer

	// ClassOrInterface returns the named class or interface type behind
	// this type. ok is false for primitives, arrays, functions and other
	// unnamed types.
	ClassOrInterface() (class Class, ok bool)
}

// Class is a named class or interface type.
type Class interface {
	// Name is the simple name. Nested types are dot-separated
	// ("Outer.Inner") and never carry the package.
	Name() string

	// QualifiedSourceName is the package-qualified name
	// ("com.example.Outer.Inner").
	QualifiedSourceName() string

	// PackageName is the enclosing package, empty if unknown.
	PackageName() string

	// HasMarker reports whether the type carries the marker.
	HasMarker(m Marker) bool
}

// Marker is a declarative tag attached to a type, the analogue of an
// annotation.
type Marker string

const (
	// MarkerJSONRPC selects the JSON-RPC dialect for a request context.
	MarkerJSONRPC Marker = "jsonrpc"

	// MarkerFactory identifies a request factory interface.
	MarkerFactory Marker = "factory"
)
