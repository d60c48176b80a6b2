// Package model describes request-context service contracts.
//
// A contract is a tree of three immutable descriptors:
//
//	FactoryModel                 the factory interface
//	└── ServiceContextMethod     a factory method returning a request context
//	    └── ServiceRequestMethod a method of that context producing a request
//
// Descriptors are created only through single-use builders fed from a
// type-introspection source (see Method, Type and Class) and are read
// through accessors that never expose internal slices. Consumers such as
// code emitters and validators traverse a contract with a Visitor.
package model
