package model

import (
	"errors"
	"strings"

	"github.com/broady/rpcontract"
)

// Schema is the set of factories discovered in one generation pass.
type Schema struct {
	// Packages lists the source packages the factories were loaded from.
	Packages []string

	// Factories in discovery order.
	Factories []*FactoryModel

	// Warnings contains non-fatal issues encountered while discovering.
	Warnings []Warning
}

// Warning is a non-fatal discovery issue.
type Warning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Position string `json:"position,omitempty"`
}

// AddFactory appends a factory.
func (s *Schema) AddFactory(f *FactoryModel) {
	s.Factories = append(s.Factories, f)
}

// AddWarning appends a warning.
func (s *Schema) AddWarning(w Warning) {
	s.Warnings = append(s.Warnings, w)
}

// FindFactory looks up a factory by qualified name. Returns nil if not found.
func (s *Schema) FindFactory(qualifiedName string) *FactoryModel {
	for _, f := range s.Factories {
		if f.QualifiedName() == qualifiedName {
			return f
		}
	}
	return nil
}

// FindContext looks up a context method by the qualified name of its
// implementation. Returns nil if not found.
func (s *Schema) FindContext(qualifiedImplName string) *ServiceContextMethod {
	for _, f := range s.Factories {
		for _, c := range f.contextMethods {
			if c.QualifiedImplName() == qualifiedImplName {
				return c
			}
		}
	}
	return nil
}

// Accept walks every factory in order.
func (s *Schema) Accept(v Visitor) {
	for _, f := range s.Factories {
		f.Accept(v)
	}
}

// Validate checks the schema for structural issues and returns every
// problem found, not just the first. Each error matches
// rpcontract.CodeInvalidModel.
func (s *Schema) Validate() []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, rpcontract.Errorf(rpcontract.CodeInvalidModel, format, args...))
	}

	factories := make(map[string]bool)
	impls := make(map[string]string)
	for _, f := range s.Factories {
		if factories[f.QualifiedName()] {
			add("duplicate factory %s", f.QualifiedName())
		}
		factories[f.QualifiedName()] = true

		methods := make(map[string]bool)
		for _, c := range f.contextMethods {
			if c.MethodName() == "" {
				add("factory %s has a context method without a name", f.QualifiedName())
			}
			if methods[c.MethodName()] {
				add("duplicate context method %s.%s", f.QualifiedName(), c.MethodName())
			}
			methods[c.MethodName()] = true

			// Generated files are named after the implementation.
			impl := c.QualifiedImplName()
			if owner, ok := impls[impl]; ok && owner != f.QualifiedName()+"."+c.MethodName() {
				add("implementation %s generated for both %s and %s.%s", impl, owner, f.QualifiedName(), c.MethodName())
			}
			impls[impl] = f.QualifiedName() + "." + c.MethodName()

			ops := make(map[string]bool)
			for _, m := range c.requestMethods {
				if m == nil {
					add("context %s has a nil request method", c.InterfaceQualifiedName())
					continue
				}
				if m.Name() == "" {
					add("context %s has a request method without a name", c.InterfaceQualifiedName())
				}
				if ops[m.OperationName()] {
					add("duplicate operation %s", m.OperationName())
				}
				ops[m.OperationName()] = true
				if !strings.HasPrefix(m.OperationName(), c.InterfaceQualifiedName()+"::") {
					add("operation %s is not declared on %s", m.OperationName(), c.InterfaceQualifiedName())
				}
			}
		}
	}
	return errs
}

// Err joins the result of Validate, returning nil for a valid schema.
func (s *Schema) Err() error {
	return errors.Join(s.Validate()...)
}
