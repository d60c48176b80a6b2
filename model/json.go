package model

import (
	"encoding/json"

	"github.com/broady/rpcontract"
)

// JSON serialization for the discovery document.
// Every node includes a "kind" field for type discrimination.

// MarshalJSON implements json.Marshaler for Schema.
func (s *Schema) MarshalJSON() ([]byte, error) {
	factories := s.Factories
	if factories == nil {
		factories = []*FactoryModel{}
	}
	return json.Marshal(&struct {
		Packages  []string        `json:"packages,omitempty"`
		Factories []*FactoryModel `json:"factories"`
		Warnings  []Warning       `json:"warnings,omitempty"`
	}{
		Packages:  s.Packages,
		Factories: factories,
		Warnings:  s.Warnings,
	})
}

// MarshalJSON implements json.Marshaler for FactoryModel.
func (f *FactoryModel) MarshalJSON() ([]byte, error) {
	contexts := f.contextMethods
	if contexts == nil {
		contexts = []*ServiceContextMethod{}
	}
	return json.Marshal(&struct {
		Kind           string                  `json:"kind"`
		SimpleName     string                  `json:"simpleName"`
		QualifiedName  string                  `json:"qualifiedName"`
		PackageName    string                  `json:"packageName"`
		ContextMethods []*ServiceContextMethod `json:"contextMethods"`
	}{
		Kind:           "factory",
		SimpleName:     f.name,
		QualifiedName:  f.qualifiedName,
		PackageName:    f.packageName,
		ContextMethods: contexts,
	})
}

// MarshalJSON implements json.Marshaler for ServiceContextMethod.
func (c *ServiceContextMethod) MarshalJSON() ([]byte, error) {
	methods := c.requestMethods
	if methods == nil {
		methods = []*ServiceRequestMethod{}
	}
	return json.Marshal(&struct {
		Kind                   string                  `json:"kind"`
		MethodName             string                  `json:"methodName"`
		InterfaceQualifiedName string                  `json:"interfaceQualifiedName"`
		PackageName            string                  `json:"packageName"`
		ImplSimpleName         string                  `json:"implSimpleName"`
		Dialect                rpcontract.Dialect      `json:"dialect"`
		RequestMethods         []*ServiceRequestMethod `json:"requestMethods"`
	}{
		Kind:                   "context",
		MethodName:             c.methodName,
		InterfaceQualifiedName: c.interfaceName,
		PackageName:            c.packageName,
		ImplSimpleName:         c.implSimpleName,
		Dialect:                c.dialect,
		RequestMethods:         methods,
	})
}

// MarshalJSON implements json.Marshaler for ServiceRequestMethod.
func (m *ServiceRequestMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind         string      `json:"kind"`
		Name         string      `json:"name"`
		Operation    string      `json:"operation"`
		Parameters   []Parameter `json:"parameters,omitempty"`
		ResultType   string      `json:"resultType,omitempty"`
		InstanceType string      `json:"instanceType,omitempty"`
		InstanceArg  string      `json:"instanceParameter,omitempty"`
		Imports      []string    `json:"imports,omitempty"`
	}{
		Kind:         "request",
		Name:         m.name,
		Operation:    m.operation,
		Parameters:   m.params,
		ResultType:   m.resultType,
		InstanceType: m.instanceType,
		InstanceArg:  m.instanceArg,
		Imports:      m.imports,
	})
}
