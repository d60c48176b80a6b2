package model

import "slices"

// FactoryModel is the root of a contract: a factory interface and the
// request contexts it vends.
type FactoryModel struct {
	name           string
	qualifiedName  string
	packageName    string
	contextMethods []*ServiceContextMethod
}

// NewFactoryModel returns a factory for class with the given context
// methods in declaration order.
func NewFactoryModel(class Class, contexts []*ServiceContextMethod) *FactoryModel {
	return &FactoryModel{
		name:           class.Name(),
		qualifiedName:  class.QualifiedSourceName(),
		packageName:    class.PackageName(),
		contextMethods: slices.Clone(contexts),
	}
}

// SimpleName is the factory interface's name without its package.
func (f *FactoryModel) SimpleName() string { return f.name }

// QualifiedName is the factory interface's qualified source name.
func (f *FactoryModel) QualifiedName() string { return f.qualifiedName }

// PackageName is the factory interface's package.
func (f *FactoryModel) PackageName() string { return f.packageName }

// ContextMethods returns a copy of the context methods.
func (f *FactoryModel) ContextMethods() []*ServiceContextMethod {
	return slices.Clone(f.contextMethods)
}

// Accept walks the factory and, if v descends, every context method.
func (f *FactoryModel) Accept(v Visitor) {
	if v.VisitFactory(f) {
		for _, c := range f.contextMethods {
			c.Accept(v)
		}
	}
	v.EndVisitFactory(f)
}

func (*FactoryModel) node() {}

func (f *FactoryModel) String() string {
	return f.qualifiedName
}
