package model

// Node is implemented by the three descriptor types of a contract:
// *FactoryModel, *ServiceContextMethod and *ServiceRequestMethod.
type Node interface {
	// Accept walks the node depth-first. For every node the Visit hook
	// runs first; children are walked in stored order only if it returns
	// true; the EndVisit hook always runs last.
	Accept(v Visitor)

	// Ensure only types in this package can implement Node.
	node()
}

// Visitor receives traversal callbacks. Each Visit hook reports whether to
// descend into the node's children.
type Visitor interface {
	VisitFactory(f *FactoryModel) bool
	EndVisitFactory(f *FactoryModel)

	VisitContextMethod(c *ServiceContextMethod) bool
	EndVisitContextMethod(c *ServiceContextMethod)

	VisitRequestMethod(m *ServiceRequestMethod) bool
	EndVisitRequestMethod(m *ServiceRequestMethod)
}

// BaseVisitor descends into every node and does nothing else.
// Embed it to override only the hooks you need.
type BaseVisitor struct{}

func (BaseVisitor) VisitFactory(*FactoryModel) bool               { return true }
func (BaseVisitor) EndVisitFactory(*FactoryModel)                 {}
func (BaseVisitor) VisitContextMethod(*ServiceContextMethod) bool { return true }
func (BaseVisitor) EndVisitContextMethod(*ServiceContextMethod)   {}
func (BaseVisitor) VisitRequestMethod(*ServiceRequestMethod) bool { return true }
func (BaseVisitor) EndVisitRequestMethod(*ServiceRequestMethod)   {}

// Inspect walks node in the manner of ast.Inspect: f is called with each
// node before its children, the children are walked only if f returned
// true, and f(nil) follows every node.
func Inspect(node Node, f func(Node) bool) {
	node.Accept(inspector(f))
}

type inspector func(Node) bool

func (f inspector) VisitFactory(n *FactoryModel) bool { return f(n) }
func (f inspector) EndVisitFactory(*FactoryModel)     { f(nil) }

func (f inspector) VisitContextMethod(n *ServiceContextMethod) bool { return f(n) }
func (f inspector) EndVisitContextMethod(*ServiceContextMethod)     { f(nil) }

func (f inspector) VisitRequestMethod(n *ServiceRequestMethod) bool { return f(n) }
func (f inspector) EndVisitRequestMethod(*ServiceRequestMethod)     { f(nil) }
