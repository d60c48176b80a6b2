package badrequest

//rpc:factory
type Factory interface {
	Widgets() WidgetContext
}

type WidgetContext interface {
	Count() int
}
