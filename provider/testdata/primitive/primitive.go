package primitive

//rpc:factory
type Factory interface {
	Count() int
}
