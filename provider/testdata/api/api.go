// Package api is a contract used by the provider tests.
package api

import (
	"time"

	"github.com/broady/rpcontract"
)

type Todo struct {
	ID   int64  `json:"id"`
	Note string `json:"note"`
	Done bool   `json:"done"`
}

type User struct {
	Name string `json:"name"`
}

// AppFactory vends the public contexts.
//
//rpc:factory
type AppFactory interface {
	Todos() TodoContext
	Users() UserContext
	Lookup(id string) TodoContext
}

type TodoContext interface {
	List(limit int) rpcontract.Request[[]Todo]
	Save(t Todo) rpcontract.Request[Todo]
	MarkDone(note string) rpcontract.InstanceRequest[Todo, Todo]

	//rpc:instance
	Delete(t Todo) rpcontract.Request[bool]

	Touch(instance Todo, at time.Time) rpcontract.Request[Todo]
	Tag(tags ...string) rpcontract.Request[[]string]
}

type UserContext interface {
	rpcontract.JSONRPCService

	Me() rpcontract.Request[*User]
}

//rpc:factory
type AdminFactory interface {
	Admin() AdminContext
}

//rpc:jsonrpc
type AdminContext interface {
	Changes(since time.Time) rpcontract.Request[[]rpcontract.ProxyChange]
	Auditable
}

type Auditable interface {
	Audit() rpcontract.Request[map[string]int]
}
