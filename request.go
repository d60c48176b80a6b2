package rpcontract

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request is returned by a request method. Firing it sends the invocation
// and decodes the result into T.
type Request[T any] interface {
	// Operation is the wire name, "<context interface>::<method>".
	Operation() string

	Fire(ctx context.Context) (T, error)
}

// InstanceRequest is returned by a request method that runs on a proxy
// instance. It does not fire by itself: Using binds the instance and vends
// the Request.
type InstanceRequest[P, T any] interface {
	Using(instance P) Request[T]
}

// Invocation is one request sent through a Transport.
type Invocation struct {
	Dialect   Dialect `json:"dialect"`
	Operation string  `json:"operation"`
	// Instance is the bound proxy for instance requests, nil otherwise.
	Instance any   `json:"instance,omitempty"`
	Args     []any `json:"args"`
}

// Transport delivers invocations to a server. Generated context
// implementations hold one and route every request through it.
type Transport interface {
	Invoke(ctx context.Context, inv Invocation) (json.RawMessage, error)
}

// TransportFunc adapts a function to a Transport.
type TransportFunc func(ctx context.Context, inv Invocation) (json.RawMessage, error)

// Invoke calls f.
func (f TransportFunc) Invoke(ctx context.Context, inv Invocation) (json.RawMessage, error) {
	return f(ctx, inv)
}

// NewRequest returns a Request for operation. Generated code calls it;
// args are the request method's arguments in declaration order.
func NewRequest[T any](t Transport, dialect Dialect, operation string, args ...any) Request[T] {
	return &request[T]{
		transport: t,
		inv: Invocation{
			Dialect:   dialect,
			Operation: operation,
			Args:      nonNil(args),
		},
	}
}

// NewInstanceRequest returns an InstanceRequest for operation.
func NewInstanceRequest[P, T any](t Transport, dialect Dialect, operation string, args ...any) InstanceRequest[P, T] {
	return &instanceRequest[P, T]{
		transport: t,
		inv: Invocation{
			Dialect:   dialect,
			Operation: operation,
			Args:      nonNil(args),
		},
	}
}

type request[T any] struct {
	transport Transport
	inv       Invocation
}

func (r *request[T]) Operation() string { return r.inv.Operation }

func (r *request[T]) Fire(ctx context.Context) (T, error) {
	var result T
	if r.transport == nil {
		return result, Errorf(CodeInternal, "%s: no transport", r.inv.Operation)
	}
	raw, err := r.transport.Invoke(ctx, r.inv)
	if err != nil {
		return result, fmt.Errorf("%s: %w", r.inv.Operation, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return result, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("%s: decode result: %w", r.inv.Operation, err)
	}
	return result, nil
}

type instanceRequest[P, T any] struct {
	transport Transport
	inv       Invocation
}

func (r *instanceRequest[P, T]) Using(instance P) Request[T] {
	inv := r.inv
	inv.Instance = instance
	return &request[T]{transport: r.transport, inv: inv}
}

func nonNil(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
