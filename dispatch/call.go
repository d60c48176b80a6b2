package dispatch

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/broady/rpcontract"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Call is one decoded invocation as seen by a handler.
type Call struct {
	Dialect   rpcontract.Dialect
	Operation string

	// Instance is the encoded bound proxy of an instance request. It is
	// empty for static requests.
	Instance json.RawMessage

	// Args are the encoded request method arguments in declaration order.
	Args []json.RawMessage
}

// Arg decodes argument i into T and validates it when T is a struct or a
// pointer to one.
func Arg[T any](call *Call, i int) (T, error) {
	var v T
	if i >= len(call.Args) {
		return v, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "%s: missing argument %d", call.Operation, i)
	}
	if err := json.Unmarshal(call.Args[i], &v); err != nil {
		return v, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "%s: decode argument %d: %v", call.Operation, i, err)
	}
	return v, validateValue(v)
}

// Instance decodes the bound instance into P.
func Instance[P any](call *Call) (P, error) {
	var p P
	if len(call.Instance) == 0 || string(call.Instance) == "null" {
		return p, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "%s: no instance bound", call.Operation)
	}
	if err := json.Unmarshal(call.Instance, &p); err != nil {
		return p, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "%s: decode instance: %v", call.Operation, err)
	}
	return p, validateValue(p)
}

func validateValue(v any) error {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		if reflect.ValueOf(v).IsNil() {
			return nil
		}
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(v)
}

// HandlerFunc serves one operation.
type HandlerFunc func(ctx context.Context, call *Call) (any, error)

func checkArity(call *Call, n int) error {
	if len(call.Args) != n {
		return rpcontract.Errorf(rpcontract.CodeInvalidArgument, "%s: got %d arguments, want %d", call.Operation, len(call.Args), n)
	}
	return nil
}

// Func0 adapts a request method without arguments.
func Func0[T any](fn func(ctx context.Context) (T, error)) HandlerFunc {
	return func(ctx context.Context, call *Call) (any, error) {
		if err := checkArity(call, 0); err != nil {
			return nil, err
		}
		return fn(ctx)
	}
}

// Func1 adapts a request method with one argument.
func Func1[A, T any](fn func(ctx context.Context, a A) (T, error)) HandlerFunc {
	return func(ctx context.Context, call *Call) (any, error) {
		if err := checkArity(call, 1); err != nil {
			return nil, err
		}
		a, err := Arg[A](call, 0)
		if err != nil {
			return nil, err
		}
		return fn(ctx, a)
	}
}

// Func2 adapts a request method with two arguments.
func Func2[A, B, T any](fn func(ctx context.Context, a A, b B) (T, error)) HandlerFunc {
	return func(ctx context.Context, call *Call) (any, error) {
		if err := checkArity(call, 2); err != nil {
			return nil, err
		}
		a, err := Arg[A](call, 0)
		if err != nil {
			return nil, err
		}
		b, err := Arg[B](call, 1)
		if err != nil {
			return nil, err
		}
		return fn(ctx, a, b)
	}
}

// Instance0 adapts an instance request without arguments.
func Instance0[P, T any](fn func(ctx context.Context, instance P) (T, error)) HandlerFunc {
	return func(ctx context.Context, call *Call) (any, error) {
		if err := checkArity(call, 0); err != nil {
			return nil, err
		}
		p, err := Instance[P](call)
		if err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
}

// Instance1 adapts an instance request with one argument.
func Instance1[P, A, T any](fn func(ctx context.Context, instance P, a A) (T, error)) HandlerFunc {
	return func(ctx context.Context, call *Call) (any, error) {
		if err := checkArity(call, 1); err != nil {
			return nil, err
		}
		p, err := Instance[P](call)
		if err != nil {
			return nil, err
		}
		a, err := Arg[A](call, 0)
		if err != nil {
			return nil, err
		}
		return fn(ctx, p, a)
	}
}
