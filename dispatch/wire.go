package dispatch

import (
	"bytes"
	"encoding/json"

	"github.com/broady/rpcontract"
)

const jsonrpcVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	jsonrpcInvalidRequest = -32600
	jsonrpcMethodNotFound = -32601
	jsonrpcInvalidParams  = -32602
	jsonrpcInternalError  = -32603
	jsonrpcServerError    = -32000
)

// wireRequest is the body of a POST in either dialect. A request with a
// "jsonrpc" member is JSON-RPC 2.0, anything else is the standard
// rpcontract.Invocation encoding.
type wireRequest struct {
	Dialect   string            `json:"dialect"`
	Operation string            `json:"operation"`
	Instance  json.RawMessage   `json:"instance"`
	Args      []json.RawMessage `json:"args"`

	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// jsonrpcRequest is what HTTPTransport sends for the JSON-RPC dialect.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// jsonrpcParams carries the bound instance of an instance request. Static
// requests send their arguments as a plain params array.
type jsonrpcParams struct {
	Instance any   `json:"instance"`
	Args     []any `json:"args"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    *rpcontract.Error `json:"data,omitempty"`
}

// standardResponse mirrors the envelopes written by rpcontract.WriteResult
// and rpcontract.WriteError.
type standardResponse struct {
	Result json.RawMessage   `json:"result"`
	Error  *rpcontract.Error `json:"error"`
}

// call converts a decoded body into a Call.
func (r *wireRequest) call() (*Call, error) {
	if r.JSONRPC == "" {
		if r.Operation == "" {
			return nil, rpcontract.NewError(rpcontract.CodeInvalidArgument, "operation is required")
		}
		dialect := rpcontract.Standard
		if r.Dialect != "" {
			d, err := rpcontract.ParseDialect(r.Dialect)
			if err != nil {
				return nil, err
			}
			dialect = d
		}
		return &Call{Dialect: dialect, Operation: r.Operation, Instance: r.Instance, Args: nonNilArgs(r.Args)}, nil
	}

	if r.JSONRPC != jsonrpcVersion {
		return nil, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "unsupported jsonrpc version %q", r.JSONRPC)
	}
	if r.Method == "" {
		return nil, rpcontract.NewError(rpcontract.CodeInvalidArgument, "method is required")
	}
	call := &Call{Dialect: rpcontract.JSONRPC, Operation: r.Method, Args: []json.RawMessage{}}
	params := bytes.TrimSpace(r.Params)
	switch {
	case len(params) == 0 || bytes.Equal(params, []byte("null")):
	case params[0] == '[':
		if err := json.Unmarshal(params, &call.Args); err != nil {
			return nil, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "decode params: %v", err)
		}
	case params[0] == '{':
		var p struct {
			Instance json.RawMessage   `json:"instance"`
			Args     []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "decode params: %v", err)
		}
		call.Instance = p.Instance
		call.Args = nonNilArgs(p.Args)
	default:
		return nil, rpcontract.NewError(rpcontract.CodeInvalidArgument, "params must be an array or an object")
	}
	return call, nil
}

func nonNilArgs(args []json.RawMessage) []json.RawMessage {
	if args == nil {
		return []json.RawMessage{}
	}
	return args
}

func jsonrpcCode(c rpcontract.ErrorCode) int {
	switch c {
	case rpcontract.CodeInvalidArgument:
		return jsonrpcInvalidParams
	case rpcontract.CodeNotFound:
		return jsonrpcMethodNotFound
	case rpcontract.CodeMethodNotAllowed:
		return jsonrpcInvalidRequest
	case rpcontract.CodeInternal:
		return jsonrpcInternalError
	default:
		return jsonrpcServerError
	}
}

// asError recovers the coded error of a JSON-RPC error object. Servers
// other than this package's send no data member.
func (e *jsonrpcError) asError() *rpcontract.Error {
	if e.Data != nil && e.Data.Code != "" {
		return e.Data
	}
	code := rpcontract.CodeInternal
	switch e.Code {
	case jsonrpcInvalidParams, jsonrpcInvalidRequest:
		code = rpcontract.CodeInvalidArgument
	case jsonrpcMethodNotFound:
		code = rpcontract.CodeNotFound
	}
	return rpcontract.NewError(code, e.Message).WithDetail("jsonrpcCode", e.Code)
}
