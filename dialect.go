package rpcontract

// Dialect is the wire protocol style of a request context.
type Dialect int

const (
	// Standard is the default batched request protocol.
	Standard Dialect = iota
	// JSONRPC is selected when the context interface carries the JSON-RPC marker.
	JSONRPC
)

func (d Dialect) String() string {
	switch d {
	case Standard:
		return "STANDARD"
	case JSONRPC:
		return "JSON_RPC"
	default:
		return "UNKNOWN"
	}
}

// ParseDialect is the inverse of Dialect.String.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "STANDARD":
		return Standard, nil
	case "JSON_RPC":
		return JSONRPC, nil
	default:
		return 0, Errorf(CodeInvalidArgument, "unknown dialect %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Dialect) MarshalText() ([]byte, error) {
	if d != Standard && d != JSONRPC {
		return nil, Errorf(CodeInvalidArgument, "invalid dialect %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Dialect) UnmarshalText(text []byte) error {
	parsed, err := ParseDialect(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// JSONRPCService marks a request context interface as speaking JSON-RPC.
// Embed it in the context interface:
//
//	type TodoContext interface {
//	    rpcontract.JSONRPCService
//	    List() Request[[]Todo]
//	}
type JSONRPCService interface {
	JSONRPCService()
}
