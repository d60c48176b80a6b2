// Package dispatch serves request operations on the server side and
// provides an HTTP rpcontract.Transport for generated proxies.
//
// A Server maps operation names, as produced by model.OperationName, to
// handlers:
//
//	s := dispatch.NewServer().WithInterceptor(dispatch.LoggingInterceptor(nil))
//	s.Handle("example.com/api.TodoContext::List", dispatch.Func1(todos.List))
//	http.ListenAndServe(":8080", s)
//
// The same Server is a Transport, so proxies can be exercised in-process.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/model"
)

// ErrorTransformer maps a handler error to the error sent to the client.
// Returning nil falls back to rpcontract.AsError.
type ErrorTransformer func(error) *rpcontract.Error

// Server dispatches invocations to registered handlers.
type Server struct {
	mu                 sync.RWMutex
	handlers           map[string]HandlerFunc
	interceptors       []Interceptor
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	logger             *slog.Logger
	maxRequestBodySize int64
}

var _ rpcontract.Transport = (*Server)(nil)

// NewServer returns a Server with no handlers and a 1MB body limit.
func NewServer() *Server {
	return &Server{
		handlers:           make(map[string]HandlerFunc),
		maxRequestBodySize: 1 << 20,
	}
}

// WithInterceptor adds an interceptor. Interceptors run in the order they
// were added.
func (s *Server) WithInterceptor(i Interceptor) *Server {
	s.interceptors = append(s.interceptors, i)
	return s
}

// WithErrorTransformer sets a custom error transformer.
func (s *Server) WithErrorTransformer(fn ErrorTransformer) *Server {
	s.errorTransformer = fn
	return s
}

// WithMaskInternalErrors replaces the message of internal errors sent over
// HTTP. Interceptors still see the original error.
func (s *Server) WithMaskInternalErrors() *Server {
	s.maskInternalErrors = true
	return s
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.logger = logger
	return s
}

// WithMaxRequestBodySize sets the maximum request body size. Zero means no
// limit.
func (s *Server) WithMaxRequestBodySize(size int64) *Server {
	s.maxRequestBodySize = size
	return s
}

func (s *Server) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// Handle registers h for operation. Registering an operation twice
// replaces the handler and logs a warning.
func (s *Server) Handle(operation string, h HandlerFunc) {
	if h == nil {
		panic("dispatch: nil handler for " + operation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.handlers[operation]; exists {
		s.log().Warn("duplicate operation registration", slog.String("operation", operation))
	}
	s.handlers[operation] = h
}

// Operations returns the registered operation names, sorted.
func (s *Server) Operations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.handlers))
}

// Missing returns the operations declared in schema that have no handler,
// in schema order.
func (s *Server) Missing(schema *model.Schema) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := &missingVisitor{handlers: s.handlers}
	schema.Accept(v)
	return v.missing
}

type missingVisitor struct {
	model.BaseVisitor
	handlers map[string]HandlerFunc
	missing  []string
}

func (v *missingVisitor) VisitRequestMethod(m *model.ServiceRequestMethod) bool {
	op := m.OperationName()
	if _, ok := v.handlers[op]; !ok && !slices.Contains(v.missing, op) {
		v.missing = append(v.missing, op)
	}
	return false
}

// dispatch runs the interceptor chain and handler for call, recovering
// panics as internal errors.
func (s *Server) dispatch(ctx context.Context, call *Call) (res any, err error) {
	s.mu.RLock()
	h, ok := s.handlers[call.Operation]
	s.mu.RUnlock()
	if !ok {
		return nil, rpcontract.Errorf(rpcontract.CodeNotFound, "unknown operation %s", call.Operation)
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.log().ErrorContext(ctx, "PANIC recovered",
				slog.String("operation", call.Operation),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			res, err = nil, rpcontract.Errorf(rpcontract.CodeInternal, "internal server error (panic): %v", rec)
		}
	}()
	return chain(s.interceptors, h)(withCall(ctx, call), call)
}

// Invoke implements rpcontract.Transport by dispatching in-process.
// Arguments and the instance are encoded to JSON first, so handlers see
// exactly what they would over HTTP.
func (s *Server) Invoke(ctx context.Context, inv rpcontract.Invocation) (json.RawMessage, error) {
	call := &Call{Dialect: inv.Dialect, Operation: inv.Operation, Args: make([]json.RawMessage, len(inv.Args))}
	for i, a := range inv.Args {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "encode argument %d: %v", i, err)
		}
		call.Args[i] = data
	}
	if inv.Instance != nil {
		data, err := json.Marshal(inv.Instance)
		if err != nil {
			return nil, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "encode instance: %v", err)
		}
		call.Instance = data
	}

	res, err := s.dispatch(ctx, call)
	if err != nil {
		return nil, s.transform(err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, rpcontract.Errorf(rpcontract.CodeInternal, "encode result: %v", err)
	}
	return data, nil
}

// ServeHTTP decodes a POSTed invocation in either dialect, dispatches it
// and writes the matching response envelope.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := s.log()
	if r.Method != http.MethodPost {
		rpcontract.WriteError(w, rpcontract.Errorf(rpcontract.CodeMethodNotAllowed, "method %s not allowed, expected POST", r.Method), logger)
		return
	}

	body := io.Reader(r.Body)
	if s.maxRequestBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxRequestBodySize)
	}
	var req wireRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rpcontract.WriteError(w, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "request body exceeds %d bytes", tooLarge.Limit), logger)
			return
		}
		rpcontract.WriteError(w, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "failed to decode body: %v", err), logger)
		return
	}

	call, err := req.call()
	if err != nil {
		if req.JSONRPC != "" {
			s.writeJSONRPC(w, req.ID, nil, err)
			return
		}
		rpcontract.WriteError(w, err, logger)
		return
	}

	res, err := s.dispatch(withHTTP(r.Context(), w, r), call)
	if req.JSONRPC != "" {
		s.writeJSONRPC(w, req.ID, res, err)
		return
	}
	if err != nil {
		rpcontract.WriteError(w, s.mask(s.transform(err)), logger)
		return
	}
	rpcontract.WriteResult(w, res, logger)
}

func (s *Server) writeJSONRPC(w http.ResponseWriter, id json.RawMessage, res any, err error) {
	resp := jsonrpcResponse{JSONRPC: jsonrpcVersion, ID: id}
	if len(resp.ID) == 0 {
		resp.ID = json.RawMessage("null")
	}
	if err == nil {
		data, merr := json.Marshal(res)
		if merr != nil {
			err = rpcontract.Errorf(rpcontract.CodeInternal, "encode result: %v", merr)
		} else {
			resp.Result = data
		}
	}
	if err != nil {
		e := s.mask(s.transform(err))
		resp.Error = &jsonrpcError{Code: jsonrpcCode(e.Code), Message: e.Message, Data: e}
	}

	w.Header().Set("Content-Type", "application/json")
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		s.log().Error("failed to encode jsonrpc response", slog.Any("error", encErr))
	}
}

func (s *Server) transform(err error) *rpcontract.Error {
	if s.errorTransformer != nil {
		if e := s.errorTransformer(err); e != nil {
			return e
		}
	}
	return rpcontract.AsError(err)
}

func (s *Server) mask(e *rpcontract.Error) *rpcontract.Error {
	if s.maskInternalErrors && e.Code == rpcontract.CodeInternal {
		return rpcontract.NewError(rpcontract.CodeInternal, "internal server error")
	}
	return e
}

// String lists the registered operations.
func (s *Server) String() string {
	return fmt.Sprintf("dispatch.Server%v", s.Operations())
}
