// Package devserver serves the current contract model over HTTP while
// rpcontract gen --watch or rpcontract serve is running.
//
// Endpoints:
//
//	GET /contexts?package=&dialect=&name=&limit=
//	GET /discovery.json
package devserver

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/emit"
	"github.com/broady/rpcontract/model"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate     = validator.New()
	queryDecoder = schema.NewDecoder()
)

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// ContextFilter selects context methods in GET /contexts.
type ContextFilter struct {
	// Package keeps contexts declared in this import path.
	Package string `schema:"package"`

	// Dialect keeps contexts of one dialect, "STANDARD" or "JSON_RPC".
	Dialect string `schema:"dialect" validate:"omitempty,oneof=STANDARD JSON_RPC"`

	// Name keeps contexts whose implementation, interface or method name
	// contains it, ignoring case.
	Name string `schema:"name"`

	// Limit caps the number of results. Zero means no limit.
	Limit int `schema:"limit" validate:"gte=0,lte=1000"`
}

func (f *ContextFilter) match(c *model.ServiceContextMethod) bool {
	if f.Package != "" && c.PackageName() != f.Package {
		return false
	}
	if f.Dialect != "" && c.Dialect().String() != f.Dialect {
		return false
	}
	if f.Name != "" {
		name := strings.ToLower(f.Name)
		found := false
		for _, s := range []string{c.ImplSimpleName(), c.InterfaceSimpleName(), c.MethodName()} {
			if strings.Contains(strings.ToLower(s), name) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ContextSummary is one entry of the GET /contexts result.
type ContextSummary struct {
	Factory    string             `json:"factory"`
	Method     string             `json:"method"`
	Interface  string             `json:"interface"`
	Impl       string             `json:"impl"`
	Dialect    rpcontract.Dialect `json:"dialect"`
	Operations []string           `json:"operations"`
}

// Server holds the latest generated model.
type Server struct {
	logger *slog.Logger

	mu     sync.RWMutex
	schema *model.Schema
	key    string
}

// New returns a Server with no model. Until Update is called every
// endpoint reports not_found.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger}
}

// Update replaces the served model.
func (s *Server) Update(schema *model.Schema, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = schema
	s.key = key
}

func (s *Server) current() (*model.Schema, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema, s.key
}

// Handler returns the HTTP handler with request logging and permissive
// CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/contexts", s.handleContexts)
	mux.HandleFunc("/discovery.json", s.handleDiscovery)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		rpcontract.WriteError(w, rpcontract.Errorf(rpcontract.CodeNotFound, "no endpoint %s", r.URL.Path), s.logger)
	})
	return Logging(s.logger)(CORS(nil)(mux))
}

func (s *Server) handleContexts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rpcontract.WriteError(w, rpcontract.Errorf(rpcontract.CodeMethodNotAllowed, "method %s not allowed", r.Method), s.logger)
		return
	}

	var filter ContextFilter
	if err := queryDecoder.Decode(&filter, r.URL.Query()); err != nil {
		rpcontract.WriteError(w, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "failed to decode query: %v", err), s.logger)
		return
	}
	if err := validate.Struct(&filter); err != nil {
		rpcontract.WriteError(w, err, s.logger)
		return
	}

	schema, _ := s.current()
	if schema == nil {
		rpcontract.WriteError(w, rpcontract.NewError(rpcontract.CodeNotFound, "no model generated yet"), s.logger)
		return
	}

	out := []ContextSummary{}
	for _, f := range schema.Factories {
		for _, c := range f.ContextMethods() {
			if !filter.match(c) {
				continue
			}
			summary := ContextSummary{
				Factory:    f.QualifiedName(),
				Method:     c.MethodName(),
				Interface:  c.InterfaceQualifiedName(),
				Impl:       c.QualifiedImplName(),
				Dialect:    c.Dialect(),
				Operations: []string{},
			}
			for _, m := range c.RequestMethods() {
				summary.Operations = append(summary.Operations, m.OperationName())
			}
			out = append(out, summary)
			if filter.Limit > 0 && len(out) == filter.Limit {
				rpcontract.WriteResult(w, out, s.logger)
				return
			}
		}
	}
	rpcontract.WriteResult(w, out, s.logger)
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rpcontract.WriteError(w, rpcontract.Errorf(rpcontract.CodeMethodNotAllowed, "method %s not allowed", r.Method), s.logger)
		return
	}
	schema, key := s.current()
	if schema == nil {
		rpcontract.WriteError(w, rpcontract.NewError(rpcontract.CodeNotFound, "no model generated yet"), s.logger)
		return
	}
	data, err := emit.Discovery(schema, key)
	if err != nil {
		rpcontract.WriteError(w, err, s.logger)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write discovery document", slog.Any("error", err))
	}
}
