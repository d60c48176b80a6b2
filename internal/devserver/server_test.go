package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/emit"
	"github.com/broady/rpcontract/model"
	"github.com/broady/rpcontract/provider"
	"github.com/broady/rpcontract/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Book struct {
	ISBN string `json:"isbn"`
}

type LibraryFactory interface {
	Books() BookContext
	Loans() LoanContext
}

type BookContext interface {
	Find(isbn string) rpcontract.Request[Book]
	Shelve(b Book) rpcontract.Request[bool]
}

type LoanContext interface {
	rpcontract.JSONRPCService
	Borrow() rpcontract.InstanceRequest[Book, bool]
}

func librarySchema(t *testing.T) *model.Schema {
	t.Helper()
	p := &provider.ReflectionProvider{}
	schema, err := p.BuildSchema(context.Background(), provider.ReflectionInputOptions{
		Factories: []reflect.Type{reflect.TypeFor[LibraryFactory]()},
	})
	require.NoError(t, err)
	return schema
}

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	s := New(slog.New(slog.NewTextHandler(&buf, nil)))
	s.Update(librarySchema(t), "k1")
	return s, &buf
}

type contextsResponse struct {
	Result []ContextSummary  `json:"result"`
	Error  *rpcontract.Error `json:"error"`
}

func getContexts(t *testing.T, h http.Handler, query string) (int, contextsResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/contexts"+query, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp contextsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w.Code, resp
}

func TestContexts(t *testing.T) {
	s, _ := newTestServer(t)
	code, resp := getContexts(t, s.Handler(), "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Result, 2)

	books := resp.Result[0]
	assert.Equal(t, "Books", books.Method)
	assert.Equal(t, "BookContextImpl", books.Impl[strings.LastIndex(books.Impl, ".")+1:])
	assert.Equal(t, rpcontract.Standard, books.Dialect)
	assert.Len(t, books.Operations, 2)

	loans := resp.Result[1]
	assert.Equal(t, rpcontract.JSONRPC, loans.Dialect)
	require.Len(t, loans.Operations, 1)
	assert.True(t, strings.HasSuffix(loans.Operations[0], "::Borrow"), loans.Operations[0])
}

func TestContexts_Filter(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"dialect", "?dialect=JSON_RPC", []string{"Loans"}},
		{"name", "?name=book", []string{"Books"}},
		{"name matches method", "?name=LOANS", []string{"Loans"}},
		{"limit", "?limit=1", []string{"Books"}},
		{"unknown package", "?package=example.com/none", nil},
		{"unknown keys ignored", "?color=blue", []string{"Books", "Loans"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := getContexts(t, h, tt.query)
			require.Equal(t, http.StatusOK, code)
			var got []string
			for _, c := range resp.Result {
				got = append(got, c.Method)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContexts_BadQuery(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"bad dialect", "?dialect=SOAP", "Dialect"},
		{"negative limit", "?limit=-1", "Limit"},
		{"limit too large", "?limit=5000", "Limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := getContexts(t, h, tt.query)
			assert.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, rpcontract.CodeInvalidArgument, resp.Error.Code)
			assert.Contains(t, resp.Error.Details, tt.field)
		})
	}

	code, resp := getContexts(t, h, "?limit=ten")
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcontract.CodeInvalidArgument, resp.Error.Code)
}

func TestNoModel(t *testing.T) {
	h := New(nil).Handler()
	for _, path := range []string{"/contexts", "/discovery.json"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), `"not_found"`, path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	for _, path := range []string{"/contexts", "/discovery.json"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
	e := testutil.AssertError(t, w, rpcontract.CodeNotFound)
	assert.Contains(t, e.Message, "/nope")
}

func TestDiscovery(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/discovery.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	want, err := emit.Discovery(librarySchema(t), "k1")
	require.NoError(t, err)
	assert.Equal(t, string(want), w.Body.String())

	// Update swaps the served model.
	s.Update(librarySchema(t), "k2")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discovery.json", nil))
	var doc struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "k2", doc.Key)
}
