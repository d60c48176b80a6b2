// Package testutil provides testing helpers for code that uses generated
// proxies and for handlers that write the rpcontract response envelopes.
package testutil

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/broady/rpcontract"
)

// Transport is a fake rpcontract.Transport. It records every invocation
// and answers from canned replies keyed by operation. Operations without
// a reply fail with CodeNotFound.
type Transport struct {
	mu      sync.Mutex
	calls   []rpcontract.Invocation
	replies map[string]reply
}

type reply struct {
	result json.RawMessage
	err    error
}

var _ rpcontract.Transport = (*Transport)(nil)

// NewTransport returns a Transport with no replies.
func NewTransport() *Transport {
	return &Transport{replies: make(map[string]reply)}
}

// Reply makes operation succeed with v encoded as JSON.
func (t *Transport) Reply(operation string, v any) *Transport {
	data, err := json.Marshal(v)
	if err != nil {
		panic("testutil: cannot encode reply for " + operation + ": " + err.Error())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[operation] = reply{result: data}
	return t
}

// Fail makes operation fail with err.
func (t *Transport) Fail(operation string, err error) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[operation] = reply{err: err}
	return t
}

// Invoke implements rpcontract.Transport.
func (t *Transport) Invoke(ctx context.Context, inv rpcontract.Invocation) (json.RawMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, inv)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := t.replies[inv.Operation]
	if !ok {
		return nil, rpcontract.Errorf(rpcontract.CodeNotFound, "no reply for %s", inv.Operation)
	}
	return r.result, r.err
}

// Calls returns the recorded invocations in order.
func (t *Transport) Calls() []rpcontract.Invocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]rpcontract.Invocation(nil), t.calls...)
}

// AssertCalled checks that operation was invoked with args, compared as
// JSON.
func (t *Transport) AssertCalled(tb testing.TB, operation string, args ...any) {
	tb.Helper()
	want := jsonString(tb, nonNil(args))
	var seen []string
	for _, c := range t.Calls() {
		if c.Operation != operation {
			continue
		}
		got := jsonString(tb, c.Args)
		if got == want {
			return
		}
		seen = append(seen, got)
	}
	if len(seen) == 0 {
		tb.Errorf("%s was not invoked", operation)
		return
	}
	tb.Errorf("%s invoked with %s, want %s", operation, strings.Join(seen, " and "), want)
}

func nonNil(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

func jsonString(tb testing.TB, v any) string {
	tb.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("encode %v: %v", v, err)
	}
	var norm any
	if err := json.Unmarshal(data, &norm); err != nil {
		tb.Fatalf("decode %s: %v", data, err)
	}
	data, _ = json.Marshal(norm)
	return string(data)
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(tb testing.TB, w *httptest.ResponseRecorder, expectedStatus int) {
	tb.Helper()
	if w.Code != expectedStatus {
		tb.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// AssertResult checks that the body is a {"result": ...} envelope whose
// result equals expected, compared as JSON.
func AssertResult(tb testing.TB, w *httptest.ResponseRecorder, expected any) {
	tb.Helper()
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		tb.Errorf("expected Content-Type to contain application/json, got %s", ct)
	}

	var env struct {
		Result json.RawMessage   `json:"result"`
		Error  *rpcontract.Error `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		tb.Fatalf("failed to decode response: %v\nBody: %s", err, w.Body.String())
	}
	if env.Error != nil {
		tb.Fatalf("expected a result, got error %v", env.Error)
	}

	var actual any
	if err := json.Unmarshal(env.Result, &actual); err != nil {
		tb.Fatalf("failed to decode result: %v\nBody: %s", err, w.Body.String())
	}
	if got, want := jsonString(tb, actual), jsonString(tb, expected); got != want {
		tb.Errorf("result mismatch:\nExpected:\n%s\nActual:\n%s", want, got)
	}
}

// AssertError checks that the body is an {"error": ...} envelope with the
// expected code and returns the error.
func AssertError(tb testing.TB, w *httptest.ResponseRecorder, expectedCode rpcontract.ErrorCode) *rpcontract.Error {
	tb.Helper()
	var env struct {
		Error *rpcontract.Error `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		tb.Fatalf("failed to decode error response: %v\nBody: %s", err, w.Body.String())
	}
	if env.Error == nil {
		tb.Fatalf("expected error %s, got none\nBody: %s", expectedCode, w.Body.String())
	}
	if env.Error.Code != expectedCode {
		tb.Errorf("expected error code %s, got %s (message: %s)", expectedCode, env.Error.Code, env.Error.Message)
	}
	return env.Error
}
