package rpcontract

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestNewError(t *testing.T) {
	err := NewError(CodeNotFound, "context not found")
	if err.Code != CodeNotFound {
		t.Errorf("expected code %s, got %s", CodeNotFound, err.Code)
	}
	if err.Error() != "not_found: context not found" {
		t.Errorf("unexpected Error() %q", err.Error())
	}
}

func TestErrorIsMatchesCode(t *testing.T) {
	wrapped := fmt.Errorf("set declared method Foo: %w", Errorf(CodeInvalidReturnType, "int is not a class"))
	if !errors.Is(wrapped, ErrInvalidReturnType) {
		t.Error("expected wrapped error to match ErrInvalidReturnType")
	}
	if errors.Is(wrapped, ErrBuilderConsumed) {
		t.Error("did not expect wrapped error to match ErrBuilderConsumed")
	}
}

func TestWithDetail(t *testing.T) {
	base := NewError(CodeBadPropertyValue, "no such property")
	e := base.WithDetail("property", "user.agent")
	if base.Details != nil {
		t.Error("WithDetail mutated the receiver")
	}
	if e.Details["property"] != "user.agent" {
		t.Errorf("details = %v", e.Details)
	}
}

func TestAsError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			name:     "passthrough",
			input:    ErrBuilderConsumed,
			wantCode: CodeBuilderConsumed,
			wantMsg:  "builder already built",
		},
		{
			name:     "wrapped keeps code and full message",
			input:    fmt.Errorf("build: %w", ErrBuilderConsumed),
			wantCode: CodeBuilderConsumed,
			wantMsg:  "build: builder_consumed: builder already built",
		},
		{
			name:     "generic error",
			input:    errors.New("boom"),
			wantCode: CodeInternal,
			wantMsg:  "boom",
		},
		{
			name:     "joined errors use first code",
			input:    errors.Join(ErrInvalidReturnType, errors.New("second")),
			wantCode: CodeInvalidReturnType,
			wantMsg:  "invalid_return_type: return type is not a class or interface; second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsError(tt.input)
			if got.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}

	if AsError(nil) != nil {
		t.Error("AsError(nil) should be nil")
	}
}

func TestAsError_ValidationErrors(t *testing.T) {
	type filter struct {
		Dialect string `validate:"omitempty,oneof=STANDARD JSON_RPC"`
		OutDir  string `validate:"required"`
		Limit   int    `validate:"gte=0,lte=1000"`
	}

	err := validator.New().Struct(filter{Dialect: "SOAP", Limit: 5000})
	got := AsError(err)
	if got.Code != CodeInvalidArgument {
		t.Fatalf("code = %s, want %s", got.Code, CodeInvalidArgument)
	}
	if _, ok := got.Details["Dialect"]; !ok {
		t.Error("expected Dialect in details")
	}
	if got.Details["OutDir"] != "required" {
		t.Errorf("OutDir detail = %v", got.Details["OutDir"])
	}
	if got.Details["Limit"] != "must be at most 1000" {
		t.Errorf("Limit detail = %v", got.Details["Limit"])
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeBadPropertyValue, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{CodeInvalidModel, http.StatusUnprocessableEntity},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, NewError(CodeNotFound, "no context Foo"), nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var body struct {
		Error Error `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != CodeNotFound || !strings.Contains(body.Error.Message, "Foo") {
		t.Errorf("unexpected body %+v", body.Error)
	}
}

func TestWriteResult(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResult(w, map[string]int{"contexts": 2}, nil)

	if got := strings.TrimSpace(w.Body.String()); got != `{"result":{"contexts":2}}` {
		t.Errorf("body = %s", got)
	}
}
