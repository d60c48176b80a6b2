package provider

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/model"
	"github.com/broady/rpcontract/resources"
	"github.com/google/go-cmp/cmp"
)

const testdataPkg = "github.com/broady/rpcontract/provider/testdata/"

// requestSummary flattens a request method for comparison.
type requestSummary struct {
	Name        string
	Operation   string
	Params      []model.Parameter
	Result      string
	Instance    string
	InstanceArg string
	Imports     []string
}

func summarize(methods []*model.ServiceRequestMethod) []requestSummary {
	var out []requestSummary
	for _, m := range methods {
		out = append(out, requestSummary{
			Name:        m.Name(),
			Operation:   m.OperationName(),
			Params:      m.Parameters(),
			Result:      m.ResultType(),
			Instance:    m.InstanceType(),
			InstanceArg: m.InstanceParameter(),
			Imports:     m.Imports(),
		})
	}
	return out
}

func loadAPI(t *testing.T, reqs resources.Requirements) *model.Schema {
	t.Helper()
	provider := &SourceProvider{}
	schema, err := provider.BuildSchema(context.Background(), SourceInputOptions{
		Packages:     []string{testdataPkg + "api"},
		Requirements: reqs,
	})
	if err != nil {
		t.Fatalf("BuildSchema failed: %v", err)
	}
	return schema
}

func TestSourceProvider_Factories(t *testing.T) {
	schema := loadAPI(t, nil)

	var names []string
	for _, f := range schema.Factories {
		names = append(names, f.QualifiedName())
	}
	want := []string{testdataPkg + "api.AppFactory", testdataPkg + "api.AdminFactory"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("factories mismatch (-want +got):\n%s", diff)
	}

	if errs := schema.Validate(); len(errs) > 0 {
		t.Errorf("Validate() = %v", errs)
	}
	if diff := cmp.Diff([]string{testdataPkg + "api"}, schema.Packages); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceProvider_ContextMethods(t *testing.T) {
	schema := loadAPI(t, nil)
	app := schema.FindFactory(testdataPkg + "api.AppFactory")
	if app == nil {
		t.Fatal("AppFactory not found")
	}

	contexts := app.ContextMethods()
	if len(contexts) != 2 {
		t.Fatalf("got %d context methods, want 2: %v", len(contexts), contexts)
	}

	tests := []struct {
		method  string
		impl    string
		iface   string
		dialect rpcontract.Dialect
	}{
		{"Todos", "TodoContextImpl", testdataPkg + "api.TodoContext", rpcontract.Standard},
		{"Users", "UserContextImpl", testdataPkg + "api.UserContext", rpcontract.JSONRPC},
	}
	for i, tt := range tests {
		c := contexts[i]
		if c.MethodName() != tt.method {
			t.Errorf("contexts[%d].MethodName() = %q, want %q", i, c.MethodName(), tt.method)
		}
		if c.ImplSimpleName() != tt.impl {
			t.Errorf("%s: ImplSimpleName() = %q, want %q", tt.method, c.ImplSimpleName(), tt.impl)
		}
		if c.InterfaceQualifiedName() != tt.iface {
			t.Errorf("%s: InterfaceQualifiedName() = %q, want %q", tt.method, c.InterfaceQualifiedName(), tt.iface)
		}
		if c.PackageName() != testdataPkg+"api" {
			t.Errorf("%s: PackageName() = %q", tt.method, c.PackageName())
		}
		if c.Dialect() != tt.dialect {
			t.Errorf("%s: Dialect() = %v, want %v", tt.method, c.Dialect(), tt.dialect)
		}
	}

	admin := schema.FindContext(testdataPkg + "api.AdminContextImpl")
	if admin == nil {
		t.Fatal("AdminContextImpl not found")
	}
	if admin.Dialect() != rpcontract.JSONRPC {
		t.Errorf("//rpc:jsonrpc context has dialect %v", admin.Dialect())
	}
}

func TestSourceProvider_FactoryParamsWarning(t *testing.T) {
	schema := loadAPI(t, nil)
	var found bool
	for _, w := range schema.Warnings {
		if w.Code == WarnFactoryParams && strings.Contains(w.Message, "AppFactory.Lookup") {
			found = true
			if !strings.Contains(w.Position, "api.go:") {
				t.Errorf("warning position = %q", w.Position)
			}
		}
	}
	if !found {
		t.Errorf("expected %s warning for Lookup, got %v", WarnFactoryParams, schema.Warnings)
	}
}

func TestSourceProvider_RequestMethods(t *testing.T) {
	schema := loadAPI(t, nil)
	todos := schema.FindContext(testdataPkg + "api.TodoContextImpl")
	if todos == nil {
		t.Fatal("TodoContextImpl not found")
	}

	op := testdataPkg + "api.TodoContext::"
	want := []requestSummary{
		{Name: "List", Operation: op + "List", Params: []model.Parameter{{Name: "limit", Type: "int"}}, Result: "[]Todo"},
		{Name: "Save", Operation: op + "Save", Params: []model.Parameter{{Name: "t", Type: "Todo"}}, Result: "Todo"},
		{Name: "MarkDone", Operation: op + "MarkDone", Params: []model.Parameter{{Name: "note", Type: "string"}}, Result: "Todo", Instance: "Todo"},
		{Name: "Delete", Operation: op + "Delete", Result: "bool", Instance: "Todo", InstanceArg: "t"},
		{Name: "Touch", Operation: op + "Touch", Params: []model.Parameter{{Name: "at", Type: "time.Time"}}, Result: "Todo", Instance: "Todo", InstanceArg: "instance", Imports: []string{"time"}},
		{Name: "Tag", Operation: op + "Tag", Params: []model.Parameter{{Name: "tags", Type: "...string"}}, Result: "[]string"},
	}
	if diff := cmp.Diff(want, summarize(todos.RequestMethods())); diff != "" {
		t.Errorf("request methods mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceProvider_EmbeddedMethods(t *testing.T) {
	schema := loadAPI(t, nil)

	users := schema.FindContext(testdataPkg + "api.UserContextImpl")
	if got := summarize(users.RequestMethods()); len(got) != 1 || got[0].Name != "Me" || got[0].Result != "*User" {
		t.Errorf("marker method leaked into requests: %+v", got)
	}

	admin := schema.FindContext(testdataPkg + "api.AdminContextImpl")
	op := testdataPkg + "api.AdminContext::"
	want := []requestSummary{
		{
			Name:      "Changes",
			Operation: op + "Changes",
			Params:    []model.Parameter{{Name: "since", Type: "time.Time"}},
			Result:    "[]rpcontract.ProxyChange",
			Imports:   []string{"time", "github.com/broady/rpcontract"},
		},
		{Name: "Audit", Operation: op + "Audit", Result: "map[string]int"},
	}
	if diff := cmp.Diff(want, summarize(admin.RequestMethods())); diff != "" {
		t.Errorf("request methods mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceProvider_Requirements(t *testing.T) {
	reqs := resources.NewCollector(nil)
	loadAPI(t, reqs)

	if got := reqs.Resources(); !slices.Contains(got, testdataPkg+"api/api.go") {
		t.Errorf("Resources() = %v, want api.go", got)
	}
	types := reqs.Types()
	for _, name := range []string{"TodoContext", "UserContext", "AdminContext", "Auditable"} {
		if !slices.Contains(types, testdataPkg+"api."+name) {
			t.Errorf("Types() = %v, missing %s", types, name)
		}
	}
	if !slices.Contains(types, "github.com/broady/rpcontract.JSONRPCService") {
		t.Errorf("Types() = %v, missing embedded marker", types)
	}
	if _, err := reqs.Key(); err != nil {
		t.Errorf("Key() error = %v", err)
	}
}

func TestSourceProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		packages []string
		code     rpcontract.ErrorCode
		wantErr  string
	}{
		{
			name:    "no packages",
			code:    rpcontract.CodeInvalidArgument,
			wantErr: "no packages specified",
		},
		{
			name:     "request method without request result",
			packages: []string{testdataPkg + "badrequest"},
			code:     rpcontract.CodeInvalidReturnType,
			wantErr:  "WidgetContext.Count",
		},
		{
			name:     "factory method returning primitive",
			packages: []string{testdataPkg + "primitive"},
			code:     rpcontract.CodeInvalidReturnType,
			wantErr:  "Factory.Count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &SourceProvider{}
			_, err := provider.BuildSchema(context.Background(), SourceInputOptions{Packages: tt.packages})
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, &rpcontract.Error{Code: tt.code}) {
				t.Errorf("error %v does not match code %s", err, tt.code)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
