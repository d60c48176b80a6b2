package provider

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/model"
	"github.com/broady/rpcontract/resources"
	"github.com/google/go-cmp/cmp"
)

type note struct {
	Text string `json:"text"`
}

type noteFactory interface {
	Notes() NoteContext
	Feed() FeedContext
	Find(id string) NoteContext
}

type NoteContext interface {
	Save(n note, tags ...string) rpcontract.Request[note]
	Archive() rpcontract.InstanceRequest[*note, bool]
	Since(t time.Time) rpcontract.Request[[]note]
}

type FeedContext interface {
	rpcontract.JSONRPCService
	Latest() rpcontract.Request[map[string]any]
}

type brokenFactory interface {
	Broken() brokenContext
}

type brokenContext interface {
	Count() int
}

type scalarFactory interface {
	Count() int
}

func TestReflectionProvider(t *testing.T) {
	reqs := resources.NewCollector(nil)
	provider := &ReflectionProvider{}
	schema, err := provider.BuildSchema(context.Background(), ReflectionInputOptions{
		Factories:    []reflect.Type{reflect.TypeFor[*noteFactory]()},
		Requirements: reqs,
	})
	if err != nil {
		t.Fatalf("BuildSchema failed: %v", err)
	}

	const pkg = "github.com/broady/rpcontract/provider"
	f := schema.FindFactory(pkg + ".noteFactory")
	if f == nil {
		t.Fatalf("factory not found in %v", schema.Factories)
	}
	if diff := cmp.Diff([]string{pkg}, schema.Packages); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}

	// Methods are in lexical order.
	contexts := f.ContextMethods()
	if len(contexts) != 2 || contexts[0].MethodName() != "Feed" || contexts[1].MethodName() != "Notes" {
		t.Fatalf("context methods = %v", contexts)
	}
	if contexts[0].Dialect() != rpcontract.JSONRPC || contexts[1].Dialect() != rpcontract.Standard {
		t.Errorf("dialects = %v, %v", contexts[0].Dialect(), contexts[1].Dialect())
	}
	if len(schema.Warnings) != 1 || schema.Warnings[0].Code != WarnFactoryParams {
		t.Errorf("warnings = %v", schema.Warnings)
	}

	op := pkg + ".NoteContext::"
	want := []requestSummary{
		{Name: "Archive", Operation: op + "Archive", Result: "bool", Instance: "*note"},
		{
			Name:      "Save",
			Operation: op + "Save",
			Params:    []model.Parameter{{Name: "arg0", Type: "note"}, {Name: "arg1", Type: "...string"}},
			Result:    "note",
		},
		{
			Name:      "Since",
			Operation: op + "Since",
			Params:    []model.Parameter{{Name: "arg0", Type: "time.Time"}},
			Result:    "[]note",
			Imports:   []string{"time"},
		},
	}
	if diff := cmp.Diff(want, summarize(contexts[1].RequestMethods())); diff != "" {
		t.Errorf("request methods mismatch (-want +got):\n%s", diff)
	}

	feed := summarize(contexts[0].RequestMethods())
	if len(feed) != 1 || feed[0].Result != "map[string]any" {
		t.Errorf("feed requests = %+v", feed)
	}

	if diff := cmp.Diff([]string{pkg + ".FeedContext", pkg + ".NoteContext"}, reqs.Types()); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestReflectionProvider_Errors(t *testing.T) {
	tests := []struct {
		name      string
		factories []reflect.Type
		code      rpcontract.ErrorCode
	}{
		{"no factories", nil, rpcontract.CodeInvalidArgument},
		{"nil factory", []reflect.Type{nil}, rpcontract.CodeInvalidArgument},
		{"struct factory", []reflect.Type{reflect.TypeFor[note]()}, rpcontract.CodeInvalidArgument},
		{"non-request method", []reflect.Type{reflect.TypeFor[brokenFactory]()}, rpcontract.CodeInvalidReturnType},
		{"scalar context", []reflect.Type{reflect.TypeFor[scalarFactory]()}, rpcontract.CodeInvalidReturnType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &ReflectionProvider{}
			_, err := provider.BuildSchema(context.Background(), ReflectionInputOptions{Factories: tt.factories})
			if !errors.Is(err, &rpcontract.Error{Code: tt.code}) {
				t.Errorf("BuildSchema() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestReflectionProvider_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &ReflectionProvider{}
	_, err := provider.BuildSchema(ctx, ReflectionInputOptions{Factories: []reflect.Type{reflect.TypeFor[noteFactory]()}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("BuildSchema() error = %v, want context.Canceled", err)
	}
}
