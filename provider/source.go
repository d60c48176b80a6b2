// Package provider discovers service contracts in Go code and converts them
// to the model.
//
// Two providers exist. SourceProvider type-checks packages with
// golang.org/x/tools/go/packages and finds factories by directive.
// ReflectionProvider walks reflect.Type values handed to it directly.
package provider

import (
	"cmp"
	"context"
	"fmt"
	"go/token"
	"go/types"
	"path"
	"path/filepath"
	"slices"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/internal/directive"
	"github.com/broady/rpcontract/model"
	"github.com/broady/rpcontract/resources"
	"golang.org/x/tools/go/packages"
)

const rpcontractPath = "github.com/broady/rpcontract"

// Warning codes reported in model.Schema.Warnings.
const (
	WarnFactoryParams = "factory_method_params"
	WarnNoFactories   = "no_factories"
)

// SourceProvider extracts contracts by analyzing Go source code.
type SourceProvider struct{}

// SourceInputOptions configures source-based contract extraction.
type SourceInputOptions struct {
	// Packages are the Go package patterns to analyze.
	Packages []string

	// Dir is the directory packages are resolved from.
	// If empty, the current directory is used.
	Dir string

	// Requirements, if set, receives every source file read and the type
	// hierarchy of every request context found.
	Requirements resources.Requirements
}

// BuildSchema loads the packages and returns a Schema with one factory per
// interface carrying a //rpc:factory directive, in source order.
func (p *SourceProvider) BuildSchema(ctx context.Context, opts SourceInputOptions) (*model.Schema, error) {
	if len(opts.Packages) == 0 {
		return nil, rpcontract.NewError(rpcontract.CodeInvalidArgument, "no packages specified")
	}

	cfg := &packages.Config{
		Context: ctx,
		Dir:     opts.Dir,
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
	}

	pkgs, err := packages.Load(cfg, opts.Packages...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s has errors: %v", pkg.PkgPath, pkg.Errors)
		}
	}

	if len(pkgs) == 0 {
		return nil, rpcontract.Errorf(rpcontract.CodeNotFound, "no packages found matching %v", opts.Packages)
	}

	b := &sourceBuilder{
		schema:     &model.Schema{},
		directives: make(map[string]*directive.File),
		classes:    make(map[*types.TypeName]*sourceClass),
		reqs:       opts.Requirements,
	}

	for _, pkg := range pkgs {
		if err := b.collectDirectives(pkg); err != nil {
			return nil, err
		}
	}
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.extractFactories(pkg); err != nil {
			return nil, err
		}
	}

	if len(b.schema.Factories) == 0 {
		b.schema.AddWarning(model.Warning{
			Code:    WarnNoFactories,
			Message: fmt.Sprintf("no //rpc:factory interfaces found in %v", opts.Packages),
		})
	}
	return b.schema, nil
}

// sourceBuilder accumulates factories across the loaded packages.
type sourceBuilder struct {
	fset       *token.FileSet
	schema     *model.Schema
	directives map[string]*directive.File // key: package path
	classes    map[*types.TypeName]*sourceClass
	reqs       resources.Requirements
}

func (b *sourceBuilder) collectDirectives(pkg *packages.Package) error {
	b.fset = pkg.Fset
	b.schema.Packages = append(b.schema.Packages, pkg.PkgPath)

	dirs := directive.NewFile()
	for _, f := range pkg.Syntax {
		df, err := directive.ParseFile(pkg.Fset, f)
		if err != nil {
			return err
		}
		dirs.Merge(df)
	}
	b.directives[pkg.PkgPath] = dirs

	if b.reqs != nil {
		for _, name := range pkg.GoFiles {
			b.reqs.AddResolvedResource(path.Join(pkg.PkgPath, filepath.Base(name)), resources.FileURL(name))
		}
	}
	return nil
}

// extractFactories finds the factory interfaces of pkg in declaration order.
func (b *sourceBuilder) extractFactories(pkg *packages.Package) error {
	dirs := b.directives[pkg.PkgPath]
	scope := pkg.Types.Scope()

	var factories []*types.TypeName
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !dirs.Type(name).Has(directive.KindFactory) {
			continue
		}
		factories = append(factories, tn)
	}
	slices.SortFunc(factories, func(a, b *types.TypeName) int { return cmp.Compare(a.Pos(), b.Pos()) })

	for _, tn := range factories {
		named, ok := tn.Type().(*types.Named)
		if !ok {
			return fmt.Errorf("%s: //rpc:factory on alias %s", b.pos(tn.Pos()), tn.Name())
		}
		if err := b.buildFactory(named); err != nil {
			return err
		}
	}
	return nil
}

func (b *sourceBuilder) buildFactory(named *types.Named) error {
	class := b.class(named)
	iface, ok := named.Underlying().(*types.Interface)
	if !ok {
		return fmt.Errorf("%s: //rpc:factory on %s, which is not an interface", b.pos(named.Obj().Pos()), class.Name())
	}

	var contexts []*model.ServiceContextMethod
	for _, fn := range methodsInOrder(iface) {
		if isMarkerMethod(fn) {
			continue
		}
		sig := fn.Type().(*types.Signature)
		if sig.Params().Len() > 0 {
			b.schema.AddWarning(model.Warning{
				Code:     WarnFactoryParams,
				Message:  fmt.Sprintf("%s.%s takes parameters and is not a context method", class.Name(), fn.Name()),
				Position: b.pos(fn.Pos()),
			})
			continue
		}

		m := sourceMethod{name: fn.Name(), ret: b.resultType(sig)}
		cb := model.NewContextMethodBuilder()
		if err := cb.SetDeclaredMethod(m); err != nil {
			return fmt.Errorf("%s: %s.%s: %w", b.pos(fn.Pos()), class.Name(), fn.Name(), err)
		}

		ctxClass := m.ret.(sourceType).class
		requests, err := b.requestMethods(ctxClass)
		if err != nil {
			return err
		}
		if err := cb.SetRequestMethods(requests); err != nil {
			return err
		}
		cm, err := cb.Build()
		if err != nil {
			return err
		}
		contexts = append(contexts, cm)

		if b.reqs != nil {
			b.reqs.AddTypeHierarchy(ctxClass)
		}
	}

	b.schema.AddFactory(model.NewFactoryModel(class, contexts))
	return nil
}

// requestMethods converts the methods of a request context interface.
func (b *sourceBuilder) requestMethods(rc *sourceClass) ([]*model.ServiceRequestMethod, error) {
	obj := rc.named.Obj()
	iface, ok := rc.named.Underlying().(*types.Interface)
	if !ok {
		return nil, fmt.Errorf("%s: %w", b.pos(obj.Pos()),
			rpcontract.Errorf(rpcontract.CodeInvalidReturnType, "request context %s is not an interface", rc.QualifiedSourceName()))
	}
	dirs := b.directives[rc.PackageName()]

	var out []*model.ServiceRequestMethod
	for _, fn := range methodsInOrder(iface) {
		if isMarkerMethod(fn) {
			continue
		}
		sig := fn.Type().(*types.Signature)
		rb := model.NewRequestMethodBuilder(rc, fn.Name())
		var importErr error
		qualify := func(p *types.Package) string {
			if p.Path() == rc.PackageName() {
				return ""
			}
			if err := rb.AddImport(importSpec(p.Name(), p.Path())); err != nil {
				importErr = err
			}
			return p.Name()
		}
		typeString := func(t types.Type) string { return types.TypeString(t, qualify) }

		kind, instance, result := requestResult(sig)
		if kind == notRequest {
			return nil, fmt.Errorf("%s: %s.%s: %w", b.pos(fn.Pos()), obj.Name(), fn.Name(),
				rpcontract.Errorf(rpcontract.CodeInvalidReturnType, "must return rpcontract.Request or rpcontract.InstanceRequest, not %s",
					types.TypeString(sig.Results(), qualify)))
		}

		params := sig.Params()
		start := 0
		switch {
		case kind == instanceRequest:
			if err := rb.SetInstanceType(typeString(instance)); err != nil {
				return nil, err
			}
		case dirs.Method(obj.Name(), fn.Name()).Has(directive.KindInstance) ||
			(params.Len() > 0 && params.At(0).Name() == "instance"):
			if params.Len() == 0 {
				return nil, fmt.Errorf("%s: %s.%s is an instance request without an instance parameter",
					b.pos(fn.Pos()), obj.Name(), fn.Name())
			}
			p := params.At(0)
			if err := rb.SetInstanceParameter(paramName(p.Name(), 0), typeString(p.Type())); err != nil {
				return nil, err
			}
			start = 1
		}

		for i := start; i < params.Len(); i++ {
			p := params.At(i)
			typ := typeString(p.Type())
			if sig.Variadic() && i == params.Len()-1 {
				typ = "..." + typeString(p.Type().(*types.Slice).Elem())
			}
			if err := rb.AddParameter(paramName(p.Name(), i), typ); err != nil {
				return nil, err
			}
		}
		if err := rb.SetResultType(typeString(result)); err != nil {
			return nil, err
		}
		if importErr != nil {
			return nil, importErr
		}

		rm, err := rb.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, nil
}

func (b *sourceBuilder) resultType(sig *types.Signature) model.Type {
	switch sig.Results().Len() {
	case 0:
		return nil
	case 1:
		return b.typeOf(sig.Results().At(0).Type())
	default:
		return sourceType{t: sig.Results()}
	}
}

func (b *sourceBuilder) pos(p token.Pos) string {
	if b.fset == nil || !p.IsValid() {
		return ""
	}
	return b.fset.Position(p).String()
}

type requestKind int

const (
	notRequest requestKind = iota
	staticRequest
	instanceRequest
)

// requestResult classifies the single result of sig as rpcontract.Request[T]
// or rpcontract.InstanceRequest[P, T].
func requestResult(sig *types.Signature) (kind requestKind, instance, result types.Type) {
	if sig.Results().Len() != 1 {
		return notRequest, nil, nil
	}
	named, ok := types.Unalias(sig.Results().At(0).Type()).(*types.Named)
	if !ok {
		return notRequest, nil, nil
	}
	obj := named.Obj()
	if obj.Pkg() == nil || obj.Pkg().Path() != rpcontractPath {
		return notRequest, nil, nil
	}
	args := named.TypeArgs()
	switch {
	case obj.Name() == "Request" && args.Len() == 1:
		return staticRequest, nil, args.At(0)
	case obj.Name() == "InstanceRequest" && args.Len() == 2:
		return instanceRequest, args.At(0), args.At(1)
	}
	return notRequest, nil, nil
}

// methodsInOrder returns the complete method set of iface in source order.
func methodsInOrder(iface *types.Interface) []*types.Func {
	methods := make([]*types.Func, iface.NumMethods())
	for i := range methods {
		methods[i] = iface.Method(i)
	}
	slices.SortStableFunc(methods, func(a, b *types.Func) int { return cmp.Compare(a.Pos(), b.Pos()) })
	return methods
}

// isMarkerMethod reports whether fn is rpcontract.JSONRPCService.
func isMarkerMethod(fn *types.Func) bool {
	return fn.Name() == "JSONRPCService" && fn.Pkg() != nil && fn.Pkg().Path() == rpcontractPath
}

func paramName(name string, i int) string {
	if name == "" || name == "_" {
		return fmt.Sprintf("arg%d", i)
	}
	return name
}

// importSpec is path, preceded by name when name is not the last path
// element.
func importSpec(name, importPath string) string {
	if path.Base(importPath) == name {
		return importPath
	}
	return name + " " + importPath
}
