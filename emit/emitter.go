// Package emit renders a contract schema as Go proxy implementations and a
// discovery document.
package emit

import (
	"bytes"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/model"
	"golang.org/x/tools/imports"
)

const (
	rpcontractImport = "github.com/broady/rpcontract"

	// DiscoveryFile is the name of the discovery document.
	DiscoveryFile = "discovery.json"

	header = "// Code generated by rpcontract. DO NOT EDIT.\n\n"
)

// Options configures emission.
type Options struct {
	// PackageName is the package clause of the generated files. If empty
	// it is derived from the import path of the contexts.
	PackageName string

	// Discovery also emits DiscoveryFile.
	Discovery bool

	// Key is recorded in the discovery document. It identifies the inputs
	// the output was generated from.
	Key string
}

// File is one generated output.
type File struct {
	// Path is relative to the output root, using forward slashes.
	Path    string
	Content []byte
}

// Emit renders one file per request context and one per factory, in schema
// order. All of them must belong to a single Go package.
func Emit(schema *model.Schema, opts Options) ([]File, error) {
	e := &emitter{opts: opts, paths: make(map[string]string)}
	schema.Accept(e)
	if e.err != nil {
		return nil, e.err
	}

	if opts.Discovery {
		data, err := Discovery(schema, opts.Key)
		if err != nil {
			return nil, err
		}
		e.files = append(e.files, File{Path: DiscoveryFile, Content: data})
	}
	return e.files, nil
}

// emitter is a model.Visitor that writes a context implementation across
// VisitContextMethod, VisitRequestMethod and EndVisitContextMethod.
type emitter struct {
	model.BaseVisitor
	opts Options

	pkgPath string
	pkgName string
	paths   map[string]string // output path -> qualified impl name
	files   []File
	err     error

	// State for the context being written.
	ctx     *model.ServiceContextMethod
	recv    string
	imports []string
	body    bytes.Buffer
}

func (e *emitter) VisitFactory(f *model.FactoryModel) bool {
	return e.err == nil && e.usePackage(f.PackageName(), f.QualifiedName())
}

func (e *emitter) EndVisitFactory(f *model.FactoryModel) {
	if e.err != nil {
		return
	}
	impl := strings.ReplaceAll(f.SimpleName(), ".", "_") + "Impl"

	var b bytes.Buffer
	fmt.Fprintf(&b, "// %s provides the context methods of %s over a rpcontract.Transport.\n", impl, f.SimpleName())
	fmt.Fprintf(&b, "type %s struct {\n\ttransport rpcontract.Transport\n}\n\n", impl)
	fmt.Fprintf(&b, "// New%s returns a %s sending requests through t.\n", impl, impl)
	fmt.Fprintf(&b, "func New%s(t rpcontract.Transport) *%s {\n\treturn &%s{transport: t}\n}\n", impl, impl, impl)
	for _, c := range f.ContextMethods() {
		fmt.Fprintf(&b, "\nfunc (f *%s) %s() %s {\n\treturn New%s(f.transport)\n}\n",
			impl, c.MethodName(), c.InterfaceSimpleName(), c.ImplSimpleName())
	}
	e.addFile(f.PackageName()+"."+impl, impl, []string{rpcontractImport}, b.Bytes())
}

func (e *emitter) VisitContextMethod(c *model.ServiceContextMethod) bool {
	if e.err != nil || !e.usePackage(c.PackageName(), c.QualifiedImplName()) {
		return false
	}
	e.ctx = c
	e.imports = []string{rpcontractImport}
	e.body.Reset()

	var params []string
	for _, m := range c.RequestMethods() {
		for _, p := range m.Parameters() {
			params = append(params, p.Name)
		}
		if p := m.InstanceParameter(); p != "" {
			params = append(params, p)
		}
	}
	e.recv = receiverName(params)

	impl := c.ImplSimpleName()
	fmt.Fprintf(&e.body, "// %s implements %s over a rpcontract.Transport.\n", impl, c.InterfaceSimpleName())
	fmt.Fprintf(&e.body, "type %s struct {\n\ttransport rpcontract.Transport\n}\n\n", impl)
	fmt.Fprintf(&e.body, "// New%s returns a %s sending requests through t.\n", impl, impl)
	fmt.Fprintf(&e.body, "func New%s(t rpcontract.Transport) *%s {\n\treturn &%s{transport: t}\n}\n\n", impl, impl, impl)
	fmt.Fprintf(&e.body, "var _ %s = (*%s)(nil)\n", c.InterfaceSimpleName(), impl)
	if c.Dialect() == rpcontract.JSONRPC {
		fmt.Fprintf(&e.body, "\n// JSONRPCService marks %s as a JSON-RPC service.\n", impl)
		fmt.Fprintf(&e.body, "func (*%s) JSONRPCService() {}\n", impl)
	}
	return true
}

func (e *emitter) VisitRequestMethod(m *model.ServiceRequestMethod) bool {
	if e.ctx == nil {
		return false
	}
	for _, imp := range m.Imports() {
		if !slices.Contains(e.imports, imp) {
			e.imports = append(e.imports, imp)
		}
	}

	var sig, args []string
	if p := m.InstanceParameter(); p != "" {
		sig = append(sig, p+" "+m.InstanceType())
	}
	for _, p := range m.Parameters() {
		sig = append(sig, p.Name+" "+p.Type)
		args = append(args, p.Name)
	}

	dialect := "rpcontract.Standard"
	if e.ctx.Dialect() == rpcontract.JSONRPC {
		dialect = "rpcontract.JSONRPC"
	}
	call := []string{e.recv + ".transport", dialect, strconv.Quote(m.OperationName())}
	call = append(call, args...)

	var result, expr string
	switch {
	case m.InstanceParameter() != "":
		result = "rpcontract.Request[" + m.ResultType() + "]"
		expr = fmt.Sprintf("rpcontract.NewInstanceRequest[%s, %s](%s).Using(%s)",
			m.InstanceType(), m.ResultType(), strings.Join(call, ", "), m.InstanceParameter())
	case m.Instance():
		result = "rpcontract.InstanceRequest[" + m.InstanceType() + ", " + m.ResultType() + "]"
		expr = fmt.Sprintf("rpcontract.NewInstanceRequest[%s, %s](%s)",
			m.InstanceType(), m.ResultType(), strings.Join(call, ", "))
	default:
		result = "rpcontract.Request[" + m.ResultType() + "]"
		expr = fmt.Sprintf("rpcontract.NewRequest[%s](%s)", m.ResultType(), strings.Join(call, ", "))
	}

	fmt.Fprintf(&e.body, "\nfunc (%s *%s) %s(%s) %s {\n\treturn %s\n}\n",
		e.recv, e.ctx.ImplSimpleName(), m.Name(), strings.Join(sig, ", "), result, expr)
	return false
}

func (e *emitter) EndVisitContextMethod(c *model.ServiceContextMethod) {
	if e.ctx != c {
		return
	}
	e.addFile(c.QualifiedImplName(), c.ImplSimpleName(), e.imports, e.body.Bytes())
	e.ctx = nil
}

// usePackage records the package of the first node and fails on any
// other.
func (e *emitter) usePackage(pkg, owner string) bool {
	if e.pkgPath == "" {
		e.pkgPath = pkg
		e.pkgName = e.opts.PackageName
		if e.pkgName == "" {
			e.pkgName = packageIdent(pkg)
		}
		return true
	}
	if pkg != e.pkgPath {
		e.err = rpcontract.Errorf(rpcontract.CodeInvalidModel,
			"%s is in package %s, but output is for package %s", owner, pkg, e.pkgPath)
		return false
	}
	return true
}

// addFile assembles and formats one Go file.
func (e *emitter) addFile(owner, impl string, imps []string, body []byte) {
	name := snakeCase(impl) + ".go"
	if prev, ok := e.paths[name]; ok {
		e.err = rpcontract.Errorf(rpcontract.CodeInvalidModel, "%s and %s both generate %s", prev, owner, name)
		return
	}
	e.paths[name] = owner

	var src bytes.Buffer
	src.WriteString(header)
	fmt.Fprintf(&src, "package %s\n\n", e.pkgName)
	src.WriteString("import (\n")
	for _, imp := range imps {
		if name, p, ok := strings.Cut(imp, " "); ok {
			fmt.Fprintf(&src, "\t%s %q\n", name, p)
		} else {
			fmt.Fprintf(&src, "\t%q\n", imp)
		}
	}
	src.WriteString(")\n\n")
	src.Write(body)

	out, err := imports.Process(name, src.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		e.err = fmt.Errorf("format %s: %w", name, err)
		return
	}
	e.files = append(e.files, File{Path: name, Content: out})
}

// receiverName picks a receiver that no parameter shadows.
func receiverName(params []string) string {
	recv := "c"
	for slices.Contains(params, recv) {
		recv += "c"
	}
	return recv
}

// packageIdent derives a package name from an import path the way the go
// command does for most module layouts.
func packageIdent(importPath string) string {
	elem := path.Base(importPath)
	if len(elem) > 1 && elem[0] == 'v' && strings.Trim(elem[1:], "0123456789") == "" {
		if dir := path.Dir(importPath); dir != "." {
			elem = path.Base(dir)
		}
	}
	elem, _, _ = strings.Cut(elem, ".")
	elem = strings.TrimPrefix(elem, "go-")
	ident := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return -1
	}, elem)
	if ident == "" || unicode.IsDigit(rune(ident[0])) {
		ident = "_" + ident
	}
	return ident
}

// snakeCase converts an identifier to lower snake case, keeping acronyms
// together ("HTTPTodoImpl" becomes "http_todo_impl").
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && runes[i-1] != '_' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
