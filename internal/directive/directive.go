// Package directive parses rpc directives from Go source files.
//
// Directives are line comments in the form:
//
//	//rpc:factory
//	//rpc:jsonrpc
//	//rpc:instance
//
// The factory directive marks an interface whose methods vend request
// contexts. The jsonrpc directive marks a request context interface that
// speaks the JSON-RPC dialect. Both attach to type declarations.
//
// The instance directive marks a request method as an instance request.
// It attaches to a method in an interface type.
package directive

import (
	"fmt"
	"go/ast"
	"go/token"
	"slices"
	"strings"
)

const prefix = "//rpc:"

// Kind represents the type of directive.
type Kind string

const (
	KindFactory  Kind = "factory"
	KindJSONRPC  Kind = "jsonrpc"
	KindInstance Kind = "instance"
)

func (k Kind) onType() bool { return k == KindFactory || k == KindJSONRPC }

// Directive represents a parsed rpc directive.
type Directive struct {
	Kind Kind           // factory, jsonrpc or instance
	Args []string       // remaining fields after the kind
	Pos  token.Position // source location
}

// Set is the directives attached to one declaration.
type Set []Directive

// Has reports whether s contains a directive of kind k.
func (s Set) Has(k Kind) bool {
	return slices.ContainsFunc(s, func(d Directive) bool { return d.Kind == k })
}

// File contains the directives found in one source file.
type File struct {
	// Types maps type names to the directives on their declaration.
	Types map[string]Set

	// Methods maps "Type.Method" to the directives on an interface method.
	Methods map[string]Set
}

// Type returns the directives on the named type.
func (f *File) Type(name string) Set {
	if f == nil {
		return nil
	}
	return f.Types[name]
}

// Method returns the directives on method of the interface typ.
func (f *File) Method(typ, method string) Set {
	if f == nil {
		return nil
	}
	return f.Methods[typ+"."+method]
}

// Merge adds the directives of other to f. Type and method sets from
// different files of one package never overlap since names are unique.
func (f *File) Merge(other *File) {
	for k, v := range other.Types {
		f.Types[k] = append(f.Types[k], v...)
	}
	for k, v := range other.Methods {
		f.Methods[k] = append(f.Methods[k], v...)
	}
}

// NewFile returns an empty File.
func NewFile() *File {
	return &File{Types: make(map[string]Set), Methods: make(map[string]Set)}
}

// ParseFile extracts directives from a file parsed with comments.
//
// Returns an error if:
//   - A directive kind is unknown
//   - A type directive is not on a type declaration
//   - An instance directive is not on an interface method
func ParseFile(fset *token.FileSet, f *ast.File) (*File, error) {
	result := NewFile()
	attached := make(map[token.Pos]bool)

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)

			// A lone spec's doc hangs off the GenDecl.
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			set, err := parseGroup(fset, doc, attached)
			if err != nil {
				return nil, err
			}
			for _, d := range set {
				if !d.Kind.onType() {
					return nil, fmt.Errorf("%s: %s%s directive must be on an interface method", d.Pos, prefix, d.Kind)
				}
			}
			if len(set) > 0 {
				result.Types[ts.Name.Name] = set
			}

			iface, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				continue
			}
			for _, field := range iface.Methods.List {
				if _, ok := field.Type.(*ast.FuncType); !ok || len(field.Names) == 0 {
					continue
				}
				set, err := parseGroup(fset, field.Doc, attached)
				if err != nil {
					return nil, err
				}
				for _, d := range set {
					if d.Kind.onType() {
						return nil, fmt.Errorf("%s: %s%s directive must be on a type declaration", d.Pos, prefix, d.Kind)
					}
				}
				if len(set) > 0 {
					result.Methods[ts.Name.Name+"."+field.Names[0].Name] = set
				}
			}
		}
	}

	// Check for unattached directives
	for _, cg := range f.Comments {
		for _, c := range cg.List {
			if !strings.HasPrefix(c.Text, prefix) || attached[c.Pos()] {
				continue
			}
			d, err := parse(fset, c)
			if err != nil {
				return nil, err
			}
			if d.Kind.onType() {
				return nil, fmt.Errorf("%s: %s%s directive must be on a type declaration", d.Pos, prefix, d.Kind)
			}
			return nil, fmt.Errorf("%s: %s%s directive must be on an interface method", d.Pos, prefix, d.Kind)
		}
	}

	return result, nil
}

func parseGroup(fset *token.FileSet, cg *ast.CommentGroup, attached map[token.Pos]bool) (Set, error) {
	if cg == nil {
		return nil, nil
	}
	var set Set
	for _, c := range cg.List {
		if !strings.HasPrefix(c.Text, prefix) {
			continue
		}
		d, err := parse(fset, c)
		if err != nil {
			return nil, err
		}
		attached[c.Pos()] = true
		set = append(set, d)
	}
	return set, nil
}

func parse(fset *token.FileSet, c *ast.Comment) (Directive, error) {
	pos := fset.Position(c.Pos())
	parts := strings.Fields(strings.TrimPrefix(c.Text, prefix))
	if len(parts) == 0 {
		return Directive{}, fmt.Errorf("%s: empty %s directive", pos, prefix)
	}
	switch k := Kind(parts[0]); k {
	case KindFactory, KindJSONRPC, KindInstance:
		return Directive{Kind: k, Args: parts[1:], Pos: pos}, nil
	default:
		return Directive{}, fmt.Errorf("%s: unknown directive %s%s", pos, prefix, parts[0])
	}
}
