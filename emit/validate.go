package emit

// This file contains in-memory validation of generated Go source using
// go/parser and go/types.

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
)

// ValidationError represents a Go validation error with position info
type ValidationError struct {
	Line     int
	Column   int
	Function string // function containing the error, or "<package>"
	Message  string
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Function, e.Message)
}

// InvalidSourceError is returned when generated source fails validation.
type InvalidSourceError struct {
	Target string
	Errors []ValidationError
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("generated %s source does not type-check:\n%s", e.Target, FormatValidationErrors(e.Errors))
}

const generatedFilename = "dispatch_gen.go"

// ValidateGo parses and type-checks generated Go source. The handler type
// and handler functions live outside the generated file, so a companion
// file declaring them is checked alongside it.
func ValidateGo(source, handlerType string, handlers []string) []ValidationError {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, generatedFilename, source, parser.AllErrors|parser.ParseComments)
	if err != nil {
		return []ValidationError{{Line: 1, Column: 1, Function: "<package>", Message: err.Error()}}
	}

	stub, err := parser.ParseFile(fset, "handlers.go", handlerStub(file.Name.Name, handlerType, handlers), 0)
	if err != nil {
		return []ValidationError{{Line: 1, Column: 1, Function: "<package>", Message: "handler declarations: " + err.Error()}}
	}

	funcMap := buildFunctionMap(fset, file)

	var errs []ValidationError
	conf := types.Config{
		Importer: importer.Default(),
		Error: func(err error) {
			typeErr, ok := err.(types.Error)
			if !ok {
				return
			}
			pos := fset.Position(typeErr.Pos)
			fn := funcMap[pos.Line]
			if fn == "" {
				fn = "<package>"
			}
			errs = append(errs, ValidationError{
				Line:     pos.Line,
				Column:   pos.Column,
				Function: fn,
				Message:  typeErr.Msg,
			})
		},
	}

	info := &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
		Uses:  make(map[*ast.Ident]types.Object),
	}
	_, _ = conf.Check(file.Name.Name, fset, []*ast.File{file, stub}, info)

	return errs
}

// handlerStub declares the handler type and one function per distinct
// handler name.
func handlerStub(pkg, handlerType string, handlers []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\ntype %s func(payload []byte)\n", pkg, handlerType)
	seen := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		if seen[h] {
			continue
		}
		seen[h] = true
		fmt.Fprintf(&b, "\nfunc %s(payload []byte) {}\n", h)
	}
	return b.String()
}

func buildFunctionMap(fset *token.FileSet, file *ast.File) map[int]string {
	funcMap := make(map[int]string)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		start := fset.Position(fn.Pos()).Line
		end := fset.Position(fn.End()).Line
		for line := start; line <= end; line++ {
			funcMap[line] = fn.Name.Name
		}
	}
	return funcMap
}

// FormatValidationErrors returns a human-readable error report
func FormatValidationErrors(errors []ValidationError) string {
	var sb strings.Builder
	for _, err := range errors {
		sb.WriteString("  ")
		if err.Function != "" && err.Function != "<package>" {
			sb.WriteString(err.Function)
			sb.WriteString(": ")
		}
		fmt.Fprintf(&sb, "line %d: %s\n", err.Line, err.Message)
	}
	return sb.String()
}
