package emit

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chazu/dispatchgen/table"
	"github.com/dave/jennifer/jen"
)

// GoEmitter renders a Go source file. Keys are written as numeric literals
// and handlers as package-level identifiers of the handler type, which the
// surrounding package declares.
type GoEmitter struct {
	// SkipValidation disables type-checking of the generated file.
	SkipValidation bool
}

// goNames holds the Go spelling of every generated identifier.
type goNames struct {
	size, count   string
	entry, handle string
	handlers, tbl string
	lookup        string
}

func goNaming(n Naming) goNames {
	p := toPascal(n.Prefix)
	return goNames{
		size:     p + "DispatchHashSize",
		count:    p + "DispatchHandlerCount",
		entry:    goExported(n.EntryType),
		handle:   goExported(n.HandlerType),
		handlers: goUnexported(n.Prefix + n.HandlerArray),
		tbl:      goUnexported(n.Prefix + n.TableName),
		lookup:   goUnexported(n.Prefix + "dispatch_hash_lookup"),
	}
}

// Emit implements Emitter.
func (g GoEmitter) Emit(w io.Writer, in *Input) error {
	f := g.file(in)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return fmt.Errorf("rendering Go source: %w", err)
	}

	if !g.SkipValidation {
		n := goNaming(in.Naming.WithDefaults())
		if errs := ValidateGo(buf.String(), n.handle, in.Handlers); len(errs) > 0 {
			return &InvalidSourceError{Target: "go", Errors: errs}
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (g GoEmitter) file(in *Input) *jen.File {
	n := goNaming(in.Naming.WithDefaults())
	occupied := in.useOccupiedFlag()
	idxType := fmt.Sprintf("uint%d", indexBits(len(in.Handlers)))

	pkg := in.Package
	if pkg == "" {
		pkg = DefaultGoPackage
	}
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by dispatchgen; DO NOT EDIT.")
	if in.Source != "" {
		f.HeaderComment("Source: " + in.Source)
	}
	f.HeaderComment("Table fingerprint: " + table.FingerprintHex(in.Table))

	f.Const().Defs(
		jen.Id(n.size).Op("=").Lit(int(in.Table.Capacity)),
		jen.Id(n.count).Op("=").Lit(len(in.Handlers)),
	)
	f.Line()

	fields := []jen.Code{
		jen.Id("Key").Uint32(),
		jen.Id("HandlerIdx").Id(idxType),
	}
	if occupied {
		fields = append(fields, jen.Id("Occupied").Bool())
	}
	f.Commentf("%s is one slot of the dispatch table.", n.entry)
	f.Type().Id(n.entry).Struct(fields...)
	f.Line()

	handlers := make([]jen.Code, len(in.Handlers))
	for i, h := range in.Handlers {
		handlers[i] = jen.Id(h)
	}
	f.Comment("Handler array (indexed by hash lookup result)")
	f.Var().Id(n.handlers).Op("=").Index(jen.Id(n.count)).Id(n.handle).Custom(multiLine, handlers...)
	f.Line()

	var rows []jen.Code
	f.Comment("Hash table mapping packet type -> handler index")
	for i, s := range in.Table.Slots {
		if !s.Occupied {
			continue
		}
		slot := uint32(i)
		label := s.Name
		if label == "" {
			label = fmt.Sprint(s.Key)
		}
		f.Commentf("  [%d] %s: %s", slot, label, slotComment(s, slot, in.Table.Capacity))

		vals := []jen.Code{
			jen.Id("Key").Op(":").Lit(int(s.Key)),
			jen.Id("HandlerIdx").Op(":").Lit(int(s.HandlerIdx)),
		}
		if occupied {
			vals = append(vals, jen.Id("Occupied").Op(":").True())
		}
		rows = append(rows, jen.Lit(i).Op(":").Values(vals...))
	}
	f.Var().Id(n.tbl).Op("=").Index(jen.Id(n.size)).Id(n.entry).Custom(multiLine, rows...)
	f.Line()

	empty := jen.Id("table").Index(jen.Id("slot")).Dot("Key").Op("==").Lit(0)
	if occupied {
		empty = jen.Op("!").Id("table").Index(jen.Id("slot")).Dot("Occupied")
	}
	f.Commentf("%s returns the handler index for key, or -1.", n.lookup)
	f.Func().Id(n.lookup).Params(
		jen.Id("table").Op("*").Index(jen.Id(n.size)).Id(n.entry),
		jen.Id("key").Uint32(),
	).Int().Block(
		jen.Id("h").Op(":=").Id("key").Op("%").Id(n.size),
		jen.For(
			jen.Id("i").Op(":=").Uint32().Call(jen.Lit(0)),
			jen.Id("i").Op("<").Id(n.size),
			jen.Id("i").Op("++"),
		).Block(
			jen.Id("slot").Op(":=").Parens(jen.Id("h").Op("+").Id("i")).Op("%").Id(n.size),
			jen.If(empty).Block(jen.Return(jen.Lit(-1))),
			jen.If(jen.Id("table").Index(jen.Id("slot")).Dot("Key").Op("==").Id("key")).Block(
				jen.Return(jen.Int().Call(jen.Id("table").Index(jen.Id("slot")).Dot("HandlerIdx"))),
			),
		),
		jen.Return(jen.Lit(-1)),
	)

	return f
}

// multiLine renders a composite literal body with one element per line.
// jen.Dict would sort the keys, which breaks slot order.
var multiLine = jen.Options{
	Open:      "{",
	Close:     "}",
	Separator: ",",
	Multi:     true,
}
