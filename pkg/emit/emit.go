// Package emit is the static path: it walks a declaration table once and
// renders a complete source unit, sectioned so that declaration order in
// the input never matters to the output. Declarations that fail to
// translate are reported and replaced by a source comment; the rest of
// the unit still emits.
package emit

import (
	"fmt"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/crt"
	"ctopy/pkg/layout"
	"ctopy/pkg/pyast"
	"ctopy/pkg/scope"
	"ctopy/pkg/translate"
	"ctopy/pkg/typemap"
)

// Report is one declaration-level failure. Failures are per declaration;
// they never abort the unit.
type Report struct {
	Name string
	Pos  cdecl.Pos
	Err  error
}

func (r Report) String() string {
	return fmt.Sprintf("%s: %s: %v", r.Pos, r.Name, r.Err)
}

// Emitter drives one unit's emission.
type Emitter struct {
	Globals *scope.Global
	Layout  *layout.Compiler
	Types   *typemap.Mapper

	table   *cdecl.Table
	unit    *Unit
	reports []Report
}

// New wires an emitter over a declaration table. Extra names are
// reserved host-side on top of the standard reserved set.
func New(table *cdecl.Table, extraReserved []string) *Emitter {
	e := &Emitter{table: table, unit: &Unit{}}
	e.Globals = scope.NewGlobal(table, extraReserved)
	e.Layout = layout.New(e.Globals, &textSink{unit: e.unit})
	e.Types = typemap.New(e.Layout, e.Globals)
	return e
}

// Emit processes every declaration in source order and returns the
// rendered unit plus the per-declaration failure reports.
func (e *Emitter) Emit() (*Unit, []Report) {
	for _, d := range e.table.Decls {
		if e.table.Resolve(d) != d {
			// A later, complete declaration of the same name wins; that
			// one emits when its turn comes.
			continue
		}
		switch n := d.(type) {
		case *cdecl.Struct, *cdecl.Union:
			e.emitAggregate(d)
		case *cdecl.Enum:
			e.emitEnum(n)
		case *cdecl.Typedef:
			e.emitTypedef(n)
		case *cdecl.Var:
			e.emitVar(n)
		case *cdecl.Func:
			e.emitFunc(n)
		}
	}
	for _, err := range e.Layout.FinalizePending() {
		var name string
		var pos cdecl.Pos
		if u, ok := err.(*layout.UnresolvedError); ok {
			name, pos = u.Name, u.Pos
		}
		e.report(name, pos, err)
		e.unit.structBodies = append(e.unit.structBodies,
			pyast.Comment{Text: fmt.Sprintf("unresolved: %v", err)})
	}
	for _, name := range e.Globals.WrappedNames() {
		// The value table binds each wrapped name against the host libc,
		// falling back to a raising placeholder for functions and a null
		// cell for variables.
		lookup, symbol := "_extern_var", name
		if b, ok := e.Globals.Binding(name); ok {
			if wb, ok := b.(scope.WrappedBinding); ok {
				if fn, ok := wb.Value.(*crt.WrappedFunc); ok {
					lookup, symbol = "_extern_func", fn.Name
				}
			}
		}
		e.unit.externs = append(e.unit.externs, pyast.Assign{
			Target: pyast.Name{ID: name},
			Value: pyast.Call{
				Func: pyast.Name{ID: lookup},
				Args: []pyast.Expr{pyast.Str{Value: symbol}},
			},
		})
	}
	return e.unit, e.reports
}

func (e *Emitter) report(name string, pos cdecl.Pos, err error) {
	e.reports = append(e.reports, Report{Name: name, Pos: pos, Err: err})
}

func (e *Emitter) emitAggregate(d cdecl.Decl) {
	before := e.Layout.Pending()
	if _, err := e.Layout.Ensure(d); err != nil && e.Layout.Pending() == before {
		// Parked aggregates get their retry in the pending pass; anything
		// else failed for good.
		e.report(d.DeclName(), d.DeclPos(), err)
	}
}

func (e *Emitter) emitEnum(n *cdecl.Enum) {
	if n.Name != "" {
		name, err := e.Globals.Bind(n.Name, n)
		if err != nil {
			e.report(n.Name, n.Pos, err)
			return
		}
		e.unit.enums = append(e.unit.enums, pyast.Assign{
			Target: pyast.Name{ID: name},
			Value:  pyast.Attr{Value: pyast.Name{ID: "ctypes"}, Name: "c_int"},
		})
	}
	for i := range n.Entries {
		entry := &n.Entries[i]
		name, err := e.Globals.Bind(entry.Name, entry)
		if err != nil {
			e.report(entry.Name, entry.Pos, err)
			continue
		}
		var v pyast.Expr = pyast.Num{Value: uint64(entry.Value)}
		if entry.Value < 0 {
			v = pyast.Unary{Op: "-", Operand: pyast.Num{Value: uint64(-entry.Value)}}
		}
		e.unit.enums = append(e.unit.enums, pyast.Assign{
			Target: pyast.Name{ID: name},
			Value: pyast.Call{
				Func: pyast.Attr{Value: pyast.Name{ID: "ctypes"}, Name: "c_int"},
				Args: []pyast.Expr{v},
			},
		})
	}
}

func (e *Emitter) emitTypedef(n *cdecl.Typedef) {
	name, err := e.Globals.Resolve(n)
	if err != nil {
		e.report(n.Name, n.Pos, err)
		return
	}
	expr, err := e.Types.MapType(n.Type, typemap.Global)
	if err != nil {
		e.report(n.Name, n.Pos, err)
		e.unit.typedefs = append(e.unit.typedefs,
			pyast.Comment{Text: fmt.Sprintf("typedef %s: %v", n.Name, err)})
		return
	}
	e.unit.typedefs = append(e.unit.typedefs,
		pyast.Assign{Target: pyast.Name{ID: name}, Value: expr})
}

func (e *Emitter) emitVar(n *cdecl.Var) {
	if n.Extern {
		e.unit.externs = append(e.unit.externs,
			pyast.Comment{Text: fmt.Sprintf("extern variable %s", n.Name)})
		return
	}
	name, err := e.Globals.Resolve(n)
	if err != nil {
		e.report(n.Name, n.Pos, err)
		return
	}
	env := scope.NewFuncEnv(e.Globals)
	tr := translate.New(env, e.Types)
	value, err := tr.GlobalInit(n)
	if err != nil {
		e.report(n.Name, n.Pos, err)
		e.unit.vars = append(e.unit.vars,
			pyast.Comment{Text: fmt.Sprintf("variable %s: %v", n.Name, err)})
		return
	}
	e.unit.vars = append(e.unit.vars,
		pyast.Assign{Target: pyast.Name{ID: name}, Value: value})
}

func (e *Emitter) emitFunc(n *cdecl.Func) {
	if n.Body == nil {
		e.unit.externs = append(e.unit.externs,
			pyast.Comment{Text: fmt.Sprintf("extern function %s", n.Name)})
		return
	}
	env := scope.NewFuncEnv(e.Globals)
	tr := translate.New(env, e.Types)
	def, err := translate.BuildFunction(n, tr)
	if err != nil {
		e.report(n.Name, n.Pos, err)
		e.unit.funcs = append(e.unit.funcs,
			pyast.Comment{Text: fmt.Sprintf("function %s: %v", n.Name, err)})
		return
	}
	e.unit.funcs = append(e.unit.funcs, *def)
}