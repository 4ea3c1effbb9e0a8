// Package interp is the interpretation path: per-function lazy
// compilation with an at-most-once cache, argument coercion, and direct
// execution of the translated host AST against the crt cell runtime.
package interp

import (
	"errors"
	"fmt"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/crt"
	"ctopy/pkg/layout"
	"ctopy/pkg/pyast"
	"ctopy/pkg/scope"
	"ctopy/pkg/translate"
	"ctopy/pkg/typemap"
)

// ArityError reports an invocation with the wrong argument count. No
// partial execution happens.
type ArityError struct {
	Func string
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("call %s: want %d arguments, got %d", e.Func, e.Want, e.Got)
}

// UncoercibleArgError reports a host argument value that cannot be
// mapped into the declared parameter type.
type UncoercibleArgError struct {
	Index int
	Value any
}

func (e *UncoercibleArgError) Error() string {
	return fmt.Sprintf("argument %d: cannot coerce %T value", e.Index, e.Value)
}

// ErrUnknownFunction reports invocation of a name that is not a defined
// function.
var ErrUnknownFunction = errors.New("unknown function")

// Compiled is one memoized function translation.
type Compiled struct {
	Name string
	Fn   *cdecl.Func
	Def  *pyast.FunctionDef
}

// Interpreter owns one run's state: scope, layout, type map, runtime
// arena, and the compiled-function cache. Not safe for concurrent use.
type Interpreter struct {
	Table   *cdecl.Table
	Globals *scope.Global
	Layout  *layout.Compiler
	Types   *typemap.Mapper
	Arena   *crt.Arena

	funcs       map[string]*Compiled
	translated  map[string]int
	rtTypes     map[string]*crt.Type
	globalCells map[string]*crt.Cell
}

// New wires an interpreter over a declaration table.
func New(table *cdecl.Table) *Interpreter {
	i := &Interpreter{
		Table:       table,
		Globals:     scope.NewGlobal(table, nil),
		Arena:       crt.NewArena(),
		funcs:       make(map[string]*Compiled),
		translated:  make(map[string]int),
		rtTypes:     make(map[string]*crt.Type),
		globalCells: make(map[string]*crt.Cell),
	}
	i.Layout = layout.New(i.Globals, (*rtSink)(i))
	i.Types = typemap.New(i.Layout, i.Globals)
	return i
}

// Func compiles a function at most once per name per run and returns the
// cached result on later lookups.
func (i *Interpreter) Func(name string) (*Compiled, error) {
	if c, ok := i.funcs[name]; ok {
		return c, nil
	}
	d := i.Table.Lookup(name)
	if d == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	fn, ok := i.Table.Resolve(d).(*cdecl.Func)
	if !ok || fn.Body == nil {
		return nil, fmt.Errorf("%w: %q has no definition", ErrUnknownFunction, name)
	}
	env := scope.NewFuncEnv(i.Globals)
	tr := translate.New(env, i.Types)
	def, err := translate.BuildFunction(fn, tr)
	if err != nil {
		return nil, err
	}
	i.translated[name]++
	c := &Compiled{Name: name, Fn: fn, Def: def}
	i.funcs[name] = c
	return c, nil
}

// Translations returns how many body-translation passes ran for a
// function name.
func (i *Interpreter) Translations(name string) int {
	return i.translated[name]
}

// Invoke resolves (compiling if needed) a function, coerces each host
// argument into the declared parameter type, executes the compiled body,
// and returns its raw result.
func (i *Interpreter) Invoke(name string, args ...any) (any, error) {
	c, err := i.Func(name)
	if err != nil {
		return nil, err
	}
	if len(args) != len(c.Fn.Params) {
		return nil, &ArityError{Func: name, Want: len(c.Fn.Params), Got: len(args)}
	}
	cells := make([]*crt.Cell, len(args))
	for idx, a := range args {
		cell, err := i.CoerceArg(a, c.Fn.Params[idx].Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, &UncoercibleArgError{Index: idx, Value: a})
		}
		cells[idx] = cell
	}
	return i.call(c, cells)
}

// CoerceArg maps a host value into a boxed cell of the declared C type:
// nil becomes a null pointer, a string becomes a byte pointer to a
// NUL-terminated copy, a slice becomes a freshly allocated contiguous
// block of coerced elements with a zeroed trailing slot, and integers
// land in a cell of the declared type. The arena keeps every allocation
// alive for the run, so block ownership outlives the call.
func (i *Interpreter) CoerceArg(v any, t cdecl.Type) (*crt.Cell, error) {
	rt, err := i.runtimeType(t)
	if err != nil {
		return nil, err
	}
	if pt, ok := cdecl.Unwrap(t).(cdecl.Tpointer); ok {
		switch arg := v.(type) {
		case nil:
			return i.Arena.NewCell(rt), nil
		case string:
			addr := i.Arena.WriteString(arg)
			cell := i.Arena.NewCell(rt)
			cell.Store(uint64(addr))
			return cell, nil
		case []any:
			elemRT := rt.Elem
			if elemRT == nil {
				return nil, fmt.Errorf("cannot coerce sequence into %s", t)
			}
			base := i.Arena.Alloc(elemRT.Size * (len(arg) + 1))
			for n, el := range arg {
				elCell, err := i.CoerceArg(el, pt.To)
				if err != nil {
					return nil, err
				}
				dst := i.Arena.CellAt(elemRT, base+n*elemRT.Size)
				dst.Store(elCell.Load())
			}
			cell := i.Arena.NewCell(rt)
			cell.Store(uint64(base))
			return cell, nil
		case *crt.Cell:
			return arg, nil
		}
		return nil, fmt.Errorf("cannot coerce %T into %s", v, t)
	}
	switch arg := v.(type) {
	case *crt.Cell:
		return arg, nil
	case int:
		cell := i.Arena.NewCell(rt)
		cell.Store(uint64(int64(arg)))
		return cell, nil
	case int64:
		cell := i.Arena.NewCell(rt)
		cell.Store(uint64(arg))
		return cell, nil
	case uint64:
		cell := i.Arena.NewCell(rt)
		cell.Store(arg)
		return cell, nil
	}
	return nil, fmt.Errorf("cannot coerce %T into %s", v, t)
}

// runtimeType materializes the crt handle for a C type by mapping it and
// evaluating the resulting type expression.
func (i *Interpreter) runtimeType(t cdecl.Type) (*crt.Type, error) {
	expr, err := i.Types.MapType(t, typemap.Local)
	if err != nil {
		return nil, err
	}
	return i.evalType(expr)
}
