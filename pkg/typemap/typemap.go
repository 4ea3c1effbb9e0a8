// Package typemap converts C type nodes into host runtime-type
// expressions. Builtins and fixed-width types map to pre-registered
// ctypes handles, one handle per distinct keyword combination; aggregate
// references resolve nominally through the layout compiler.
package typemap

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/crt"
	"ctopy/pkg/layout"
	"ctopy/pkg/pyast"
	"ctopy/pkg/scope"
)

// ErrUnsupportedType reports a type-node variant the mapper does not
// recognize. It aborts only the owning declaration's translation.
var ErrUnsupportedType = errors.New("unsupported type")

// Context selects between global and local/expression mapping. Typedefs
// keep their own name in a global context and unwrap transparently in a
// local one.
type Context int

const (
	Global Context = iota
	Local
)

// Mapper maps C types for one run.
type Mapper struct {
	Layout  *layout.Compiler
	Globals *scope.Global
}

// New creates a mapper and wires it into the layout compiler, which
// recurses back into it for field types.
func New(l *layout.Compiler, g *scope.Global) *Mapper {
	m := &Mapper{Layout: l, Globals: g}
	l.SetMapper(m)
	return m
}

func ctypesAttr(name string) pyast.Expr {
	return pyast.Attr{Value: pyast.Name{ID: "ctypes"}, Name: name}
}

func gAttr(name string) pyast.Expr {
	return pyast.Attr{Value: pyast.Name{ID: "g"}, Name: name}
}

// MapType converts a C type node into a host type expression.
func (m *Mapper) MapType(t cdecl.Type, ctx Context) (pyast.Expr, error) {
	switch n := t.(type) {
	case cdecl.Tbuiltin:
		if n.Kind == cdecl.Void {
			return pyast.None, nil
		}
		h, ok := crt.Builtin(n.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: builtin %s", ErrUnsupportedType, n.Kind)
		}
		return ctypesAttr(h.Name), nil

	case cdecl.Tfixed:
		h, ok := crt.Fixed(n.Name)
		if !ok {
			return nil, fmt.Errorf("%w: fixed-width %s", ErrUnsupportedType, n.Name)
		}
		return ctypesAttr(h.Name), nil

	case cdecl.Tpointer:
		return m.mapPointer(n, ctx)

	case cdecl.Tarray:
		if n.Len < 0 {
			// Unknown length degrades to pointer-to-element.
			return m.mapPointer(cdecl.Tpointer{To: n.Elem}, ctx)
		}
		elem, err := m.MapType(n.Elem, ctx)
		if err != nil {
			return nil, err
		}
		count, err := safecast.Conv[uint64](n.Len)
		if err != nil {
			return nil, fmt.Errorf("array length %d: %w", n.Len, err)
		}
		return pyast.Bin{Op: "*", Left: elem, Right: pyast.Num{Value: count}}, nil

	case cdecl.Tfuncptr:
		return m.mapFuncPtr(n, ctx)

	case cdecl.Tstruct:
		name, err := m.Layout.Ensure(n.Ref)
		if err != nil {
			return nil, err
		}
		return gAttr(name), nil

	case cdecl.Tunion:
		name, err := m.Layout.Ensure(n.Ref)
		if err != nil {
			return nil, err
		}
		return gAttr(name), nil

	case cdecl.Tenum:
		// Enums are plain ints at runtime.
		return ctypesAttr("c_int"), nil

	case cdecl.Ttypedef:
		if ctx == Global {
			name, err := m.Globals.Resolve(n.Ref)
			if err != nil {
				return nil, err
			}
			return gAttr(name), nil
		}
		return m.MapType(cdecl.Unwrap(t), ctx)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, t)
}

// mapPointer maps pointer types. void* stays the opaque raw-pointer
// handle rather than recursing into an unresolvable pointee; pointers to
// aggregates take a stub reference, since pointer size never depends on
// pointee layout.
func (m *Mapper) mapPointer(n cdecl.Tpointer, ctx Context) (pyast.Expr, error) {
	if n.To == nil || cdecl.IsVoid(n.To) {
		return ctypesAttr("c_void_p"), nil
	}
	var pointee pyast.Expr
	switch pt := n.To.(type) {
	case cdecl.Tstruct:
		name, err := m.Layout.StubRef(pt.Ref)
		if err != nil {
			return nil, err
		}
		pointee = gAttr(name)
	case cdecl.Tunion:
		name, err := m.Layout.StubRef(pt.Ref)
		if err != nil {
			return nil, err
		}
		pointee = gAttr(name)
	default:
		var err error
		pointee, err = m.MapType(n.To, ctx)
		if err != nil {
			return nil, err
		}
	}
	return pyast.Call{Func: ctypesAttr("POINTER"), Args: []pyast.Expr{pointee}}, nil
}

// mapFuncPtr maps a callable signature. A pointer return type collapses
// to the opaque raw-pointer handle, sidestepping the known double-pointer
// return representation defect; a void return maps to no return value.
func (m *Mapper) mapFuncPtr(n cdecl.Tfuncptr, ctx Context) (pyast.Expr, error) {
	var ret pyast.Expr
	switch {
	case n.Return == nil || cdecl.IsVoid(n.Return):
		ret = pyast.None
	case cdecl.IsPointer(cdecl.Unwrap(n.Return)):
		ret = ctypesAttr("c_void_p")
	default:
		var err error
		ret, err = m.MapType(n.Return, ctx)
		if err != nil {
			return nil, err
		}
	}
	args := []pyast.Expr{ret}
	for _, p := range n.Params {
		a, err := m.MapType(p, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return pyast.Call{Func: ctypesAttr("CFUNCTYPE"), Args: args}, nil
}

// MapFieldType implements layout.TypeMapper; fields map in the global
// context.
func (m *Mapper) MapFieldType(t cdecl.Type) (pyast.Expr, error) {
	return m.MapType(t, Global)
}
