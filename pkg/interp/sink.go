package interp

import (
	"fmt"

	"fortio.org/safecast"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/crt"
	"ctopy/pkg/layout"
	"ctopy/pkg/pyast"
	"ctopy/pkg/scope"
)

// rtSink materializes layout events as crt runtime types instead of
// source text: a stub becomes a fields-less aggregate handle, a finalize
// writes its field layout.
type rtSink Interpreter

func (s *rtSink) Stub(d cdecl.Decl, name string, union bool) {
	s.rtTypes[name] = crt.NewAggregate(name, union)
}

func (s *rtSink) Finalize(d cdecl.Decl, name string, union bool, fields []layout.Field) {
	i := (*Interpreter)(s)
	t, ok := s.rtTypes[name]
	if !ok {
		t = crt.NewAggregate(name, union)
		s.rtTypes[name] = t
	}
	specs := make([]crt.FieldSpec, 0, len(fields))
	for _, f := range fields {
		ft, err := i.evalType(f.Type)
		if err != nil || ft == nil {
			// The layout compiler already vetted field mapping; an
			// unresolvable handle here means the stub never finalized.
			continue
		}
		specs = append(specs, crt.FieldSpec{Name: f.Name, Type: ft, Bits: f.Bits})
	}
	_ = t.Finalize(specs)
}

func (s *rtSink) Placeholder(d cdecl.Decl, name string, union bool) {
	t := crt.NewAggregate(name, union)
	_ = t.Finalize(nil)
	s.rtTypes[name] = t
}

// evalType evaluates a mapped host type expression to its runtime
// handle. Nil means void / no return value.
func (i *Interpreter) evalType(e pyast.Expr) (*crt.Type, error) {
	switch x := e.(type) {
	case pyast.Name:
		if x.ID == pyast.None.ID {
			return nil, nil
		}
		return nil, fmt.Errorf("not a type expression: %s", x.ID)
	case pyast.Attr:
		base, ok := x.Value.(pyast.Name)
		if !ok {
			return nil, fmt.Errorf("not a type expression: %s", pyast.ExprString(e))
		}
		switch base.ID {
		case "ctypes":
			if t, ok := crt.ByName(x.Name); ok {
				return t, nil
			}
			return nil, fmt.Errorf("unknown runtime type ctypes.%s", x.Name)
		case "g":
			return i.namedType(x.Name)
		}
		return nil, fmt.Errorf("not a type expression: %s", pyast.ExprString(e))
	case pyast.Call:
		fn, ok := x.Func.(pyast.Attr)
		if !ok {
			return nil, fmt.Errorf("not a type expression: %s", pyast.ExprString(e))
		}
		switch fn.Name {
		case "POINTER":
			elem, err := i.evalType(x.Args[0])
			if err != nil {
				return nil, err
			}
			return crt.Pointer(elem), nil
		case "CFUNCTYPE":
			ret, err := i.evalType(x.Args[0])
			if err != nil {
				return nil, err
			}
			params := make([]*crt.Type, 0, len(x.Args)-1)
			for _, a := range x.Args[1:] {
				p, err := i.evalType(a)
				if err != nil {
					return nil, err
				}
				params = append(params, p)
			}
			return crt.FuncType(ret, params), nil
		}
		return nil, fmt.Errorf("not a type expression: %s", pyast.ExprString(e))
	case pyast.Bin:
		if x.Op != "*" {
			return nil, fmt.Errorf("not a type expression: %s", pyast.ExprString(e))
		}
		elem, err := i.evalType(x.Left)
		if err != nil {
			return nil, err
		}
		count, ok := x.Right.(pyast.Num)
		if !ok {
			return nil, fmt.Errorf("array length is not constant: %s", pyast.ExprString(e))
		}
		n, err := safecast.Conv[int](count.Value)
		if err != nil {
			return nil, err
		}
		return crt.ArrayOf(elem, n), nil
	}
	return nil, fmt.Errorf("not a type expression: %s", pyast.ExprString(e))
}

// namedType resolves a g-qualified type name: a registered aggregate, or
// a typedef materialized on first use.
func (i *Interpreter) namedType(name string) (*crt.Type, error) {
	if t, ok := i.rtTypes[name]; ok {
		return t, nil
	}
	b, ok := i.Globals.Binding(name)
	if !ok {
		return nil, fmt.Errorf("unknown type name g.%s", name)
	}
	tb, ok := b.(scope.TypeBinding)
	if !ok {
		return nil, fmt.Errorf("g.%s is not a type", name)
	}
	switch d := tb.Decl.(type) {
	case *cdecl.Typedef:
		t, err := i.runtimeType(d.Type)
		if err != nil {
			return nil, err
		}
		i.rtTypes[name] = t
		return t, nil
	case *cdecl.Struct, *cdecl.Union:
		if _, err := i.Layout.Ensure(d); err != nil {
			return nil, err
		}
		if t, ok := i.rtTypes[name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("aggregate g.%s has no runtime type", name)
	case *cdecl.Enum:
		t, _ := crt.ByName("c_int")
		return t, nil
	}
	return nil, fmt.Errorf("g.%s is not a type", name)
}
