package translate

import (
	"ctopy/pkg/cdecl"
	"ctopy/pkg/pyast"
	"ctopy/pkg/typemap"
)

// Builders for the helper-primitive calls generated code runs on. Boxed
// cells are mutable boxes, not host scalars, so ++/-- and assignment are
// never inlined as plain host operators; each mutation dispatches to a
// helper pair, plain or pointer-aware.

func ctypesAttr(name string) pyast.Expr {
	return pyast.Attr{Value: pyast.Name{ID: "ctypes"}, Name: name}
}

func helpersCall(name string, args ...pyast.Expr) pyast.Expr {
	return pyast.Call{
		Func: pyast.Attr{Value: pyast.Name{ID: "helpers"}, Name: name},
		Args: args,
	}
}

func gAttr(name string) pyast.Expr {
	return pyast.Attr{Value: pyast.Name{ID: "g"}, Name: name}
}

func isPointer(t cdecl.Type) bool {
	return cdecl.IsPointer(cdecl.Unwrap(t))
}

// valueFromObj unwraps a boxed cell expression to its raw underlying
// value. Pointer cells unwrap through an address cast; their .value is
// not directly readable.
func valueFromObj(obj pyast.Expr, t cdecl.Type) pyast.Expr {
	if isPointer(t) {
		cast := pyast.Call{Func: ctypesAttr("cast"), Args: []pyast.Expr{obj, ctypesAttr("c_void_p")}}
		return pyast.Attr{Value: cast, Name: "value"}
	}
	return pyast.Attr{Value: obj, Name: "value"}
}

// newInstance builds "a new boxed instance of type t". With no argument
// the instance is value-initialized (zeroed). A literal argument passes
// through; any other argument is unwrapped from its boxed form first.
// Pointer instances construct through a void-pointer cast.
func (tr *Translator) newInstance(t cdecl.Type, arg pyast.Expr, argType cdecl.Type) (pyast.Expr, error) {
	var args []pyast.Expr
	if arg != nil {
		switch arg.(type) {
		case pyast.Num, pyast.Str:
			args = append(args, arg)
		default:
			if argType != nil {
				args = append(args, valueFromObj(arg, argType))
			} else {
				// Already a raw value.
				args = append(args, arg)
			}
		}
	}
	typeAst, err := tr.Types.MapType(t, typemap.Local)
	if err != nil {
		return nil, err
	}
	if n, ok := typeAst.(pyast.Name); ok && n.ID == pyast.None.ID {
		return pyast.None, nil
	}
	if isPointer(t) && arg != nil {
		voidp := pyast.Call{Func: ctypesAttr("c_void_p"), Args: args}
		return pyast.Call{Func: ctypesAttr("cast"), Args: []pyast.Expr{voidp, typeAst}}, nil
	}
	return pyast.Call{Func: typeAst, Args: args}, nil
}

// wrapRaw boxes a raw host value back into an instance of t, keeping the
// boxed-cell invariant for operator results.
func (tr *Translator) wrapRaw(t cdecl.Type, raw pyast.Expr) (pyast.Expr, error) {
	return tr.newInstance(t, raw, nil)
}

func assignCall(left pyast.Expr, leftType cdecl.Type, right pyast.Expr, rightType cdecl.Type) pyast.Expr {
	value := valueFromObj(right, rightType)
	if isPointer(leftType) {
		return helpersCall("assignPtr", left, value)
	}
	return helpersCall("assign", left, value)
}

func augAssignCall(left pyast.Expr, leftType cdecl.Type, op string, right pyast.Expr, rightType cdecl.Type) pyast.Expr {
	value := valueFromObj(right, rightType)
	if isPointer(leftType) {
		return helpersCall("augAssignPtr", left, pyast.Str{Value: op}, value)
	}
	return helpersCall("augAssign", left, pyast.Str{Value: op}, value)
}

func incDecCall(prefix bool, inc bool, operand pyast.Expr, t cdecl.Type) pyast.Expr {
	name := "prefix"
	if !prefix {
		name = "postfix"
	}
	if inc {
		name += "Inc"
	} else {
		name += "Dec"
	}
	if isPointer(t) {
		name += "Ptr"
	}
	return helpersCall(name, operand)
}
