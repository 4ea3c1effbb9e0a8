package translate

import (
	"errors"
	"fmt"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/pyast"
	"ctopy/pkg/scope"
	"ctopy/pkg/typemap"
)

// ErrUnknownMember reports member access on an aggregate that has no
// field of that name.
var ErrUnknownMember = errors.New("unknown member")

// Translator translates one function's statements. It holds the function
// environment and the run's type mapper; one translator per function
// translation.
type Translator struct {
	Env   *scope.FuncEnv
	Types *typemap.Mapper
}

// New creates a translator over a function environment.
func New(env *scope.FuncEnv, types *typemap.Mapper) *Translator {
	return &Translator{Env: env, Types: types}
}

// Expr translates a C expression into a host expression and its C result
// type. Every result is a boxed value; raw operator results are boxed
// back into their result type.
func (tr *Translator) Expr(e cdecl.Expr) (pyast.Expr, cdecl.Type, error) {
	switch x := e.(type) {
	case cdecl.Num:
		t := minIntType(x.Value)
		inst, err := tr.newInstance(t, pyast.Num{Value: x.Value}, nil)
		if err != nil {
			return nil, nil, err
		}
		return inst, t, nil

	case cdecl.Str:
		call := pyast.Call{Func: ctypesAttr("c_char_p"), Args: []pyast.Expr{pyast.Str{Value: x.Value}}}
		return call, cdecl.Tpointer{To: cdecl.Tbuiltin{Kind: cdecl.Char}}, nil

	case cdecl.CharLit:
		call := pyast.Call{Func: ctypesAttr("c_char"), Args: []pyast.Expr{pyast.Str{Value: string(x.Value)}}}
		return call, cdecl.Tbuiltin{Kind: cdecl.Char}, nil

	case cdecl.Ref:
		return tr.translateRef(x)

	case cdecl.Member:
		return tr.translateMember(x)

	case cdecl.Unary:
		return tr.translateUnary(x)

	case cdecl.Binary:
		return tr.translateBinary(x)

	case cdecl.Assign:
		return tr.translateAssign(x)

	case cdecl.Cond:
		return tr.translateCond(x)

	case cdecl.Call:
		return tr.translateCall(x)

	case cdecl.TypeConv:
		arg, argType, err := tr.Expr(x.Arg)
		if err != nil {
			return nil, nil, err
		}
		inst, err := tr.newInstance(x.To, arg, argType)
		if err != nil {
			return nil, nil, err
		}
		return inst, x.To, nil
	}
	return nil, nil, fmt.Errorf("cannot translate expression %T", e)
}

func declType(d cdecl.Decl) (cdecl.Type, error) {
	switch n := d.(type) {
	case *cdecl.Var:
		return n.Type, nil
	case *cdecl.Param:
		return n.Type, nil
	case *cdecl.Func:
		params := make([]cdecl.Type, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Type
		}
		return cdecl.Tfuncptr{Return: n.Return, Params: params}, nil
	case *cdecl.Typedef:
		return cdecl.Ttypedef{Ref: n}, nil
	}
	return nil, fmt.Errorf("declaration %q has no value type", d.DeclName())
}

// translateRef resolves an identifier: locals become direct references,
// globals become qualified references into the g namespace.
func (tr *Translator) translateRef(x cdecl.Ref) (pyast.Expr, cdecl.Type, error) {
	name, global, err := tr.Env.Resolve(x.Decl)
	if err != nil {
		return nil, nil, err
	}
	t, err := declType(x.Decl)
	if err != nil {
		return nil, nil, err
	}
	if global {
		return gAttr(name), t, nil
	}
	return pyast.Name{ID: name}, t, nil
}

// translateMember resolves a field access by name on the typedef-unwrapped
// aggregate type of the base expression.
func (tr *Translator) translateMember(x cdecl.Member) (pyast.Expr, cdecl.Type, error) {
	base, baseType, err := tr.Expr(x.Base)
	if err != nil {
		return nil, nil, err
	}
	var fields []cdecl.Field
	var aggName string
	switch agg := cdecl.Unwrap(baseType).(type) {
	case cdecl.Tstruct:
		fields, aggName = agg.Ref.Fields, agg.Ref.Name
	case cdecl.Tunion:
		fields, aggName = agg.Ref.Fields, agg.Ref.Name
	default:
		return nil, nil, fmt.Errorf("member %q: %s is not an aggregate", x.Name, baseType)
	}
	for _, f := range fields {
		if f.Name == x.Name {
			return pyast.Attr{Value: base, Name: x.Name}, f.Type, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %q in %s", ErrUnknownMember, x.Name, aggName)
}

func (tr *Translator) translateUnary(x cdecl.Unary) (pyast.Expr, cdecl.Type, error) {
	operand, t, err := tr.Expr(x.Operand)
	if err != nil {
		return nil, nil, err
	}
	switch x.Op {
	case "++":
		return incDecCall(!x.Postfix, true, operand, t), t, nil
	case "--":
		return incDecCall(!x.Postfix, false, operand, t), t, nil
	}
	op, ok := opUnary[x.Op]
	if !ok {
		return nil, nil, fmt.Errorf("unary operator %q is unknown", x.Op)
	}
	raw := pyast.Unary{Op: op, Operand: valueFromObj(operand, t)}
	boxed, err := tr.wrapRaw(t, raw)
	if err != nil {
		return nil, nil, err
	}
	return boxed, t, nil
}

func (tr *Translator) translateBinary(x cdecl.Binary) (pyast.Expr, cdecl.Type, error) {
	left, leftType, err := tr.Expr(x.Left)
	if err != nil {
		return nil, nil, err
	}
	right, rightType, err := tr.Expr(x.Right)
	if err != nil {
		return nil, nil, err
	}
	if op, ok := opBinary[x.Op]; ok {
		// Result type is the left operand's type. True C
		// usual-arithmetic conversions are intentionally not applied.
		raw := pyast.Bin{Op: op, Left: valueFromObj(left, leftType), Right: valueFromObj(right, rightType)}
		boxed, err := tr.wrapRaw(leftType, raw)
		if err != nil {
			return nil, nil, err
		}
		return boxed, leftType, nil
	}
	if op, ok := opBool[x.Op]; ok {
		raw := pyast.Bool{Op: op, Values: []pyast.Expr{valueFromObj(left, leftType), valueFromObj(right, rightType)}}
		boxed, err := tr.wrapRaw(cInt, raw)
		if err != nil {
			return nil, nil, err
		}
		return boxed, cInt, nil
	}
	if op, ok := opCompare[x.Op]; ok {
		raw := pyast.Compare{Op: op, Left: valueFromObj(left, leftType), Right: valueFromObj(right, rightType)}
		boxed, err := tr.wrapRaw(cInt, raw)
		if err != nil {
			return nil, nil, err
		}
		return boxed, cInt, nil
	}
	return nil, nil, fmt.Errorf("binary operator %q is unknown", x.Op)
}

func (tr *Translator) translateAssign(x cdecl.Assign) (pyast.Expr, cdecl.Type, error) {
	left, leftType, err := tr.Expr(x.Left)
	if err != nil {
		return nil, nil, err
	}
	right, rightType, err := tr.Expr(x.Right)
	if err != nil {
		return nil, nil, err
	}
	if x.Op == "=" {
		return assignCall(left, leftType, right, rightType), leftType, nil
	}
	op := x.Op[:len(x.Op)-1] // strip '='
	if _, ok := opBinary[op]; !ok {
		return nil, nil, fmt.Errorf("assignment operator %q is unknown", x.Op)
	}
	return augAssignCall(left, leftType, op, right, rightType), leftType, nil
}

// translateCond maps ?: to a conditional expression. The result type is
// the middle operand's, a documented simplification.
func (tr *Translator) translateCond(x cdecl.Cond) (pyast.Expr, cdecl.Type, error) {
	test, testType, err := tr.Expr(x.Test)
	if err != nil {
		return nil, nil, err
	}
	then, thenType, err := tr.Expr(x.Then)
	if err != nil {
		return nil, nil, err
	}
	els, _, err := tr.Expr(x.Else)
	if err != nil {
		return nil, nil, err
	}
	cond := pyast.IfExp{Test: valueFromObj(test, testType), Body: then, Else: els}
	return cond, thenType, nil
}

// translateCall handles direct calls to known C functions; casts parsed
// as call expressions arrive separately as TypeConv.
func (tr *Translator) translateCall(x cdecl.Call) (pyast.Expr, cdecl.Type, error) {
	ref, ok := x.Target.(cdecl.Ref)
	if !ok {
		return nil, nil, fmt.Errorf("cannot translate call through %T", x.Target)
	}
	fn, ok := ref.Decl.(*cdecl.Func)
	if !ok {
		return nil, nil, fmt.Errorf("call target %q is not a function", ref.Decl.DeclName())
	}
	name, err := tr.Env.Global.Resolve(fn)
	if err != nil {
		return nil, nil, err
	}
	args := make([]pyast.Expr, len(x.Args))
	for i, a := range x.Args {
		arg, _, err := tr.Expr(a)
		if err != nil {
			return nil, nil, err
		}
		args[i] = arg
	}
	return pyast.Call{Func: gAttr(name), Args: args}, fn.Return, nil
}
