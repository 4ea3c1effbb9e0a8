package interp

import (
	"fmt"

	"ctopy/pkg/crt"
	"ctopy/pkg/pyast"
	"ctopy/pkg/scope"
)

// The evaluator executes translated host AST directly against the crt
// runtime; it is the in-process equivalent of compiling and exec-ing the
// generated source. Only the node forms the translator emits are
// supported.

type nsMarker int

const (
	nsCtypes nsMarker = iota
	nsHelpers
	nsG
)

// builtinRef is an unapplied ctypes operation (cast, POINTER, sizeof...).
type builtinRef struct{ name string }

// helperRef is an unapplied helper primitive.
type helperRef struct{ name string }

func (i *Interpreter) call(c *Compiled, args []*crt.Cell) (any, error) {
	frame := make(map[string]any, len(args))
	for n, p := range c.Def.Params {
		frame[p] = args[n]
	}
	for _, s := range c.Def.Body {
		if err := i.execStmt(frame, s); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil, nil
}

func (i *Interpreter) execStmt(frame map[string]any, s pyast.Stmt) error {
	switch st := s.(type) {
	case pyast.Assign:
		target, ok := st.Target.(pyast.Name)
		if !ok {
			return fmt.Errorf("cannot assign to %s", pyast.ExprString(st.Target))
		}
		v, err := i.evalExpr(frame, st.Value)
		if err != nil {
			return err
		}
		frame[target.ID] = v
		return nil
	case pyast.ExprStmt:
		_, err := i.evalExpr(frame, st.X)
		return err
	case pyast.Del:
		for _, n := range st.Names {
			delete(frame, n)
		}
		return nil
	case pyast.Pass, pyast.Assert, pyast.Comment:
		return nil
	}
	return fmt.Errorf("cannot execute statement %T", s)
}

func (i *Interpreter) evalExpr(frame map[string]any, e pyast.Expr) (any, error) {
	switch x := e.(type) {
	case pyast.Name:
		switch x.ID {
		case "None":
			return nil, nil
		case "True":
			return true, nil
		case "ctypes":
			return nsCtypes, nil
		case "helpers":
			return nsHelpers, nil
		case "g":
			return nsG, nil
		}
		if v, ok := frame[x.ID]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("name %q is not defined", x.ID)

	case pyast.Num:
		return int64(x.Value), nil

	case pyast.Str:
		return x.Value, nil

	case pyast.Attr:
		return i.evalAttr(frame, x)

	case pyast.Call:
		return i.evalCall(frame, x)

	case pyast.Unary:
		v, err := i.evalExpr(frame, x.Operand)
		if err != nil {
			return nil, err
		}
		return applyUnary(x.Op, v)

	case pyast.Bin:
		l, err := i.evalExpr(frame, x.Left)
		if err != nil {
			return nil, err
		}
		r, err := i.evalExpr(frame, x.Right)
		if err != nil {
			return nil, err
		}
		return applyBinary(x.Op, l, r)

	case pyast.Bool:
		var last any
		for n, v := range x.Values {
			val, err := i.evalExpr(frame, v)
			if err != nil {
				return nil, err
			}
			last = val
			if x.Op == "and" && !truthy(val) && n < len(x.Values)-1 {
				return val, nil
			}
			if x.Op == "or" && truthy(val) {
				return val, nil
			}
		}
		return last, nil

	case pyast.Compare:
		l, err := i.evalExpr(frame, x.Left)
		if err != nil {
			return nil, err
		}
		r, err := i.evalExpr(frame, x.Right)
		if err != nil {
			return nil, err
		}
		return applyCompare(x.Op, l, r)

	case pyast.IfExp:
		test, err := i.evalExpr(frame, x.Test)
		if err != nil {
			return nil, err
		}
		if truthy(test) {
			return i.evalExpr(frame, x.Body)
		}
		return i.evalExpr(frame, x.Else)
	}
	return nil, fmt.Errorf("cannot evaluate expression %T", e)
}

func (i *Interpreter) evalAttr(frame map[string]any, x pyast.Attr) (any, error) {
	base, err := i.evalExpr(frame, x.Value)
	if err != nil {
		return nil, err
	}
	switch b := base.(type) {
	case nsMarker:
		switch b {
		case nsCtypes:
			if t, ok := crt.ByName(x.Name); ok {
				return t, nil
			}
			return builtinRef{name: x.Name}, nil
		case nsHelpers:
			return helperRef{name: x.Name}, nil
		case nsG:
			return i.globalValue(x.Name)
		}
	case *crt.Cell:
		if x.Name == "value" {
			return cellValue(b), nil
		}
		if f, ok := b.Field(x.Name); ok {
			return f, nil
		}
		return nil, fmt.Errorf("cell of %s has no attribute %q", b.Type, x.Name)
	}
	return nil, fmt.Errorf("%T has no attribute %q", base, x.Name)
}

func (i *Interpreter) evalCall(frame map[string]any, x pyast.Call) (any, error) {
	callee, err := i.evalExpr(frame, x.Func)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(x.Args))
	for n, a := range x.Args {
		v, err := i.evalExpr(frame, a)
		if err != nil {
			return nil, err
		}
		args[n] = v
	}
	switch fn := callee.(type) {
	case *crt.Type:
		return i.construct(fn, args)
	case builtinRef:
		return i.applyBuiltin(fn.name, args)
	case helperRef:
		return applyHelper(fn.name, args)
	case *Compiled:
		return i.callTranslated(fn, args)
	case *crt.WrappedFunc:
		return i.callWrapped(fn, args)
	}
	return nil, fmt.Errorf("%T is not callable", callee)
}

// construct builds a new boxed instance of a runtime type, the
// evaluator's version of calling the type handle.
func (i *Interpreter) construct(t *crt.Type, args []any) (*crt.Cell, error) {
	cell := i.Arena.NewCell(t)
	if len(args) == 0 {
		return cell, nil
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("construct %s: too many arguments", t)
	}
	switch v := args[0].(type) {
	case nil:
		return cell, nil
	case int64:
		cell.Store(uint64(v))
	case bool:
		if v {
			cell.Store(1)
		}
	case float64:
		if t.Kind == crt.KindFloat {
			cell.StoreFloat(v)
		} else {
			cell.Store(uint64(int64(v)))
		}
	case string:
		if t.Kind == crt.KindPointer {
			cell.Store(uint64(i.Arena.WriteString(v)))
		} else if len(v) > 0 {
			cell.Store(uint64(v[0]))
		}
	case *crt.Cell:
		cell.Store(v.Load())
	default:
		return nil, fmt.Errorf("construct %s: cannot accept %T", t, args[0])
	}
	return cell, nil
}

func (i *Interpreter) applyBuiltin(name string, args []any) (any, error) {
	switch name {
	case "cast":
		if len(args) != 2 {
			return nil, fmt.Errorf("cast: want 2 arguments, got %d", len(args))
		}
		t, ok := args[1].(*crt.Type)
		if !ok {
			return nil, fmt.Errorf("cast: %T is not a type", args[1])
		}
		cell := i.Arena.NewCell(t)
		switch v := args[0].(type) {
		case *crt.Cell:
			cell.Store(v.Load())
		case int64:
			cell.Store(uint64(v))
		case nil:
		default:
			return nil, fmt.Errorf("cast: cannot cast %T", args[0])
		}
		return cell, nil
	case "POINTER":
		t, ok := args[0].(*crt.Type)
		if !ok {
			return nil, fmt.Errorf("POINTER: %T is not a type", args[0])
		}
		return crt.Pointer(t), nil
	case "sizeof":
		switch v := args[0].(type) {
		case *crt.Type:
			return int64(v.Size), nil
		case *crt.Cell:
			return int64(v.Type.Size), nil
		}
		return nil, fmt.Errorf("sizeof: cannot size %T", args[0])
	case "CFUNCTYPE":
		types := make([]*crt.Type, len(args))
		for n, a := range args {
			t, _ := a.(*crt.Type)
			types[n] = t
		}
		return crt.FuncType(types[0], types[1:]), nil
	}
	return nil, fmt.Errorf("ctypes.%s is not supported", name)
}

func applyHelper(name string, args []any) (any, error) {
	cellArg := func(n int) (*crt.Cell, error) {
		c, ok := args[n].(*crt.Cell)
		if !ok {
			return nil, fmt.Errorf("helpers.%s: argument %d is %T, not a cell", name, n, args[n])
		}
		return c, nil
	}
	switch name {
	case "prefixInc", "prefixDec", "postfixInc", "postfixDec",
		"prefixIncPtr", "prefixDecPtr", "postfixIncPtr", "postfixDecPtr", "copy":
		c, err := cellArg(0)
		if err != nil {
			return nil, err
		}
		switch name {
		case "prefixInc":
			return crt.PrefixInc(c), nil
		case "prefixDec":
			return crt.PrefixDec(c), nil
		case "postfixInc":
			return crt.PostfixInc(c), nil
		case "postfixDec":
			return crt.PostfixDec(c), nil
		case "prefixIncPtr":
			return crt.PrefixIncPtr(c), nil
		case "prefixDecPtr":
			return crt.PrefixDecPtr(c), nil
		case "postfixIncPtr":
			return crt.PostfixIncPtr(c), nil
		case "postfixDecPtr":
			return crt.PostfixDecPtr(c), nil
		default:
			return crt.Copy(c), nil
		}
	case "assign", "assignPtr":
		c, err := cellArg(0)
		if err != nil {
			return nil, err
		}
		bits, err := rawBits(args[1])
		if err != nil {
			return nil, err
		}
		if name == "assignPtr" {
			return crt.AssignPtr(c, bits), nil
		}
		return crt.Assign(c, bits), nil
	case "augAssign", "augAssignPtr":
		c, err := cellArg(0)
		if err != nil {
			return nil, err
		}
		op, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("helpers.%s: operator is %T", name, args[1])
		}
		bits, err := rawBits(args[2])
		if err != nil {
			return nil, err
		}
		if name == "augAssignPtr" {
			return crt.AugAssignPtr(c, op, bits)
		}
		return crt.AugAssign(c, op, bits)
	}
	return nil, fmt.Errorf("helpers.%s is not supported", name)
}

func (i *Interpreter) callTranslated(c *Compiled, args []any) (any, error) {
	if len(args) != len(c.Fn.Params) {
		return nil, &ArityError{Func: c.Name, Want: len(c.Fn.Params), Got: len(args)}
	}
	cells := make([]*crt.Cell, len(args))
	for n, a := range args {
		cell, err := i.CoerceArg(a, c.Fn.Params[n].Type)
		if err != nil {
			return nil, err
		}
		cells[n] = cell
	}
	return i.call(c, cells)
}

func (i *Interpreter) callWrapped(fn *crt.WrappedFunc, args []any) (any, error) {
	if !fn.Variadic && len(args) != len(fn.Params) {
		return nil, &ArityError{Func: fn.Name, Want: len(fn.Params), Got: len(args)}
	}
	cells := make([]*crt.Cell, len(args))
	for n, a := range args {
		switch v := a.(type) {
		case *crt.Cell:
			cells[n] = v
		case int64:
			t, _ := crt.ByName("c_long")
			c := i.Arena.NewCell(t)
			c.Store(uint64(v))
			cells[n] = c
		case string:
			t, _ := crt.ByName("c_char")
			c := i.Arena.NewCell(crt.Pointer(t))
			c.Store(uint64(i.Arena.WriteString(v)))
			cells[n] = c
		default:
			return nil, fmt.Errorf("%s: cannot pass %T", fn.Name, a)
		}
	}
	return fn.Fn(i.Arena, cells)
}

// globalValue resolves a name in the g namespace through its binding
// variant: variables materialize lazily as zeroed cells, functions
// compile lazily, type aliases resolve to runtime handles.
func (i *Interpreter) globalValue(name string) (any, error) {
	b, ok := i.Globals.Binding(name)
	if !ok {
		return nil, fmt.Errorf("%w: g.%s", scope.ErrUnboundSymbol, name)
	}
	switch bind := b.(type) {
	case scope.VarBinding:
		if cell, ok := i.globalCells[name]; ok {
			return cell, nil
		}
		rt, err := i.runtimeType(bind.Decl.Type)
		if err != nil {
			return nil, err
		}
		cell := i.Arena.NewCell(rt)
		i.globalCells[name] = cell
		return cell, nil
	case scope.FuncBinding:
		return i.Func(bind.Decl.Name)
	case scope.ConstBinding:
		if cell, ok := i.globalCells[name]; ok {
			return cell, nil
		}
		cInt, ok := crt.ByName("c_int")
		if !ok {
			return nil, fmt.Errorf("g.%s: no c_int runtime type", name)
		}
		cell := i.Arena.NewCell(cInt)
		cell.Store(uint64(bind.Entry.Value))
		i.globalCells[name] = cell
		return cell, nil
	case scope.TypeBinding:
		return i.namedType(name)
	case scope.WrappedBinding:
		return bind.Value, nil
	}
	return nil, fmt.Errorf("g.%s has no value", name)
}

func cellValue(c *crt.Cell) any {
	switch c.Type.Kind {
	case crt.KindFloat:
		return c.Float()
	case crt.KindPointer:
		return int64(c.Load())
	default:
		if c.Type.Signed {
			return c.Int64()
		}
		return int64(c.Load())
	}
}

func rawBits(v any) (uint64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case int64:
		return uint64(n), nil
	case float64:
		return uint64(int64(n)), nil
	case *crt.Cell:
		return n.Load(), nil
	}
	return 0, fmt.Errorf("cannot take raw value of %T", v)
}

func truthy(v any) bool {
	switch n := v.(type) {
	case nil:
		return false
	case bool:
		return n
	case int64:
		return n != 0
	case float64:
		return n != 0
	case string:
		return n != ""
	case *crt.Cell:
		return n.Load() != 0
	}
	return true
}

func applyUnary(op string, v any) (any, error) {
	switch op {
	case "not":
		return !truthy(v), nil
	case "+":
		return v, nil
	case "-":
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
	case "~":
		if n, ok := v.(int64); ok {
			return ^n, nil
		}
	}
	return nil, fmt.Errorf("unary %q: cannot apply to %T", op, v)
}

func applyBinary(op string, l, r any) (any, error) {
	lf, lIsFloat := l.(float64)
	rf, rIsFloat := r.(float64)
	li, lIsInt := l.(int64)
	ri, rIsInt := r.(int64)
	if lIsFloat || rIsFloat {
		if lIsInt {
			lf = float64(li)
		}
		if rIsInt {
			rf = float64(ri)
		}
		switch op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			return lf / rf, nil
		}
		return nil, fmt.Errorf("binary %q: cannot apply to floats", op)
	}
	if !lIsInt || !rIsInt {
		return nil, fmt.Errorf("binary %q: cannot apply to %T and %T", op, l, r)
	}
	switch op {
	case "+":
		return li + ri, nil
	case "-":
		return li - ri, nil
	case "*":
		return li * ri, nil
	case "/":
		if ri == 0 {
			return nil, fmt.Errorf("integer division by zero")
		}
		return li / ri, nil
	case "%":
		if ri == 0 {
			return nil, fmt.Errorf("integer modulo by zero")
		}
		return li % ri, nil
	case "<<":
		return li << (uint64(ri) & 63), nil
	case ">>":
		return li >> (uint64(ri) & 63), nil
	case "|":
		return li | ri, nil
	case "^":
		return li ^ ri, nil
	case "&":
		return li & ri, nil
	}
	return nil, fmt.Errorf("binary %q is unknown", op)
}

func applyCompare(op string, l, r any) (any, error) {
	li, lok := l.(int64)
	ri, rok := r.(int64)
	if lok && rok {
		switch op {
		case "==":
			return li == ri, nil
		case "!=":
			return li != ri, nil
		case "<":
			return li < ri, nil
		case "<=":
			return li <= ri, nil
		case ">":
			return li > ri, nil
		case ">=":
			return li >= ri, nil
		}
	}
	ls, lsok := l.(string)
	rs, rsok := r.(string)
	if lsok && rsok {
		switch op {
		case "==":
			return ls == rs, nil
		case "!=":
			return ls != rs, nil
		}
	}
	return nil, fmt.Errorf("compare %q: cannot apply to %T and %T", op, l, r)
}
