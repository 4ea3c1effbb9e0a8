package interp

import (
	"errors"
	"testing"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/crt"
)

func intT() cdecl.Type { return cdecl.Tbuiltin{Kind: cdecl.Int} }

// bumpTable builds a counter global and a bump() function that adds one
// to it.
func bumpTable() *cdecl.Table {
	counter := &cdecl.Var{Name: "counter", Type: intT()}
	bump := &cdecl.Func{Name: "bump", Return: intT(), Body: []cdecl.Stmt{
		cdecl.ExprStmt{X: cdecl.Assign{
			Op:    "+=",
			Left:  cdecl.Ref{Decl: counter},
			Right: cdecl.Num{Value: 1},
		}},
	}}
	return cdecl.NewTable([]cdecl.Decl{counter, bump})
}

func TestFuncCompilesAtMostOnce(t *testing.T) {
	i := New(bumpTable())
	c1, err := i.Func("bump")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c2, err := i.Func("bump")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c1 != c2 {
		t.Error("expected the cached compilation on the second lookup")
	}
	if n := i.Translations("bump"); n != 1 {
		t.Errorf("expected 1 translation pass, got %d", n)
	}
}

func TestFuncUnknown(t *testing.T) {
	ext := &cdecl.Func{Name: "ext", Return: intT()}
	i := New(cdecl.NewTable([]cdecl.Decl{ext}))
	if _, err := i.Func("missing"); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
	// A bodiless declaration is not invokable either.
	if _, err := i.Func("ext"); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}

func TestInvokeMutatesGlobal(t *testing.T) {
	i := New(bumpTable())
	for n := 0; n < 3; n++ {
		if _, err := i.Invoke("bump"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	v, err := i.globalValue("counter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cell, ok := v.(*crt.Cell)
	if !ok {
		t.Fatalf("expected a cell, got %T", v)
	}
	if got := cell.Int64(); got != 3 {
		t.Errorf("expected counter 3, got %d", got)
	}
	if n := i.Translations("bump"); n != 1 {
		t.Errorf("expected 1 translation pass across invocations, got %d", n)
	}
}

func TestInvokeArityError(t *testing.T) {
	n := &cdecl.Param{Name: "n", Type: intT()}
	f := &cdecl.Func{Name: "f", Return: intT(), Params: []*cdecl.Param{n},
		Body: []cdecl.Stmt{cdecl.Return{}}}
	i := New(cdecl.NewTable([]cdecl.Decl{f}))
	_, err := i.Invoke("f")
	var arity *ArityError
	if !errors.As(err, &arity) {
		t.Fatalf("expected ArityError, got %v", err)
	}
	if arity.Want != 1 || arity.Got != 0 {
		t.Errorf("expected want 1 got 0, have want %d got %d", arity.Want, arity.Got)
	}
}

func TestInvokeUncoercibleArg(t *testing.T) {
	n := &cdecl.Param{Name: "n", Type: intT()}
	f := &cdecl.Func{Name: "f", Return: intT(), Params: []*cdecl.Param{n},
		Body: []cdecl.Stmt{cdecl.Return{}}}
	i := New(cdecl.NewTable([]cdecl.Decl{f}))
	_, err := i.Invoke("f", 3.5)
	var unc *UncoercibleArgError
	if !errors.As(err, &unc) {
		t.Fatalf("expected UncoercibleArgError, got %v", err)
	}
	if unc.Index != 0 {
		t.Errorf("expected index 0, got %d", unc.Index)
	}
}

func TestInvokeTruncatesToParamType(t *testing.T) {
	out := &cdecl.Var{Name: "out", Type: intT()}
	n := &cdecl.Param{Name: "n", Type: cdecl.Tfixed{Name: "int8_t"}}
	clip := &cdecl.Func{Name: "clip", Return: intT(), Params: []*cdecl.Param{n},
		Body: []cdecl.Stmt{
			cdecl.ExprStmt{X: cdecl.Assign{
				Op:    "=",
				Left:  cdecl.Ref{Decl: out},
				Right: cdecl.Ref{Decl: n},
			}},
		}}
	i := New(cdecl.NewTable([]cdecl.Decl{out, clip}))
	if _, err := i.Invoke("clip", 300); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := i.globalValue("out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.(*crt.Cell).Int64(); got != 300&0xff {
		t.Errorf("expected %d, got %d", 300&0xff, got)
	}
}

func TestCoerceArgString(t *testing.T) {
	i := New(cdecl.NewTable(nil))
	charPtr := cdecl.Tpointer{To: cdecl.Tbuiltin{Kind: cdecl.Char}}
	cell, err := i.CoerceArg("hi", charPtr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	addr := int(cell.Load())
	if addr == 0 {
		t.Fatal("expected a non-null pointer")
	}
	if got := i.Arena.CString(addr); got != "hi" {
		t.Errorf("expected %q, got %q", "hi", got)
	}
	if b := i.Arena.Bytes(addr, 3); b[2] != 0 {
		t.Errorf("expected a NUL terminator, got %d", b[2])
	}
}

func TestCoerceArgNilPointer(t *testing.T) {
	i := New(cdecl.NewTable(nil))
	cell, err := i.CoerceArg(nil, cdecl.Tpointer{To: intT()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cell.Load() != 0 {
		t.Errorf("expected a null pointer, got %#x", cell.Load())
	}
}

func TestCoerceArgSlice(t *testing.T) {
	i := New(cdecl.NewTable(nil))
	cell, err := i.CoerceArg([]any{10, 20, 30}, cdecl.Tpointer{To: intT()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base := int(cell.Load())
	cInt, _ := crt.ByName("c_int")
	for n, want := range []int64{10, 20, 30, 0} {
		el := i.Arena.CellAt(cInt, base+n*cInt.Size)
		if got := el.Int64(); got != want {
			t.Errorf("element %d: expected %d, got %d", n, want, got)
		}
	}
}

func TestInvokePointerIncrementSteps(t *testing.T) {
	// Parameters are re-wrapped into fresh cells on entry, so the step is
	// observed through a global the function assigns to, not through the
	// caller's cell.
	out := &cdecl.Var{Name: "out", Type: cdecl.Tpointer{To: intT()}}
	p := &cdecl.Param{Name: "p", Type: cdecl.Tpointer{To: intT()}}
	step := &cdecl.Func{Name: "step", Return: intT(), Params: []*cdecl.Param{p},
		Body: []cdecl.Stmt{
			cdecl.ExprStmt{X: cdecl.Unary{Op: "++", Operand: cdecl.Ref{Decl: p}}},
			cdecl.ExprStmt{X: cdecl.Assign{
				Op:    "=",
				Left:  cdecl.Ref{Decl: out},
				Right: cdecl.Ref{Decl: p},
			}},
		}}
	i := New(cdecl.NewTable([]cdecl.Decl{out, step}))
	cInt, _ := crt.ByName("c_int")
	cell := i.Arena.NewCell(crt.Pointer(cInt))
	cell.Store(200)
	if _, err := i.Invoke("step", cell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := i.globalValue("out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.(*crt.Cell).Load(); got != 200+uint64(cInt.Size) {
		t.Errorf("expected pointee-scaled step to %d, got %d", 200+cInt.Size, got)
	}
	if got := cell.Load(); got != 200 {
		t.Errorf("expected the caller's cell to stay 200, got %d", got)
	}
}

func TestInvokeCallsOtherFunction(t *testing.T) {
	counter := &cdecl.Var{Name: "counter", Type: intT()}
	n := &cdecl.Param{Name: "n", Type: intT()}
	add := &cdecl.Func{Name: "add", Return: intT(), Params: []*cdecl.Param{n},
		Body: []cdecl.Stmt{
			cdecl.ExprStmt{X: cdecl.Assign{
				Op:    "+=",
				Left:  cdecl.Ref{Decl: counter},
				Right: cdecl.Ref{Decl: n},
			}},
		}}
	run := &cdecl.Func{Name: "run", Return: intT(), Body: []cdecl.Stmt{
		cdecl.ExprStmt{X: cdecl.Call{Target: cdecl.Ref{Decl: add},
			Args: []cdecl.Expr{cdecl.Num{Value: 5}}}},
		cdecl.ExprStmt{X: cdecl.Call{Target: cdecl.Ref{Decl: add},
			Args: []cdecl.Expr{cdecl.Num{Value: 7}}}},
	}}
	i := New(cdecl.NewTable([]cdecl.Decl{counter, add, run}))
	if _, err := i.Invoke("run"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := i.globalValue("counter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.(*crt.Cell).Int64(); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
	if i.Translations("add") != 1 {
		t.Errorf("expected the callee to compile once, got %d", i.Translations("add"))
	}
}

func TestInvokeLocalsShadowAndClean(t *testing.T) {
	counter := &cdecl.Var{Name: "counter", Type: intT()}
	local := &cdecl.Var{Name: "x", Type: intT(), Init: cdecl.Num{Value: 9}}
	f := &cdecl.Func{Name: "f", Return: intT(), Body: []cdecl.Stmt{
		cdecl.DeclStmt{Var: local},
		cdecl.ExprStmt{X: cdecl.Assign{
			Op:    "=",
			Left:  cdecl.Ref{Decl: counter},
			Right: cdecl.Ref{Decl: local},
		}},
	}}
	i := New(cdecl.NewTable([]cdecl.Decl{counter, f}))
	if _, err := i.Invoke("f"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := i.globalValue("counter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.(*crt.Cell).Int64(); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
}

func TestStructFieldRoundTrip(t *testing.T) {
	point := &cdecl.Struct{Name: "Point", Complete: true, Fields: []cdecl.Field{
		{Name: "x", Type: intT()},
		{Name: "y", Type: intT()},
	}}
	pt := &cdecl.Var{Name: "pt", Type: cdecl.Tstruct{Ref: point}}
	set := &cdecl.Func{Name: "set", Return: intT(), Body: []cdecl.Stmt{
		cdecl.ExprStmt{X: cdecl.Assign{
			Op:    "=",
			Left:  cdecl.Member{Base: cdecl.Ref{Decl: pt}, Name: "y"},
			Right: cdecl.Num{Value: 42},
		}},
	}}
	i := New(cdecl.NewTable([]cdecl.Decl{point, pt, set}))
	if _, err := i.Invoke("set"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := i.globalValue("pt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cell := v.(*crt.Cell)
	y, ok := cell.Field("y")
	if !ok {
		t.Fatal("expected a y field")
	}
	if got := y.Int64(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}
