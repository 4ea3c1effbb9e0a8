package translate

import (
	"errors"
	"testing"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/layout"
	"ctopy/pkg/pyast"
	"ctopy/pkg/scope"
	"ctopy/pkg/typemap"
)

type discardSink struct{}

func (discardSink) Stub(d cdecl.Decl, name string, union bool)                            {}
func (discardSink) Finalize(d cdecl.Decl, name string, union bool, fields []layout.Field) {}
func (discardSink) Placeholder(d cdecl.Decl, name string, union bool)                     {}

func newTranslator(t *testing.T, decls []cdecl.Decl) *Translator {
	t.Helper()
	table := cdecl.NewTable(decls)
	g := scope.NewGlobal(table, nil)
	m := typemap.New(layout.New(g, discardSink{}), g)
	return New(scope.NewFuncEnv(g), m)
}

func localInt(t *testing.T, tr *Translator, name string) *cdecl.Var {
	t.Helper()
	v := &cdecl.Var{Name: name, Type: cdecl.Tbuiltin{Kind: cdecl.Int}}
	if _, err := tr.Env.Bind(name, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func localIntPtr(t *testing.T, tr *Translator, name string) *cdecl.Var {
	t.Helper()
	v := &cdecl.Var{Name: name, Type: cdecl.Tpointer{To: cdecl.Tbuiltin{Kind: cdecl.Int}}}
	if _, err := tr.Env.Bind(name, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func exprString(t *testing.T, tr *Translator, e cdecl.Expr) string {
	t.Helper()
	out, _, err := tr.Expr(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return pyast.ExprString(out)
}

func TestLiteralTyping(t *testing.T) {
	tr := newTranslator(t, nil)
	cases := []struct {
		value uint64
		want  string
	}{
		{5, "ctypes.c_int8(5)"},
		{200, "ctypes.c_uint8(200)"},
		{300, "ctypes.c_int16(300)"},
		{70000, "ctypes.c_int32(70000)"},
		{1 << 40, "ctypes.c_int64(1099511627776)"},
		{1 << 63, "ctypes.c_uint64(9223372036854775808)"},
	}
	for _, c := range cases {
		if got := exprString(t, tr, cdecl.Num{Value: c.value}); got != c.want {
			t.Errorf("literal %d: expected %q, got %q", c.value, c.want, got)
		}
	}
}

func TestStringAndCharLiterals(t *testing.T) {
	tr := newTranslator(t, nil)
	if got := exprString(t, tr, cdecl.Str{Value: "hi"}); got != `ctypes.c_char_p("hi")` {
		t.Errorf("expected ctypes.c_char_p, got %q", got)
	}
	if got := exprString(t, tr, cdecl.CharLit{Value: 'A'}); got != `ctypes.c_char("A")` {
		t.Errorf("expected ctypes.c_char, got %q", got)
	}
}

func TestRefLocalAndGlobal(t *testing.T) {
	counter := &cdecl.Var{Name: "counter", Type: cdecl.Tbuiltin{Kind: cdecl.Int}}
	tr := newTranslator(t, []cdecl.Decl{counter})
	tr.Env.PushBlock()
	x := localInt(t, tr, "x")
	if got := exprString(t, tr, cdecl.Ref{Decl: x}); got != "x" {
		t.Errorf("expected bare local name, got %q", got)
	}
	if got := exprString(t, tr, cdecl.Ref{Decl: counter}); got != "g.counter" {
		t.Errorf("expected qualified global, got %q", got)
	}
}

func TestIncDecHelperSelection(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	x := localInt(t, tr, "x")
	p := localIntPtr(t, tr, "p")
	cases := []struct {
		expr cdecl.Expr
		want string
	}{
		{cdecl.Unary{Op: "++", Operand: cdecl.Ref{Decl: x}}, "helpers.prefixInc(x)"},
		{cdecl.Unary{Op: "--", Operand: cdecl.Ref{Decl: x}}, "helpers.prefixDec(x)"},
		{cdecl.Unary{Op: "++", Operand: cdecl.Ref{Decl: x}, Postfix: true}, "helpers.postfixInc(x)"},
		{cdecl.Unary{Op: "++", Operand: cdecl.Ref{Decl: p}}, "helpers.prefixIncPtr(p)"},
		{cdecl.Unary{Op: "--", Operand: cdecl.Ref{Decl: p}, Postfix: true}, "helpers.postfixDecPtr(p)"},
	}
	for _, c := range cases {
		if got := exprString(t, tr, c.expr); got != c.want {
			t.Errorf("expected %q, got %q", c.want, got)
		}
	}
}

func TestUnaryWrapsResult(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	x := localInt(t, tr, "x")
	got := exprString(t, tr, cdecl.Unary{Op: "-", Operand: cdecl.Ref{Decl: x}})
	if got != "ctypes.c_int((-x.value))" {
		t.Errorf("expected boxed negation, got %q", got)
	}
	got = exprString(t, tr, cdecl.Unary{Op: "!", Operand: cdecl.Ref{Decl: x}})
	if got != "ctypes.c_int((not x.value))" {
		t.Errorf("expected boxed logical not, got %q", got)
	}
}

func TestBinaryResultTypeIsLeftOperand(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	x := localInt(t, tr, "x")
	y := localInt(t, tr, "y")
	expr := cdecl.Binary{Op: "+", Left: cdecl.Ref{Decl: x}, Right: cdecl.Ref{Decl: y}}
	out, typ, err := tr.Expr(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pyast.ExprString(out); got != "ctypes.c_int((x.value + y.value))" {
		t.Errorf("expected boxed sum, got %q", got)
	}
	if !cdecl.Equal(typ, cdecl.Tbuiltin{Kind: cdecl.Int}) {
		t.Errorf("expected int result type, got %s", typ)
	}
}

func TestBooleanAndCompareYieldInt(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	x := localInt(t, tr, "x")
	y := localInt(t, tr, "y")
	got := exprString(t, tr, cdecl.Binary{Op: "&&", Left: cdecl.Ref{Decl: x}, Right: cdecl.Ref{Decl: y}})
	if got != "ctypes.c_int((x.value and y.value))" {
		t.Errorf("expected boxed and, got %q", got)
	}
	got = exprString(t, tr, cdecl.Binary{Op: "<", Left: cdecl.Ref{Decl: x}, Right: cdecl.Ref{Decl: y}})
	if got != "ctypes.c_int((x.value < y.value))" {
		t.Errorf("expected boxed compare, got %q", got)
	}
}

func TestPointerUnwrapInValue(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	p := localIntPtr(t, tr, "p")
	q := localIntPtr(t, tr, "q")
	got := exprString(t, tr, cdecl.Assign{Op: "=", Left: cdecl.Ref{Decl: p}, Right: cdecl.Ref{Decl: q}})
	want := "helpers.assignPtr(p, ctypes.cast(q, ctypes.c_void_p).value)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAssignHelpers(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	x := localInt(t, tr, "x")
	got := exprString(t, tr, cdecl.Assign{Op: "=", Left: cdecl.Ref{Decl: x}, Right: cdecl.Num{Value: 5}})
	if got != "helpers.assign(x, ctypes.c_int8(5).value)" {
		t.Errorf("expected plain assign helper, got %q", got)
	}
	got = exprString(t, tr, cdecl.Assign{Op: "+=", Left: cdecl.Ref{Decl: x}, Right: cdecl.Num{Value: 1}})
	if got != `helpers.augAssign(x, "+", ctypes.c_int8(1).value)` {
		t.Errorf("expected augmented assign helper, got %q", got)
	}
	if _, _, err := tr.Expr(cdecl.Assign{Op: "@=", Left: cdecl.Ref{Decl: x}, Right: cdecl.Num{Value: 1}}); err == nil {
		t.Error("expected an error for an unknown compound operator")
	}
}

func TestCondResultIsMiddleOperand(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	x := localInt(t, tr, "x")
	expr := cdecl.Cond{
		Test: cdecl.Ref{Decl: x},
		Then: cdecl.Num{Value: 1},
		Else: cdecl.Num{Value: 2},
	}
	out, typ, err := tr.Expr(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pyast.ExprString(out); got != "(ctypes.c_int8(1) if x.value else ctypes.c_int8(2))" {
		t.Errorf("expected conditional expression, got %q", got)
	}
	if !cdecl.Equal(typ, cdecl.Tfixed{Name: "int8_t"}) {
		t.Errorf("expected the middle operand's type, got %s", typ)
	}
}

func TestMemberAccess(t *testing.T) {
	point := &cdecl.Struct{Name: "Point", Complete: true, Fields: []cdecl.Field{
		{Name: "x", Type: cdecl.Tbuiltin{Kind: cdecl.Int}},
	}}
	pt := &cdecl.Var{Name: "pt", Type: cdecl.Tstruct{Ref: point}}
	tr := newTranslator(t, []cdecl.Decl{point, pt})
	got := exprString(t, tr, cdecl.Member{Base: cdecl.Ref{Decl: pt}, Name: "x"})
	if got != "g.pt.x" {
		t.Errorf("expected g.pt.x, got %q", got)
	}
	_, _, err := tr.Expr(cdecl.Member{Base: cdecl.Ref{Decl: pt}, Name: "z"})
	if !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
}

func TestCallThroughGlobal(t *testing.T) {
	fn := &cdecl.Func{Name: "bump", Return: cdecl.Tbuiltin{Kind: cdecl.Int},
		Params: []*cdecl.Param{{Name: "n", Type: cdecl.Tbuiltin{Kind: cdecl.Int}}}}
	tr := newTranslator(t, []cdecl.Decl{fn})
	got := exprString(t, tr, cdecl.Call{Target: cdecl.Ref{Decl: fn}, Args: []cdecl.Expr{cdecl.Num{Value: 2}}})
	if got != "g.bump(ctypes.c_int8(2))" {
		t.Errorf("expected g.bump call, got %q", got)
	}
}

func TestCastExpressions(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	x := localInt(t, tr, "x")
	got := exprString(t, tr, cdecl.TypeConv{To: cdecl.Tfixed{Name: "int8_t"}, Arg: cdecl.Ref{Decl: x}})
	if got != "ctypes.c_int8(x.value)" {
		t.Errorf("expected value cast, got %q", got)
	}
	ptr := cdecl.Tpointer{To: cdecl.Tbuiltin{Kind: cdecl.Int}}
	got = exprString(t, tr, cdecl.TypeConv{To: ptr, Arg: cdecl.Ref{Decl: x}})
	if got != "ctypes.cast(ctypes.c_void_p(x.value), ctypes.POINTER(ctypes.c_int))" {
		t.Errorf("expected pointer cast, got %q", got)
	}
}

func TestDeclareLocal(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	v := &cdecl.Var{Name: "y", Type: cdecl.Tbuiltin{Kind: cdecl.Int}, Init: cdecl.Num{Value: 3}}
	stmt, err := tr.DeclareLocal(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assign, ok := stmt.(pyast.Assign)
	if !ok {
		t.Fatalf("expected Assign, got %T", stmt)
	}
	if got := pyast.ExprString(assign.Value); got != "ctypes.c_int(ctypes.c_int8(3).value)" {
		t.Errorf("expected wrapped initializer, got %q", got)
	}

	bare := &cdecl.Var{Name: "z", Type: cdecl.Tbuiltin{Kind: cdecl.Int}}
	stmt, err = tr.DeclareLocal(bare)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pyast.ExprString(stmt.(pyast.Assign).Value); got != "ctypes.c_int()" {
		t.Errorf("expected value initialization, got %q", got)
	}
}

func TestControlFlowIsNoOp(t *testing.T) {
	tr := newTranslator(t, nil)
	tr.Env.PushBlock()
	for _, s := range []cdecl.Stmt{
		cdecl.While{}, cdecl.DoWhile{}, cdecl.For{}, cdecl.If{}, cdecl.Return{},
	} {
		out, err := tr.Stmt(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) != 1 {
			t.Fatalf("expected one statement, got %d", len(out))
		}
		assert, ok := out[0].(pyast.Assert)
		if !ok {
			t.Fatalf("expected Assert placeholder, got %T", out[0])
		}
		name, ok := assert.Test.(pyast.Name)
		if !ok || name.ID != "True" {
			t.Errorf("expected assert True, got %v", assert.Test)
		}
	}
}

func TestBuildFunction(t *testing.T) {
	fn := &cdecl.Func{Name: "bump", Return: cdecl.Tbuiltin{Kind: cdecl.Int}}
	n := &cdecl.Param{Name: "n", Type: cdecl.Tbuiltin{Kind: cdecl.Int}}
	fn.Params = []*cdecl.Param{n}
	fn.Body = []cdecl.Stmt{
		cdecl.ExprStmt{X: cdecl.Assign{Op: "+=", Left: cdecl.Ref{Decl: n}, Right: cdecl.Num{Value: 1}}},
		cdecl.Return{X: cdecl.Ref{Decl: n}},
	}
	tr := newTranslator(t, []cdecl.Decl{fn})
	def, err := BuildFunction(fn, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Name != "bump" {
		t.Errorf("expected bump, got %q", def.Name)
	}
	if len(def.Params) != 1 || def.Params[0] != "n" {
		t.Fatalf("expected params [n], got %v", def.Params)
	}
	// Re-wrap, body statement, no-op return, block cleanup.
	if len(def.Body) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(def.Body))
	}
	wrap := def.Body[0].(pyast.Assign)
	if got := pyast.ExprString(wrap.Value); got != "ctypes.c_int(n.value)" {
		t.Errorf("expected parameter re-wrap, got %q", got)
	}
	del, ok := def.Body[3].(pyast.Del)
	if !ok {
		t.Fatalf("expected Del, got %T", def.Body[3])
	}
	if len(del.Names) != 1 || del.Names[0] != "n" {
		t.Errorf("expected del n, got %v", del.Names)
	}
}

func TestBuildFunctionWithoutBody(t *testing.T) {
	fn := &cdecl.Func{Name: "ext", Return: cdecl.Tbuiltin{Kind: cdecl.Int}}
	tr := newTranslator(t, []cdecl.Decl{fn})
	if _, err := BuildFunction(fn, tr); err == nil {
		t.Fatal("expected an error for a bodiless function")
	}
}

func TestGlobalInit(t *testing.T) {
	v := &cdecl.Var{Name: "counter", Type: cdecl.Tbuiltin{Kind: cdecl.Int}, Init: cdecl.Num{Value: 7}}
	tr := newTranslator(t, []cdecl.Decl{v})
	e, err := tr.GlobalInit(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pyast.ExprString(e); got != "ctypes.c_int(ctypes.c_int8(7).value)" {
		t.Errorf("expected wrapped initializer, got %q", got)
	}
}