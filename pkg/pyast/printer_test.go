package pyast

import (
	"bytes"
	"testing"
)

func TestExprString(t *testing.T) {
	cases := []struct {
		expr Expr
		want string
	}{
		{Name{ID: "x"}, "x"},
		{Attr{Value: Name{ID: "g"}, Name: "counter"}, "g.counter"},
		{Num{Value: 42}, "42"},
		{Str{Value: `he said "hi"`}, `"he said \"hi\""`},
		{Call{Func: Attr{Value: Name{ID: "ctypes"}, Name: "c_int"},
			Args: []Expr{Num{Value: 1}}}, "ctypes.c_int(1)"},
		{Tuple{Elems: []Expr{Str{Value: "x"}}}, `("x",)`},
		{Tuple{Elems: []Expr{Str{Value: "x"}, Num{Value: 3}}}, `("x", 3)`},
		{List{Elems: []Expr{Num{Value: 1}, Num{Value: 2}}}, "[1, 2]"},
		{Unary{Op: "not", Operand: Name{ID: "x"}}, "(not x)"},
		{Unary{Op: "-", Operand: Name{ID: "x"}}, "(-x)"},
		{Bin{Op: "+", Left: Name{ID: "a"}, Right: Name{ID: "b"}}, "(a + b)"},
		{Bool{Op: "and", Values: []Expr{Name{ID: "a"}, Name{ID: "b"}}}, "(a and b)"},
		{Compare{Op: "<=", Left: Name{ID: "a"}, Right: Num{Value: 9}}, "(a <= 9)"},
		{IfExp{Test: Name{ID: "c"}, Body: Num{Value: 1}, Else: Num{Value: 2}},
			"(1 if c else 2)"},
	}
	for _, c := range cases {
		if got := ExprString(c.expr); got != c.want {
			t.Errorf("expected %q, got %q", c.want, got)
		}
	}
}

func TestPrintFunctionDef(t *testing.T) {
	def := FunctionDef{
		Name:   "bump",
		Params: []string{"n"},
		Body: []Stmt{
			Assign{Target: Name{ID: "n"}, Value: Call{
				Func: Attr{Value: Name{ID: "ctypes"}, Name: "c_int"},
				Args: []Expr{Attr{Value: Name{ID: "n"}, Name: "value"}},
			}},
			NoOp(),
			Del{Names: []string{"n"}},
		},
	}
	var b bytes.Buffer
	NewPrinter(&b).PrintStmt(def)
	want := "def bump(n):\n" +
		"    n = ctypes.c_int(n.value)\n" +
		"    assert True\n" +
		"    del n\n"
	if b.String() != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, b.String())
	}
}

func TestPrintEmptyFunctionBody(t *testing.T) {
	var b bytes.Buffer
	NewPrinter(&b).PrintStmt(FunctionDef{Name: "noop"})
	want := "def noop():\n    pass\n"
	if b.String() != want {
		t.Errorf("expected %q, got %q", want, b.String())
	}
}

func TestPrintClassDefAndComment(t *testing.T) {
	var b bytes.Buffer
	p := NewPrinter(&b)
	p.PrintStmts([]Stmt{
		ClassDef{Name: "Point", Base: Attr{Value: Name{ID: "ctypes"}, Name: "Structure"}},
		Comment{Text: "laid out below"},
	})
	want := "class Point(ctypes.Structure):\n    pass\n# laid out below\n"
	if b.String() != want {
		t.Errorf("expected %q, got %q", want, b.String())
	}
}
