package scope

import (
	"errors"
	"testing"

	"ctopy/pkg/cdecl"
)

func intVar(name string) *cdecl.Var {
	return &cdecl.Var{Name: name, Type: cdecl.Tbuiltin{Kind: cdecl.Int}}
}

func TestGlobalBindReservedName(t *testing.T) {
	g := NewGlobal(cdecl.NewTable(nil), nil)
	name, err := g.Bind("lambda", intVar("lambda"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "lambda_a" {
		t.Errorf("expected lambda_a, got %q", name)
	}
}

func TestGlobalBindCollision(t *testing.T) {
	g := NewGlobal(cdecl.NewTable(nil), nil)
	a := intVar("x")
	b := intVar("x")
	nameA, err := g.Bind("x", a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nameB, err := g.Bind("x", b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nameA != "x" || nameB != "x_a" {
		t.Errorf("expected x and x_a, got %q and %q", nameA, nameB)
	}
	// The same declaration binds once.
	again, err := g.Bind("x", a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != nameA {
		t.Errorf("expected stable name %q, got %q", nameA, again)
	}
}

func TestGlobalBindExtraReserved(t *testing.T) {
	g := NewGlobal(cdecl.NewTable(nil), []string{"mylib"})
	name, err := g.Bind("mylib", intVar("mylib"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "mylib_a" {
		t.Errorf("expected mylib_a, got %q", name)
	}
}

func TestGlobalBindBlockedByTableName(t *testing.T) {
	later := intVar("y")
	table := cdecl.NewTable([]cdecl.Decl{later})
	g := NewGlobal(table, nil)
	// A different declaration may not squat on a name some table entry
	// will want.
	name, err := g.Bind("y", intVar("other"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "y_a" {
		t.Errorf("expected y_a, got %q", name)
	}
	own, err := g.Resolve(later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if own != "y" {
		t.Errorf("expected y, got %q", own)
	}
}

func TestGlobalResolveUnbound(t *testing.T) {
	g := NewGlobal(cdecl.NewTable(nil), nil)
	_, err := g.Resolve(intVar("ghost"))
	if !errors.Is(err, ErrUnboundSymbol) {
		t.Fatalf("expected ErrUnboundSymbol, got %v", err)
	}
}

func TestGlobalBindingVariants(t *testing.T) {
	v := intVar("v")
	fn := &cdecl.Func{Name: "f", Return: cdecl.Tbuiltin{Kind: cdecl.Int}}
	td := &cdecl.Typedef{Name: "T", Type: cdecl.Tbuiltin{Kind: cdecl.Int}}
	table := cdecl.NewTable([]cdecl.Decl{v, fn, td})
	g := NewGlobal(table, nil)
	for _, d := range []cdecl.Decl{v, fn, td} {
		if _, err := g.Resolve(d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	b, _ := g.Binding("v")
	if _, ok := b.(VarBinding); !ok {
		t.Errorf("expected VarBinding, got %T", b)
	}
	b, _ = g.Binding("f")
	if _, ok := b.(FuncBinding); !ok {
		t.Errorf("expected FuncBinding, got %T", b)
	}
	b, _ = g.Binding("T")
	if _, ok := b.(TypeBinding); !ok {
		t.Errorf("expected TypeBinding, got %T", b)
	}
}

func TestRegisterExternAttachesToDecl(t *testing.T) {
	ext := &cdecl.Func{Name: "printf", Return: cdecl.Tbuiltin{Kind: cdecl.Int}}
	table := cdecl.NewTable([]cdecl.Decl{ext})
	g := NewGlobal(table, nil)
	name := g.RegisterExtern("printf", "wrapped")
	if name != "printf" {
		t.Fatalf("expected printf, got %q", name)
	}
	resolved, err := g.Resolve(ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != "printf" {
		t.Errorf("expected the declaration to resolve to printf, got %q", resolved)
	}
	b, ok := g.Binding("printf")
	if !ok {
		t.Fatalf("expected a binding for printf")
	}
	wb, ok := b.(WrappedBinding)
	if !ok {
		t.Fatalf("expected WrappedBinding, got %T", b)
	}
	if wb.Value != "wrapped" {
		t.Errorf("expected wrapped value, got %v", wb.Value)
	}
}

func TestRegisterExternFreshName(t *testing.T) {
	g := NewGlobal(cdecl.NewTable(nil), nil)
	if name := g.RegisterExtern("stdout", 1); name != "stdout" {
		t.Fatalf("expected stdout, got %q", name)
	}
	if name := g.RegisterExtern("stdout", 2); name != "stdout_a" {
		t.Fatalf("expected stdout_a, got %q", name)
	}
	names := g.WrappedNames()
	if len(names) != 2 || names[0] != "stdout" || names[1] != "stdout_a" {
		t.Errorf("expected registration order [stdout stdout_a], got %v", names)
	}
}

func TestFuncEnvShadowAndReuse(t *testing.T) {
	table := cdecl.NewTable(nil)
	g := NewGlobal(table, nil)
	e := NewFuncEnv(g)
	e.PushBlock()
	outer := intVar("i")
	nameOuter, err := e.Bind("i", outer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nameOuter != "i" {
		t.Fatalf("expected i, got %q", nameOuter)
	}

	e.PushBlock()
	inner := intVar("i")
	nameInner, err := e.Bind("i", inner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nameInner != "i_a" {
		t.Fatalf("expected shadow name i_a, got %q", nameInner)
	}
	popped := e.PopBlock()
	if len(popped) != 1 || popped[0] != "i_a" {
		t.Fatalf("expected popped [i_a], got %v", popped)
	}

	// A sibling block may reuse the released name.
	e.PushBlock()
	sibling := intVar("i")
	nameSibling, err := e.Bind("i", sibling)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nameSibling != "i_a" {
		t.Errorf("expected reused name i_a, got %q", nameSibling)
	}
}

func TestFuncEnvBindWithoutBlock(t *testing.T) {
	e := NewFuncEnv(NewGlobal(cdecl.NewTable(nil), nil))
	if _, err := e.Bind("x", intVar("x")); err == nil {
		t.Fatal("expected an error binding outside any block")
	}
}

func TestFuncEnvResolveFallsBackToGlobal(t *testing.T) {
	v := intVar("counter")
	table := cdecl.NewTable([]cdecl.Decl{v})
	e := NewFuncEnv(NewGlobal(table, nil))
	name, global, err := e.Resolve(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !global || name != "counter" {
		t.Errorf("expected global counter, got global=%v name=%q", global, name)
	}
}