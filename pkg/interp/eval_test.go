package interp

import (
	"testing"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/crt"
)

func TestApplyBinaryIntegers(t *testing.T) {
	v, err := applyBinary("/", int64(-7), int64(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int64) != -3 {
		t.Errorf("expected truncating division -3, got %d", v)
	}
	if _, err := applyBinary("/", int64(1), int64(0)); err == nil {
		t.Error("expected a division-by-zero error")
	}
	if _, err := applyBinary("%", int64(1), int64(0)); err == nil {
		t.Error("expected a modulo-by-zero error")
	}
	v, err = applyBinary("<<", int64(1), int64(65))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int64) != 2 {
		t.Errorf("expected the shift count masked to 1, got %d", v)
	}
}

func TestApplyBinaryFloatPromotion(t *testing.T) {
	v, err := applyBinary("+", int64(1), 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(float64) != 1.5 {
		t.Errorf("expected 1.5, got %v", v)
	}
	if _, err := applyBinary("&", 1.0, 2.0); err == nil {
		t.Error("expected an error for bitwise float operands")
	}
}

func TestApplyCompare(t *testing.T) {
	v, err := applyCompare("<=", int64(2), int64(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != true {
		t.Errorf("expected true, got %v", v)
	}
	v, err = applyCompare("==", "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != false {
		t.Errorf("expected false, got %v", v)
	}
	if _, err := applyCompare("<", "a", int64(1)); err == nil {
		t.Error("expected an error for mixed operand kinds")
	}
}

func TestTruthy(t *testing.T) {
	cInt, _ := crt.ByName("c_int")
	a := crt.NewArena()
	zero := a.NewCell(cInt)
	one := a.NewCell(cInt)
	one.Store(1)
	cases := []struct {
		v    any
		want bool
	}{
		{nil, false}, {int64(0), false}, {int64(2), true},
		{"", false}, {"x", true}, {zero, false}, {one, true},
	}
	for _, c := range cases {
		if got := truthy(c.v); got != c.want {
			t.Errorf("truthy(%v): expected %v, got %v", c.v, c.want, got)
		}
	}
}

func TestCellValueByKind(t *testing.T) {
	a := crt.NewArena()
	cByte, _ := crt.ByName("c_byte")
	signed := a.NewCell(cByte)
	signed.Store(0xff)
	if got := cellValue(signed); got.(int64) != -1 {
		t.Errorf("expected sign-extended -1, got %v", got)
	}
	cDouble, _ := crt.ByName("c_double")
	f := a.NewCell(cDouble)
	f.StoreFloat(2.5)
	if got := cellValue(f); got.(float64) != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
}

func TestConstructFromString(t *testing.T) {
	i := New(cdecl.NewTable(nil))
	cChar, _ := crt.ByName("c_char")
	cell, err := i.construct(crt.Pointer(cChar), []any{"abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := i.Arena.CString(int(cell.Load())); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
	// A non-pointer target takes the first byte.
	plain, err := i.construct(cChar, []any{"abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := plain.Load(); got != 'a' {
		t.Errorf("expected %d, got %d", 'a', got)
	}
}
