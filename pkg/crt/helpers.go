package crt

import "fmt"

// The helper primitives generated code calls through the `helpers`
// qualifier. Two variants per mutation: the plain form steps the boxed
// value by one, the Ptr form steps the raw address by the pointee's byte
// size. They are primitives rather than inlined host operators because
// cells are mutable boxes, not host scalars.

func pointeeSize(c *Cell) uint64 {
	if c.Type.Elem == nil || c.Type.Elem.Size == 0 {
		return 1
	}
	return uint64(c.Type.Elem.Size)
}

// PrefixInc increments the cell and returns it.
func PrefixInc(a *Cell) *Cell {
	a.Store(a.Load() + 1)
	return a
}

// PrefixDec decrements the cell and returns it.
func PrefixDec(a *Cell) *Cell {
	a.Store(a.Load() - 1)
	return a
}

// PostfixInc snapshots the cell, increments it, and returns the snapshot.
func PostfixInc(a *Cell) *Cell {
	b := a.Copy()
	a.Store(a.Load() + 1)
	return b
}

// PostfixDec snapshots the cell, decrements it, and returns the snapshot.
func PostfixDec(a *Cell) *Cell {
	b := a.Copy()
	a.Store(a.Load() - 1)
	return b
}

// PrefixIncPtr steps a pointer cell forward by one pointee.
func PrefixIncPtr(a *Cell) *Cell {
	a.Store(a.Load() + pointeeSize(a))
	return a
}

// PrefixDecPtr steps a pointer cell back by one pointee.
func PrefixDecPtr(a *Cell) *Cell {
	a.Store(a.Load() - pointeeSize(a))
	return a
}

// PostfixIncPtr snapshots, steps forward by one pointee, returns the
// snapshot.
func PostfixIncPtr(a *Cell) *Cell {
	b := a.Copy()
	a.Store(a.Load() + pointeeSize(a))
	return b
}

// PostfixDecPtr snapshots, steps back by one pointee, returns the
// snapshot.
func PostfixDecPtr(a *Cell) *Cell {
	b := a.Copy()
	a.Store(a.Load() - pointeeSize(a))
	return b
}

// Copy is the shallow cell snapshot helper.
func Copy(a *Cell) *Cell {
	return a.Copy()
}

// Assign stores a raw value into a boxed cell and returns the cell.
func Assign(a *Cell, v uint64) *Cell {
	a.Store(v)
	return a
}

// AssignPtr stores a raw address into a pointer cell. The distinct entry
// point mirrors the pointer-aware unwrap on the read side.
func AssignPtr(a *Cell, v uint64) *Cell {
	a.Store(v)
	return a
}

// BinFunc looks up the binary operator function for a C operator token,
// signed-aware where the operation differs by signedness.
func BinFunc(op string) (func(t *Type, a, b uint64) uint64, bool) {
	f, ok := binFuncs[op]
	return f, ok
}

var binFuncs = map[string]func(t *Type, a, b uint64) uint64{
	"+": func(t *Type, a, b uint64) uint64 { return a + b },
	"-": func(t *Type, a, b uint64) uint64 { return a - b },
	"*": func(t *Type, a, b uint64) uint64 { return a * b },
	"/": func(t *Type, a, b uint64) uint64 {
		if t.Signed {
			return uint64(sext(t, a) / sext(t, b))
		}
		return a / b
	},
	"%": func(t *Type, a, b uint64) uint64 {
		if t.Signed {
			return uint64(sext(t, a) % sext(t, b))
		}
		return a % b
	},
	"<<": func(t *Type, a, b uint64) uint64 { return a << (b & 63) },
	">>": func(t *Type, a, b uint64) uint64 {
		if t.Signed {
			return uint64(sext(t, a) >> (b & 63))
		}
		return a >> (b & 63)
	},
	"|": func(t *Type, a, b uint64) uint64 { return a | b },
	"^": func(t *Type, a, b uint64) uint64 { return a ^ b },
	"&": func(t *Type, a, b uint64) uint64 { return a & b },
}

func sext(t *Type, v uint64) int64 {
	w := t.Size
	if w <= 0 || w >= 8 {
		return int64(v)
	}
	shift := uint(64 - w*8)
	return int64(v<<shift) >> shift
}

// AugAssign applies a compound assignment through the operator table.
func AugAssign(a *Cell, op string, v uint64) (*Cell, error) {
	f, ok := BinFunc(op)
	if !ok {
		return nil, fmt.Errorf("augmented assign: unknown operator %q", op)
	}
	a.Store(f(a.Type, a.Load(), v))
	return a, nil
}

// AugAssignPtr is the pointer-aware variant; the operand is a raw
// address value.
func AugAssignPtr(a *Cell, op string, v uint64) (*Cell, error) {
	f, ok := BinFunc(op)
	if !ok {
		return nil, fmt.Errorf("augmented assign: unknown operator %q", op)
	}
	a.Store(f(a.Type, a.Load(), v))
	return a, nil
}

// WrappedFunc is a pre-wrapped external value standing in for a C
// library function; the body is a host closure.
type WrappedFunc struct {
	Name     string
	Ret      *Type
	Params   []*Type
	Variadic bool
	Fn       func(a *Arena, args []*Cell) (*Cell, error)
}
