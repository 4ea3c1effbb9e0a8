// Package crt is the C runtime type layer: boxed fixed-width cells over a
// flat byte arena, pointer cells with pointee-scaled arithmetic, and
// struct/union types with computed field layout. Generated code reaches it
// through the `ctypes` qualifier; the interpretation path executes against
// it directly.
package crt

import (
	"fmt"

	"ctopy/pkg/cdecl"
)

// Kind classifies runtime types.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindStruct
	KindUnion
	KindFunc
)

// PointerSize is the byte width of every pointer cell.
const PointerSize = 8

// Type is a runtime type handle. Builtin handles are shared and
// immutable; aggregate handles are created as stubs and finalized once.
type Type struct {
	Kind   Kind
	Name   string
	Size   int
	Signed bool
	Elem   *Type // pointer pointee or array element; nil for void*
	Len    int   // array length
	Fields []Field
	Ret    *Type // function signature
	Params []*Type

	final bool
}

// Field is one laid-out aggregate member.
type Field struct {
	Name    string
	Type    *Type
	ByteOff int
	BitOff  int // within the storage unit, bitfields only
	Bits    int // 0 for a plain field
}

func (t *Type) String() string {
	if t == nil {
		return "None"
	}
	switch t.Kind {
	case KindPointer:
		if t.Name != "" {
			return t.Name
		}
		return "POINTER(" + t.Elem.String() + ")"
	case KindArray:
		return fmt.Sprintf("%s * %d", t.Elem.String(), t.Len)
	case KindFunc:
		return "CFUNCTYPE"
	default:
		return t.Name
	}
}

// Pointer returns the pointer type to elem; elem nil gives the opaque
// void pointer.
func Pointer(elem *Type) *Type {
	if elem == nil {
		return VoidPtr
	}
	return &Type{Kind: KindPointer, Size: PointerSize, Elem: elem, final: true}
}

// ArrayOf returns a fixed-size contiguous block type.
func ArrayOf(elem *Type, n int) *Type {
	return &Type{Kind: KindArray, Size: elem.Size * n, Elem: elem, Len: n, final: true}
}

// FuncType returns a callable-signature handle. Ret nil means no return
// value.
func FuncType(ret *Type, params []*Type) *Type {
	return &Type{Kind: KindFunc, Size: PointerSize, Ret: ret, Params: params, final: true}
}

// NewAggregate creates a named, fields-less stub for a struct or union so
// pointers to it can be constructed before its layout is known.
func NewAggregate(name string, union bool) *Type {
	k := KindStruct
	if union {
		k = KindUnion
	}
	return &Type{Kind: k, Name: name}
}

// Finalized reports whether an aggregate's field layout has been written.
func (t *Type) Finalized() bool {
	return t.final
}

// alignOf returns the natural alignment of t, capped at pointer size.
func alignOf(t *Type) int {
	switch t.Kind {
	case KindArray:
		return alignOf(t.Elem)
	case KindStruct, KindUnion:
		a := 1
		for _, f := range t.Fields {
			if fa := alignOf(f.Type); fa > a {
				a = fa
			}
		}
		return a
	default:
		if t.Size == 0 {
			return 1
		}
		if t.Size > PointerSize {
			return PointerSize
		}
		return t.Size
	}
}

func align(off, a int) int {
	if a <= 1 {
		return off
	}
	return (off + a - 1) / a * a
}

// FieldSpec is one field as handed to Finalize, before layout.
type FieldSpec struct {
	Name string
	Type *Type
	Bits int
}

// Finalize writes the complete field layout of an aggregate stub.
// Consecutive bitfields of the same storage width share a unit while
// their widths fit. Finalizing twice is an error: entries leave the
// pending set exactly once.
func (t *Type) Finalize(fields []FieldSpec) error {
	if t.Kind != KindStruct && t.Kind != KindUnion {
		return fmt.Errorf("finalize %s: not an aggregate", t)
	}
	if t.final {
		return fmt.Errorf("finalize %s: already finalized", t.Name)
	}
	off := 0
	size := 0
	bitOff := 0
	for _, f := range fields {
		lf := Field{Name: f.Name, Type: f.Type, Bits: f.Bits}
		if t.Kind == KindUnion {
			lf.ByteOff = 0
			if f.Type.Size > size {
				size = f.Type.Size
			}
			t.Fields = append(t.Fields, lf)
			continue
		}
		if f.Bits > 0 {
			unit := f.Type.Size * 8
			if bitOff == 0 || bitOff+f.Bits > unit {
				off = align(off, alignOf(f.Type))
				lf.ByteOff = off
				off += f.Type.Size
				bitOff = 0
			} else {
				lf.ByteOff = t.Fields[len(t.Fields)-1].ByteOff
			}
			lf.BitOff = bitOff
			bitOff += f.Bits
		} else {
			bitOff = 0
			off = align(off, alignOf(f.Type))
			lf.ByteOff = off
			off += f.Type.Size
		}
		if off > size {
			size = off
		}
		t.Fields = append(t.Fields, lf)
	}
	t.Size = align(size, alignOf(t))
	if t.Size == 0 {
		t.Size = 1
	}
	t.final = true
	return nil
}

// VoidPtr is the opaque raw-pointer handle (ctypes.c_void_p).
var VoidPtr = &Type{Kind: KindPointer, Name: "c_void_p", Size: PointerSize, final: true}

var builtinHandles = map[cdecl.BuiltinKind]*Type{}
var fixedHandles = map[string]*Type{}
var byName = map[string]*Type{}

func defInt(name string, size int, signed bool) *Type {
	t := &Type{Kind: KindInt, Name: name, Size: size, Signed: signed, final: true}
	byName[name] = t
	return t
}

func defFloat(name string, size int) *Type {
	t := &Type{Kind: KindFloat, Name: name, Size: size, Signed: true, final: true}
	byName[name] = t
	return t
}

func init() {
	byName["c_void_p"] = VoidPtr

	builtinHandles[cdecl.Bool] = defInt("c_bool", 1, false)
	builtinHandles[cdecl.Char] = defInt("c_char", 1, true)
	byName["c_char_p"] = Pointer(builtinHandles[cdecl.Char])
	builtinHandles[cdecl.SChar] = defInt("c_byte", 1, true)
	builtinHandles[cdecl.UChar] = defInt("c_ubyte", 1, false)
	builtinHandles[cdecl.Short] = defInt("c_short", 2, true)
	builtinHandles[cdecl.UShort] = defInt("c_ushort", 2, false)
	builtinHandles[cdecl.Int] = defInt("c_int", 4, true)
	builtinHandles[cdecl.UInt] = defInt("c_uint", 4, false)
	builtinHandles[cdecl.Long] = defInt("c_long", 8, true)
	builtinHandles[cdecl.ULong] = defInt("c_ulong", 8, false)
	builtinHandles[cdecl.LongLong] = defInt("c_longlong", 8, true)
	builtinHandles[cdecl.ULongLong] = defInt("c_ulonglong", 8, false)
	builtinHandles[cdecl.Float] = defFloat("c_float", 4)
	builtinHandles[cdecl.Double] = defFloat("c_double", 8)

	fixedNames := []struct {
		name   string
		size   int
		signed bool
	}{
		{"int8_t", 1, true}, {"uint8_t", 1, false},
		{"int16_t", 2, true}, {"uint16_t", 2, false},
		{"int32_t", 4, true}, {"uint32_t", 4, false},
		{"int64_t", 8, true}, {"uint64_t", 8, false},
		{"size_t", 8, false}, {"ssize_t", 8, true},
		{"intptr_t", 8, true}, {"uintptr_t", 8, false},
		{"ptrdiff_t", 8, true}, {"wchar_t", 4, true},
	}
	ctypesEquiv := map[string]string{
		"int8_t": "c_int8", "uint8_t": "c_uint8",
		"int16_t": "c_int16", "uint16_t": "c_uint16",
		"int32_t": "c_int32", "uint32_t": "c_uint32",
		"int64_t": "c_int64", "uint64_t": "c_uint64",
		"size_t": "c_size_t", "ssize_t": "c_ssize_t",
		"intptr_t": "c_int64", "uintptr_t": "c_uint64",
		"ptrdiff_t": "c_int64", "wchar_t": "c_wchar",
	}
	for _, fn := range fixedNames {
		t := defInt(ctypesEquiv[fn.name], fn.size, fn.signed)
		fixedHandles[fn.name] = t
	}
	// FILE is carried as an opaque int handle, pointers to it stay opaque.
	fixedHandles["FILE"] = builtinHandles[cdecl.Int]
}

// Builtin returns the runtime handle for one builtin keyword combination.
// Void has no handle; generated code uses None for it.
func Builtin(k cdecl.BuiltinKind) (*Type, bool) {
	t, ok := builtinHandles[k]
	return t, ok
}

// Fixed returns the runtime handle for a standard fixed-width type name.
func Fixed(name string) (*Type, bool) {
	t, ok := fixedHandles[name]
	return t, ok
}

// ByName resolves a ctypes-style handle name, e.g. "c_int".
func ByName(name string) (*Type, bool) {
	t, ok := byName[name]
	return t, ok
}
