// Package cdecl defines the resolved C declaration graph consumed by the
// translator: declarations, type nodes, and the statement/expression forms
// that appear inside function bodies. The graph is produced by an external
// parser frontend and is immutable once handed over, except that an
// anonymous aggregate may be assigned a synthetic name exactly once.
package cdecl

import "strconv"

// Type is the interface for all C type nodes.
//
// Pointer, array and function-pointer types are structural (compared by
// shape); struct, union, enum and typedef types are nominal (compared by
// declaration identity).
type Type interface {
	implType()
	String() string
}

// BuiltinKind identifies one distinct C builtin type keyword combination.
type BuiltinKind int

const (
	Void BuiltinKind = iota
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
)

var builtinNames = []string{
	"void", "_Bool", "char", "signed char", "unsigned char",
	"short", "unsigned short", "int", "unsigned int",
	"long", "unsigned long", "long long", "unsigned long long",
	"float", "double",
}

func (k BuiltinKind) String() string {
	if int(k) < len(builtinNames) {
		return builtinNames[k]
	}
	return "?"
}

// Tbuiltin represents a builtin type (one keyword combination).
type Tbuiltin struct {
	Kind BuiltinKind
}

// Tfixed represents a standard fixed-width type such as int32_t.
type Tfixed struct {
	Name string
}

// Tpointer represents pointer types.
type Tpointer struct {
	To Type
}

// Tarray represents array types. Len is -1 for arrays of unknown length.
type Tarray struct {
	Elem Type
	Len  int64
}

// Tfuncptr represents function-pointer types.
type Tfuncptr struct {
	Return Type
	Params []Type
}

// Tstruct is a nominal reference to a struct declaration.
type Tstruct struct {
	Ref *Struct
}

// Tunion is a nominal reference to a union declaration.
type Tunion struct {
	Ref *Union
}

// Tenum is a nominal reference to an enum declaration.
type Tenum struct {
	Ref *Enum
}

// Ttypedef is a nominal reference to a typedef declaration.
type Ttypedef struct {
	Ref *Typedef
}

// Marker methods for Type interface
func (Tbuiltin) implType() {}
func (Tfixed) implType()   {}
func (Tpointer) implType() {}
func (Tarray) implType()   {}
func (Tfuncptr) implType() {}
func (Tstruct) implType()  {}
func (Tunion) implType()   {}
func (Tenum) implType()    {}
func (Ttypedef) implType() {}

func (t Tbuiltin) String() string { return t.Kind.String() }
func (t Tfixed) String() string   { return t.Name }

func (t Tpointer) String() string {
	if t.To == nil {
		return "void *"
	}
	return t.To.String() + " *"
}

func (t Tarray) String() string {
	if t.Len < 0 {
		return t.Elem.String() + "[]"
	}
	return t.Elem.String() + "[" + strconv.FormatInt(t.Len, 10) + "]"
}

func (t Tfuncptr) String() string {
	s := t.Return.String() + " (*)("
	for i, p := range t.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ")"
}

func (t Tstruct) String() string {
	if t.Ref == nil || t.Ref.Name == "" {
		return "struct <anonymous>"
	}
	return "struct " + t.Ref.Name
}

func (t Tunion) String() string {
	if t.Ref == nil || t.Ref.Name == "" {
		return "union <anonymous>"
	}
	return "union " + t.Ref.Name
}

func (t Tenum) String() string {
	if t.Ref == nil || t.Ref.Name == "" {
		return "enum <anonymous>"
	}
	return "enum " + t.Ref.Name
}

func (t Ttypedef) String() string {
	if t.Ref == nil {
		return "<typedef>"
	}
	return t.Ref.Name
}

// IsVoid reports whether t is the void builtin.
func IsVoid(t Type) bool {
	b, ok := t.(Tbuiltin)
	return ok && b.Kind == Void
}

// IsPointer reports whether t is a pointer type.
func IsPointer(t Type) bool {
	_, ok := t.(Tpointer)
	return ok
}

// Unwrap resolves typedef chains to the underlying type. All other types
// are returned unchanged.
func Unwrap(t Type) Type {
	for {
		td, ok := t.(Ttypedef)
		if !ok || td.Ref == nil {
			return t
		}
		t = td.Ref.Type
	}
}

// Equal checks if two types are equal: structurally for builtin, pointer,
// array and function-pointer types, nominally for the rest.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch ta := a.(type) {
	case Tbuiltin:
		tb, ok := b.(Tbuiltin)
		return ok && ta.Kind == tb.Kind
	case Tfixed:
		tb, ok := b.(Tfixed)
		return ok && ta.Name == tb.Name
	case Tpointer:
		tb, ok := b.(Tpointer)
		return ok && Equal(ta.To, tb.To)
	case Tarray:
		tb, ok := b.(Tarray)
		return ok && ta.Len == tb.Len && Equal(ta.Elem, tb.Elem)
	case Tfuncptr:
		tb, ok := b.(Tfuncptr)
		if !ok || len(ta.Params) != len(tb.Params) || !Equal(ta.Return, tb.Return) {
			return false
		}
		for i, p := range ta.Params {
			if !Equal(p, tb.Params[i]) {
				return false
			}
		}
		return true
	case Tstruct:
		tb, ok := b.(Tstruct)
		return ok && ta.Ref == tb.Ref
	case Tunion:
		tb, ok := b.(Tunion)
		return ok && ta.Ref == tb.Ref
	case Tenum:
		tb, ok := b.(Tenum)
		return ok && ta.Ref == tb.Ref
	case Ttypedef:
		tb, ok := b.(Ttypedef)
		return ok && ta.Ref == tb.Ref
	}
	return false
}
