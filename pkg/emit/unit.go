package emit

import (
	"io"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/layout"
	"ctopy/pkg/pyast"
)

// prologue is the fixed preamble of every generated unit. The module is
// aliased as g so generated code can reach file-scope names the same way
// on the static path and the interpretation path, and the helper
// primitives carry the mutate-in-place semantics of ++/-- and
// assignment.
const prologue = `import ctypes
import sys
import operator

g = sys.modules[__name__]
_externs = {}
_libc = ctypes.CDLL(None)


def _extern_func(name):
    fn = getattr(_libc, name, None)
    if fn is None:
        def fn(*args):
            raise NotImplementedError("extern %s" % (name,))
    _externs[name] = fn
    return fn


def _extern_var(name):
    try:
        v = ctypes.c_void_p.in_dll(_libc, name)
    except ValueError:
        v = ctypes.c_void_p()
    _externs[name] = v
    return v


class helpers:
    _binops = {
        "+": operator.add, "-": operator.sub, "*": operator.mul,
        "/": operator.floordiv, "%": operator.mod,
        "<<": operator.lshift, ">>": operator.rshift,
        "|": operator.or_, "^": operator.xor, "&": operator.and_,
    }

    @staticmethod
    def copy(a):
        b = type(a)()
        ctypes.memmove(ctypes.byref(b), ctypes.byref(a), ctypes.sizeof(a))
        return b

    @staticmethod
    def _addr(a):
        return ctypes.cast(a, ctypes.c_void_p).value or 0

    @staticmethod
    def _setPtr(a, addr):
        p = ctypes.c_void_p(addr)
        ctypes.memmove(ctypes.byref(a), ctypes.byref(p),
                       ctypes.sizeof(ctypes.c_void_p))
        return a

    @staticmethod
    def prefixInc(a):
        a.value += 1
        return a

    @staticmethod
    def prefixDec(a):
        a.value -= 1
        return a

    @staticmethod
    def postfixInc(a):
        b = helpers.copy(a)
        a.value += 1
        return b

    @staticmethod
    def postfixDec(a):
        b = helpers.copy(a)
        a.value -= 1
        return b

    @staticmethod
    def prefixIncPtr(a):
        return helpers._setPtr(a, helpers._addr(a) + ctypes.sizeof(a._type_))

    @staticmethod
    def prefixDecPtr(a):
        return helpers._setPtr(a, helpers._addr(a) - ctypes.sizeof(a._type_))

    @staticmethod
    def postfixIncPtr(a):
        b = helpers.copy(a)
        helpers.prefixIncPtr(a)
        return b

    @staticmethod
    def postfixDecPtr(a):
        b = helpers.copy(a)
        helpers.prefixDecPtr(a)
        return b

    @staticmethod
    def assign(a, v):
        a.value = v
        return a

    @staticmethod
    def assignPtr(a, v):
        return helpers._setPtr(a, v)

    @staticmethod
    def augAssign(a, op, v):
        a.value = helpers._binops[op](a.value, v)
        return a

    @staticmethod
    def augAssignPtr(a, op, v):
        return helpers._setPtr(a, helpers._binops[op](helpers._addr(a), v))
`

// Unit is one generated source file, held as statements bucketed by
// section so the output order is independent of input declaration order:
// all struct stubs come before any struct body, so every forward and
// self reference resolves by the time it is read.
type Unit struct {
	structStubs  []pyast.Stmt
	structBodies []pyast.Stmt
	unionStubs   []pyast.Stmt
	unionBodies  []pyast.Stmt
	enums        []pyast.Stmt
	typedefs     []pyast.Stmt
	vars         []pyast.Stmt
	funcs        []pyast.Stmt
	externs      []pyast.Stmt
}

// Render writes the unit as source text.
func (u *Unit) Render(w io.Writer) error {
	if _, err := io.WriteString(w, prologue); err != nil {
		return err
	}
	p := pyast.NewPrinter(w)
	for _, section := range [][]pyast.Stmt{
		u.structStubs, u.structBodies,
		u.unionStubs, u.unionBodies,
		u.enums, u.typedefs, u.vars, u.funcs, u.externs,
	} {
		if len(section) == 0 {
			continue
		}
		if _, err := io.WriteString(w, "\n\n"); err != nil {
			return err
		}
		p.PrintStmts(section)
	}
	return nil
}

// textSink renders layout events into unit sections.
type textSink struct {
	unit *Unit
}

var structureBase = pyast.Attr{Value: pyast.Name{ID: "ctypes"}, Name: "Structure"}
var unionBase = pyast.Attr{Value: pyast.Name{ID: "ctypes"}, Name: "Union"}

func (s *textSink) Stub(d cdecl.Decl, name string, union bool) {
	def := pyast.ClassDef{Name: name, Base: structureBase}
	if union {
		def.Base = unionBase
		s.unit.unionStubs = append(s.unit.unionStubs, def)
		return
	}
	s.unit.structStubs = append(s.unit.structStubs, def)
}

func (s *textSink) Finalize(d cdecl.Decl, name string, union bool, fields []layout.Field) {
	elems := make([]pyast.Expr, len(fields))
	for i, f := range fields {
		t := pyast.Tuple{Elems: []pyast.Expr{pyast.Str{Value: f.Name}, f.Type}}
		if f.Bits > 0 {
			t.Elems = append(t.Elems, pyast.Num{Value: uint64(f.Bits)})
		}
		elems[i] = t
	}
	body := pyast.Assign{
		Target: pyast.Attr{Value: pyast.Name{ID: name}, Name: "_fields_"},
		Value:  pyast.List{Elems: elems},
	}
	if union {
		s.unit.unionBodies = append(s.unit.unionBodies, body)
		return
	}
	s.unit.structBodies = append(s.unit.structBodies, body)
}

func (s *textSink) Placeholder(d cdecl.Decl, name string, union bool) {
	s.Stub(d, name, union)
	s.Finalize(d, name, union, nil)
}
