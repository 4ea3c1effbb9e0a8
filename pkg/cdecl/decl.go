package cdecl

import "strconv"

// Pos is a source position carried for diagnostics.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	s := p.File
	if p.Line > 0 {
		s += ":" + strconv.Itoa(p.Line)
		if p.Col > 0 {
			s += ":" + strconv.Itoa(p.Col)
		}
	}
	return s
}

// Decl is the interface for all top-level declaration nodes. Decls are
// compared by pointer identity; that identity is the ownership key for
// name bindings.
type Decl interface {
	implDecl()
	DeclName() string
	DeclPos() Pos
}

// Field belongs to exactly one struct or union. Declaration order is
// layout-significant. Bits is 0 for a plain field, >0 for a bitfield.
type Field struct {
	Name string
	Type Type
	Bits int
}

// Struct is a struct declaration. Complete is false for a forward
// declaration with no body. Name may be empty for an anonymous struct
// until the layout compiler assigns a synthetic one.
type Struct struct {
	Name     string
	Fields   []Field
	Complete bool
	Pos      Pos
}

// Union is a union declaration, same shape as Struct.
type Union struct {
	Name     string
	Fields   []Field
	Complete bool
	Pos      Pos
}

// EnumEntry is one enumerator constant. Entries are bindable
// declarations so the scope manager can allocate their host names with
// the same collision avoidance as any other global.
type EnumEntry struct {
	Name  string
	Value int64
	Pos   Pos
}

func (*EnumEntry) implDecl()          {}
func (d *EnumEntry) DeclName() string { return d.Name }
func (d *EnumEntry) DeclPos() Pos     { return d.Pos }

// Enum is an enum declaration.
type Enum struct {
	Name     string
	Entries  []EnumEntry
	Complete bool
	Pos      Pos
}

// Typedef aliases a name to a type.
type Typedef struct {
	Name string
	Type Type
	Pos  Pos
}

// Var is a variable declaration, either at top level or local to a
// function body. Init is nil when the variable is value-initialized.
type Var struct {
	Name   string
	Type   Type
	Init   Expr
	Extern bool
	Pos    Pos
}

// Param is one function parameter. Params are bindable declarations so
// the scope manager can key local names by their identity.
type Param struct {
	Name string
	Type Type
	Pos  Pos
}

func (*Param) implDecl()          {}
func (d *Param) DeclName() string { return d.Name }
func (d *Param) DeclPos() Pos     { return d.Pos }

// Func is a function declaration. Body is nil for an extern declaration.
type Func struct {
	Name   string
	Return Type
	Params []*Param
	Body   []Stmt
	Pos    Pos
}

func (*Struct) implDecl()  {}
func (*Union) implDecl()   {}
func (*Enum) implDecl()    {}
func (*Typedef) implDecl() {}
func (*Var) implDecl()     {}
func (*Func) implDecl()    {}

func (d *Struct) DeclName() string  { return d.Name }
func (d *Union) DeclName() string   { return d.Name }
func (d *Enum) DeclName() string    { return d.Name }
func (d *Typedef) DeclName() string { return d.Name }
func (d *Var) DeclName() string     { return d.Name }
func (d *Func) DeclName() string    { return d.Name }

func (d *Struct) DeclPos() Pos  { return d.Pos }
func (d *Union) DeclPos() Pos   { return d.Pos }
func (d *Enum) DeclPos() Pos    { return d.Pos }
func (d *Typedef) DeclPos() Pos { return d.Pos }
func (d *Var) DeclPos() Pos     { return d.Pos }
func (d *Func) DeclPos() Pos    { return d.Pos }

// IsExtern reports whether d is a forward/extern declaration with no body.
func IsExtern(d Decl) bool {
	switch n := d.(type) {
	case *Struct:
		return !n.Complete
	case *Union:
		return !n.Complete
	case *Enum:
		return !n.Complete
	case *Var:
		return n.Extern
	case *Func:
		return n.Body == nil
	}
	return false
}

// Table is the lookup table from declaration name to node, used to
// resolve extern declarations to their full definition when one exists.
type Table struct {
	Decls  []Decl
	byName map[string]Decl
}

// NewTable builds a table over an ordered declaration list. When several
// declarations share a name, a complete definition wins over a forward
// declaration.
func NewTable(decls []Decl) *Table {
	t := &Table{Decls: decls, byName: make(map[string]Decl)}
	for _, d := range decls {
		name := d.DeclName()
		if name == "" {
			continue
		}
		if prev, ok := t.byName[name]; ok && !IsExtern(prev) {
			continue
		}
		t.byName[name] = d
	}
	return t
}

// Lookup returns the declaration bound to name, or nil.
func (t *Table) Lookup(name string) Decl {
	if t == nil {
		return nil
	}
	return t.byName[name]
}

// Resolve maps an extern declaration to its full definition when the
// table holds one, else returns d unchanged.
func (t *Table) Resolve(d Decl) Decl {
	if !IsExtern(d) {
		return d
	}
	if full := t.Lookup(d.DeclName()); full != nil && !IsExtern(full) {
		return full
	}
	return d
}
