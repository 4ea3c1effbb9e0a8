// Package declfile loads a declaration graph from its YAML exchange
// form. The document is a flat list of named type declarations followed
// by variables and functions; nominal references are by name, which
// keeps the document acyclic even when the graph it describes is not.
// Loading is two-pass: shells for every named type first, then
// resolution of every type and expression reference against them.
package declfile

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"ctopy/pkg/cdecl"
)

type document struct {
	Types []*typeDecl `yaml:"types"`
	Decls []*declSpec `yaml:"decls"`
}

type typeDecl struct {
	Struct  string      `yaml:"struct"`
	Union   string      `yaml:"union"`
	Enum    string      `yaml:"enum"`
	Typedef string      `yaml:"typedef"`
	Forward bool        `yaml:"forward"`
	Fields  []fieldSpec `yaml:"fields"`
	Entries []entrySpec `yaml:"entries"`
	Type    *typeSpec   `yaml:"type"`

	line  int
	built cdecl.Decl
}

func (t *typeDecl) UnmarshalYAML(n *yaml.Node) error {
	type raw typeDecl
	if err := n.Decode((*raw)(t)); err != nil {
		return err
	}
	t.line = n.Line
	return nil
}

type fieldSpec struct {
	Name string    `yaml:"name"`
	Type *typeSpec `yaml:"type"`
	Bits int       `yaml:"bits"`
}

type entrySpec struct {
	Name  string `yaml:"name"`
	Value int64  `yaml:"value"`
}

type declSpec struct {
	Var    string      `yaml:"var"`
	Func   string      `yaml:"func"`
	Extern bool        `yaml:"extern"`
	Type   *typeSpec   `yaml:"type"`
	Init   *exprSpec   `yaml:"init"`
	Return *typeSpec   `yaml:"return"`
	Params []paramSpec `yaml:"params"`
	Body   []stmtSpec  `yaml:"body"`

	line    int
	hasBody bool
}

func (d *declSpec) UnmarshalYAML(n *yaml.Node) error {
	type raw declSpec
	if err := n.Decode((*raw)(d)); err != nil {
		return err
	}
	d.line = n.Line
	for i := 0; i < len(n.Content)-1; i += 2 {
		if n.Content[i].Value == "body" {
			d.hasBody = true
		}
	}
	return nil
}

type paramSpec struct {
	Name string    `yaml:"name"`
	Type *typeSpec `yaml:"type"`
}

// typeSpec is one type reference: either a bare scalar naming a builtin,
// a fixed-width type or a declared type, or a mapping for the compound
// forms.
type typeSpec struct {
	name string

	Ptr  *typeSpec   `yaml:"ptr"`
	Elem *typeSpec   `yaml:"array"`
	Len  *int64      `yaml:"len"`
	Ret  *typeSpec   `yaml:"funcptr"`
	Args []*typeSpec `yaml:"args"`

	line int
}

func (t *typeSpec) UnmarshalYAML(n *yaml.Node) error {
	t.line = n.Line
	if n.Kind == yaml.ScalarNode {
		return n.Decode(&t.name)
	}
	type raw typeSpec
	return n.Decode((*raw)(t))
}

// exprSpec is one expression: a bare integer scalar is a literal, a bare
// identifier scalar is a reference, everything else is a mapping keyed by
// node form.
type exprSpec struct {
	scalar string
	isNum  bool
	numVal uint64

	Str    *string     `yaml:"str"`
	Char   *string     `yaml:"char"`
	Ref    string      `yaml:"ref"`
	Member *memberSpec `yaml:"member"`
	Unary  *unarySpec  `yaml:"unary"`
	Bin    *binSpec    `yaml:"bin"`
	Assign *assignSpec `yaml:"assign"`
	Cond   *condSpec   `yaml:"cond"`
	Call   *callSpec   `yaml:"call"`
	Cast   *castSpec   `yaml:"cast"`

	line int
}

func (e *exprSpec) UnmarshalYAML(n *yaml.Node) error {
	e.line = n.Line
	if n.Kind == yaml.ScalarNode {
		var v uint64
		if err := n.Decode(&v); err == nil && n.Tag == "!!int" {
			e.isNum = true
			e.numVal = v
			return nil
		}
		return n.Decode(&e.scalar)
	}
	type raw exprSpec
	return n.Decode((*raw)(e))
}

type memberSpec struct {
	Of   *exprSpec `yaml:"of"`
	Name string    `yaml:"name"`
}

type unarySpec struct {
	Op      string    `yaml:"op"`
	X       *exprSpec `yaml:"x"`
	Postfix bool      `yaml:"postfix"`
}

type binSpec struct {
	Op string    `yaml:"op"`
	L  *exprSpec `yaml:"l"`
	R  *exprSpec `yaml:"r"`
}

type assignSpec struct {
	Op string    `yaml:"op"`
	L  *exprSpec `yaml:"l"`
	R  *exprSpec `yaml:"r"`
}

type condSpec struct {
	Test *exprSpec `yaml:"test"`
	Then *exprSpec `yaml:"then"`
	Else *exprSpec `yaml:"else"`
}

type callSpec struct {
	Fn   *exprSpec   `yaml:"fn"`
	Args []*exprSpec `yaml:"args"`
}

type castSpec struct {
	To *typeSpec `yaml:"to"`
	X  *exprSpec `yaml:"x"`
}

type stmtSpec struct {
	Expr   *exprSpec  `yaml:"expr"`
	Local  *localSpec `yaml:"local"`
	While  *loopSpec  `yaml:"while"`
	Do     *loopSpec  `yaml:"do"`
	For    *forSpec   `yaml:"for"`
	If     *ifSpec    `yaml:"if"`
	Return *exprSpec  `yaml:"return"`

	isReturn bool
	line     int
}

func (s *stmtSpec) UnmarshalYAML(n *yaml.Node) error {
	type raw stmtSpec
	if err := n.Decode((*raw)(s)); err != nil {
		return err
	}
	s.line = n.Line
	for i := 0; i < len(n.Content)-1; i += 2 {
		if n.Content[i].Value == "return" {
			s.isReturn = true
		}
	}
	return nil
}

type localSpec struct {
	Name string    `yaml:"name"`
	Type *typeSpec `yaml:"type"`
	Init *exprSpec `yaml:"init"`
}

type loopSpec struct {
	Cond *exprSpec  `yaml:"cond"`
	Body []stmtSpec `yaml:"body"`
}

type forSpec struct {
	Init *exprSpec  `yaml:"init"`
	Cond *exprSpec  `yaml:"cond"`
	Post *exprSpec  `yaml:"post"`
	Body []stmtSpec `yaml:"body"`
}

type ifSpec struct {
	Cond *exprSpec  `yaml:"cond"`
	Then []stmtSpec `yaml:"then"`
	Else []stmtSpec `yaml:"else"`
}

var builtinKinds = map[string]cdecl.BuiltinKind{
	"void": cdecl.Void, "_Bool": cdecl.Bool, "bool": cdecl.Bool,
	"char": cdecl.Char, "signed char": cdecl.SChar,
	"unsigned char": cdecl.UChar,
	"short":         cdecl.Short, "unsigned short": cdecl.UShort,
	"int": cdecl.Int, "unsigned": cdecl.UInt, "unsigned int": cdecl.UInt,
	"long": cdecl.Long, "unsigned long": cdecl.ULong,
	"long long": cdecl.LongLong, "unsigned long long": cdecl.ULongLong,
	"float": cdecl.Float, "double": cdecl.Double,
}

var fixedNames = map[string]bool{
	"int8_t": true, "uint8_t": true, "int16_t": true, "uint16_t": true,
	"int32_t": true, "uint32_t": true, "int64_t": true, "uint64_t": true,
	"size_t": true, "ssize_t": true, "intptr_t": true, "uintptr_t": true,
	"ptrdiff_t": true, "wchar_t": true, "FILE": true,
}

// LoadFile loads a declaration document from a file.
func LoadFile(path string) (*cdecl.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, path)
}

// Load loads a declaration document. The file name is carried into
// positions for diagnostics only.
func Load(r io.Reader, file string) (*cdecl.Table, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	ld := &loader{file: file, named: make(map[string]cdecl.Decl)}
	return ld.build(&doc)
}

type loader struct {
	file  string
	named map[string]cdecl.Decl
	decls []cdecl.Decl
}

func (ld *loader) pos(line int) cdecl.Pos {
	return cdecl.Pos{File: ld.file, Line: line}
}

func (ld *loader) build(doc *document) (*cdecl.Table, error) {
	// Pass one: a shell per named type so nominal references resolve
	// regardless of document order.
	for _, td := range doc.Types {
		if err := ld.shell(td); err != nil {
			return nil, err
		}
	}
	for _, td := range doc.Types {
		if err := ld.fill(td); err != nil {
			return nil, err
		}
	}
	for _, ds := range doc.Decls {
		if err := ld.decl(ds); err != nil {
			return nil, err
		}
	}
	return cdecl.NewTable(ld.decls), nil
}

func (ld *loader) shell(td *typeDecl) error {
	pos := ld.pos(td.line)
	var d cdecl.Decl
	var name string
	switch {
	case td.Struct != "" || (td.Typedef == "" && td.Union == "" && td.Enum == "" && td.Fields != nil):
		name = td.Struct
		d = &cdecl.Struct{Name: name, Complete: !td.Forward, Pos: pos}
	case td.Union != "":
		name = td.Union
		d = &cdecl.Union{Name: name, Complete: !td.Forward, Pos: pos}
	case td.Enum != "":
		name = td.Enum
		e := &cdecl.Enum{Name: name, Complete: !td.Forward, Pos: pos}
		for _, en := range td.Entries {
			e.Entries = append(e.Entries, cdecl.EnumEntry{Name: en.Name, Value: en.Value, Pos: pos})
		}
		d = e
	case td.Typedef != "":
		name = td.Typedef
		d = &cdecl.Typedef{Name: name, Pos: pos}
	default:
		return fmt.Errorf("%s: type entry names no struct, union, enum or typedef", pos)
	}
	if name != "" {
		if _, dup := ld.named[name]; dup {
			return fmt.Errorf("%s: type %q declared twice", pos, name)
		}
		ld.named[name] = d
	}
	ld.decls = append(ld.decls, d)
	td.built = d
	return nil
}

func (ld *loader) fill(td *typeDecl) error {
	switch d := td.built.(type) {
	case *cdecl.Struct:
		fields, err := ld.fields(td.Fields)
		if err != nil {
			return err
		}
		d.Fields = fields
	case *cdecl.Union:
		fields, err := ld.fields(td.Fields)
		if err != nil {
			return err
		}
		d.Fields = fields
	case *cdecl.Typedef:
		if td.Type == nil {
			return fmt.Errorf("%s: typedef %q has no type", d.Pos, d.Name)
		}
		t, err := ld.typ(td.Type)
		if err != nil {
			return err
		}
		d.Type = t
	}
	return nil
}

func (ld *loader) fields(specs []fieldSpec) ([]cdecl.Field, error) {
	fields := make([]cdecl.Field, 0, len(specs))
	for _, fs := range specs {
		t, err := ld.typ(fs.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, cdecl.Field{Name: fs.Name, Type: t, Bits: fs.Bits})
	}
	return fields, nil
}

func (ld *loader) typ(ts *typeSpec) (cdecl.Type, error) {
	if ts == nil {
		return nil, fmt.Errorf("%s: missing type", ld.pos(0))
	}
	switch {
	case ts.name != "":
		return ld.namedType(ts.name, ts.line)
	case ts.Ptr != nil:
		to, err := ld.typ(ts.Ptr)
		if err != nil {
			return nil, err
		}
		return cdecl.Tpointer{To: to}, nil
	case ts.Elem != nil:
		elem, err := ld.typ(ts.Elem)
		if err != nil {
			return nil, err
		}
		length := int64(-1)
		if ts.Len != nil {
			length = *ts.Len
		}
		return cdecl.Tarray{Elem: elem, Len: length}, nil
	case ts.Ret != nil:
		ret, err := ld.typ(ts.Ret)
		if err != nil {
			return nil, err
		}
		params := make([]cdecl.Type, 0, len(ts.Args))
		for _, a := range ts.Args {
			p, err := ld.typ(a)
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		}
		return cdecl.Tfuncptr{Return: ret, Params: params}, nil
	}
	return nil, fmt.Errorf("%s: empty type", ld.pos(ts.line))
}

func (ld *loader) namedType(name string, line int) (cdecl.Type, error) {
	if k, ok := builtinKinds[name]; ok {
		return cdecl.Tbuiltin{Kind: k}, nil
	}
	if fixedNames[name] {
		return cdecl.Tfixed{Name: name}, nil
	}
	switch d := ld.named[name].(type) {
	case *cdecl.Struct:
		return cdecl.Tstruct{Ref: d}, nil
	case *cdecl.Union:
		return cdecl.Tunion{Ref: d}, nil
	case *cdecl.Enum:
		return cdecl.Tenum{Ref: d}, nil
	case *cdecl.Typedef:
		return cdecl.Ttypedef{Ref: d}, nil
	}
	return nil, fmt.Errorf("%s: unknown type %q", ld.pos(line), name)
}

func (ld *loader) decl(ds *declSpec) error {
	pos := ld.pos(ds.line)
	switch {
	case ds.Var != "":
		t, err := ld.typ(ds.Type)
		if err != nil {
			return err
		}
		v := &cdecl.Var{Name: ds.Var, Type: t, Extern: ds.Extern, Pos: pos}
		if ds.Init != nil {
			env := &bodyEnv{ld: ld}
			init, err := env.expr(ds.Init)
			if err != nil {
				return err
			}
			v.Init = init
		}
		ld.named[v.Name] = v
		ld.decls = append(ld.decls, v)
		return nil
	case ds.Func != "":
		ret := cdecl.Type(cdecl.Tbuiltin{Kind: cdecl.Int})
		if ds.Return != nil {
			t, err := ld.typ(ds.Return)
			if err != nil {
				return err
			}
			ret = t
		}
		fn := &cdecl.Func{Name: ds.Func, Return: ret, Pos: pos}
		env := &bodyEnv{ld: ld}
		env.push()
		for _, ps := range ds.Params {
			t, err := ld.typ(ps.Type)
			if err != nil {
				return err
			}
			p := &cdecl.Param{Name: ps.Name, Type: t, Pos: pos}
			fn.Params = append(fn.Params, p)
			env.bind(ps.Name, p)
		}
		// Registered before the body loads so recursive calls resolve.
		ld.named[fn.Name] = fn
		ld.decls = append(ld.decls, fn)
		if ds.hasBody {
			body, err := env.stmts(ds.Body)
			if err != nil {
				return err
			}
			if body == nil {
				body = []cdecl.Stmt{}
			}
			fn.Body = body
		}
		return nil
	}
	return fmt.Errorf("%s: declaration names no var or func", pos)
}

// bodyEnv resolves expression references during loading: innermost
// lexical frame first, then file-scope names.
type bodyEnv struct {
	ld     *loader
	frames []map[string]cdecl.Decl
}

func (e *bodyEnv) push() {
	e.frames = append(e.frames, make(map[string]cdecl.Decl))
}

func (e *bodyEnv) pop() {
	e.frames = e.frames[:len(e.frames)-1]
}

func (e *bodyEnv) bind(name string, d cdecl.Decl) {
	e.frames[len(e.frames)-1][name] = d
}

func (e *bodyEnv) lookup(name string) (cdecl.Decl, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if d, ok := e.frames[i][name]; ok {
			return d, true
		}
	}
	d, ok := e.ld.named[name]
	return d, ok
}

func (e *bodyEnv) stmts(specs []stmtSpec) ([]cdecl.Stmt, error) {
	var out []cdecl.Stmt
	for n := range specs {
		s, err := e.stmt(&specs[n])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (e *bodyEnv) block(specs []stmtSpec) ([]cdecl.Stmt, error) {
	e.push()
	defer e.pop()
	return e.stmts(specs)
}

func (e *bodyEnv) stmt(ss *stmtSpec) (cdecl.Stmt, error) {
	switch {
	case ss.Expr != nil:
		x, err := e.expr(ss.Expr)
		if err != nil {
			return nil, err
		}
		return cdecl.ExprStmt{X: x}, nil
	case ss.Local != nil:
		t, err := e.ld.typ(ss.Local.Type)
		if err != nil {
			return nil, err
		}
		v := &cdecl.Var{Name: ss.Local.Name, Type: t, Pos: e.ld.pos(ss.line)}
		if ss.Local.Init != nil {
			init, err := e.expr(ss.Local.Init)
			if err != nil {
				return nil, err
			}
			v.Init = init
		}
		e.bind(v.Name, v)
		return cdecl.DeclStmt{Var: v}, nil
	case ss.While != nil:
		cond, err := e.expr(ss.While.Cond)
		if err != nil {
			return nil, err
		}
		body, err := e.block(ss.While.Body)
		if err != nil {
			return nil, err
		}
		return cdecl.While{Cond: cond, Body: body}, nil
	case ss.Do != nil:
		cond, err := e.expr(ss.Do.Cond)
		if err != nil {
			return nil, err
		}
		body, err := e.block(ss.Do.Body)
		if err != nil {
			return nil, err
		}
		return cdecl.DoWhile{Cond: cond, Body: body}, nil
	case ss.For != nil:
		var init, cond, post cdecl.Expr
		var err error
		if ss.For.Init != nil {
			if init, err = e.expr(ss.For.Init); err != nil {
				return nil, err
			}
		}
		if ss.For.Cond != nil {
			if cond, err = e.expr(ss.For.Cond); err != nil {
				return nil, err
			}
		}
		if ss.For.Post != nil {
			if post, err = e.expr(ss.For.Post); err != nil {
				return nil, err
			}
		}
		body, err := e.block(ss.For.Body)
		if err != nil {
			return nil, err
		}
		return cdecl.For{Init: init, Cond: cond, Post: post, Body: body}, nil
	case ss.If != nil:
		cond, err := e.expr(ss.If.Cond)
		if err != nil {
			return nil, err
		}
		then, err := e.block(ss.If.Then)
		if err != nil {
			return nil, err
		}
		els, err := e.block(ss.If.Else)
		if err != nil {
			return nil, err
		}
		return cdecl.If{Cond: cond, Then: then, Else: els}, nil
	case ss.isReturn:
		if ss.Return == nil {
			return cdecl.Return{}, nil
		}
		x, err := e.expr(ss.Return)
		if err != nil {
			return nil, err
		}
		return cdecl.Return{X: x}, nil
	}
	return nil, fmt.Errorf("%s: statement names no form", e.ld.pos(ss.line))
}

func (e *bodyEnv) expr(es *exprSpec) (cdecl.Expr, error) {
	pos := e.ld.pos(es.line)
	switch {
	case es.isNum:
		return cdecl.Num{Value: es.numVal}, nil
	case es.scalar != "":
		d, ok := e.lookup(es.scalar)
		if !ok {
			return nil, fmt.Errorf("%s: unknown name %q", pos, es.scalar)
		}
		return cdecl.Ref{Decl: d}, nil
	case es.Str != nil:
		return cdecl.Str{Value: *es.Str}, nil
	case es.Char != nil:
		if len(*es.Char) != 1 {
			return nil, fmt.Errorf("%s: char literal %q is not one byte", pos, *es.Char)
		}
		return cdecl.CharLit{Value: (*es.Char)[0]}, nil
	case es.Ref != "":
		d, ok := e.lookup(es.Ref)
		if !ok {
			return nil, fmt.Errorf("%s: unknown name %q", pos, es.Ref)
		}
		return cdecl.Ref{Decl: d}, nil
	case es.Member != nil:
		base, err := e.expr(es.Member.Of)
		if err != nil {
			return nil, err
		}
		return cdecl.Member{Base: base, Name: es.Member.Name}, nil
	case es.Unary != nil:
		x, err := e.expr(es.Unary.X)
		if err != nil {
			return nil, err
		}
		return cdecl.Unary{Op: es.Unary.Op, Operand: x, Postfix: es.Unary.Postfix}, nil
	case es.Bin != nil:
		l, err := e.expr(es.Bin.L)
		if err != nil {
			return nil, err
		}
		r, err := e.expr(es.Bin.R)
		if err != nil {
			return nil, err
		}
		return cdecl.Binary{Op: es.Bin.Op, Left: l, Right: r}, nil
	case es.Assign != nil:
		l, err := e.expr(es.Assign.L)
		if err != nil {
			return nil, err
		}
		r, err := e.expr(es.Assign.R)
		if err != nil {
			return nil, err
		}
		op := es.Assign.Op
		if op == "" {
			op = "="
		}
		return cdecl.Assign{Op: op, Left: l, Right: r}, nil
	case es.Cond != nil:
		test, err := e.expr(es.Cond.Test)
		if err != nil {
			return nil, err
		}
		then, err := e.expr(es.Cond.Then)
		if err != nil {
			return nil, err
		}
		els, err := e.expr(es.Cond.Else)
		if err != nil {
			return nil, err
		}
		return cdecl.Cond{Test: test, Then: then, Else: els}, nil
	case es.Call != nil:
		fn, err := e.expr(es.Call.Fn)
		if err != nil {
			return nil, err
		}
		args := make([]cdecl.Expr, 0, len(es.Call.Args))
		for _, a := range es.Call.Args {
			x, err := e.expr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, x)
		}
		return cdecl.Call{Target: fn, Args: args}, nil
	case es.Cast != nil:
		to, err := e.ld.typ(es.Cast.To)
		if err != nil {
			return nil, err
		}
		x, err := e.expr(es.Cast.X)
		if err != nil {
			return nil, err
		}
		return cdecl.TypeConv{To: to, Arg: x}, nil
	}
	return nil, fmt.Errorf("%s: expression names no form", pos)
}