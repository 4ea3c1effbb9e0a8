package scope

import (
	"errors"
	"fmt"

	"ctopy/pkg/cdecl"
)

// ErrUnboundSymbol reports a reference to a declaration with no live
// binding reachable from the current scope.
var ErrUnboundSymbol = errors.New("unbound symbol")

// GlobalBinding is the tagged variant stored per global name. Generated
// code reaches globals through the `g` namespace; each name resolves to
// exactly one of these.
type GlobalBinding interface {
	implBinding()
}

// VarBinding is a global variable.
type VarBinding struct {
	Decl *cdecl.Var
}

// FuncBinding is a C function.
type FuncBinding struct {
	Decl *cdecl.Func
}

// TypeBinding is a struct, union, enum or typedef usable as a type
// constructor.
type TypeBinding struct {
	Decl cdecl.Decl
}

// WrappedBinding is a pre-wrapped external value registered by a shim.
type WrappedBinding struct {
	Value any
}

// ConstBinding is an enumerator constant.
type ConstBinding struct {
	Entry *cdecl.EnumEntry
}

func (VarBinding) implBinding()     {}
func (FuncBinding) implBinding()    {}
func (TypeBinding) implBinding()    {}
func (WrappedBinding) implBinding() {}
func (ConstBinding) implBinding()   {}

// Global is the process-lifetime scope of one translation run. Bindings
// are append-only: once a name is assigned it is never reassigned or
// silently overwritten.
type Global struct {
	table    *cdecl.Table
	names    map[cdecl.Decl]string
	bindings map[string]GlobalBinding
	wrapped  []string // wrapped-value names in registration order
	extra    map[string]bool
}

// NewGlobal creates the global scope over a declaration table. Extra
// names are reserved in addition to the fixed host-reserved set.
func NewGlobal(table *cdecl.Table, extraReserved []string) *Global {
	g := &Global{
		table:    table,
		names:    make(map[cdecl.Decl]string),
		bindings: make(map[string]GlobalBinding),
		extra:    make(map[string]bool),
	}
	for _, n := range extraReserved {
		g.extra[n] = true
	}
	return g
}

func (g *Global) taken(name string, self cdecl.Decl) bool {
	if IsReserved(name) || g.extra[name] {
		return true
	}
	if _, ok := g.bindings[name]; ok {
		return true
	}
	// A declaration that will want this exact name later also blocks it.
	if d := g.table.Lookup(name); d != nil && d != self {
		return true
	}
	return false
}

// Bind allocates a fresh host-legal name for d, trying raw first, then
// raw with deterministic suffixes. An empty raw name allocates from the
// synthetic __dummy stem.
func (g *Global) Bind(raw string, d cdecl.Decl) (string, error) {
	if name, ok := g.names[d]; ok {
		return name, nil
	}
	c := candidates{raw: raw}
	for {
		name := c.next()
		if g.taken(name, d) {
			continue
		}
		g.names[d] = name
		g.bindings[name] = bindingFor(d)
		return name, nil
	}
}

func bindingFor(d cdecl.Decl) GlobalBinding {
	switch n := d.(type) {
	case *cdecl.Var:
		return VarBinding{Decl: n}
	case *cdecl.Func:
		return FuncBinding{Decl: n}
	case *cdecl.EnumEntry:
		return ConstBinding{Entry: n}
	default:
		return TypeBinding{Decl: d}
	}
}

// Resolve returns the name bound to d, binding it lazily when d is
// reachable through the declaration table.
func (g *Global) Resolve(d cdecl.Decl) (string, error) {
	if name, ok := g.names[d]; ok {
		return name, nil
	}
	if name := d.DeclName(); name != "" {
		if found := g.table.Lookup(name); found != nil && g.table.Resolve(found) == g.table.Resolve(d) {
			return g.Bind(name, found)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnboundSymbol, d.DeclName())
}

// Binding returns the binding registered under a host name.
func (g *Global) Binding(name string) (GlobalBinding, bool) {
	b, ok := g.bindings[name]
	return b, ok
}

// RegisterExtern registers a pre-wrapped external value under the first
// free name derived from prefix, and returns the allocated name. When
// the declaration table carries a bodiless declaration of the same name,
// the wrapped value attaches to it, so references to that declaration
// link to the wrapped value.
func (g *Global) RegisterExtern(prefix string, v any) string {
	if d := g.table.Lookup(prefix); d != nil && cdecl.IsExtern(g.table.Resolve(d)) {
		_, named := g.names[d]
		_, bound := g.bindings[prefix]
		if !named && !bound && !IsReserved(prefix) && !g.extra[prefix] {
			g.names[d] = prefix
			g.bindings[prefix] = WrappedBinding{Value: v}
			g.wrapped = append(g.wrapped, prefix)
			return prefix
		}
	}
	c := candidates{raw: prefix}
	for {
		name := c.next()
		if g.taken(name, nil) {
			continue
		}
		g.bindings[name] = WrappedBinding{Value: v}
		g.wrapped = append(g.wrapped, name)
		return name
	}
}

// WrappedNames returns the wrapped-value names in registration order,
// for the emitted value table.
func (g *Global) WrappedNames() []string {
	return g.wrapped
}

// Table exposes the declaration table of this run.
func (g *Global) Table() *cdecl.Table {
	return g.table
}
