package scope

import (
	"fmt"

	"ctopy/pkg/cdecl"
)

// FuncEnv is the scope of one function translation: a map from local
// declaration identity to host name, layered into block scopes matching
// the C brace structure. Sibling blocks may reuse names; nested blocks
// shadow by construction since allocation skips live names.
type FuncEnv struct {
	Global *Global
	names  map[cdecl.Decl]string
	vars   map[string]cdecl.Decl
	blocks []*blockScope
}

type blockScope struct {
	names []string // registration order, replayed for cleanup
}

// NewFuncEnv creates a function environment over the global scope.
func NewFuncEnv(g *Global) *FuncEnv {
	return &FuncEnv{
		Global: g,
		names:  make(map[cdecl.Decl]string),
		vars:   make(map[string]cdecl.Decl),
	}
}

// PushBlock enters a block scope.
func (e *FuncEnv) PushBlock() {
	e.blocks = append(e.blocks, &blockScope{})
}

// PopBlock leaves the innermost block scope, unregisters every binding it
// introduced, and returns their names in registration order so the caller
// can emit one cleanup action per binding.
func (e *FuncEnv) PopBlock() []string {
	if len(e.blocks) == 0 {
		return nil
	}
	top := e.blocks[len(e.blocks)-1]
	e.blocks = e.blocks[:len(e.blocks)-1]
	for _, name := range top.names {
		if d, ok := e.vars[name]; ok {
			delete(e.names, d)
			delete(e.vars, name)
		}
	}
	return top.names
}

func (e *FuncEnv) live(name string) bool {
	if IsReserved(name) || e.Global.extra[name] {
		return true
	}
	if _, ok := e.vars[name]; ok {
		return true
	}
	// Globals visible from this scope chain also block the name.
	if _, ok := e.Global.bindings[name]; ok {
		return true
	}
	if d := e.Global.table.Lookup(name); d != nil {
		return true
	}
	return false
}

// Bind allocates a fresh name for a local declaration in the innermost
// block scope.
func (e *FuncEnv) Bind(raw string, d cdecl.Decl) (string, error) {
	if len(e.blocks) == 0 {
		return "", fmt.Errorf("bind %q: no open block scope", raw)
	}
	if _, ok := e.names[d]; ok {
		return "", fmt.Errorf("bind %q: declaration already bound", raw)
	}
	c := candidates{raw: raw}
	for {
		name := c.next()
		if e.live(name) {
			continue
		}
		e.names[d] = name
		e.vars[name] = d
		top := e.blocks[len(e.blocks)-1]
		top.names = append(top.names, name)
		return name, nil
	}
}

// Resolve returns the host name for d and whether it resolved to a
// global. Locals win over globals.
func (e *FuncEnv) Resolve(d cdecl.Decl) (name string, global bool, err error) {
	if name, ok := e.names[d]; ok {
		return name, false, nil
	}
	name, err = e.Global.Resolve(d)
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}
