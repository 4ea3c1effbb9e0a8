// Package layout orders and finalizes struct/union emission. C permits
// forward references and self-reference through pointers, and input
// declaration order need not respect dependency order, so every aggregate
// moves through an explicit state machine: a named fields-less stub is
// emitted first (so pointers to it can be built), the field list is
// computed under a Constructing marker that detects by-value
// self-containment, and anything that cannot complete at first use is
// parked in the pending set and retried in a dedicated pass.
//
// States live in a side table owned by this compiler; the input
// declaration graph is never flagged or rewritten, except for the single
// permitted mutation of naming a previously anonymous aggregate.
package layout

import (
	"errors"
	"fmt"
	"strconv"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/pyast"
	"ctopy/pkg/scope"
)

// State is the lifecycle of one aggregate.
type State int

const (
	Unseen State = iota
	Stubbed
	Constructing
	Finalized
	DelayedFinalized
	Extern
)

func (s State) String() string {
	switch s {
	case Unseen:
		return "unseen"
	case Stubbed:
		return "stub"
	case Constructing:
		return "constructing"
	case Finalized:
		return "finalized"
	case DelayedFinalized:
		return "delayed-finalized"
	case Extern:
		return "extern"
	}
	return "?"
}

// ErrRecursiveConstruction reports by-value self-containment: an
// aggregate reached again, not through a pointer, while its own field
// list is being computed. That is a genuine C error.
var ErrRecursiveConstruction = errors.New("recursive construction")

// UnresolvedError reports an aggregate still unfinalized after the final
// pending pass.
type UnresolvedError struct {
	Name string
	Pos  cdecl.Pos
	Err  error
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: aggregate %q unresolved: %v", e.Pos, e.Name, e.Err)
}

func (e *UnresolvedError) Unwrap() error { return e.Err }

// Field is one finalized member with its mapped host type expression.
type Field struct {
	Name string
	Type pyast.Expr
	Bits int
}

// Sink receives layout events in emission order. The static path renders
// them to source text; the interpretation path materializes runtime types.
type Sink interface {
	Stub(d cdecl.Decl, name string, union bool)
	Finalize(d cdecl.Decl, name string, union bool, fields []Field)
	Placeholder(d cdecl.Decl, name string, union bool)
}

// TypeMapper maps a field's C type to a host type expression. Provided by
// the type mapper; declared here because field mapping recurses back into
// this compiler.
type TypeMapper interface {
	MapFieldType(t cdecl.Type) (pyast.Expr, error)
}

// Compiler drives aggregate emission for one run.
type Compiler struct {
	global *scope.Global
	sink   Sink
	mapper TypeMapper

	states    map[cdecl.Decl]State
	pending   []cdecl.Decl
	inPending map[cdecl.Decl]bool
	anonCount int
}

// New creates a layout compiler. The type mapper is wired afterwards via
// SetMapper since the two recurse into each other.
func New(global *scope.Global, sink Sink) *Compiler {
	return &Compiler{
		global:    global,
		sink:      sink,
		states:    make(map[cdecl.Decl]State),
		inPending: make(map[cdecl.Decl]bool),
	}
}

// SetMapper wires the field type mapper.
func (c *Compiler) SetMapper(m TypeMapper) {
	c.mapper = m
}

// StateOf returns the current state of an aggregate.
func (c *Compiler) StateOf(d cdecl.Decl) State {
	return c.states[c.global.Table().Resolve(d)]
}

// Pending returns the number of aggregates parked for the retry pass.
func (c *Compiler) Pending() int {
	return len(c.pending)
}

func aggParts(d cdecl.Decl) (fields []cdecl.Field, union bool, complete bool, ok bool) {
	switch n := d.(type) {
	case *cdecl.Struct:
		return n.Fields, false, n.Complete, true
	case *cdecl.Union:
		return n.Fields, true, n.Complete, true
	}
	return nil, false, false, false
}

// nameFor assigns the aggregate's host name, deriving a synthetic one for
// anonymous aggregates: from an enclosing typedef when one exists, else
// from a monotonic counter. Assigning the synthetic name to the decl node
// is the one permitted mutation of the input graph, and happens once.
func (c *Compiler) nameFor(d cdecl.Decl) (string, error) {
	raw := d.DeclName()
	if raw == "" {
		raw = c.synthesize(d)
		switch n := d.(type) {
		case *cdecl.Struct:
			n.Name = raw
		case *cdecl.Union:
			n.Name = raw
		}
	}
	return c.global.Bind(raw, d)
}

func (c *Compiler) synthesize(d cdecl.Decl) string {
	for _, other := range c.global.Table().Decls {
		td, ok := other.(*cdecl.Typedef)
		if !ok {
			continue
		}
		if refersTo(td.Type, d) {
			return "_anonymous_" + td.Name
		}
	}
	c.anonCount++
	return "_anonymous_" + strconv.Itoa(c.anonCount)
}

func refersTo(t cdecl.Type, d cdecl.Decl) bool {
	switch n := t.(type) {
	case cdecl.Tstruct:
		return cdecl.Decl(n.Ref) == d
	case cdecl.Tunion:
		return cdecl.Decl(n.Ref) == d
	}
	return false
}

// StubRef guarantees at least a stub for d and returns its host name
// without finalizing. Pointer mapping goes through here: pointer size
// does not depend on pointee layout, so a stub reference is enough and is
// what breaks self-referential pointer cycles.
func (c *Compiler) StubRef(d cdecl.Decl) (string, error) {
	d = c.global.Table().Resolve(d)
	name, err := c.nameFor(d)
	if err != nil {
		return "", err
	}
	if c.states[d] == Unseen {
		_, union, _, ok := aggParts(d)
		if !ok {
			return "", fmt.Errorf("stub %q: not an aggregate", name)
		}
		c.sink.Stub(d, name, union)
		c.states[d] = Stubbed
	}
	return name, nil
}

// Ensure brings d to a terminal state if possible and returns its host
// name. Re-entry while the same aggregate is Constructing signals
// ErrRecursiveConstruction; an aggregate whose fields cannot yet be
// mapped is parked in the pending set, still usable by name through its
// stub.
func (c *Compiler) Ensure(d cdecl.Decl) (string, error) {
	d = c.global.Table().Resolve(d)
	fields, union, complete, ok := aggParts(d)
	if !ok {
		return "", fmt.Errorf("layout: %T is not an aggregate", d)
	}
	name, err := c.nameFor(d)
	if err != nil {
		return "", err
	}
	switch c.states[d] {
	case Finalized, DelayedFinalized, Extern:
		return name, nil
	case Constructing:
		return name, fmt.Errorf("%w: %s contains itself by value", ErrRecursiveConstruction, name)
	}
	if c.states[d] == Unseen {
		if !complete {
			// Forward declaration with no body anywhere: emit a dummy
			// placeholder type and consider it done.
			c.sink.Placeholder(d, name, union)
			c.states[d] = Extern
			return name, nil
		}
		c.sink.Stub(d, name, union)
		c.states[d] = Stubbed
	}
	if err := c.finalize(d, name, union, fields); err != nil {
		c.park(d)
		return name, err
	}
	c.states[d] = Finalized
	return name, nil
}

func (c *Compiler) finalize(d cdecl.Decl, name string, union bool, fields []cdecl.Field) error {
	c.states[d] = Constructing
	resolved := make([]Field, 0, len(fields))
	for _, f := range fields {
		expr, err := c.mapper.MapFieldType(f.Type)
		if err != nil {
			c.states[d] = Stubbed
			return fmt.Errorf("field %q of %s: %w", f.Name, name, err)
		}
		resolved = append(resolved, Field{Name: f.Name, Type: expr, Bits: f.Bits})
	}
	c.sink.Finalize(d, name, union, resolved)
	return nil
}

func (c *Compiler) park(d cdecl.Decl) {
	if !c.inPending[d] {
		c.pending = append(c.pending, d)
		c.inPending[d] = true
	}
}

// FinalizePending retries every parked aggregate in first-pushed order,
// skipping entries an earlier retry finalized transitively, until a full
// pass makes no progress. Whatever remains is reported unresolved; the
// failure is fatal only for those declarations.
func (c *Compiler) FinalizePending() []error {
	for {
		progress := false
		for _, d := range c.pending {
			if !c.inPending[d] {
				continue
			}
			if terminal(c.states[d]) {
				// An earlier retry finalized this one transitively.
				c.inPending[d] = false
				progress = true
				continue
			}
			fields, union, _, _ := aggParts(d)
			name, err := c.nameFor(d)
			if err != nil {
				continue
			}
			if err := c.finalize(d, name, union, fields); err != nil {
				continue
			}
			c.states[d] = DelayedFinalized
			c.inPending[d] = false
			progress = true
		}
		if !progress {
			break
		}
	}
	var errs []error
	for _, d := range c.pending {
		if !c.inPending[d] {
			continue
		}
		fields, union, _, _ := aggParts(d)
		name, _ := c.nameFor(d)
		if err := c.finalize(d, name, union, fields); err != nil {
			errs = append(errs, &UnresolvedError{Name: name, Pos: d.DeclPos(), Err: err})
			continue
		}
		c.states[d] = DelayedFinalized
		c.inPending[d] = false
	}
	return errs
}

func terminal(s State) bool {
	return s == Finalized || s == DelayedFinalized || s == Extern
}
