package crt

import (
	"encoding/binary"
	"math"
)

// Arena is the flat memory of one run. Address 0 is the null pointer and
// is never handed out. Memory is bump-allocated and lives for the run; C
// free is a no-op here.
type Arena struct {
	mem []byte
}

// NewArena creates an arena with the null page reserved.
func NewArena() *Arena {
	return &Arena{mem: make([]byte, PointerSize)}
}

// Alloc reserves n zeroed bytes and returns their address.
func (a *Arena) Alloc(n int) int {
	addr := len(a.mem)
	a.mem = append(a.mem, make([]byte, n)...)
	return addr
}

// Bytes returns the n bytes at addr.
func (a *Arena) Bytes(addr, n int) []byte {
	return a.mem[addr : addr+n]
}

// WriteString copies s plus a NUL terminator into fresh memory and
// returns its address.
func (a *Arena) WriteString(s string) int {
	addr := a.Alloc(len(s) + 1)
	copy(a.mem[addr:], s)
	return addr
}

// CString reads the NUL-terminated bytes at addr.
func (a *Arena) CString(addr int) string {
	end := addr
	for end < len(a.mem) && a.mem[end] != 0 {
		end++
	}
	return string(a.mem[addr:end])
}

// Cell is a boxed C value: a typed view over arena memory. Mutation is
// in place, which is what gives ++/-- and assignment their C semantics.
type Cell struct {
	Type  *Type
	arena *Arena
	addr  int
}

// NewCell allocates a zeroed cell of type t.
func (a *Arena) NewCell(t *Type) *Cell {
	size := t.Size
	if size == 0 {
		size = 1
	}
	return &Cell{Type: t, arena: a, addr: a.Alloc(size)}
}

// CellAt views existing memory at addr as a cell of type t.
func (a *Arena) CellAt(t *Type, addr int) *Cell {
	return &Cell{Type: t, arena: a, addr: addr}
}

// Addr is the cell's address in the arena.
func (c *Cell) Addr() int {
	return c.addr
}

// Arena returns the arena the cell lives in.
func (c *Cell) Arena() *Arena {
	return c.arena
}

func (c *Cell) width() int {
	if c.Type.Size > 0 && c.Type.Size < 8 {
		return c.Type.Size
	}
	return 8
}

// Load reads the cell's raw bits, zero-extended.
func (c *Cell) Load() uint64 {
	var buf [8]byte
	copy(buf[:], c.arena.mem[c.addr:c.addr+c.width()])
	return binary.LittleEndian.Uint64(buf[:])
}

// Store writes raw bits, truncated to the cell's width.
func (c *Cell) Store(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(c.arena.mem[c.addr:c.addr+c.width()], buf[:])
}

// Int64 reads the value sign-extended per the cell's declared type.
func (c *Cell) Int64() int64 {
	v := c.Load()
	if !c.Type.Signed {
		return int64(v)
	}
	shift := uint(64 - c.width()*8)
	return int64(v<<shift) >> shift
}

// Float reads a float cell's value.
func (c *Cell) Float() float64 {
	if c.Type.Size == 4 {
		return float64(math.Float32frombits(uint32(c.Load())))
	}
	return math.Float64frombits(c.Load())
}

// StoreFloat writes a float value at the cell's width.
func (c *Cell) StoreFloat(f float64) {
	if c.Type.Size == 4 {
		c.Store(uint64(math.Float32bits(float32(f))))
		return
	}
	c.Store(math.Float64bits(f))
}

// Copy makes a shallow copy: a fresh cell of the same type holding the
// same bytes. Postfix ++/-- snapshot through this.
func (c *Cell) Copy() *Cell {
	size := c.Type.Size
	if size == 0 {
		size = 1
	}
	n := c.arena.Alloc(size)
	copy(c.arena.mem[n:n+size], c.arena.mem[c.addr:c.addr+size])
	return &Cell{Type: c.Type, arena: c.arena, addr: n}
}

// Deref follows a pointer cell to a cell of its pointee type.
func (c *Cell) Deref() *Cell {
	elem := c.Type.Elem
	return &Cell{Type: elem, arena: c.arena, addr: int(c.Load())}
}

// Index views element i of an array cell.
func (c *Cell) Index(i int) *Cell {
	return &Cell{Type: c.Type.Elem, arena: c.arena, addr: c.addr + i*c.Type.Elem.Size}
}

// Field views a member of a struct/union cell. Bitfield members are
// returned as a view of their storage unit; Load/Store on them go through
// the unit, masked by the caller.
func (c *Cell) Field(name string) (*Cell, bool) {
	for _, f := range c.Type.Fields {
		if f.Name == name {
			return &Cell{Type: f.Type, arena: c.arena, addr: c.addr + f.ByteOff}, true
		}
	}
	return nil, false
}
