// Package shims provides host-side stand-ins for the small slice of the
// C standard library that translated code commonly reaches for. Each
// shim is a wrapped value registered in the global scope; when the input
// declares the same name extern, calls link to the shim.
package shims

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ctopy/pkg/crt"
	"ctopy/pkg/scope"
)

// Config carries the host endpoints shims talk to. Zero value wires
// process stdout/stderr and the process environment.
type Config struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) (string, bool)
}

func (c *Config) fill() {
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Getenv == nil {
		c.Getenv = os.LookupEnv
	}
}

var (
	cInt    = mustType("c_int")
	cSizeT  = mustType("c_size_t")
	charPtr = crt.Pointer(mustType("c_char"))
)

func mustType(name string) *crt.Type {
	t, ok := crt.ByName(name)
	if !ok {
		panic("shims: unknown runtime type " + name)
	}
	return t
}

// Install registers the standard shims into a global scope. The arena is
// the one the run executes against; string results are materialized
// there.
func Install(g *scope.Global, arena *crt.Arena, cfg Config) {
	cfg.fill()
	installStdio(g, cfg)
	installStdlib(g, cfg)
	installString(g)
	installVars(g, arena)
}

// InstallNames registers the shim name set with discarded endpoints.
// The static path uses this: only linkage names matter there, the
// closures never run.
func InstallNames(g *scope.Global) {
	Install(g, crt.NewArena(), Config{Stdout: io.Discard, Stderr: io.Discard})
}

func fn(name string, ret *crt.Type, params []*crt.Type, variadic bool,
	impl func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error)) *crt.WrappedFunc {
	return &crt.WrappedFunc{Name: name, Ret: ret, Params: params, Variadic: variadic, Fn: impl}
}

func intResult(a *crt.Arena, v int64) *crt.Cell {
	c := a.NewCell(cInt)
	c.Store(uint64(v))
	return c
}

func installStdio(g *scope.Global, cfg Config) {
	g.RegisterExtern("printf", fn("printf", cInt, []*crt.Type{charPtr}, true,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("printf: missing format")
			}
			out, err := formatC(a, a.CString(int(args[0].Load())), args[1:])
			if err != nil {
				return nil, err
			}
			n, err := io.WriteString(cfg.Stdout, out)
			return intResult(a, int64(n)), err
		}))
	g.RegisterExtern("putchar", fn("putchar", cInt, []*crt.Type{cInt}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			ch := byte(args[0].Load())
			if _, err := cfg.Stdout.Write([]byte{ch}); err != nil {
				return nil, err
			}
			return intResult(a, int64(ch)), nil
		}))
	g.RegisterExtern("puts", fn("puts", cInt, []*crt.Type{charPtr}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			s := a.CString(int(args[0].Load()))
			n, err := io.WriteString(cfg.Stdout, s+"\n")
			return intResult(a, int64(n)), err
		}))
}

func installStdlib(g *scope.Global, cfg Config) {
	g.RegisterExtern("malloc", fn("malloc", crt.VoidPtr, []*crt.Type{cSizeT}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			addr := a.Alloc(int(args[0].Load()))
			c := a.NewCell(crt.VoidPtr)
			c.Store(uint64(addr))
			return c, nil
		}))
	// The arena is never reclaimed within a run, so free releases
	// nothing.
	g.RegisterExtern("free", fn("free", nil, []*crt.Type{crt.VoidPtr}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			return nil, nil
		}))
	g.RegisterExtern("abs", fn("abs", cInt, []*crt.Type{cInt}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			v := args[0].Int64()
			if v < 0 {
				v = -v
			}
			return intResult(a, v), nil
		}))
	g.RegisterExtern("atoi", fn("atoi", cInt, []*crt.Type{charPtr}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			s := strings.TrimSpace(a.CString(int(args[0].Load())))
			end := 0
			if end < len(s) && (s[end] == '+' || s[end] == '-') {
				end++
			}
			for end < len(s) && s[end] >= '0' && s[end] <= '9' {
				end++
			}
			v, _ := strconv.ParseInt(s[:end], 10, 64)
			return intResult(a, v), nil
		}))
	g.RegisterExtern("getenv", fn("getenv", charPtr, []*crt.Type{charPtr}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			key := a.CString(int(args[0].Load()))
			c := a.NewCell(charPtr)
			if v, ok := cfg.Getenv(key); ok {
				c.Store(uint64(a.WriteString(v)))
			}
			return c, nil
		}))
}

func installString(g *scope.Global) {
	g.RegisterExtern("strlen", fn("strlen", cSizeT, []*crt.Type{charPtr}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			s := a.CString(int(args[0].Load()))
			c := a.NewCell(cSizeT)
			c.Store(uint64(len(s)))
			return c, nil
		}))
	g.RegisterExtern("strcpy", fn("strcpy", charPtr, []*crt.Type{charPtr, charPtr}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			dst := int(args[0].Load())
			src := a.CString(int(args[1].Load()))
			copy(a.Bytes(dst, len(src)+1), append([]byte(src), 0))
			c := a.NewCell(charPtr)
			c.Store(uint64(dst))
			return c, nil
		}))
	g.RegisterExtern("strcmp", fn("strcmp", cInt, []*crt.Type{charPtr, charPtr}, false,
		func(a *crt.Arena, args []*crt.Cell) (*crt.Cell, error) {
			x := a.CString(int(args[0].Load()))
			y := a.CString(int(args[1].Load()))
			return intResult(a, int64(strings.Compare(x, y))), nil
		}))
}

// installVars registers the extern data objects: the std stream handles
// as opaque nonzero pointers, and errno.
func installVars(g *scope.Global, arena *crt.Arena) {
	for _, name := range []string{"stdin", "stdout", "stderr"} {
		c := arena.NewCell(crt.Pointer(cInt))
		c.Store(uint64(arena.Alloc(cInt.Size)))
		g.RegisterExtern(name, c)
	}
	g.RegisterExtern("errno", arena.NewCell(cInt))
}

// formatC renders a printf-style format with C conversion semantics for
// the conversions translated code uses: d, i, u, x, c, s, %% and a width
// prefix is accepted and ignored.
func formatC(a *crt.Arena, format string, args []*crt.Cell) (string, error) {
	var b strings.Builder
	arg := 0
	next := func() (*crt.Cell, error) {
		if arg >= len(args) {
			return nil, fmt.Errorf("printf: format %q needs more arguments", format)
		}
		c := args[arg]
		arg++
		return c, nil
	}
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			b.WriteByte(ch)
			continue
		}
		i++
		for i < len(format) && (format[i] == '-' || format[i] == '0' ||
			(format[i] >= '1' && format[i] <= '9') || format[i] == 'l') {
			i++
		}
		if i >= len(format) {
			return "", fmt.Errorf("printf: trailing %% in %q", format)
		}
		switch format[i] {
		case '%':
			b.WriteByte('%')
		case 'd', 'i':
			c, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.FormatInt(c.Int64(), 10))
		case 'u':
			c, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.FormatUint(c.Load(), 10))
		case 'x':
			c, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.FormatUint(c.Load(), 16))
		case 'c':
			c, err := next()
			if err != nil {
				return "", err
			}
			b.WriteByte(byte(c.Load()))
		case 's':
			c, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(a.CString(int(c.Load())))
		case 'f', 'g':
			c, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.FormatFloat(c.Float(), 'f', 6, 64))
		default:
			return "", fmt.Errorf("printf: conversion %%%c is not supported", format[i])
		}
	}
	return b.String(), nil
}