// Package translate converts C expression and statement nodes into host
// IR nodes, consulting the type mapper for every materialized type and
// the scope manager for every identifier.
package translate

import "ctopy/pkg/cdecl"

// Operator token maps, C to host. Augmented assignment reuses the binary
// table with the trailing '=' stripped.

var opUnary = map[string]string{
	"~": "~",
	"!": "not",
	"+": "+",
	"-": "-",
}

var opBinary = map[string]string{
	"+":  "+",
	"-":  "-",
	"*":  "*",
	"/":  "/",
	"%":  "%",
	"<<": "<<",
	">>": ">>",
	"|":  "|",
	"^":  "^",
	"&":  "&",
}

var opBool = map[string]string{
	"&&": "and",
	"||": "or",
}

var opCompare = map[string]string{
	"==": "==",
	"!=": "!=",
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",
}

// cInt is the result type of boolean and comparison expressions.
var cInt = cdecl.Tbuiltin{Kind: cdecl.Int}

// intCandidates orders the fixed-width types tried for integer literals,
// smallest first.
var intCandidates = []struct {
	name string
	max  uint64
}{
	{"int8_t", 1<<7 - 1},
	{"uint8_t", 1<<8 - 1},
	{"int16_t", 1<<15 - 1},
	{"uint16_t", 1<<16 - 1},
	{"int32_t", 1<<31 - 1},
	{"uint32_t", 1<<32 - 1},
	{"int64_t", 1<<63 - 1},
	{"uint64_t", 1<<64 - 1},
}

// minIntType returns the smallest fixed-width C type holding v. The
// candidate list is exhaustive over uint64, so the loop always returns;
// the trailing return only satisfies the compiler.
func minIntType(v uint64) cdecl.Tfixed {
	for _, c := range intCandidates {
		if v <= c.max {
			return cdecl.Tfixed{Name: c.name}
		}
	}
	return cdecl.Tfixed{Name: "uint64_t"}
}
