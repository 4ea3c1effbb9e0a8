// Package scope owns name allocation for a translation run: the global
// scope mapping declarations to collision-free host names, and per-function
// environments with a stack of lexical block scopes.
package scope

// suffixAlphabet orders the deterministic suffix stream: letters first,
// then digits, base 36.
const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// suffix36 renders counter n in the suffix alphabet: 0 -> "a",
// 25 -> "z", 26 -> "0", 36 -> "ba".
func suffix36(n int) string {
	var v []byte
	x := n
	for x > 0 || len(v) == 0 {
		v = append([]byte{suffixAlphabet[x%len(suffixAlphabet)]}, v...)
		x /= len(suffixAlphabet)
	}
	return string(v)
}

// candidates yields the identifier candidates for a raw name: the name
// itself, then name_a, name_b, ... An absent raw name yields the
// synthetic __dummy_a, __dummy_b, ... stream.
type candidates struct {
	raw string
	n   int
}

func (c *candidates) next() string {
	if c.raw != "" && c.n == 0 {
		c.n++
		return c.raw
	}
	stem := c.raw
	if stem == "" {
		stem = "__dummy"
	}
	s := stem + "_" + suffix36(c.n-boolInt(c.raw != ""))
	c.n++
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// pythonKeywords plus the builtins and runtime qualifiers generated code
// relies on; none of these may ever be allocated as a host name.
var reservedNames = map[string]bool{}

func init() {
	words := []string{
		// keywords
		"False", "None", "True", "and", "as", "assert", "async", "await",
		"break", "class", "continue", "def", "del", "elif", "else", "except",
		"finally", "for", "from", "global", "if", "import", "in", "is",
		"lambda", "nonlocal", "not", "or", "pass", "print", "raise", "return",
		"try", "while", "with", "yield", "exec",
		// builtins referenced by generated code or easily shadowed
		"abs", "bool", "bytes", "chr", "dict", "float", "id", "int", "len",
		"list", "map", "max", "min", "object", "open", "ord", "range", "repr",
		"set", "str", "sum", "super", "tuple", "type", "vars", "zip",
		// runtime qualifiers
		"ctypes", "helpers", "g", "intp", "sys",
	}
	for _, w := range words {
		reservedNames[w] = true
	}
}

// IsReserved reports whether name collides with a host-reserved word.
func IsReserved(name string) bool {
	return reservedNames[name]
}
