package pyast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Printer outputs Python source for emitted statements.
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new Python source printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

func (p *Printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("    ", p.indent), fmt.Sprintf(format, args...))
}

// PrintStmt prints one statement at the current indent level.
func (p *Printer) PrintStmt(s Stmt) {
	switch st := s.(type) {
	case Assign:
		p.line("%s = %s", ExprString(st.Target), ExprString(st.Value))
	case ExprStmt:
		p.line("%s", ExprString(st.X))
	case Del:
		p.line("del %s", strings.Join(st.Names, ", "))
	case Pass:
		p.line("pass")
	case Assert:
		p.line("assert %s", ExprString(st.Test))
	case ClassDef:
		p.line("class %s(%s):", st.Name, ExprString(st.Base))
		p.indent++
		p.line("pass")
		p.indent--
	case FunctionDef:
		p.line("def %s(%s):", st.Name, strings.Join(st.Params, ", "))
		p.indent++
		if len(st.Body) == 0 {
			p.line("pass")
		}
		for _, b := range st.Body {
			p.PrintStmt(b)
		}
		p.indent--
	case Comment:
		p.line("# %s", st.Text)
	default:
		panic("unhandled statement type")
	}
}

// PrintStmts prints a statement list.
func (p *Printer) PrintStmts(stmts []Stmt) {
	for _, s := range stmts {
		p.PrintStmt(s)
	}
}

// ExprString renders an expression as Python source. Compound
// subexpressions are parenthesized unconditionally; generated code favors
// unambiguity over minimal output.
func ExprString(e Expr) string {
	switch x := e.(type) {
	case Name:
		return x.ID
	case Attr:
		return ExprString(x.Value) + "." + x.Name
	case Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = ExprString(a)
		}
		return ExprString(x.Func) + "(" + strings.Join(args, ", ") + ")"
	case Num:
		return strconv.FormatUint(x.Value, 10)
	case Str:
		return strconv.Quote(x.Value)
	case Tuple:
		elems := make([]string, len(x.Elems))
		for i, el := range x.Elems {
			elems[i] = ExprString(el)
		}
		if len(elems) == 1 {
			return "(" + elems[0] + ",)"
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case List:
		elems := make([]string, len(x.Elems))
		for i, el := range x.Elems {
			elems[i] = ExprString(el)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case Unary:
		if x.Op == "not" {
			return "(not " + sub(x.Operand) + ")"
		}
		return "(" + x.Op + sub(x.Operand) + ")"
	case Bin:
		return "(" + sub(x.Left) + " " + x.Op + " " + sub(x.Right) + ")"
	case Bool:
		vals := make([]string, len(x.Values))
		for i, v := range x.Values {
			vals[i] = sub(v)
		}
		return "(" + strings.Join(vals, " "+x.Op+" ") + ")"
	case Compare:
		return "(" + sub(x.Left) + " " + x.Op + " " + sub(x.Right) + ")"
	case IfExp:
		return "(" + sub(x.Body) + " if " + sub(x.Test) + " else " + sub(x.Else) + ")"
	}
	panic("unhandled expression type")
}

// sub renders a subexpression; atoms print bare, anything already
// parenthesized by ExprString passes through.
func sub(e Expr) string {
	return ExprString(e)
}
