// Package pyast defines the host-side Python AST the translator emits,
// covering exactly the node set generated code needs: names, attribute
// access, calls, literals, operators, conditionals, assignments, class
// and function definitions.
package pyast

// Expr is the interface for all Python expression nodes.
type Expr interface {
	implExpr()
}

// Name is a bare identifier reference.
type Name struct {
	ID string
}

// None is the Python None literal.
var None = Name{ID: "None"}

// True is the Python True literal.
var True = Name{ID: "True"}

// Attr is attribute access: Value.Name.
type Attr struct {
	Value Expr
	Name  string
}

// Call is a call expression.
type Call struct {
	Func Expr
	Args []Expr
}

// Num is an integer literal.
type Num struct {
	Value uint64
}

// Str is a string literal.
type Str struct {
	Value string
}

// Tuple is a tuple display.
type Tuple struct {
	Elems []Expr
}

// List is a list display.
type List struct {
	Elems []Expr
}

// Unary is a unary operator ("~", "not", "+", "-").
type Unary struct {
	Op      string
	Operand Expr
}

// Bin is a binary operator ("+", "-", "*", "/", "%", "<<", ">>", "|",
// "^", "&").
type Bin struct {
	Op    string
	Left  Expr
	Right Expr
}

// Bool is a short-circuiting boolean operator ("and", "or").
type Bool struct {
	Op     string
	Values []Expr
}

// Compare is a comparison ("==", "!=", "<", "<=", ">", ">=").
type Compare struct {
	Op    string
	Left  Expr
	Right Expr
}

// IfExp is a conditional expression: Body if Test else Else.
type IfExp struct {
	Test Expr
	Body Expr
	Else Expr
}

func (Name) implExpr()    {}
func (Attr) implExpr()    {}
func (Call) implExpr()    {}
func (Num) implExpr()     {}
func (Str) implExpr()     {}
func (Tuple) implExpr()   {}
func (List) implExpr()    {}
func (Unary) implExpr()   {}
func (Bin) implExpr()     {}
func (Bool) implExpr()    {}
func (Compare) implExpr() {}
func (IfExp) implExpr()   {}

// Stmt is the interface for all Python statement nodes.
type Stmt interface {
	implStmt()
}

// Assign is a single-target assignment.
type Assign struct {
	Target Expr
	Value  Expr
}

// ExprStmt evaluates an expression for effect.
type ExprStmt struct {
	X Expr
}

// Del deletes names from the current scope.
type Del struct {
	Names []string
}

// Pass is the pass statement.
type Pass struct{}

// Assert is an assert statement; used as the semantic no-op placeholder
// for untranslated control flow.
type Assert struct {
	Test Expr
}

// ClassDef is a class definition with a single base and an empty body.
type ClassDef struct {
	Name string
	Base Expr
}

// FunctionDef is a function definition.
type FunctionDef struct {
	Name   string
	Params []string
	Body   []Stmt
}

// Comment is an emitted source comment, one line.
type Comment struct {
	Text string
}

func (Assign) implStmt()      {}
func (ExprStmt) implStmt()    {}
func (Del) implStmt()         {}
func (Pass) implStmt()        {}
func (Assert) implStmt()      {}
func (ClassDef) implStmt()    {}
func (FunctionDef) implStmt() {}
func (Comment) implStmt()     {}

// NoOp is the placeholder emitted for control-flow statements whose
// lowering is intentionally left unimplemented.
func NoOp() Stmt {
	return Assert{Test: True}
}
