package cdecl

// Expr is the interface for expression nodes inside function bodies.
type Expr interface {
	implExpr()
}

// Num is an integer literal. C literals are non-negative; a leading minus
// arrives as a unary operator.
type Num struct {
	Value uint64
}

// Str is a string literal.
type Str struct {
	Value string
}

// CharLit is a character literal.
type CharLit struct {
	Value byte
}

// Ref references a declaration: a local variable, a parameter, a global,
// or a function.
type Ref struct {
	Decl Decl
}

// Member is struct/union member access (both '.' and '->' arrive
// flattened by the frontend).
type Member struct {
	Base Expr
	Name string
}

// Unary is a unary operator application. Postfix is set for the postfix
// forms of ++ and --.
type Unary struct {
	Op      string
	Operand Expr
	Postfix bool
}

// Binary is a binary operator application: arithmetic, bitwise, boolean
// or comparison depending on Op.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Assign is plain ("=") or compound ("+=", "-=", ...) assignment.
type Assign struct {
	Op    string
	Left  Expr
	Right Expr
}

// Cond is the ternary ?: operator.
type Cond struct {
	Test Expr
	Then Expr
	Else Expr
}

// Call is a function call through a declaration reference.
type Call struct {
	Target Expr
	Args   []Expr
}

// TypeConv is a call-like cast expression: (T)(x) parsed as a call whose
// base is a type.
type TypeConv struct {
	To  Type
	Arg Expr
}

func (Num) implExpr()      {}
func (Str) implExpr()      {}
func (CharLit) implExpr()  {}
func (Ref) implExpr()      {}
func (Member) implExpr()   {}
func (Unary) implExpr()    {}
func (Binary) implExpr()   {}
func (Assign) implExpr()   {}
func (Cond) implExpr()     {}
func (Call) implExpr()     {}
func (TypeConv) implExpr() {}

// Stmt is the interface for statement nodes inside function bodies.
type Stmt interface {
	implStmt()
}

// ExprStmt is an expression evaluated for effect.
type ExprStmt struct {
	X Expr
}

// DeclStmt introduces a local variable in the current block.
type DeclStmt struct {
	Var *Var
}

// Control-flow statements are carried through the graph but their
// translation is an explicit no-op placeholder.

// While is a while loop.
type While struct {
	Cond Expr
	Body []Stmt
}

// DoWhile is a do/while loop.
type DoWhile struct {
	Cond Expr
	Body []Stmt
}

// For is a for loop.
type For struct {
	Init, Cond, Post Expr
	Body             []Stmt
}

// If is a conditional.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// Return is a return statement; X may be nil.
type Return struct {
	X Expr
}

func (ExprStmt) implStmt() {}
func (DeclStmt) implStmt() {}
func (While) implStmt()    {}
func (DoWhile) implStmt()  {}
func (For) implStmt()      {}
func (If) implStmt()       {}
func (Return) implStmt()   {}
