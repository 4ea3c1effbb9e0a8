package translate

import (
	"fmt"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/pyast"
)

// Stmt translates one C statement into host statements. Control-flow
// lowering is intentionally unimplemented: loops, conditionals and
// returns emit a semantic no-op placeholder.
func (tr *Translator) Stmt(s cdecl.Stmt) ([]pyast.Stmt, error) {
	switch st := s.(type) {
	case cdecl.ExprStmt:
		x, _, err := tr.Expr(st.X)
		if err != nil {
			return nil, err
		}
		return []pyast.Stmt{pyast.ExprStmt{X: x}}, nil

	case cdecl.DeclStmt:
		decl, err := tr.DeclareLocal(st.Var)
		if err != nil {
			return nil, err
		}
		return []pyast.Stmt{decl}, nil

	case cdecl.While, cdecl.DoWhile, cdecl.For, cdecl.If, cdecl.Return:
		return []pyast.Stmt{pyast.NoOp()}, nil
	}
	return nil, fmt.Errorf("cannot translate statement %T", s)
}

// DeclareLocal binds a local variable in the innermost block scope and
// emits its storage allocation: a fresh instance of the declared type,
// wrapped from the initializer's value when one is present, else
// value-initialized.
func (tr *Translator) DeclareLocal(v *cdecl.Var) (pyast.Stmt, error) {
	name, err := tr.Env.Bind(v.Name, v)
	if err != nil {
		return nil, err
	}
	var value pyast.Expr
	if v.Init != nil {
		init, initType, err := tr.Expr(v.Init)
		if err != nil {
			return nil, err
		}
		value, err = tr.newInstance(v.Type, init, initType)
		if err != nil {
			return nil, err
		}
	} else {
		value, err = tr.newInstance(v.Type, nil, nil)
		if err != nil {
			return nil, err
		}
	}
	return pyast.Assign{Target: pyast.Name{ID: name}, Value: value}, nil
}

// DeclareParam binds a parameter and emits its re-wrap: the incoming host
// value is coerced into a fresh instance of the declared type, assuming
// the caller supplied a compatible value.
func (tr *Translator) DeclareParam(p *cdecl.Param) (string, pyast.Stmt, error) {
	name, err := tr.Env.Bind(p.Name, p)
	if err != nil {
		return "", nil, err
	}
	value, err := tr.newInstance(p.Type, pyast.Name{ID: name}, p.Type)
	if err != nil {
		return "", nil, err
	}
	return name, pyast.Assign{Target: pyast.Name{ID: name}, Value: value}, nil
}

// GlobalInit builds the initializer expression for a file-scope
// variable: a fresh instance wrapped from the initializer when one is
// present, else value-initialized.
func (tr *Translator) GlobalInit(v *cdecl.Var) (pyast.Expr, error) {
	if v.Init == nil {
		return tr.newInstance(v.Type, nil, nil)
	}
	init, initType, err := tr.Expr(v.Init)
	if err != nil {
		return nil, err
	}
	return tr.newInstance(v.Type, init, initType)
}

// CloseBlock emits the cleanup for leaving a block scope: one explicit
// unbind per binding introduced there, preserving scope-exit ordering and
// name-reuse semantics.
func (tr *Translator) CloseBlock() []pyast.Stmt {
	names := tr.Env.PopBlock()
	if len(names) == 0 {
		return nil
	}
	return []pyast.Stmt{pyast.Del{Names: names}}
}
