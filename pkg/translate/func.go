package translate

import (
	"fmt"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/pyast"
)

// BuildFunction drives one function's translation: open the function
// scope, re-wrap each parameter into its declared type, walk the body in
// source order, and close the top-level block scope, emitting its cleanup
// actions. The caller owns caching; this performs exactly one translation
// pass.
func BuildFunction(fn *cdecl.Func, tr *Translator) (*pyast.FunctionDef, error) {
	if fn.Body == nil {
		return nil, fmt.Errorf("function %q has no body", fn.Name)
	}
	hostName, err := tr.Env.Global.Resolve(fn)
	if err != nil {
		return nil, err
	}
	def := &pyast.FunctionDef{Name: hostName}
	tr.Env.PushBlock()
	for _, p := range fn.Params {
		name, wrap, err := tr.DeclareParam(p)
		if err != nil {
			return nil, err
		}
		def.Params = append(def.Params, name)
		def.Body = append(def.Body, wrap)
	}
	for _, s := range fn.Body {
		stmts, err := tr.Stmt(s)
		if err != nil {
			return nil, err
		}
		def.Body = append(def.Body, stmts...)
	}
	def.Body = append(def.Body, tr.CloseBlock()...)
	return def, nil
}
