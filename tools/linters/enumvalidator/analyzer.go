// Package enumvalidator reports string literals assigned to enum-typed
// struct fields. An enum is a named string type with at least one constant
// of that type declared in its package.
package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var Analyzer = &analysis.Analyzer{
	Name:     "enumvalidator",
	Doc:      "reports string literals assigned to enum-typed struct fields; use the declared constants",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	enums := map[*types.TypeName]bool{}

	nodeFilter := []ast.Node{
		(*ast.AssignStmt)(nil),
		(*ast.CompositeLit)(nil),
	}
	insp.Preorder(nodeFilter, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.AssignStmt:
			if len(n.Lhs) != len(n.Rhs) {
				return
			}
			for i, lhs := range n.Lhs {
				sel, ok := lhs.(*ast.SelectorExpr)
				if !ok {
					continue
				}
				check(pass, enums, sel.Sel.Name, pass.TypesInfo.TypeOf(sel), n.Rhs[i])
			}
		case *ast.CompositeLit:
			st, ok := underlyingStruct(pass.TypesInfo.TypeOf(n))
			if !ok {
				return
			}
			for _, elt := range n.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					continue
				}
				key, ok := kv.Key.(*ast.Ident)
				if !ok {
					continue
				}
				if f := fieldByName(st, key.Name); f != nil {
					check(pass, enums, key.Name, f.Type(), kv.Value)
				}
			}
		}
	})
	return nil, nil
}

func check(pass *analysis.Pass, enums map[*types.TypeName]bool, field string, typ types.Type, value ast.Expr) {
	lit, ok := ast.Unparen(value).(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return
	}
	if !isEnum(enums, typ) {
		return
	}
	pass.Reportf(lit.Pos(), "enum field %s assigned string literal %s", field, lit.Value)
}

func isEnum(cache map[*types.TypeName]bool, typ types.Type) bool {
	named, ok := typ.(*types.Named)
	if !ok {
		return false
	}
	basic, ok := named.Underlying().(*types.Basic)
	if !ok || basic.Info()&types.IsString == 0 {
		return false
	}

	obj := named.Obj()
	if v, ok := cache[obj]; ok {
		return v
	}
	found := false
	if pkg := obj.Pkg(); pkg != nil {
		scope := pkg.Scope()
		for _, name := range scope.Names() {
			c, ok := scope.Lookup(name).(*types.Const)
			if ok && types.Identical(c.Type(), named) {
				found = true
				break
			}
		}
	}
	cache[obj] = found
	return found
}

func underlyingStruct(typ types.Type) (*types.Struct, bool) {
	if typ == nil {
		return nil, false
	}
	if ptr, ok := typ.Underlying().(*types.Pointer); ok {
		typ = ptr.Elem()
	}
	st, ok := typ.Underlying().(*types.Struct)
	return st, ok
}

func fieldByName(st *types.Struct, name string) *types.Var {
	for i := range st.NumFields() {
		if f := st.Field(i); f.Name() == name {
			return f
		}
	}
	return nil
}
