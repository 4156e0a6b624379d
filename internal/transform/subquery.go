package transform

import (
	"github.com/chronosproxy/proxy/internal/analysis"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
	"github.com/chronosproxy/proxy/internal/sqlast/ast"
	"github.com/chronosproxy/proxy/internal/sqlast/token"
)

// unwrapSubquery flattens the Tableau wrapper idiom
//
//	SELECT * FROM (inner) alias
//	SELECT alias.c1, alias.c2 FROM (inner) alias
//
// into the inner SELECT, merging the outer WHERE/ORDER BY/LIMIT. Returns
// (nil, nil, false) when the statement doesn't match the pattern, and a
// SUBQUERY_TOO_COMPLEX error when the merged depth exceeds maxDepth.
func unwrapSubquery(sel *ast.SelectStmt, maxDepth int) (*ast.SelectStmt, *cperrors.PipelineError, bool) {
	aliased, inner, ok := outerSubquery(sel)
	if !ok {
		return nil, nil, false
	}
	if !projectionMatchesAlias(sel.Columns, aliased.Alias) {
		return nil, nil, false
	}

	merged := *inner // shallow copy: same node identity for untouched fields

	if sel.Where != nil {
		if merged.Where != nil {
			merged.Where = &ast.BinaryExpr{Op: token.AND, Left: merged.Where, Right: sel.Where}
		} else {
			merged.Where = sel.Where
		}
	}

	if len(sel.OrderBy) > 0 && len(merged.OrderBy) == 0 {
		merged.OrderBy = sel.OrderBy
	}

	if sel.Limit != nil {
		merged.Limit = mergeLimit(merged.Limit, sel.Limit)
	}

	depth := 1 + analysis.SubqueryDepth(&analysis.AST{Stmt: &merged})
	if depth > maxDepth {
		return nil, cperrors.New(cperrors.SubqueryTooComplex, cperrors.Context{Depth: depth, MaxDepth: maxDepth}), true
	}

	return &merged, nil, true
}

// outerSubquery reports whether sel.From is exactly one aliased subquery.
func outerSubquery(sel *ast.SelectStmt) (*ast.AliasedTableExpr, *ast.SelectStmt, bool) {
	aliased, ok := sel.From.(*ast.AliasedTableExpr)
	if !ok {
		return nil, nil, false
	}
	sub, ok := aliased.Expr.(*ast.Subquery)
	if !ok {
		return nil, nil, false
	}
	return aliased, sub.Select, true
}

// projectionMatchesAlias reports whether every selected column is the bare
// star, or a column qualified by alias (or unqualified).
func projectionMatchesAlias(columns []ast.SelectExpr, alias string) bool {
	if len(columns) == 1 {
		if _, ok := columns[0].(*ast.StarExpr); ok {
			return true
		}
	}
	for _, col := range columns {
		ae, ok := col.(*ast.AliasedExpr)
		if !ok {
			return false
		}
		cn, ok := ae.Expr.(*ast.ColName)
		if !ok {
			return false
		}
		if cn.Table() != "" && cn.Table() != alias {
			return false
		}
	}
	return true
}

func mergeLimit(inner, outer *ast.Limit) *ast.Limit {
	if inner == nil {
		return outer
	}
	innerN, innerOK := literalInt(inner.Count)
	outerN, outerOK := literalInt(outer.Count)
	if innerOK && outerOK {
		if outerN < innerN {
			return outer
		}
		return inner
	}
	return inner
}

func literalInt(e ast.Expr) (int, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Type != ast.LiteralInt {
		return 0, false
	}
	n := 0
	for _, r := range lit.Value {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
