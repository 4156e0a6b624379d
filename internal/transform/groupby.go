package transform

import (
	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/sqlast/ast"
	"github.com/chronosproxy/proxy/internal/sqlast/format"
)

// completeGroupBy extends sel's GROUP BY with every non-aggregated,
// non-star projection column missing from it, in projection order. It
// mutates sel in place and returns the column labels it added.
func completeGroupBy(sel *ast.SelectStmt) []string {
	a := &analysis.AST{Stmt: sel}
	if !analysis.HasAggregate(a) {
		return nil
	}

	aggregated := analysis.AggregatedColumns(a)
	existing := groupByLabels(sel.GroupBy)

	var missing []string
	for _, col := range sel.Columns {
		label, expr, ok := projectionColumnLabel(col)
		if !ok || label == "*" || aggregated[label] {
			continue
		}
		if analysis.HasAggregate(&analysis.AST{Stmt: &ast.SelectStmt{Columns: []ast.SelectExpr{col}}}) {
			continue
		}
		if existing[label] {
			continue
		}
		missing = append(missing, label)
		sel.GroupBy = append(sel.GroupBy, expr)
	}
	return missing
}

func groupByLabels(exprs []ast.Expr) map[string]bool {
	out := make(map[string]bool, len(exprs))
	for _, e := range exprs {
		if cn, ok := e.(*ast.ColName); ok {
			out[cn.Name()] = true
			continue
		}
		out[format.String(e)] = true
	}
	return out
}

// projectionColumnLabel labels a projection column like
// analysis.SelectColumns, except that aliases are ignored and every star
// gives "*"; it also returns the Expr to append to GROUP BY when the column
// is missing there.
func projectionColumnLabel(se ast.SelectExpr) (string, ast.Expr, bool) {
	switch c := se.(type) {
	case *ast.StarExpr:
		return "*", nil, true
	case *ast.AliasedExpr:
		if cn, ok := c.Expr.(*ast.ColName); ok {
			return cn.Name(), cn, true
		}
		return format.String(c.Expr), c.Expr, true
	}
	return "", nil, false
}
