// Package analysis is the SQL Analyzer: it hides the parser behind a set
// of structural questions so downstream components never pattern-match
// AST node types directly.
package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chronosproxy/proxy/internal/sqlast"
	"github.com/chronosproxy/proxy/internal/sqlast/ast"
	"github.com/chronosproxy/proxy/internal/sqlast/format"
)

// QueryKind is the first-keyword classification of a statement.
type QueryKind string

const (
	KindSelect    QueryKind = "SELECT"
	KindInsert    QueryKind = "INSERT"
	KindUpdate    QueryKind = "UPDATE"
	KindDelete    QueryKind = "DELETE"
	KindCreate    QueryKind = "CREATE"
	KindDrop      QueryKind = "DROP"
	KindAlter     QueryKind = "ALTER"
	KindTruncate  QueryKind = "TRUNCATE"
	KindShow      QueryKind = "SHOW"
	KindDescribe  QueryKind = "DESCRIBE"
	KindUse       QueryKind = "USE"
	KindSet       QueryKind = "SET"
	KindUnknown   QueryKind = "UNKNOWN"
)

var firstWordPattern = regexp.MustCompile(`^\s*(\w+)`)

// QueryKindOf classifies sql by its first keyword, without a full parse.
func QueryKindOf(sql string) QueryKind {
	m := firstWordPattern.FindStringSubmatch(sql)
	if m == nil {
		return KindUnknown
	}
	switch strings.ToUpper(m[1]) {
	case "SELECT":
		return KindSelect
	case "INSERT", "REPLACE":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	case "CREATE":
		return KindCreate
	case "DROP":
		return KindDrop
	case "ALTER":
		return KindAlter
	case "TRUNCATE":
		return KindTruncate
	case "SHOW":
		return KindShow
	case "DESC", "DESCRIBE", "EXPLAIN":
		return KindDescribe
	case "USE":
		return KindUse
	case "SET":
		return KindSet
	default:
		return KindUnknown
	}
}

// FirstKeyword returns the upper-cased first word of sql, for the write gate.
func FirstKeyword(sql string) string {
	m := firstWordPattern.FindStringSubmatch(sql)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// IsMetadata reports whether kind never touches the business-rule pipeline.
func IsMetadata(kind QueryKind) bool {
	switch kind {
	case KindShow, KindDescribe, KindUse, KindSet:
		return true
	default:
		return false
	}
}

// AST is the opaque parsed tree the analyzer hands downstream.
type AST struct {
	Stmt ast.Statement
}

// Parse parses sql into an AST, rejecting multi-statement input.
func Parse(sql string) (*AST, error) {
	stmt, err := sqlast.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if stmt == nil {
		return nil, fmt.Errorf("parse error: empty statement")
	}
	return &AST{Stmt: stmt}, nil
}

// Repool returns the AST's nodes to the parser's internal pools.
func Repool(a *AST) {
	if a == nil || a.Stmt == nil {
		return
	}
	sqlast.Repool(a.Stmt)
}

// Emit deterministically re-renders the AST as MySQL-dialect SQL, stripping
// a parenthesized top-level SELECT the backend would otherwise reject.
func Emit(a *AST) string {
	s := format.String(a.Stmt)
	return stripOuterParens(s)
}

func stripOuterParens(sql string) string {
	trimmed := strings.TrimSpace(sql)
	for strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		if !balancedParens(inner) {
			break
		}
		trimmed = inner
	}
	return trimmed
}

func balancedParens(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func selectOf(a *AST) (*ast.SelectStmt, bool) {
	sel, ok := a.Stmt.(*ast.SelectStmt)
	return sel, ok
}

// Joins returns a label ("INNER JOIN", "LEFT JOIN", ...) for every join in
// the top-level FROM clause.
func Joins(a *AST) []string {
	sel, ok := selectOf(a)
	if !ok || sel.From == nil {
		return nil
	}
	var out []string
	var walk func(te ast.TableExpr)
	walk = func(te ast.TableExpr) {
		switch n := te.(type) {
		case *ast.JoinExpr:
			walk(n.Left)
			label := n.Type.String() + " JOIN"
			if n.Natural {
				label = "NATURAL " + label
			}
			out = append(out, label)
			walk(n.Right)
		case *ast.ParenTableExpr:
			walk(n.Expr)
		case *ast.AliasedTableExpr:
			walk(n.Expr)
		}
	}
	walk(sel.From)
	return out
}

// Unions counts top-level UNION/INTERSECT/EXCEPT operations, descending
// through the left-associative chain of SetOp nodes.
func Unions(a *AST) int {
	count := 0
	var walk func(s ast.Statement)
	walk = func(s ast.Statement) {
		so, ok := s.(*ast.SetOp)
		if !ok {
			return
		}
		count++
		walk(so.Left)
	}
	walk(a.Stmt)
	return count
}

// WindowFunctions returns the function names of every OVER(...) call.
func WindowFunctions(a *AST) []string {
	var out []string
	sqlast.Walk(a.Stmt, func(n ast.Node) bool {
		if fn, ok := n.(*ast.FuncExpr); ok && fn.Over != nil {
			out = append(out, strings.ToUpper(fn.Name))
		}
		return true
	})
	return out
}

// Functions returns every function call in the AST whose name
// case-insensitively matches one of names.
func Functions(a *AST, names []string) []string {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToUpper(n)] = true
	}
	var out []string
	sqlast.Walk(a.Stmt, func(n ast.Node) bool {
		if fn, ok := n.(*ast.FuncExpr); ok {
			up := strings.ToUpper(fn.Name)
			if wanted[up] {
				out = append(out, up)
			}
		}
		return true
	})
	return out
}

// SubqueryDepth returns the depth of the deepest nested subquery (0 if none).
func SubqueryDepth(a *AST) int {
	return subqueryDepth(a.Stmt)
}

func subqueryDepth(n ast.Node) int {
	max := 0
	sqlast.Walk(n, func(child ast.Node) bool {
		if child == n {
			return true
		}
		switch sub := child.(type) {
		case *ast.Subquery:
			d := 1 + subqueryDepth(sub.Select)
			if d > max {
				max = d
			}
			return false
		}
		return true
	})
	return max
}

// SelectColumns returns the projection labels: alias if present, else the
// bare column name for a column reference, else the emitted SQL of the
// expression; a star gives "*" ("t.*" when qualified).
func SelectColumns(a *AST) []string {
	sel, ok := selectOf(a)
	if !ok {
		return nil
	}
	var out []string
	for _, col := range sel.Columns {
		out = append(out, selectExprLabel(col))
	}
	return out
}

func selectExprLabel(se ast.SelectExpr) string {
	switch c := se.(type) {
	case *ast.StarExpr:
		if c.HasQualifier {
			return c.TableName + ".*"
		}
		return "*"
	case *ast.AliasedExpr:
		if c.Alias != "" {
			return c.Alias
		}
		if col, ok := c.Expr.(*ast.ColName); ok {
			return col.Name()
		}
		return format.String(c.Expr)
	}
	return format.String(se)
}

var aggregateFuncs = map[string]bool{"SUM": true, "AVG": true, "MAX": true, "MIN": true, "COUNT": true}

// AggregatedColumns returns the set of column names appearing inside
// SUM/AVG/MIN/MAX/COUNT calls in the projection.
func AggregatedColumns(a *AST) map[string]bool {
	sel, ok := selectOf(a)
	out := map[string]bool{}
	if !ok {
		return out
	}
	for _, col := range sel.Columns {
		expr := selectExprExpr(col)
		if expr == nil {
			continue
		}
		sqlast.Walk(expr, func(n ast.Node) bool {
			fn, ok := n.(*ast.FuncExpr)
			if !ok || !aggregateFuncs[strings.ToUpper(fn.Name)] {
				return true
			}
			for _, arg := range fn.Args {
				sqlast.Walk(arg, func(inner ast.Node) bool {
					if cn, ok := inner.(*ast.ColName); ok {
						out[cn.Name()] = true
					}
					return true
				})
			}
			return true
		})
	}
	return out
}

// HasAggregate reports whether the projection contains any aggregate call.
func HasAggregate(a *AST) bool {
	sel, ok := selectOf(a)
	if !ok {
		return false
	}
	found := false
	for _, col := range sel.Columns {
		expr := selectExprExpr(col)
		if expr == nil {
			continue
		}
		sqlast.Walk(expr, func(n ast.Node) bool {
			if fn, ok := n.(*ast.FuncExpr); ok && aggregateFuncs[strings.ToUpper(fn.Name)] {
				found = true
			}
			return true
		})
	}
	return found
}

func selectExprExpr(se ast.SelectExpr) ast.Expr {
	switch c := se.(type) {
	case *ast.AliasedExpr:
		return c.Expr
	case ast.Expr:
		return c
	}
	return nil
}

// ColumnInWhere reports whether any ColName in the top-level WHERE clause
// matches name, case-insensitively.
func ColumnInWhere(a *AST, name string) bool {
	sel, ok := selectOf(a)
	if !ok || sel.Where == nil {
		return false
	}
	found := false
	sqlast.Walk(sel.Where, func(n ast.Node) bool {
		if cn, ok := n.(*ast.ColName); ok && strings.EqualFold(cn.Name(), name) {
			found = true
		}
		return true
	})
	return found
}

// Where returns the top-level WHERE expression of a SELECT, or nil.
func Where(a *AST) ast.Expr {
	sel, ok := selectOf(a)
	if !ok {
		return nil
	}
	return sel.Where
}

// IsSelect reports whether the parsed statement is a plain SELECT.
func IsSelect(a *AST) bool {
	_, ok := selectOf(a)
	return ok
}
