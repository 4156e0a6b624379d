package transform

import (
	"fmt"
	"strings"

	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/sqlast/ast"
)

// InfoSchemaResult is the outcome of attempting to rewrite an
// INFORMATION_SCHEMA lookup into the SHOW command the backend actually
// understands.
type InfoSchemaResult struct {
	Matched     bool   // sql names an INFORMATION_SCHEMA table T2 recognizes
	TooComplex  bool   // matched, but its WHERE can't be expressed as SHOW
	Passthrough bool   // matched, but the backend already supports it natively (SCHEMATA)
	SQL         string // the SHOW command, when Matched && !TooComplex && !Passthrough
}

// ConvertInformationSchema rewrites a SELECT ... FROM INFORMATION_SCHEMA.X
// query to the equivalent SHOW command, for backends that expose schema
// metadata only through SHOW. INFORMATION_SCHEMA.SCHEMATA is left untouched:
// the backend supports that view natively but has no SHOW DATABASES
// equivalent the proxy can map results back through.
func ConvertInformationSchema(a *analysis.AST) InfoSchemaResult {
	sel, ok := a.Stmt.(*ast.SelectStmt)
	if !ok {
		return InfoSchemaResult{}
	}
	table, ok := fromTableName(sel.From)
	if !ok {
		return InfoSchemaResult{}
	}
	upper := strings.ToUpper(table)

	switch {
	case strings.Contains(upper, "SCHEMATA"):
		return InfoSchemaResult{Matched: true, Passthrough: true}
	case strings.Contains(upper, "TABLES"):
		if hasComplexWhere(sel, "TABLE_TYPE") {
			return InfoSchemaResult{Matched: true, TooComplex: true}
		}
		if schema, ok := whereEquals(sel, "TABLE_SCHEMA"); ok {
			return InfoSchemaResult{Matched: true, SQL: fmt.Sprintf("SHOW TABLES FROM %s", schema)}
		}
		return InfoSchemaResult{Matched: true, SQL: "SHOW TABLES"}
	case strings.Contains(upper, "COLUMNS"):
		if hasComplexWhere(sel, "") {
			return InfoSchemaResult{Matched: true, TooComplex: true}
		}
		tableName, ok := whereEquals(sel, "TABLE_NAME")
		if !ok {
			return InfoSchemaResult{Matched: true, TooComplex: true}
		}
		if schema, ok := whereEquals(sel, "TABLE_SCHEMA"); ok && schema != "" {
			return InfoSchemaResult{Matched: true, SQL: fmt.Sprintf("SHOW COLUMNS FROM %s.%s", schema, tableName)}
		}
		return InfoSchemaResult{Matched: true, SQL: fmt.Sprintf("SHOW COLUMNS FROM %s", tableName)}
	}
	return InfoSchemaResult{}
}

func fromTableName(te ast.TableExpr) (string, bool) {
	switch n := te.(type) {
	case *ast.AliasedTableExpr:
		return fromTableName(n.Expr)
	case *ast.TableName:
		return n.Name(), true
	}
	return "", false
}

// hasComplexWhere reports whether the WHERE clause filters on anything
// beyond TABLE_NAME/TABLE_SCHEMA (and, when allowExtra is set, that column
// too) — such filters can't be expressed by a SHOW command.
func hasComplexWhere(sel *ast.SelectStmt, allowExtra string) bool {
	if sel.Where == nil {
		return false
	}
	complex := false
	walkColumns(sel.Where, func(name string) {
		up := strings.ToUpper(name)
		if up == "TABLE_NAME" || up == "TABLE_SCHEMA" {
			return
		}
		if allowExtra != "" && up == allowExtra {
			return
		}
		complex = true
	})
	return complex
}

func walkColumns(e ast.Expr, fn func(name string)) {
	switch n := e.(type) {
	case *ast.BinaryExpr:
		walkColumns(n.Left, fn)
		walkColumns(n.Right, fn)
	case *ast.UnaryExpr:
		walkColumns(n.Operand, fn)
	case *ast.ParenExpr:
		walkColumns(n.Expr, fn)
	case *ast.ColName:
		fn(n.Name())
	}
}

// whereEquals finds a top-level "column = 'literal'" (in either operand
// order) comparison for column anywhere in a chain of ANDs.
func whereEquals(sel *ast.SelectStmt, column string) (string, bool) {
	if sel.Where == nil {
		return "", false
	}
	found := ""
	ok := false
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		bin, isBin := e.(*ast.BinaryExpr)
		if !isBin {
			return
		}
		if bin.Op.String() == "AND" {
			walk(bin.Left)
			walk(bin.Right)
			return
		}
		if bin.Op.String() != "=" {
			return
		}
		if lit, match := matchColumnLiteral(bin.Left, bin.Right, column); match {
			found, ok = lit, true
		} else if lit, match := matchColumnLiteral(bin.Right, bin.Left, column); match {
			found, ok = lit, true
		}
	}
	walk(sel.Where)
	return found, ok
}

func matchColumnLiteral(a, b ast.Expr, column string) (string, bool) {
	col, isCol := a.(*ast.ColName)
	lit, isLit := b.(*ast.Literal)
	if isCol && isLit && strings.EqualFold(col.Name(), column) {
		return strings.Trim(lit.Value, `'"`), true
	}
	return "", false
}
