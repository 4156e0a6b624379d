// Package transform applies the proxy's ordered query rewrites: the
// parenthesized-wrapper unwrap, the INFORMATION_SCHEMA-to-SHOW conversion
// used on the metadata fast-path, and the Tableau subquery unwrap plus
// GROUP BY completion used on the full pipeline.
package transform

import (
	"regexp"

	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
	"github.com/chronosproxy/proxy/internal/sqlast/ast"
)

var informationSchemaPattern = regexp.MustCompile(`(?i)\bINFORMATION_SCHEMA\b`)

// LooksLikeInformationSchema is a cheap pre-parse check for whether sql
// references INFORMATION_SCHEMA, used to route a SELECT onto the metadata
// fast-path without a full parse: T2 only rewrites such statements, but the
// pipeline still needs to know to send it down that path before parsing.
func LooksLikeInformationSchema(sql string) bool {
	return informationSchemaPattern.MatchString(sql)
}

// Record describes a single rewrite applied to a query.
type Record struct {
	Sequence     int
	Type         string
	Description  string
	Before       string
	After        string
	ColumnsAdded []string
}

// Result is the outcome of running the full T1/T3/T4 chain over a query.
type Result struct {
	Original string
	Final    string
	AST      *analysis.AST
	Changed  bool
	Records  []Record
}

// UnwrapParens applies T1. It runs before parsing, on raw SQL text, and is
// shared by both the metadata fast-path and the full pipeline.
func UnwrapParens(sql string) (string, bool) {
	return unwrapParens(sql)
}

// Apply runs T3 (subquery unwrap) then T4 (GROUP BY completion) over an
// already-parsed statement. T1 must already have been applied to the text
// that produced a, and a reparse issued, before calling Apply.
func Apply(cfg *config.Config, a *analysis.AST) (*Result, *cperrors.PipelineError) {
	res := &Result{Original: analysis.Emit(a), AST: a}
	seq := 1

	if cfg.Transformations.UnwrapSubqueries {
		if sel, ok := a.Stmt.(*ast.SelectStmt); ok {
			before := analysis.Emit(a)
			merged, perr, matched := unwrapSubquery(sel, cfg.Transformations.MaxSubqueryDepth)
			if perr != nil {
				return nil, perr
			}
			if matched {
				a.Stmt = merged
				res.Records = append(res.Records, Record{
					Sequence:    seq,
					Type:        "SUBQUERY_UNWRAP",
					Description: "Flattened Tableau subquery wrapper",
					Before:      before,
					After:       analysis.Emit(a),
				})
				seq++
			}
		}
	}

	if cfg.Transformations.AutoFixGroupBy {
		if sel, ok := a.Stmt.(*ast.SelectStmt); ok {
			before := analysis.Emit(a)
			added := completeGroupBy(sel)
			if len(added) > 0 {
				res.Records = append(res.Records, Record{
					Sequence:     seq,
					Type:         "GROUP_BY_FIX",
					Description:  "Added/completed GROUP BY clause",
					Before:       before,
					After:        analysis.Emit(a),
					ColumnsAdded: added,
				})
				seq++
			}
		}
	}

	res.Final = analysis.Emit(a)
	res.Changed = len(res.Records) > 0
	return res, nil
}
