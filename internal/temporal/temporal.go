// Package temporal implements the mandatory date-filter business rule:
// every SELECT must constrain one of the configured date columns.
package temporal

import (
	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
)

// Validate rejects a as missing its date filter if cfg requires one, the
// statement is a SELECT, and none of the configured date columns appear in
// its top-level WHERE clause.
func Validate(cfg *config.Config, a *analysis.AST) *cperrors.PipelineError {
	if !cfg.BusinessRules.RequireDateFilter {
		return nil
	}
	if !analysis.IsSelect(a) {
		return nil
	}
	for _, col := range cfg.BusinessRules.DateColumns {
		if analysis.ColumnInWhere(a, col) {
			return nil
		}
	}
	return cperrors.New(cperrors.MissingDateFilter, cperrors.Context{})
}
