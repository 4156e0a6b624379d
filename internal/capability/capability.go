// Package capability implements the capability detector: the gate that
// rejects SQL constructs the backend cannot execute.
package capability

import (
	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
)

// Check runs, in order, the join/union/window-function/unsupported-function
// checks enabled by cfg, returning the first violation found.
func Check(cfg *config.Config, a *analysis.AST) *cperrors.PipelineError {
	if cfg.IsUnsupportedFeature("joins") {
		if err := checkJoins(a); err != nil {
			return err
		}
	}
	if cfg.IsUnsupportedFeature("unions") {
		if err := checkUnions(a); err != nil {
			return err
		}
	}
	if cfg.IsUnsupportedFeature("window_functions") {
		if err := checkWindowFunctions(a); err != nil {
			return err
		}
	}
	if err := checkUnsupportedFunctions(cfg, a); err != nil {
		return err
	}
	return nil
}

func checkJoins(a *analysis.AST) *cperrors.PipelineError {
	joins := analysis.Joins(a)
	if len(joins) == 0 {
		return nil
	}
	return cperrors.New(cperrors.UnsupportedJoin, cperrors.Context{JoinKinds: joins})
}

func checkUnions(a *analysis.AST) *cperrors.PipelineError {
	count := analysis.Unions(a)
	if count == 0 {
		return nil
	}
	return cperrors.New(cperrors.UnsupportedUnion, cperrors.Context{UnionCount: count})
}

func checkWindowFunctions(a *analysis.AST) *cperrors.PipelineError {
	funcs := analysis.WindowFunctions(a)
	if len(funcs) == 0 {
		return nil
	}
	return cperrors.New(cperrors.UnsupportedWindow, cperrors.Context{WindowFuncs: funcs})
}

func checkUnsupportedFunctions(cfg *config.Config, a *analysis.AST) *cperrors.PipelineError {
	blocked := cfg.Capabilities.UnsupportedFunctions
	if len(blocked) == 0 {
		return nil
	}
	found := analysis.Functions(a, blocked)
	if len(found) == 0 {
		return nil
	}
	return cperrors.New(cperrors.UnsupportedFunction, cperrors.Context{Functions: found})
}
