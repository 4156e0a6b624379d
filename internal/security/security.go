// Package security implements the write gate: the first defense line a
// query passes through, rejecting anything but read-only statements.
package security

import (
	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
)

// CheckWrite rejects sql if its first keyword names a write operation the
// config blocks. A nil return means the query may proceed.
func CheckWrite(cfg *config.Config, sql string) *cperrors.PipelineError {
	if !cfg.Security.BlockWrites {
		return nil
	}
	keyword := analysis.FirstKeyword(sql)
	if keyword == "" {
		return nil
	}
	if cfg.IsWriteOperation(keyword) {
		return cperrors.New(cperrors.WriteBlocked, cperrors.Context{Operation: keyword})
	}
	return nil
}
