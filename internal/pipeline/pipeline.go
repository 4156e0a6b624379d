// Package pipeline composes the analyzer, gates, transformer, and backend
// executor into one per-query orchestration, in the fixed order the
// business rules depend on.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/backend"
	"github.com/chronosproxy/proxy/internal/capability"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
	"github.com/chronosproxy/proxy/internal/logging"
	"github.com/chronosproxy/proxy/internal/normalize"
	"github.com/chronosproxy/proxy/internal/security"
	"github.com/chronosproxy/proxy/internal/temporal"
	"github.com/chronosproxy/proxy/internal/transform"
)

// Result is the outcome of running a query through the pipeline: exactly
// one of Err or (Columns, Rows) is meaningful.
type Result struct {
	QueryID        string
	Columns        []backend.Column
	Rows           [][]any
	WasTransformed bool
	ElapsedMS      float64
	Err            *cperrors.PipelineError
}

// Pipeline is the per-connection orchestrator: one instance is created per
// Session and reused across every query it runs.
type Pipeline struct {
	cfg          *config.Config
	exec         backend.Executor
	log          logging.Logger
	connectionID string
	sourceIP     string
}

// New builds a Pipeline bound to a single session's backend executor.
func New(cfg *config.Config, exec backend.Executor, log logging.Logger, connectionID, sourceIP string) *Pipeline {
	return &Pipeline{cfg: cfg, exec: exec, log: log, connectionID: connectionID, sourceIP: sourceIP}
}

// Process runs sql through the full ten-step pipeline and returns its result.
func (p *Pipeline) Process(ctx context.Context, sql string) *Result {
	queryID := uuid.NewString()
	start := time.Now()
	log := p.log.With("query_id", queryID, "connection_id", p.connectionID)
	log.InfoContext(ctx, "query received", "sql", sql)

	kind := analysis.QueryKindOf(sql)
	if analysis.IsMetadata(kind) || transform.LooksLikeInformationSchema(sql) {
		return p.processMetadata(ctx, queryID, sql, log)
	}

	if perr := security.CheckWrite(p.cfg, sql); perr != nil {
		log.WarnContext(ctx, "query rejected", "reason", "write_blocked")
		return &Result{QueryID: queryID, Err: perr, ElapsedMS: elapsedMS(start)}
	}

	unwrapped, didUnwrap := transform.UnwrapParens(sql)
	var records []transform.Record
	if didUnwrap {
		records = append(records, transform.Record{
			Sequence:    1,
			Type:        "PAREN_UNWRAP",
			Description: "Stripped enclosing parentheses from query",
			Before:      sql,
			After:       unwrapped,
		})
	}

	a, err := analysis.Parse(unwrapped)
	if err != nil {
		log.WarnContext(ctx, "query rejected", "reason", "parse_error")
		return &Result{QueryID: queryID, Err: cperrors.Wrap(cperrors.ParseError, cperrors.Context{ParseDetail: err.Error()}, err).WithTransformations(recordTypes(records)), ElapsedMS: elapsedMS(start)}
	}
	defer analysis.Repool(a)

	if perr := capability.Check(p.cfg, a); perr != nil {
		log.WarnContext(ctx, "query rejected", "reason", "unsupported_feature")
		return &Result{QueryID: queryID, Err: perr.WithTransformations(recordTypes(records)), ElapsedMS: elapsedMS(start)}
	}

	transformResult, perr := transform.Apply(p.cfg, a)
	if perr != nil {
		log.WarnContext(ctx, "query rejected", "reason", "subquery_too_complex")
		return &Result{QueryID: queryID, Err: perr.WithTransformations(recordTypes(records)), ElapsedMS: elapsedMS(start)}
	}
	records = append(records, transformResult.Records...)
	for _, rec := range transformResult.Records {
		log.InfoContext(ctx, "transformation applied", "type", rec.Type, "before", rec.Before, "after", rec.After)
	}
	finalSQL := transformResult.Final
	wasTransformed := didUnwrap || transformResult.Changed

	if perr := temporal.Validate(p.cfg, a); perr != nil {
		log.WarnContext(ctx, "query rejected", "reason", "missing_date_filter")
		return &Result{QueryID: queryID, Err: perr.WithTransformations(recordTypes(records)), WasTransformed: wasTransformed, ElapsedMS: elapsedMS(start)}
	}

	execResult := p.exec.Execute(ctx, finalSQL)
	if execResult.Err != nil {
		log.ErrorContext(ctx, "backend error", "error", execResult.Err)
		return &Result{
			QueryID:        queryID,
			Err:            cperrors.Wrap(cperrors.BackendError, cperrors.Context{BackendCode: execResult.BackendCode, BackendDetail: execResult.Err.Error()}, execResult.Err).WithTransformations(recordTypes(records)),
			WasTransformed: wasTransformed,
			ElapsedMS:      elapsedMS(start),
		}
	}

	normalizeRows(execResult)
	log.InfoContext(ctx, "query succeeded", "rows", execResult.RowCount(), "elapsed_ms", execResult.ElapsedMS)

	return &Result{
		QueryID:        queryID,
		Columns:        execResult.Columns,
		Rows:           execResult.Rows,
		WasTransformed: wasTransformed,
		ElapsedMS:      elapsedMS(start),
	}
}

// recordTypes extracts the kind tags of each transformation already applied,
// for attaching to a PipelineError that rejects the query downstream.
func recordTypes(records []transform.Record) []string {
	if len(records) == 0 {
		return nil
	}
	types := make([]string, len(records))
	for i, rec := range records {
		types[i] = rec.Type
	}
	return types
}

// processMetadata is the fast-path for SHOW/DESCRIBE/USE/SET and
// INFORMATION_SCHEMA lookups: it skips capability detection and the
// date-filter rule, converting INFORMATION_SCHEMA patterns to SHOW first.
func (p *Pipeline) processMetadata(ctx context.Context, queryID, sql string, log logging.Logger) *Result {
	start := time.Now()
	finalSQL := sql
	wasTransformed := false

	a, err := analysis.Parse(sql)
	if err == nil {
		defer analysis.Repool(a)
		res := transform.ConvertInformationSchema(a)
		if res.Matched && res.TooComplex {
			log.InfoContext(ctx, "information_schema query too complex, returning empty result")
			return &Result{QueryID: queryID, Columns: nil, Rows: nil, ElapsedMS: elapsedMS(start)}
		}
		if res.Matched && !res.Passthrough && res.SQL != "" {
			log.InfoContext(ctx, "information_schema converted to SHOW", "original", sql, "converted", res.SQL)
			finalSQL = res.SQL
			wasTransformed = true
		}
	}

	execResult := p.exec.Execute(ctx, finalSQL)
	if execResult.Err != nil {
		log.ErrorContext(ctx, "backend error on metadata query", "error", execResult.Err)
		return &Result{
			QueryID:   queryID,
			Err:       cperrors.Wrap(cperrors.BackendError, cperrors.Context{BackendCode: execResult.BackendCode, BackendDetail: execResult.Err.Error()}, execResult.Err),
			ElapsedMS: elapsedMS(start),
		}
	}

	normalizeRows(execResult)
	return &Result{
		QueryID:        queryID,
		Columns:        execResult.Columns,
		Rows:           execResult.Rows,
		WasTransformed: wasTransformed,
		ElapsedMS:      elapsedMS(start),
	}
}

func normalizeRows(res *backend.ExecutionResult) {
	typeNames := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		typeNames[i] = c.TypeName
	}
	for _, row := range res.Rows {
		normalize.Row(row, typeNames)
	}
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
