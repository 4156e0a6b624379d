// Package errors defines the proxy's error taxonomy and the canonical
// user-facing text for each kind.
package errors

import (
	"fmt"
	"strings"
)

// Kind enumerates the pipeline's error taxonomy.
type Kind string

const (
	WriteBlocked          Kind = "WRITE_BLOCKED"
	ParseError            Kind = "PARSE_ERROR"
	UnsupportedJoin       Kind = "UNSUPPORTED_JOIN"
	UnsupportedUnion      Kind = "UNSUPPORTED_UNION"
	UnsupportedWindow     Kind = "UNSUPPORTED_WINDOW"
	UnsupportedFunction   Kind = "UNSUPPORTED_FUNCTION"
	SubqueryTooComplex    Kind = "SUBQUERY_TOO_COMPLEX"
	MissingDateFilter     Kind = "MISSING_DATE_FILTER"
	SchemaBlocked         Kind = "SCHEMA_BLOCKED"
	BackendError          Kind = "BACKEND_ERROR"
	InternalError         Kind = "INTERNAL_ERROR"
)

// PipelineError is the single sum type every pipeline-rejecting component
// returns. It satisfies the standard error interface; Message carries
// the text the session surfaces to the client, formatted once by Format.
type PipelineError struct {
	Kind                     Kind
	Message                  string
	Cause                    error
	TransformationsAttempted []string
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// WithTransformations records the transformation kinds already applied to
// the query before it was rejected, so a caller rejecting a query after T1
// or T3/T4 ran doesn't lose that record.
func (e *PipelineError) WithTransformations(types []string) *PipelineError {
	e.TransformationsAttempted = types
	return e
}

// New constructs a PipelineError whose user-facing text is the canonical
// template for kind, built from ctx.
func New(kind Kind, ctx Context) *PipelineError {
	return &PipelineError{Kind: kind, Message: Format(kind, ctx)}
}

// Wrap constructs a PipelineError around an underlying cause, still using
// the canonical template for its user-facing text.
func Wrap(kind Kind, ctx Context, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: Format(kind, ctx), Cause: cause}
}

// Context carries the arguments the formatter needs for a given kind.
// Only the fields relevant to the kind being formatted are read.
type Context struct {
	JoinKinds     []string
	UnionCount    int
	WindowFuncs   []string
	Functions     []string
	Operation     string
	ParseDetail   string
	Depth         int
	MaxDepth      int
	Schema        string
	BackendCode   int
	BackendDetail string
}

// Format renders the canonical, stable, multi-line user-facing text for a
// (kind, context) pair. It is the only place this text is produced; no
// other component may concatenate ad-hoc strings for the wire.
func Format(kind Kind, ctx Context) string {
	switch kind {
	case UnsupportedJoin:
		return formatJoin(ctx.JoinKinds)
	case UnsupportedUnion:
		return formatUnion(ctx.UnionCount)
	case UnsupportedWindow:
		return formatWindow(ctx.WindowFuncs)
	case UnsupportedFunction:
		return formatFunction(ctx.Functions)
	case MissingDateFilter:
		return formatMissingDateFilter()
	case SubqueryTooComplex:
		return formatSubqueryTooComplex(ctx.Depth, ctx.MaxDepth)
	case WriteBlocked:
		return formatWriteBlocked(ctx.Operation)
	case ParseError:
		return formatParseError(ctx.ParseDetail)
	case BackendError:
		return formatBackendError(ctx.BackendCode, ctx.BackendDetail)
	case SchemaBlocked:
		return formatSchemaBlocked(ctx.Schema)
	case InternalError:
		return "MySQL Proxy Error: an internal error occurred\n\nThe proxy encountered an unexpected condition while processing your query.\n\nStatus: Internal Error"
	default:
		return fmt.Sprintf("MySQL Proxy Error: unclassified error (%s)", kind)
	}
}

func formatJoin(kinds []string) string {
	return fmt.Sprintf(`MySQL Proxy Error: JOINs are not supported

Your query contains table joins which are not supported by the backend MySQL server.

Detected: %s

Suggestions:
  - Create a denormalized view or table that combines the required data
  - Use Tableau's data blending feature instead of SQL joins
  - Contact your database administrator about enabling JOIN support

Feature: JOINs (INNER, LEFT, RIGHT, OUTER, CROSS)
Status: Not Supported`, strings.Join(kinds, ", "))
}

func formatUnion(count int) string {
	return fmt.Sprintf(`MySQL Proxy Error: UNIONs are not supported

Your query contains %d UNION operation(s) which are not supported by the backend.

Suggestions:
  - Split into separate queries and combine results in Tableau
  - Create a unified view in the database
  - Use separate data sources in Tableau

Feature: UNION, UNION ALL
Status: Not Supported`, count)
}

func formatWindow(funcs []string) string {
	return fmt.Sprintf(`MySQL Proxy Error: Window functions are not supported

Your query uses window functions which are not supported by the backend.

Detected functions: %s

Suggestions:
  - Use Tableau's table calculations for ranking and windowing
  - Pre-calculate these values in a database view
  - Use Tableau's RANK(), ROW_NUMBER(), or similar functions

Feature: Window Functions (ROW_NUMBER, RANK, DENSE_RANK, OVER clause)
Status: Not Supported`, strings.Join(dedupe(funcs), ", "))
}

func formatFunction(functions []string) string {
	for _, f := range functions {
		if strings.EqualFold(f, "COUNT") {
			return `MySQL Proxy Error: COUNT() function is not supported

Your query uses the COUNT() aggregation function which is not supported by the backend.

Alternative: Use SUM(1) instead of COUNT(*)
  Example: SELECT category, SUM(1) AS record_count
           FROM sales
           WHERE cob_date='2024-01-15'
           GROUP BY category

Alternative: Use SUM(CASE) instead of COUNT(column)
  Example: SELECT category, SUM(CASE WHEN customer_id IS NOT NULL THEN 1 ELSE 0 END)
           FROM sales
           WHERE cob_date='2024-01-15'
           GROUP BY category

Or let Tableau handle the counting:
  - Remove COUNT from Custom SQL
  - Drag the dimension to Rows
  - Tableau will count records automatically

Feature: COUNT() Aggregation
Status: Not Supported
Alternative: SUM(1) for counting rows`
		}
	}
	return fmt.Sprintf(`MySQL Proxy Error: Unsupported function(s): %s

Your query uses function(s) that are not supported by the backend MySQL server.

Detected: %s

Suggestions:
  - Check documentation for supported functions
  - Use alternative functions if available
  - Perform calculations in Tableau instead of SQL

Status: Not Supported`, strings.Join(dedupe(functions), ", "), strings.Join(dedupe(functions), ", "))
}

func formatMissingDateFilter() string {
	return `MySQL Proxy Error: cob_date filter is mandatory

All queries must include a cob_date filter in the WHERE clause to ensure temporal consistency.

Required format:
  SELECT column1, column2
  FROM table_name
  WHERE cob_date = '2024-01-15' AND other_conditions...

The cob_date filter ensures your query operates on a specific date's data snapshot.

Business Rule: Mandatory cob_date Filter
Status: Rejected - Add cob_date filter and retry`
}

func formatSubqueryTooComplex(depth, maxDepth int) string {
	return fmt.Sprintf(`MySQL Proxy Error: Query too complex (subquery depth: %d)

Your query contains nested subqueries that are too complex to flatten.

Maximum allowed depth: %d
Your query depth: %d

Suggestions:
  - Simplify the query by creating intermediate views
  - Break down the query into multiple simpler queries
  - Remove unnecessary subquery nesting

Feature: Nested Subqueries
Status: Limited support (depth <= %d)`, depth, maxDepth, depth, maxDepth)
}

func formatWriteBlocked(operation string) string {
	return fmt.Sprintf(`MySQL Proxy Error: Write operations are not permitted

Your query attempts to perform a write operation (%s) which is not allowed.

This proxy provides read-only access to the database.

Blocked operations: INSERT, UPDATE, DELETE, DROP, CREATE, ALTER, TRUNCATE, REPLACE, GRANT, REVOKE

Security Policy: Read-Only Access
Status: Rejected`, operation)
}

func formatParseError(detail string) string {
	return fmt.Sprintf(`MySQL Proxy Error: Failed to parse SQL query

The query could not be parsed. Please check your SQL syntax.

Error: %s

Suggestions:
  - Verify SQL syntax is valid
  - Check for missing or extra parentheses
  - Ensure proper quoting of strings and identifiers

Status: Parse Error`, detail)
}

func formatBackendError(code int, detail string) string {
	codeStr := ""
	if code != 0 {
		codeStr = fmt.Sprintf(" (Error %d)", code)
	}
	return fmt.Sprintf(`MySQL Backend Error%s

The backend database returned an error while executing your query.

Error: %s

This error originated from the backend MySQL server, not the proxy.

Suggestions:
  - Check that all referenced tables and columns exist
  - Verify data types are compatible
  - Ensure your query follows backend SQL limitations

Status: Backend Execution Error`, codeStr, detail)
}

func formatSchemaBlocked(schema string) string {
	return fmt.Sprintf(`MySQL Proxy Error: Access to database '%s' is not permitted

The database you're trying to access is blocked by security policy.

Suggestions:
  - Use an allowed application database
  - Contact your administrator for database access

Security Policy: Database Access Control
Status: Rejected`, schema)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
