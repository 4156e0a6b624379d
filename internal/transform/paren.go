package transform

import (
	"regexp"
	"strings"
)

var (
	parenLimitPattern = regexp.MustCompile(`(?is)^\((SELECT\s+.+)\)\s+(LIMIT\s+\d+)$`)
	parenOnlyPattern  = regexp.MustCompile(`(?is)^\((SELECT\s+.+)\)$`)
)

// unwrapParens handles the Tableau schema-discovery idiom "(SELECT ...) LIMIT N"
// (and the bare "(SELECT ...)" form), which the grammar's own top-level parse
// would otherwise have to special-case as a parenthesized statement.
func unwrapParens(sql string) (string, bool) {
	trimmed := strings.TrimSpace(sql)

	if m := parenLimitPattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1]) + " " + strings.TrimSpace(m[2]), true
	}
	if m := parenOnlyPattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return sql, false
}
