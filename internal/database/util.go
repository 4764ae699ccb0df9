package database

import (
	"strings"
)

// QuoteLiteral renders s as a standard SQL string literal, doubling single quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteBackslashLiteral renders s for servers that treat backslash as an escape character.
func QuoteBackslashLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return QuoteLiteral(s)
}

// SameComment reports whether a declared comment matches the live one. Surrounding
// whitespace is not significant.
func SameComment(declared, live string) bool {
	return strings.TrimSpace(declared) == strings.TrimSpace(live)
}

// QuoteAll quotes every name with the dialect and joins them with sep.
func QuoteAll(d interface{ QuoteIdentifier(string) string }, names []string, sep string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(strings.TrimSpace(n))
	}
	return strings.Join(quoted, sep)
}
