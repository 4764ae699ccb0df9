/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package database

import (
	"regexp"
	"strings"
)

// IdentifierCase is the case a catalog reports unquoted identifiers in.
type IdentifierCase int

const (
	PreserveCase IdentifierCase = iota
	UpperCase
	LowerCase
)

var simpleIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Quoter wraps identifiers in a dialect's escape characters when they need it.
type Quoter struct {
	Open  string
	Close string
	Case  IdentifierCase
	// Reserved holds extra upper-case words reserved by the dialect on top of the shared set.
	Reserved map[string]bool
}

// NeedsQuoting reports whether name is not a simple identifier or is a reserved word.
func (q Quoter) NeedsQuoting(name string) bool {
	if !simpleIdentifier.MatchString(name) {
		return true
	}
	upper := strings.ToUpper(name)
	return reservedWords[upper] || q.Reserved[upper]
}

// QuoteIdentifier quotes name when needed. Already quoted names are returned unchanged.
func (q Quoter) QuoteIdentifier(name string) string {
	if name == "" || q.isQuoted(name) || !q.NeedsQuoting(name) {
		return name
	}
	escaped := strings.ReplaceAll(name, q.Close, q.Close+q.Close)
	return q.Open + escaped + q.Close
}

// UnquoteIdentifier strips one level of quoting. Unquoted or empty input is returned as is.
func (q Quoter) UnquoteIdentifier(name string) string {
	if !q.isQuoted(name) {
		return name
	}
	inner := name[len(q.Open) : len(name)-len(q.Close)]
	return strings.ReplaceAll(inner, q.Close+q.Close, q.Close)
}

// NormalizeIdentifierCase folds name to the case the catalog stores unquoted identifiers in.
func (q Quoter) NormalizeIdentifierCase(name string) string {
	switch q.Case {
	case UpperCase:
		return strings.ToUpper(name)
	case LowerCase:
		return strings.ToLower(name)
	default:
		return name
	}
}

func (q Quoter) isQuoted(name string) bool {
	return len(name) >= len(q.Open)+len(q.Close) &&
		strings.HasPrefix(name, q.Open) && strings.HasSuffix(name, q.Close)
}

// reservedWords is the set of keywords that must be quoted in every supported dialect.
var reservedWords = KeywordSet(
	"ADD", "ALL", "ALTER", "AND", "ANY", "AS", "ASC", "BETWEEN", "BY", "CASE", "CAST", "CHECK",
	"COLUMN", "CONSTRAINT", "CREATE", "CROSS", "CURRENT", "CURRENT_DATE", "CURRENT_TIME",
	"CURRENT_TIMESTAMP", "CURRENT_USER", "DEFAULT", "DELETE", "DESC", "DISTINCT", "DROP", "ELSE",
	"END", "EXCEPT", "EXISTS", "FALSE", "FETCH", "FOR", "FOREIGN", "FROM", "FULL", "GRANT",
	"GROUP", "HAVING", "IN", "INDEX", "INNER", "INSERT", "INTERSECT", "INTO", "IS", "JOIN", "KEY",
	"LEFT", "LIKE", "LIMIT", "NATURAL", "NOT", "NULL", "OF", "OFFSET", "ON", "OR", "ORDER",
	"OUTER", "PRIMARY", "REFERENCES", "RIGHT", "ROW", "ROWS", "SELECT", "SET", "SOME", "TABLE",
	"THEN", "TO", "TRUE", "UNION", "UNIQUE", "UPDATE", "USER", "USING", "VALUES", "WHEN",
	"WHERE", "WITH", "WINDOW",
)

// KeywordSet builds an upper-case keyword set.
func KeywordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
