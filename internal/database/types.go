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
	"strconv"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// unboundedVarcharLength is what H2 reports for a VARCHAR declared without a length.
const unboundedVarcharLength = 1000000000

const maxCharLength = 65535

var typeSynonyms = map[string]string{
	"INT":                    "INTEGER",
	"INT4":                   "INTEGER",
	"INT8":                   "BIGINT",
	"INT2":                   "SMALLINT",
	"DECIMAL":                "NUMERIC",
	"NUMBER":                 "NUMERIC",
	"DEC":                    "NUMERIC",
	"CHARACTER VARYING":      "VARCHAR",
	"VARCHAR2":               "VARCHAR",
	"NVARCHAR2":              "NVARCHAR",
	"CHARACTER":              "CHAR",
	"BPCHAR":                 "CHAR",
	"BOOL":                   "BOOLEAN",
	"FLOAT8":                 "DOUBLE PRECISION",
	"DOUBLE":                 "DOUBLE PRECISION",
	"FLOAT4":                 "REAL",
	"BINARY LARGE OBJECT":    "BLOB",
	"CHARACTER LARGE OBJECT": "CLOB",
}

// CanonicalType returns the dialect-independent spelling of a native type name.
func CanonicalType(dataType string) string {
	t := strings.ToUpper(strings.TrimSpace(dataType))
	switch {
	case strings.HasPrefix(t, "TIMESTAMP"):
		return "TIMESTAMP"
	case strings.HasPrefix(t, "VECTOR"):
		return "VECTOR"
	}
	if s, ok := typeSynonyms[t]; ok {
		return s
	}
	return t
}

// IsIntegerType reports whether the type is spelled INT or INTEGER.
func IsIntegerType(dataType string) bool {
	t := strings.ToUpper(strings.TrimSpace(dataType))
	return t == "INT" || t == "INTEGER"
}

// CanonicalDefault strips casts, wrapping parentheses and quotes from a default expression.
func CanonicalDefault(def string) string {
	d := strings.TrimSpace(def)
	for len(d) >= 2 && d[0] == '(' && d[len(d)-1] == ')' {
		d = strings.TrimSpace(d[1 : len(d)-1])
	}
	if strings.EqualFold(d, "NULL") {
		return ""
	}
	if strings.HasPrefix(d, "'") {
		if end := closingQuote(d); end > 0 {
			return strings.ReplaceAll(d[1:end], "''", "'")
		}
		return d
	}
	if i := strings.Index(d, "::"); i > 0 {
		d = d[:i]
	}
	return d
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

// NormalizeColumn brings a live column to canonical form: synonym types collapsed, vector length
// parsed from VECTOR(n), scale kept only for NUMERIC, length kept only for character types up to
// 65535 and the default expression canonicalised.
func NormalizeColumn(c schema.Column) schema.Column {
	c = c.Clone()
	raw := strings.ToUpper(strings.TrimSpace(c.DataType))
	dataType := CanonicalType(raw)

	if dataType == "VECTOR" {
		if open, end := strings.Index(raw, "("), strings.LastIndex(raw, ")"); open > 0 && end > open {
			if n, err := strconv.Atoi(strings.TrimSpace(raw[open+1 : end])); err == nil {
				c.VectorLength = schema.Int(n)
			}
		}
	}
	if dataType == "VARCHAR" && c.Length != nil && *c.Length == unboundedVarcharLength {
		dataType = "TEXT"
	}
	c.DataType = dataType

	if dataType == "NUMERIC" {
		if c.Scale == nil {
			c.Scale = schema.Int(0)
		}
	} else {
		c.Scale = nil
		c.Precision = nil
	}

	if strings.HasSuffix(dataType, "CHAR") {
		if c.Length != nil && *c.Length > maxCharLength {
			c.Length = nil
		}
	} else {
		c.Length = nil
	}

	c.DefaultValue = CanonicalDefault(c.DefaultValue)
	return c
}
