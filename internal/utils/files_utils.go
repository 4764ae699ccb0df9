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
package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

const ddlLogTimeLayout = "20060102_150405"

// ReadSQLStatementsFromFile reads a DDL log back into its statements.
func ReadSQLStatementsFromFile(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sqlStatements := strings.Split(string(content), ";\n")
	var trimmedStatements []string
	for _, stmt := range sqlStatements {
		trimmedStmt := strings.TrimSuffix(strings.TrimSpace(stmt), ";")
		if trimmedStmt != "" {
			trimmedStatements = append(trimmedStatements, trimmedStmt)
		}
	}
	return trimmedStatements, nil
}

// FormatDDLLog renders statements one per line, each terminated with a semicolon.
func FormatDDLLog(statements []string) string {
	var b strings.Builder
	for _, stmt := range statements {
		b.WriteString(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
		b.WriteString(";\n")
	}
	return b.String()
}

// DDLLogFileName returns ddl_<yyyyMMdd_HHmmss>_<8 hex digits of the content hash>.sql.
func DDLLogFileName(now time.Time, content string) string {
	return fmt.Sprintf("ddl_%s_%08x.sql", now.Format(ddlLogTimeLayout), uint32(xxh3.HashString(content)))
}

// WriteDDLLog writes the statements to a new log file in dir and returns its path.
// Nothing is written for an empty statement list and the returned path is empty.
func WriteDDLLog(dir string, statements []string, now time.Time) (string, error) {
	if len(statements) == 0 {
		return "", nil
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create DDL log directory %s: %w", dir, err)
	}
	content := FormatDDLLog(statements)
	path := filepath.Join(dir, DDLLogFileName(now, content))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write DDL log %s: %w", path, err)
	}
	return path, nil
}

// ConfirmAction prints the description and asks for a yes/no answer on in.
func ConfirmAction(in io.Reader, out io.Writer, actionDescription string) bool {
	reader := bufio.NewReader(in)
	fmt.Fprintf(out, "\n-------------------------------------------------------------\n")
	fmt.Fprintf(out, "Generated %s:\n", actionDescription)
	fmt.Fprint(out, "Do you want to apply these changes to the database? (yes/no): ")
	text, _ := reader.ReadString('\n')
	action := strings.TrimSpace(strings.ToLower(text))
	return action == "yes" || action == "y"
}

// ParseTablesFlag parses "t1[c1,c2],t2" into table names mapped to their selected columns.
// A table listed without brackets maps to nil, meaning every column.
func ParseTablesFlag(tablesFlag string) (map[string][]string, error) {
	tableColumns := make(map[string][]string)
	if tablesFlag == "" {
		return tableColumns, nil
	}

	// strip any whitespace
	tablesFlag = strings.ReplaceAll(tablesFlag, " ", "")

	for _, part := range SplitOutsideBrackets(tablesFlag) {
		if part == "" {
			continue
		}
		bracketStart := strings.Index(part, "[")
		if bracketStart == -1 {
			tableColumns[part] = nil
			continue
		}
		bracketEnd := strings.Index(part, "]")
		if bracketEnd == -1 {
			return nil, fmt.Errorf("missing closing bracket in: %s", part)
		}
		if bracketStart == 0 {
			return nil, fmt.Errorf("missing table name in: %s", part)
		}

		var columns []string
		for _, col := range strings.Split(part[bracketStart+1:bracketEnd], ",") {
			if col != "" {
				columns = append(columns, col)
			}
		}
		tableColumns[part[:bracketStart]] = columns
	}

	return tableColumns, nil
}

// SplitOutsideBrackets splits s on commas that are not within square brackets.
func SplitOutsideBrackets(s string) []string {
	var result []string
	var current strings.Builder
	inBrackets := false

	for _, char := range s {
		switch char {
		case '[':
			inBrackets = true
			current.WriteRune(char)
		case ']':
			inBrackets = false
			current.WriteRune(char)
		case ',':
			if inBrackets {
				current.WriteRune(char)
			} else {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}
