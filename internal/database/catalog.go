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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// IntPtr converts a nullable catalog integer to an optional length, precision or scale.
func IntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return schema.Int(int(n.Int64))
}

// NullableToNotNull converts an IS_NULLABLE catalog value ("YES"/"NO", "Y"/"N") to NotNull.
func NullableToNotNull(nullable string) *bool {
	switch strings.ToUpper(strings.TrimSpace(nullable)) {
	case "NO", "N", "0", "FALSE":
		return schema.Bool(true)
	default:
		return schema.Bool(false)
	}
}

// AppendIndexColumn adds one catalog row to indexes. Rows must arrive ordered by index name
// and column position. A row for the index already at the tail extends its column list.
func AppendIndexColumn(indexes []schema.Index, name, column string, typ schema.IndexType) []schema.Index {
	if n := len(indexes); n > 0 && indexes[n-1].Name == name {
		indexes[n-1].Columns = append(indexes[n-1].Columns, column)
		return indexes
	}
	return append(indexes, schema.Index{Name: name, Columns: []string{column}, Type: typ})
}

// QueryString runs a single-value query. A NULL or missing row yields an invalid NullString.
func QueryString(ctx context.Context, q Queryer, query string, args ...any) (sql.NullString, error) {
	var v sql.NullString
	err := q.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullString{}, nil
	}
	if err != nil {
		return sql.NullString{}, fmt.Errorf("error running %q: %w", firstLine(query), err)
	}
	return v, nil
}

// ReadTableComment returns the table named in the query's result or nil when no row matches.
// The query must select the table name and its comment.
func ReadTableComment(ctx context.Context, q Queryer, query string, args ...any) (*schema.Table, error) {
	var name string
	var comment sql.NullString
	err := q.QueryRowContext(ctx, query, args...).Scan(&name, &comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schema.Table{Name: name, Comment: comment.String}, nil
}

func firstLine(query string) string {
	q := strings.TrimSpace(query)
	if i := strings.IndexByte(q, '\n'); i > 0 {
		return q[:i]
	}
	return q
}
