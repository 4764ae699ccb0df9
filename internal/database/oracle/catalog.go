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
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// Catalog reads the ALL_* dictionary views. The current schema is the owner filter.
type Catalog struct{}

func (Catalog) ProductName(ctx context.Context, q database.Queryer) (string, error) {
	v, err := database.QueryString(ctx, q, "SELECT BANNER FROM V$VERSION WHERE ROWNUM = 1")
	if err != nil {
		return "", err
	}
	return v.String, nil
}

func (Catalog) CurrentNamespace(ctx context.Context, q database.Queryer) (database.Namespace, error) {
	owner, err := database.QueryString(ctx, q, "SELECT SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') FROM DUAL")
	if err != nil {
		return database.Namespace{}, err
	}
	return database.Namespace{Schema: owner}, nil
}

func (Catalog) ReadTable(ctx context.Context, q database.Queryer, ns database.Namespace, table string) (*schema.Table, error) {
	query := `
		SELECT t.TABLE_NAME, c.COMMENTS
		FROM ALL_TABLES t
		LEFT JOIN ALL_TAB_COMMENTS c ON c.OWNER = t.OWNER AND c.TABLE_NAME = t.TABLE_NAME
		WHERE t.OWNER = :1
		  AND t.TABLE_NAME = :2`
	t, err := database.ReadTableComment(ctx, q, query, ns.Schema.String, table)
	if err != nil {
		return nil, fmt.Errorf("error querying table %s: %w", table, err)
	}
	if t != nil {
		t.Schema = ns.Schema.String
	}
	return t, nil
}

func (Catalog) ReadColumns(ctx context.Context, q database.Queryer, ns database.Namespace, table string) ([]schema.Column, error) {
	query := `
		SELECT c.COLUMN_NAME, c.DATA_TYPE, c.CHAR_LENGTH, c.DATA_PRECISION, c.DATA_SCALE,
			c.NULLABLE, c.DATA_DEFAULT, c.IDENTITY_COLUMN, m.COMMENTS
		FROM ALL_TAB_COLUMNS c
		LEFT JOIN ALL_COL_COMMENTS m
			ON m.OWNER = c.OWNER AND m.TABLE_NAME = c.TABLE_NAME AND m.COLUMN_NAME = c.COLUMN_NAME
		WHERE c.OWNER = :1
		  AND c.TABLE_NAME = :2
		ORDER BY c.COLUMN_ID`

	rows, err := q.QueryContext(ctx, query, ns.Schema.String, table)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			name, dataType, nullable        string
			length, precision, scale        sql.NullInt64
			defaultValue, identity, comment sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &length, &precision, &scale, &nullable,
			&defaultValue, &identity, &comment); err != nil {
			return nil, fmt.Errorf("error scanning column of table %s: %w", table, err)
		}
		if length.Valid && length.Int64 == 0 {
			length.Valid = false
		}
		c := schema.Column{
			Name:          name,
			DataType:      dataType,
			Length:        database.IntPtr(length),
			Precision:     database.IntPtr(precision),
			Scale:         database.IntPtr(scale),
			NotNull:       database.NullableToNotNull(nullable),
			Comment:       comment.String,
			AutoIncrement: identity.String == "YES",
		}
		if !c.AutoIncrement {
			c.DefaultValue = strings.TrimSpace(defaultValue.String)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}
	return columns, nil
}

func (Catalog) ReadIndexes(ctx context.Context, q database.Queryer, ns database.Namespace, table string) ([]schema.Index, error) {
	query := `
		SELECT i.INDEX_NAME, i.UNIQUENESS, c.COLUMN_NAME
		FROM ALL_INDEXES i
		JOIN ALL_IND_COLUMNS c ON c.INDEX_OWNER = i.OWNER AND c.INDEX_NAME = i.INDEX_NAME
		WHERE i.TABLE_OWNER = :1
		  AND i.TABLE_NAME = :2
		  AND NOT EXISTS (
			SELECT 1 FROM ALL_CONSTRAINTS k
			WHERE k.OWNER = i.TABLE_OWNER AND k.INDEX_NAME = i.INDEX_NAME AND k.CONSTRAINT_TYPE = 'P')
		ORDER BY i.INDEX_NAME, c.COLUMN_POSITION`

	rows, err := q.QueryContext(ctx, query, ns.Schema.String, table)
	if err != nil {
		return nil, fmt.Errorf("error querying indexes for table %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var name, uniqueness, column string
		if err := rows.Scan(&name, &uniqueness, &column); err != nil {
			return nil, fmt.Errorf("error scanning index of table %s: %w", table, err)
		}
		typ := schema.IndexNormal
		if uniqueness == "UNIQUE" {
			typ = schema.IndexUnique
		}
		indexes = database.AppendIndexColumn(indexes, name, column, typ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index rows: %w", err)
	}
	return indexes, nil
}
