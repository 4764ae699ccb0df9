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
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// Catalog reads information_schema and pg_catalog within the current schema.
type Catalog struct{}

func (Catalog) ProductName(ctx context.Context, q database.Queryer) (string, error) {
	v, err := database.QueryString(ctx, q, "SELECT version()")
	if err != nil {
		return "", err
	}
	return v.String, nil
}

func (Catalog) CurrentNamespace(ctx context.Context, q database.Queryer) (database.Namespace, error) {
	var ns database.Namespace
	if err := q.QueryRowContext(ctx, "SELECT current_database(), current_schema()").Scan(&ns.Catalog, &ns.Schema); err != nil {
		return database.Namespace{}, fmt.Errorf("error reading current schema: %w", err)
	}
	return ns, nil
}

func (Catalog) ReadTable(ctx context.Context, q database.Queryer, ns database.Namespace, table string) (*schema.Table, error) {
	query := `
		SELECT c.relname, obj_description(c.oid, 'pg_class')
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relname = $2
		  AND c.relkind IN ('r', 'p')`
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
		SELECT c.column_name, c.data_type, c.character_maximum_length, c.numeric_precision,
			c.numeric_scale, c.is_nullable, c.column_default, c.is_identity,
			col_description(format('%I.%I', c.table_schema, c.table_name)::regclass::oid, c.ordinal_position)
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		  AND c.table_name = $2
		ORDER BY c.ordinal_position`

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
		serial := strings.HasPrefix(strings.ToLower(defaultValue.String), "nextval(")
		c := schema.Column{
			Name:          name,
			DataType:      dataType,
			Length:        database.IntPtr(length),
			Precision:     database.IntPtr(precision),
			Scale:         database.IntPtr(scale),
			NotNull:       database.NullableToNotNull(nullable),
			Comment:       comment.String,
			AutoIncrement: identity.String == "YES" || serial,
		}
		if !c.AutoIncrement {
			c.DefaultValue = defaultValue.String
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
		SELECT i.relname, ix.indisunique, am.amname, a.attname
		FROM pg_catalog.pg_index ix
		JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
		JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_catalog.pg_am am ON am.oid = i.relam
		JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1
		  AND t.relname = $2
		  AND NOT ix.indisprimary
		ORDER BY i.relname, k.ord`

	rows, err := q.QueryContext(ctx, query, ns.Schema.String, table)
	if err != nil {
		return nil, fmt.Errorf("error querying indexes for table %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var name, method, column string
		var unique bool
		if err := rows.Scan(&name, &unique, &method, &column); err != nil {
			return nil, fmt.Errorf("error scanning index of table %s: %w", table, err)
		}
		indexes = database.AppendIndexColumn(indexes, name, column, indexKind(unique, method))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index rows: %w", err)
	}
	return indexes, nil
}

func indexKind(unique bool, method string) schema.IndexType {
	switch method {
	case "gin":
		return schema.IndexFulltext
	case "hnsw", "ivfflat":
		return schema.IndexVector
	}
	if unique {
		return schema.IndexUnique
	}
	return schema.IndexNormal
}
