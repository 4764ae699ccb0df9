package sqlserver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// Catalog reads INFORMATION_SCHEMA and the sys catalog views.
type Catalog struct{}

func (Catalog) ProductName(ctx context.Context, q database.Queryer) (string, error) {
	v, err := database.QueryString(ctx, q, "SELECT @@VERSION")
	if err != nil {
		return "", err
	}
	return v.String, nil
}

func (Catalog) CurrentNamespace(ctx context.Context, q database.Queryer) (database.Namespace, error) {
	var ns database.Namespace
	if err := q.QueryRowContext(ctx, "SELECT DB_NAME(), SCHEMA_NAME()").Scan(&ns.Catalog, &ns.Schema); err != nil {
		return database.Namespace{}, fmt.Errorf("error reading current schema: %w", err)
	}
	return ns, nil
}

func (Catalog) ReadTable(ctx context.Context, q database.Queryer, ns database.Namespace, table string) (*schema.Table, error) {
	query := `
		SELECT t.TABLE_NAME, CAST(ep.value AS NVARCHAR(MAX))
		FROM INFORMATION_SCHEMA.TABLES t
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = OBJECT_ID(QUOTENAME(t.TABLE_SCHEMA) + '.' + QUOTENAME(t.TABLE_NAME))
			AND ep.minor_id = 0 AND ep.name = 'MS_Description'
		WHERE t.TABLE_TYPE = 'BASE TABLE'
		  AND t.TABLE_SCHEMA = @schemaName
		  AND t.TABLE_NAME = @tableName`
	tbl, err := database.ReadTableComment(ctx, q, query,
		sql.Named("schemaName", ns.Schema.String), sql.Named("tableName", table))
	if err != nil {
		return nil, fmt.Errorf("error querying table %s: %w", table, err)
	}
	if tbl != nil {
		tbl.Schema = ns.Schema.String
	}
	return tbl, nil
}

func (Catalog) ReadColumns(ctx context.Context, q database.Queryer, ns database.Namespace, table string) ([]schema.Column, error) {
	query := `
		SELECT c.COLUMN_NAME, c.DATA_TYPE, c.CHARACTER_MAXIMUM_LENGTH, c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE, c.IS_NULLABLE, c.COLUMN_DEFAULT,
			COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity'),
			CAST(ep.value AS NVARCHAR(MAX))
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME))
			AND ep.minor_id = COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'ColumnId')
			AND ep.name = 'MS_Description'
		WHERE c.TABLE_SCHEMA = @schemaName
		  AND c.TABLE_NAME = @tableName
		ORDER BY c.ORDINAL_POSITION`

	rows, err := q.QueryContext(ctx, query, sql.Named("schemaName", ns.Schema.String), sql.Named("tableName", table))
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			name, dataType, nullable           string
			length, precision, scale, identity sql.NullInt64
			defaultValue, comment              sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &length, &precision, &scale, &nullable,
			&defaultValue, &identity, &comment); err != nil {
			return nil, fmt.Errorf("error scanning column of table %s: %w", table, err)
		}
		// -1 marks a (MAX) column.
		if length.Valid && length.Int64 < 0 {
			dataType += "(max)"
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
			AutoIncrement: identity.Int64 == 1,
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
		SELECT i.name, i.is_unique, c.name
		FROM sys.indexes i
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE s.name = @schemaName
		  AND t.name = @tableName
		  AND i.is_primary_key = 0
		  AND i.type > 0
		  AND ic.is_included_column = 0
		ORDER BY i.name, ic.key_ordinal`

	rows, err := q.QueryContext(ctx, query, sql.Named("schemaName", ns.Schema.String), sql.Named("tableName", table))
	if err != nil {
		return nil, fmt.Errorf("error querying indexes for table %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &unique, &column); err != nil {
			return nil, fmt.Errorf("error scanning index of table %s: %w", table, err)
		}
		typ := schema.IndexNormal
		if unique {
			typ = schema.IndexUnique
		}
		indexes = database.AppendIndexColumn(indexes, name, column, typ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index rows: %w", err)
	}
	return indexes, nil
}
