package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// Catalog reads information_schema on MySQL-protocol servers. The current database is
// reported in the catalog dimension.
type Catalog struct{}

// ProductName reports "MySQL <version>", so forks that embed their name in the version
// string (OceanBase, MariaDB) can be told apart.
func (Catalog) ProductName(ctx context.Context, q database.Queryer) (string, error) {
	v, err := database.QueryString(ctx, q, "SELECT VERSION()")
	if err != nil {
		return "", err
	}
	return "MySQL " + v.String, nil
}

func (Catalog) CurrentNamespace(ctx context.Context, q database.Queryer) (database.Namespace, error) {
	db, err := database.QueryString(ctx, q, "SELECT DATABASE()")
	if err != nil {
		return database.Namespace{}, err
	}
	return database.Namespace{Catalog: db}, nil
}

func (Catalog) ReadTable(ctx context.Context, q database.Queryer, ns database.Namespace, table string) (*schema.Table, error) {
	query := `
		  SELECT TABLE_NAME, TABLE_COMMENT
		  FROM information_schema.TABLES
		  WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?`
	t, err := database.ReadTableComment(ctx, q, query, ns.Catalog.String, table)
	if err != nil {
		return nil, fmt.Errorf("error querying table %s: %w", table, err)
	}
	if t != nil {
		t.Schema = ns.Catalog.String
	}
	return t, nil
}

func (Catalog) ReadColumns(ctx context.Context, q database.Queryer, ns database.Namespace, table string) ([]schema.Column, error) {
	query := `
		  SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION,
			NUMERIC_SCALE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_COMMENT, EXTRA
		  FROM information_schema.COLUMNS
		  WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?
		  ORDER BY ORDINAL_POSITION`

	rows, err := q.QueryContext(ctx, query, ns.Catalog.String, table)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			name, dataType, columnType, nullable string
			length, precision, scale             sql.NullInt64
			defaultValue, comment, extra         sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &columnType, &length, &precision, &scale,
			&nullable, &defaultValue, &comment, &extra); err != nil {
			return nil, fmt.Errorf("error scanning column of table %s: %w", table, err)
		}
		c := schema.Column{
			Name:          name,
			DataType:      dataType,
			Length:        database.IntPtr(length),
			Precision:     database.IntPtr(precision),
			Scale:         database.IntPtr(scale),
			NotNull:       database.NullableToNotNull(nullable),
			Comment:       comment.String,
			AutoIncrement: strings.Contains(strings.ToLower(extra.String), "auto_increment"),
			Generated:     isGenerated(extra.String),
		}
		if strings.EqualFold(dataType, "vector") {
			c.DataType = columnType
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
		  SELECT INDEX_NAME, NON_UNIQUE, INDEX_TYPE, COLUMN_NAME
		  FROM information_schema.STATISTICS
		  WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?
			AND INDEX_NAME <> 'PRIMARY'
		  ORDER BY INDEX_NAME, SEQ_IN_INDEX`

	rows, err := q.QueryContext(ctx, query, ns.Catalog.String, table)
	if err != nil {
		return nil, fmt.Errorf("error querying indexes for table %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var name, indexType, column string
		var nonUnique int
		if err := rows.Scan(&name, &nonUnique, &indexType, &column); err != nil {
			return nil, fmt.Errorf("error scanning index of table %s: %w", table, err)
		}
		indexes = database.AppendIndexColumn(indexes, name, column, indexKind(nonUnique, indexType))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index rows: %w", err)
	}
	return indexes, nil
}

func indexKind(nonUnique int, indexType string) schema.IndexType {
	switch strings.ToUpper(indexType) {
	case "FULLTEXT":
		return schema.IndexFulltext
	case "VECTOR":
		return schema.IndexVector
	}
	if nonUnique == 0 {
		return schema.IndexUnique
	}
	return schema.IndexNormal
}

func isGenerated(extra string) bool {
	e := strings.ToUpper(extra)
	return strings.Contains(e, "VIRTUAL GENERATED") || strings.Contains(e, "STORED GENERATED")
}
