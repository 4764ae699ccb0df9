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

// Package h2 serves H2 databases reached through the server's PostgreSQL wire mode.
package h2

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

const defaultPort = 5435

type Handler struct {
	Dialect
	Catalog
}

var _ database.DialectHandler = (*Handler)(nil)

func New() *Handler {
	return &Handler{Dialect: NewDialect()}
}

// Priority is high so more specific handlers claim a product name first.
func (h *Handler) Priority() int { return 100 }

func (h *Handler) Matches(name string) bool {
	return database.ContainsAny(name, "h2")
}

func (h *Handler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return nil, fmt.Errorf("cloud sql connector does not serve h2")
}

func (h *Handler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	pgxConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("error parsing h2 connection config: %w", err)
	}
	// H2's PostgreSQL server mode does not support the extended protocol's statement cache.
	pgxConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	dbPool, err := sql.Open("pgx", stdlib.RegisterConnConfig(pgxConfig))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return dbPool, nil
}

// Dialect generates H2 DDL.
type Dialect struct {
	database.Standard
}

func NewDialect() Dialect {
	return Dialect{Standard: database.NewStandard(database.UpperCase)}
}

func (d Dialect) Name() string                     { return "h2" }
func (d Dialect) Family() database.Family          { return database.FamilyH2 }
func (d Dialect) SupportsAutoIncrement() bool      { return true }
func (d Dialect) SupportsSequence() bool           { return true }
func (d Dialect) AlterColumnIncludesComment() bool { return false }
func (d Dialect) TableScopedIndexNames() bool      { return false }

// AlterColumnSQL renames through ALTER COLUMN ... RENAME TO and re-declares the column with
// ALTER COLUMN when its definition changed.
func (d Dialect) AlterColumnSQL(t *schema.Table, c, old *schema.Column) []schema.Statement {
	var stmts []schema.Statement
	if database.Renamed(c, old) {
		stmts = append(stmts, schema.NewStatement("ALTER TABLE "+d.TableName(t)+" ALTER COLUMN "+
			d.QuoteIdentifier(old.Name)+" RENAME TO "+d.QuoteIdentifier(c.Name)))
	}
	if d.DefinitionChanged(t, c, old) {
		stmts = append(stmts, schema.NewStatement("ALTER TABLE "+d.TableName(t)+" ALTER COLUMN "+
			d.ColumnDefinition(t, c)))
	}
	return stmts
}

// Catalog reads H2's INFORMATION_SCHEMA.
type Catalog struct{}

func (Catalog) ProductName(ctx context.Context, q database.Queryer) (string, error) {
	v, err := database.QueryString(ctx, q, "SELECT 'H2 ' || H2VERSION()")
	if err != nil {
		return "", err
	}
	return v.String, nil
}

func (Catalog) CurrentNamespace(ctx context.Context, q database.Queryer) (database.Namespace, error) {
	var ns database.Namespace
	if err := q.QueryRowContext(ctx, "SELECT CURRENT_CATALOG, CURRENT_SCHEMA").Scan(&ns.Catalog, &ns.Schema); err != nil {
		return database.Namespace{}, fmt.Errorf("error reading current schema: %w", err)
	}
	return ns, nil
}

func (Catalog) ReadTable(ctx context.Context, q database.Queryer, ns database.Namespace, table string) (*schema.Table, error) {
	query := `
		SELECT TABLE_NAME, REMARKS
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = $1
		  AND TABLE_NAME = $2`
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
		SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE,
			IS_NULLABLE, COLUMN_DEFAULT, IS_IDENTITY, REMARKS
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = $1
		  AND TABLE_NAME = $2
		ORDER BY ORDINAL_POSITION`

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
		SELECT i.INDEX_NAME, i.INDEX_TYPE_NAME, c.COLUMN_NAME
		FROM INFORMATION_SCHEMA.INDEXES i
		JOIN INFORMATION_SCHEMA.INDEX_COLUMNS c
			ON c.INDEX_SCHEMA = i.INDEX_SCHEMA AND c.INDEX_NAME = i.INDEX_NAME
		WHERE i.TABLE_SCHEMA = $1
		  AND i.TABLE_NAME = $2
		  AND i.INDEX_TYPE_NAME <> 'PRIMARY KEY'
		ORDER BY i.INDEX_NAME, c.ORDINAL_POSITION`

	rows, err := q.QueryContext(ctx, query, ns.Schema.String, table)
	if err != nil {
		return nil, fmt.Errorf("error querying indexes for table %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var name, typeName, column string
		if err := rows.Scan(&name, &typeName, &column); err != nil {
			return nil, fmt.Errorf("error scanning index of table %s: %w", table, err)
		}
		typ := schema.IndexNormal
		if strings.HasPrefix(typeName, "UNIQUE") {
			typ = schema.IndexUnique
		}
		indexes = database.AppendIndexColumn(indexes, name, column, typ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index rows: %w", err)
	}
	return indexes, nil
}
