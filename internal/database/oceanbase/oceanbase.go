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

// Package oceanbase serves OceanBase in MySQL mode. It speaks the MySQL protocol and reuses
// the MySQL catalog reader and pools, adding table groups, column store and vector indexes.
package oceanbase

import (
	"database/sql"
	"fmt"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/mysql"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// Handler serves OceanBase. It is consulted before the MySQL handler.
type Handler struct {
	Dialect
	mysql.Catalog
}

var _ database.DialectHandler = (*Handler)(nil)

func New() *Handler {
	return &Handler{Dialect: NewDialect()}
}

func (h *Handler) Priority() int { return 5 }

func (h *Handler) Matches(name string) bool {
	return database.ContainsAny(name, "oceanbase")
}

func (h *Handler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return nil, fmt.Errorf("cloud sql connector does not serve oceanbase")
}

func (h *Handler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return mysql.OpenStandard(cfg)
}

// Dialect extends the MySQL generator.
type Dialect struct {
	mysql.Dialect
}

func NewDialect() Dialect {
	return Dialect{Dialect: mysql.NewDialect()}
}

func (d Dialect) Name() string { return "oceanbase" }

func (d Dialect) CreateTableSQL(t *schema.Table) []schema.Statement {
	if t.TableGroup == "" {
		return d.Dialect.CreateTableSQL(t)
	}
	create := d.CreateTable(t, "TABLEGROUP = "+d.QuoteIdentifier(t.TableGroup))
	if t.ColumnStore {
		create += " WITH COLUMN GROUP (each column)"
	}
	return []schema.Statement{
		schema.IgnorableStatement("CREATE TABLEGROUP " + d.QuoteIdentifier(t.TableGroup) + " SHARDING = 'ADAPTIVE'"),
		schema.NewStatement(create),
	}
}

func (d Dialect) AddIndexSQL(t *schema.Table, c *schema.Column, indexName string) schema.Statement {
	base := d.BaseIndexSQL(t, c, indexName)
	switch c.EffectiveIndexType() {
	case schema.IndexVector:
		return schema.IgnorableStatement(base + " WITH (distance=l2, type=hnsw)")
	case schema.IndexFulltext:
		return schema.IgnorableStatement(base + ` WITH PARSER ik PARSER_PROPERTIES=(ik_mode="max_word")`)
	default:
		return schema.NewStatement(base)
	}
}
