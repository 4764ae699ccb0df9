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
	"strings"

	"github.com/lib/pq"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// Dialect generates PostgreSQL DDL.
type Dialect struct {
	database.Standard
}

// NewDialect returns the PostgreSQL DDL generator. Comment literals go through pq.QuoteLiteral.
func NewDialect() Dialect {
	s := database.NewStandard(database.LowerCase)
	s.Reserved = database.KeywordSet("ANALYSE", "ANALYZE", "ARRAY", "ILIKE", "PLACING", "RETURNING", "SYMMETRIC", "VARIADIC")
	s.QuoteString = pq.QuoteLiteral
	return Dialect{Standard: s}
}

func (d Dialect) Name() string                     { return "postgres" }
func (d Dialect) Family() database.Family          { return database.FamilyPostgres }
func (d Dialect) SupportsAutoIncrement() bool      { return true }
func (d Dialect) SupportsSequence() bool           { return true }
func (d Dialect) AlterColumnIncludesComment() bool { return false }
func (d Dialect) TableScopedIndexNames() bool      { return false }

// RenameTableSQL qualifies the old name with the new table's schema. PostgreSQL does not
// accept a schema on the target name.
func (d Dialect) RenameTableSQL(oldTable, newTable *schema.Table) schema.Statement {
	old := oldTable.WithName(oldTable.Name)
	old.Schema = newTable.Schema
	return schema.NewStatement("ALTER TABLE " + d.TableName(old) + " RENAME TO " + d.QuoteIdentifier(newTable.Name))
}

// AlterColumnSQL joins the rename, type, default and nullability changes into one statement.
func (d Dialect) AlterColumnSQL(t *schema.Table, c, old *schema.Column) []schema.Statement {
	name := d.QuoteIdentifier(c.Name)
	var parts []string
	if database.Renamed(c, old) {
		parts = append(parts, "RENAME COLUMN "+d.QuoteIdentifier(old.Name)+" TO "+name)
	}
	if old == nil || !database.SameTypeDefinition(c, old) {
		typ := c.TypeDefinition()
		parts = append(parts, "ALTER COLUMN "+name+" TYPE "+typ+" USING "+name+"::"+typ)
	}
	if old == nil || database.CanonicalDefault(c.DefaultValue) != database.CanonicalDefault(old.DefaultValue) {
		if c.DefaultValue != "" {
			parts = append(parts, "ALTER COLUMN "+name+" SET DEFAULT "+c.DefaultValue)
		} else {
			parts = append(parts, "ALTER COLUMN "+name+" DROP DEFAULT")
		}
	}
	if old != nil && c.NotNull != nil && c.IsNotNull() != old.IsNotNull() {
		if c.IsNotNull() {
			parts = append(parts, "ALTER COLUMN "+name+" SET NOT NULL")
		} else {
			parts = append(parts, "ALTER COLUMN "+name+" DROP NOT NULL")
		}
	}
	if len(parts) == 0 {
		return nil
	}
	// RENAME COLUMN cannot share a statement with other subcommands.
	if database.Renamed(c, old) && len(parts) > 1 {
		return []schema.Statement{
			schema.NewStatement("ALTER TABLE " + d.TableName(t) + " " + parts[0]),
			schema.NewStatement("ALTER TABLE " + d.TableName(t) + " " + strings.Join(parts[1:], ", ")),
		}
	}
	return []schema.Statement{schema.NewStatement("ALTER TABLE " + d.TableName(t) + " " + strings.Join(parts, ", "))}
}

func (d Dialect) AddIndexSQL(t *schema.Table, c *schema.Column, indexName string) schema.Statement {
	col := d.QuoteIdentifier(c.Name)
	switch {
	case strings.EqualFold(database.CanonicalType(c.DataType), "VECTOR"):
		return schema.NewStatement("CREATE INDEX " + d.QuoteIdentifier(indexName) + " ON " + d.TableName(t) +
			" USING hnsw (" + col + " vector_l2_ops) WITH ( m = 16, ef_construction = 64, ef_search = 10 )")
	case c.EffectiveIndexType() == schema.IndexFulltext:
		return schema.NewStatement("CREATE INDEX " + d.QuoteIdentifier(indexName) + " ON " + d.TableName(t) +
			" USING gin(to_tsvector('simple', " + col + " ))")
	default:
		return d.Standard.AddIndexSQL(t, c, indexName)
	}
}
