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
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

var reserved = database.KeywordSet(
	"ACCESS", "AUDIT", "COMMENT", "FILE", "LEVEL", "MODE", "NUMBER", "RESOURCE", "ROWID",
	"ROWNUM", "SESSION", "SIZE", "START", "SYNONYM", "SYSDATE", "UID", "VIEW",
)

// Dialect generates Oracle DDL. Keys come from sequences and the primary key is added as a
// named constraint after the table is created.
type Dialect struct {
	database.Standard
}

func NewDialect() Dialect {
	s := database.NewStandard(database.UpperCase)
	s.Reserved = reserved
	s.AutoIncrementClause = ""
	return Dialect{Standard: s}
}

func (d Dialect) Name() string                     { return "oracle" }
func (d Dialect) Family() database.Family          { return database.FamilyOracle }
func (d Dialect) SupportsAutoIncrement() bool      { return false }
func (d Dialect) SupportsSequence() bool           { return true }
func (d Dialect) AlterColumnIncludesComment() bool { return false }
func (d Dialect) TableScopedIndexNames() bool      { return false }

// tail places DEFAULT ahead of NOT NULL, the only order Oracle accepts.
func (d Dialect) tail(c *schema.Column) string {
	var b strings.Builder
	if c.DefaultValue != "" {
		b.WriteString(" DEFAULT " + c.DefaultValue)
	}
	if c.IsNotNull() {
		b.WriteString(" NOT NULL")
	}
	if c.AdditionalDDL != "" {
		b.WriteString(" " + c.AdditionalDDL)
	}
	return b.String()
}

func (d Dialect) ColumnDefinition(t *schema.Table, c *schema.Column) string {
	return d.QuoteIdentifier(c.Name) + " " + c.TypeDefinition() + d.tail(c)
}

// PrimaryKeyConstraint names the primary key constraint of t.
func (d Dialect) PrimaryKeyConstraint(t *schema.Table) string {
	return d.QuoteIdentifier("PK_" + d.UnquoteIdentifier(t.Name))
}

func (d Dialect) CreateTableSQL(t *schema.Table) []schema.Statement {
	defs := d.ColumnDefinitions(t, d.ColumnDefinition)
	stmts := []schema.Statement{
		schema.NewStatement("CREATE TABLE " + d.TableName(t) + " (" + strings.Join(defs, ", ") + ")"),
	}
	if pk := d.PrimaryKeyList(t); pk != "" {
		stmts = append(stmts, schema.NewStatement("ALTER TABLE "+d.TableName(t)+" ADD CONSTRAINT "+
			d.PrimaryKeyConstraint(t)+" PRIMARY KEY ( "+pk+" )"))
	}
	return append(stmts, d.CommentStatements(t, d)...)
}

func (d Dialect) AddColumnSQL(t *schema.Table, c *schema.Column) []schema.Statement {
	stmts := []schema.Statement{
		schema.NewStatement("ALTER TABLE " + d.TableName(t) + " ADD " + d.ColumnDefinition(t, c)),
	}
	if c.Comment != "" {
		stmts = append(stmts, d.ColumnCommentSQL(t, c))
	}
	return stmts
}

func (d Dialect) AlterColumnSQL(t *schema.Table, c, old *schema.Column) []schema.Statement {
	var stmts []schema.Statement
	if database.Renamed(c, old) {
		stmts = append(stmts, schema.NewStatement("ALTER TABLE "+d.TableName(t)+" RENAME COLUMN "+
			d.QuoteIdentifier(old.Name)+" TO "+d.QuoteIdentifier(c.Name)))
	}
	if d.DefinitionChanged(t, c, old) {
		stmts = append(stmts, schema.NewStatement("ALTER TABLE "+d.TableName(t)+" MODIFY "+d.ColumnDefinition(t, c)))
	}
	return stmts
}
