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

import "github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"

// Family groups dialects that share type-mapping rules.
type Family int

const (
	FamilyStandard Family = iota
	FamilyMySQL
	FamilyPostgres
	FamilyOracle
	FamilyH2
	FamilySQLServer
)

func (f Family) String() string {
	switch f {
	case FamilyMySQL:
		return "mysql"
	case FamilyPostgres:
		return "postgres"
	case FamilyOracle:
		return "oracle"
	case FamilyH2:
		return "h2"
	case FamilySQLServer:
		return "sqlserver"
	default:
		return "standard"
	}
}

// Dialect generates DDL text for one database family. Implementations are pure and hold no
// connection state.
type Dialect interface {
	Name() string
	Family() Family

	SupportsAutoIncrement() bool
	SupportsSequence() bool
	// AlterColumnIncludesComment is true when the alter-column statement re-declares the comment,
	// so a comment change is applied through it instead of a separate comment statement.
	AlterColumnIncludesComment() bool
	// TableScopedIndexNames is true when index names only need to be unique within a table.
	TableScopedIndexNames() bool

	QuoteIdentifier(name string) string
	UnquoteIdentifier(name string) string
	NormalizeIdentifierCase(name string) string

	CreateTableSQL(t *schema.Table) []schema.Statement
	DropTableSQL(t *schema.Table) schema.Statement
	RenameTableSQL(oldTable, newTable *schema.Table) schema.Statement
	AddColumnSQL(t *schema.Table, c *schema.Column) []schema.Statement
	DropColumnSQL(t *schema.Table, c *schema.Column) schema.Statement
	// AlterColumnSQL emits the rename (when old carries another name) before the type change.
	// old may be nil, in which case the full column definition is re-declared.
	AlterColumnSQL(t *schema.Table, c, old *schema.Column) []schema.Statement
	AddIndexSQL(t *schema.Table, c *schema.Column, indexName string) schema.Statement
	DropIndexSQL(t *schema.Table, indexName string) schema.Statement
	TableCommentSQL(t *schema.Table) schema.Statement
	ColumnCommentSQL(t *schema.Table, c *schema.Column) schema.Statement

	// NormalizeColumn returns the live column with its type in canonical form.
	NormalizeColumn(c schema.Column) schema.Column
}

// Commenter produces comment statements. Standard's builders take one so a dialect can plug in
// its own comment syntax.
type Commenter interface {
	TableCommentSQL(t *schema.Table) schema.Statement
	ColumnCommentSQL(t *schema.Table, c *schema.Column) schema.Statement
}
