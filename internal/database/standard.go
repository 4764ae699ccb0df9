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
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// Standard generates ANSI-style DDL. Dialects embed it and replace the statements whose syntax
// differs. Builders that emit comments take a Commenter so the embedding dialect's comment
// syntax is used.
type Standard struct {
	Quoter
	// AutoIncrementClause is appended to the key column when the table uses auto-increment keys.
	AutoIncrementClause string
	// QuoteString renders a string literal. Defaults to single quotes with doubled quotes.
	QuoteString func(string) string
}

// NewStandard returns a Standard generator using double-quote identifiers.
func NewStandard(identifierCase IdentifierCase) Standard {
	return Standard{
		Quoter:              Quoter{Open: `"`, Close: `"`, Case: identifierCase},
		AutoIncrementClause: "GENERATED BY DEFAULT AS IDENTITY",
	}
}

// Literal renders s as a SQL string literal.
func (s Standard) Literal(v string) string {
	if s.QuoteString != nil {
		return s.QuoteString(v)
	}
	return QuoteLiteral(v)
}

// TableName returns the quoted, schema-qualified table name.
func (s Standard) TableName(t *schema.Table) string {
	if t.Schema != "" {
		return s.QuoteIdentifier(t.Schema) + "." + s.QuoteIdentifier(t.Name)
	}
	return s.QuoteIdentifier(t.Name)
}

// IndexName returns the quoted index name, qualified with the table's schema.
func (s Standard) IndexName(t *schema.Table, name string) string {
	if t.Schema != "" {
		return s.QuoteIdentifier(t.Schema) + "." + s.QuoteIdentifier(name)
	}
	return s.QuoteIdentifier(name)
}

// ColumnTail renders the NOT NULL, auto-increment or default, and additional DDL clauses.
func (s Standard) ColumnTail(t *schema.Table, c *schema.Column) string {
	var b strings.Builder
	if c.IsNotNull() {
		b.WriteString(" NOT NULL")
	}
	if t.IsAutoIncrementColumn(c) && s.AutoIncrementClause != "" {
		b.WriteString(" " + s.AutoIncrementClause)
	} else if c.DefaultValue != "" {
		b.WriteString(" DEFAULT " + c.DefaultValue)
	}
	if c.AdditionalDDL != "" {
		b.WriteString(" " + c.AdditionalDDL)
	}
	return b.String()
}

// ColumnDefinition renders "name TYPE tail".
func (s Standard) ColumnDefinition(t *schema.Table, c *schema.Column) string {
	return s.QuoteIdentifier(c.Name) + " " + c.TypeDefinition() + s.ColumnTail(t, c)
}

// PrimaryKeyList returns the quoted primary key columns joined with ", ", or "" when any of them
// is not declared.
func (s Standard) PrimaryKeyList(t *schema.Table) string {
	pk := t.ResolvedPrimaryKey()
	if len(pk) == 0 {
		return ""
	}
	quoted := make([]string, len(pk))
	for i, name := range pk {
		quoted[i] = s.QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}

// ColumnDefinitions renders the definitions of every column not marked for dropping.
func (s Standard) ColumnDefinitions(t *schema.Table, def func(*schema.Table, *schema.Column) string) []string {
	cols := t.ActiveColumns()
	out := make([]string, len(cols))
	for i := range cols {
		out[i] = def(t, &cols[i])
	}
	return out
}

// BuildCreateTable emits CREATE TABLE with an inline primary key followed by comment statements.
func (s Standard) BuildCreateTable(t *schema.Table, comments Commenter) []schema.Statement {
	defs := s.ColumnDefinitions(t, s.ColumnDefinition)
	if pk := s.PrimaryKeyList(t); pk != "" {
		defs = append(defs, "PRIMARY KEY ( "+pk+" )")
	}
	stmts := []schema.Statement{
		schema.NewStatement("CREATE TABLE " + s.TableName(t) + " (" + strings.Join(defs, ", ") + ")"),
	}
	return append(stmts, s.CommentStatements(t, comments)...)
}

// CommentStatements returns the table comment statement and one statement per commented column.
func (s Standard) CommentStatements(t *schema.Table, comments Commenter) []schema.Statement {
	var stmts []schema.Statement
	if t.Comment != "" {
		stmts = append(stmts, comments.TableCommentSQL(t))
	}
	for _, c := range t.ActiveColumns() {
		if c.Comment != "" {
			stmts = append(stmts, comments.ColumnCommentSQL(t, &c))
		}
	}
	return stmts
}

func (s Standard) CreateTableSQL(t *schema.Table) []schema.Statement {
	return s.BuildCreateTable(t, s)
}

func (s Standard) DropTableSQL(t *schema.Table) schema.Statement {
	return schema.NewStatement("DROP TABLE IF EXISTS " + s.TableName(t))
}

func (s Standard) RenameTableSQL(oldTable, newTable *schema.Table) schema.Statement {
	return schema.NewStatement("ALTER TABLE " + s.TableName(oldTable) + " RENAME TO " + s.TableName(newTable))
}

// BuildAddColumn emits ALTER TABLE ... ADD followed by the column comment, if any.
func (s Standard) BuildAddColumn(t *schema.Table, c *schema.Column, comments Commenter) []schema.Statement {
	stmts := []schema.Statement{
		schema.NewStatement("ALTER TABLE " + s.TableName(t) + " ADD " + s.ColumnDefinition(t, c)),
	}
	if c.Comment != "" {
		stmts = append(stmts, comments.ColumnCommentSQL(t, c))
	}
	return stmts
}

func (s Standard) AddColumnSQL(t *schema.Table, c *schema.Column) []schema.Statement {
	return s.BuildAddColumn(t, c, s)
}

func (s Standard) DropColumnSQL(t *schema.Table, c *schema.Column) schema.Statement {
	return schema.NewStatement("ALTER TABLE " + s.TableName(t) + " DROP " + s.QuoteIdentifier(c.Name))
}

// Renamed reports whether old carries a different name than c. Names differing only in case
// are the same column: catalogs fold unquoted identifiers.
func Renamed(c, old *schema.Column) bool {
	return old != nil && !strings.EqualFold(old.Name, c.Name)
}

// DefinitionChanged reports whether the type definition, nullability or default differ.
// Defaults are compared in canonical form. AdditionalDDL is not compared since catalogs never
// report it; it is re-emitted whenever the column is re-declared for another reason.
func (s Standard) DefinitionChanged(t *schema.Table, c, old *schema.Column) bool {
	if old == nil {
		return true
	}
	return !SameTypeDefinition(c, old) ||
		c.IsNotNull() != old.IsNotNull() ||
		CanonicalDefault(c.DefaultValue) != CanonicalDefault(old.DefaultValue)
}

func (s Standard) AlterColumnSQL(t *schema.Table, c, old *schema.Column) []schema.Statement {
	var stmts []schema.Statement
	if Renamed(c, old) {
		stmts = append(stmts, schema.NewStatement("ALTER TABLE "+s.TableName(t)+" RENAME COLUMN "+
			s.QuoteIdentifier(old.Name)+" TO "+s.QuoteIdentifier(c.Name)))
	}
	if s.DefinitionChanged(t, c, old) {
		stmts = append(stmts, schema.NewStatement("ALTER TABLE "+s.TableName(t)+" MODIFY "+s.ColumnDefinition(t, c)))
	}
	return stmts
}

// BaseIndexSQL renders CREATE [UNIQUE|FULLTEXT|VECTOR] INDEX name ON table ( column ).
func (s Standard) BaseIndexSQL(t *schema.Table, c *schema.Column, indexName string) string {
	var b strings.Builder
	b.WriteString("CREATE")
	if kw := c.EffectiveIndexType().Keyword(); kw != "" {
		b.WriteString(" " + kw)
	}
	b.WriteString(" INDEX " + s.QuoteIdentifier(indexName) + " ON " + s.TableName(t) + " ( ")
	if c.IndexExpr != "" {
		b.WriteString(c.IndexExpr)
	} else {
		b.WriteString(s.QuoteIdentifier(c.Name))
	}
	b.WriteString(" )")
	return b.String()
}

func (s Standard) AddIndexSQL(t *schema.Table, c *schema.Column, indexName string) schema.Statement {
	return schema.NewStatement(s.BaseIndexSQL(t, c, indexName))
}

func (s Standard) DropIndexSQL(t *schema.Table, indexName string) schema.Statement {
	return schema.IgnorableStatement("DROP INDEX " + s.IndexName(t, indexName))
}

func (s Standard) TableCommentSQL(t *schema.Table) schema.Statement {
	return schema.IgnorableStatement("COMMENT ON TABLE " + s.TableName(t) + " IS " + s.Literal(t.Comment))
}

func (s Standard) ColumnCommentSQL(t *schema.Table, c *schema.Column) schema.Statement {
	return schema.IgnorableStatement("COMMENT ON COLUMN " + s.TableName(t) + "." + s.QuoteIdentifier(c.Name) +
		" IS " + s.Literal(c.Comment))
}

func (s Standard) NormalizeColumn(c schema.Column) schema.Column {
	return NormalizeColumn(c)
}

// SameTypeDefinition compares two columns' type definitions in canonical form.
func SameTypeDefinition(a, b *schema.Column) bool {
	ca, cb := *a, *b
	ca.DataType = CanonicalType(a.DataType)
	cb.DataType = CanonicalType(b.DataType)
	return strings.EqualFold(ca.TypeDefinition(), cb.TypeDefinition())
}
