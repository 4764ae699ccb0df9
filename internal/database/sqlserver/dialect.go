package sqlserver

import (
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

const defaultSchema = "dbo"

var reserved = database.KeywordSet(
	"BACKUP", "BROWSE", "BULK", "CHECKPOINT", "CLUSTERED", "DATABASE", "DENY", "DUMP", "EXEC",
	"EXECUTE", "FILE", "IDENTITY", "KILL", "MERGE", "NONCLUSTERED", "PERCENT", "PLAN", "PROC",
	"PROCEDURE", "READ", "RULE", "SCHEMA", "TOP", "TRAN", "TRANSACTION", "TRIGGER", "VIEW",
)

// Dialect generates T-SQL DDL. Comments are stored as MS_Description extended properties.
type Dialect struct {
	database.Standard
}

func NewDialect() Dialect {
	return Dialect{Standard: database.Standard{
		Quoter:              database.Quoter{Open: "[", Close: "]", Case: database.PreserveCase, Reserved: reserved},
		AutoIncrementClause: "IDENTITY(1,1)",
		QuoteString:         func(s string) string { return "N" + database.QuoteLiteral(s) },
	}}
}

func (d Dialect) Name() string                     { return "sqlserver" }
func (d Dialect) Family() database.Family          { return database.FamilySQLServer }
func (d Dialect) SupportsAutoIncrement() bool      { return true }
func (d Dialect) SupportsSequence() bool           { return true }
func (d Dialect) AlterColumnIncludesComment() bool { return false }
func (d Dialect) TableScopedIndexNames() bool      { return true }

func (d Dialect) schemaName(t *schema.Table) string {
	if t.Schema != "" {
		return d.UnquoteIdentifier(t.Schema)
	}
	return defaultSchema
}

// CreateTableSQL names the primary key constraint so full-text indexes can reference it.
func (d Dialect) CreateTableSQL(t *schema.Table) []schema.Statement {
	defs := d.ColumnDefinitions(t, d.ColumnDefinition)
	if pk := d.PrimaryKeyList(t); pk != "" {
		defs = append(defs, "CONSTRAINT "+d.primaryKeyName(t)+" PRIMARY KEY ( "+pk+" )")
	}
	stmts := []schema.Statement{
		schema.NewStatement("CREATE TABLE " + d.TableName(t) + " (" + strings.Join(defs, ", ") + ")"),
	}
	return append(stmts, d.CommentStatements(t, d)...)
}

func (d Dialect) primaryKeyName(t *schema.Table) string {
	return d.QuoteIdentifier("PK_" + d.UnquoteIdentifier(t.Name))
}

func (d Dialect) RenameTableSQL(oldTable, newTable *schema.Table) schema.Statement {
	return schema.NewStatement(fmt.Sprintf("EXEC sp_rename %s, %s",
		d.Literal(d.schemaName(oldTable)+"."+d.UnquoteIdentifier(oldTable.Name)),
		d.Literal(d.UnquoteIdentifier(newTable.Name))))
}

func (d Dialect) AddColumnSQL(t *schema.Table, c *schema.Column) []schema.Statement {
	return d.BuildAddColumn(t, c, d)
}

func (d Dialect) DropColumnSQL(t *schema.Table, c *schema.Column) schema.Statement {
	return schema.NewStatement("ALTER TABLE " + d.TableName(t) + " DROP COLUMN " + d.QuoteIdentifier(c.Name))
}

// AlterColumnSQL renames through sp_rename and re-declares type and nullability with ALTER COLUMN.
// ALTER COLUMN cannot carry a default, so a changed default is added as an unnamed constraint.
// That statement fails while an older default constraint exists and is therefore ignorable.
func (d Dialect) AlterColumnSQL(t *schema.Table, c, old *schema.Column) []schema.Statement {
	var stmts []schema.Statement
	if database.Renamed(c, old) {
		stmts = append(stmts, schema.NewStatement(fmt.Sprintf("EXEC sp_rename %s, %s, 'COLUMN'",
			d.Literal(d.schemaName(t)+"."+d.UnquoteIdentifier(t.Name)+"."+d.UnquoteIdentifier(old.Name)),
			d.Literal(d.UnquoteIdentifier(c.Name)))))
	}
	if old == nil || !database.SameTypeDefinition(c, old) || c.IsNotNull() != old.IsNotNull() {
		def := d.QuoteIdentifier(c.Name) + " " + c.TypeDefinition()
		if c.IsNotNull() {
			def += " NOT NULL"
		} else {
			def += " NULL"
		}
		stmts = append(stmts, schema.NewStatement("ALTER TABLE "+d.TableName(t)+" ALTER COLUMN "+def))
	}
	oldDefault := ""
	if old != nil {
		oldDefault = database.CanonicalDefault(old.DefaultValue)
	}
	if c.DefaultValue != "" && database.CanonicalDefault(c.DefaultValue) != oldDefault {
		stmts = append(stmts, schema.IgnorableStatement("ALTER TABLE "+d.TableName(t)+" ADD DEFAULT "+
			c.DefaultValue+" FOR "+d.QuoteIdentifier(c.Name)))
	}
	return stmts
}

// AddIndexSQL renders plain and unique indexes directly. Full-text indexes are keyed on the
// primary key constraint and need a default full-text catalog. Vector indexes need a server
// with vector support. Both are ignorable.
func (d Dialect) AddIndexSQL(t *schema.Table, c *schema.Column, indexName string) schema.Statement {
	switch c.EffectiveIndexType() {
	case schema.IndexFulltext:
		return schema.IgnorableStatement("CREATE FULLTEXT INDEX ON " + d.TableName(t) + " ( " +
			d.QuoteIdentifier(c.Name) + " ) KEY INDEX " + d.primaryKeyName(t))
	case schema.IndexVector:
		return schema.IgnorableStatement(d.BaseIndexSQL(t, c, indexName) + " WITH (METRIC = 'cosine', TYPE = 'diskann')")
	}
	return schema.NewStatement(d.BaseIndexSQL(t, c, indexName))
}

func (d Dialect) DropIndexSQL(t *schema.Table, indexName string) schema.Statement {
	return schema.IgnorableStatement("DROP INDEX " + d.QuoteIdentifier(indexName) + " ON " + d.TableName(t))
}

func (d Dialect) TableCommentSQL(t *schema.Table) schema.Statement {
	return d.describe(t, nil, t.Comment)
}

func (d Dialect) ColumnCommentSQL(t *schema.Table, c *schema.Column) schema.Statement {
	return d.describe(t, c, c.Comment)
}

// describe sets the MS_Description property of a table, or of one of its columns when c is set,
// updating it when present and adding it otherwise.
func (d Dialect) describe(t *schema.Table, c *schema.Column, comment string) schema.Statement {
	schemaName := d.schemaName(t)
	table := d.UnquoteIdentifier(t.Name)
	object := d.Literal(schemaName + "." + table)

	minorID := "0"
	args := fmt.Sprintf("N'MS_Description', %s, N'SCHEMA', %s, N'TABLE', %s",
		d.Literal(comment), d.Literal(schemaName), d.Literal(table))
	if c != nil {
		column := d.UnquoteIdentifier(c.Name)
		minorID = fmt.Sprintf("COLUMNPROPERTY(OBJECT_ID(%s), %s, 'ColumnId')", object, d.Literal(column))
		args += ", N'COLUMN', " + d.Literal(column)
	}

	return schema.IgnorableStatement(fmt.Sprintf(
		"IF EXISTS (SELECT 1 FROM sys.extended_properties WHERE major_id = OBJECT_ID(%s) AND minor_id = %s AND name = N'MS_Description') "+
			"EXEC sp_updateextendedproperty %s ELSE EXEC sp_addextendedproperty %s",
		object, minorID, args, args))
}
