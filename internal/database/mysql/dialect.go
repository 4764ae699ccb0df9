package mysql

import (
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

var reserved = database.KeywordSet(
	"CHANGE", "DATABASE", "DIV", "DUAL", "ENCLOSED", "EXPLAIN", "FULLTEXT", "IF", "IGNORE",
	"INTERVAL", "KEYS", "KILL", "LOAD", "LOCK", "MATCH", "MOD", "RANGE", "RANK", "READ",
	"REGEXP", "RENAME", "REPLACE", "SCHEMA", "SHOW", "SPATIAL", "STATUS", "TABLES", "USE",
)

// Dialect generates MySQL DDL. Column comments are declared inline, so a comment change is
// applied by re-declaring the column.
type Dialect struct {
	database.Standard
}

// NewDialect returns the MySQL DDL generator.
func NewDialect() Dialect {
	return Dialect{Standard: database.Standard{
		Quoter:              database.Quoter{Open: "`", Close: "`", Case: database.PreserveCase, Reserved: reserved},
		AutoIncrementClause: "AUTO_INCREMENT",
		QuoteString:         database.QuoteBackslashLiteral,
	}}
}

func (d Dialect) Name() string                     { return "mysql" }
func (d Dialect) Family() database.Family          { return database.FamilyMySQL }
func (d Dialect) SupportsAutoIncrement() bool      { return true }
func (d Dialect) SupportsSequence() bool           { return false }
func (d Dialect) AlterColumnIncludesComment() bool { return true }
func (d Dialect) TableScopedIndexNames() bool      { return true }

// ColumnDefinition renders the column with its inline COMMENT clause.
func (d Dialect) ColumnDefinition(t *schema.Table, c *schema.Column) string {
	def := d.Standard.ColumnDefinition(t, c)
	if c.Comment != "" {
		def += " COMMENT " + d.Literal(c.Comment)
	}
	return def
}

// PrimaryKeyList merges the partition columns into the primary key, partition columns first.
// MySQL rejects partitioned tables whose partition columns are not part of the key.
func (d Dialect) PrimaryKeyList(t *schema.Table) string {
	var names []string
	seen := make(map[string]bool)
	add := func(list []string) {
		for _, n := range list {
			key := strings.ToLower(strings.TrimSpace(n))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, strings.TrimSpace(n))
		}
	}
	if t.Partition != nil {
		add(t.Partition.Fields())
	}
	add(t.ResolvedPrimaryKey())
	return database.QuoteAll(d, names, ", ")
}

// CreateTable renders CREATE TABLE followed by the table options and the partition clause.
func (d Dialect) CreateTable(t *schema.Table, options string) string {
	defs := d.ColumnDefinitions(t, d.ColumnDefinition)
	if pk := d.PrimaryKeyList(t); pk != "" {
		defs = append(defs, "PRIMARY KEY ("+pk+")")
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE " + d.TableName(t) + " (" + strings.Join(defs, ", ") + ")")
	if t.Comment != "" {
		b.WriteString(" COMMENT " + d.Literal(t.Comment))
	}
	if options != "" {
		b.WriteString(" " + options)
	}
	if t.Partition != nil {
		b.WriteString("\n" + t.Partition.SQL(true))
	}
	return b.String()
}

func (d Dialect) CreateTableSQL(t *schema.Table) []schema.Statement {
	return []schema.Statement{schema.NewStatement(d.CreateTable(t, ""))}
}

func (d Dialect) AddColumnSQL(t *schema.Table, c *schema.Column) []schema.Statement {
	return []schema.Statement{
		schema.NewStatement("ALTER TABLE " + d.TableName(t) + " ADD " + d.ColumnDefinition(t, c)),
	}
}

// AlterColumnSQL re-declares the whole column with CHANGE COLUMN, renaming it when old
// carries another name.
func (d Dialect) AlterColumnSQL(t *schema.Table, c, old *schema.Column) []schema.Statement {
	oldName := c.Name
	if old != nil {
		oldName = old.Name
	}
	return []schema.Statement{schema.NewStatement("ALTER TABLE " + d.TableName(t) + " CHANGE COLUMN " +
		d.QuoteIdentifier(oldName) + " " + d.ColumnDefinition(t, c))}
}

func (d Dialect) AddIndexSQL(t *schema.Table, c *schema.Column, indexName string) schema.Statement {
	sql := d.BaseIndexSQL(t, c, indexName)
	if c.EffectiveIndexType() == schema.IndexFulltext {
		return schema.IgnorableStatement(sql + " WITH PARSER ngram")
	}
	return schema.NewStatement(sql)
}

func (d Dialect) DropIndexSQL(t *schema.Table, indexName string) schema.Statement {
	return schema.IgnorableStatement("DROP INDEX " + d.QuoteIdentifier(indexName) + " ON " + d.TableName(t))
}

func (d Dialect) TableCommentSQL(t *schema.Table) schema.Statement {
	return schema.IgnorableStatement("ALTER TABLE " + d.TableName(t) + " COMMENT = " + d.Literal(t.Comment))
}

func (d Dialect) ColumnCommentSQL(t *schema.Table, c *schema.Column) schema.Statement {
	return d.AlterColumnSQL(t, c, nil)[0]
}
