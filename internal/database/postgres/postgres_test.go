package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

func texts(stmts []schema.Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Text()
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func publicNS() database.Namespace {
	return database.Namespace{
		Catalog: sql.NullString{String: "app", Valid: true},
		Schema:  sql.NullString{String: "public", Valid: true},
	}
}

func TestPostgresQuoteIdentifier(t *testing.T) {
	d := NewDialect()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Simple name", "mytable", "mytable"},
		{"Name with spaces", "my table", `"my table"`},
		{"Name with quotes", `my"table`, `"my""table"`},
		{"Keyword", "user", `"user"`},
		{"Dialect keyword", "returning", `"returning"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.QuoteIdentifier(tt.in); got != tt.want {
				t.Errorf("QuoteIdentifier() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := d.NormalizeIdentifierCase("Orders"); got != "orders" {
		t.Errorf("NormalizeIdentifierCase() = %v, want orders", got)
	}
}

func TestPostgresCreateTable(t *testing.T) {
	table := &schema.Table{
		Name:         "orders",
		Schema:       "sales",
		Comment:      "it's an order",
		PrimaryKey:   []string{"id"},
		KeyGenerator: schema.KeyAutoIncrement,
		Columns: []schema.Column{
			{Name: "id", DataType: "BIGINT", NotNull: schema.Bool(true)},
			{Name: "note", DataType: "TEXT", Comment: "free text"},
		},
	}
	got := texts(NewDialect().CreateTableSQL(table))
	want := []string{
		"CREATE TABLE sales.orders (id BIGINT NOT NULL GENERATED BY DEFAULT AS IDENTITY, note TEXT, PRIMARY KEY ( id ))",
		"COMMENT ON TABLE sales.orders IS 'it''s an order'",
		"COMMENT ON COLUMN sales.orders.note IS 'free text'",
	}
	if !equal(got, want) {
		t.Errorf("CreateTableSQL() = %q, want %q", got, want)
	}
}

func TestPostgresRenameTable(t *testing.T) {
	d := NewDialect()
	newTable := &schema.Table{Name: "orders", Schema: "sales"}
	oldTable := &schema.Table{Name: "order_v1"}
	if got, want := d.RenameTableSQL(oldTable, newTable).Text(), "ALTER TABLE sales.order_v1 RENAME TO orders"; got != want {
		t.Errorf("RenameTableSQL() = %q, want %q", got, want)
	}
}

func TestPostgresAlterColumn(t *testing.T) {
	d := NewDialect()
	table := &schema.Table{Name: "orders"}

	tests := []struct {
		name string
		c    *schema.Column
		old  *schema.Column
		want []string
	}{
		{
			name: "type change",
			c:    &schema.Column{Name: "qty", DataType: "BIGINT"},
			old:  &schema.Column{Name: "qty", DataType: "INTEGER"},
			want: []string{"ALTER TABLE orders ALTER COLUMN qty TYPE BIGINT USING qty::BIGINT"},
		},
		{
			name: "default set and type change",
			c:    &schema.Column{Name: "state", DataType: "VARCHAR", Length: schema.Int(20), DefaultValue: "'new'"},
			old:  &schema.Column{Name: "state", DataType: "VARCHAR", Length: schema.Int(10)},
			want: []string{"ALTER TABLE orders ALTER COLUMN state TYPE VARCHAR(20) USING state::VARCHAR(20), ALTER COLUMN state SET DEFAULT 'new'"},
		},
		{
			name: "default dropped",
			c:    &schema.Column{Name: "state", DataType: "TEXT"},
			old:  &schema.Column{Name: "state", DataType: "text", DefaultValue: "new"},
			want: []string{"ALTER TABLE orders ALTER COLUMN state DROP DEFAULT"},
		},
		{
			name: "rename only",
			c:    &schema.Column{Name: "state", DataType: "TEXT"},
			old:  &schema.Column{Name: "status", DataType: "TEXT"},
			want: []string{"ALTER TABLE orders RENAME COLUMN status TO state"},
		},
		{
			name: "rename and type change",
			c:    &schema.Column{Name: "state", DataType: "TEXT"},
			old:  &schema.Column{Name: "status", DataType: "VARCHAR", Length: schema.Int(8)},
			want: []string{
				"ALTER TABLE orders RENAME COLUMN status TO state",
				"ALTER TABLE orders ALTER COLUMN state TYPE TEXT USING state::TEXT",
			},
		},
		{
			name: "not null added",
			c:    &schema.Column{Name: "qty", DataType: "INTEGER", NotNull: schema.Bool(true)},
			old:  &schema.Column{Name: "qty", DataType: "INT4", NotNull: schema.Bool(false)},
			want: []string{"ALTER TABLE orders ALTER COLUMN qty SET NOT NULL"},
		},
		{
			name: "unchanged",
			c:    &schema.Column{Name: "qty", DataType: "INTEGER"},
			old:  &schema.Column{Name: "qty", DataType: "int"},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(d.AlterColumnSQL(table, tt.c, tt.old))
			if !equal(got, tt.want) {
				t.Errorf("AlterColumnSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPostgresAddIndex(t *testing.T) {
	d := NewDialect()
	table := &schema.Table{Name: "docs", Schema: "kb"}

	tests := []struct {
		name string
		c    *schema.Column
		want string
	}{
		{"vector", &schema.Column{Name: "embedding", DataType: "VECTOR"},
			"CREATE INDEX idx ON kb.docs USING hnsw (embedding vector_l2_ops) WITH ( m = 16, ef_construction = 64, ef_search = 10 )"},
		{"fulltext", &schema.Column{Name: "body", DataType: "TEXT", IndexType: schema.IndexFulltext},
			"CREATE INDEX idx ON kb.docs USING gin(to_tsvector('simple', body ))"},
		{"unique", &schema.Column{Name: "slug", DataType: "TEXT", IndexType: schema.IndexUnique},
			"CREATE UNIQUE INDEX idx ON kb.docs ( slug )"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.AddIndexSQL(table, tt.c, "idx").Text(); got != tt.want {
				t.Errorf("AddIndexSQL() = %q, want %q", got, tt.want)
			}
		})
	}

	drop := d.DropIndexSQL(table, "idx")
	if drop.Text() != "DROP INDEX kb.idx" || !drop.Ignorable() {
		t.Errorf("DropIndexSQL() = %v", drop)
	}
}

func TestPostgresCommentLiteral(t *testing.T) {
	d := NewDialect()
	table := &schema.Table{Name: "t", Comment: `path C:\tmp`}
	if got, want := d.TableCommentSQL(table).Text(), `COMMENT ON TABLE t IS  E'path C:\\tmp'`; got != want {
		t.Errorf("TableCommentSQL() = %q, want %q", got, want)
	}
}

func TestPostgresReadColumns(t *testing.T) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDb.Close()

	rows := sqlmock.NewRows([]string{"column_name", "data_type", "character_maximum_length", "numeric_precision",
		"numeric_scale", "is_nullable", "column_default", "is_identity", "col_description"}).
		AddRow("id", "bigint", nil, 64, 0, "NO", nil, "YES", nil).
		AddRow("legacy_id", "integer", nil, 32, 0, "NO", "nextval('legacy_seq'::regclass)", "NO", nil).
		AddRow("status", "character varying", 16, nil, nil, "YES", "'new'::character varying", "NO", "order state")
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns c")).
		WithArgs("public", "orders").WillReturnRows(rows)

	cols, err := Catalog{}.ReadColumns(context.Background(), mockDb, publicNS(), "orders")
	if err != nil {
		t.Fatalf("ReadColumns() unexpected error: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("ReadColumns() returned %d columns, want 3", len(cols))
	}
	if !cols[0].AutoIncrement || cols[0].DefaultValue != "" {
		t.Errorf("identity column = %+v", cols[0])
	}
	if !cols[1].AutoIncrement || cols[1].DefaultValue != "" {
		t.Errorf("serial column = %+v", cols[1])
	}
	status := cols[2]
	if status.DefaultValue != "'new'::character varying" || status.Comment != "order state" || *status.Length != 16 || status.IsNotNull() {
		t.Errorf("status column = %+v", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresReadIndexes(t *testing.T) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDb.Close()

	rows := sqlmock.NewRows([]string{"relname", "indisunique", "amname", "attname"}).
		AddRow("idx_body", false, "gin", "body").
		AddRow("idx_embedding", false, "hnsw", "embedding").
		AddRow("uk_slug", true, "btree", "slug")
	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_catalog.pg_index ix")).
		WithArgs("public", "docs").WillReturnRows(rows)

	indexes, err := Catalog{}.ReadIndexes(context.Background(), mockDb, publicNS(), "docs")
	if err != nil {
		t.Fatalf("ReadIndexes() unexpected error: %v", err)
	}
	want := []schema.IndexType{schema.IndexFulltext, schema.IndexVector, schema.IndexUnique}
	if len(indexes) != len(want) {
		t.Fatalf("ReadIndexes() returned %d indexes, want %d", len(indexes), len(want))
	}
	for i, typ := range want {
		if indexes[i].Type != typ {
			t.Errorf("index %s type = %s, want %s", indexes[i].Name, indexes[i].Type, typ)
		}
	}
}

func TestPostgresReadTable(t *testing.T) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDb.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_catalog.pg_class c")).WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "obj_description"}).AddRow("orders", nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_catalog.pg_class c")).WithArgs("public", "broken").
		WillReturnError(errors.New("permission denied"))

	table, err := Catalog{}.ReadTable(context.Background(), mockDb, publicNS(), "orders")
	if err != nil || table == nil || table.Comment != "" || table.Schema != "public" {
		t.Errorf("ReadTable(orders) = %+v, %v", table, err)
	}
	if _, err := (Catalog{}).ReadTable(context.Background(), mockDb, publicNS(), "broken"); err == nil {
		t.Error("ReadTable(broken) expected error")
	}
}

func TestPostgresCurrentNamespace(t *testing.T) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDb.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_database(), current_schema()")).
		WillReturnRows(sqlmock.NewRows([]string{"db", "schema"}).AddRow("app", "public"))
	ns, err := Catalog{}.CurrentNamespace(context.Background(), mockDb)
	if err != nil {
		t.Fatalf("CurrentNamespace() unexpected error: %v", err)
	}
	if ns.Name() != "public" || ns.Catalog.String != "app" {
		t.Errorf("CurrentNamespace() = %+v", ns)
	}
}

func TestHandlerMatches(t *testing.T) {
	h := New()
	if !h.Matches("PostgreSQL 16.2 on x86_64-pc-linux-gnu") {
		t.Error("Matches(PostgreSQL) = false")
	}
	if h.Matches("MySQL 8.0") {
		t.Error("Matches(MySQL) = true")
	}
}
