package reconciler

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/h2"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/mysql"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/oracle"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/postgres"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

type mockIntrospector struct {
	mock.Mock
}

func (m *mockIntrospector) TableExists(ctx context.Context, name, schemaName string) (*schema.Table, error) {
	args := m.Called(name, schemaName)
	t, _ := args.Get(0).(*schema.Table)
	return t, args.Error(1)
}

func (m *mockIntrospector) DescribeColumns(ctx context.Context, t *schema.Table) ([]schema.Column, error) {
	args := m.Called(t.Name)
	cols, _ := args.Get(0).([]schema.Column)
	return cols, args.Error(1)
}

var fastRetry = RetryOptions{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 2}

func newService(d database.Dialect, in Introspector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewService(d, in, logger, WithRetryOptions(fastRetry))
}

// declaredT is t(id VARCHAR(32) PK, name VARCHAR(200) NOT NULL, age NUMERIC(6,0) INDEXED).
func declaredT() *schema.Table {
	return &schema.Table{
		Name:       "t",
		PrimaryKey: []string{"id"},
		Columns: []schema.Column{
			{Name: "id", DataType: "VARCHAR", Length: schema.Int(32)},
			{Name: "name", DataType: "VARCHAR", Length: schema.Int(200), NotNull: schema.Bool(true)},
			{Name: "age", DataType: "NUMERIC", Precision: schema.Int(6), Scale: schema.Int(0), Index: true},
		},
	}
}

// liveT is declaredT as the MySQL catalog reports it after creation.
func liveT() []schema.Column {
	return []schema.Column{
		{Name: "id", DataType: "varchar", Length: schema.Int(32), NotNull: schema.Bool(true)},
		{Name: "name", DataType: "varchar", Length: schema.Int(200), NotNull: schema.Bool(true)},
		{Name: "age", DataType: "decimal", Precision: schema.Int(6), Scale: schema.Int(0), NotNull: schema.Bool(false),
			Index: true, IndexName: "idx_age", IndexType: schema.IndexNormal},
	}
}

func expectExisting(m *mockIntrospector, live []schema.Column) {
	m.On("TableExists", "t", "").Return(&schema.Table{Name: "t"}, nil)
	m.On("DescribeColumns", "t").Return(live, nil)
}

func TestReconcileNewTable(t *testing.T) {
	m := &mockIntrospector{}
	m.On("TableExists", "t", "").Return(nil, nil)

	plan, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declaredT())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE t (id VARCHAR(32), name VARCHAR(200) NOT NULL, age NUMERIC(6,0), PRIMARY KEY (id))",
		"CREATE INDEX idx_age ON t ( age )",
	}, plan.Texts())
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "DescribeColumns", mock.Anything)
}

func TestReconcileInSyncIsEmpty(t *testing.T) {
	m := &mockIntrospector{}
	expectExisting(m, liveT())

	plan, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declaredT())
	require.NoError(t, err)
	assert.True(t, plan.Empty(), "unexpected statements: %v", plan.Texts())
	m.AssertExpectations(t)
}

// TestReconcileFoldedCatalogNames covers catalogs that report unquoted names folded to upper
// or lower case. A mixed-case declared name must still match its live column.
func TestReconcileFoldedCatalogNames(t *testing.T) {
	dialects := []struct {
		name    string
		dialect database.Dialect
		live    []schema.Column
	}{
		{
			name:    "oracle",
			dialect: oracle.NewDialect(),
			live: []schema.Column{
				{Name: "ID", DataType: "VARCHAR2", Length: schema.Int(32), NotNull: schema.Bool(true)},
				{Name: "USERNAME", DataType: "VARCHAR2", Length: schema.Int(200), NotNull: schema.Bool(true)},
			},
		},
		{
			name:    "h2",
			dialect: h2.NewDialect(),
			live: []schema.Column{
				{Name: "ID", DataType: "CHARACTER VARYING", Length: schema.Int(32), NotNull: schema.Bool(true)},
				{Name: "USERNAME", DataType: "CHARACTER VARYING", Length: schema.Int(200), NotNull: schema.Bool(true)},
			},
		},
		{
			name:    "postgres",
			dialect: postgres.NewDialect(),
			live: []schema.Column{
				{Name: "id", DataType: "character varying", Length: schema.Int(32), NotNull: schema.Bool(true)},
				{Name: "username", DataType: "character varying", Length: schema.Int(200), NotNull: schema.Bool(true)},
			},
		},
	}
	declared := func() *schema.Table {
		return &schema.Table{
			Name:       "t",
			PrimaryKey: []string{"id"},
			Columns: []schema.Column{
				{Name: "id", DataType: "VARCHAR", Length: schema.Int(32)},
				{Name: "userName", DataType: "VARCHAR", Length: schema.Int(200), NotNull: schema.Bool(true)},
			},
		}
	}
	renames := func(texts []string) int {
		n := 0
		for _, s := range texts {
			if strings.Contains(s, "RENAME") {
				n++
			}
		}
		return n
	}

	for _, d := range dialects {
		t.Run(d.name, func(t *testing.T) {
			t.Run("in sync", func(t *testing.T) {
				m := &mockIntrospector{}
				expectExisting(m, d.live)

				plan, err := newService(d.dialect, m, nil).Reconcile(context.Background(), declared())
				require.NoError(t, err)
				assert.True(t, plan.Empty(), "unexpected statements: %v", plan.Texts())
			})

			t.Run("type change", func(t *testing.T) {
				m := &mockIntrospector{}
				expectExisting(m, d.live)
				table := declared()
				table.Columns[1].Length = schema.Int(250)

				plan, err := newService(d.dialect, m, nil).Reconcile(context.Background(), table)
				require.NoError(t, err)
				texts := plan.Texts()
				require.Len(t, texts, 1)
				assert.Zero(t, renames(texts), "unexpected rename: %v", texts)
				assert.Contains(t, texts[0], "250")
			})

			t.Run("rename through old name", func(t *testing.T) {
				m := &mockIntrospector{}
				expectExisting(m, d.live)
				table := declared()
				table.Columns[1].Name = "login"
				table.Columns[1].OldNames = []string{"userName"}

				plan, err := newService(d.dialect, m, nil).Reconcile(context.Background(), table)
				require.NoError(t, err)
				texts := plan.Texts()
				require.Len(t, texts, 1)
				assert.Equal(t, 1, renames(texts))
				assert.Contains(t, strings.ToLower(texts[0]), "login")
			})
		})
	}
}

func TestReconcileAddIndexedColumn(t *testing.T) {
	m := &mockIntrospector{}
	expectExisting(m, liveT())

	declared := declaredT()
	declared.Columns = append(declared.Columns, schema.Column{Name: "email", DataType: "VARCHAR", Length: schema.Int(100), Index: true})

	plan, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declared)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ALTER TABLE t ADD email VARCHAR(100)",
		"CREATE INDEX idx_email ON t ( email )",
	}, plan.Texts())
}

func TestReconcileRenameTable(t *testing.T) {
	m := &mockIntrospector{}
	m.On("TableExists", "t", "").Return(nil, nil)
	m.On("TableExists", "legacy", "").Return(nil, nil)
	m.On("TableExists", "t_old", "").Return(&schema.Table{Name: "t_old"}, nil)
	m.On("DescribeColumns", "t_old").Return(liveT(), nil)

	declared := declaredT()
	declared.OldNames = []string{"legacy", "t_old"}

	plan, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declared)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER TABLE t_old RENAME TO t"}, plan.Texts())
	m.AssertExpectations(t)
}

func TestReconcileCommentOnly(t *testing.T) {
	tests := []struct {
		name    string
		dialect database.Dialect
		want    []string
	}{
		{
			name:    "folded into alter",
			dialect: mysql.NewDialect(),
			want:    []string{"ALTER TABLE t CHANGE COLUMN name name VARCHAR(200) NOT NULL COMMENT 'display name'"},
		},
		{
			name:    "separate comment statement",
			dialect: postgres.NewDialect(),
			want:    []string{"COMMENT ON COLUMN t.name IS 'display name'"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockIntrospector{}
			expectExisting(m, liveT())
			declared := declaredT()
			declared.Columns[1].Comment = "display name"

			plan, err := newService(tt.dialect, m, nil).Reconcile(context.Background(), declared)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Texts())
		})
	}
}

func TestReconcileTableComment(t *testing.T) {
	m := &mockIntrospector{}
	m.On("TableExists", "t", "").Return(&schema.Table{Name: "t", Comment: "old"}, nil)
	m.On("DescribeColumns", "t").Return(liveT(), nil)

	declared := declaredT()
	declared.Comment = "people"
	plan, err := newService(postgres.NewDialect(), m, nil).Reconcile(context.Background(), declared)
	require.NoError(t, err)
	assert.Equal(t, []string{"COMMENT ON TABLE t IS 'people'"}, plan.Texts())

	declared.DisableAlterComment = true
	plan, err = newService(postgres.NewDialect(), m, nil).Reconcile(context.Background(), declared)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestReconcileColumnStrategies(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *schema.Column)
		want   []string
	}{
		{
			name:   "alter widens",
			modify: func(c *schema.Column) { c.Length = schema.Int(250) },
			want:   []string{"ALTER TABLE t CHANGE COLUMN name name VARCHAR(250) NOT NULL"},
		},
		{
			name: "rename through old name",
			modify: func(c *schema.Column) {
				c.Name = "full_name"
				c.OldNames = []string{"name"}
			},
			want: []string{"ALTER TABLE t CHANGE COLUMN name full_name VARCHAR(200) NOT NULL"},
		},
		{
			name:   "drop",
			modify: func(c *schema.Column) { c.Strategy = schema.DropColumn },
			want:   []string{"ALTER TABLE t DROP name"},
		},
		{
			name: "drop skipped after rename",
			modify: func(c *schema.Column) {
				c.Name = "full_name"
				c.OldNames = []string{"name"}
				c.Strategy = schema.DropColumn
			},
		},
		{
			name: "drop and recreate",
			modify: func(c *schema.Column) {
				c.Strategy = schema.DropAndRecreate
				c.Length = schema.Int(50)
			},
			want: []string{
				"ALTER TABLE t DROP name",
				"ALTER TABLE t ADD name VARCHAR(50) NOT NULL",
			},
		},
		{
			name: "drop and recreate comment only",
			modify: func(c *schema.Column) {
				c.Strategy = schema.DropAndRecreate
				c.Comment = "display name"
			},
			want: []string{"ALTER TABLE t CHANGE COLUMN name name VARCHAR(200) NOT NULL COMMENT 'display name'"},
		},
		{
			name: "ignore",
			modify: func(c *schema.Column) {
				c.Strategy = schema.IgnoreColumn
				c.Length = schema.Int(10)
				c.Comment = "ignored"
			},
		},
		{
			name:   "unchanged",
			modify: func(c *schema.Column) {},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockIntrospector{}
			expectExisting(m, liveT())
			declared := declaredT()
			tt.modify(&declared.Columns[1])

			plan, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declared)
			require.NoError(t, err)
			assert.Equal(t, tt.want, nilIfEmpty(plan.Texts()))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestColumnChanged(t *testing.T) {
	base := schema.Column{Name: "n", DataType: "INTEGER"}
	tests := []struct {
		name    string
		c, old  schema.Column
		changed bool
	}{
		{"int synonyms", base, schema.Column{Name: "N", DataType: "int"}, false},
		{"user defined type", schema.Column{Name: "v", DataType: "VECTOR"}, schema.Column{Name: "v", DataType: "USER-DEFINED"}, false},
		{"scale nil is zero", schema.Column{Name: "n", DataType: "NUMERIC", Precision: schema.Int(6)},
			schema.Column{Name: "n", DataType: "NUMERIC", Precision: schema.Int(6), Scale: schema.Int(0)}, false},
		{"precision unset", schema.Column{Name: "n", DataType: "NUMERIC"},
			schema.Column{Name: "n", DataType: "NUMERIC", Precision: schema.Int(6), Scale: schema.Int(0)}, false},
		{"precision differs", schema.Column{Name: "n", DataType: "NUMERIC", Precision: schema.Int(8)},
			schema.Column{Name: "n", DataType: "NUMERIC", Precision: schema.Int(6)}, true},
		{"vector length one side", schema.Column{Name: "v", DataType: "VECTOR", VectorLength: schema.Int(3)},
			schema.Column{Name: "v", DataType: "VECTOR"}, false},
		{"vector length both sides", schema.Column{Name: "v", DataType: "VECTOR", VectorLength: schema.Int(3)},
			schema.Column{Name: "v", DataType: "VECTOR", VectorLength: schema.Int(4)}, true},
		{"not null unset", base, schema.Column{Name: "n", DataType: "INTEGER", NotNull: schema.Bool(true)}, false},
		{"not null differs", schema.Column{Name: "n", DataType: "INTEGER", NotNull: schema.Bool(false)},
			schema.Column{Name: "n", DataType: "INTEGER", NotNull: schema.Bool(true)}, true},
		{"quoted default", schema.Column{Name: "s", DataType: "VARCHAR", Length: schema.Int(4), DefaultValue: "'x'"},
			schema.Column{Name: "s", DataType: "VARCHAR", Length: schema.Int(4), DefaultValue: "'x'::character varying"}, false},
		{"default removed", base, schema.Column{Name: "n", DataType: "INTEGER", DefaultValue: "0"}, true},
		{"type differs", schema.Column{Name: "n", DataType: "TEXT"}, base, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.changed, columnChanged(&tt.c, &tt.old))
		})
	}
}

func TestReconcileIndexTransitions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *schema.Column)
		want   []string
		warns  int
	}{
		{
			name:   "index removed",
			modify: func(c *schema.Column) { c.Index = false },
			want:   []string{"DROP INDEX idx_age ON t"},
		},
		{
			name:   "normal to unique",
			modify: func(c *schema.Column) { c.IndexType = schema.IndexUnique },
			want:   []string{"DROP INDEX idx_age ON t", "CREATE UNIQUE INDEX idx_age ON t ( age )"},
		},
		{
			name:   "normal to fulltext is unsupported",
			modify: func(c *schema.Column) { c.IndexType = schema.IndexFulltext },
			warns:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			m := &mockIntrospector{}
			expectExisting(m, liveT())
			declared := declaredT()
			tt.modify(&declared.Columns[2])

			plan, err := newService(mysql.NewDialect(), m, zap.New(core)).Reconcile(context.Background(), declared)
			require.NoError(t, err)
			assert.Equal(t, tt.want, nilIfEmpty(plan.Texts()))
			assert.Equal(t, tt.warns, logs.FilterMessage("unsupported index change").Len())
		})
	}
}

func TestReconcileReportsOrphanColumns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := &mockIntrospector{}
	live := append(liveT(), schema.Column{Name: "nickname", DataType: "varchar", Length: schema.Int(20)})
	expectExisting(m, live)

	plan, err := newService(mysql.NewDialect(), m, zap.New(core)).Reconcile(context.Background(), declaredT())
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "undefined column 't.nickname'", logs.All()[0].Message)
}

func TestReconcileDisableAlterTable(t *testing.T) {
	m := &mockIntrospector{}
	m.On("TableExists", "t", "").Return(nil, nil)
	m.On("TableExists", "t_old", "").Return(&schema.Table{Name: "t_old"}, nil)

	declared := declaredT()
	declared.OldNames = []string{"t_old"}
	declared.DisableAlterTable = true
	declared.Columns[1].Length = schema.Int(10)

	plan, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declared)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER TABLE t_old RENAME TO t"}, plan.Texts())
	m.AssertNotCalled(t, "DescribeColumns", mock.Anything)
}

func TestReconcileInvalidDefinition(t *testing.T) {
	m := &mockIntrospector{}
	declared := declaredT()
	declared.PrimaryKey = []string{"missing"}

	_, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declared)
	var invalid *schema.ErrInvalidDefinition
	require.ErrorAs(t, err, &invalid)
	m.AssertNotCalled(t, "TableExists", mock.Anything, mock.Anything)
}

func TestReconcileRetriesLostConnections(t *testing.T) {
	m := &mockIntrospector{}
	m.On("TableExists", "t", "").Return(nil, driver.ErrBadConn).Once()
	m.On("TableExists", "t", "").Return(nil, nil).Once()

	plan, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declaredT())
	require.NoError(t, err)
	assert.False(t, plan.Empty())
	m.AssertNumberOfCalls(t, "TableExists", 2)
}

func TestReconcileDoesNotRetryQueryErrors(t *testing.T) {
	m := &mockIntrospector{}
	m.On("TableExists", "t", "").Return(&schema.Table{Name: "t"}, nil)
	m.On("DescribeColumns", "t").Return(nil, errors.New("permission denied"))

	_, err := newService(mysql.NewDialect(), m, nil).Reconcile(context.Background(), declaredT())
	var queryErr *ErrQueryExecution
	require.ErrorAs(t, err, &queryErr)
	assert.ErrorContains(t, err, "permission denied")
	m.AssertNumberOfCalls(t, "DescribeColumns", 1)
}

func TestReconcileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(mysql.NewDialect(), &mockIntrospector{}, nil).Reconcile(ctx, declaredT())
	var cancelled *ErrCancelled
	assert.ErrorAs(t, err, &cancelled)
}

func TestPrepare(t *testing.T) {
	s := NewService(postgres.NewDialect(), &mockIntrospector{}, nil, WithDefaultSchema("app"), WithDisableAlterComment(true))
	declared := &schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", Kind: schema.KindInt64},
			{Name: "customer_ref", Kind: schema.KindString, Length: schema.Int(36), Index: true},
			{Name: strings.Repeat("x", 70), Kind: schema.KindBool, Index: true},
		},
	}

	prepared, err := s.Prepare(declared)
	require.NoError(t, err)
	assert.Equal(t, "app", prepared.Schema)
	assert.True(t, prepared.DisableAlterComment)
	assert.Equal(t, "BIGINT", prepared.Columns[0].DataType)
	assert.Equal(t, "VARCHAR(36)", prepared.Columns[1].TypeDefinition())
	assert.Equal(t, "idx_orders_customer_ref", prepared.Columns[1].IndexName)
	long := prepared.Columns[2].IndexName
	assert.Len(t, long, 64)
	assert.True(t, strings.HasPrefix(long, "idx_orders_xxx"))

	assert.Empty(t, declared.Schema, "declared table must not be modified")
	assert.Empty(t, declared.Columns[0].DataType)
}

func TestIndexNameTableScoped(t *testing.T) {
	s := NewService(mysql.NewDialect(), &mockIntrospector{}, nil, WithIndexPrefix("ix_"))
	table := &schema.Table{Name: "orders"}
	assert.Equal(t, "ix_status", s.IndexName(table, &schema.Column{Name: "Status"}))
}
