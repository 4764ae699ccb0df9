package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func TestNamespaceWithRequested(t *testing.T) {
	tests := []struct {
		name      string
		current   Namespace
		requested string
		want      Namespace
	}{
		{"no request keeps current", Namespace{Catalog: valid("shop")}, "", Namespace{Catalog: valid("shop")}},
		{"schema dimension wins", Namespace{Catalog: valid("db"), Schema: valid("public")}, "sales", Namespace{Catalog: valid("db"), Schema: valid("sales")}},
		{"catalog only", Namespace{Catalog: valid("shop")}, "archive", Namespace{Catalog: valid("archive")}},
		{"neither set", Namespace{}, "app", Namespace{Schema: valid("app")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.current.withRequested(tt.requested)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "public", Namespace{Catalog: valid("db"), Schema: valid("public")}.Name())
	assert.Equal(t, "db", Namespace{Catalog: valid("db")}.Name())
}

func TestIntrospectorNormalizesNames(t *testing.T) {
	handler := newMockHandler("mock", 10)
	var gotTable string
	handler.readTableFn = func(ns Namespace, table string) (*schema.Table, error) {
		gotTable = table
		return &schema.Table{Name: table, Comment: "orders"}, nil
	}
	intro := NewIntrospector(nil, handler)

	live, err := intro.TableExists(context.Background(), "orders", "sales")
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, "ORDERS", gotTable)
	assert.Equal(t, "sales", live.Schema)
	assert.Equal(t, valid("SALES"), handler.namespaces[0].Schema)

	_, err = intro.TableExists(context.Background(), `"MixedCase"`, "")
	require.NoError(t, err)
	assert.Equal(t, "MIXEDCASE", gotTable)
	assert.Equal(t, valid("PUBLIC"), handler.namespaces[1].Schema)

	assert.Equal(t, 1, handler.currentNamespaceCalls, "current namespace is cached")
}

func TestIntrospectorMissingNamespace(t *testing.T) {
	handler := newMockHandler("mock", 10)
	handler.currentNamespaceFn = func() (Namespace, error) { return Namespace{}, nil }
	intro := NewIntrospector(nil, handler)

	_, err := intro.ListColumns(context.Background(), "t", "")
	assert.Error(t, err)

	handler.currentNamespaceFn = func() (Namespace, error) { return Namespace{}, errors.New("boom") }
	intro = NewIntrospector(nil, handler)
	_, err = intro.ListIndexes(context.Background(), "t", "")
	assert.ErrorContains(t, err, "boom")
}

func TestDescribeColumnsFoldsIndexes(t *testing.T) {
	handler := newMockHandler("mock", 10)
	handler.readColumnsFn = func(ns Namespace, table string) ([]schema.Column, error) {
		return []schema.Column{
			{Name: "ID", DataType: "BIGINT"},
			{Name: "EMAIL", DataType: "VARCHAR", Length: schema.Int(120)},
			{Name: "NAME", DataType: "VARCHAR", Length: schema.Int(64)},
		}, nil
	}
	handler.readIndexesFn = func(ns Namespace, table string) ([]schema.Index, error) {
		return []schema.Index{
			{Name: "PK_USERS", Columns: []string{"ID"}, Type: schema.IndexUnique},
			{Name: "UK_EMAIL", Columns: []string{"EMAIL"}, Type: schema.IndexUnique},
			{Name: "IDX_EMAIL_2", Columns: []string{"EMAIL"}, Type: schema.IndexNormal},
			{Name: "IDX_NAME_EMAIL", Columns: []string{"NAME", "EMAIL"}, Type: schema.IndexNormal},
		}, nil
	}
	intro := NewIntrospector(nil, handler)

	declared := &schema.Table{Name: "users", PrimaryKey: []string{"id"}}
	cols, err := intro.DescribeColumns(context.Background(), declared)
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.False(t, cols[0].Index, "primary key index is not folded")
	assert.True(t, cols[1].Index)
	assert.Equal(t, "UK_EMAIL", cols[1].IndexName)
	assert.Equal(t, schema.IndexUnique, cols[1].IndexType)
	assert.False(t, cols[2].Index, "composite index is not folded")
}

func TestDescribeColumnsMissingTable(t *testing.T) {
	handler := newMockHandler("mock", 10)
	handler.readIndexesFn = func(ns Namespace, table string) ([]schema.Index, error) {
		t.Fatal("indexes must not be read for a table without columns")
		return nil, nil
	}
	cols, err := NewIntrospector(nil, handler).DescribeColumns(context.Background(), &schema.Table{Name: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestDatabaseProductName(t *testing.T) {
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDb.Close()

	mock.ExpectQuery("SELECT product").WillReturnRows(sqlmock.NewRows([]string{"p"}).AddRow("H2"))
	name, err := NewIntrospector(mockDb, newMockHandler("mock", 10)).DatabaseProductName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "H2", name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
