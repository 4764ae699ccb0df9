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
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// Queryer is the read side of *sql.DB and *sql.Conn.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Namespace is the (catalog, schema) pair a connection currently resolves unqualified names in.
// Databases that expose a single namespace dimension leave the other one NULL.
type Namespace struct {
	Catalog sql.NullString
	Schema  sql.NullString
}

// Name returns the schema when set, otherwise the catalog.
func (n Namespace) Name() string {
	if n.Schema.Valid {
		return n.Schema.String
	}
	return n.Catalog.String
}

// withRequested substitutes a requested schema into whichever dimension is non-null, schema first.
func (n Namespace) withRequested(requested string) Namespace {
	switch {
	case requested == "":
	case n.Schema.Valid:
		n.Schema.String = requested
	case n.Catalog.Valid:
		n.Catalog.String = requested
	default:
		n.Schema = sql.NullString{String: requested, Valid: true}
	}
	return n
}

// CatalogReader reads one database's catalog within a resolved namespace.
type CatalogReader interface {
	ProductName(ctx context.Context, q Queryer) (string, error)
	CurrentNamespace(ctx context.Context, q Queryer) (Namespace, error)
	// ReadTable returns nil without error when the table does not exist.
	ReadTable(ctx context.Context, q Queryer, ns Namespace, table string) (*schema.Table, error)
	ReadColumns(ctx context.Context, q Queryer, ns Namespace, table string) ([]schema.Column, error)
	ReadIndexes(ctx context.Context, q Queryer, ns Namespace, table string) ([]schema.Index, error)
}

// Introspector reads live table metadata through a dialect's catalog reader.
type Introspector struct {
	q       Queryer
	reader  CatalogReader
	dialect Dialect

	mu      sync.Mutex
	current *Namespace
}

// NewIntrospector returns an introspector over q for the handler's database.
func NewIntrospector(q Queryer, handler DialectHandler) *Introspector {
	return &Introspector{q: q, reader: handler, dialect: handler}
}

// DatabaseProductName returns the product name reported by the server.
func (i *Introspector) DatabaseProductName(ctx context.Context) (string, error) {
	name, err := i.reader.ProductName(ctx, i.q)
	if err != nil {
		return "", fmt.Errorf("error reading database product name: %w", err)
	}
	return name, nil
}

// TableExists returns the live table, carrying its comment, or nil when it does not exist.
func (i *Introspector) TableExists(ctx context.Context, name, schemaName string) (*schema.Table, error) {
	ns, err := i.namespace(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	t, err := i.reader.ReadTable(ctx, i.q, ns, i.catalogName(name))
	if err != nil {
		return nil, fmt.Errorf("error reading table %s: %w", name, err)
	}
	if t != nil && t.Schema == "" {
		t.Schema = schemaName
	}
	return t, nil
}

// ListColumns returns the live columns of a table in ordinal order.
func (i *Introspector) ListColumns(ctx context.Context, name, schemaName string) ([]schema.Column, error) {
	ns, err := i.namespace(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	cols, err := i.reader.ReadColumns(ctx, i.q, ns, i.catalogName(name))
	if err != nil {
		return nil, fmt.Errorf("error reading columns of %s: %w", name, err)
	}
	return cols, nil
}

// ListIndexes returns the live indexes of a table with their columns in index order.
func (i *Introspector) ListIndexes(ctx context.Context, name, schemaName string) ([]schema.Index, error) {
	ns, err := i.namespace(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	idx, err := i.reader.ReadIndexes(ctx, i.q, ns, i.catalogName(name))
	if err != nil {
		return nil, fmt.Errorf("error reading indexes of %s: %w", name, err)
	}
	return idx, nil
}

// DescribeColumns returns the live columns of t with single-column indexes folded onto them.
// Indexes on primary key columns are skipped. When a column carries several single-column
// indexes the first one reported wins.
func (i *Introspector) DescribeColumns(ctx context.Context, t *schema.Table) ([]schema.Column, error) {
	cols, err := i.ListColumns(ctx, t.Name, t.Schema)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return cols, nil
	}
	indexes, err := i.ListIndexes(ctx, t.Name, t.Schema)
	if err != nil {
		return nil, err
	}
	return CorrelateIndexes(t, cols, indexes), nil
}

// CorrelateIndexes copies single-column index information onto the matching columns.
func CorrelateIndexes(t *schema.Table, cols []schema.Column, indexes []schema.Index) []schema.Column {
	byColumn := make(map[string]schema.Index)
	for _, idx := range indexes {
		if len(idx.Columns) != 1 {
			continue
		}
		key := strings.ToLower(idx.Columns[0])
		if _, ok := byColumn[key]; !ok {
			byColumn[key] = idx
		}
	}

	out := make([]schema.Column, len(cols))
	for n, c := range cols {
		if idx, ok := byColumn[strings.ToLower(c.Name)]; ok && !t.IsPrimaryKey(c.Name) {
			c.Index = true
			c.IndexName = idx.Name
			c.IndexType = idx.Type
		}
		out[n] = c
	}
	return out
}

func (i *Introspector) catalogName(name string) string {
	return i.dialect.NormalizeIdentifierCase(i.dialect.UnquoteIdentifier(name))
}

// namespace returns the connection's current namespace with the requested schema substituted in.
func (i *Introspector) namespace(ctx context.Context, requested string) (Namespace, error) {
	current, err := i.currentNamespace(ctx)
	if err != nil {
		return Namespace{}, err
	}
	if requested != "" {
		requested = i.catalogName(requested)
	}
	ns := current.withRequested(requested)
	if ns.Name() == "" {
		return Namespace{}, fmt.Errorf("connection reports neither a current catalog nor a current schema")
	}
	return ns, nil
}

func (i *Introspector) currentNamespace(ctx context.Context) (Namespace, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.current != nil {
		return *i.current, nil
	}
	ns, err := i.reader.CurrentNamespace(ctx, i.q)
	if err != nil {
		return Namespace{}, fmt.Errorf("error reading current namespace: %w", err)
	}
	i.current = &ns
	return ns, nil
}
