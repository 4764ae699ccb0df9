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

// Package reconciler diffs a declared table against the live database and plans the DDL that
// brings the live table in line.
package reconciler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/typemap"
)

// Introspector is the catalog access the reconciler needs. *database.Introspector implements it.
type Introspector interface {
	TableExists(ctx context.Context, name, schemaName string) (*schema.Table, error)
	DescribeColumns(ctx context.Context, t *schema.Table) ([]schema.Column, error)
}

var _ Introspector = (*database.Introspector)(nil)

// Service plans DDL for declared tables. It holds no state between calls and may be shared by
// goroutines reconciling different tables.
type Service struct {
	dialect      database.Dialect
	introspector Introspector
	types        *typemap.Normalizer
	logger       *zap.Logger

	retry               RetryOptions
	defaultSchema       string
	indexPrefix         string
	disableAlterComment bool
}

// Option configures a Service.
type Option func(*Service)

func WithTypeNormalizer(nm *typemap.Normalizer) Option {
	return func(s *Service) { s.types = nm }
}

func WithRetryOptions(opts RetryOptions) Option {
	return func(s *Service) { s.retry = opts }
}

// WithDefaultSchema sets the schema used for declared tables that name none.
func WithDefaultSchema(name string) Option {
	return func(s *Service) { s.defaultSchema = name }
}

// WithIndexPrefix sets the prefix of generated index names.
func WithIndexPrefix(prefix string) Option {
	return func(s *Service) { s.indexPrefix = prefix }
}

// WithDisableAlterComment stops comment synchronisation for every table.
func WithDisableAlterComment(disable bool) Option {
	return func(s *Service) { s.disableAlterComment = disable }
}

// NewService returns a reconciler for one dialect.
func NewService(dialect database.Dialect, introspector Introspector, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		dialect:      dialect,
		introspector: introspector,
		types:        typemap.New(),
		logger:       logger,
		retry:        DefaultRetryOptions,
		indexPrefix:  "idx_",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile returns the plan that makes the live table match declared. The declared table is
// not modified. An empty plan means the table is already in sync.
func (s *Service) Reconcile(ctx context.Context, declared *schema.Table) (*schema.Plan, error) {
	t, err := s.Prepare(declared)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("table", t.QualifiedName()), zap.String("dialect", s.dialect.Name()))
	plan := schema.NewPlan(t.QualifiedName())

	live, err := s.resolve(ctx, t, plan, log)
	if err != nil {
		return nil, err
	}
	if live == nil {
		s.planCreate(t, plan)
		log.Debug("planned new table", zap.Int("statements", plan.Len()))
		return plan, nil
	}
	if t.DisableAlterTable {
		return plan, nil
	}

	if !t.DisableAlterComment && t.Comment != "" && !database.SameComment(t.Comment, live.Comment) {
		plan.Add(s.dialect.TableCommentSQL(t))
	}

	// Until the planned rename runs the columns are still found under the live name.
	current := t.WithName(live.Name)
	liveCols, err := withRetry(ctx, s.retry, log, func(ctx context.Context) ([]schema.Column, error) {
		cols, err := s.introspector.DescribeColumns(ctx, current)
		return cols, classify("describing columns of "+current.QualifiedName(), err)
	})
	if err != nil {
		return nil, err
	}
	for i := range liveCols {
		liveCols[i] = s.dialect.NormalizeColumn(liveCols[i])
	}

	s.planColumns(t, liveCols, plan, log)
	log.Debug("planned table upgrade", zap.Int("statements", plan.Len()))
	return plan, nil
}

// resolve finds the live table under its declared name or, failing that, the first of its old
// names that exists, planning a rename in that case. It returns nil when neither exists.
func (s *Service) resolve(ctx context.Context, t *schema.Table, plan *schema.Plan, log *zap.Logger) (*schema.Table, error) {
	live, err := s.lookup(ctx, t.Name, t.Schema, log)
	if err != nil || live != nil {
		return live, err
	}
	for _, old := range t.OldNames {
		live, err = s.lookup(ctx, old, t.Schema, log)
		if err != nil {
			return nil, err
		}
		if live != nil {
			log.Info("table found under an old name", zap.String("old_name", old))
			plan.Add(s.dialect.RenameTableSQL(t.WithName(old), t))
			live.Name = old
			return live, nil
		}
	}
	return nil, nil
}

func (s *Service) lookup(ctx context.Context, name, schemaName string, log *zap.Logger) (*schema.Table, error) {
	return withRetry(ctx, s.retry, log, func(ctx context.Context) (*schema.Table, error) {
		t, err := s.introspector.TableExists(ctx, name, schemaName)
		return t, classify(fmt.Sprintf("looking up table %s", name), err)
	})
}

// planCreate emits CREATE TABLE and one CREATE INDEX per indexed column outside the primary key.
func (s *Service) planCreate(t *schema.Table, plan *schema.Plan) {
	plan.Add(s.dialect.CreateTableSQL(t)...)
	for i := range t.Columns {
		c := &t.Columns[i]
		if c.AlterStrategy() != schema.DropColumn {
			s.planIndex(t, c, plan)
		}
	}
}

func (s *Service) planIndex(t *schema.Table, c *schema.Column, plan *schema.Plan) {
	if c.Index && !t.IsPrimaryKey(c.Name) {
		plan.Add(s.dialect.AddIndexSQL(t, c, c.IndexName))
	}
}
