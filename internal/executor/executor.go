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

// Package executor runs DDL plans against a live database.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/utils"
)

// Conner hands out a dedicated connection. *sql.DB implements it.
type Conner interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// ErrStatementFailed is returned when a statement that is not ignorable fails. The statements
// after it are not run; the ones before it stay applied.
type ErrStatementFailed struct {
	Statement string
	Err       error
}

func (e *ErrStatementFailed) Error() string {
	return fmt.Sprintf("DDL statement failed: %s: %v", e.Statement, e.Err)
}

func (e *ErrStatementFailed) Unwrap() error {
	return e.Err
}

// Report summarises one plan run.
type Report struct {
	Table    string
	Executed int
	Ignored  int
	// LogPath is the DDL log written for the plan, empty when none was written.
	LogPath string
}

// Executor applies plans statement by statement in autocommit mode.
type Executor struct {
	pool   Conner
	logger *zap.Logger
	logDir string
	now    func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithDDLLog writes every non-empty plan to a log file in dir.
func WithDDLLog(dir string) Option {
	return func(e *Executor) { e.logDir = dir }
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New returns an executor borrowing connections from pool. The pool stays owned by the caller.
func New(pool Conner, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{pool: pool, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply executes the plan in order on a single connection. A failing ignorable statement is
// logged and skipped; any other failure stops the run with *ErrStatementFailed.
func (e *Executor) Apply(ctx context.Context, plan *schema.Plan) (*Report, error) {
	report := &Report{Table: plan.Table}
	log := e.logger.With(zap.String("table", plan.Table))
	if plan.Empty() {
		log.Debug("table in sync, nothing to execute")
		return report, nil
	}
	report.LogPath = e.writeLog(plan, log)

	conn, err := e.pool.Conn(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	for _, stmt := range plan.Statements() {
		log.Info("EXEC DDL SQL", zap.String("statement", stmt.Text()))
		if _, err := conn.ExecContext(ctx, stmt.Text()); err != nil {
			if stmt.Ignorable() && ctx.Err() == nil {
				report.Ignored++
				log.Info("ignored DDL failure",
					zap.String("statement", stmt.Text()), zap.String("error", FailureMessage(err)))
				continue
			}
			log.Error("DDL statement failed", zap.String("statement", stmt.Text()), zap.Error(err))
			return report, &ErrStatementFailed{Statement: stmt.Text(), Err: err}
		}
		report.Executed++
	}
	return report, nil
}

// DryRun returns the statements of the plan without touching the database, writing the DDL
// log when one is configured.
func (e *Executor) DryRun(plan *schema.Plan) (*Report, []string) {
	report := &Report{Table: plan.Table}
	log := e.logger.With(zap.String("table", plan.Table))
	for _, stmt := range plan.Statements() {
		log.Info("DRY RUN DDL SQL", zap.String("statement", stmt.Text()))
	}
	report.LogPath = e.writeLog(plan, log)
	return report, plan.Texts()
}

// writeLog persists the plan when a log directory is set. Failures are logged, never returned.
func (e *Executor) writeLog(plan *schema.Plan, log *zap.Logger) string {
	if e.logDir == "" || plan.Empty() {
		return ""
	}
	path, err := utils.WriteDDLLog(e.logDir, plan.Texts(), e.now())
	if err != nil {
		log.Warn("failed to write DDL log", zap.Error(err))
		return ""
	}
	log.Info("DDL log written", zap.String("path", path))
	return path
}

// FailureMessage returns the error text, or the text of the error it wraps when its own is empty.
func FailureMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		if inner := errors.Unwrap(err); inner != nil {
			msg = inner.Error()
		}
	}
	return msg
}
