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
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/tabledef"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/utils"
)

var planCmd = &cobra.Command{
	Use:     "plan",
	Short:   "Show the DDL that would bring the database in line with the declared tables",
	Long:    `Loads the declared tables, compares each with the live database and prints the generated DDL. Nothing is executed; a DDL log is written for every table that is out of sync.`,
	Example: `./db_schema_sync plan --dialect postgres --host localhost --port 5432 --username user --password pass --database mydb --tables-file ./tables.yaml --tables "orders,customers"`,
	RunE:    runPlan,
}

// reconcilePlanner is the part of reconciler.Service the commands use.
type reconcilePlanner interface {
	Reconcile(ctx context.Context, declared *schema.Table) (*schema.Plan, error)
}

func runPlan(cmd *cobra.Command, args []string) error {
	tables, err := loadTables(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := setupDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	plans, err := planTables(ctx, newReconciler(db), tables, config.Current().Sync.Concurrency)
	if err != nil {
		return err
	}

	exec := newExecutor(db)
	for _, p := range plans {
		if !p.Empty() {
			exec.DryRun(p)
		}
	}
	printPlans(cmd.OutOrStdout(), plans)
	return nil
}

// loadTables reads the declared tables file and applies the --tables filter.
func loadTables(cmd *cobra.Command) ([]*schema.Table, error) {
	path := config.Current().Sync.TablesFile
	tables, err := tabledef.Load(path)
	if err != nil {
		return nil, err
	}
	filter, err := utils.ParseTablesFlag(cmd.Flag("tables").Value.String())
	if err != nil {
		return nil, err
	}
	tables = tabledef.Filter(tables, filter)
	if len(tables) == 0 {
		return nil, fmt.Errorf("no declared tables selected from %s", path)
	}
	logger.Info("Loaded declared tables", zap.String("file", path), zap.Int("tables", len(tables)))
	return tables, nil
}

// planTables reconciles the tables concurrently, at most limit at a time, and returns the
// plans in declaration order. The first failure cancels the tables not yet started.
func planTables(ctx context.Context, planner reconcilePlanner, tables []*schema.Table, limit int) ([]*schema.Plan, error) {
	plans := make([]*schema.Plan, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, t := range tables {
		g.Go(func() error {
			p, err := planner.Reconcile(ctx, t)
			if err != nil {
				return fmt.Errorf("failed to reconcile table %s: %w", t.QualifiedName(), err)
			}
			plans[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// printPlans writes every out-of-sync table's statements, each terminated with a semicolon.
func printPlans(w io.Writer, plans []*schema.Plan) int {
	pending := 0
	for _, p := range plans {
		if p.Empty() {
			continue
		}
		pending++
		fmt.Fprintf(w, "-- %s\n", p.Table)
		for _, stmt := range p.Statements() {
			fmt.Fprintf(w, "%s;\n", stmt.Text())
		}
	}
	if pending == 0 {
		fmt.Fprintln(w, "-- All tables are in sync.")
	}
	return pending
}

func init() {
	var tables string
	planCmd.Flags().StringVar(&tables, "tables", "", "Comma-separated list of declared tables to reconcile (e.g., 'table1,table2'). Defaults to all tables in the file.")
}
