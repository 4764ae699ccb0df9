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
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/executor"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/utils"
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:     "apply",
	Short:   "Generate and execute the DDL that brings the database in line with the declared tables",
	Long:    `Plans every declared table like the plan command, asks for confirmation and executes each table's statements in order. Statements known to fail harmlessly are logged and skipped; any other failure stops that table.`,
	Example: `./db_schema_sync apply --dialect cloudsqlpostgres --username user --password pass --database mydb --cloudsql-instance-connection-name my-project:my-region:my-instance --tables-file ./tables.yaml --yes`,
	RunE:    runApply,
}

var assumeYes bool

func runApply(cmd *cobra.Command, args []string) error {
	cfg := config.Current()
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

	plans, err := planTables(ctx, newReconciler(db), tables, cfg.Sync.Concurrency)
	if err != nil {
		return err
	}
	exec := newExecutor(db)

	if cfg.Sync.DryRun {
		for _, p := range plans {
			if !p.Empty() {
				exec.DryRun(p)
			}
		}
		printPlans(cmd.OutOrStdout(), plans)
		logger.Info("Apply completed in dry-run mode. No changes were made to the database.")
		return nil
	}

	pending := printPlans(cmd.OutOrStdout(), plans)
	if pending == 0 {
		return nil
	}
	if !assumeYes && !utils.ConfirmAction(os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("DDL for %d table(s)", pending)) {
		logger.Info("Apply aborted by user.")
		return nil
	}

	reports, err := applyPlans(ctx, exec, plans, cfg.Sync.Concurrency)
	for _, r := range reports {
		if r != nil {
			logger.Info("Table reconciled", zap.String("table", r.Table),
				zap.Int("executed", r.Executed), zap.Int("ignored", r.Ignored), zap.String("ddl_log", r.LogPath))
		}
	}
	if err != nil {
		return fmt.Errorf("failed to apply DDL: %w", err)
	}
	logger.Info("Apply completed", zap.Int("tables", pending))
	return nil
}

// planApplier is the part of executor.Executor the commands use.
type planApplier interface {
	Apply(ctx context.Context, plan *schema.Plan) (*executor.Report, error)
}

// applyPlans executes each non-empty plan. Statements of one table run in order on one
// connection; different tables may run at the same time. Tables not yet started are skipped
// after the first failure.
func applyPlans(ctx context.Context, exec planApplier, plans []*schema.Plan, limit int) ([]*executor.Report, error) {
	reports := make([]*executor.Report, len(plans))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range plans {
		if p.Empty() {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := exec.Apply(ctx, p)
			reports[i] = r
			if err != nil {
				return fmt.Errorf("table %s: %w", p.Table, err)
			}
			return nil
		})
	}
	return reports, g.Wait()
}

func init() {
	var tables string
	var dryRun bool

	applyCmd.Flags().StringVar(&tables, "tables", "", "Comma-separated list of declared tables to reconcile (e.g., 'table1,table2'). Defaults to all tables in the file.")
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print and log the DDL without executing it")
	applyCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Execute without asking for confirmation")
	if err := v.BindPFlag("sync.dry_run", applyCmd.Flags().Lookup("dry-run")); err != nil {
		panic(err)
	}
}
