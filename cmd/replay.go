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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/executor"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/utils"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Execute the statements of a DDL log file",
	Long: `Reads a DDL log written by plan or apply (possibly edited by hand) and executes its
statements in order. Every statement is treated as fatal on failure.`,
	Example: `./db_schema_sync replay --dialect mysql --database mydb --username user --password pass ddl_20250301_140506_1a2b3c4d.sql`,
	Args:    cobra.ExactArgs(1),
	RunE:    runReplay,
}

var replayAssumeYes bool

func runReplay(cmd *cobra.Command, args []string) error {
	statements, err := utils.ReadSQLStatementsFromFile(args[0])
	if err != nil {
		return err
	}
	plan := schema.NewPlan(filepath.Base(args[0]))
	for _, s := range statements {
		plan.Add(schema.NewStatement(s))
	}
	printPlans(cmd.OutOrStdout(), []*schema.Plan{plan})
	if plan.Empty() {
		return nil
	}
	if !replayAssumeYes && !utils.ConfirmAction(os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("%d statement(s) from %s", plan.Len(), args[0])) {
		logger.Info("Replay aborted by user.")
		return nil
	}

	ctx := cmd.Context()
	db, err := setupDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	// The log being replayed is the record; no new one is written.
	report, err := executor.New(db.Pool, logger).Apply(ctx, plan)
	if err != nil {
		return fmt.Errorf("failed to replay %s: %w", args[0], err)
	}
	logger.Info("Replay completed", zap.Int("executed", report.Executed))
	return nil
}

func init() {
	replayCmd.Flags().BoolVarP(&replayAssumeYes, "yes", "y", false, "Execute without asking for confirmation")
}
