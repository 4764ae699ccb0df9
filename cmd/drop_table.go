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
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/utils"
)

var dropTableCmd = &cobra.Command{
	Use:     "drop-table TABLE...",
	Short:   "Drop database tables",
	Long:    `Generates DROP TABLE IF EXISTS for the named tables, asks for confirmation and executes the statements.`,
	Example: `./db_schema_sync drop-table --dialect postgres --database mydb --username user --password pass audit.events staging_orders`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDropTable,
}

var dropAssumeYes bool

func runDropTable(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := setupDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	plans := dropPlans(db.Handler, config.Current().Sync.Schema, args)
	printPlans(cmd.OutOrStdout(), plans)
	if !dropAssumeYes && !utils.ConfirmAction(os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("DROP statements for %d table(s)", len(plans))) {
		logger.Info("Drop aborted by user.")
		return nil
	}

	exec := newExecutor(db)
	for _, p := range plans {
		if _, err := exec.Apply(ctx, p); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", p.Table, err)
		}
	}
	return nil
}

// dropPlans returns one DROP TABLE plan per name. A name may be schema-qualified.
func dropPlans(d database.Dialect, defaultSchema string, names []string) []*schema.Plan {
	plans := make([]*schema.Plan, 0, len(names))
	for _, name := range names {
		t := &schema.Table{Name: name, Schema: defaultSchema}
		if i := strings.LastIndex(name, "."); i > 0 {
			t.Schema, t.Name = name[:i], name[i+1:]
		}
		p := schema.NewPlan(t.QualifiedName())
		p.Add(d.DropTableSQL(t))
		plans = append(plans, p)
	}
	return plans
}

func init() {
	dropTableCmd.Flags().BoolVarP(&dropAssumeYes, "yes", "y", false, "Execute without asking for confirmation")
}
