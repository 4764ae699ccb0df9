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
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/utils"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Short:   "Print the live definition of database tables",
	Long:    `Reads the live catalog and prints each table's comment, columns (as the reconciler sees them after normalization) and single-column indexes.`,
	Example: `./db_schema_sync inspect --dialect mysql --host localhost --port 3306 --username user --password pass --database mydb --tables "table1[column1,column3],table2"`,
	RunE:    runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	filters, err := utils.ParseTablesFlag(cmd.Flag("tables").Value.String())
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		return fmt.Errorf("--tables is required")
	}

	ctx := cmd.Context()
	db, err := setupDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	introspector := db.Introspector()
	out := cmd.OutOrStdout()
	for _, name := range names {
		if err := inspectTable(ctx, out, introspector, db.Handler, name, filters[name]); err != nil {
			return err
		}
	}
	return nil
}

func inspectTable(ctx context.Context, out io.Writer, in *database.Introspector, d database.Dialect, name string, columns []string) error {
	schemaName := config.Current().Sync.Schema
	if i := strings.LastIndex(name, "."); i > 0 {
		schemaName, name = name[:i], name[i+1:]
	}

	t, err := in.TableExists(ctx, name, schemaName)
	if err != nil {
		return err
	}
	if t == nil {
		fmt.Fprintf(out, "-- %s: table does not exist\n\n", name)
		return nil
	}
	cols, err := in.DescribeColumns(ctx, t)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "-- %s\n", t.QualifiedName())
	if t.Comment != "" {
		fmt.Fprintf(out, "-- comment: %s\n", t.Comment)
	}
	printColumns(out, d, selectColumns(cols, columns))
	fmt.Fprintln(out)
	return nil
}

// selectColumns keeps the named columns, or all of them when names is empty.
func selectColumns(cols []schema.Column, names []string) []schema.Column {
	if len(names) == 0 {
		return cols
	}
	var out []schema.Column
	for _, c := range cols {
		for _, n := range names {
			if c.HasName(n) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func printColumns(out io.Writer, d database.Dialect, cols []schema.Column) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tNULL\tDEFAULT\tINDEX\tCOMMENT")
	for _, raw := range cols {
		c := d.NormalizeColumn(raw)
		nullable := "YES"
		if c.IsNotNull() {
			nullable = "NO"
		}
		def := c.DefaultValue
		if c.AutoIncrement {
			def = "(auto increment)"
		}
		index := ""
		if c.Index {
			index = fmt.Sprintf("%s (%s)", c.IndexName, c.EffectiveIndexType())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Name, c.TypeDefinition(), nullable, def, index, c.Comment)
	}
	w.Flush()
}

func init() {
	var tables string
	inspectCmd.Flags().StringVar(&tables, "tables", "", "Comma-separated list of tables and columns to print (e.g., 'table1[col1,col2],table2,schema.table3')")
}
