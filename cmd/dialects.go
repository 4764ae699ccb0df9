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
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List supported database dialects in lookup order",
	RunE: func(cmd *cobra.Command, args []string) error {
		printDialects(cmd.OutOrStdout(), newRegistry())
		return nil
	},
}

func printDialects(out io.Writer, registry *database.Registry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRIORITY\tAUTO INCREMENT\tSEQUENCE")
	for _, h := range registry.Handlers() {
		fmt.Fprintf(w, "%s\t%d\t%t\t%t\n", h.Name(), h.Priority(), h.SupportsAutoIncrement(), h.SupportsSequence())
	}
	w.Flush()
}
