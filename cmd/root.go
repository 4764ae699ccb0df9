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
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/h2"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/mysql"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/oceanbase"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/oracle"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/postgres"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database/sqlserver"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/executor"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/logging"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/reconciler"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/typemap"
)

var (
	cfgFile string
	v       = config.NewViper()
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "db_schema_sync",
	Short: "Reconcile declared table definitions with a live database",
	Long: `db_schema_sync reads declared tables from YAML, compares them with the live
database catalog and generates (and optionally applies) the DDL that brings the
database in line: new tables, renamed tables and columns, widened types, comments
and single-column indexes.`,
	SilenceUsage:      true,
	PersistentPreRunE: initFlagsAndConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// initFlagsAndConfig loads .env, the optional config file, the environment and the bound flags,
// then builds the logger for this run.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	config.SetConfig(cfg)

	l, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	logger = l.With(zap.String("run_id", uuid.NewString()))
	return nil
}

// newRegistry lists every supported database. OceanBase is registered first and has the lowest
// priority so that it wins over MySQL for OceanBase product names.
func newRegistry() *database.Registry {
	return database.NewRegistry(
		oceanbase.New(),
		mysql.New(),
		postgres.New(),
		oracle.New(),
		sqlserver.New(),
		h2.New(),
	)
}

// setupDatabase connects with the configured dialect, then switches to the handler matching
// the product name the server reports when that differs.
func setupDatabase(ctx context.Context) (*database.DB, error) {
	cfg := config.Current()
	registry := newRegistry()
	db, err := database.New(ctx, cfg.Database, registry)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	product, err := db.Introspector().DatabaseProductName(ctx)
	if err != nil {
		logger.Warn("could not read database product name", zap.Error(err))
		return db, nil
	}
	if h, err := registry.ForProduct(product); err == nil && h.Name() != db.Handler.Name() {
		logger.Info("dialect resolved from server product",
			zap.String("configured", db.Handler.Name()), zap.String("resolved", h.Name()), zap.String("product", product))
		db.Handler = h
	}
	return db, nil
}

func newReconciler(db *database.DB) *reconciler.Service {
	cfg := config.Current()
	types := typemap.New(typemap.WithDefaultVectorLength(cfg.Sync.EmbeddingVectorLength))
	return reconciler.NewService(db.Handler, db.Introspector(), logger,
		reconciler.WithTypeNormalizer(types),
		reconciler.WithDefaultSchema(cfg.Sync.Schema),
		reconciler.WithIndexPrefix(cfg.Sync.IndexPrefix),
		reconciler.WithDisableAlterComment(cfg.Sync.DisableAlterComment),
	)
}

func newExecutor(db *database.DB) *executor.Executor {
	return executor.New(db.Pool, logger, executor.WithDDLLog(config.Current().Sync.DDLLogDir))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (YAML)")

	// Database connection flags
	flags.String("dialect", "", "Database dialect (mysql, oceanbase, postgres, oracle, sqlserver, h2; prefix with cloudsql for the Cloud SQL connector)")
	flags.String("host", "", "Database host")
	flags.Int("port", 0, "Database port")
	flags.String("username", "", "Database username")
	flags.String("password", "", "Database password")
	flags.String("database", "", "Database name")
	flags.String("service-name", "", "Oracle service name (defaults to --database)")
	flags.String("sslmode", "", "PostgreSQL sslmode")
	flags.String("cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	flags.Bool("cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")

	// Reconciliation flags
	flags.String("tables-file", "", "YAML file with the declared tables")
	flags.String("schema", "", "Schema for declared tables that do not name one")
	flags.String("ddl-log-dir", "", "Directory for DDL log files")
	flags.Int("concurrency", 0, "Number of tables reconciled at the same time")
	flags.Bool("disable-alter-comment", false, "Never change comments of existing tables and columns")
	flags.String("index-prefix", "", "Prefix of generated index names")

	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console or json)")

	for key, flag := range map[string]string{
		"database.dialect":             "dialect",
		"database.host":                "host",
		"database.port":                "port",
		"database.user":                "username",
		"database.password":            "password",
		"database.name":                "database",
		"database.service_name":        "service-name",
		"database.sslmode":             "sslmode",
		"database.cloudsql_instance":   "cloudsql-instance-connection-name",
		"database.cloudsql_private_ip": "cloudsql-use-private-ip",
		"sync.tables_file":             "tables-file",
		"sync.schema":                  "schema",
		"sync.ddl_log_dir":             "ddl-log-dir",
		"sync.concurrency":             "concurrency",
		"sync.disable_alter_comment":   "disable-alter-comment",
		"sync.index_prefix":            "index-prefix",
		"log.level":                    "log-level",
		"log.format":                   "log-format",
	} {
		bindFlag(key, flag)
	}

	// Add subcommands
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(dropTableCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dialectsCmd)
}

