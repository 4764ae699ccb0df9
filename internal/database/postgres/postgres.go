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
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
)

// Handler implements database.DialectHandler for PostgreSQL.
type Handler struct {
	Dialect
	Catalog
}

var _ database.DialectHandler = (*Handler)(nil)

// New returns the PostgreSQL handler.
func New() *Handler {
	return &Handler{Dialect: NewDialect()}
}

func (h *Handler) Priority() int { return 10 }

func (h *Handler) Matches(name string) bool {
	return database.ContainsAny(name, "postgres")
}

// CreateCloudSQLPool for PostgreSQL
func (h *Handler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	instanceConnectionName := cfg.CloudSQLInstanceConnectionName
	if instanceConnectionName == "" {
		return nil, fmt.Errorf("missing required CloudSQL instance connection name")
	}

	dsn := fmt.Sprintf("user=%s password=%s database=%s", cfg.User, cfg.Password, cfg.DBName)
	pgxConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	var opts []cloudsqlconn.Option
	if cfg.UsePrivateIP {
		opts = append(opts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
	}
	d, err := cloudsqlconn.NewDialer(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	pgxConfig.DialFunc = func(ctx context.Context, network, instance string) (net.Conn, error) {
		return d.Dial(ctx, instanceConnectionName)
	}
	dbURI := stdlib.RegisterConnConfig(pgxConfig)
	dbPool, err := sql.Open("pgx", dbURI)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	return dbPool, nil
}

// CreateStandardPool creates a standard PostgreSQL connection pool
func (h *Handler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	dbPool, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return dbPool, nil
}
