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
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
)

// DialectHandler bundles a dialect with the catalog reader and pool factories for its database.
type DialectHandler interface {
	Dialect
	CatalogReader

	// Priority orders handlers during lookup, lower first.
	Priority() int
	// Matches reports whether the handler serves the given configured or product name.
	Matches(name string) bool

	CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error)
	CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error)
}

// DB holds the database connection pool and dialect handler.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.DatabaseConfig
}

const cloudSQLPrefix = "cloudsql"

// IsCloudSQL reports whether the configured dialect name asks for the Cloud SQL connector.
func IsCloudSQL(dialect string) bool {
	return strings.HasPrefix(strings.ToLower(dialect), cloudSQLPrefix)
}

// New opens a pool for cfg.Dialect using the handler registered for it and pings the server.
func New(ctx context.Context, cfg config.DatabaseConfig, registry *Registry) (*DB, error) {
	handler, err := registry.Lookup(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var pool *sql.DB
	if IsCloudSQL(cfg.Dialect) {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool for dialect %s: %w", cfg.Dialect, err)
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database (ping failed) for dialect %s: %w", cfg.Dialect, err)
	}

	return &DB{
		Pool:    pool,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (db *DB) GetConfig() config.DatabaseConfig {
	return db.Config
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	return db.Pool.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	return nil
}

// Introspector returns a catalog introspector bound to this pool.
func (db *DB) Introspector() *Introspector {
	return NewIntrospector(db.Pool, db.Handler)
}
