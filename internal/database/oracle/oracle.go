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
package oracle

import (
	"database/sql"
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
)

const defaultPort = 1521

// Handler implements database.DialectHandler for Oracle through the pure Go go-ora driver.
type Handler struct {
	Dialect
	Catalog
}

var _ database.DialectHandler = (*Handler)(nil)

func New() *Handler {
	return &Handler{Dialect: NewDialect()}
}

func (h *Handler) Priority() int { return 10 }

func (h *Handler) Matches(name string) bool {
	return database.ContainsAny(name, "oracle")
}

func (h *Handler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return nil, fmt.Errorf("cloud sql connector does not serve oracle")
}

// CreateStandardPool opens a go-ora pool. The service name falls back to the database name.
func (h *Handler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	dbPool, err := sql.Open("oracle", ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("sql.Open (oracle): %w", err)
	}
	return dbPool, nil
}

// ConnString returns the go-ora connection URL for cfg.
func ConnString(cfg config.DatabaseConfig) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	service := cfg.ServiceName
	if service == "" {
		service = cfg.DBName
	}
	return go_ora.BuildUrl(cfg.Host, port, service, cfg.User, cfg.Password, nil)
}
