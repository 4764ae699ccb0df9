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
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read through viper.
const EnvPrefix = "DBSYNC"

// DefaultVectorLength is the vector dimension used when a column does not declare one.
const DefaultVectorLength = 1024

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Sync     SyncConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Dialect                        string
	Host                           string
	Port                           int
	User                           string
	Password                       string
	DBName                         string
	SSLMode                        string
	CloudSQLInstanceConnectionName string
	UsePrivateIP                   bool
	// ServiceName is the Oracle service. DBName is used when empty.
	ServiceName string
}

// SyncConfig controls how declared tables are reconciled.
type SyncConfig struct {
	TablesFile            string
	Schema                string
	DryRun                bool
	DDLLogDir             string
	Concurrency           int
	DisableAlterComment   bool
	EmbeddingVectorLength int
	IndexPrefix           string
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string
	Format string
}

var globalConfig *Config

// GetConfig returns a default configuration.
func GetConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect: "postgres",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Sync: SyncConfig{
			TablesFile:            "tables.yaml",
			DDLLogDir:             ".",
			Concurrency:           4,
			EmbeddingVectorLength: DefaultVectorLength,
			IndexPrefix:           "idx_",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SetConfig sets the global configuration.
func SetConfig(cfg *Config) {
	globalConfig = cfg
}

// Current returns the configuration set by SetConfig, or the defaults.
func Current() *Config {
	if globalConfig == nil {
		return GetConfig()
	}
	return globalConfig
}

// SetDefaults registers every key with its default value so that environment variables
// are picked up for keys that have no flag or file entry.
func SetDefaults(v *viper.Viper) {
	d := GetConfig()
	v.SetDefault("database.dialect", d.Database.Dialect)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.cloudsql_instance", "")
	v.SetDefault("database.cloudsql_private_ip", false)
	v.SetDefault("database.service_name", "")

	v.SetDefault("sync.tables_file", d.Sync.TablesFile)
	v.SetDefault("sync.schema", "")
	v.SetDefault("sync.dry_run", false)
	v.SetDefault("sync.ddl_log_dir", d.Sync.DDLLogDir)
	v.SetDefault("sync.concurrency", d.Sync.Concurrency)
	v.SetDefault("sync.disable_alter_comment", false)
	v.SetDefault("sync.embedding_vector_length", d.Sync.EmbeddingVectorLength)
	v.SetDefault("sync.index_prefix", d.Sync.IndexPrefix)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// NewViper returns a viper instance with defaults and environment binding configured.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
			}
		}
	}
	return FromViper(v)
}

// FromViper decodes a Config from v's resolved keys.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Dialect:                        strings.ToLower(strings.TrimSpace(v.GetString("database.dialect"))),
			Host:                           v.GetString("database.host"),
			Port:                           v.GetInt("database.port"),
			User:                           v.GetString("database.user"),
			Password:                       v.GetString("database.password"),
			DBName:                         v.GetString("database.name"),
			SSLMode:                        v.GetString("database.sslmode"),
			CloudSQLInstanceConnectionName: v.GetString("database.cloudsql_instance"),
			UsePrivateIP:                   v.GetBool("database.cloudsql_private_ip"),
			ServiceName:                    v.GetString("database.service_name"),
		},
		Sync: SyncConfig{
			TablesFile:            v.GetString("sync.tables_file"),
			Schema:                v.GetString("sync.schema"),
			DryRun:                v.GetBool("sync.dry_run"),
			DDLLogDir:             v.GetString("sync.ddl_log_dir"),
			Concurrency:           v.GetInt("sync.concurrency"),
			DisableAlterComment:   v.GetBool("sync.disable_alter_comment"),
			EmbeddingVectorLength: v.GetInt("sync.embedding_vector_length"),
			IndexPrefix:           v.GetString("sync.index_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	// EMBEDDING_VECTOR_LENGTH is honored without the prefix when the prefixed key is not set.
	if !viperHasExplicit(v, "sync.embedding_vector_length") {
		if raw, ok := os.LookupEnv("EMBEDDING_VECTOR_LENGTH"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid EMBEDDING_VECTOR_LENGTH %q: %w", raw, err)
			}
			cfg.Sync.EmbeddingVectorLength = n
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// viperHasExplicit reports whether key was set by the prefixed environment or a config file.
func viperHasExplicit(v *viper.Viper, key string) bool {
	if _, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); ok {
		return true
	}
	return v.InConfig(key)
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Database.Dialect == "" {
		return fmt.Errorf("database.dialect is required")
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency must be at least 1, got %d", c.Sync.Concurrency)
	}
	if c.Sync.EmbeddingVectorLength < 1 {
		return fmt.Errorf("sync.embedding_vector_length must be positive, got %d", c.Sync.EmbeddingVectorLength)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
