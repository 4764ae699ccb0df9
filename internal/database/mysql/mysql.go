package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/go-sql-driver/mysql"
)

// Handler serves MySQL and MariaDB.
type Handler struct {
	Dialect
	Catalog
}

var _ database.DialectHandler = (*Handler)(nil)

// New returns the MySQL handler.
func New() *Handler {
	return &Handler{Dialect: NewDialect()}
}

func (h *Handler) Priority() int { return 10 }

func (h *Handler) Matches(name string) bool {
	return database.ContainsAny(name, "mysql", "mariadb")
}

func (h *Handler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return OpenCloudSQL(cfg)
}

func (h *Handler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return OpenStandard(cfg)
}

// OpenCloudSQL opens a pool that dials the instance through the Cloud SQL connector.
func OpenCloudSQL(cfg config.DatabaseConfig) (*sql.DB, error) {
	instanceConnectionName := cfg.CloudSQLInstanceConnectionName
	if cfg.User == "" || cfg.Password == "" || cfg.DBName == "" || instanceConnectionName == "" {
		return nil, fmt.Errorf("missing required CloudSQL connection parameter (user, pass, db, instance)")
	}

	d, err := cloudsqlconn.NewDialer(context.Background())
	if err != nil {
		return nil, fmt.Errorf("cloudsqlconn.NewDialer: %w", err)
	}

	var opts []cloudsqlconn.DialOption
	if cfg.UsePrivateIP {
		opts = append(opts, cloudsqlconn.WithPrivateIP())
	}

	network := fmt.Sprintf("cloudsql-%s", instanceConnectionName)
	mysql.RegisterDialContext(network,
		func(ctx context.Context, addr string) (net.Conn, error) {
			return d.Dial(ctx, instanceConnectionName, opts...)
		})

	mysqlCfg := baseConfig(cfg)
	mysqlCfg.Net = network
	mysqlCfg.Addr = instanceConnectionName

	dbPool, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		mysql.DeregisterDialContext(network)
		d.Close()
		return nil, fmt.Errorf("sql.Open failed for CloudSQL MySQL: %w", err)
	}
	return dbPool, nil
}

// OpenStandard opens a TCP pool to cfg.Host:cfg.Port.
func OpenStandard(cfg config.DatabaseConfig) (*sql.DB, error) {
	mysqlCfg := baseConfig(cfg)
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	dbPool, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sql.Open (standard mysql): %w", err)
	}
	return dbPool, nil
}

// baseConfig carries the settings shared by both pools.
func baseConfig(cfg config.DatabaseConfig) *mysql.Config {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.DBName = cfg.DBName
	mysqlCfg.AllowNativePasswords = true
	mysqlCfg.ParseTime = true
	return mysqlCfg
}
