package db

import (
	"fmt"
	"strings"

	"github.com/zulandar/switchboard/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds the driver-specific connection string for cfg. An explicit
// cfg.DSN is returned unchanged, except that MySQL DSNs always get
// clientFoundRows.
func DSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		if cfg.Driver == "mysql" {
			return withFoundRows(cfg.DSN), nil
		}
		return cfg.DSN, nil
	}
	return dsnFor(cfg, cfg.Name)
}

// withFoundRows makes MySQL report matched rather than changed rows, so a
// conditional UPDATE that matches but rewrites identical values still
// affects one row.
func withFoundRows(dsn string) string {
	if strings.Contains(dsn, "clientFoundRows=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&clientFoundRows=true"
	}
	return dsn + "?clientFoundRows=true"
}

// dsnFor builds a DSN for cfg pointed at the named database.
func dsnFor(cfg config.DatabaseConfig, database string) (string, error) {
	switch cfg.Driver {
	case "mysql":
		cred := cfg.User
		if cfg.Password != "" {
			cred += ":" + cfg.Password
		}
		return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true", cred, cfg.Host, cfg.Port, database), nil
	case "postgres":
		parts := []string{
			"host=" + cfg.Host,
			fmt.Sprintf("port=%d", cfg.Port),
			"user=" + cfg.User,
		}
		if cfg.Password != "" {
			parts = append(parts, "password="+cfg.Password)
		}
		if database != "" {
			parts = append(parts, "dbname="+database)
		}
		parts = append(parts, "sslmode=disable")
		return strings.Join(parts, " "), nil
	case "sqlite":
		if strings.Contains(database, "?") {
			return database, nil
		}
		return database + "?_foreign_keys=on", nil
	}
	return "", fmt.Errorf("db: unsupported driver %q", cfg.Driver)
}

// dialector returns the GORM dialector for driver.
func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("db: unsupported driver %q", driver)
}

// gormConfig returns the shared GORM settings. SQL logging is silent unless
// debug is set.
func gormConfig(debug bool) *gorm.Config {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return &gorm.Config{Logger: logger.Default.LogMode(level), TranslateError: true}
}

// Connect opens a GORM connection using the configured driver.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	d, err := dialector(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, gormConfig(cfg.Debug))
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s database %s: %w", cfg.Driver, cfg.Name, err)
	}
	return db, nil
}

// ConnectAdmin opens a connection to the database server without selecting
// the application database, used for CREATE DATABASE. SQLite has no server
// and is rejected.
func ConnectAdmin(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var admin string
	switch cfg.Driver {
	case "mysql":
		admin = ""
	case "postgres":
		admin = "postgres"
	default:
		return nil, fmt.Errorf("db: admin connection not supported for driver %q", cfg.Driver)
	}
	dsn, err := dsnFor(cfg, admin)
	if err != nil {
		return nil, err
	}
	d, err := dialector(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, gormConfig(cfg.Debug))
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, driver, name string) error {
	switch driver {
	case "mysql":
		sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
		if err := adminDB.Exec(sql).Error; err != nil {
			return fmt.Errorf("db: create database %s: %w", name, err)
		}
	case "postgres":
		// Postgres has no CREATE DATABASE IF NOT EXISTS.
		var count int64
		if err := adminDB.Raw("SELECT count(*) FROM pg_database WHERE datname = ?", name).Scan(&count).Error; err != nil {
			return fmt.Errorf("db: check database %s: %w", name, err)
		}
		if count > 0 {
			return nil
		}
		if err := adminDB.Exec(fmt.Sprintf(`CREATE DATABASE "%s"`, name)).Error; err != nil {
			return fmt.Errorf("db: create database %s: %w", name, err)
		}
	default:
		return fmt.Errorf("db: create database not supported for driver %q", driver)
	}
	return nil
}
