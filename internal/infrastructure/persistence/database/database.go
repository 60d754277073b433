// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
)

const (
	DriverSQLite = "sqlite3"
	DriverLibSQL = "libsql"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
}

// Options selects and tunes the connection.
type Options struct {
	Driver       string
	Path         string
	TursoURL     string
	TursoToken   string
	MaxOpenConns int
	MaxIdleConns int
}

// DataSourceName builds the driver-specific DSN. Local SQLite files get their
// directory created on demand; ":memory:" is passed through.
func DataSourceName(opts Options) (string, error) {
	switch opts.Driver {
	case DriverLibSQL:
		if opts.TursoURL == "" {
			return "", fmt.Errorf("libsql driver requires TURSO_DATABASE_URL")
		}
		return fmt.Sprintf("%s?authToken=%s", opts.TursoURL, opts.TursoToken), nil
	case DriverSQLite, "":
		if opts.Path == ":memory:" {
			return opts.Path, nil
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", opts.Path), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Open resolves the DSN, connects and applies pool limits.
func Open(opts Options, logger *logging.ChanneledLogger) (*DB, error) {
	dsn, err := DataSourceName(opts)
	if err != nil {
		return nil, err
	}
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	db, err := NewConnectionWithLogger(driver, dsn, logger)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite && opts.Path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}
	return db, nil
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	if err = db.Ping(); err != nil {
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		db.Close()
		return nil, err
	}

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", driverName, "duration", duration)
	CheckAndLogSlowQuery(logger, "DATABASE_CONNECTION", duration)

	return &DB{DB: db, Driver: driverName}, nil
}

// Status is the payload of the database health endpoint.
type Status struct {
	Driver    string        `json:"driver"`
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latencyNs"`
	Error     string        `json:"error,omitempty"`
}

// Status pings the database.
func (db *DB) Status(ctx context.Context) Status {
	start := time.Now()
	err := db.PingContext(ctx)
	st := Status{Driver: db.Driver, Connected: err == nil, Latency: time.Since(start)}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}
