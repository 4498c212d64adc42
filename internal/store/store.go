// Package store provides storage backends for SupportPipe.
//
// It holds the read-only order table loaded once at startup (from CSV, SQLite, or PostgreSQL)
// and the in-memory per-session conversation history.
package store

import (
	"fmt"
)

// Supported SQL drivers for the order source.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Defaults applied when an option is left empty.
const (
	// DefaultOrdersTable is the table queried by the SQL loaders
	DefaultOrdersTable = "orders"
	// DefaultCSVPath is the CSV order source used when no database is configured
	DefaultCSVPath = "data/orders.csv"
)

// Opts holds configuration for loading the order table.
type Opts struct {
	Driver  string // empty selects the CSV loader
	DSN     string
	Table   string
	CSVPath string
}

// Option configures order loading.
type Option func(*Opts)

// WithDriver selects a SQL driver ("sqlite3" or "postgres").
func WithDriver(driver string) Option {
	return func(o *Opts) { o.Driver = driver }
}

// WithDSN sets the database DSN for SQL order sources.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithTable overrides the table name for SQL order sources.
func WithTable(table string) Option {
	return func(o *Opts) { o.Table = table }
}

// WithCSVPath sets the CSV file used when no driver is configured.
func WithCSVPath(path string) Option {
	return func(o *Opts) { o.CSVPath = path }
}

func buildOpts(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultOrdersTable
	}
	if cfg.CSVPath == "" {
		cfg.CSVPath = DefaultCSVPath
	}
	return cfg
}

// LoadError reports a missing or malformed order source.
type LoadError struct {
	Source string
	Row    int // 1-based data row, 0 when the failure is not row specific
	Err    error
}

func (e *LoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load orders from %s: row %d: %v", e.Source, e.Row, e.Err)
	}
	return fmt.Sprintf("load orders from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
