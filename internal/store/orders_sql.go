package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connection settings for the one-shot order load.
const (
	// DefaultMaxOpenConns bounds connections used while loading
	DefaultMaxOpenConns = 2
	// DefaultConnMaxLifetime is the maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultLoadTimeout bounds the whole load when the caller's context has no deadline
	DefaultLoadTimeout = 30 * time.Second
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// LoadSQL opens the configured database, reads the order table once, and closes the connection.
func LoadSQL(ctx context.Context, cfg Opts) (*OrderStore, error) {
	source := cfg.Driver + ":" + cfg.Table
	slog.Debug("store.LoadSQL: opening order source", "driver", cfg.Driver, "table", cfg.Table, "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("database DSN not set")}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	defer db.Close()
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultLoadTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		slog.Error("store.LoadSQL: ping failed", "driver", cfg.Driver, "error", err)
		return nil, &LoadError{Source: source, Err: err}
	}

	records, err := ReadSQL(ctx, db, cfg.Table)
	if err != nil {
		return nil, err
	}
	slog.Info("store.LoadSQL: orders loaded", "driver", cfg.Driver, "table", cfg.Table, "count", len(records))
	return NewOrderStore(source, records), nil
}

// OrdersQuery returns the SELECT statement used to read the order table.
func OrdersQuery(table string) string {
	cols := make([]string, len(OrderColumns))
	for i, c := range OrderColumns {
		cols[i] = c
		if c == ColTrackingNumber {
			cols[i] = "COALESCE(" + c + ", '')"
		}
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + table
}

// ReadSQL reads every order row from table in the order the database returns them.
func ReadSQL(ctx context.Context, db *sql.DB, table string) ([]models.OrderRecord, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, &LoadError{Source: table, Err: fmt.Errorf("invalid table name %q", table)}
	}

	rows, err := db.QueryContext(ctx, OrdersQuery(table))
	if err != nil {
		return nil, &LoadError{Source: table, Err: err}
	}
	defer rows.Close()

	var records []models.OrderRecord
	for row := 1; rows.Next(); row++ {
		// Scanning into strings lets the driver render dates and numerics; parseOrder validates them.
		vals := make([]sql.NullString, len(OrderColumns))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &LoadError{Source: table, Row: row, Err: err}
		}
		get := func(col string) string {
			for i, c := range OrderColumns {
				if c == col {
					return strings.TrimSpace(vals[i].String)
				}
			}
			return ""
		}
		rec, err := parseOrder(get)
		if err != nil {
			return nil, &LoadError{Source: table, Row: row, Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Source: table, Err: err}
	}
	return records, nil
}
