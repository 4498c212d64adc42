package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdersQuery(t *testing.T) {
	q := OrdersQuery("orders")
	assert.Equal(t, "SELECT order_id, customer_name, product_name, quantity, order_date, order_status, "+
		"total_amount, estimated_delivery, COALESCE(tracking_number, ''), shipping_address, phone FROM orders", q)
}

func TestReadSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(OrderColumns).
		AddRow("ORD-1001", "Jane Doe", "Wireless Earbuds", 2, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "Shipped", "149.99", "2024-01-20", "1Z999", "12 Main St", "555-123-4567").
		AddRow("ORD-2002", "John Smith", "USB-C Hub", 1, "2024-02-01", "Processing", 39.5, "2024-02-06", "", "9 Elm Ave", "(555) 987-6543")
	mock.ExpectQuery(regexp.QuoteMeta(OrdersQuery("orders"))).WillReturnRows(rows)

	records, err := ReadSQL(context.Background(), db, "orders")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ORD-1001", records[0].OrderID)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), records[0].OrderDate)
	assert.Equal(t, int64(14999), records[0].TotalCents)
	assert.Equal(t, int64(3950), records[1].TotalCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadSQL_BadRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(OrderColumns).
		AddRow("ORD-1", "A", "P", 0, "2024-01-01", "Shipped", "1", "2024-01-02", "", "Addr", "5551234567")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT order_id")).WillReturnRows(rows)

	_, err = ReadSQL(context.Background(), db, "orders")
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 1, le.Row)
}

func TestReadSQL_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT order_id")).WillReturnError(sql.ErrConnDone)

	_, err = ReadSQL(context.Background(), db, "orders")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestReadSQL_RejectsTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = ReadSQL(context.Background(), db, "orders; DROP TABLE orders")
	assert.Error(t, err)
}

func TestLoadSQL_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "orders.db")
	db, err := sql.Open(DriverSQLite, dsn)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE orders (
		order_id TEXT, customer_name TEXT, product_name TEXT, quantity INTEGER,
		order_date DATE, order_status TEXT, total_amount REAL, estimated_delivery DATE,
		tracking_number TEXT, shipping_address TEXT, phone TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders VALUES
		('ORD-3003', 'Maria Garcia', 'Smart Watch', 1, '2024-03-10', 'Delivered', 199.99, '2024-03-14', NULL, '5 Oak Rd', '555.222.3333')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := LoadOrders(context.Background(), WithDriver(DriverSQLite), WithDSN(dsn))
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	rec, ok := s.FindByPhone("5552223333")
	require.True(t, ok)
	assert.Equal(t, "ORD-3003", rec.OrderID)
	assert.Equal(t, int64(19999), rec.TotalCents)
	assert.Empty(t, rec.TrackingNumber)
	assert.Equal(t, 2024, rec.EstimatedDelivery.Year())
}

func TestLoadSQL_MissingDSN(t *testing.T) {
	_, err := LoadOrders(context.Background(), WithDriver(DriverPostgres))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, err.Error(), "DSN not set")
}
