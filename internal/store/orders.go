package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/phone"
)

// Column names every order source must provide. tracking_number may be empty.
const (
	ColOrderID           = "order_id"
	ColCustomerName      = "customer_name"
	ColProductName       = "product_name"
	ColQuantity          = "quantity"
	ColOrderDate         = "order_date"
	ColOrderStatus       = "order_status"
	ColTotalAmount       = "total_amount"
	ColEstimatedDelivery = "estimated_delivery"
	ColTrackingNumber    = "tracking_number"
	ColShippingAddress   = "shipping_address"
	ColPhone             = "phone"
)

// OrderColumns lists the order table columns in load order.
var OrderColumns = []string{
	ColOrderID, ColCustomerName, ColProductName, ColQuantity, ColOrderDate, ColOrderStatus,
	ColTotalAmount, ColEstimatedDelivery, ColTrackingNumber, ColShippingAddress, ColPhone,
}

var dateLayouts = []string{"2006-01-02", time.RFC3339Nano, "2006-01-02 15:04:05", "01/02/2006"}

// OrderStore is an immutable, indexed order table. A nil *OrderStore behaves as unavailable.
type OrderStore struct {
	available bool
	source    string
	records   []models.OrderRecord
	names     []string       // lower-cased customer names, parallel to records
	byID      map[string]int // upper-cased order id -> first index
	byPhone   map[string]int // normalized phone -> first index
}

// NewOrderStore indexes records in the given order. Duplicate keys resolve to the first record.
func NewOrderStore(source string, records []models.OrderRecord) *OrderStore {
	s := &OrderStore{
		available: true,
		source:    source,
		records:   make([]models.OrderRecord, len(records)),
		names:     make([]string, len(records)),
		byID:      make(map[string]int, len(records)),
		byPhone:   make(map[string]int, len(records)),
	}
	copy(s.records, records)
	for i, r := range s.records {
		s.names[i] = strings.ToLower(r.CustomerName)
		if _, dup := s.byID[strings.ToUpper(r.OrderID)]; dup {
			slog.Warn("OrderStore.NewOrderStore: duplicate order id, keeping first", "order_id", r.OrderID, "row", i+1)
		} else {
			s.byID[strings.ToUpper(r.OrderID)] = i
		}
		if p := phone.Normalize(r.Phone); p != "" {
			if _, dup := s.byPhone[p]; !dup {
				s.byPhone[p] = i
			}
		}
	}
	return s
}

// Unavailable returns a store that answers every lookup with "not found".
func Unavailable(source string) *OrderStore {
	return &OrderStore{source: source}
}

// LoadOrders loads the order table from the configured source.
func LoadOrders(ctx context.Context, opts ...Option) (*OrderStore, error) {
	cfg := buildOpts(opts)
	switch cfg.Driver {
	case "":
		return LoadCSV(cfg.CSVPath)
	case DriverSQLite, DriverPostgres:
		return LoadSQL(ctx, cfg)
	default:
		return nil, &LoadError{Source: cfg.Driver, Err: fmt.Errorf("unsupported driver %q", cfg.Driver)}
	}
}

// Available reports whether the store was loaded successfully.
func (s *OrderStore) Available() bool {
	return s != nil && s.available
}

// Source describes where the records came from.
func (s *OrderStore) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

// Len returns the number of loaded records.
func (s *OrderStore) Len() int {
	if !s.Available() {
		return 0
	}
	return len(s.records)
}

// All returns a copy of the records in load order.
func (s *OrderStore) All() []models.OrderRecord {
	if !s.Available() {
		return nil
	}
	out := make([]models.OrderRecord, len(s.records))
	copy(out, s.records)
	return out
}

// FindByID returns the first record whose order id equals id, ignoring case.
func (s *OrderStore) FindByID(id string) (models.OrderRecord, bool) {
	if !s.Available() {
		return models.OrderRecord{}, false
	}
	i, ok := s.byID[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return models.OrderRecord{}, false
	}
	return s.records[i], true
}

// FindByPhone returns the first record whose normalized phone equals the normalized input.
func (s *OrderStore) FindByPhone(number string) (models.OrderRecord, bool) {
	if !s.Available() {
		return models.OrderRecord{}, false
	}
	n := phone.Normalize(number)
	if n == "" {
		return models.OrderRecord{}, false
	}
	i, ok := s.byPhone[n]
	if !ok {
		return models.OrderRecord{}, false
	}
	return s.records[i], true
}

// FindByCustomerName returns the first record whose customer name contains query, ignoring case.
func (s *OrderStore) FindByCustomerName(query string) (models.OrderRecord, bool) {
	if !s.Available() {
		return models.OrderRecord{}, false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return models.OrderRecord{}, false
	}
	for i, name := range s.names {
		if strings.Contains(name, q) {
			return s.records[i], true
		}
	}
	return models.OrderRecord{}, false
}

// parseOrder builds a record from column values keyed by column name.
func parseOrder(get func(col string) string) (models.OrderRecord, error) {
	var r models.OrderRecord
	var err error

	r.OrderID = get(ColOrderID)
	if r.OrderID == "" {
		return r, errors.New("order_id is empty")
	}
	r.CustomerName = get(ColCustomerName)
	r.ProductName = get(ColProductName)
	r.OrderStatus = get(ColOrderStatus)
	r.TrackingNumber = get(ColTrackingNumber)
	r.ShippingAddress = get(ColShippingAddress)
	r.Phone = get(ColPhone)

	if r.Quantity, err = strconv.Atoi(get(ColQuantity)); err != nil {
		return r, fmt.Errorf("invalid quantity: %w", err)
	}
	if r.Quantity < 1 {
		return r, fmt.Errorf("invalid quantity %d: must be at least 1", r.Quantity)
	}
	if r.OrderDate, err = parseDate(get(ColOrderDate)); err != nil {
		return r, fmt.Errorf("invalid order_date: %w", err)
	}
	if r.EstimatedDelivery, err = parseDate(get(ColEstimatedDelivery)); err != nil {
		return r, fmt.Errorf("invalid estimated_delivery: %w", err)
	}
	if r.TotalCents, err = parseCents(get(ColTotalAmount)); err != nil {
		return r, fmt.Errorf("invalid total_amount: %w", err)
	}
	return r, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseCents parses a decimal currency amount such as "1,299.5" or "$49.99" into minor units.
// Digits past the second decimal place are rounded half up.
func parseCents(s string) (int64, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	neg := strings.HasPrefix(clean, "-")
	clean = strings.TrimPrefix(clean, "-")
	whole, frac, hasFrac := strings.Cut(clean, ".")
	if whole == "" && !hasFrac {
		return 0, fmt.Errorf("empty amount %q", s)
	}
	if strings.Trim(frac, "0123456789") != "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	roundUp := false
	if len(frac) > 2 {
		roundUp = frac[2] >= '5'
		frac = frac[:2]
	}
	cents, err := joinCents(whole, frac)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if roundUp {
		cents++
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

func joinCents(whole, frac string) (int64, error) {
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("non-digit %q", r)
			}
		}
	}
	return strconv.ParseInt(whole+frac, 10, 64)
}
