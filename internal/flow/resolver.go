package flow

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/phone"
)

// Strategy names the lookup rule that resolved an order.
type Strategy string

// Resolution strategies in the order they are tried.
const (
	StrategyNone         Strategy = ""
	StrategyOrderID      Strategy = "order_id"
	StrategyPhoneHint    Strategy = "phone_hint"
	StrategyPhoneInText  Strategy = "phone_in_text"
	StrategyCustomerName Strategy = "customer_name"
)

// orderIDPattern matches canonical order ids such as ORD-1001 anywhere in the text.
var orderIDPattern = regexp.MustCompile(`(?i)\bORD-[A-Z0-9]+\b`)

// OrderLookup is the read-only view of the order table the resolver needs.
type OrderLookup interface {
	FindByID(id string) (models.OrderRecord, bool)
	FindByPhone(number string) (models.OrderRecord, bool)
	FindByCustomerName(query string) (models.OrderRecord, bool)
}

// OrderResolver finds the single best order for a query.
type OrderResolver struct {
	orders OrderLookup
}

// NewOrderResolver creates a resolver over orders. A nil lookup never matches.
func NewOrderResolver(orders OrderLookup) *OrderResolver {
	return &OrderResolver{orders: orders}
}

// ExtractOrderID returns the first order id token in text, upper-cased.
func ExtractOrderID(text string) (string, bool) {
	m := orderIDPattern.FindString(strings.TrimSpace(text))
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}

// Resolve tries, in order: an order id in the query, the caller-supplied phone, a phone
// number found in the query, then a case-insensitive customer name substring. The
// first strategy that matches wins.
func (r *OrderResolver) Resolve(query, phoneHint string) (models.OrderRecord, Strategy, bool) {
	if r == nil || r.orders == nil {
		return models.OrderRecord{}, StrategyNone, false
	}
	query = strings.TrimSpace(query)

	if id, ok := ExtractOrderID(query); ok {
		if rec, found := r.orders.FindByID(id); found {
			return r.matched(rec, StrategyOrderID)
		}
		slog.Debug("OrderResolver.Resolve: order id not in store", "order_id", id)
	}

	if hint := phone.Normalize(phoneHint); hint != "" {
		if rec, found := r.orders.FindByPhone(hint); found {
			return r.matched(rec, StrategyPhoneHint)
		}
	}

	if raw, ok := phone.Extract(query); ok {
		if rec, found := r.orders.FindByPhone(raw); found {
			return r.matched(rec, StrategyPhoneInText)
		}
	}

	if query != "" {
		if rec, found := r.orders.FindByCustomerName(query); found {
			return r.matched(rec, StrategyCustomerName)
		}
	}

	slog.Debug("OrderResolver.Resolve: no order matched", "phone_hint_set", phoneHint != "")
	return models.OrderRecord{}, StrategyNone, false
}

func (r *OrderResolver) matched(rec models.OrderRecord, s Strategy) (models.OrderRecord, Strategy, bool) {
	slog.Debug("OrderResolver.Resolve: order matched", "order_id", rec.OrderID, "strategy", s)
	return rec, s, true
}
