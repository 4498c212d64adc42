package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// SystemPrompt is the fixed store policy sent ahead of every conversation.
const SystemPrompt = "You are a helpful customer support assistant for " +
	"TechGadgets, an online electronics store. " +
	"Always be friendly and professional. " +
	"Always mention TechGadgets in your responses. " +
	"Use company policies: 30-day money-back guarantee, " +
	"standard shipping 3-5 business days, express 2-day shipping for $9.99, " +
	"24/7 chat support, Mon-Fri 9AM-6PM phone support, " +
	"1-year manufacturer warranty, and price matching. " +
	"When order information is provided, use it to answer questions about that order. " +
	"Never claim an order has been cancelled or changed; explain the steps instead."

// OrderInfoMarker separates the customer's message from the appended order details.
const OrderInfoMarker = "--- Order Information ---"

const dateLayout = "2006-01-02"

// FormatOrderContext renders an order as the block appended to the user turn.
func FormatOrderContext(o models.OrderRecord) string {
	var b strings.Builder
	b.WriteString(OrderInfoMarker)
	fmt.Fprintf(&b, "\nOrder ID: %s", o.OrderID)
	fmt.Fprintf(&b, "\nCustomer: %s", o.CustomerName)
	fmt.Fprintf(&b, "\nProduct: %s (Qty: %d)", o.ProductName, o.Quantity)
	fmt.Fprintf(&b, "\nOrder Date: %s", o.OrderDate.Format(dateLayout))
	fmt.Fprintf(&b, "\nStatus: %s", o.OrderStatus)
	fmt.Fprintf(&b, "\nTotal: %s", o.TotalAmount())
	fmt.Fprintf(&b, "\nEstimated Delivery: %s", o.EstimatedDelivery.Format(dateLayout))
	if o.TrackingNumber != "" {
		fmt.Fprintf(&b, "\nTracking Number: %s", o.TrackingNumber)
	}
	fmt.Fprintf(&b, "\nShipping Address: %s", o.ShippingAddress)
	return b.String()
}

// AugmentMessage appends the order block to the raw message.
func AugmentMessage(message string, o models.OrderRecord) string {
	return message + "\n\n" + FormatOrderContext(o)
}
