package ingestion

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/larkspur-kitchen/rewards/internal/orderstatus"
)

// Supported gateway event types.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
)

// Event is the gateway envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// lineItem is a gateway line item.
type lineItem struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	AmountTotal int64  `json:"amount_total"`
}

// paymentObject is the union of the checkout session and payment intent shapes.
type paymentObject struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`

	CustomerEmail   string `json:"customer_email"`
	ReceiptEmail    string `json:"receipt_email"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`

	AmountSubtotal int64 `json:"amount_subtotal"`
	AmountTotal    int64 `json:"amount_total"`
	Amount         int64 `json:"amount"`
	AmountReceived int64 `json:"amount_received"`
	TotalDetails   *struct {
		AmountDiscount int64 `json:"amount_discount"`
	} `json:"total_details"`

	Metadata  map[string]string `json:"metadata"`
	LineItems *struct {
		Data []lineItem `json:"data"`
	} `json:"line_items"`
}

// Payment is a normalized paid order reported by the gateway.
type Payment struct {
	EventID       string
	EventType     string
	Reference     string // Payment intent id, shared by both event kinds.
	Email         string
	OrderType     orderstatus.OrderType
	Items         []models.OrderItem
	SubtotalCents int64
	DiscountCents int64 // Discounts already applied by the gateway.
	TotalCents    int64

	// Itemized is false when the event only reports the charged amount, so tax
	// and tip cannot be told apart from eligible spend.
	Itemized bool
}

// Supported reports whether eventType materializes orders.
func Supported(eventType string) bool {
	return eventType == EventCheckoutCompleted || eventType == EventPaymentIntentSucceeded
}

// ParseEvent decodes the envelope only.
func ParseEvent(payload []byte) (Event, error) {
	var evt Event
	if errDecode := json.Unmarshal(payload, &evt); errDecode != nil {
		return Event{}, apperr.Validation("invalid event payload")
	}
	evt.ID = strings.TrimSpace(evt.ID)
	if evt.ID == "" {
		return Event{}, apperr.Validation("event id is required")
	}
	if strings.TrimSpace(evt.Type) == "" {
		return Event{}, apperr.Validation("event type is required")
	}
	return evt, nil
}

// NormalizePayment extracts the order facts from a supported event.
func NormalizePayment(evt Event) (Payment, error) {
	if len(evt.Data.Object) == 0 {
		return Payment{}, apperr.Validation("event has no data object")
	}
	var obj paymentObject
	if errDecode := json.Unmarshal(evt.Data.Object, &obj); errDecode != nil {
		return Payment{}, apperr.Validation("invalid event data object")
	}

	p := Payment{EventID: evt.ID, EventType: evt.Type}
	switch evt.Type {
	case EventCheckoutCompleted:
		p.Reference = firstNonEmpty(obj.PaymentIntent, obj.ID)
		email := obj.CustomerEmail
		if obj.CustomerDetails != nil {
			email = firstNonEmpty(email, obj.CustomerDetails.Email)
		}
		p.Email = email
		p.SubtotalCents = obj.AmountSubtotal
		p.TotalCents = obj.AmountTotal
		if obj.TotalDetails != nil {
			p.DiscountCents = obj.TotalDetails.AmountDiscount
		}
		if obj.LineItems != nil {
			p.Items = convertItems(obj.LineItems.Data)
		}
		p.Itemized = true
	case EventPaymentIntentSucceeded:
		p.Reference = obj.ID
		p.Email = firstNonEmpty(obj.ReceiptEmail, obj.Metadata["customer_email"])
		p.TotalCents = firstPositive(obj.AmountReceived, obj.Amount)
		p.SubtotalCents = metadataCents(obj.Metadata, "subtotal_cents", p.TotalCents)
		p.DiscountCents = metadataCents(obj.Metadata, "discount_cents", 0)
		if raw := obj.Metadata["items"]; raw != "" {
			var items []lineItem
			if errDecode := json.Unmarshal([]byte(raw), &items); errDecode != nil {
				return Payment{}, apperr.Validation("invalid items metadata")
			}
			p.Items = convertItems(items)
			p.Itemized = len(p.Items) > 0
		}
	default:
		return Payment{}, apperr.Validation("unsupported event type")
	}

	p.Email = normalizeEmail(p.Email)
	orderType := orderstatus.OrderTypePickup
	if raw := strings.TrimSpace(obj.Metadata["order_type"]); raw != "" {
		parsed, errParse := orderstatus.ParseOrderType(raw)
		if errParse != nil {
			return Payment{}, apperr.Validation(errParse.Error())
		}
		orderType = parsed
	}
	p.OrderType = orderType

	if p.SubtotalCents == 0 && len(p.Items) > 0 {
		for _, item := range p.Items {
			p.SubtotalCents += item.AmountCents
		}
	}
	if p.SubtotalCents < 0 || p.TotalCents < 0 || p.DiscountCents < 0 {
		return Payment{}, apperr.Validation("amounts cannot be negative")
	}
	return p, nil
}

func convertItems(in []lineItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(in))
	for _, item := range in {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		out = append(out, models.OrderItem{
			Label:       strings.TrimSpace(item.Description),
			Quantity:    qty,
			AmountCents: item.AmountTotal,
		})
	}
	return out
}

func metadataCents(md map[string]string, key string, def int64) int64 {
	raw := strings.TrimSpace(md[key])
	if raw == "" {
		return def
	}
	n, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil {
		return def
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstPositive(values ...int64) int64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
