package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType distinguishes purchases from sales.
type OrderType string

const (
	TypePurchase OrderType = "purchase"
	TypeSale     OrderType = "sale"
)

// NumberPrefix returns the document number prefix for the type.
func (t OrderType) NumberPrefix() string {
	if t == TypePurchase {
		return "PO"
	}
	return "SO"
}

// Status is the order lifecycle state.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// statusTransitions is the explicit transition table. Terminal statuses have
// no outgoing transitions.
var statusTransitions = map[Status][]Status{
	StatusDraft:      {StatusPending, StatusCancelled},
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus is derived from the paid amount against the total.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// CustomerSnapshot is captured on sale orders at creation time.
type CustomerSnapshot struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderItem is one line of an order. Name, SKU and unit are immutable
// snapshots from the product directory.
type OrderItem struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku"`
	Unit           string          `json:"unit"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	TaxRatePct     decimal.Decimal `json:"tax_rate_pct"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	Position       int             `json:"position"`
}

// Totals aggregates order-level amounts. Always recomputed from items, never
// edited independently of them.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// StatusChange is one append-only status history entry.
type StatusChange struct {
	Status  Status    `json:"status"`
	ActorID uuid.UUID `json:"actor_id"`
	At      time.Time `json:"at"`
	Notes   string    `json:"notes,omitempty"`
}

// Order is a purchase or sale document owned by one organization.
type Order struct {
	ID            uuid.UUID         `json:"id"`
	OrgID         uuid.UUID         `json:"org_id"`
	OrderNumber   string            `json:"order_number"`
	Type          OrderType         `json:"type"`
	SupplierID    *uuid.UUID        `json:"supplier_id,omitempty"`
	Customer      *CustomerSnapshot `json:"customer,omitempty"`
	Items         []OrderItem       `json:"items"`
	DiscountPct   decimal.Decimal   `json:"discount_pct"`
	ShippingCost  decimal.Decimal   `json:"shipping_cost"`
	Totals        Totals            `json:"totals"`
	Status        Status            `json:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	PaidAmount    decimal.Decimal   `json:"paid_amount"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	StatusHistory []StatusChange    `json:"status_history"`
	// StockProcessed is a one-way marker: set together with the completed
	// status, it prevents stock effects from being applied twice.
	StockProcessed bool       `json:"stock_processed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CanBeModified reports whether items may still be edited.
func (o *Order) CanBeModified() bool {
	return o.Status == StatusDraft || o.Status == StatusPending
}

// CanBeCancelled reports whether the order may still be cancelled.
func (o *Order) CanBeCancelled() bool {
	return !o.Status.Terminal()
}
