package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementPurchase is an inbound movement from a completed purchase order.
	MovementPurchase MovementType = "purchase"
	// MovementSale is an outbound movement from a completed sales order.
	MovementSale MovementType = "sale"
	// MovementAdjustment is a manual correction, positive or negative.
	MovementAdjustment MovementType = "adjustment"
	// MovementTransferIn and MovementTransferOut move stock between locations.
	MovementTransferIn  MovementType = "transfer_in"
	MovementTransferOut MovementType = "transfer_out"
)

// Record is the authoritative quantity-on-hand for one product at one
// location within one organization. Version guards optimistic writes.
type Record struct {
	ID               uuid.UUID       `json:"id"`
	OrgID            uuid.UUID       `json:"org_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	Location         string          `json:"location"`
	Quantity         int64           `json:"quantity"`
	ReservedQuantity int64           `json:"reserved_quantity"`
	MinThreshold     int64           `json:"min_threshold"`
	MaxThreshold     int64           `json:"max_threshold"`
	ReorderPoint     int64           `json:"reorder_point"`
	TotalValue       decimal.Decimal `json:"total_value"`
	LastMovementAt   *time.Time      `json:"last_movement_at,omitempty"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AvailableQuantity is quantity on hand minus reservations, floored at zero.
func (r Record) AvailableQuantity() int64 {
	available := r.Quantity - r.ReservedQuantity
	if available < 0 {
		return 0
	}
	return available
}

// NeedsReorder reports whether available stock fell to the reorder point.
// A zero reorder point means none is configured.
func (r Record) NeedsReorder() bool {
	return r.ReorderPoint > 0 && r.AvailableQuantity() <= r.ReorderPoint
}

// Movement is one entry in a record's bounded movement history, newest first.
type Movement struct {
	ID        uuid.UUID       `json:"id"`
	RecordID  uuid.UUID       `json:"record_id"`
	Type      MovementType    `json:"type"`
	Delta     int64           `json:"delta"`
	Value     decimal.Decimal `json:"value"`
	Reference string          `json:"reference"`
	At        time.Time       `json:"at"`
}

// Movement history retention bounds.
const (
	MaxMovementEntries = 500
	MovementRetention  = 90 * 24 * time.Hour
)

// MovementInput describes a requested stock mutation.
type MovementInput struct {
	OrgID     uuid.UUID
	ProductID uuid.UUID
	Location  string
	Type      MovementType
	Delta     int64
	UnitValue decimal.Decimal
	Reference string
}
