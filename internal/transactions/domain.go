// Package transactions keeps the append-only log of inventory-affecting
// events. Records are immutable once written: the contract exposes no update
// or delete operation.
package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record describes one inventory-affecting event.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	OrgID     uuid.UUID       `json:"org_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Type      string          `json:"type"`
	Delta     int64           `json:"delta"`
	Value     decimal.Decimal `json:"value"`
	Reference string          `json:"reference"`
	ActorID   uuid.UUID       `json:"actor_id"`
	At        time.Time       `json:"at"`
}

// Recorder appends records to the log. Write-once.
type Recorder interface {
	Append(ctx context.Context, record Record) error
}
