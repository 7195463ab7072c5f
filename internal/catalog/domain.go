package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the directory entry resolved when order items are created.
// Name, SKU and unit are snapshotted onto order items at creation time.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	OrgID        uuid.UUID       `json:"org_id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Unit         string          `json:"unit"`
	Cost         decimal.Decimal `json:"cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Directory looks up products for an organization.
type Directory interface {
	Lookup(ctx context.Context, orgID, productID uuid.UUID) (Product, error)
}

// Invalidator drops a cached directory entry after a product changes upstream.
type Invalidator interface {
	Invalidate(ctx context.Context, orgID, productID uuid.UUID) error
}
