package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow-io/stockflow/internal/shared"
)

// Repository provides PostgreSQL backed product lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lookup returns the product by id scoped to the organization.
func (r *Repository) Lookup(ctx context.Context, orgID, productID uuid.UUID) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, org_id, name, sku, unit, cost, selling_price, created_at, updated_at
		 FROM products WHERE org_id=$1 AND id=$2`, orgID, productID).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.SKU, &p.Unit, &p.Cost, &p.SellingPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &shared.NotFoundError{Entity: "product", ID: productID.String()}
		}
		return Product{}, err
	}
	return p, nil
}
