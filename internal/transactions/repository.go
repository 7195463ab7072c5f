package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists transaction records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts one record. There is deliberately no update or delete.
func (r *Repository) Append(ctx context.Context, record Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.At.IsZero() {
		record.At = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock_transactions (id, org_id, product_id, type, delta, value, reference, actor_id, at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		record.ID, record.OrgID, record.ProductID, record.Type, record.Delta,
		record.Value, record.Reference, record.ActorID, record.At)
	return err
}

// ListFilter narrows List results.
type ListFilter struct {
	ProductID *uuid.UUID
	Reference string
	Limit     int
}

// List returns records for an organization, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]Record, error) {
	query := `SELECT id, org_id, product_id, type, delta, value, reference, actor_id, at
		 FROM stock_transactions WHERE org_id=$1`
	args := []any{orgID}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		query += fmt.Sprintf(" AND product_id=$%d", len(args))
	}
	if filter.Reference != "" {
		args = append(args, filter.Reference)
		query += fmt.Sprintf(" AND reference=$%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OrgID, &rec.ProductID, &rec.Type, &rec.Delta,
			&rec.Value, &rec.Reference, &rec.ActorID, &rec.At); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
