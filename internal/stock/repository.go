package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow-io/stockflow/internal/platform/db"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, org_id, product_id, location, quantity, reserved_quantity,
	min_threshold, max_threshold, reorder_point, total_value, last_movement_at,
	version, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.OrgID, &r.ProductID, &r.Location, &r.Quantity, &r.ReservedQuantity,
		&r.MinThreshold, &r.MaxThreshold, &r.ReorderPoint, &r.TotalValue, &r.LastMovementAt,
		&r.Version, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// Get returns the record for (org, product, location).
func (r *Repository) Get(ctx context.Context, orgID, productID uuid.UUID, location string) (Record, error) {
	record, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM stock_records WHERE org_id=$1 AND product_id=$2 AND location=$3`,
		orgID, productID, location))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, &shared.NotFoundError{Entity: "stock record", ID: productID.String() + "@" + location}
		}
		return Record{}, err
	}
	return record, nil
}

// GetByID returns the record by id, scoped to the organization.
func (r *Repository) GetByID(ctx context.Context, orgID, id uuid.UUID) (Record, error) {
	record, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM stock_records WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, &shared.NotFoundError{Entity: "stock record", ID: id.String()}
		}
		return Record{}, err
	}
	return record, nil
}

// List returns all records for an organization.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM stock_records WHERE org_id=$1 ORDER BY location, product_id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListMovements returns movement history for a record, newest first.
func (r *Repository) ListMovements(ctx context.Context, recordID uuid.UUID, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, record_id, type, delta, value, reference, at
		 FROM stock_movements WHERE record_id=$1 ORDER BY at DESC, id DESC LIMIT $2`, recordID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.RecordID, &m.Type, &m.Delta, &m.Value, &m.Reference, &m.At); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// Create inserts a new stock record.
func (r *Repository) Create(ctx context.Context, record Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock_records (id, org_id, product_id, location, quantity, reserved_quantity,
			min_threshold, max_threshold, reorder_point, total_value, version, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		record.ID, record.OrgID, record.ProductID, record.Location, record.Quantity, record.ReservedQuantity,
		record.MinThreshold, record.MaxThreshold, record.ReorderPoint, record.TotalValue,
		record.Version, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.NewValidationError("location", "stock record already exists for this product and location")
		}
		return err
	}
	return nil
}

// PruneAllMovements enforces retention bounds across every record.
func (r *Repository) PruneAllMovements(ctx context.Context, maxEntries int, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM stock_movements m WHERE m.at < $1 OR m.id NOT IN (
			SELECT id FROM stock_movements k
			WHERE k.record_id = m.record_id
			ORDER BY k.at DESC, k.id DESC LIMIT $2
		)`, cutoff, maxEntries)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// UpdateRecordGuarded applies an optimistic write: the update only succeeds if
// the stored version still matches what the caller read.
func (t *txRepo) UpdateRecordGuarded(ctx context.Context, record Record, expectedVersion int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE stock_records
		 SET quantity=$1, reserved_quantity=$2, total_value=$3, last_movement_at=$4,
		     updated_at=$5, version=version+1
		 WHERE id=$6 AND version=$7`,
		record.Quantity, record.ReservedQuantity, record.TotalValue, record.LastMovementAt,
		record.UpdatedAt, record.ID, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.ConcurrencyConflictError{Entity: "stock record", ID: record.ID.String()}
	}
	return nil
}

func (t *txRepo) InsertMovement(ctx context.Context, m Movement) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stock_movements (id, record_id, type, delta, value, reference, at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.RecordID, m.Type, m.Delta, m.Value, m.Reference, m.At)
	return err
}

func (t *txRepo) PruneMovements(ctx context.Context, recordID uuid.UUID, maxEntries int, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)
	_, err := t.tx.Exec(ctx,
		`DELETE FROM stock_movements WHERE record_id=$1 AND (at < $2 OR id NOT IN (
			SELECT id FROM stock_movements WHERE record_id=$1
			ORDER BY at DESC, id DESC LIMIT $3
		))`, recordID, cutoff, maxEntries)
	return err
}
